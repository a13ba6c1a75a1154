package nlu

import (
	"context"
	"strings"

	"credlens/internal/logging"
)

// Method names the classifier stage that resolved a query.
type Method string

const (
	MethodLocalLLM Method = "local_llm"
	MethodRegex    Method = "regex"
	MethodSemantic Method = "semantic"
	MethodKeyword  Method = "keyword_fallback"
	MethodDefault  Method = "default"
)

// Resolution records how a question mapped to an intent.
type Resolution struct {
	Intent Intent `json:"intent"`
	Params Params `json:"params"`
	Method Method `json:"method"`

	// Pattern is the regex that matched, for MethodRegex.
	Pattern string `json:"pattern,omitempty"`

	// Phrase and Similarity describe the nearest corpus phrase, for
	// MethodSemantic.
	Phrase     string  `json:"phrase,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`

	Raw string `json:"raw"`
}

// LLM is the interface the classifier needs from a local language model.
type LLM interface {
	ClassifyIntent(ctx context.Context, question string) (Intent, Params, error)
}

// Semantic is the interface the classifier needs from similarity matching.
type Semantic interface {
	Classify(ctx context.Context, question string) (*SemanticMatch, error)
}

// Classifier resolves free text to intents through a fallback chain. Both
// llm and semantic are optional; a nil stage is skipped.
type Classifier struct {
	llm      LLM
	semantic Semantic
}

// NewClassifier builds the chain. Either stage may be nil.
func NewClassifier(llm LLM, semantic Semantic) *Classifier {
	return &Classifier{llm: llm, semantic: semantic}
}

// Classify resolves the question. It never fails: the final fallback is the
// overall quality score.
func (c *Classifier) Classify(ctx context.Context, question string) Resolution {
	timer := logging.StartTimer(logging.CategoryNLU, "Classifier.Classify")
	defer timer.Stop()

	// Stage 1: local LLM, best effort.
	if c.llm != nil {
		if intent, params, err := c.llm.ClassifyIntent(ctx, question); err == nil {
			logging.NLU("Resolved via local LLM: %q -> %s", question, intent)
			return Resolution{Intent: intent, Params: params, Method: MethodLocalLLM, Raw: question}
		} else {
			logging.NLUDebug("Local LLM unavailable or unusable: %v", err)
		}
	}

	// Stage 2: regex patterns.
	if intent, pattern, ok := matchPatterns(question); ok {
		params := ExtractParams(intent, question)
		logging.NLU("Resolved via regex: %q -> %s", question, intent)
		return Resolution{
			Intent:  intent,
			Params:  params,
			Method:  MethodRegex,
			Pattern: pattern,
			Raw:     question,
		}
	}

	// Stage 3: semantic similarity.
	if c.semantic != nil {
		if match, err := c.semantic.Classify(ctx, question); err != nil {
			logging.NLUDebug("Semantic classification failed: %v", err)
		} else if match != nil {
			return Resolution{
				Intent:     match.Intent,
				Params:     ExtractParams(match.Intent, question),
				Method:     MethodSemantic,
				Phrase:     match.Phrase,
				Similarity: match.Similarity,
				Raw:        question,
			}
		}
	}

	// Stage 4: keyword fallback, then the default intent.
	intent, method := keywordFallback(question)
	logging.NLU("Resolved via %s: %q -> %s", method, question, intent)
	return Resolution{
		Intent: intent,
		Params: ExtractParams(intent, question),
		Method: method,
		Raw:    question,
	}
}

// keywordFallback applies the coarse keyword rules, defaulting to the
// overall quality score.
func keywordFallback(question string) (Intent, Method) {
	t := strings.ToLower(question)
	switch {
	case strings.Contains(t, "expired") && strings.Contains(t, "license") && strings.Contains(t, "how many"):
		return IntentExpiredLicenseCount, MethodKeyword
	case strings.Contains(t, "duplicate"):
		return IntentDuplicateRecords, MethodKeyword
	case strings.Contains(t, "quality score"):
		return IntentOverallQualityScore, MethodKeyword
	case strings.Contains(t, "phone") && (strings.Contains(t, "issue") || strings.Contains(t, "format")):
		return IntentPhoneFormatIssues, MethodKeyword
	default:
		return IntentOverallQualityScore, MethodDefault
	}
}
