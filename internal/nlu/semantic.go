package nlu

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"credlens/internal/embedding"
	"credlens/internal/logging"
	"credlens/internal/store"
)

// =============================================================================
// SEMANTIC CLASSIFIER
// =============================================================================

// minSemanticSimilarity is the floor below which a nearest neighbor is not
// trusted as a classification.
const minSemanticSimilarity = 0.60

// learnedBoost multiplies the similarity of matches from the learned corpus,
// since those phrases came from confirmed user interactions.
const learnedBoost = 1.1

// PatternSource provides learned phrase-to-intent patterns. *store.Store
// satisfies it; tests substitute an in-memory fake.
type PatternSource interface {
	Patterns(ctx context.Context) ([]store.LearnedPattern, error)
	AddPattern(ctx context.Context, phrase, intent string, vec []float32, confidence float64) error
}

// canonicalPhrases is the built-in corpus: representative phrasings of each
// intent, embedded on first use.
var canonicalPhrases = map[Intent][]string{
	IntentExpiredLicenseCount: {
		"how many providers have expired licenses",
		"count of expired medical licenses",
		"number of doctors whose license has lapsed",
	},
	IntentPhoneFormatIssues: {
		"which providers have invalid phone numbers",
		"show me phone number formatting problems",
		"bad contact phone formats in the roster",
	},
	IntentMissingNPI: {
		"which providers are missing an npi",
		"list doctors without a national provider identifier",
		"who has no npi number on file",
	},
	IntentDuplicateRecords: {
		"find potential duplicate provider records",
		"are there duplicated providers in the roster",
		"show suspected duplicate entries",
	},
	IntentOverallQualityScore: {
		"what is our overall data quality score",
		"how good is the provider data quality",
		"give me the roster quality rating",
	},
	IntentSpecialtiesWithMostIssues: {
		"which specialties have the most data issues",
		"worst specialties by problem count",
		"rank specialties by data quality problems",
	},
	IntentStateIssueSummary: {
		"summarize issues by state",
		"give me a state by state issue breakdown",
		"which states have the most roster problems",
	},
	IntentComplianceReportExpired: {
		"generate a compliance report for expired licenses",
		"compliance audit of expired provider licenses",
	},
	IntentFilterByExpirationWindow: {
		"which licenses expire in the next 90 days",
		"show providers whose license expires soon",
		"licenses coming up for renewal",
	},
	IntentMultiStateSingleLicense: {
		"providers practicing in multiple states with a single license",
		"who operates across states on one license",
	},
	IntentExportUpdateList: {
		"export the list of providers needing updates",
		"download records that need credential updates",
	},
}

// corpusEntry is one embedded canonical phrase.
type corpusEntry struct {
	phrase string
	intent Intent
	vec    []float32
}

// SemanticClassifier matches queries against embedded intent phrases.
type SemanticClassifier struct {
	engine   embedding.Engine
	patterns PatternSource

	mu     sync.Mutex
	corpus []corpusEntry // built-in phrases, embedded lazily
}

// SemanticMatch is the outcome of a similarity classification.
type SemanticMatch struct {
	Intent     Intent
	Phrase     string
	Similarity float64
	Learned    bool
}

// NewSemanticClassifier creates a classifier over the given embedding engine.
// patterns may be nil; learned-corpus search is skipped without one.
func NewSemanticClassifier(engine embedding.Engine, patterns PatternSource) *SemanticClassifier {
	return &SemanticClassifier{engine: engine, patterns: patterns}
}

// ensureCorpus embeds the built-in phrases once.
func (sc *SemanticClassifier) ensureCorpus(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.corpus != nil {
		return nil
	}

	timer := logging.StartTimer(logging.CategoryNLU, "SemanticClassifier.ensureCorpus")
	defer timer.Stop()

	var phrases []string
	var intents []Intent
	for _, intent := range AllIntents() {
		for _, phrase := range canonicalPhrases[intent] {
			phrases = append(phrases, phrase)
			intents = append(intents, intent)
		}
	}

	vecs, err := sc.engine.EmbedBatch(ctx, phrases)
	if err != nil {
		return fmt.Errorf("failed to embed intent corpus: %w", err)
	}

	corpus := make([]corpusEntry, len(phrases))
	for i := range phrases {
		corpus[i] = corpusEntry{phrase: phrases[i], intent: intents[i], vec: vecs[i]}
	}
	sc.corpus = corpus

	logging.NLU("Intent corpus embedded: %d phrases across %d intents", len(corpus), len(canonicalPhrases))
	return nil
}

// Classify embeds the query and searches the built-in and learned corpora in
// parallel, returning the best match at or above the similarity floor.
func (sc *SemanticClassifier) Classify(ctx context.Context, question string) (*SemanticMatch, error) {
	timer := logging.StartTimer(logging.CategoryNLU, "SemanticClassifier.Classify")
	defer timer.Stop()

	if err := sc.ensureCorpus(ctx); err != nil {
		return nil, err
	}

	queryVec, err := sc.engine.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var builtin, learned *SemanticMatch
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		builtin = sc.searchBuiltin(queryVec)
		return nil
	})
	g.Go(func() error {
		var err error
		learned, err = sc.searchLearned(gctx, queryVec)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := builtin
	if learned != nil && (best == nil || learned.Similarity > best.Similarity) {
		best = learned
	}
	if best == nil || best.Similarity < minSemanticSimilarity {
		logging.NLUDebug("Semantic classification below floor for %q", question)
		return nil, nil
	}

	logging.NLU("Semantic match: %q -> %s (similarity=%.3f, learned=%v)",
		question, best.Intent, best.Similarity, best.Learned)
	return best, nil
}

// searchBuiltin finds the nearest built-in phrase.
func (sc *SemanticClassifier) searchBuiltin(queryVec []float32) *SemanticMatch {
	sc.mu.Lock()
	corpus := sc.corpus
	sc.mu.Unlock()

	vecs := make([][]float32, len(corpus))
	for i := range corpus {
		vecs[i] = corpus[i].vec
	}

	results, err := embedding.FindTopK(queryVec, vecs, 1)
	if err != nil || len(results) == 0 {
		return nil
	}
	entry := corpus[results[0].Index]
	return &SemanticMatch{
		Intent:     entry.intent,
		Phrase:     entry.phrase,
		Similarity: results[0].Similarity,
	}
}

// searchLearned finds the nearest learned phrase, boosted for having been
// user confirmed. A missing pattern source is not an error.
func (sc *SemanticClassifier) searchLearned(ctx context.Context, queryVec []float32) (*SemanticMatch, error) {
	if sc.patterns == nil {
		return nil, nil
	}

	patterns, err := sc.patterns.Patterns(ctx)
	if err != nil {
		// Degrade rather than fail the whole classification.
		logging.Get(logging.CategoryNLU).Warn("Learned corpus unavailable: %v", err)
		return nil, nil
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	vecs := make([][]float32, len(patterns))
	for i := range patterns {
		vecs[i] = patterns[i].Embedding
	}

	results, err := embedding.FindTopK(queryVec, vecs, 1)
	if err != nil || len(results) == 0 {
		return nil, nil
	}

	p := patterns[results[0].Index]
	sim := results[0].Similarity * learnedBoost
	if sim > 1 {
		sim = 1
	}
	return &SemanticMatch{
		Intent:     Intent(p.Intent),
		Phrase:     p.Phrase,
		Similarity: sim,
		Learned:    true,
	}, nil
}

// Learn persists a confirmed phrase-to-intent mapping so future queries can
// match it directly.
func (sc *SemanticClassifier) Learn(ctx context.Context, phrase string, intent Intent, confidence float64) error {
	if sc.patterns == nil {
		return fmt.Errorf("no pattern store configured")
	}
	if !intent.Valid() {
		return fmt.Errorf("unknown intent %q", intent)
	}

	vec, err := sc.engine.Embed(ctx, phrase)
	if err != nil {
		return fmt.Errorf("failed to embed phrase: %w", err)
	}
	return sc.patterns.AddPattern(ctx, phrase, string(intent), vec, confidence)
}
