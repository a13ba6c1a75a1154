package nlu

import (
	"context"
	"fmt"
	"testing"
)

func TestMatchPatterns(t *testing.T) {
	tests := []struct {
		question string
		want     Intent
	}{
		{"How many expired licenses do we have?", IntentExpiredLicenseCount},
		{"expired licenses total count please", IntentExpiredLicenseCount},
		{"Show phone format problems", IntentPhoneFormatIssues},
		{"providers with missing NPI", IntentMissingNPI},
		{"find duplicate provider entries", IntentDuplicateRecords},
		{"potential duplicates?", IntentDuplicateRecords},
		{"what's the overall quality score", IntentOverallQualityScore},
		{"our data quality score", IntentOverallQualityScore},
		{"which specialty has the most issues", IntentSpecialtiesWithMostIssues},
		{"summary by state", IntentStateIssueSummary},
		{"compliance report for expired licenses", IntentComplianceReportExpired},
		{"filter by expiration in 30 days", IntentFilterByExpirationWindow},
		{"what expires in the next 60 days", IntentFilterByExpirationWindow},
		{"providers in multiple states with a single license", IntentMultiStateSingleLicense},
		{"export the update list", IntentExportUpdateList},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got, pattern, ok := matchPatterns(tt.question)
			if !ok {
				t.Fatalf("no pattern matched %q", tt.question)
			}
			if got != tt.want {
				t.Errorf("intent = %s (pattern %s), want %s", got, pattern, tt.want)
			}
		})
	}
}

func TestMatchPatterns_NoMatch(t *testing.T) {
	if intent, _, ok := matchPatterns("tell me about the weather"); ok {
		t.Errorf("unexpected match: %s", intent)
	}
}

func TestExtractParams(t *testing.T) {
	p := ExtractParams(IntentFilterByExpirationWindow, "licenses expiring in 30 days")
	if p.Days != 30 {
		t.Errorf("days = %d, want 30", p.Days)
	}

	p = ExtractParams(IntentFilterByExpirationWindow, "licenses expiring soon")
	if p.Days != DefaultExpiryWindowDays {
		t.Errorf("default days = %d, want %d", p.Days, DefaultExpiryWindowDays)
	}

	p = ExtractParams(IntentMissingNPI, "missing npi in 30 days")
	if p.Days != 0 {
		t.Errorf("days extracted for non-window intent: %d", p.Days)
	}
}

func TestKeywordFallback(t *testing.T) {
	tests := []struct {
		question   string
		wantIntent Intent
		wantMethod Method
	}{
		{"how many licenses are expired", IntentExpiredLicenseCount, MethodKeyword},
		{"any duplicated doctors", IntentDuplicateRecords, MethodKeyword},
		{"quality score?", IntentOverallQualityScore, MethodKeyword},
		{"phone issue anywhere?", IntentPhoneFormatIssues, MethodKeyword},
		{"hello there", IntentOverallQualityScore, MethodDefault},
	}
	for _, tt := range tests {
		intent, method := keywordFallback(tt.question)
		if intent != tt.wantIntent || method != tt.wantMethod {
			t.Errorf("keywordFallback(%q) = %s/%s, want %s/%s",
				tt.question, intent, method, tt.wantIntent, tt.wantMethod)
		}
	}
}

// stubLLM returns a fixed answer or error.
type stubLLM struct {
	intent Intent
	params Params
	err    error
}

func (s *stubLLM) ClassifyIntent(ctx context.Context, question string) (Intent, Params, error) {
	return s.intent, s.params, s.err
}

// stubSemantic returns a fixed match.
type stubSemantic struct {
	match *SemanticMatch
	err   error
}

func (s *stubSemantic) Classify(ctx context.Context, question string) (*SemanticMatch, error) {
	return s.match, s.err
}

func TestClassify_LLMWins(t *testing.T) {
	c := NewClassifier(&stubLLM{intent: IntentMissingNPI}, nil)
	res := c.Classify(context.Background(), "how many expired licenses")
	if res.Method != MethodLocalLLM || res.Intent != IntentMissingNPI {
		t.Errorf("resolution = %+v, want local_llm/missing_npi", res)
	}
}

func TestClassify_LLMFailureFallsToRegex(t *testing.T) {
	c := NewClassifier(&stubLLM{err: fmt.Errorf("connection refused")}, nil)
	res := c.Classify(context.Background(), "how many expired licenses are there")
	if res.Method != MethodRegex || res.Intent != IntentExpiredLicenseCount {
		t.Errorf("resolution = %+v, want regex/expired_license_count", res)
	}
	if res.Pattern == "" {
		t.Error("matched pattern not recorded")
	}
}

func TestClassify_SemanticAfterRegexMiss(t *testing.T) {
	sem := &stubSemantic{match: &SemanticMatch{
		Intent:     IntentStateIssueSummary,
		Phrase:     "summarize issues by state",
		Similarity: 0.91,
	}}
	c := NewClassifier(nil, sem)

	res := c.Classify(context.Background(), "break down the problems geographically")
	if res.Method != MethodSemantic || res.Intent != IntentStateIssueSummary {
		t.Errorf("resolution = %+v, want semantic/state_issue_summary", res)
	}
	if res.Similarity != 0.91 || res.Phrase == "" {
		t.Errorf("semantic trace incomplete: %+v", res)
	}
}

func TestClassify_SemanticErrorFallsToKeyword(t *testing.T) {
	c := NewClassifier(nil, &stubSemantic{err: fmt.Errorf("ollama down")})
	res := c.Classify(context.Background(), "any duplicated doctors")
	if res.Method != MethodKeyword || res.Intent != IntentDuplicateRecords {
		t.Errorf("resolution = %+v, want keyword/duplicate_records", res)
	}
}

func TestClassify_DefaultIntent(t *testing.T) {
	c := NewClassifier(nil, nil)
	res := c.Classify(context.Background(), "what's for lunch")
	if res.Method != MethodDefault || res.Intent != IntentOverallQualityScore {
		t.Errorf("resolution = %+v, want default/overall_quality_score", res)
	}
}

func TestClassify_WindowParamsExtracted(t *testing.T) {
	c := NewClassifier(nil, nil)
	res := c.Classify(context.Background(), "filter by expiration within 45 days")
	if res.Intent != IntentFilterByExpirationWindow {
		t.Fatalf("intent = %s", res.Intent)
	}
	if res.Params.Days != 45 {
		t.Errorf("days = %d, want 45", res.Params.Days)
	}
}
