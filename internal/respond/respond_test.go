package respond

import (
	"strings"
	"testing"

	"credlens/internal/dq"
	"credlens/internal/engine"
	"credlens/internal/nlu"
)

func TestRender_Count(t *testing.T) {
	got := Render(&engine.Result{
		Intent: nlu.IntentExpiredLicenseCount,
		Kind:   engine.KindCount,
		Count:  7,
	})
	if !strings.Contains(got.Text, "7 providers hold an expired license") {
		t.Errorf("text = %q", got.Text)
	}
	if len(got.FollowUps) == 0 {
		t.Error("no follow-ups")
	}
}

func TestRender_CountSingular(t *testing.T) {
	got := Render(&engine.Result{
		Intent: nlu.IntentExpiredLicenseCount,
		Kind:   engine.KindCount,
		Count:  1,
	})
	if !strings.Contains(got.Text, "1 provider holds") {
		t.Errorf("text = %q", got.Text)
	}
}

func TestRender_Score(t *testing.T) {
	got := Render(&engine.Result{
		Intent: nlu.IntentOverallQualityScore,
		Kind:   engine.KindScore,
		Score:  82.5,
	})
	if !strings.Contains(got.Text, "82.5 out of 100") {
		t.Errorf("text = %q", got.Text)
	}
	if !strings.Contains(got.Text, "Good") {
		t.Errorf("missing remark for a good score: %q", got.Text)
	}
}

func TestRender_EmptyResults(t *testing.T) {
	tests := []struct {
		intent nlu.Intent
		want   string
	}{
		{nlu.IntentExpiredLicenseCount, "No providers"},
		{nlu.IntentMissingNPI, "Every provider has an NPI"},
		{nlu.IntentDuplicateRecords, "No suspected duplicate"},
		{nlu.IntentExportUpdateList, "roster is clean"},
	}
	for _, tt := range tests {
		got := Render(&engine.Result{Intent: tt.intent})
		if !strings.Contains(got.Text, tt.want) {
			t.Errorf("%s: text = %q, want mention of %q", tt.intent, got.Text, tt.want)
		}
	}
}

func TestRender_Window(t *testing.T) {
	got := Render(&engine.Result{
		Intent:    nlu.IntentFilterByExpirationWindow,
		Kind:      engine.KindProviders,
		Providers: make([]dq.Row, 4),
		Days:      30,
	})
	if !strings.Contains(got.Text, "4 licenses expire within the next 30 days") {
		t.Errorf("text = %q", got.Text)
	}
}

func TestRender_StateSummary(t *testing.T) {
	got := Render(&engine.Result{
		Intent: nlu.IntentStateIssueSummary,
		Kind:   engine.KindStates,
		States: []dq.StateSummary{
			{State: "CA", TotalRecords: 40, ExpiredLicenses: 5, PhoneIssues: 3},
			{State: "NY", TotalRecords: 60, ExpiredLicenses: 1},
		},
	})
	if !strings.Contains(got.Text, "CA has the most with 8 issues") {
		t.Errorf("text = %q", got.Text)
	}
}

func TestFollowUps_AllIntentsCovered(t *testing.T) {
	for _, intent := range nlu.AllIntents() {
		if len(followUps(intent)) == 0 {
			t.Errorf("intent %s has no follow-up suggestions", intent)
		}
	}
}

func TestRenderHistoryTrend(t *testing.T) {
	if got := RenderHistoryTrend([]float64{85}); !strings.Contains(got, "Not enough history") {
		t.Errorf("single point trend = %q", got)
	}
	if got := RenderHistoryTrend([]float64{90, 80}); !strings.Contains(got, "improved from 80.0 to 90.0") {
		t.Errorf("improving trend = %q", got)
	}
	if got := RenderHistoryTrend([]float64{70, 80}); !strings.Contains(got, "dropped from 80.0 to 70.0") {
		t.Errorf("declining trend = %q", got)
	}
	if got := RenderHistoryTrend([]float64{80, 80}); !strings.Contains(got, "holding steady") {
		t.Errorf("flat trend = %q", got)
	}
}

func TestFormatIntentTrace(t *testing.T) {
	got := FormatIntentTrace(nlu.Resolution{
		Intent:  nlu.IntentFilterByExpirationWindow,
		Method:  nlu.MethodRegex,
		Pattern: `(?i)\bfilter\b`,
		Params:  nlu.Params{Days: 30},
	})
	for _, want := range []string{"intent=filter_by_expiration_window", "method=regex", "days=30"} {
		if !strings.Contains(got, want) {
			t.Errorf("trace %q missing %q", got, want)
		}
	}
}
