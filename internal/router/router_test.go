package router

import (
	"testing"

	"github.com/fibreflow/workforce/internal/config"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	return New(config.DefaultRoster(), 2)
}

func TestRoute_KeywordMatching(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"database query", "Run a SQL query against the tickets table", "database"},
		{"postgres mention", "Why is postgres slow on Neon today", "database"},
		{"docker restart", "Restart the docker container on the VPS", "deployment"},
		{"nginx config", "The nginx config rejects uploads, fix the deployment", "deployment"},
		{"qfield sync", "QFieldCloud sync is failing for the field technician", "fieldops"},
		{"qgis image", "The QGIS processing image disappeared again", "fieldops"},
		{"whatsapp down", "The whatsapp bridge is down, check uptime", "monitoring"},
		{"incident triage", "Triage the outage incident from last night's logs", "monitoring"},
		{"runbook question", "Where is the runbook for onboarding", "runbook"},
	}

	r := newTestRouter(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Route(tt.text)
			if err != nil {
				t.Fatalf("Route(%q) error = %v", tt.text, err)
			}
			if got.Agent != tt.want {
				t.Errorf("Route(%q) = %q (score %d, matched %v), want %q",
					tt.text, got.Agent, got.Score, got.Matched, tt.want)
			}
			if got.Fallback {
				t.Errorf("Route(%q) unexpectedly fell back", tt.text)
			}
		})
	}
}

func TestRoute_PhraseBeatsKeyword(t *testing.T) {
	r := newTestRouter(t)

	// "project" alone is a weak fieldops keyword, but the phrase
	// "project sync" is a strong one.
	got, err := r.Route("the project sync looks stuck")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if got.Agent != "fieldops" {
		t.Errorf("Route() = %q, want fieldops", got.Agent)
	}
	if got.Score < 5 {
		t.Errorf("phrase match score = %d, want >= 5", got.Score)
	}
}

func TestRoute_Fallback(t *testing.T) {
	r := newTestRouter(t)

	got, err := r.Route("hello there, what can you do")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if got.Agent != "runbook" {
		t.Errorf("Route() = %q, want runbook fallback", got.Agent)
	}
	if !got.Fallback {
		t.Error("Fallback = false, want true")
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0 on fallback", got.Confidence)
	}
}

func TestRoute_EmptyText(t *testing.T) {
	r := newTestRouter(t)

	if _, err := r.Route(""); err == nil {
		t.Error("expected error for empty request")
	}
	if _, err := r.Route("   \t  "); err == nil {
		t.Error("expected error for whitespace request")
	}
}

func TestRoute_Override(t *testing.T) {
	r := newTestRouter(t)

	got, err := r.Route("@monitoring: check the database health")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if got.Agent != "monitoring" {
		t.Errorf("Route() = %q, want monitoring (override)", got.Agent)
	}
	if !got.Override {
		t.Error("Override = false, want true")
	}
}

func TestRoute_OverrideUnknownAgent(t *testing.T) {
	r := newTestRouter(t)

	if _, err := r.Route("@billing: check invoices"); err == nil {
		t.Error("expected error for unknown @agent override")
	}
}

func TestRoute_OverrideEmptyRest(t *testing.T) {
	r := newTestRouter(t)

	if _, err := r.Route("@database:   "); err == nil {
		t.Error("expected error for empty text after override")
	}
}

func TestRoute_Deterministic(t *testing.T) {
	r := newTestRouter(t)
	text := "check the docker container running the whatsapp bridge"

	first, err := r.Route(text)
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := r.Route(text)
		if err != nil {
			t.Fatalf("Route() error = %v", err)
		}
		if got.Agent != first.Agent || got.Score != first.Score {
			t.Fatalf("routing not deterministic: %q/%d vs %q/%d",
				got.Agent, got.Score, first.Agent, first.Score)
		}
	}
}

func TestRoute_CaseAndPunctuationInsensitive(t *testing.T) {
	r := newTestRouter(t)

	a, err := r.Route("restart NGINX on the vps!")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	b, err := r.Route("Restart nginx, on the VPS.")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if a.Agent != b.Agent || a.Score != b.Score {
		t.Errorf("normalization mismatch: %q/%d vs %q/%d", a.Agent, a.Score, b.Agent, b.Score)
	}
}

func TestRoute_ConfidenceMargin(t *testing.T) {
	r := newTestRouter(t)

	// Strong single-domain request: large margin, high confidence.
	strong, err := r.Route("qfieldcloud qgis sync for the field technician")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	// Mixed-domain request: smaller margin.
	mixed, err := r.Route("docker logs show the whatsapp monitor is down")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	if strong.Confidence <= mixed.Confidence {
		t.Errorf("confidence ordering wrong: strong=%v mixed=%v", strong.Confidence, mixed.Confidence)
	}
	if strong.Confidence < 0 || strong.Confidence > 1 {
		t.Errorf("confidence out of range: %v", strong.Confidence)
	}
}

func TestParseOverride(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantName string
		wantOK   bool
	}{
		{"valid", "@database: run query", "database", true},
		{"no prefix", "database: run query", "", false},
		{"no colon", "@database run query", "", false},
		{"empty name", "@: run query", "", false},
		{"space in name", "@data base: run query", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, _, ok := parseOverride(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("parseOverride(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && name != tt.wantName {
				t.Errorf("parseOverride(%q) name = %q, want %q", tt.text, name, tt.wantName)
			}
		})
	}
}
