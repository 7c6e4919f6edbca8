package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/truthcheck/truthcheck/internal/config"
	"github.com/truthcheck/truthcheck/internal/model"
)

func sampleVerdict() *model.Verdict {
	return &model.Verdict{
		Claim:      "Water boils at 100 degrees Celsius at sea level",
		Label:      model.VerdictTrue,
		Confidence: 0.91,
		Evidence: []model.EvidenceJudgment{
			{
				Evidence: model.EvidenceItem{
					SourceURL:         "https://en.wikipedia.org/wiki/Boiling_point",
					SourceDomain:      "en.wikipedia.org",
					Snippet:           "At sea level, water boils at 100 degrees Celsius.",
					CredibilityWeight: 0.95,
					SemanticScore:     0.88,
				},
				Results: []model.InferenceResult{
					{ModelID: "hf/roberta", Label: model.LabelEntailment},
				},
				Label:        model.LabelEntailment,
				Score:        0.92,
				Contribution: 1.0,
			},
		},
		Explanation:  "Supported by 1 of 1 evidence items.",
		InvocationID: "test-invocation",
		ElapsedMS:    412,
		CreatedAt:    time.Now(),
	}
}

func TestRenderText(t *testing.T) {
	var b strings.Builder
	renderText(&b, sampleVerdict(), false)
	out := b.String()

	for _, want := range []string{
		"Water boils at 100 degrees Celsius at sea level",
		"Verdict:     TRUE",
		"Confidence:  0.91",
		"en.wikipedia.org",
		"entailment",
		"https://en.wikipedia.org/wiki/Boiling_point",
		"Supported by 1 of 1 evidence items.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Invocation:") {
		t.Error("non-verbose output includes invocation metadata")
	}
	if strings.Contains(out, "(cached)") {
		t.Error("fresh verdict rendered as cached")
	}
}

func TestRenderText_VerboseAndCached(t *testing.T) {
	v := sampleVerdict()
	v.Cached = true

	var b strings.Builder
	renderText(&b, v, true)
	out := b.String()

	for _, want := range []string{"(cached)", "Invocation:  test-invocation", "Elapsed:     412ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("verbose output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	var b strings.Builder
	if err := renderJSON(&b, sampleVerdict()); err != nil {
		t.Fatalf("renderJSON() error = %v", err)
	}

	var decoded model.Verdict
	if err := json.Unmarshal([]byte(b.String()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Label != model.VerdictTrue {
		t.Errorf("decoded label = %q, want %q", decoded.Label, model.VerdictTrue)
	}
	if decoded.Confidence != 0.91 {
		t.Errorf("decoded confidence = %v, want 0.91", decoded.Confidence)
	}
}

func TestClipText(t *testing.T) {
	tests := []struct {
		desc     string
		in       string
		max      int
		expected string
	}{
		{"short text unchanged", "a short claim", 60, "a short claim"},
		{"whitespace collapsed", "spread   \n\t out", 60, "spread out"},
		{"long text trimmed", strings.Repeat("ab ", 30), 10, "ab ab ab a..."},
		{"multibyte safe", strings.Repeat("ü", 12), 10, strings.Repeat("ü", 10) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := clipText(tt.in, tt.max); got != tt.expected {
				t.Errorf("clipText(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.expected)
			}
		})
	}
}

func TestClaimSlug(t *testing.T) {
	a := claimSlug("Water boils at 100 degrees Celsius")
	b := claimSlug("Water boils at 100 degrees Celsius!")

	if a == b {
		t.Error("distinct claims produced the same slug")
	}
	if !strings.HasPrefix(a, "water-boils-at-100-degrees-celsius-") {
		t.Errorf("slug = %q, want readable prefix", a)
	}
	for _, r := range a {
		if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyz0123456789-", r) {
			t.Errorf("slug %q contains unsafe rune %q", a, r)
		}
	}

	if again := claimSlug("Water boils at 100 degrees Celsius"); again != a {
		t.Error("slug is not stable across calls")
	}

	punct := claimSlug("???")
	if !strings.HasPrefix(punct, "claim-") {
		t.Errorf("all-punctuation slug = %q, want claim- fallback", punct)
	}

	long := claimSlug(strings.Repeat("word ", 40))
	if len(long) > 64 {
		t.Errorf("slug length = %d, want capped", len(long))
	}
}

func TestRedactedProviders(t *testing.T) {
	in := map[string]config.ProviderConfig{
		"huggingface": {APIKey: "hf_secret", BaseURL: "https://api-inference.huggingface.co"},
		"ollama":      {BaseURL: "http://localhost:11434"},
	}

	out := redactedProviders(in)

	if out["huggingface"].APIKey != "[redacted]" {
		t.Errorf("APIKey = %q, want redacted", out["huggingface"].APIKey)
	}
	if out["huggingface"].BaseURL != "https://api-inference.huggingface.co" {
		t.Error("BaseURL was not preserved")
	}
	if out["ollama"].APIKey != "" {
		t.Errorf("empty APIKey = %q, want untouched", out["ollama"].APIKey)
	}
	if in["huggingface"].APIKey != "hf_secret" {
		t.Error("input map was mutated")
	}
}
