package morphology

import (
	"errors"
	"testing"

	"morphofit/internal/body"
)

func chain(t *testing.T, kinds ...string) *body.Body {
	t.Helper()
	b := body.New()
	var parent body.Part = b.Core
	for _, kind := range kinds {
		var p body.Part
		switch kind {
		case "h":
			p = body.NewActiveHinge(0)
		case "b":
			p = body.NewBrick(0)
		case "l":
			p = body.NewBrickLarge(0, 0.2)
		default:
			t.Fatalf("unknown kind %q", kind)
		}
		if err := parent.Attach(0, p); err != nil {
			t.Fatalf("attach %s: %v", kind, err)
		}
		parent = p
	}
	return b
}

func TestAnalyzeCountsStructuralPartsWithoutCore(t *testing.T) {
	b := chain(t, "h", "b", "h", "l", "h", "b")
	summary, err := Analyze(b)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if summary.Actuators != 3 || summary.StructuralParts != 6 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestAnalyzeBareCore(t *testing.T) {
	summary, err := Analyze(body.New())
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if summary != (Summary{}) {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}

func TestAnalyzeRejectsMissingCore(t *testing.T) {
	if _, err := Analyze(&body.Body{}); !errors.Is(err, ErrNoCore) {
		t.Fatalf("expected missing core error, got %v", err)
	}
	if _, err := Analyze(nil); !errors.Is(err, ErrNoCore) {
		t.Fatalf("expected missing core error, got %v", err)
	}
}

func TestActuationRatio(t *testing.T) {
	cfg := DefaultRatioConfig()
	cases := []struct {
		name    string
		summary Summary
		want    float64
	}{
		{name: "empty body falls back", summary: Summary{}, want: 0.5},
		{name: "at baseline falls back", summary: Summary{Actuators: 4, StructuralParts: 4}, want: 0.5},
		{name: "one beyond baseline", summary: Summary{Actuators: 1, StructuralParts: 5}, want: 1},
		{name: "balanced", summary: Summary{Actuators: 3, StructuralParts: 10}, want: 0.5},
		{name: "no actuators", summary: Summary{Actuators: 0, StructuralParts: 9}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ActuationRatio(tc.summary, cfg); got != tc.want {
				t.Fatalf("unexpected ratio: got=%f want=%f", got, tc.want)
			}
		})
	}
}

func TestActuationRatioConfigurableBaseline(t *testing.T) {
	cfg := RatioConfig{BaselineParts: 0, FallbackRatio: 0.25, Epsilon: 1e-9}
	if got := ActuationRatio(Summary{Actuators: 2, StructuralParts: 4}, cfg); got != 0.5 {
		t.Fatalf("unexpected ratio with zero baseline: %f", got)
	}
	if got := ActuationRatio(Summary{}, cfg); got != 0.25 {
		t.Fatalf("unexpected fallback: %f", got)
	}
}

func TestActuationRatioNeverDividesByZero(t *testing.T) {
	cfg := RatioConfig{BaselineParts: 2, FallbackRatio: 0.5}
	got := ActuationRatio(Summary{Actuators: 1, StructuralParts: 3}, cfg)
	if got != 1 {
		t.Fatalf("unexpected ratio with default epsilon: %f", got)
	}
}

func TestRatioConfigValidate(t *testing.T) {
	if err := DefaultRatioConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := []RatioConfig{
		{BaselineParts: -1, FallbackRatio: 0.5, Epsilon: 1e-9},
		{BaselineParts: 4, FallbackRatio: -0.5, Epsilon: 1e-9},
		{BaselineParts: 4, FallbackRatio: 0.5, Epsilon: 0},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected invalid config at index %d", i)
		}
	}
}
