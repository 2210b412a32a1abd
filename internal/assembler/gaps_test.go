package assembler

import (
	"testing"

	"poddigest/internal/repository"
)

func TestGapDurationSilence(t *testing.T) {
	if got := gapDuration(repository.TransitionSilence); got != 0.5 {
		t.Fatalf("expected 0.5s silence gap, got %v", got)
	}
}

func TestGapDurationBumperStyles(t *testing.T) {
	for _, style := range []repository.TransitionStyle{
		repository.TransitionStinger,
		repository.TransitionSoftFade,
		repository.TransitionWhoosh,
	} {
		if got := gapDuration(style); got != 0.6 {
			t.Fatalf("expected 0.6s bumper gap for %q, got %v", style, got)
		}
	}
}
