package assembler

import (
	"math"
	"testing"
)

func TestComputeChaptersMatchesAnalyticalTiming(t *testing.T) {
	// spec scenario: transitionStyle=softFade, N=3 clips [300,240,180]s,
	// narrations [intro 20, t1 30, t2 28, t3 32, outro 18]s, gap=0.6s.
	segments := []playlistSegment{
		{durationSec: 20},
		{durationSec: 30},
		{durationSec: 300, isClip: true, chapterName: "Cast: Ep 1"},
		{durationSec: 28},
		{durationSec: 240, isClip: true, chapterName: "Cast: Ep 2"},
		{durationSec: 32},
		{durationSec: 180, isClip: true, chapterName: "Cast: Ep 3"},
		{durationSec: 18},
	}

	chapters := computeChapters(segments, 0.6, 852.2)
	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(chapters))
	}
	if math.Abs(chapters[0].StartSec-51.2) > 1e-9 {
		t.Fatalf("expected chapter 1 startSec 51.2, got %v", chapters[0].StartSec)
	}
	if chapters[2].EndSec != 852.2 {
		t.Fatalf("expected final chapter endSec clamped to probed duration 852.2, got %v", chapters[2].EndSec)
	}
}

func TestComputeChaptersOnlyEmitsClipSegments(t *testing.T) {
	segments := []playlistSegment{
		{durationSec: 10},
		{durationSec: 5, isClip: true, chapterName: "only clip"},
		{durationSec: 10},
	}
	chapters := computeChapters(segments, 0.5, 0)
	if len(chapters) != 1 {
		t.Fatalf("expected exactly 1 chapter, got %d", len(chapters))
	}
	if chapters[0].Title != "only clip" {
		t.Fatalf("unexpected title %q", chapters[0].Title)
	}
}

func TestTruncateChapterTitleAddsEllipsis(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "x"
	}
	got := truncateChapterTitle(long)
	if len(got) != chapterTitleMaxLen {
		t.Fatalf("expected truncated length %d, got %d", chapterTitleMaxLen, len(got))
	}
	if got[len(got)-3:] != "..." {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}

func TestTruncateChapterTitleLeavesShortTitlesAlone(t *testing.T) {
	short := "Cast: Episode One"
	if got := truncateChapterTitle(short); got != short {
		t.Fatalf("expected unchanged title, got %q", got)
	}
}
