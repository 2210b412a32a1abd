package assembler

import (
	"fmt"

	"poddigest/internal/repository"
)

const chapterTitleMaxLen = 80

// playlistSegment is one entry in the ordered intro/transition/clip/outro
// sequence, carrying enough metadata to compute chapter timings.
type playlistSegment struct {
	path        string
	durationSec float64
	isClip      bool
	chapterName string
}

// computeChapters walks the segment sequence, summing durations and the
// fixed inter-segment gap to derive each clip's analytical start/end time.
// Only clip segments become chapters; the final chapter's endSec is then
// clamped to the probed rendered duration.
func computeChapters(segments []playlistSegment, gapSeconds, probedDurationSec float64) []repository.Chapter {
	chapters := make([]repository.Chapter, 0, len(segments))
	cursor := 0.0
	for i, seg := range segments {
		if seg.isClip {
			chapters = append(chapters, repository.Chapter{
				Title:    truncateChapterTitle(seg.chapterName),
				StartSec: cursor,
				EndSec:   cursor + seg.durationSec,
			})
		}
		cursor += seg.durationSec
		if i < len(segments)-1 {
			cursor += gapSeconds
		}
	}

	if len(chapters) > 0 && probedDurationSec > 0 {
		chapters[len(chapters)-1].EndSec = probedDurationSec
	}
	return chapters
}

func truncateChapterTitle(title string) string {
	if len(title) <= chapterTitleMaxLen {
		return title
	}
	const ellipsis = "..."
	cut := chapterTitleMaxLen - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	return title[:cut] + ellipsis
}

func chapterTitleFor(podcastTitle, episodeTitle string) string {
	return fmt.Sprintf("%s: %s", podcastTitle, episodeTitle)
}
