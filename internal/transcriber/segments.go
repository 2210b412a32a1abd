package transcriber

import (
	"strings"

	"poddigest/internal/repository"
)

// normalizeSegments applies the three segmentation strategies in priority
// order, keeping the first that yields at least one segment.
func normalizeSegments(t *transcription) []repository.Segment {
	if segs := segmentsFromUtterances(t.Utterances); len(segs) > 0 {
		return segs
	}
	if segs := segmentsFromParagraphs(t.Paragraphs); len(segs) > 0 {
		return segs
	}
	return segmentsFromWords(t.Words)
}

func segmentsFromUtterances(utterances []providerUtterance) []repository.Segment {
	segments := make([]repository.Segment, 0, len(utterances))
	for _, u := range utterances {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		segments = append(segments, repository.Segment{
			StartSec:   u.Start,
			EndSec:     u.End,
			SpeakerTag: u.Speaker,
			Text:       text,
		})
	}
	return segments
}

// Paragraph groupings carry no per-paragraph speaker attribution.
func segmentsFromParagraphs(paragraphs []providerParagraph) []repository.Segment {
	segments := make([]repository.Segment, 0, len(paragraphs))
	for _, p := range paragraphs {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		segments = append(segments, repository.Segment{
			StartSec: p.Start,
			EndSec:   p.End,
			Text:     text,
		})
	}
	return segments
}

// segmentsFromWords is the fallback strategy: coalesce consecutive words
// sharing the same speaker tag into one segment.
func segmentsFromWords(words []providerWord) []repository.Segment {
	var segments []repository.Segment
	var current *repository.Segment
	var builder strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(builder.String())
		if current.Text != "" {
			segments = append(segments, *current)
		}
		current = nil
		builder.Reset()
	}

	for _, w := range words {
		word := strings.TrimSpace(w.Text)
		if word == "" {
			continue
		}
		if current == nil || current.SpeakerTag != w.Speaker {
			flush()
			current = &repository.Segment{StartSec: w.Start, EndSec: w.End, SpeakerTag: w.Speaker}
		}
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(word)
		current.EndSec = w.End
	}
	flush()

	return segments
}
