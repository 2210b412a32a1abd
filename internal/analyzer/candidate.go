// Package analyzer implements the scoring and selection engine: it builds
// candidate transcript regions, scores them along five weighted dimensions
// via an LLM, and deterministically selects and orders the clips that make
// up a digest.
package analyzer

import (
	"fmt"

	"poddigest/internal/repository"
)

// Candidate is a scored transcript region considered for selection.
type Candidate struct {
	EpisodeID    int64
	PodcastTitle string
	StartSec     float64
	EndSec       float64
	Score        float64
	Dimensions   repository.ScoreDimensions
}

// Duration returns the candidate's span in seconds.
func (c Candidate) Duration() float64 {
	return c.EndSec - c.StartSec
}

const (
	windowLengthSec = 180
	windowStepSec   = 90
	scoreThreshold  = 40
)

// slidingWindows generates overlapping candidate windows [start, end) for a
// transcript of the given total duration, per spec's W=180s/S=90s strategy.
func slidingWindows(totalDurationSec float64) [][2]float64 {
	if totalDurationSec <= 0 {
		return nil
	}
	var windows [][2]float64
	for start := 0.0; start < totalDurationSec; start += windowStepSec {
		end := start + windowLengthSec
		if end > totalDurationSec {
			end = totalDurationSec
		}
		if end-start < 1 {
			break
		}
		windows = append(windows, [2]float64{start, end})
		if end == totalDurationSec {
			break
		}
	}
	return windows
}

// scoreOf computes score = Σ weight_i × dim_i with each dimension clamped to
// [0,100] first.
func scoreOf(d repository.ScoreDimensions) float64 {
	clamp := func(v int) float64 {
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return float64(v)
	}
	return 0.25*clamp(d.InsightDensity) +
		0.20*clamp(d.EmotionalIntensity) +
		0.20*clamp(d.Actionability) +
		0.20*clamp(d.TopicalRelevance) +
		0.15*clamp(d.ConversationalQuality)
}

func windowTranscriptExcerpt(transcript *repository.Transcript, startSec, endSec float64) string {
	excerpt := ""
	for _, seg := range transcript.Segments {
		if seg.EndSec < startSec || seg.StartSec > endSec {
			continue
		}
		excerpt += fmt.Sprintf("[%.1f-%.1f] %s: %s\n", seg.StartSec, seg.EndSec, seg.SpeakerTag, seg.Text)
	}
	return excerpt
}
