package analyzer

import (
	"fmt"
	"math"
	"sort"

	"poddigest/internal/repository"
)

// clipRange is the [lo,hi] second bound for a clip-length preference.
type clipRange struct{ lo, hi float64 }

var clipRangesByPreference = map[repository.ClipLengthPreference]clipRange{
	repository.ClipLengthShort:  {120, 240},
	repository.ClipLengthMedium: {240, 480},
	repository.ClipLengthLong:   {480, 900},
	repository.ClipLengthMixed:  {120, 900},
}

// SelectionParams is the deterministic selection algorithm's derived bounds.
type SelectionParams struct {
	AvailableContentSec float64
	EffectiveMin        float64
	EffectiveMax        float64
	MaxClipsPerEpisode  int
}

// DeriveSelectionParams computes the selection bounds from a digest config,
// per spec.md §4.F.
func DeriveSelectionParams(cfg *repository.DigestConfig) SelectionParams {
	targetSec := float64(cfg.TargetLengthMinutes) * 60
	availableContent := 0.85 * targetSec

	r, ok := clipRangesByPreference[cfg.ClipLengthPreference]
	if !ok {
		r = clipRangesByPreference[repository.ClipLengthMedium]
	}
	spread := r.hi - r.lo
	b := float64(cfg.BreadthDepth) / 100

	return SelectionParams{
		AvailableContentSec: availableContent,
		EffectiveMin:        r.lo + b*spread*0.3,
		EffectiveMax:        r.hi - (1-b)*spread*0.3,
		MaxClipsPerEpisode:  int(math.Max(1, math.Round(1+4*b))),
	}
}

// Select sorts a copy of candidates by score descending (ties: startSec
// ascending, then episodeId lexicographic), runs the deterministic iteration
// from spec.md §4.F over it, and returns the chosen subset in that order.
func Select(candidates []Candidate, params SelectionParams) []Candidate {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		if ordered[i].StartSec != ordered[j].StartSec {
			return ordered[i].StartSec < ordered[j].StartSec
		}
		return fmt.Sprintf("%d", ordered[i].EpisodeID) < fmt.Sprintf("%d", ordered[j].EpisodeID)
	})

	minDuration := 0.7 * params.EffectiveMin
	maxDuration := 1.3 * params.EffectiveMax

	var (
		selected     []Candidate
		runningTotal float64
		perEpisode   = map[int64]int{}
		chosenSpans  = map[int64][][2]float64{}
	)

	for _, cand := range ordered {
		if runningTotal >= params.AvailableContentSec {
			break
		}
		duration := cand.Duration()
		if duration < minDuration || duration > maxDuration {
			continue
		}
		if runningTotal+duration > params.AvailableContentSec {
			continue
		}
		if perEpisode[cand.EpisodeID] >= params.MaxClipsPerEpisode {
			continue
		}
		if overlapsAny(chosenSpans[cand.EpisodeID], cand.StartSec, cand.EndSec) {
			continue
		}

		selected = append(selected, cand)
		runningTotal += duration
		perEpisode[cand.EpisodeID]++
		chosenSpans[cand.EpisodeID] = append(chosenSpans[cand.EpisodeID], [2]float64{cand.StartSec, cand.EndSec})
	}

	return selected
}

func overlapsAny(spans [][2]float64, start, end float64) bool {
	for _, span := range spans {
		if start < span[1] && span[0] < end {
			return true
		}
	}
	return false
}
