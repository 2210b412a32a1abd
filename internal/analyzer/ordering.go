package analyzer

import (
	"sort"

	"poddigest/internal/repository"
)

// Order arranges the selected clip set per the digest's structure preference,
// returning the final DigestClip.position order. byTopic groups by podcast
// title like byShow but sorts within a show by score, standing in for real
// topic clustering per spec.md §9's open question.
func Order(selected []Candidate, structure repository.DigestStructure) []Candidate {
	ordered := make([]Candidate, len(selected))
	copy(ordered, selected)

	switch structure {
	case repository.StructureByShow:
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].PodcastTitle != ordered[j].PodcastTitle {
				return ordered[i].PodcastTitle < ordered[j].PodcastTitle
			}
			return ordered[i].StartSec < ordered[j].StartSec
		})
	case repository.StructureByTopic:
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].PodcastTitle != ordered[j].PodcastTitle {
				return ordered[i].PodcastTitle < ordered[j].PodcastTitle
			}
			return ordered[i].Score > ordered[j].Score
		})
	case repository.StructureChronological:
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].EpisodeID != ordered[j].EpisodeID {
				return ordered[i].EpisodeID < ordered[j].EpisodeID
			}
			return ordered[i].StartSec < ordered[j].StartSec
		})
	case repository.StructureByScore:
		fallthrough
	default:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Score > ordered[j].Score
		})
	}

	return ordered
}
