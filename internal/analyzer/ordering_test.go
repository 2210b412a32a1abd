package analyzer

import (
	"testing"

	"poddigest/internal/repository"
)

func TestOrderByShowSortsAlphabeticalThenByStartSec(t *testing.T) {
	selected := []Candidate{
		{PodcastTitle: "Zebra Cast", StartSec: 10, Score: 50},
		{PodcastTitle: "Alpha Show", StartSec: 20, Score: 90},
		{PodcastTitle: "Alpha Show", StartSec: 5, Score: 60},
	}
	ordered := Order(selected, repository.StructureByShow)
	if ordered[0].PodcastTitle != "Alpha Show" || ordered[0].StartSec != 5 {
		t.Fatalf("expected Alpha Show@5s first, got %+v", ordered[0])
	}
	if ordered[1].PodcastTitle != "Alpha Show" || ordered[1].StartSec != 20 {
		t.Fatalf("expected Alpha Show@20s second, got %+v", ordered[1])
	}
	if ordered[2].PodcastTitle != "Zebra Cast" {
		t.Fatalf("expected Zebra Cast last, got %+v", ordered[2])
	}
}

func TestOrderByTopicMatchesByShowGroupingButSortsByScore(t *testing.T) {
	selected := []Candidate{
		{PodcastTitle: "Alpha Show", StartSec: 20, Score: 60},
		{PodcastTitle: "Alpha Show", StartSec: 5, Score: 90},
	}
	ordered := Order(selected, repository.StructureByTopic)
	if ordered[0].Score != 90 {
		t.Fatalf("expected highest score first within the same show, got %+v", ordered[0])
	}
}

func TestOrderChronologicalSortsByEpisodeThenStartSec(t *testing.T) {
	selected := []Candidate{
		{EpisodeID: 2, StartSec: 5, Score: 10},
		{EpisodeID: 1, StartSec: 20, Score: 99},
		{EpisodeID: 1, StartSec: 5, Score: 1},
	}
	ordered := Order(selected, repository.StructureChronological)
	if ordered[0].EpisodeID != 1 || ordered[0].StartSec != 5 {
		t.Fatalf("expected episode 1 @5s first, got %+v", ordered[0])
	}
	if ordered[2].EpisodeID != 2 {
		t.Fatalf("expected episode 2 last, got %+v", ordered[2])
	}
}

func TestOrderByScoreSortsDescending(t *testing.T) {
	selected := []Candidate{{Score: 10}, {Score: 90}, {Score: 50}}
	ordered := Order(selected, repository.StructureByScore)
	if ordered[0].Score != 90 || ordered[1].Score != 50 || ordered[2].Score != 10 {
		t.Fatalf("expected descending score order, got %+v", ordered)
	}
}
