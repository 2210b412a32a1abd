package narrator

import (
	"fmt"
	"strings"

	"poddigest/internal/repository"
)

// scriptDelimiter separates the N+2 scripts in the LLM's single response.
const scriptDelimiter = "|||SCRIPT|||"

type depthGuidance struct {
	Intro      string
	Transition string
	Outro      string
}

var depthGuidances = map[repository.NarrationDepth]depthGuidance{
	repository.NarrationBrief: {
		Intro:      "2-3 sentences",
		Transition: "1-2 sentences, about 15 seconds spoken",
		Outro:      "1-2 sentences",
	},
	repository.NarrationStandard: {
		Intro:      "4-6 sentences",
		Transition: "2-4 sentences, about 30 seconds spoken",
		Outro:      "2-4 sentences",
	},
	repository.NarrationDetailed: {
		Intro:      "6-8 sentences",
		Transition: "4-6 sentences, about 45 seconds spoken",
		Outro:      "4-6 sentences",
	},
}

// clipSummary is what the script prompt tells the model about one clip, in
// its final assembled order.
type clipSummary struct {
	Index        int
	PodcastTitle string
	EpisodeTitle string
	Excerpt      string
}

func buildScriptPrompt(clips []clipSummary, depth repository.NarrationDepth) (systemPrompt, userPrompt string) {
	guidance, ok := depthGuidances[depth]
	if !ok {
		guidance = depthGuidances[repository.NarrationStandard]
	}

	systemPrompt = fmt.Sprintf(
		"You write narration scripts for a personalized podcast digest. "+
			"Produce exactly %d scripts in this order: one intro, then one transition before each clip, then one outro. "+
			"Intro: %s. Each transition: %s. Outro: %s. "+
			"Separate the scripts with the exact delimiter %q on its own line and nothing else. "+
			"Do not number the scripts or add any other commentary.",
		len(clips)+2, guidance.Intro, guidance.Transition, guidance.Outro, scriptDelimiter,
	)

	var b strings.Builder
	b.WriteString("Clips in final order:\n")
	for _, c := range clips {
		fmt.Fprintf(&b, "%d. %s — %q: %s\n", c.Index+1, c.PodcastTitle, c.EpisodeTitle, c.Excerpt)
	}
	userPrompt = b.String()
	return systemPrompt, userPrompt
}

// splitScripts validates that raw contains exactly want non-empty,
// delimiter-separated parts and returns them trimmed.
func splitScripts(raw string, want int) ([]string, error) {
	parts := strings.Split(raw, scriptDelimiter)
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			trimmed = append(trimmed, p)
		}
	}
	if len(trimmed) != want {
		return nil, fmt.Errorf("expected %d non-empty scripts, got %d", want, len(trimmed))
	}
	return trimmed, nil
}
