package roadmapgen

import (
	"strconv"
	"strings"

	"github.com/arahkita/arah-go-api/internal/dto"
)

// BuildPrompt fills the roadmap prompt template from a learner profile.
// Retries reuse the returned string verbatim; the prompt is built once per
// generate call.
func BuildPrompt(profile dto.LearnerProfile) string {
	builder := strings.Builder{}
	builder.WriteString("You are a career mentor. Create a personalized learning roadmap as a single JSON object.\n\n")
	builder.WriteString("## Current status\n")
	builder.WriteString(profile.Status)
	builder.WriteString("\n\n## Existing skills\n")
	if len(profile.Skills) == 0 {
		builder.WriteString("none listed")
	} else {
		builder.WriteString(strings.Join(profile.Skills, ", "))
	}
	builder.WriteString("\n\n## Goals\n")
	builder.WriteString(profile.Goals)
	if profile.HoursPerWeek > 0 {
		builder.WriteString("\n\n## Weekly time budget\n")
		builder.WriteString(strconv.Itoa(profile.HoursPerWeek))
		builder.WriteString(" hours per week")
	}
	builder.WriteString("\n\nReturn only JSON with this shape: ")
	builder.WriteString(`{"title": string, "steps": [{"label": string, "estimated_time": string}], `)
	builder.WriteString(`"skills": [string], "tools": [string], "resources": [{"label": string, "link": string}], "timeline": [string]}`)
	builder.WriteString("\nOrder steps from first to last. Do not include completion state.")
	return builder.String()
}

// BuildAppendPrompt asks for extra personalization steps for an existing plan.
func BuildAppendPrompt(profile dto.LearnerProfile, title string, existing []string) string {
	builder := strings.Builder{}
	builder.WriteString("You are a career mentor. The learner already follows the roadmap \"")
	builder.WriteString(title)
	builder.WriteString("\" with these steps:\n")
	for _, label := range existing {
		builder.WriteString("- ")
		builder.WriteString(label)
		builder.WriteString("\n")
	}
	builder.WriteString("\n## Current status\n")
	builder.WriteString(profile.Status)
	builder.WriteString("\n\n## Goals\n")
	builder.WriteString(profile.Goals)
	builder.WriteString("\n\nSuggest additional steps that personalize this roadmap. Return only JSON: ")
	builder.WriteString(`{"title": string, "steps": [{"label": string, "estimated_time": string}]}`)
	builder.WriteString("\nDo not repeat existing steps. Do not include completion state.")
	return builder.String()
}
