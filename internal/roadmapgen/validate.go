package roadmapgen

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/arahkita/arah-go-api/internal/dto"
)

// SchemaError names the first missing or malformed required field.
type SchemaError struct {
	Field string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema invalid: %s", e.Field)
}

// draftSchema is the structural gate applied before normalization. It is
// deliberately permissive about item shape; the coercion rules below decide
// what an item means.
const draftSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"steps": {"type": "array"},
		"skills": {"type": "array"},
		"tools": {"type": "array"},
		"resources": {"type": "array"},
		"timeline": {"type": "array"}
	},
	"required": ["title"]
}`

var compiledDraftSchema = jsonschema.MustCompileString("roadmap-draft.json", draftSchema)

// ValidateDraft normalizes a parsed generation payload into a RoadmapDraft or
// returns a SchemaError naming the first offending field. Normalization:
// items given as a string or as an object with label/name coerce to a labeled
// item; completed never survives from the payload; unknown keys are dropped
// silently, never failed on.
func ValidateDraft(value interface{}) (dto.RoadmapDraft, error) {
	if err := compiledDraftSchema.Validate(value); err != nil {
		return dto.RoadmapDraft{}, &SchemaError{Field: schemaErrorField(err)}
	}

	payload, ok := value.(map[string]interface{})
	if !ok {
		return dto.RoadmapDraft{}, &SchemaError{Field: "(root)"}
	}

	title, _ := payload["title"].(string)
	title = strings.TrimSpace(title)
	if title == "" {
		return dto.RoadmapDraft{}, &SchemaError{Field: "title"}
	}

	draft := dto.RoadmapDraft{Title: title}

	steps, err := coerceItems(payload["steps"], "steps")
	if err != nil {
		return dto.RoadmapDraft{}, err
	}
	if len(steps) == 0 {
		return dto.RoadmapDraft{}, &SchemaError{Field: "steps"}
	}
	draft.Steps = steps

	for _, section := range []struct {
		key  string
		dest *[]dto.DraftItem
	}{
		{"skills", &draft.Skills},
		{"tools", &draft.Tools},
		{"resources", &draft.Resources},
		{"timeline", &draft.Timeline},
	} {
		raw, present := payload[section.key]
		if !present {
			continue
		}
		items, err := coerceItems(raw, section.key)
		if err != nil {
			return dto.RoadmapDraft{}, err
		}
		*section.dest = items
	}

	return draft, nil
}

func coerceItems(raw interface{}, field string) ([]dto.DraftItem, error) {
	if raw == nil {
		return nil, nil
	}

	list, ok := raw.([]interface{})
	if !ok {
		return nil, &SchemaError{Field: field}
	}

	items := make([]dto.DraftItem, 0, len(list))
	for i, entry := range list {
		item, err := coerceItem(entry, fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func coerceItem(entry interface{}, field string) (dto.DraftItem, error) {
	switch v := entry.(type) {
	case string:
		label := strings.TrimSpace(v)
		if label == "" {
			return dto.DraftItem{}, &SchemaError{Field: field}
		}
		return dto.DraftItem{Label: label}, nil
	case map[string]interface{}:
		label := firstString(v, "label", "name")
		if label == "" {
			return dto.DraftItem{}, &SchemaError{Field: field + ".label"}
		}
		return dto.DraftItem{
			Label:         label,
			Link:          firstString(v, "link", "url"),
			EstimatedTime: firstString(v, "estimated_time", "duration"),
		}, nil
	default:
		return dto.DraftItem{}, &SchemaError{Field: field}
	}
}

func firstString(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if value, ok := obj[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func schemaErrorField(err error) string {
	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return "(root)"
	}

	leaf := validationErr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}

	location := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if location == "" {
		// Missing required properties report at the root; pull the
		// property name out of the message when possible.
		if strings.Contains(leaf.Message, "'title'") {
			return "title"
		}
		return "(root)"
	}
	return strings.ReplaceAll(location, "/", ".")
}
