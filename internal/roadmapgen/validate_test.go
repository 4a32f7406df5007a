package roadmapgen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, payload string) interface{} {
	t.Helper()
	var value interface{}
	require.NoError(t, json.Unmarshal([]byte(payload), &value))
	return value
}

func TestValidateDraftAcceptsStringItems(t *testing.T) {
	draft, err := ValidateDraft(decode(t, `{"title":"X","steps":["Learn Y"]}`))
	require.NoError(t, err)
	require.Equal(t, "X", draft.Title)
	require.Len(t, draft.Steps, 1)
	require.Equal(t, "Learn Y", draft.Steps[0].Label)
}

func TestValidateDraftAcceptsObjectItems(t *testing.T) {
	draft, err := ValidateDraft(decode(t, `{
		"title": "Backend path",
		"steps": [{"label": "Learn SQL", "estimated_time": "2 weeks"}],
		"resources": [{"name": "Go book", "link": "https://example.com"}]
	}`))
	require.NoError(t, err)
	require.Equal(t, "Learn SQL", draft.Steps[0].Label)
	require.Equal(t, "2 weeks", draft.Steps[0].EstimatedTime)
	require.Equal(t, "Go book", draft.Resources[0].Label)
	require.Equal(t, "https://example.com", draft.Resources[0].Link)
}

func TestValidateDraftRejectsEmptyTitleAndSteps(t *testing.T) {
	_, err := ValidateDraft(decode(t, `{"title":"","steps":[]}`))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, "title", schemaErr.Field)

	_, err = ValidateDraft(decode(t, `{"title":"X","steps":[]}`))
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, "steps", schemaErr.Field)
}

func TestValidateDraftRejectsMissingSteps(t *testing.T) {
	_, err := ValidateDraft(decode(t, `{"title":"X"}`))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, "steps", schemaErr.Field)
}

func TestValidateDraftNamesFirstBadItem(t *testing.T) {
	_, err := ValidateDraft(decode(t, `{"title":"X","steps":["ok",{"note":"missing label"}]}`))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, "steps[1].label", schemaErr.Field)
}

func TestValidateDraftDropsUnknownKeysSilently(t *testing.T) {
	draft, err := ValidateDraft(decode(t, `{
		"title": "X",
		"steps": [{"label": "A", "completed": true, "confidence": 0.9}],
		"model_version": "v99"
	}`))
	require.NoError(t, err)
	require.Len(t, draft.Steps, 1)
	require.Equal(t, "A", draft.Steps[0].Label)
}

func TestValidateDraftRejectsNonObjectRoot(t *testing.T) {
	_, err := ValidateDraft(decode(t, `["just","a","list"]`))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}

func TestValidateDraftOptionalSections(t *testing.T) {
	draft, err := ValidateDraft(decode(t, `{
		"title": "Full",
		"steps": ["A"],
		"skills": ["Go"],
		"tools": ["Docker"],
		"timeline": ["Month 1: basics"]
	}`))
	require.NoError(t, err)
	require.Equal(t, 4, len(draft.Steps)+len(draft.Skills)+len(draft.Tools)+len(draft.Timeline))
}
