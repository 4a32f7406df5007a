package roadmapgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromMarkdownFence(t *testing.T) {
	raw := "Sure! ```json\n{\"title\":\"X\",\"steps\":[{\"step\":\"A\"}]}\n```"
	payload, err := ExtractJSON(raw, true)
	require.NoError(t, err)
	require.Equal(t, `{"title":"X","steps":[{"step":"A"}]}`, payload)
}

func TestExtractJSONNoBraces(t *testing.T) {
	_, err := ExtractJSON("I could not produce a roadmap, sorry.", true)
	require.ErrorIs(t, err, ErrNoJSONFound)
}

func TestExtractJSONPrefersObjectWhenExpected(t *testing.T) {
	raw := `Here is a list [1,2,3] and the plan {"title":"Go"} as requested.`
	payload, err := ExtractJSON(raw, true)
	require.NoError(t, err)
	require.Equal(t, `{"title":"Go"}`, payload)
}

func TestExtractJSONTakesEarliestWhenNoPreference(t *testing.T) {
	raw := `list [1,2,3] then {"title":"Go"}`
	payload, err := ExtractJSON(raw, false)
	require.NoError(t, err)
	require.Equal(t, `[1,2,3]`, payload)
}

func TestExtractJSONOutermostPairWins(t *testing.T) {
	raw := `prose {"outer":{"inner":true},"more":[1]} trailing {"second":1}`
	payload, err := ExtractJSON(raw, true)
	require.NoError(t, err)
	require.Equal(t, `{"outer":{"inner":true},"more":[1]}`, payload)
}

func TestExtractJSONIgnoresBracesInsideStrings(t *testing.T) {
	raw := `{"label":"use {curly} braces","done":false}`
	payload, err := ExtractJSON(raw, true)
	require.NoError(t, err)
	require.Equal(t, raw, payload)
}

func TestExtractJSONSkipsUnbalancedCandidate(t *testing.T) {
	raw := "broken { fragment without close... but later {\"ok\":true}"
	payload, err := ExtractJSON(raw, true)
	require.NoError(t, err)
	require.Equal(t, `{"ok":true}`, payload)
}
