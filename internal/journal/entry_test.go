package journal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_UnmarshalDayOneShape(t *testing.T) {
	raw := `{
		"uuid": "A1",
		"creationDate": "2024-05-01T08:00:00Z",
		"modifiedDate": "2024-05-02T09:30:00Z",
		"text": "# Morning walk\n\nSome body",
		"tags": ["walk", "spring"],
		"journalName": "Blog Public",
		"photos": [{"identifier": "P1", "md5": "abc", "type": "jpeg", "width": 800, "height": 600}],
		"location": {"placeName": "Park", "latitude": 1.5, "longitude": 2.5},
		"weather": {"conditionsDescription": "Sunny", "temperatureCelsius": 21},
		"richText": "{ignored}"
	}`

	var e Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &e))

	assert.Equal(t, "A1", e.UUID)
	assert.Equal(t, "Blog Public", e.Journal)
	assert.Equal(t, []string{"walk", "spring"}, e.Tags)
	require.Len(t, e.Attachments, 1)
	assert.Equal(t, "P1", e.Attachments[0].Identifier)
	assert.Equal(t, 800, e.Attachments[0].Width)
	require.NotNil(t, e.Location)
	assert.Equal(t, "Park", e.Location.PlaceName)
	require.NotNil(t, e.Weather)
	assert.Equal(t, "Sunny", e.Weather.ConditionsDescription)
	assert.Equal(t, "Morning walk", e.DisplayTitle())
}

func TestEntry_JournalFieldWinsOverJournalName(t *testing.T) {
	var e Entry
	require.NoError(t, json.Unmarshal([]byte(`{"uuid":"x","journal":"A","journalName":"B"}`), &e))
	assert.Equal(t, "A", e.Journal)
}

func TestEntry_ExplicitAttachmentsAreKept(t *testing.T) {
	var e Entry
	require.NoError(t, json.Unmarshal([]byte(`{"uuid":"x","attachments":[{"identifier":"A"}],"photos":[{"identifier":"P"}]}`), &e))
	require.Len(t, e.Attachments, 1)
	assert.Equal(t, "A", e.Attachments[0].Identifier)
}

func TestEntry_EffectiveModifiedFallsBackToCreation(t *testing.T) {
	var e Entry
	require.NoError(t, json.Unmarshal([]byte(`{"uuid":"x","creationDate":"2024-01-01T00:00:00Z"}`), &e))
	assert.True(t, e.EffectiveModified().Equal(e.CreationDate))
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "Explicit", Entry{Title: " Explicit ", Text: "body"}.DisplayTitle())
	assert.Equal(t, "Second", Entry{Text: "\n\n## Second\nthird"}.DisplayTitle())
	assert.Equal(t, "", Entry{}.DisplayTitle())
}

func TestRefsAndIndex(t *testing.T) {
	entries := []Entry{{UUID: "a", Title: "A"}, {UUID: "b", Text: "B line"}}

	refs := Refs(entries)
	require.Len(t, refs, 2)
	assert.Equal(t, "B line", refs[1].Title)

	idx := Index(entries)
	assert.Len(t, idx, 2)
	assert.Equal(t, "A", idx["a"].Title)
}
