package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
  "name": "Main loom",
  "canvas": {"zoom": 1.5, "offset": [10, -4]},
  "connectors": [
    {"id": "J1", "label": "Power", "position": {"x": 12, "y": 40},
     "pins": [{"id": "p1", "number": 1, "label": "VCC"}, {"id": "p2", "number": 2}]}
  ],
  "cables": [{"id": "W1", "label": "Power cable", "wires": [{"id": "w1", "color": "red"}]}],
  "components": [{"id": "R1", "label": "Resistor", "pinGroups": [{"id": "g1", "name": "A", "pins": [{"id": "a"}]}]}],
  "subHarnesses": [{"id": "inst-1", "harnessId": "h-child", "rotation": 90}],
  "connections": [
    {"id": "c1", "from": {"connectorId": "J1", "pinId": "p1"}, "to": {"cableId": "W1", "wireId": "w1", "side": "A"}, "waypoints": [[1, 2]]},
    {"id": "c2", "from": {"subHarnessId": "inst-1", "connectorId": "J9"}, "to": {"componentId": "R1", "pinId": "a"}}
  ]
}`

func TestParseDocumentTypedVariants(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, "Main loom", doc.Name)
	require.Len(t, doc.Connectors, 1)
	assert.Equal(t, "J1", doc.Connectors[0].ID)
	require.Len(t, doc.Connectors[0].Pins, 2)
	assert.Equal(t, "VCC", doc.Connectors[0].Pins[0].Label)
	assert.Contains(t, doc.Connectors[0].Extra, "position")

	require.Len(t, doc.Connections, 2)
	assert.Equal(t, EndpointConnector, doc.Connections[0].From.Kind())
	assert.Equal(t, EndpointCable, doc.Connections[0].To.Kind())
	assert.Equal(t, EndpointSubHarness, doc.Connections[1].From.Kind())
	assert.Equal(t, EndpointComponent, doc.Connections[1].To.Kind())

	assert.Contains(t, doc.Extra, "canvas")
	assert.Equal(t, []string{"h-child"}, doc.SubHarnessTargets())
}

func TestDocumentRoundTripPreservesUnknownMembers(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)

	want, err := MarshalCanonical(json.RawMessage(sampleDocument))
	require.NoError(t, err)
	got, err := MarshalCanonical(doc)
	require.NoError(t, err)

	assert.Equal(t, string(want), string(got))
}

func TestDocumentCollectionPresence(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"name": "x", "connectors": [], "cables": "oops"}`))
	require.NoError(t, err)

	assert.NotNil(t, doc.Connectors, "present empty collection stays non-nil")
	assert.Empty(t, doc.Connectors)
	assert.Nil(t, doc.Cables, "non-array member decodes to nil")
	assert.Nil(t, doc.Connections, "absent member decodes to nil")

	out, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "x", "connectors": [], "cables": "oops"}`, string(out))
}

func TestParseDocumentNumericIDs(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"name": "n",
		"connectors": [{"id": 7, "pins": [{"id": 1, "number": 1}]}],
		"connections": [{"id": 3, "from": {"connectorId": 7, "pinId": 1}, "to": {"cableId": "W1", "wireId": 2}}]}`))
	require.NoError(t, err)

	require.Len(t, doc.Connectors, 1)
	assert.Equal(t, "7", doc.Connectors[0].ID)
	assert.Equal(t, "1", doc.Connectors[0].Pins[0].ID)
	assert.Equal(t, float64(1), doc.Connectors[0].Pins[0].Number, "number is kept as decoded")
	assert.Equal(t, "3", doc.Connections[0].ID)
	assert.Equal(t, "7", doc.Connections[0].From.ConnectorID)
	assert.Equal(t, "2", doc.Connections[0].To.WireID)
	assert.Empty(t, doc.Connectors[0].Pins[0].Extra)
}

func TestParseDocumentTypeErrorNamesElement(t *testing.T) {
	_, err := ParseDocument([]byte(`{"name": "n", "cables": [{"id": "W1"}, {"id": "W2", "label": 5}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cables[1]: label")
	assert.NotContains(t, err.Error(), "plain")
}

func TestEndpointKind(t *testing.T) {
	tests := []struct {
		name string
		ep   *Endpoint
		want EndpointKind
	}{
		{"nil", nil, EndpointNone},
		{"empty", &Endpoint{}, EndpointNone},
		{"connector", &Endpoint{ConnectorID: "J1", PinID: "1"}, EndpointConnector},
		{"cable", &Endpoint{CableID: "W1", WireID: "1", Side: "B"}, EndpointCable},
		{"component", &Endpoint{ComponentID: "R1", PinID: "1"}, EndpointComponent},
		{"sub-harness wins over its inner connector", &Endpoint{SubHarnessID: "s", ConnectorID: "J1"}, EndpointSubHarness},
		{"connector and cable", &Endpoint{ConnectorID: "J1", CableID: "W1"}, EndpointAmbiguous},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ep.Kind())
		})
	}
}

func TestDocumentCloneIsDeep(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleDocument))
	require.NoError(t, err)

	c := doc.Clone()
	c.Connectors[0].Label = "changed"
	c.Connections[0].From.PinID = "p2"

	assert.Equal(t, "Power", doc.Connectors[0].Label)
	assert.Equal(t, "p1", doc.Connections[0].From.PinID)
}

func TestHarnessClone(t *testing.T) {
	by := "alice"
	h := &Harness{ID: "h1", Name: "A", ReleasedBy: &by, Document: NewDocument("A")}
	c := h.Clone()
	*c.ReleasedBy = "bob"
	c.Document.Name = "B"

	assert.Equal(t, "alice", *h.ReleasedBy)
	assert.Equal(t, "A", h.Document.Name)
}

func TestReleaseStateRank(t *testing.T) {
	assert.Less(t, StateDraft.Rank(), StateReview.Rank())
	assert.Less(t, StateReview.Rank(), StateReleased.Rank())
	assert.False(t, ReleaseState("archived").Valid())
}
