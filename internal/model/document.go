package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Document is the design document embedded in a harness row.
//
// A nil collection means the member was absent (or not an array) in the
// decoded input; an empty non-nil collection means it was present and empty.
// The validator relies on that distinction.
type Document struct {
	Name         string
	Connectors   []Connector
	Cables       []Cable
	Components   []Component
	SubHarnesses []SubHarnessRef
	Connections  []Connection

	// Extra holds top-level members the engine does not interpret.
	Extra map[string]json.RawMessage
}

// Connection types.
const (
	ConnectionTypeMating = "mating"
)

// Connector is a physical connector with pins.
type Connector struct {
	ID    string                     `json:"id,omitempty"`
	Label string                     `json:"label,omitempty"`
	Pins  []Pin                      `json:"pins,omitempty"`
	Extra map[string]json.RawMessage `json:"-"`
}

// Pin is a connector or component pin. Number is kept as decoded.
type Pin struct {
	ID     string                     `json:"id,omitempty"`
	Number any                        `json:"number,omitempty"`
	Label  string                     `json:"label,omitempty"`
	Extra  map[string]json.RawMessage `json:"-"`
}

// Cable is a cable with wires.
type Cable struct {
	ID    string                     `json:"id,omitempty"`
	Label string                     `json:"label,omitempty"`
	Wires []Wire                     `json:"wires,omitempty"`
	Extra map[string]json.RawMessage `json:"-"`
}

// Wire is a single conductor of a cable.
type Wire struct {
	ID    string                     `json:"id,omitempty"`
	Color string                     `json:"color,omitempty"`
	Label string                     `json:"label,omitempty"`
	Extra map[string]json.RawMessage `json:"-"`
}

// Component is a discrete component with named pin groups.
type Component struct {
	ID        string                     `json:"id,omitempty"`
	Label     string                     `json:"label,omitempty"`
	PinGroups []PinGroup                 `json:"pinGroups,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

// PinGroup groups component pins.
type PinGroup struct {
	ID    string                     `json:"id,omitempty"`
	Name  string                     `json:"name,omitempty"`
	Pins  []Pin                      `json:"pins,omitempty"`
	Extra map[string]json.RawMessage `json:"-"`
}

// SubHarnessRef embeds another harness. HarnessID is the embedding edge.
type SubHarnessRef struct {
	ID        string                     `json:"id,omitempty"`
	HarnessID string                     `json:"harnessId,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

// Connection joins two endpoints. Cable is the legacy bare cable reference.
type Connection struct {
	ID             string                     `json:"id,omitempty"`
	From           *Endpoint                  `json:"from,omitempty"`
	To             *Endpoint                  `json:"to,omitempty"`
	ConnectionType string                     `json:"connectionType,omitempty"`
	Cable          string                     `json:"cable,omitempty"`
	Extra          map[string]json.RawMessage `json:"-"`
}

// EndpointKind tags which variant an Endpoint carries.
type EndpointKind string

const (
	EndpointNone       EndpointKind = ""
	EndpointConnector  EndpointKind = "connector"
	EndpointCable      EndpointKind = "cable"
	EndpointComponent  EndpointKind = "component"
	EndpointSubHarness EndpointKind = "subHarness"
	EndpointAmbiguous  EndpointKind = "ambiguous"
)

// Endpoint is one end of a connection:
//
//	connector:  connectorId + pinId
//	cable:      cableId + wireId + side
//	component:  componentId + pinId
//	subHarness: subHarnessId + connectorId (a connector inside the embedded harness)
type Endpoint struct {
	ConnectorID  string                     `json:"connectorId,omitempty"`
	PinID        string                     `json:"pinId,omitempty"`
	CableID      string                     `json:"cableId,omitempty"`
	WireID       string                     `json:"wireId,omitempty"`
	Side         string                     `json:"side,omitempty"`
	ComponentID  string                     `json:"componentId,omitempty"`
	SubHarnessID string                     `json:"subHarnessId,omitempty"`
	Extra        map[string]json.RawMessage `json:"-"`
}

// Kind returns the variant the endpoint resolves to. An endpoint naming more
// than one parent entity is EndpointAmbiguous.
func (e *Endpoint) Kind() EndpointKind {
	if e == nil {
		return EndpointNone
	}
	var kinds []EndpointKind
	if e.SubHarnessID != "" {
		kinds = append(kinds, EndpointSubHarness)
	} else if e.ConnectorID != "" {
		kinds = append(kinds, EndpointConnector)
	}
	if e.CableID != "" {
		kinds = append(kinds, EndpointCable)
	}
	if e.ComponentID != "" {
		kinds = append(kinds, EndpointComponent)
	}
	switch len(kinds) {
	case 0:
		return EndpointNone
	case 1:
		return kinds[0]
	default:
		return EndpointAmbiguous
	}
}

// NewDocument returns a document with every collection present and empty.
func NewDocument(name string) *Document {
	return &Document{
		Name:         name,
		Connectors:   []Connector{},
		Cables:       []Cable{},
		Components:   []Component{},
		SubHarnesses: []SubHarnessRef{},
		Connections:  []Connection{},
	}
}

// ParseDocument decodes a JSON design document.
func ParseDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &d, nil
}

// SubHarnessTargets returns the distinct embedded harness ids in document order.
func (d *Document) SubHarnessTargets() []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]bool, len(d.SubHarnesses))
	var out []string
	for _, ref := range d.SubHarnesses {
		if ref.HarnessID == "" || seen[ref.HarnessID] {
			continue
		}
		seen[ref.HarnessID] = true
		out = append(out, ref.HarnessID)
	}
	return out
}

// Clone deep-copies the document through its JSON form.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		panic(fmt.Sprintf("model: clone document: %v", err))
	}
	var c Document
	if err := json.Unmarshal(data, &c); err != nil {
		panic(fmt.Sprintf("model: clone document: %v", err))
	}
	return &c
}

var documentKeys = []string{"name", "connectors", "cables", "components", "subHarnesses", "connections"}

// UnmarshalJSON decodes the known members and keeps the rest in Extra.
// A collection member that is null or not an array decodes to nil and its
// raw value is kept in Extra so it is written back unchanged.
func (d *Document) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*d = Document{}

	if raw, ok := all["name"]; ok {
		if err := json.Unmarshal(raw, &d.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
		delete(all, "name")
	}

	collections := []struct {
		key    string
		decode func(json.RawMessage) error
	}{
		{"connectors", func(raw json.RawMessage) error { return decodeList("connectors", raw, &d.Connectors) }},
		{"cables", func(raw json.RawMessage) error { return decodeList("cables", raw, &d.Cables) }},
		{"components", func(raw json.RawMessage) error { return decodeList("components", raw, &d.Components) }},
		{"subHarnesses", func(raw json.RawMessage) error { return decodeList("subHarnesses", raw, &d.SubHarnesses) }},
		{"connections", func(raw json.RawMessage) error { return decodeList("connections", raw, &d.Connections) }},
	}
	for _, c := range collections {
		raw, ok := all[c.key]
		if !ok || !isArray(raw) {
			continue
		}
		if err := c.decode(raw); err != nil {
			return err
		}
		delete(all, c.key)
	}

	if len(all) > 0 {
		d.Extra = all
	}
	return nil
}

// MarshalJSON writes known members over Extra. Absent collections are omitted.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+len(documentKeys))
	for k, v := range d.Extra {
		out[k] = v
	}
	out["name"] = d.Name
	if d.Connectors != nil {
		out["connectors"] = d.Connectors
	}
	if d.Cables != nil {
		out["cables"] = d.Cables
	}
	if d.Components != nil {
		out["components"] = d.Components
	}
	if d.SubHarnesses != nil {
		out["subHarnesses"] = d.SubHarnesses
	}
	if d.Connections != nil {
		out["connections"] = d.Connections
	}
	return json.Marshal(out)
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isNumber(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && (trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9'))
}

// decodeList decodes a collection element by element so a failure names
// the element's index.
func decodeList[T any](key string, raw json.RawMessage, dst *[]T) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	out := make([]T, len(items))
	for i, item := range items {
		if err := json.Unmarshal(item, &out[i]); err != nil {
			return fmt.Errorf("%s[%d]: %w", key, i, err)
		}
	}
	*dst = out
	return nil
}

// idKeys are the reference members decoded as strings. Editors sometimes
// write them as bare numbers.
var idKeys = map[string]bool{
	"id": true, "harnessId": true, "cable": true,
	"connectorId": true, "pinId": true, "cableId": true, "wireId": true,
	"componentId": true, "subHarnessId": true,
}

// decodeObject unmarshals data into dst and returns members not named in
// known. Numeric id members are read as their decimal text ("pins":[{"id":1}]
// decodes to ID "1").
func decodeObject(data []byte, dst any, known ...string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	normalized := false
	for k, raw := range all {
		if idKeys[k] && isNumber(raw) {
			all[k] = strconv.AppendQuote(nil, string(bytes.TrimSpace(raw)))
			normalized = true
		}
	}
	if normalized {
		var err error
		if data, err = json.Marshal(all); err != nil {
			return nil, err
		}
	}

	if err := json.Unmarshal(data, dst); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			// The decoder names the local alias type in its message; report the member instead.
			return nil, fmt.Errorf("%s: cannot use JSON %s as %s", te.Field, te.Value, te.Type)
		}
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// encodeObject marshals v and adds extra members v does not already set.
func encodeObject(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := all[k]; !ok {
			all[k] = raw
		}
	}
	return json.Marshal(all)
}

func (c *Connector) UnmarshalJSON(data []byte) error {
	type plain Connector
	extra, err := decodeObject(data, (*plain)(c), "id", "label", "pins")
	c.Extra = extra
	return err
}

func (c Connector) MarshalJSON() ([]byte, error) {
	type plain Connector
	return encodeObject(plain(c), c.Extra)
}

func (p *Pin) UnmarshalJSON(data []byte) error {
	type plain Pin
	extra, err := decodeObject(data, (*plain)(p), "id", "number", "label")
	p.Extra = extra
	return err
}

func (p Pin) MarshalJSON() ([]byte, error) {
	type plain Pin
	return encodeObject(plain(p), p.Extra)
}

func (c *Cable) UnmarshalJSON(data []byte) error {
	type plain Cable
	extra, err := decodeObject(data, (*plain)(c), "id", "label", "wires")
	c.Extra = extra
	return err
}

func (c Cable) MarshalJSON() ([]byte, error) {
	type plain Cable
	return encodeObject(plain(c), c.Extra)
}

func (w *Wire) UnmarshalJSON(data []byte) error {
	type plain Wire
	extra, err := decodeObject(data, (*plain)(w), "id", "color", "label")
	w.Extra = extra
	return err
}

func (w Wire) MarshalJSON() ([]byte, error) {
	type plain Wire
	return encodeObject(plain(w), w.Extra)
}

func (c *Component) UnmarshalJSON(data []byte) error {
	type plain Component
	extra, err := decodeObject(data, (*plain)(c), "id", "label", "pinGroups")
	c.Extra = extra
	return err
}

func (c Component) MarshalJSON() ([]byte, error) {
	type plain Component
	return encodeObject(plain(c), c.Extra)
}

func (g *PinGroup) UnmarshalJSON(data []byte) error {
	type plain PinGroup
	extra, err := decodeObject(data, (*plain)(g), "id", "name", "pins")
	g.Extra = extra
	return err
}

func (g PinGroup) MarshalJSON() ([]byte, error) {
	type plain PinGroup
	return encodeObject(plain(g), g.Extra)
}

func (r *SubHarnessRef) UnmarshalJSON(data []byte) error {
	type plain SubHarnessRef
	extra, err := decodeObject(data, (*plain)(r), "id", "harnessId")
	r.Extra = extra
	return err
}

func (r SubHarnessRef) MarshalJSON() ([]byte, error) {
	type plain SubHarnessRef
	return encodeObject(plain(r), r.Extra)
}

func (c *Connection) UnmarshalJSON(data []byte) error {
	type plain Connection
	extra, err := decodeObject(data, (*plain)(c), "id", "from", "to", "connectionType", "cable")
	c.Extra = extra
	return err
}

func (c Connection) MarshalJSON() ([]byte, error) {
	type plain Connection
	return encodeObject(plain(c), c.Extra)
}

func (e *Endpoint) UnmarshalJSON(data []byte) error {
	type plain Endpoint
	extra, err := decodeObject(data, (*plain)(e),
		"connectorId", "pinId", "cableId", "wireId", "side", "componentId", "subHarnessId")
	e.Extra = extra
	return err
}

func (e Endpoint) MarshalJSON() ([]byte, error) {
	type plain Endpoint
	return encodeObject(plain(e), e.Extra)
}
