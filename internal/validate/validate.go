// Package validate checks the referential integrity of a design document.
//
// Validate runs every check and returns all findings; it never stops at the
// first. The only external reads are the active-harness and cycle lookups
// for sub-harness targets, supplied by the caller through Lookup.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/letwinventory/harnessgraph/internal/model"
)

// Validation error codes (V100-V199)
const (
	ErrNameRequired         = "V101" // top-level name missing
	ErrCollectionRequired   = "V102" // connectors/cables/connections not a collection
	ErrElementIncomplete    = "V103" // connector/cable without id or label
	ErrSubHarnessIncomplete = "V104" // sub-harness ref without id or harnessId
	ErrSubHarnessInactive   = "V105" // target missing or inactive
	ErrSubHarnessCycle      = "V106" // embedding would create a cycle
	ErrConnectionID         = "V107" // connection without id
	ErrMatingConnection     = "V108" // mating needs two connectors, nothing else
	ErrEndpoint             = "V109" // endpoint missing or ambiguous
	ErrUnresolvedReference  = "V110" // id does not resolve within the document
	ErrUnresolvedPin        = "V111" // pin/wire does not resolve on its parent
	ErrDuplicateID          = "V112" // duplicate id within a collection
	ErrInvalidRevision      = "V113" // revision label is neither "01".."99" nor "A".."Z"
)

// ValidationError is one finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Messages returns the human-readable message of each finding.
func Messages(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}

// Lookup answers the cross-harness questions the validator cannot answer
// from the document alone.
type Lookup interface {
	IsActiveHarness(ctx context.Context, id string) (bool, error)
	WouldCreateCycle(ctx context.Context, parentID, childID string) (bool, error)
}

// Options configures Validate. OwnerID enables cycle checks; a nil Lookup
// skips every cross-harness check.
type Options struct {
	OwnerID string
	Lookup  Lookup
}

// Validate checks doc and returns all findings. The error return is reserved
// for lookup failures, which are not validation findings.
func Validate(ctx context.Context, doc *model.Document, opts Options) ([]ValidationError, error) {
	if doc == nil {
		doc = &model.Document{}
	}
	v := &validator{doc: doc, idx: buildIndex(doc)}

	v.checkTopLevel()
	v.checkElements()
	if err := v.checkSubHarnesses(ctx, opts); err != nil {
		return nil, err
	}
	v.checkConnections()

	if v.errs == nil {
		v.errs = []ValidationError{}
	}
	return v.errs, nil
}

type validator struct {
	doc  *model.Document
	idx  index
	errs []ValidationError
}

func (v *validator) add(code, field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

type index struct {
	connectors   map[string]*model.Connector
	cables       map[string]*model.Cable
	components   map[string]*model.Component
	subHarnesses map[string]*model.SubHarnessRef
}

func buildIndex(doc *model.Document) index {
	idx := index{
		connectors:   make(map[string]*model.Connector, len(doc.Connectors)),
		cables:       make(map[string]*model.Cable, len(doc.Cables)),
		components:   make(map[string]*model.Component, len(doc.Components)),
		subHarnesses: make(map[string]*model.SubHarnessRef, len(doc.SubHarnesses)),
	}
	for i := range doc.Connectors {
		if id := doc.Connectors[i].ID; id != "" {
			if _, ok := idx.connectors[id]; !ok {
				idx.connectors[id] = &doc.Connectors[i]
			}
		}
	}
	for i := range doc.Cables {
		if id := doc.Cables[i].ID; id != "" {
			if _, ok := idx.cables[id]; !ok {
				idx.cables[id] = &doc.Cables[i]
			}
		}
	}
	for i := range doc.Components {
		if id := doc.Components[i].ID; id != "" {
			if _, ok := idx.components[id]; !ok {
				idx.components[id] = &doc.Components[i]
			}
		}
	}
	for i := range doc.SubHarnesses {
		if id := doc.SubHarnesses[i].ID; id != "" {
			if _, ok := idx.subHarnesses[id]; !ok {
				idx.subHarnesses[id] = &doc.SubHarnesses[i]
			}
		}
	}
	return idx
}

func (v *validator) checkTopLevel() {
	if strings.TrimSpace(v.doc.Name) == "" {
		v.add(ErrNameRequired, "name", "name is required")
	}
	if v.doc.Connectors == nil {
		v.add(ErrCollectionRequired, "connectors", "connectors must be a collection")
	}
	if v.doc.Cables == nil {
		v.add(ErrCollectionRequired, "cables", "cables must be a collection")
	}
	if v.doc.Connections == nil {
		v.add(ErrCollectionRequired, "connections", "connections must be a collection")
	}
}

func (v *validator) checkElements() {
	seen := make(map[string]bool)
	for i, c := range v.doc.Connectors {
		field := fmt.Sprintf("connectors[%d]", i)
		if c.ID == "" {
			v.add(ErrElementIncomplete, field+".id", "connector %d is missing an id", i)
		} else if seen[c.ID] {
			v.add(ErrDuplicateID, field+".id", "duplicate connector id %q", c.ID)
		}
		seen[c.ID] = true
		if strings.TrimSpace(c.Label) == "" {
			v.add(ErrElementIncomplete, field+".label", "connector %d is missing a label", i)
		}
	}

	seen = make(map[string]bool)
	for i, c := range v.doc.Cables {
		field := fmt.Sprintf("cables[%d]", i)
		if c.ID == "" {
			v.add(ErrElementIncomplete, field+".id", "cable %d is missing an id", i)
		} else if seen[c.ID] {
			v.add(ErrDuplicateID, field+".id", "duplicate cable id %q", c.ID)
		}
		seen[c.ID] = true
		if strings.TrimSpace(c.Label) == "" {
			v.add(ErrElementIncomplete, field+".label", "cable %d is missing a label", i)
		}
	}

	seen = make(map[string]bool)
	for i, c := range v.doc.Components {
		if c.ID != "" && seen[c.ID] {
			v.add(ErrDuplicateID, fmt.Sprintf("components[%d].id", i), "duplicate component id %q", c.ID)
		}
		seen[c.ID] = true
	}
}

func (v *validator) checkSubHarnesses(ctx context.Context, opts Options) error {
	seen := make(map[string]bool)
	for i, ref := range v.doc.SubHarnesses {
		field := fmt.Sprintf("subHarnesses[%d]", i)
		if ref.ID == "" {
			v.add(ErrSubHarnessIncomplete, field+".id", "sub-harness %d is missing an id", i)
		} else if seen[ref.ID] {
			v.add(ErrDuplicateID, field+".id", "duplicate sub-harness id %q", ref.ID)
		}
		seen[ref.ID] = true

		if ref.HarnessID == "" {
			v.add(ErrSubHarnessIncomplete, field+".harnessId", "sub-harness %d is missing a harnessId", i)
			continue
		}
		if opts.Lookup == nil {
			continue
		}

		active, err := opts.Lookup.IsActiveHarness(ctx, ref.HarnessID)
		if err != nil {
			return fmt.Errorf("validate sub-harness %d: %w", i, err)
		}
		if !active {
			v.add(ErrSubHarnessInactive, field+".harnessId",
				"sub-harness %d references missing or inactive harness %q", i, ref.HarnessID)
		}

		if opts.OwnerID == "" {
			continue
		}
		cyclic, err := opts.Lookup.WouldCreateCycle(ctx, opts.OwnerID, ref.HarnessID)
		if err != nil {
			return fmt.Errorf("validate sub-harness %d: %w", i, err)
		}
		if cyclic {
			v.add(ErrSubHarnessCycle, field+".harnessId",
				"sub-harness %d would create a cycle: harness %q already contains %q", i, ref.HarnessID, opts.OwnerID)
		}
	}
	return nil
}

func (v *validator) checkConnections() {
	seen := make(map[string]bool)
	for i, conn := range v.doc.Connections {
		field := fmt.Sprintf("connections[%d]", i)
		if conn.ID == "" {
			v.add(ErrConnectionID, field+".id", "connection %d is missing an id", i)
		} else if seen[conn.ID] {
			v.add(ErrDuplicateID, field+".id", "duplicate connection id %q", conn.ID)
		}
		seen[conn.ID] = true

		if conn.ConnectionType == model.ConnectionTypeMating {
			v.checkMating(i, field, conn)
		}

		v.checkEndpoint(i, field+".from", "from", conn.From)
		v.checkEndpoint(i, field+".to", "to", conn.To)

		if conn.Cable != "" {
			if _, ok := v.idx.cables[conn.Cable]; !ok {
				v.add(ErrUnresolvedReference, field+".cable",
					"connection %d references unknown cable %q", i, conn.Cable)
			}
		}
	}
}

func (v *validator) checkMating(i int, field string, conn model.Connection) {
	if !isConnectorSide(conn.From) || !isConnectorSide(conn.To) {
		v.add(ErrMatingConnection, field,
			"mating connection %d must join two connector endpoints", i)
	}
	if conn.Cable != "" || hasCableOrComponent(conn.From) || hasCableOrComponent(conn.To) {
		v.add(ErrMatingConnection, field,
			"mating connection %d must not reference a cable or component", i)
	}
}

// isConnectorSide reports whether e names a connector, either in this
// document or inside an embedded sub-harness.
func isConnectorSide(e *model.Endpoint) bool {
	k := e.Kind()
	return k == model.EndpointConnector || k == model.EndpointSubHarness
}

func hasCableOrComponent(e *model.Endpoint) bool {
	return e != nil && (e.CableID != "" || e.WireID != "" || e.ComponentID != "")
}

func (v *validator) checkEndpoint(i int, field, end string, e *model.Endpoint) {
	switch e.Kind() {
	case model.EndpointNone:
		v.add(ErrEndpoint, field, "connection %d has no %s endpoint", i, end)

	case model.EndpointAmbiguous:
		v.add(ErrEndpoint, field,
			"connection %d %s endpoint must name exactly one of connector, cable, component or sub-harness", i, end)

	case model.EndpointConnector:
		c, ok := v.idx.connectors[e.ConnectorID]
		if !ok {
			v.add(ErrUnresolvedReference, field+".connectorId",
				"connection %d %s references unknown connector %q", i, end, e.ConnectorID)
			return
		}
		if e.PinID != "" && !hasPin(c.Pins, e.PinID) {
			v.add(ErrUnresolvedPin, field+".pinId",
				"connection %d %s references unknown pin %q on connector %q", i, end, e.PinID, e.ConnectorID)
		}

	case model.EndpointCable:
		if e.Side != "" && e.Side != "A" && e.Side != "B" {
			v.add(ErrEndpoint, field+".side", "connection %d %s side must be A or B, got %q", i, end, e.Side)
		}
		c, ok := v.idx.cables[e.CableID]
		if !ok {
			v.add(ErrUnresolvedReference, field+".cableId",
				"connection %d %s references unknown cable %q", i, end, e.CableID)
			return
		}
		if e.WireID != "" && !hasWire(c.Wires, e.WireID) {
			v.add(ErrUnresolvedPin, field+".wireId",
				"connection %d %s references unknown wire %q on cable %q", i, end, e.WireID, e.CableID)
		}

	case model.EndpointComponent:
		c, ok := v.idx.components[e.ComponentID]
		if !ok {
			v.add(ErrUnresolvedReference, field+".componentId",
				"connection %d %s references unknown component %q", i, end, e.ComponentID)
			return
		}
		if e.PinID != "" && !componentHasPin(c, e.PinID) {
			v.add(ErrUnresolvedPin, field+".pinId",
				"connection %d %s references unknown pin %q on component %q", i, end, e.PinID, e.ComponentID)
		}

	case model.EndpointSubHarness:
		// The inner connector lives in the embedded harness and is not checked here.
		if _, ok := v.idx.subHarnesses[e.SubHarnessID]; !ok {
			v.add(ErrUnresolvedReference, field+".subHarnessId",
				"connection %d %s references unknown sub-harness %q", i, end, e.SubHarnessID)
		}
	}
}

func hasPin(pins []model.Pin, id string) bool {
	for _, p := range pins {
		if p.ID == id {
			return true
		}
	}
	return false
}

func hasWire(wires []model.Wire, id string) bool {
	for _, w := range wires {
		if w.ID == id {
			return true
		}
	}
	return false
}

func componentHasPin(c *model.Component, id string) bool {
	for _, g := range c.PinGroups {
		if hasPin(g.Pins, id) {
			return true
		}
	}
	return false
}
