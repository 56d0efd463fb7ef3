package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letwinventory/harnessgraph/internal/model"
)

type fakeSource struct {
	active []*model.Harness
	index  map[string][]*model.Harness
}

func (f *fakeSource) ParentsOf(_ context.Context, child string) ([]*model.Harness, error) {
	return f.index[child], nil
}

func (f *fakeSource) ListActiveHarnesses(context.Context) ([]*model.Harness, error) {
	return f.active, nil
}

func embedding(id, name string, children ...string) *model.Harness {
	doc := model.NewDocument(name)
	for i, c := range children {
		doc.SubHarnesses = append(doc.SubHarnesses, model.SubHarnessRef{ID: string(rune('a' + i)), HarnessID: c})
	}
	return &model.Harness{ID: id, Name: name, Active: true, Document: doc}
}

func TestFindParentsModesAgree(t *testing.T) {
	p1 := embedding("p1", "Zeta", "child")
	p2 := embedding("p2", "Alpha", "child", "child")
	other := embedding("p3", "Other", "unrelated")
	src := &fakeSource{
		active: []*model.Harness{p1, p2, other},
		index:  map[string][]*model.Harness{"child": {p1, p2}},
	}

	for _, mode := range []ParentMode{ParentsIndexed, ParentsScan} {
		t.Run(string(mode), func(t *testing.T) {
			parents, err := FindParents(context.Background(), src, mode, "child")
			require.NoError(t, err)
			assert.Equal(t, []model.HarnessRef{{ID: "p2", Name: "Alpha"}, {ID: "p1", Name: "Zeta"}}, Refs(parents))
		})
	}
}

func TestFindParentsUnknownMode(t *testing.T) {
	_, err := FindParents(context.Background(), &fakeSource{}, ParentMode("magic"), "x")
	assert.Error(t, err)
	assert.False(t, ParentMode("magic").Valid())
}
