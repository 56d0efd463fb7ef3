package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letwinventory/harnessgraph/internal/model"
)

func TestTransitions_HappyPath(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	h := mustCreate(t, e, "Loom")

	res, err := e.SubmitReview(ctx, h.ID, testActor, "")
	require.NoError(t, err)
	assert.Equal(t, model.StateReview, res.Harness.ReleaseState)

	res, err = e.Reject(ctx, h.ID, "reviewer", "pinout wrong")
	require.NoError(t, err)
	assert.Equal(t, model.StateDraft, res.Harness.ReleaseState)

	_, err = e.SubmitReview(ctx, h.ID, testActor, "")
	require.NoError(t, err)
	res, err = e.Release(ctx, h.ID, "approver", "")
	require.NoError(t, err)

	released := mustGet(t, e, h.ID)
	assert.Equal(t, model.StateReleased, released.ReleaseState)
	require.NotNil(t, released.ReleasedAt)
	assert.Equal(t, "approver", model.Deref(released.ReleasedBy))

	entries := mustHistory(t, e, h.ID)
	assert.Equal(t, []model.ChangeType{
		model.ChangeReleased,
		model.ChangeSubmittedReview,
		model.ChangeRejected,
		model.ChangeSubmittedReview,
		model.ChangeCreated,
	}, changeTypes(entries))
	assert.Equal(t, "pinout wrong", model.Deref(entries[2].ChangeNotes))
	assert.Equal(t, "reviewer", model.Deref(entries[2].ChangedBy))
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i-1].Seq, entries[i].Seq, "history is most recent first")
	}
}

func TestTransitions_Illegal(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	h := mustCreate(t, e, "Loom")

	_, err := e.Release(ctx, h.ID, testActor, "")
	require.Error(t, err)
	assert.True(t, IsIllegalTransition(err))
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "draft", ee.Details["current"])
	assert.Equal(t, "review", ee.Details["expected"])

	_, err = e.Reject(ctx, h.ID, testActor, "")
	assert.True(t, IsIllegalTransition(err))

	mustRelease(t, e, h.ID)
	_, err = e.SubmitReview(ctx, h.ID, testActor, "")
	assert.True(t, IsIllegalTransition(err), "released is terminal")

	_, err = e.SubmitReview(ctx, "missing", testActor, "")
	assert.True(t, IsNotFound(err))
}

func TestCascade_DiamondAdvancesOnce(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	c := mustCreate(t, e, "C")
	b := mustCreate(t, e, "B", c.ID)
	a := mustCreate(t, e, "A", b.ID, c.ID)

	res, err := e.SubmitReview(ctx, a.ID, testActor, "")
	require.NoError(t, err)
	assert.Equal(t, []model.CascadeChange{
		{ID: b.ID, Name: "B", PreviousState: model.StateDraft, NewState: model.StateReview},
		{ID: c.ID, Name: "C", PreviousState: model.StateDraft, NewState: model.StateReview},
	}, res.Cascade)

	cEntries := mustHistory(t, e, c.ID)
	assert.Equal(t, []model.ChangeType{model.ChangeSubmittedReview, model.ChangeCreated}, changeTypes(cEntries))
	assert.Equal(t, `Cascaded from parent harness "B"`, model.Deref(cEntries[0].ChangeNotes))

	res, err = e.Release(ctx, a.ID, testActor, "")
	require.NoError(t, err)
	require.Len(t, res.Cascade, 2)
	for _, ch := range res.Cascade {
		assert.Equal(t, model.StateReview, ch.PreviousState)
		assert.Equal(t, model.StateReleased, ch.NewState)
	}

	for _, id := range []string{b.ID, c.ID} {
		h := mustGet(t, e, id)
		assert.Equal(t, model.StateReleased, h.ReleaseState)
		assert.NotNil(t, h.ReleasedAt)
		assert.Equal(t, testActor, model.Deref(h.ReleasedBy))
	}
	assert.Len(t, mustHistory(t, e, c.ID), 3, "one entry per advance")
}

func TestCascade_NeverDowngrades(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	leaf := mustCreate(t, e, "Leaf")
	mid := mustCreate(t, e, "Mid", leaf.ID)
	top := mustCreate(t, e, "Top", mid.ID)
	mustRelease(t, e, leaf.ID)
	before := mustHistory(t, e, leaf.ID)

	res, err := e.SubmitReview(ctx, top.ID, testActor, "")
	require.NoError(t, err)
	assert.Equal(t, []model.CascadeChange{
		{ID: mid.ID, Name: "Mid", PreviousState: model.StateDraft, NewState: model.StateReview},
	}, res.Cascade)

	assert.Equal(t, model.StateReleased, mustGet(t, e, leaf.ID).ReleaseState)
	assert.Equal(t, before, mustHistory(t, e, leaf.ID))
}

func TestCascade_ReleaseWithoutChildrenIsEmpty(t *testing.T) {
	e, _ := newTestEngine(t)
	h := mustCreate(t, e, "Solo")

	res := mustRelease(t, e, h.ID)
	assert.NotNil(t, res.Cascade)
	assert.Empty(t, res.Cascade)
}

func TestCascade_DepthLimitRollsBack(t *testing.T) {
	e, _ := newTestEngine(t, WithMaxCascadeDepth(1))
	ctx := context.Background()

	c := mustCreate(t, e, "C")
	b := mustCreate(t, e, "B", c.ID)
	a := mustCreate(t, e, "A", b.ID)

	_, err := e.SubmitReview(ctx, a.ID, testActor, "")
	require.Error(t, err)
	assert.True(t, IsCycleRejected(err))

	for _, id := range []string{a.ID, b.ID, c.ID} {
		assert.Equal(t, model.StateDraft, mustGet(t, e, id).ReleaseState, "unit of work rolled back")
	}
}
