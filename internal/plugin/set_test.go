package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	defs     []Definition
	saveErr  error
	saves    int
	revision int64
	lastID   int64
}

func (m *memStore) LoadRules(context.Context) ([]Definition, error) {
	return m.defs, nil
}

func (m *memStore) SaveRules(_ context.Context, defs []Definition) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.revision++
	m.defs = append([]Definition(nil), defs...)
	return nil
}

func (m *memStore) NextRuleID(context.Context) (int64, error) {
	m.lastID++
	return m.lastID, nil
}

func (m *memStore) RulesRevision(context.Context) (int64, error) {
	return m.revision, nil
}

func validDef(process string) Definition {
	return Definition{
		ProcessName: process,
		Pattern:     `(.+) - (.+)`,
		ArtistGroup: 1,
		TitleGroup:  2,
		Enabled:     true,
	}
}

func ids(rules []Rule) []int64 {
	out := make([]int64, len(rules))
	for i, r := range rules {
		out[i] = r.ID
	}
	return out
}

func TestSet_AddAssignsIDsAndPersists(t *testing.T) {
	store := &memStore{}
	s := NewSet(store, nil, nil)
	ctx := context.Background()

	a, err := s.Add(ctx, validDef("a"))
	require.NoError(t, err)
	b, err := s.Add(ctx, validDef("b"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, []int64{1, 2}, ids(s.Rules()))
	assert.Len(t, store.defs, 2)
}

func TestSet_AddRejectsInvalid(t *testing.T) {
	store := &memStore{}
	s := NewSet(store, nil, nil)

	_, err := s.Add(context.Background(), Definition{ProcessName: "a", Pattern: `x`, ArtistGroup: 1, TitleGroup: 1})

	assert.ErrorIs(t, err, ErrInvalidRule)
	assert.Empty(t, s.Rules())
	assert.Equal(t, 0, store.saves)
}

func TestSet_SaveFailureKeepsOldSnapshot(t *testing.T) {
	store := &memStore{}
	s := NewSet(store, nil, nil)
	ctx := context.Background()
	_, err := s.Add(ctx, validDef("a"))
	require.NoError(t, err)

	store.saveErr = errors.New("disk full")
	err = s.Disable(ctx, 1)

	require.Error(t, err)
	r, ok := s.Get(1)
	require.True(t, ok)
	assert.True(t, r.Enabled)
}

func TestSet_EnableDisable(t *testing.T) {
	s := NewSet(nil, nil, nil)
	ctx := context.Background()
	_, err := s.Add(ctx, validDef("a"))
	require.NoError(t, err)
	_, err = s.Add(ctx, validDef("b"))
	require.NoError(t, err)

	require.NoError(t, s.Disable(ctx, 1))
	assert.Equal(t, []int64{2}, ids(s.Enabled()))

	require.NoError(t, s.Enable(ctx, 1))
	assert.Equal(t, []int64{1, 2}, ids(s.Enabled()))

	assert.ErrorIs(t, s.Disable(ctx, 42), ErrRuleNotFound)
}

func TestSet_SnapshotIsolation(t *testing.T) {
	s := NewSet(nil, nil, nil)
	ctx := context.Background()
	_, err := s.Add(ctx, validDef("a"))
	require.NoError(t, err)

	snapshot := s.Enabled()
	require.NoError(t, s.Disable(ctx, 1))

	assert.True(t, snapshot[0].Enabled)
	assert.Empty(t, s.Enabled())
}

func TestSet_MoveAndRemove(t *testing.T) {
	s := NewSet(nil, nil, nil)
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		_, err := s.Add(ctx, validDef(p))
		require.NoError(t, err)
	}

	require.NoError(t, s.Move(ctx, 3, 0))
	assert.Equal(t, []int64{3, 1, 2}, ids(s.Rules()))

	require.NoError(t, s.Move(ctx, 3, 99))
	assert.Equal(t, []int64{1, 2, 3}, ids(s.Rules()))

	require.NoError(t, s.Remove(ctx, 2))
	assert.Equal(t, []int64{1, 3}, ids(s.Rules()))

	assert.ErrorIs(t, s.Remove(ctx, 2), ErrRuleNotFound)
}

func TestSet_LoadSkipsInvalid(t *testing.T) {
	store := &memStore{defs: []Definition{
		{ID: 1, ProcessName: "a", Pattern: `(.+) - (.+)`, ArtistGroup: 1, TitleGroup: 2, Enabled: true},
		{ID: 2, ProcessName: "b", Pattern: `(.+`, ArtistGroup: 1, TitleGroup: 1, Enabled: true},
	}}
	s := NewSet(store, nil, nil)

	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, []int64{1}, ids(s.Rules()))
}

func TestSet_IDsAreNotReusedAfterRemove(t *testing.T) {
	for name, store := range map[string]Store{"memory": nil, "store": &memStore{}} {
		t.Run(name, func(t *testing.T) {
			s := NewSet(store, nil, nil)
			ctx := context.Background()
			_, err := s.Add(ctx, validDef("a"))
			require.NoError(t, err)
			b, err := s.Add(ctx, validDef("b"))
			require.NoError(t, err)

			require.NoError(t, s.Remove(ctx, b.ID))
			c, err := s.Add(ctx, validDef("c"))
			require.NoError(t, err)

			assert.Equal(t, int64(3), c.ID)
			assert.Equal(t, []int64{1, 3}, ids(s.Rules()))
		})
	}
}

func TestSet_RefreshPicksUpExternalChanges(t *testing.T) {
	store := &memStore{}
	s := NewSet(store, nil, nil)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	_, err := s.Add(ctx, validDef("a"))
	require.NoError(t, err)
	changed, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "own saves do not trigger a reload")

	// Another process disables the rule and adds one.
	other := NewSet(store, nil, nil)
	require.NoError(t, other.Load(ctx))
	require.NoError(t, other.Disable(ctx, 1))
	_, err = other.Add(ctx, validDef("b"))
	require.NoError(t, err)

	changed, err = s.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []int64{2}, ids(s.Enabled()))

	changed, err = s.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSet_RefreshWithoutStore(t *testing.T) {
	changed, err := NewSet(nil, nil, nil).Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
}
