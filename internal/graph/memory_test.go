package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/modgraph/internal/community"
	"github.com/efebarandurmaz/modgraph/internal/depgraph"
)

func TestMemoryRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	g := depgraph.FromEntries(
		depgraph.Entry{File: "a/x", Deps: []string{"b/y"}},
		depgraph.Entry{File: "c/z", Deps: []string{"b/y", "a/x"}},
		depgraph.Entry{File: "b/y"},
	)
	run := Run{ID: "run-1", CreatedAt: time.Now(), Files: g.Len(), Edges: g.EdgeCount()}
	require.NoError(t, repo.StoreGraph(ctx, run, g))

	loaded, err := repo.LoadGraph(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, g.Files(), loaded.Files())
	assert.Equal(t, []string{"b/y", "a/x"}, loaded.Dependencies("c/z"))

	deps, err := repo.QueryDependents(ctx, "run-1", "b/y")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/x", "c/z"}, deps)

	p := community.GroupByTopDirectory(g.Files())
	require.NoError(t, repo.StoreSnapshot(ctx, Snapshot{RunID: "run-1", Strategy: "current", Partition: p}))
	require.NoError(t, p.Add("a", "late"))

	stored, err := repo.LoadPartition(ctx, "run-1", "current")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/x"}, stored.Members("a"), "snapshot must not alias the caller's partition")
	assert.Len(t, repo.Snapshots("run-1"), 1)
}

func TestMemoryRepository_UnknownRun(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	_, err := repo.LoadGraph(ctx, "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	err = repo.StoreSnapshot(ctx, Snapshot{RunID: "nope", Strategy: "greedy", Partition: community.New()})
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = repo.LoadPartition(ctx, "nope", "greedy")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = repo.QueryDependents(ctx, "nope", "x")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.NoError(t, repo.Close(ctx))
}
