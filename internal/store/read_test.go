package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/kernel"
)

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSession(context.Background(), "nope")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestListSessions(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)

	require.NoError(t, s.WriteSession(ctx, ir.Session{ID: "b", CreatedAt: 2}))
	require.NoError(t, s.WriteSession(ctx, ir.Session{ID: "a", CreatedAt: 2}))
	require.NoError(t, s.WriteSession(ctx, ir.Session{ID: "z", CreatedAt: 1}))

	sessions, err = s.ListSessions(ctx)
	require.NoError(t, err)
	ids := make([]string, len(sessions))
	for i, sess := range sessions {
		ids[i] = sess.ID
	}
	assert.Equal(t, []string{"z", "a", "b"}, ids)

	latest, err := s.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
}

func TestLatestSession_Empty(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LatestSession(context.Background())
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestReadThoughts_EmptySession(t *testing.T) {
	s := createTestStore(t)

	thoughts, err := s.ReadThoughts(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, thoughts)
	assert.Empty(t, thoughts)
}

func TestReadThoughts_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	k1 := createTestKernel(t, "one")
	k2 := createTestKernel(t, "two")
	_, err := k2.Postulate(ir.ParsePath("only.two"), 2)
	require.NoError(t, err)

	_, err = s.Save(ctx, k1)
	require.NoError(t, err)
	_, err = s.Save(ctx, k2)
	require.NoError(t, err)

	t1, err := s.ReadThoughts(ctx, "one")
	require.NoError(t, err)
	t2, err := s.ReadThoughts(ctx, "two")
	require.NoError(t, err)
	assert.Len(t, t2, len(t1)+1)
}

func TestReadPathHistory(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	k := createTestKernel(t, "s")

	for _, v := range []int{1, 2} {
		_, err := k.Postulate(ir.ParsePath("counter"), v)
		require.NoError(t, err)
	}
	_, err := s.Save(ctx, k)
	require.NoError(t, err)

	history, err := s.ReadPathHistory(ctx, "s", "counter")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ir.IRInt(1), history[0].Value)
	assert.Equal(t, ir.IRInt(2), history[1].Value)
	assert.Less(t, history[0].Seq, history[1].Seq)
}

// A stored log replays to the index the live kernel held.
func TestReadThoughts_ReplaysToLiveIndex(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	k := createTestKernel(t, "s")

	_, err := s.Save(ctx, k)
	require.NoError(t, err)

	thoughts, err := s.ReadThoughts(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, k.Index(), kernel.ReplayIndex(thoughts))
}
