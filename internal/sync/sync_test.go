package sync_test

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncboard/internal/engine"
	"syncboard/internal/model"
	"syncboard/internal/patch"
	"syncboard/internal/store"
	"syncboard/internal/sync"
)

func newFixture(t *testing.T) (*sync.Service, *engine.Engine, *store.Memory) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := store.NewMemory()
	return sync.New(st), engine.New(st, log), st
}

func TestSyncUnknownBoard(t *testing.T) {
	svc, _, _ := newFixture(t)
	_, err := svc.Sync(context.Background(), 42, 0)
	assert.ErrorIs(t, err, engine.ErrBoardNotFound)
}

func TestSyncSnapshotAtCursorZero(t *testing.T) {
	svc, eng, _ := newFixture(t)
	ctx := context.Background()

	board, _, err := eng.CreateBoard(ctx, 1, "b", "")
	require.NoError(t, err)
	column, _, err := eng.AddColumn(ctx, board.ID, nil, "todo", model.ColumnOptions{})
	require.NoError(t, err)
	card, _, err := eng.AddCard(ctx, 1, column.ID, nil, "task", "")
	require.NoError(t, err)

	patches, err := svc.Sync(ctx, board.ID, 0)
	require.NoError(t, err)

	require.Len(t, patches, 3)
	assert.Equal(t, patch.KindBoard, patches[0].Name)
	assert.Equal(t, patch.ActionPut, patches[0].Action)
	assert.Equal(t, model.ScopeUser, patches[0].Fields["scope"])
	assert.Equal(t, patch.KindColumn, patches[1].Name)
	assert.Equal(t, column.ID, patches[1].Fields["id"])
	assert.Equal(t, patch.KindCard, patches[2].Name)
	assert.Equal(t, card.ID, patches[2].Fields["id"])
	// Assignee lists are always present, never nil.
	assert.Equal(t, []int64{}, patches[2].Fields["assignees"])
}

func TestSyncFiltersByCursor(t *testing.T) {
	svc, eng, st := newFixture(t)
	ctx := context.Background()

	board, _, err := eng.CreateBoard(ctx, 1, "b", "")
	require.NoError(t, err)
	column, _, err := eng.AddColumn(ctx, board.ID, nil, "todo", model.ColumnOptions{})
	require.NoError(t, err)
	_, _, err = eng.AddCard(ctx, 1, column.ID, nil, "old", "")
	require.NoError(t, err)

	// Everything so far is at or below this cursor.
	b, _ := st.GetBoard(ctx, board.ID)
	c, _ := st.GetColumn(ctx, column.ID)
	cursor := b.LastModified
	if c.LastModified > cursor {
		cursor = c.LastModified
	}

	newCard, _, err := eng.AddCard(ctx, 1, column.ID, nil, "new", "")
	require.NoError(t, err)

	patches, err := svc.Sync(ctx, board.ID, cursor)
	require.NoError(t, err)

	// Only the column (its sequence changed) and the new card come back; the
	// board and the old card are silent.
	require.Len(t, patches, 2)
	assert.Equal(t, patch.KindColumn, patches[0].Name)
	assert.Equal(t, patch.KindCard, patches[1].Name)
	assert.Equal(t, newCard.ID, patches[1].Fields["id"])
}

func TestSyncNothingNew(t *testing.T) {
	svc, eng, st := newFixture(t)
	ctx := context.Background()

	board, _, err := eng.CreateBoard(ctx, 1, "b", "")
	require.NoError(t, err)
	b, _ := st.GetBoard(ctx, board.ID)

	patches, err := svc.Sync(ctx, board.ID, b.LastModified)
	require.NoError(t, err)
	assert.NotNil(t, patches)
	assert.Empty(t, patches)
}

func TestSyncEmitsReferencedUsers(t *testing.T) {
	svc, eng, st := newFixture(t)
	ctx := context.Background()

	require.NoError(t, st.CreateUser(ctx, &model.User{Email: "alice@example.com", HashedPassword: "x", Name: "Alice"}))
	alice, err := st.FindUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	board, _, err := eng.CreateBoard(ctx, alice.ID, "b", "")
	require.NoError(t, err)
	column, _, err := eng.AddColumn(ctx, board.ID, nil, "todo", model.ColumnOptions{})
	require.NoError(t, err)
	card, _, err := eng.AddCard(ctx, alice.ID, column.ID, nil, "task", "")
	require.NoError(t, err)
	_, err = eng.AssignUser(ctx, card.ID, alice.ID)
	require.NoError(t, err)

	patches, err := svc.Sync(ctx, board.ID, 0)
	require.NoError(t, err)

	var cardPut, userPut *patch.Patch
	for i := range patches {
		switch patches[i].Name {
		case patch.KindCard:
			cardPut = &patches[i]
		case patch.KindUser:
			userPut = &patches[i]
		}
	}
	require.NotNil(t, cardPut)
	assert.Equal(t, []int64{alice.ID}, cardPut.Fields["assignees"])
	require.NotNil(t, userPut)
	assert.Equal(t, alice.ID, userPut.Fields["id"])
	assert.Equal(t, "Alice", userPut.Fields["name"])
}

func TestSyncMatchesEngineShape(t *testing.T) {
	svc, eng, _ := newFixture(t)
	ctx := context.Background()

	board, _, err := eng.CreateBoard(ctx, 1, "b", "")
	require.NoError(t, err)
	_, created, err := eng.AddColumn(ctx, board.ID, nil, "todo", model.ColumnOptions{})
	require.NoError(t, err)

	synced, err := svc.Sync(ctx, board.ID, 0)
	require.NoError(t, err)

	// The column row comes back with the same field keys whether it arrives
	// as the mutation's own patch or via catch-up.
	var fromEngine, fromSync map[string]any
	for _, p := range created {
		if p.Name == patch.KindColumn {
			fromEngine = p.Fields
		}
	}
	for _, p := range synced {
		if p.Name == patch.KindColumn {
			fromSync = p.Fields
		}
	}
	require.NotNil(t, fromEngine)
	require.NotNil(t, fromSync)
	for _, key := range []string{"id", "board_id", "sequence", "locked", "last_modified"} {
		assert.Equal(t, fromEngine[key], fromSync[key], key)
	}
}
