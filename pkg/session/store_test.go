package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier/pkg/config"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "assistant")
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	require.NoError(t, store.AppendMessage(ctx, session.ID, "user", "hello"))
	require.NoError(t, store.AppendMessage(ctx, session.ID, "assistant", "hi there"))

	messages, err := store.Messages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, 1, messages[0].Seq)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, 2, messages[1].Seq)
	assert.Equal(t, "hi there", messages[1].Content)

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "assistant", sessions[0].Agent)

	require.NoError(t, store.DeleteSession(ctx, session.ID))
	_, err = store.Messages(ctx, session.ID)
	assert.Error(t, err)
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.GetSession(ctx, "nope")
	assert.Error(t, err)
	assert.Error(t, store.AppendMessage(ctx, "nope", "user", "hello"))
	assert.Error(t, store.DeleteSession(ctx, "nope"))
}

func TestSQLStoreSQLite(t *testing.T) {
	store, err := NewSQLStore(config.SQLConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "sessions.db"),
	})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "researcher")
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage(ctx, session.ID, "user", "what is Go?"))
	require.NoError(t, store.AppendMessage(ctx, session.ID, "assistant", "a programming language"))
	require.NoError(t, store.AppendMessage(ctx, session.ID, "user", "thanks"))

	messages, err := store.Messages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i, msg := range messages {
		assert.Equal(t, i+1, msg.Seq)
	}
	assert.Equal(t, "thanks", messages[2].Content)

	loaded, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "researcher", loaded.Agent)
	assert.False(t, loaded.UpdatedAt.Before(loaded.CreatedAt))

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, store.DeleteSession(ctx, session.ID))
	_, err = store.GetSession(ctx, session.ID)
	assert.Error(t, err)
	assert.Error(t, store.AppendMessage(ctx, session.ID, "user", "gone"))
}

func TestNewStore(t *testing.T) {
	cfg := config.SessionConfig{Backend: "memory"}
	store, err := New(cfg)
	require.NoError(t, err)
	defer store.Close()
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)

	_, err = New(config.SessionConfig{Backend: "carrier-pigeon"})
	assert.Error(t, err)
}
