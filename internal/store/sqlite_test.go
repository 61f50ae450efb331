package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-autocart/pkg/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStoreSaveAndGet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	sess := &models.SessionData{
		ID:          "s1",
		PhoneNumber: "9876543210",
		Platform:    "zepto",
		State:       models.StateAuthenticated,
		Cookies: []models.Cookie{
			{Name: "auth", Value: "token", Domain: ".zepto.in", Path: "/", HTTPOnly: true, Secure: true},
		},
		CurrentURL:      "https://zepto.in/home",
		DOMSnapshot:     "<html></html>",
		IsAuthenticated: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.PhoneNumber, got.PhoneNumber)
	assert.Equal(t, sess.Platform, got.Platform)
	assert.Equal(t, models.StateAuthenticated, got.State)
	assert.True(t, got.IsAuthenticated)
	assert.Equal(t, sess.CurrentURL, got.CurrentURL)
	assert.Equal(t, sess.DOMSnapshot, got.DOMSnapshot)
	require.Len(t, got.Cookies, 1)
	assert.Equal(t, "auth", got.Cookies[0].Name)
	assert.True(t, got.Cookies[0].HTTPOnly)
}

func TestSQLiteStoreUpsert(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now()
	sess := &models.SessionData{
		ID: "s1", PhoneNumber: "9876543210", Platform: "blinkit",
		State: models.StateOTPPending, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.Save(ctx, sess))

	sess.State = models.StateAuthenticated
	sess.IsAuthenticated = true
	sess.UpdatedAt = now.Add(time.Second)
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.StateAuthenticated, got.State)
	assert.True(t, got.IsAuthenticated)
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreDelete(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.Save(ctx, &models.SessionData{
		ID: "s1", PhoneNumber: "9876543210", Platform: "blinkit",
		State: models.StateOTPPending, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "s1"), "deleting an unknown id is a no-op")

	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorePing(t *testing.T) {
	s := newTestSQLiteStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
