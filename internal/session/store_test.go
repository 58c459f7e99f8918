package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	store, err := NewStore(StoreConfig{StorageDir: dir, FileMode: true})
	require.NoError(t, err)
	return store
}

func TestStoreReadEmpty(t *testing.T) {
	store := createTestStore(t, t.TempDir())

	rec := store.Read()
	assert.Equal(t, Record{}, rec)
	assert.False(t, rec.HasCredential())
}

func TestStoreWritePersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	store := createTestStore(t, dir)

	rec := Record{
		Token:        "header.payload.sig",
		IsSuccessful: true,
		RawResponse:  map[string]interface{}{"access_token": "header.payload.sig", "token_type": "bearer"},
	}
	store.Write(rec)

	// The slot must hold the full serialized record.
	data, err := os.ReadFile(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	var onDisk Record
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.True(t, rec.Equal(onDisk))

	// A fresh store over the same directory seeds from the slot.
	restarted := createTestStore(t, dir)
	assert.True(t, rec.Equal(restarted.Read()))
}

func TestStoreCorruptSlotTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "session.json"), []byte("{not json"), 0600))

	store := createTestStore(t, dir)
	assert.Equal(t, Record{}, store.Read())
}

func TestStoreSubscribe(t *testing.T) {
	store := createTestStore(t, t.TempDir())

	var got []Record
	unsubscribe := store.Subscribe(func(rec Record) {
		got = append(got, rec)
	})

	store.Write(Record{IsLoading: true})
	store.Write(Record{Token: "a.b.c", IsSuccessful: true})

	require.Len(t, got, 2)
	assert.True(t, got[0].IsLoading)
	assert.Equal(t, "a.b.c", got[1].Token)

	unsubscribe()
	store.Write(Record{})
	assert.Len(t, got, 2)
}

func TestStoreInMemoryMode(t *testing.T) {
	store, err := NewStore(StoreConfig{StorageDir: t.TempDir(), FileMode: false})
	require.NoError(t, err)

	store.Write(Record{Token: "a.b.c", IsSuccessful: true})
	assert.True(t, store.Read().HasCredential())

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestStoreWatchPicksUpExternalWrite(t *testing.T) {
	dir := t.TempDir()
	store := createTestStore(t, dir)
	require.False(t, store.Read().HasCredential())

	changed := make(chan Record, 4)
	store.Subscribe(func(rec Record) {
		changed <- rec
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- store.Watch(ctx)
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	// Simulate a second process completing a login.
	external := createTestStore(t, dir)
	external.Write(Record{Token: "x.y.z", IsSuccessful: true})

	select {
	case rec := <-changed:
		assert.Equal(t, "x.y.z", rec.Token)
		assert.True(t, store.Read().IsSuccessful)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher notification")
	}

	cancel()
	select {
	case err := <-watchDone:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher shutdown")
	}
}

func TestReturnURLStoreSaveTake(t *testing.T) {
	dir := t.TempDir()
	slot, err := NewReturnURLStore(StoreConfig{StorageDir: dir, FileMode: true})
	require.NoError(t, err)

	assert.Empty(t, slot.Take())

	slot.Save("https://app.example.com/compliance/benchmarks?page=2")
	assert.Equal(t, "https://app.example.com/compliance/benchmarks?page=2", slot.Take())

	// The slot is cleared after one read.
	assert.Empty(t, slot.Take())
	_, err = os.Stat(filepath.Join(dir, "return_url"))
	assert.True(t, os.IsNotExist(err))
}

func TestReturnURLStoreSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	slot, err := NewReturnURLStore(StoreConfig{StorageDir: dir, FileMode: true})
	require.NoError(t, err)
	slot.Save("https://app.example.com/dashboard")

	// The redirect round trip may land in a fresh process.
	reloaded, err := NewReturnURLStore(StoreConfig{StorageDir: dir, FileMode: true})
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/dashboard", reloaded.Take())
}

func TestRecordOAuth2Token(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	rec := Record{Token: "a.b.c", IsSuccessful: true}

	tok := rec.OAuth2Token(expiry)
	assert.Equal(t, "a.b.c", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, expiry, tok.Expiry)
	assert.True(t, tok.Valid())
}
