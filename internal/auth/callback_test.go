package auth

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackServer_ReceivesCode(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server := NewCallbackServer(0)
	appRoot, err := server.Start(ctx)
	require.NoError(t, err)
	defer server.Stop()

	resp, err := http.Get(appRoot + CallbackPath + "?code=abc-123&state=xyz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Login complete")

	result, err := server.WaitForCallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", result.Code)
	assert.Equal(t, "xyz", result.State)
	assert.False(t, result.IsError())

	require.NotNil(t, result.RequestURL)
	assert.Equal(t, CallbackPath, result.RequestURL.Path)
	assert.Equal(t, "abc-123", result.RequestURL.Query().Get("code"))
}

func TestCallbackServer_ReceivesError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server := NewCallbackServer(0)
	appRoot, err := server.Start(ctx)
	require.NoError(t, err)
	defer server.Stop()

	resp, err := http.Get(appRoot + CallbackPath + "?error=access_denied&error_description=nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "access_denied")

	result, err := server.WaitForCallback(ctx)
	require.NoError(t, err)
	assert.True(t, result.IsError())
	assert.Equal(t, "access_denied", result.Error)
	assert.Equal(t, "nope", result.ErrorDescription)
}

func TestCallbackServer_SecondCallbackRejected(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server := NewCallbackServer(0)
	appRoot, err := server.Start(ctx)
	require.NoError(t, err)
	defer server.Stop()

	resp, err := http.Get(appRoot + CallbackPath + "?code=first")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(appRoot + CallbackPath + "?code=second")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	result, err := server.WaitForCallback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", result.Code)
}

func TestCallbackServer_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	server := NewCallbackServer(0)
	_, err := server.Start(ctx)
	require.NoError(t, err)

	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer waitCancel()
	_, err = server.WaitForCallback(waitCtx)
	assert.Error(t, err)
}
