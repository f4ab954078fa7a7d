package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/membersync/internal/apperror"
)

const testListenerPort = 18964

func newTestListener(t *testing.T, open func(url string) error) *CallbackListener {
	t.Helper()
	l := NewCallbackListener(testListenerPort, "/callback", slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.openBrowser = open
	return l
}

// hitCallback simulates the provider redirecting the browser back to the
// loopback listener, returning the HTTP status the browser tab would see.
// It runs on helper goroutines, so failures are reported as a status of -1
// rather than through the testing API.
func hitCallback(t *testing.T, query string) int {
	t.Helper()
	url := fmt.Sprintf("http://127.0.0.1:%d/callback?%s", testListenerPort, query)
	resp, err := http.Get(url)
	if err != nil {
		t.Logf("callback request failed: %v", err)
		return -1
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

// === SUCCESSFUL REDIRECT ===

func TestPresentDeliversCallbackParams(t *testing.T) {
	statusCh := make(chan int, 1)
	listener := newTestListener(t, func(url string) error {
		assert.Equal(t, "https://idp.example/authorize", url)
		go func() { statusCh <- hitCallback(t, "code=abc123&state=s1") }()
		return nil
	})

	params, err := listener.Present(context.Background(), "https://idp.example/authorize")
	require.NoError(t, err)

	assert.Equal(t, "abc123", params.Code)
	assert.Equal(t, "s1", params.State)
	assert.Empty(t, params.ErrorCode)
	assert.Equal(t, http.StatusOK, <-statusCh)
}

func TestPresentFerriesProviderError(t *testing.T) {
	statusCh := make(chan int, 1)
	listener := newTestListener(t, func(url string) error {
		go func() { statusCh <- hitCallback(t, "error=access_denied&state=s1") }()
		return nil
	})

	params, err := listener.Present(context.Background(), "https://idp.example/authorize")
	require.NoError(t, err, "classification is the manager's job, not the listener's")

	assert.Equal(t, "access_denied", params.ErrorCode)
	assert.Empty(t, params.Code)
	assert.Equal(t, http.StatusBadRequest, <-statusCh)
}

// === BROWSER FAILURE IS NON-FATAL ===

func TestPresentSurvivesBrowserOpenFailure(t *testing.T) {
	listener := newTestListener(t, func(url string) error {
		go func() { hitCallback(t, "code=xyz&state=s2") }()
		return errors.New("no display")
	})

	params, err := listener.Present(context.Background(), "https://idp.example/authorize")
	require.NoError(t, err)
	assert.Equal(t, "xyz", params.Code)
}

// === CANCELLATION ===

func TestPresentHonoursContextCancellation(t *testing.T) {
	listener := newTestListener(t, func(url string) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := listener.Present(ctx, "https://idp.example/authorize")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrAuthorizationCancelled)
}

// === TEARDOWN ===

func TestPresentReleasesPortOnExit(t *testing.T) {
	listener := newTestListener(t, func(url string) error {
		go func() { hitCallback(t, "code=one&state=s") }()
		return nil
	})

	_, err := listener.Present(context.Background(), "https://idp.example/authorize")
	require.NoError(t, err)

	// The deferred shutdown must have released the port — a second attempt
	// binds the same address cleanly.
	_, err = listener.Present(context.Background(), "https://idp.example/authorize")
	require.NoError(t, err)
}

func TestPresentFailsFastWhenPortTaken(t *testing.T) {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", testListenerPort))
	require.NoError(t, err)
	defer ln.Close()

	listener := newTestListener(t, func(url string) error {
		t.Fatal("browser must not open when the listener cannot bind")
		return nil
	})

	_, err = listener.Present(context.Background(), "https://idp.example/authorize")
	require.Error(t, err)
}
