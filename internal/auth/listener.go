package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/browser"

	"github.com/sakif/membersync/internal/apperror"
	"github.com/sakif/membersync/internal/middleware"
)

// CallbackListener is the local-redirect implementation of
// AuthorizationFlow: it binds a loopback HTTP server, opens the user's
// browser at the authorization URL, and waits for the provider to
// redirect back to the registered callback route.
//
// The client registration at the provider must list
// http://localhost:<port><path> as a redirect URI.
type CallbackListener struct {
	port   int
	path   string
	logger *slog.Logger

	// openBrowser is swappable for tests; defaults to pkg/browser.
	openBrowser func(url string) error
}

var _ AuthorizationFlow = (*CallbackListener)(nil)

// NewCallbackListener creates a listener on the given loopback port and
// callback path (e.g. 8964, "/callback").
func NewCallbackListener(port int, path string, logger *slog.Logger) *CallbackListener {
	return &CallbackListener{
		port:        port,
		path:        path,
		logger:      logger,
		openBrowser: browser.OpenURL,
	}
}

// Present starts the listener, opens the browser, and blocks until the
// redirect arrives, the server fails, or ctx is cancelled.
//
// TEARDOWN INVARIANT:
// The server is shut down exactly once per attempt, on EVERY exit path —
// success, provider error, server failure, cancellation. The single
// deferred Shutdown below is what guarantees that; nothing else stops
// the server.
func (l *CallbackListener) Present(ctx context.Context, authorizationURL string) (CallbackParams, error) {
	// Buffered so the handler never blocks if we've already given up.
	paramsCh := make(chan CallbackParams, 1)

	router := chi.NewRouter()
	router.Use(middleware.Logger(l.logger))
	router.Get(l.path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		params := CallbackParams{
			Code:      query.Get("code"),
			State:     query.Get("state"),
			ErrorCode: query.Get("error"),
		}

		// The browser tab gets a terse acknowledgement either way. State
		// verification and error classification belong to the manager —
		// the listener only ferries parameters.
		if params.ErrorCode != "" {
			http.Error(w, "Authorization failed. You can close this window.", http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization received. You can close this window.")
		}

		select {
		case paramsCh <- params:
		default:
			// A second hit on the callback (refresh, stray request) after
			// the first outcome is already delivered — drop it.
		}
	})

	addr := fmt.Sprintf("127.0.0.1:%d", l.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return CallbackParams{}, fmt.Errorf("auth: binding callback listener on %s: %w", addr, err)
	}

	server := &http.Server{Handler: router}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			l.logger.Warn("callback listener shutdown", slog.String("error", err.Error()))
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	l.logger.Info("opening authorization page", slog.String("addr", addr))
	if err := l.openBrowser(authorizationURL); err != nil {
		// Not fatal — headless environments can follow the URL by hand.
		l.logger.Warn("could not open browser, visit the URL manually",
			slog.String("url", authorizationURL),
			slog.String("error", err.Error()),
		)
	}

	select {
	case params := <-paramsCh:
		return params, nil
	case err := <-serveErr:
		return CallbackParams{}, fmt.Errorf("auth: callback listener failed: %w", err)
	case <-ctx.Done():
		return CallbackParams{}, apperror.Cancelled(ctx.Err().Error())
	}
}
