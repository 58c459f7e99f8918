package auth

import (
	"context"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/opengovern/og-session/pkg/logging"
)

// CallbackTimeout is how long the login flow waits for the provider to
// redirect back.
const CallbackTimeout = 10 * time.Minute

const callbackSuccessHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Login complete</title>
  <style>
    body { font-family: sans-serif; margin: 4em auto; max-width: 30em; text-align: center; }
    h1 { font-size: 1.4em; }
  </style>
</head>
<body>
  <h1>Login complete</h1>
  <p>You can close this window and return to the terminal.</p>
</body>
</html>`

const callbackErrorHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Login failed</title>
  <style>
    body { font-family: sans-serif; margin: 4em auto; max-width: 30em; text-align: center; }
    h1 { font-size: 1.4em; }
    code { background: #eee; padding: 0.2em 0.4em; }
  </style>
</head>
<body>
  <h1>Login failed</h1>
  <p><code>{{.Error}}</code></p>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
</body>
</html>`

// CallbackResult is the outcome of the provider redirecting back to the
// local callback server.
type CallbackResult struct {
	// Code is the authorization code from the provider.
	Code string

	// State is the state parameter echoed back by the provider.
	State string

	// Error is the error code if the authorization failed.
	Error string

	// ErrorDescription is a human-readable error description.
	ErrorDescription string

	// RequestURL is the full URL the provider redirected to, including
	// the query string.
	RequestURL *url.URL
}

// IsError returns true if the callback result represents an error.
func (r *CallbackResult) IsError() bool {
	return r.Error != ""
}

// CallbackServer is a temporary local HTTP server for receiving the
// authorization redirect. It starts, waits for a single callback, then
// shuts down.
type CallbackServer struct {
	port      int
	server    *http.Server
	listener  net.Listener
	resultCh  chan *CallbackResult
	errorCh   chan error
	once      sync.Once
	serverURL string
}

// NewCallbackServer creates a callback server on the given port. If port is
// 0, an available port is picked by the OS.
func NewCallbackServer(port int) *CallbackServer {
	return &CallbackServer{
		port:     port,
		resultCh: make(chan *CallbackResult, 1),
		errorCh:  make(chan error, 1),
	}
}

// Start binds the listener and begins serving. The server stops when the
// context is cancelled. Returns the application root URL ("http://localhost:<port>")
// to base the redirect URI on.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.serverURL = fmt.Sprintf("http://localhost:%d", s.port)

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	logging.Debug("Auth", "Callback server listening on %s", s.serverURL)
	return s.serverURL, nil
}

// WaitForCallback blocks until the provider redirects back, the server
// fails, or the context expires.
func (s *CallbackServer) WaitForCallback(ctx context.Context) (*CallbackResult, error) {
	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errorCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	var handled bool
	s.once.Do(func() {
		handled = true
		s.processCallback(w, r)
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

// processCallback runs exactly once via sync.Once.
func (s *CallbackServer) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()

	requestURL, _ := url.Parse(s.serverURL + CallbackPath)
	requestURL.RawQuery = r.URL.RawQuery

	result := &CallbackResult{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
		RequestURL:       requestURL,
	}

	var tmpl *template.Template
	var data interface{}

	if result.IsError() {
		tmpl = template.Must(template.New("error").Parse(callbackErrorHTML))
		data = map[string]string{
			"Error":       result.Error,
			"Description": result.ErrorDescription,
		}
	} else {
		tmpl = template.Must(template.New("success").Parse(callbackSuccessHTML))
		data = map[string]string{}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}

	select {
	case s.resultCh <- result:
	default:
	}

	// Give the response a moment to flush before shutting down.
	go func() {
		time.Sleep(1 * time.Second)
		s.Stop()
	}()
}

// Stop gracefully shuts down the callback server.
func (s *CallbackServer) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

// Port returns the port the server is listening on.
func (s *CallbackServer) Port() int {
	return s.port
}
