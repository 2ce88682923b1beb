package command

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"
)

// recordedRequest is a request seen by mockServer.
type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// mockServer is a test HTTP server with handlers keyed by "METHOD /path".
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []recordedRequest
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		m.mu.Lock()
		m.requests = append(m.requests, recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Body: string(body)})
		handler, ok := m.handlers[r.Method+" "+r.URL.EscapedPath()]
		m.mu.Unlock()

		if !ok {
			errorResponse(w, http.StatusNotFound, "NOT_ROUTED", "no mock for "+r.Method+" "+r.URL.EscapedPath(), nil)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for "METHOD /path".
func (m *mockServer) handle(route string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[route] = handler
}

// reply registers a handler that always answers with status and data.
func (m *mockServer) reply(route string, status int, data any) {
	m.handle(route, func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, status, data)
	})
}

// fail registers a handler that always answers with an error envelope.
func (m *mockServer) fail(route string, status int, code string, details any) {
	m.handle(route, func(w http.ResponseWriter, _ *http.Request) {
		errorResponse(w, status, code, http.StatusText(status), details)
	})
}

func (m *mockServer) recorded() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedRequest(nil), m.requests...)
}

// jsonResponse writes a success envelope.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status == http.StatusNoContent {
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"code":       "OK",
		"message":    "Success",
		"request_id": "test-request",
		"data":       data,
	})
}

// errorResponse writes an error envelope.
func errorResponse(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       code,
		"message":    message,
		"request_id": "test-request",
		"details":    details,
	})
}

// runCLI runs the app against server and returns everything it printed.
// A missing config file keeps the user's ~/.shardkv/cli.yaml out of tests.
func runCLI(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	return runCLIWithInput(t, server, "", args...)
}

func runCLIWithInput(t *testing.T, server, input string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := App()
	app.Reader = bytes.NewBufferString(input)
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	argv := []string{AppName, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "--server", server}
	err := app.Run(append(argv, args...))
	return out.String(), err
}
