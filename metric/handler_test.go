package metric

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer lets the test read log output written from the serve goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServerMount(t *testing.T) {
	s := NewServer(0, "", NewRegistry())
	s.Mount("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Mounted routes share the mux with the metrics handler
	mux := http.NewServeMux()
	mux.Handle(s.path, s.Handler())
	for path, handler := range s.routes {
		mux.Handle(path, handler)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerStartLogsServeFailure(t *testing.T) {
	// Occupy a port so the server's listen fails
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()
	port := listener.Addr().(*net.TCPAddr).Port

	out := &syncBuffer{}
	s := NewServer(port, "/metrics", NewRegistry())
	s.SetLogger(slog.New(slog.NewTextHandler(out, nil)))

	require.NoError(t, s.Start())
	defer func() { _ = s.Stop(context.Background()) }()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "metrics server failed")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerDoubleStart(t *testing.T) {
	s := NewServer(0, "", NewRegistry())
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop(context.Background()) }()

	assert.Error(t, s.Start())
}
