package weights

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingServer(t *testing.T, body string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEnsureLocalDownloadsOnce(t *testing.T) {
	var hits atomic.Int32
	srv := countingServer(t, "weights-bytes", &hits)
	path := filepath.Join(t.TempDir(), "nested", "encoder.gob")
	p := NewProvisioner(time.Second)

	got, err := p.EnsureLocal(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	got, err = p.EnsureLocal(context.Background(), srv.URL, path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "weights-bytes", string(raw))
	assert.Equal(t, int32(1), hits.Load())
}

func TestEnsureLocalTrustsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decoder.gob")
	require.NoError(t, os.WriteFile(path, []byte("local"), 0o644))

	p := NewProvisioner(time.Second)
	got, err := p.EnsureLocal(context.Background(), "http://127.0.0.1:1/unreachable", path)
	require.NoError(t, err)
	assert.Equal(t, path, got)
}

func TestEnsureLocalRejectsDirectoryAtPath(t *testing.T) {
	var hits atomic.Int32
	srv := countingServer(t, "x", &hits)
	path := filepath.Join(t.TempDir(), "encoder.gob")
	require.NoError(t, os.Mkdir(path, 0o755))

	got, err := NewProvisioner(time.Second).EnsureLocal(context.Background(), srv.URL, path)
	require.ErrorIs(t, err, ErrProvision)
	assert.Empty(t, got)
	assert.Zero(t, hits.Load())
}

func TestEnsureLocalRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "encoder.gob")
	_, err := NewProvisioner(time.Second).EnsureLocal(context.Background(), srv.URL, path)
	require.ErrorIs(t, err, ErrProvision)
	assert.Contains(t, err.Error(), "404")

	assert.NoFileExists(t, path)
	assertNoTempFiles(t, dir)
}

func TestEnsureLocalTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	dir := t.TempDir()
	path := filepath.Join(dir, "encoder.gob")
	_, err := NewProvisioner(50*time.Millisecond).EnsureLocal(context.Background(), srv.URL, path)
	require.ErrorIs(t, err, ErrProvision)
	assert.NoFileExists(t, path)
}

func TestEnsureLocalTruncatedBodyLeavesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("short"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "encoder.gob")
	_, err := NewProvisioner(time.Second).EnsureLocal(context.Background(), srv.URL, path)
	require.ErrorIs(t, err, ErrProvision)
	assert.NoFileExists(t, path)
	assertNoTempFiles(t, dir)
}

func TestEnsureLocalHonoursCancelledContext(t *testing.T) {
	var hits atomic.Int32
	srv := countingServer(t, "x", &hits)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvisioner(time.Second).EnsureLocal(ctx, srv.URL, filepath.Join(t.TempDir(), "w.gob"))
	assert.ErrorIs(t, err, ErrProvision)
	assert.Zero(t, hits.Load())
}

func TestEnsureLocalConcurrentCallersShareOneFetch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "decoder.gob")
	p := NewProvisioner(5 * time.Second)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = p.EnsureLocal(context.Background(), srv.URL, path)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}
