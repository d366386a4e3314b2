package weights

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/b0tShaman/hotseats/logging"
)

// DefaultTimeout bounds one download, including reading the body.
const DefaultTimeout = 5 * time.Minute

const lockRetryDelay = 100 * time.Millisecond

// ErrProvision marks an artifact that could not be fetched.
var ErrProvision = errors.New("provision weights")

// Provisioner fetches artifacts into local paths. The zero value is not
// usable; construct one with NewProvisioner.
type Provisioner struct {
	client *http.Client
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]chan struct{}
}

type Option func(*Provisioner)

// WithHTTPClient replaces the default client. Its Timeout is left as given.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provisioner) { p.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) { p.logger = logging.NewComponentLogger(l, "weights") }
}

// NewProvisioner returns a provisioner whose downloads are bounded by
// timeout; a non-positive timeout selects DefaultTimeout.
func NewProvisioner(timeout time.Duration, opts ...Option) *Provisioner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p := &Provisioner{
		client: &http.Client{Timeout: timeout},
		logger: logging.NewComponentLogger(nil, "weights"),
		locks:  make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureLocal returns localPath once it holds the artifact at remoteURL.
// An existing file is trusted as is; no checksum or freshness check is made.
func (p *Provisioner) EnsureLocal(ctx context.Context, remoteURL, localPath string) (string, error) {
	switch ok, err := exists(localPath); {
	case err != nil:
		return "", err
	case ok:
		return localPath, nil
	}

	unlock, err := p.lockPath(ctx, localPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrProvision, localPath, err)
	}
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("%w: create directory: %w", ErrProvision, err)
	}

	fl := flock.New(localPath + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		return "", fmt.Errorf("%w: lock %s: %w", ErrProvision, localPath, lockErr(ctx, err))
	}
	defer fl.Unlock() //nolint:errcheck

	// Another caller may have finished while we waited.
	switch ok, err := exists(localPath); {
	case err != nil:
		return "", err
	case ok:
		return localPath, nil
	}

	if err := p.download(ctx, remoteURL, localPath); err != nil {
		return "", err
	}
	return localPath, nil
}

func (p *Provisioner) download(ctx context.Context, remoteURL, localPath string) error {
	logger := p.logger.With(logging.String(logging.FieldURL, remoteURL), logging.String(logging.FieldPath, localPath))
	logger.Info("downloading weights")
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProvision, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetch %s: %w", ErrProvision, remoteURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: fetch %s: unexpected status %d", ErrProvision, remoteURL, resp.StatusCode)
	}

	tempPath := filepath.Join(filepath.Dir(localPath), "."+filepath.Base(localPath)+"."+uuid.NewString()+".tmp")
	n, err := writeFile(tempPath, resp.Body)
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: fetch %s: %w", ErrProvision, remoteURL, err)
	}
	if err := os.Rename(tempPath, localPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("%w: replace %s: %w", ErrProvision, localPath, err)
	}

	logger.Info("weights downloaded",
		logging.String("size", humanize.Bytes(uint64(n))),
		logging.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
	)
	return nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// lockPath serialises callers in this process that target the same path.
func (p *Provisioner) lockPath(ctx context.Context, path string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	ch, ok := p.locks[path]
	if !ok {
		ch = make(chan struct{}, 1)
		p.locks[path] = ch
	}
	p.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func exists(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return false, fmt.Errorf("%w: %s is a directory", ErrProvision, path)
		}
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: stat %s: %w", ErrProvision, path, err)
	}
}

func lockErr(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.New("lock not acquired")
}
