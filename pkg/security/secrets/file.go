package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce collapses the burst of events an editor or a mounted
// secret volume produces for one logical change.
const defaultDebounce = 200 * time.Millisecond

// FileProvider loads secrets from individual files in a directory.
//
// Each secret is stored as a separate file named after the secret, the
// layout used by mounted secret volumes. Files must have 0600 or 0400
// permissions.
//
// With watching enabled, the directory is monitored and the cache is
// dropped whenever a file changes; registered OnChange callbacks then run
// once per burst of events.
type FileProvider struct {
	BasePath string // Directory containing secret files

	mu        sync.RWMutex
	cache     map[string]string
	listeners []func()

	watcher  *fsnotify.Watcher
	debounce time.Duration
	stopCh   chan struct{}
	done     chan struct{}
}

// NewFileProvider creates a new file-based secret provider.
func NewFileProvider(basePath string, watch bool) (*FileProvider, error) {
	return newFileProvider(basePath, watch, defaultDebounce)
}

func newFileProvider(basePath string, watch bool, debounce time.Duration) (*FileProvider, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets path is not a directory: %s", basePath)
	}

	p := &FileProvider{
		BasePath: basePath,
		cache:    make(map[string]string),
		debounce: debounce,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}

	if !watch {
		close(p.done)
		slog.Info("file-based secret provider started without watching", "path", basePath)
		return p, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(basePath); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	p.watcher = watcher
	go p.watchLoop()

	slog.Info("file-based secret provider started with watching", "path", basePath)
	return p, nil
}

// GetSecret reads the secret from "<BasePath>/<name>", trimming
// surrounding whitespace. Names that escape the directory are rejected.
func (p *FileProvider) GetSecret(ctx context.Context, name string) (string, error) {
	p.mu.RLock()
	value, ok := p.cache[name]
	p.mu.RUnlock()
	if ok {
		return value, nil
	}

	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid secret name %q", name)
	}
	path := filepath.Join(p.BasePath, name)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w in %s: %s", ErrNotFound, p.BasePath, name)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", name)
	}

	mode := info.Mode().Perm()
	if mode != 0600 && mode != 0400 {
		return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}

	// #nosec G304 - name is a single path element inside BasePath
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}

	value = strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNotFound, name)
	}

	p.mu.Lock()
	p.cache[name] = value
	p.mu.Unlock()

	return value, nil
}

// Provider returns the provider name.
func (p *FileProvider) Provider() string {
	return "file"
}

// Refresh clears the cache, forcing secrets to be re-read from files.
func (p *FileProvider) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.cache = make(map[string]string)
	p.mu.Unlock()

	slog.Debug("file-based secrets cache cleared", "path", p.BasePath)
	return nil
}

// OnChange registers fn to run after files in the directory change.
// Callbacks run on the watcher goroutine, after the cache was dropped.
func (p *FileProvider) OnChange(fn func()) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Close stops the file watcher and waits for it to exit.
func (p *FileProvider) Close() error {
	if p.watcher == nil {
		return nil
	}
	select {
	case <-p.stopCh:
		return nil
	default:
	}
	close(p.stopCh)
	err := p.watcher.Close()
	<-p.done
	return err
}

func (p *FileProvider) watchLoop() {
	defer close(p.done)

	var pending <-chan time.Time
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}

			slog.Debug("secret file change detected",
				"file", filepath.Base(event.Name),
				"op", event.Op.String(),
			)
			pending = time.After(p.debounce)

		case <-pending:
			pending = nil
			_ = p.Refresh(context.Background())
			p.notify()

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("secret file watcher error", "error", err)

		case <-p.stopCh:
			return
		}
	}
}

func (p *FileProvider) notify() {
	p.mu.RLock()
	listeners := append([]func(){}, p.listeners...)
	p.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}
