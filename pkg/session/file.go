package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// credentialsFile is the on-disk layout: one entry per profile.
type credentialsFile struct {
	Profiles map[string]Credentials `yaml:"profiles"`
}

// FileProvider stores credentials in a YAML file readable only by the
// owner. Several profiles can share one file. Reads are cached and the
// cache is dropped whenever Watch sees the file change.
type FileProvider struct {
	path    string
	profile string

	mu     sync.Mutex
	cached *Credentials
}

// DefaultCredentialsPath returns ~/.shopctl/credentials.yaml.
func DefaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".shopctl", "credentials.yaml")
	}
	return filepath.Join(home, ".shopctl", "credentials.yaml")
}

// NewFileProvider returns a provider for profile stored at path.
func NewFileProvider(path, profile string) *FileProvider {
	if profile == "" {
		profile = "default"
	}
	return &FileProvider{path: path, profile: profile}
}

// Path returns the credentials file location.
func (f *FileProvider) Path() string { return f.path }

func (f *FileProvider) Load(_ context.Context) (Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached != nil {
		if !f.cached.Valid() {
			return Credentials{}, ErrNoCredentials
		}
		return *f.cached, nil
	}
	file, err := f.read()
	if err != nil {
		return Credentials{}, err
	}
	c := file.Profiles[f.profile]
	f.cached = &c
	if !c.Valid() {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

func (f *FileProvider) Save(_ context.Context, c Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, err := f.read()
	if err != nil {
		return err
	}
	file.Profiles[f.profile] = c
	if err := f.write(file); err != nil {
		return err
	}
	f.cached = &c
	return nil
}

func (f *FileProvider) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, err := f.read()
	if err != nil {
		return err
	}
	delete(file.Profiles, f.profile)
	if err := f.write(file); err != nil {
		return err
	}
	f.cached = &Credentials{}
	return nil
}

// invalidate drops the cached credentials so the next Load re-reads the file.
func (f *FileProvider) invalidate() {
	f.mu.Lock()
	f.cached = nil
	f.mu.Unlock()
}

func (f *FileProvider) read() (*credentialsFile, error) {
	file := &credentialsFile{Profiles: map[string]Credentials{}}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return file, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", f.path, err)
	}
	if file.Profiles == nil {
		file.Profiles = map[string]Credentials{}
	}
	return file, nil
}

func (f *FileProvider) write(file *credentialsFile) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	// Write-then-rename so a concurrent reader never sees a truncated file.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

// Watch invalidates the cache whenever the credentials file changes on disk,
// so a long-running dashboard picks up a login or logout done from another
// terminal. onChange (optional) is called after each invalidation. Watch
// blocks until ctx is done.
func (f *FileProvider) Watch(ctx context.Context, logger *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch credentials: %w", err)
	}
	defer w.Close()

	// Watch the directory: the file is replaced by rename, which drops a
	// watch placed on the file itself.
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("watch credentials: %w", err)
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch credentials: %w", err)
	}

	name := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			f.invalidate()
			if logger != nil {
				logger.Debug("credentials file changed", slog.String("path", f.path), slog.String("op", ev.Op.String()))
			}
			if onChange != nil {
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Warn("credentials watcher error", slog.String("error", err.Error()))
			}
		}
	}
}
