package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testProvider runs the Provider contract against p.
func testProvider(t *testing.T, p Provider) {
	t.Helper()
	ctx := context.Background()

	if _, err := p.Load(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("Load on empty provider: got %v, want ErrNoCredentials", err)
	}

	want := Credentials{
		Email:        "admin@shopsphere.test",
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		IssuedAt:     time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := p.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.Email != want.Email || !got.IssuedAt.Equal(want.IssuedAt) {
		t.Errorf("Load = %+v, want %+v", got, want)
	}

	tok, err := TokenSource(p).Token(ctx)
	if err != nil || tok != "access-1" {
		t.Errorf("Token = %q, %v", tok, err)
	}

	if err := p.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := p.Clear(ctx); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if _, err := p.Load(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Load after Clear: got %v", err)
	}
}

func TestMemoryProvider(t *testing.T) {
	testProvider(t, NewMemoryProvider(Credentials{}))
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")
	testProvider(t, NewFileProvider(path, "prod"))
}

func TestFileProviderPermissionsAndProfiles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.yaml")

	prod := NewFileProvider(path, "prod")
	staging := NewFileProvider(path, "staging")
	if err := prod.Save(ctx, Credentials{AccessToken: "p"}); err != nil {
		t.Fatal(err)
	}
	if err := staging.Save(ctx, Credentials{AccessToken: "s"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("credentials file mode = %04o, want 0600", perm)
	}

	// A fresh provider reads what the others wrote.
	c, err := NewFileProvider(path, "prod").Load(ctx)
	if err != nil || c.AccessToken != "p" {
		t.Errorf("prod = %+v, %v", c, err)
	}
	if err := staging.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	c, err = NewFileProvider(path, "prod").Load(ctx)
	if err != nil || c.AccessToken != "p" {
		t.Errorf("clearing staging must keep prod: %+v, %v", c, err)
	}
}

func TestFileProviderWatchPicksUpExternalLogin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	path := filepath.Join(t.TempDir(), "credentials.yaml")

	watched := NewFileProvider(path, "default")
	if _, err := watched.Load(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("expected empty provider, got %v", err)
	}

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() { done <- watched.Watch(ctx, nil, func() { changed <- struct{}{} }) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := NewFileProvider(path, "default").Save(ctx, Credentials{AccessToken: "from-other-terminal"}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the credentials change")
	}
	c, err := watched.Load(ctx)
	if err != nil || c.AccessToken != "from-other-terminal" {
		t.Errorf("Load after change = %+v, %v", c, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	if _, err := Static("").Load(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("empty static: %v", err)
	}
	c, err := Static("tok").Load(ctx)
	if err != nil || c.AccessToken != "tok" {
		t.Errorf("static = %+v, %v", c, err)
	}
	if err := Static("tok").Save(ctx, Credentials{}); err == nil {
		t.Error("Save on static provider should fail")
	}
}

// TestEtcdProvider is an integration test. It requires a running etcd:
//
//	SHOPCTL_TEST_ETCD=http://localhost:2379 go test ./pkg/session/...
func TestEtcdProvider(t *testing.T) {
	addr := os.Getenv("SHOPCTL_TEST_ETCD")
	if addr == "" {
		t.Skip("set SHOPCTL_TEST_ETCD=http://localhost:2379 to run etcd integration tests")
	}
	p, err := NewEtcdProvider(strings.Split(addr, ","), fmt.Sprintf("test-%d", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("NewEtcdProvider: %v", err)
	}
	defer p.Close()
	testProvider(t, p)
}
