package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tendant/simple-features/pkg/blob"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Config{RootDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestNewRequiresExistingDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty root")
	}
	if _, err := New(Config{RootDir: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing root")
	}
	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Config{RootDir: file}); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Put(ctx, "a/b.txt", strings.NewReader("hi")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	b, err := store.Get(ctx, "a/b.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.Key() != "/a/b.txt" {
		t.Errorf("key = %q, want %q", b.Key(), "/a/b.txt")
	}
	data, err := blob.ReadAll(ctx, b)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hi" {
		t.Errorf("content = %q, want %q", data, "hi")
	}
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Get(ctx, "nope.txt")
	if !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("Get missing err = %v, want ErrNotFound", err)
	}
	var serr *blob.StorageError
	if !errors.As(err, &serr) {
		t.Fatal("expected a StorageError")
	}
	if serr.Op != "get" {
		t.Errorf("op = %q, want %q", serr.Op, "get")
	}
}

func TestGetDirectoryKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Put(ctx, "dir/file.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Get(ctx, "dir"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("Get on directory err = %v, want ErrNotFound", err)
	}
}

func TestPutter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	w, err := store.Putter(ctx, "stream/out.txt")
	if err != nil {
		t.Fatalf("Putter: %v", err)
	}
	if _, err := w.Write([]byte("streamed")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := store.Get(ctx, "stream/out.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := blob.ReadAll(ctx, b)
	if string(data) != "streamed" {
		t.Errorf("content = %q, want %q", data, "streamed")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Put(ctx, "a/b.txt", strings.NewReader("hi")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "a/b.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "a/b.txt"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("Get after delete err = %v, want ErrNotFound", err)
	}

	// Missing keys and directory keys delete as no-ops.
	if err := store.Delete(ctx, "a/b.txt"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete directory: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.root, "a")); err != nil {
		t.Fatal("directory should survive delete")
	}
}

func TestEscapeRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, key := range []string{"../x", "a/../../x", "/../../etc/passwd"} {
		if _, err := store.Get(ctx, key); !errors.Is(err, blob.ErrKeyEscapesRoot) {
			t.Errorf("Get(%q) err = %v, want ErrKeyEscapesRoot", key, err)
		}
		if err := store.Put(ctx, key, strings.NewReader("x")); !errors.Is(err, blob.ErrKeyEscapesRoot) {
			t.Errorf("Put(%q) err = %v, want ErrKeyEscapesRoot", key, err)
		}
		if _, err := store.Putter(ctx, key); !errors.Is(err, blob.ErrKeyEscapesRoot) {
			t.Errorf("Putter(%q) err = %v, want ErrKeyEscapesRoot", key, err)
		}
		if err := store.Delete(ctx, key); !errors.Is(err, blob.ErrKeyEscapesRoot) {
			t.Errorf("Delete(%q) err = %v, want ErrKeyEscapesRoot", key, err)
		}
		if _, err := store.Namespace(ctx, key); !errors.Is(err, blob.ErrKeyEscapesRoot) {
			t.Errorf("Namespace(%q) err = %v, want ErrKeyEscapesRoot", key, err)
		}
	}
}

func TestSymlinkEscapeRejected(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret"), []byte("s"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	store, err := New(Config{RootDir: root})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(ctx, "link/secret"); !errors.Is(err, blob.ErrKeyEscapesRoot) {
		t.Fatalf("Get through symlink err = %v, want ErrKeyEscapesRoot", err)
	}
}

func TestNamespaceComposition(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	nested, err := store.Namespace(ctx, "p1")
	if err != nil {
		t.Fatalf("Namespace: %v", err)
	}
	nested, err = nested.Namespace(ctx, "p2")
	if err != nil {
		t.Fatalf("Namespace: %v", err)
	}
	direct, err := store.Namespace(ctx, "p1/p2")
	if err != nil {
		t.Fatalf("Namespace: %v", err)
	}

	if err := nested.Put(ctx, "x.txt", strings.NewReader("via nested")); err != nil {
		t.Fatal(err)
	}
	b, err := direct.Get(ctx, "x.txt")
	if err != nil {
		t.Fatalf("Get through composed namespace: %v", err)
	}
	data, _ := blob.ReadAll(ctx, b)
	if string(data) != "via nested" {
		t.Errorf("content = %q, want %q", data, "via nested")
	}

	// Namespace keys are relative to the view, not the parent root.
	if b.Key() != "/x.txt" {
		t.Errorf("key = %q, want %q", b.Key(), "/x.txt")
	}
}

func TestNamespaceKeepsDeleteCapability(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ns, err := store.Namespace(ctx, "sub")
	if err != nil {
		t.Fatal(err)
	}
	del, ok := ns.(blob.DeletableStorage)
	if !ok {
		t.Fatal("namespace view should keep the delete capability")
	}
	if err := del.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestWalk(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Put(ctx, "a/b.txt", strings.NewReader("hi")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "c.txt", strings.NewReader("top")); err != nil {
		t.Fatal(err)
	}

	seen := map[string]string{}
	err := store.Walk(ctx, func(b blob.Blob) error {
		data, err := blob.ReadAll(ctx, b)
		if err != nil {
			return err
		}
		seen[b.Key()] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("walked %d blobs, want 2: %v", len(seen), seen)
	}
	if seen["/a/b.txt"] != "hi" {
		t.Errorf("seen[/a/b.txt] = %q, want %q", seen["/a/b.txt"], "hi")
	}
	if seen["/c.txt"] != "top" {
		t.Errorf("seen[/c.txt] = %q, want %q", seen["/c.txt"], "top")
	}
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, k := range []string{"1.txt", "2.txt", "3.txt"} {
		if err := store.Put(ctx, k, strings.NewReader("x")); err != nil {
			t.Fatal(err)
		}
	}

	boom := errors.New("boom")
	calls := 0
	err := store.Walk(ctx, func(blob.Blob) error {
		calls++
		return boom
	})
	if err != boom {
		t.Fatalf("Walk err = %v, want the callback error unchanged", err)
	}
	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
}

func TestWalkHonorsContext(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put(context.Background(), "a.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Walk(ctx, func(blob.Blob) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("Walk err = %v, want context.Canceled", err)
	}
}
