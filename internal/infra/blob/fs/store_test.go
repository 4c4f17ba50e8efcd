package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"speciesdesk/internal/blob/core"
)

func newTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStorePutGetListDelete(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)

	info, err := store.Put(ctx, "species/lion.png", bytes.NewReader([]byte("roar")),
		core.PutOptions{ContentType: "image/png", Metadata: map[string]string{"uploaded_by": "u1"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 4 || info.ETag == "" || info.ContentType != "image/png" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, "species/lion.png", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, rc, err := store.Get(ctx, "species/lion.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "roar" || got.ETag != info.ETag || got.Metadata["uploaded_by"] != "u1" {
		t.Fatalf("unexpected get %+v %q", got, body)
	}

	if _, err := store.Put(ctx, "other/x.png", bytes.NewReader([]byte("x")), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	list, err := store.List(ctx, "species/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "species/lion.png" {
		t.Fatalf("unexpected list %+v", list)
	}

	existed, err := store.Delete(ctx, "species/lion.png")
	if err != nil || !existed {
		t.Fatalf("delete existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "species/lion.png")
	if err != nil || existed {
		t.Fatalf("second delete existed=%v err=%v", existed, err)
	}
	if _, _, err := store.Get(ctx, "species/lion.png"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		key     string
		wantErr bool
	}{
		{"species/a.png", false},
		{"", true},
		{"   ", true},
		{"/etc/passwd", true},
		{"../escape", true},
		{"species/a.png.meta", true},
	}
	for _, tc := range cases {
		_, err := sanitizeKey(tc.key)
		if (err != nil) != tc.wantErr {
			t.Fatalf("sanitizeKey(%q) err=%v wantErr=%v", tc.key, err, tc.wantErr)
		}
	}
}

func TestGetCorruptMeta(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)
	if _, err := store.Put(ctx, "a.png", bytes.NewReader([]byte("a")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.root, "a.png.meta"), []byte("{"), 0o600); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	if _, _, err := store.Get(ctx, "a.png"); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := store.List(ctx, ""); err == nil {
		t.Fatal("expected list decode error")
	}
}

func TestNewDefaultRoot(t *testing.T) {
	wd, wdErr := os.Getwd()
	if wdErr != nil {
		t.Fatalf("getwd: %v", wdErr)
	}
	if cdErr := os.Chdir(t.TempDir()); cdErr != nil {
		t.Fatalf("chdir: %v", cdErr)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	store, err := New("")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("driver = %s", store.Driver())
	}
	if _, err := os.Stat("blobdata"); err != nil {
		t.Fatalf("expected default root: %v", err)
	}
}
