package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/waffle/pantry/storage"
)

var keyPattern = regexp.MustCompile(`^sightings/2024/06/[0-9a-f-]{36}\.jpg$`)

func TestKey(t *testing.T) {
	now := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	k := Key("/sightings/", "Fox.JPG", now)
	if !keyPattern.MatchString(k) {
		t.Errorf("key %q does not match %s", k, keyPattern)
	}
	if k2 := Key("sightings", "Fox.JPG", now); k2 == k {
		t.Error("keys should be unique per call")
	}
	if k := Key("", "payload.exe", now); strings.HasSuffix(k, ".exe") {
		t.Errorf("unexpected extension kept: %q", k)
	}
}

// failingBackend rejects every Put and counts the attempts.
type failingBackend struct {
	storage.Store
	err   error
	calls int
}

func (f *failingBackend) Put(context.Context, string, io.Reader, *storage.PutOptions) error {
	f.calls++
	return f.err
}

func TestUpload_Memory(t *testing.T) {
	mem := storage.NewMemory(storage.MemoryConfig{BaseURL: "https://cdn.example.com"})
	s := New(mem, "sightings", nil)
	ctx := context.Background()

	url, err := s.Upload(ctx, "fox.png", "image/png", strings.NewReader("img"), 3)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.example.com/sightings/") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url: got %q", url)
	}
	key := strings.TrimPrefix(url, "https://cdn.example.com/")
	data, err := mem.GetBytes(ctx, key)
	if err != nil {
		t.Fatalf("GetBytes(%q): %v", key, err)
	}
	if string(data) != "img" {
		t.Errorf("contents: got %q, want %q", data, "img")
	}
}

func TestUpload_Local(t *testing.T) {
	dir := t.TempDir()
	local, err := storage.NewLocal(storage.LocalConfig{BasePath: dir, BaseURL: "/files"})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	url, err := New(local, "", nil).Upload(context.Background(), "owl.jpg", "image/jpeg", strings.NewReader("hoot"), 4)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(url, "/files/") {
		t.Fatalf("url: got %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/files/"))))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "hoot" {
		t.Errorf("contents: got %q, want %q", data, "hoot")
	}
}

func TestUpload_NoPublicURL(t *testing.T) {
	mem := storage.NewMemory(storage.MemoryConfig{})
	_, err := New(mem, "", nil).Upload(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("x"), 1)
	if err == nil {
		t.Fatal("expected an error without a public URL")
	}
	res, lerr := mem.List(context.Background(), "", nil)
	if lerr != nil {
		t.Fatalf("List: %v", lerr)
	}
	if len(res.Objects) != 0 {
		t.Errorf("objects left behind: got %d, want 0", len(res.Objects))
	}
}

func TestUpload_CancelledContext(t *testing.T) {
	s := New(storage.NewMemory(storage.MemoryConfig{BaseURL: "/files"}), "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Upload(ctx, "a.jpg", "", strings.NewReader("x"), 1); !outcome.Is(err, outcome.KindUnavailable) {
		t.Errorf("got %v, want unavailable", err)
	}
}

func TestUpload_BreakerOpensAfterFailures(t *testing.T) {
	b := &failingBackend{Store: storage.NewMemory(storage.MemoryConfig{}), err: errors.New("connection refused")}
	s := New(b, "", nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Upload(ctx, "a.jpg", "image/jpeg", strings.NewReader("x"), 1)
		if !outcome.Is(err, outcome.KindUnavailable) {
			t.Fatalf("attempt %d: got %v, want unavailable", i, err)
		}
	}
	_, err := s.Upload(ctx, "a.jpg", "image/jpeg", strings.NewReader("x"), 1)
	if !outcome.Is(err, outcome.KindUnavailable) {
		t.Fatalf("open breaker: got %v, want unavailable", err)
	}
	if b.calls != 5 {
		t.Errorf("calls reaching the backend: got %d, want 5", b.calls)
	}
}
