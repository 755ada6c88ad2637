package media

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStageLocalIsImmediate(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(NewMemBlobStore())
	staged, err := c.StageLocal("photo.png", []byte("img"))
	if err != nil {
		t.Fatalf("StageLocal: %v", err)
	}
	if staged.PreviewURL == "" {
		t.Fatal("no preview url; staging must yield an immediately usable handle")
	}
	if staged.Filename != "photo.png" {
		t.Fatalf("filename = %q", staged.Filename)
	}
}

func TestStageLocalRejectsEmpty(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(NewMemBlobStore())
	if _, err := c.StageLocal("photo.png", nil); err == nil {
		t.Fatal("empty file staged")
	}
}

func TestResolveStoresAndReturnsURL(t *testing.T) {
	t.Parallel()

	store := NewMemBlobStore()
	c := NewCoordinator(store)
	staged, err := c.StageLocal("photo.png", []byte("img-bytes"))
	if err != nil {
		t.Fatalf("StageLocal: %v", err)
	}

	url, err := c.Resolve(context.Background(), staged)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasPrefix(url, "mem://") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("url = %q", url)
	}

	name := strings.TrimPrefix(url, "mem://")
	data, ok := store.Get(name)
	if !ok || string(data) != "img-bytes" {
		t.Fatalf("stored bytes = %q, ok = %v", data, ok)
	}
}

func TestResolveFailureIsTerminal(t *testing.T) {
	t.Parallel()

	store := NewMemBlobStore()
	store.FailPut = true
	c := NewCoordinator(store)

	staged, err := c.StageLocal("photo.png", []byte("img"))
	if err != nil {
		t.Fatalf("StageLocal: %v", err)
	}
	if _, err := c.Resolve(context.Background(), staged); !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", err)
	}

	// Nothing was stored; re-initiating is the caller's explicit choice.
	store.FailPut = false
	url, err := c.Resolve(context.Background(), staged)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if url == "" {
		t.Fatal("second resolve returned empty url")
	}
}

func TestResolveNothingStaged(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(NewMemBlobStore())
	if _, err := c.Resolve(context.Background(), nil); !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("err = %v, want ErrUploadFailed", err)
	}
}
