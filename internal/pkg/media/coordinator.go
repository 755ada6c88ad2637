package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
)

// ErrUploadFailed marks a failed attachment resolution. It is terminal
// for the attempt: the enclosing send or avatar change must not complete,
// and the user re-initiates explicitly.
var ErrUploadFailed = errors.New("media: upload failed")

// Staged is a locally staged attachment: valid for optimistic preview
// immediately, durable only after Resolve succeeds.
type Staged struct {
	ID         string
	Filename   string
	PreviewURL string
	data       []byte
}

// Coordinator stages attachments locally and resolves them through the
// blob store. StageLocal is synchronous and never blocks on the network;
// Resolve is the only suspension point.
type Coordinator struct {
	store BlobStore
}

func NewCoordinator(store BlobStore) *Coordinator {
	return &Coordinator{store: store}
}

// StageLocal accepts the raw file and returns a preview handle. It always
// succeeds for a well-formed input (non-empty data).
func (c *Coordinator) StageLocal(filename string, data []byte) (*Staged, error) {
	if len(data) == 0 {
		return nil, errors.New("media: empty file")
	}
	id := uuid.NewString()
	return &Staged{
		ID:         id,
		Filename:   filename,
		PreviewURL: "local://" + id,
		data:       data,
	}, nil
}

// Resolve uploads the staged bytes and returns the durable public URL.
// Failure is ErrUploadFailed; the coordinator never retries silently.
func (c *Coordinator) Resolve(ctx context.Context, staged *Staged) (string, error) {
	if staged == nil || len(staged.data) == 0 {
		return "", fmt.Errorf("%w: nothing staged", ErrUploadFailed)
	}

	// A timestamped object name keeps uploads collision-free without
	// trusting client filenames.
	name := fmt.Sprintf("%d_%s%s", time.Now().UnixMilli(), staged.ID, path.Ext(staged.Filename))
	ref, err := c.store.Put(ctx, name, staged.data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return c.store.PublicURL(ref), nil
}
