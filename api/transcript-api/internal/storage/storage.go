package internal_storage

import (
	"context"
	"fmt"
	"time"
)

// Ownership scopes a recording's storage key so keys cannot collide across
// organizations or calls, and deletion can target one object.
type Ownership struct {
	OrganizationId uint64
	CallSid        string
	TranscriptId   string
}

// Key is the deterministic storage key scheme for a recording.
func (o Ownership) Key() string {
	return fmt.Sprintf("recordings/%d/%s/%s.mp3", o.OrganizationId, o.CallSid, o.TranscriptId)
}

type UploadResult struct {
	StorageKey  string
	SizeBytes   int64
	ContentType string
}

// BlobStore moves provider-hosted recordings into durable storage, mints
// time-boxed playback URLs and performs compliant deletion. It never touches
// transcript state; the orchestrator owns that.
type BlobStore interface {
	// Upload fetches the recording from the provider's temporary URL and
	// writes it under the deterministic key for owner.
	Upload(ctx context.Context, sourceUrl string, owner Ownership) (*UploadResult, error)
	// PlaybackUrl issues a short-lived signed URL. Callers must not cache it
	// beyond its expiry.
	PlaybackUrl(ctx context.Context, storageKey string, ttl time.Duration) (string, time.Time, error)
	// Delete permanently removes the object. Deleting an already-deleted key
	// is not an error.
	Delete(ctx context.Context, storageKey string) error
}
