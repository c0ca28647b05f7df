package messengerfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/davlia-projects/messenger-fs/internal/ferrors"
)

// Restore reconstitutes the filesystem from the latest self-message in
// the messenger thread, replacing fs's current (empty) tree: fetch the
// newest message, resolve the snapshot document from it, and rebuild
// state — block bytes are never re-fetched eagerly, only paged in on
// demand by a later read.
//
// The snapshot travels as a message attachment (the same two-step
// PostAttachment/GetMessage indirection block.Pool.Sync uses for block
// bytes), with a plain message body as a fallback for older snapshots.
// If no self-message has ever been posted — a brand-new account's first
// mount — that's not an I/O failure: fs keeps the fresh, empty tree New
// already set up.
//
// LOCKS_EXCLUDED(fs.mu)
func (fs *MessengerFS) Restore(ctx context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	msg, err := fs.client.GetLatestMessage(ctx)
	if errors.Is(err, ferrors.NotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: fetching latest snapshot message: %v", ferrors.IoFailed, err)
	}

	if len(msg.Attachments) > 0 {
		raw, err := fs.client.FetchAttachment(ctx, msg.Attachments[0].URL)
		if err != nil {
			return fmt.Errorf("%w: fetching snapshot attachment: %v", ferrors.IoFailed, err)
		}
		return fs.deserializeInto(string(raw))
	}

	if msg.Body == "" {
		// No prior snapshot exists yet; keep the fresh, empty tree New
		// already set up.
		return nil
	}

	return fs.deserializeInto(msg.Body)
}
