// Package messenger defines the narrow transport interface the engine
// uses to persist itself against a remote chat account, and a concrete
// implementation over net/http.
//
// This mirrors the shape of github.com/jacobsa/gcloud's
// gcs.Conn / gcs.Bucket: a small interface
// consumed by the engine, backed in production by a real network client
// and substituted in tests by an in-memory fake
// (internal/messenger/messengertest).
package messenger

import "context"

// Credentials authenticate a session against the messaging account.
type Credentials struct {
	Username string
	Password string
}

// Attachment describes one binary attachment on a message, as returned
// by the messaging API.
type Attachment struct {
	URL string
}

// Message is a single chat message, as returned by the messaging API.
type Message struct {
	ID          string
	Body        string
	Attachments []Attachment
}

// Client is the interface consumed by internal/messengerfs and
// internal/block. It is intentionally narrow: it covers only the calls
// the engine needs, not a general-purpose client for the
// underlying chat service.
type Client interface {
	// Authenticate establishes a session. Idempotent: calling it again
	// with the same credentials leaves the client authenticated; the
	// HTTP implementation re-sends the login request on every call.
	Authenticate(ctx context.Context, creds Credentials) error

	// MyThreadID returns the identifier of the self-conversation that
	// snapshots and block attachments are posted to.
	MyThreadID(ctx context.Context) (string, error)

	// PostMessage posts a text message to the given thread, returning its
	// message ID.
	PostMessage(ctx context.Context, threadID, body string) (messageID string, err error)

	// PostAttachment posts a binary blob (already encoded as a string via
	// the pool's byte-to-character identity mapping over compressed
	// bytes) to the given thread, returning the resulting message ID.
	PostAttachment(ctx context.Context, threadID, payload string) (messageID string, err error)

	// GetMessage fetches a single message by ID.
	GetMessage(ctx context.Context, messageID string) (Message, error)

	// GetLatestMessage fetches the most recent message in the caller's
	// self-conversation.
	GetLatestMessage(ctx context.Context) (Message, error)

	// FetchAttachment resolves an attachment URL to its bytes. On
	// this messaging API the URL is indirect: a GET returns an HTML page
	// containing a `document.location.replace("REAL_URL")` redirect that
	// must be extracted and followed.
	FetchAttachment(ctx context.Context, url string) ([]byte, error)
}
