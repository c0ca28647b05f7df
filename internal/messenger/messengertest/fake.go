// Package messengertest provides an in-memory fake of messenger.Client
// for use in internal/messengerfs tests, so that suite never touches a
// network. It models just enough of the real
// messaging API's shape — a single self-conversation thread, messages
// with attachments, and the indirection FetchAttachment resolves in
// production — to exercise sync()/restore() round trips faithfully.
package messengertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/davlia-projects/messenger-fs/internal/ferrors"
	"github.com/davlia-projects/messenger-fs/internal/messenger"
)

// Fake is a messenger.Client backed by process memory.
type Fake struct {
	mu sync.Mutex

	threadID string
	messages map[string]messenger.Message
	order    []string // message IDs in post order, for GetLatestMessage
	blobs    map[string][]byte
	nextID   int

	authenticated bool
}

// New returns a Fake with a single self-conversation thread.
func New() *Fake {
	return &Fake{
		threadID: "self-thread",
		messages: make(map[string]messenger.Message),
	}
}

var _ messenger.Client = (*Fake)(nil)

func (f *Fake) Authenticate(_ context.Context, _ messenger.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authenticated = true
	return nil
}

func (f *Fake) MyThreadID(_ context.Context) (string, error) {
	return f.threadID, nil
}

func (f *Fake) PostMessage(_ context.Context, threadID, body string) (string, error) {
	return f.post(threadID, body, nil)
}

func (f *Fake) PostAttachment(_ context.Context, threadID, payload string) (string, error) {
	id := f.allocID()
	url := fmt.Sprintf("https://messengertest.invalid/attachments/%s", id)
	f.mu.Lock()
	f.attachmentBlob(url, payload)
	f.mu.Unlock()
	return f.post(threadID, "", []messenger.Attachment{{URL: url}})
}

func (f *Fake) GetMessage(_ context.Context, messageID string) (messenger.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	msg, ok := f.messages[messageID]
	if !ok {
		return messenger.Message{}, ferrors.NotFound
	}
	return msg, nil
}

func (f *Fake) GetLatestMessage(_ context.Context) (messenger.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.order) == 0 {
		return messenger.Message{}, ferrors.NotFound
	}
	return f.messages[f.order[len(f.order)-1]], nil
}

func (f *Fake) FetchAttachment(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	blob, ok := f.blobs[url]
	if !ok {
		return nil, ferrors.NotFound
	}
	return blob, nil
}

func (f *Fake) allocID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("msg-%d", f.nextID)
}

func (f *Fake) post(threadID, body string, attachments []messenger.Attachment) (string, error) {
	id := f.allocID()

	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages[id] = messenger.Message{ID: id, Body: body, Attachments: attachments}
	f.order = append(f.order, id)
	return id, nil
}

func (f *Fake) attachmentBlob(url, payload string) {
	if f.blobs == nil {
		f.blobs = make(map[string][]byte)
	}
	f.blobs[url] = []byte(payload)
}
