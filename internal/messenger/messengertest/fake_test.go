package messengertest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakePostAttachmentRoundTrip(t *testing.T) {
	f := New()
	ctx := context.Background()

	threadID, err := f.MyThreadID(ctx)
	require.NoError(t, err)

	msgID, err := f.PostAttachment(ctx, threadID, "compressed-bytes")
	require.NoError(t, err)

	msg, err := f.GetMessage(ctx, msgID)
	require.NoError(t, err)
	require.Len(t, msg.Attachments, 1)

	data, err := f.FetchAttachment(ctx, msg.Attachments[0].URL)
	require.NoError(t, err)
	assert.Equal(t, "compressed-bytes", string(data))
}

func TestFakeGetLatestMessage(t *testing.T) {
	f := New()
	ctx := context.Background()

	_, err := f.PostMessage(ctx, "self-thread", "first")
	require.NoError(t, err)
	secondID, err := f.PostMessage(ctx, "self-thread", "second")
	require.NoError(t, err)

	latest, err := f.GetLatestMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, secondID, latest.ID)
	assert.Equal(t, "second", latest.Body)
}

func TestFakeGetMessageUnknownID(t *testing.T) {
	f := New()
	_, err := f.GetMessage(context.Background(), "nope")
	assert.Error(t, err)
}
