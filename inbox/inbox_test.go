package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/pipecrm/db"
	"github.com/harperreed/pipecrm/logging"
	"github.com/harperreed/pipecrm/models"
	"github.com/harperreed/pipecrm/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSendReceive(t *testing.T) {
	backend := db.NewTestStore(t)
	ctx := context.Background()
	svc := New(backend, backend, logging.Discard())

	contact := models.Contact{Name: "Jane"}
	require.NoError(t, backend.CreateContact(ctx, &contact))

	conv, err := svc.Open(ctx, contact.ID, "sam")
	require.NoError(t, err)
	assert.Equal(t, "Jane", conv.ContactName)

	again, err := svc.Open(ctx, contact.ID, "sam")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID, "one thread per contact")

	_, err = svc.Send(ctx, conv.ID, "hello")
	require.NoError(t, err)
	_, err = svc.Receive(ctx, conv.ID, "hi back")
	require.NoError(t, err)

	thread, err := svc.Thread(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, models.SenderMe, thread.Messages[0].Sender)
	assert.Equal(t, models.SenderThem, thread.Messages[1].Sender)
	assert.Equal(t, "hi back", thread.LastMessage)

	_, err = svc.Send(ctx, conv.ID, "   ")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestSendAsync(t *testing.T) {
	backend := db.NewTestStore(t)
	ctx := context.Background()
	svc := New(backend, backend, logging.Discard())

	contact := models.Contact{Name: "Jane"}
	require.NoError(t, backend.CreateContact(ctx, &contact))
	conv, err := svc.Open(ctx, contact.ID, "")
	require.NoError(t, err)

	select {
	case err := <-svc.SendAsync(ctx, conv.ID, "ping"):
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("send did not finish")
	}

	err = <-svc.SendAsync(ctx, uuid.New(), "lost")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestListOrdersByActivity(t *testing.T) {
	backend := db.NewTestStore(t)
	ctx := context.Background()
	svc := New(backend, backend, logging.Discard())

	a := models.Contact{Name: "A"}
	b := models.Contact{Name: "B"}
	require.NoError(t, backend.CreateContact(ctx, &a))
	require.NoError(t, backend.CreateContact(ctx, &b))

	convA, err := svc.Open(ctx, a.ID, "")
	require.NoError(t, err)
	_, err = svc.Open(ctx, b.ID, "")
	require.NoError(t, err)

	base := time.Now().UTC().Add(time.Hour)
	svc.now = func() time.Time { return base }
	_, err = svc.Send(ctx, convA.ID, "latest")
	require.NoError(t, err)

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, convA.ID, list[0].ID)

	_, err = svc.Open(ctx, uuid.New(), "")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}
