package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// recorder collects messages delivered to a subscriber.
type recorder struct {
	mu   sync.Mutex
	msgs []model.SyncMessage
}

func (r *recorder) handle(msg model.SyncMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) messages() []model.SyncMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.SyncMessage, len(r.msgs))
	copy(out, r.msgs)
	return out
}

func drain(t *testing.T, eps ...*Endpoint) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, ep := range eps {
		require.NoError(t, ep.Drain(ctx))
	}
}

func TestEndpoint_PublishReachesPeersNotSelf(t *testing.T) {
	hub := NewHub(8)
	a := hub.Open("patient-sync")
	b := hub.Open("patient-sync")
	c := hub.Open("patient-sync")
	t.Cleanup(func() { _ = a.Close(); _ = b.Close(); _ = c.Close() })

	var ra, rb, rc recorder
	a.Subscribe(ra.handle)
	b.Subscribe(rb.handle)
	c.Subscribe(rc.handle)

	msg := model.NewRecordAdded(model.Patient{ID: 1, Name: "Jane Doe"})
	require.NoError(t, a.Publish(context.Background(), msg))
	drain(t, a, b, c)

	assert.Empty(t, ra.messages())
	require.Len(t, rb.messages(), 1)
	require.Len(t, rc.messages(), 1)
	assert.Equal(t, model.MessageRecordAdded, rb.messages()[0].Kind)
	assert.Equal(t, "Jane Doe", rb.messages()[0].Record.Name)
}

func TestEndpoint_ChannelsAreIsolatedByName(t *testing.T) {
	hub := NewHub(8)
	a := hub.Open("patient-sync")
	other := hub.Open("something-else")
	t.Cleanup(func() { _ = a.Close(); _ = other.Close() })

	var r recorder
	other.Subscribe(r.handle)

	require.NoError(t, a.Publish(context.Background(), model.NewRecordsRefreshed(nil)))
	drain(t, other)

	assert.Empty(t, r.messages())
}

func TestEndpoint_OrderPreservedPerReceiver(t *testing.T) {
	hub := NewHub(32)
	a := hub.Open("ch")
	b := hub.Open("ch")
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	var r recorder
	b.Subscribe(r.handle)

	for i := range 20 {
		require.NoError(t, a.Publish(context.Background(), model.NewRecordAdded(model.Patient{ID: int64(i)})))
	}
	drain(t, b)

	msgs := r.messages()
	require.Len(t, msgs, 20)
	for i, m := range msgs {
		assert.Equal(t, int64(i), m.Record.ID)
	}
}

func TestEndpoint_PayloadIsCopiedPerReceiver(t *testing.T) {
	hub := NewHub(8)
	a := hub.Open("ch")
	b := hub.Open("ch")
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	var first, second recorder
	b.Subscribe(func(m model.SyncMessage) {
		m.Records[0].Name = "mutated"
		first.handle(m)
	})
	b.Subscribe(second.handle)

	records := []model.Patient{{ID: 1, Name: "original"}}
	require.NoError(t, a.Publish(context.Background(), model.NewRecordsRefreshed(records)))
	drain(t, b)

	assert.Equal(t, "original", records[0].Name)
	require.Len(t, second.messages(), 1)
	assert.Equal(t, "original", second.messages()[0].Records[0].Name)
}

func TestEndpoint_LateSubscriberMissesEarlierMessages(t *testing.T) {
	hub := NewHub(8)
	a := hub.Open("ch")
	b := hub.Open("ch")
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	require.NoError(t, a.Publish(context.Background(), model.NewRecordAdded(model.Patient{ID: 1})))
	drain(t, b)

	var r recorder
	b.Subscribe(r.handle)
	drain(t, b)
	assert.Empty(t, r.messages())

	// An endpoint opened after the publish never sees it either.
	late := hub.Open("ch")
	t.Cleanup(func() { _ = late.Close() })
	var rl recorder
	late.Subscribe(rl.handle)
	drain(t, late)
	assert.Empty(t, rl.messages())
}

func TestEndpoint_Unsubscribe(t *testing.T) {
	hub := NewHub(8)
	a := hub.Open("ch")
	b := hub.Open("ch")
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	var r recorder
	unsubscribe := b.Subscribe(r.handle)
	unsubscribe()
	unsubscribe()

	require.NoError(t, a.Publish(context.Background(), model.NewRecordAdded(model.Patient{ID: 1})))
	drain(t, b)
	assert.Empty(t, r.messages())
}

func TestEndpoint_FullQueueDropsMessages(t *testing.T) {
	hub := NewHub(1)
	a := hub.Open("ch")
	b := hub.Open("ch")
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	release := make(chan struct{})
	var r recorder
	b.Subscribe(func(m model.SyncMessage) {
		<-release
		r.handle(m)
	})

	// The first message parks the dispatcher, the second fills the queue,
	// the rest are dropped without blocking the publisher.
	for i := range 10 {
		require.NoError(t, a.Publish(context.Background(), model.NewRecordAdded(model.Patient{ID: int64(i)})))
	}
	close(release)
	drain(t, b)

	got := len(r.messages())
	assert.GreaterOrEqual(t, got, 1)
	assert.Less(t, got, 10)
}

func TestEndpoint_CloseDetaches(t *testing.T) {
	hub := NewHub(8)
	a := hub.Open("ch")
	b := hub.Open("ch")
	t.Cleanup(func() { _ = a.Close() })
	assert.Equal(t, 2, hub.Members("ch"))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 1, hub.Members("ch"))

	assert.ErrorIs(t, b.Publish(context.Background(), model.NewRecordsRefreshed(nil)), model.ErrChannelClosed)
	assert.ErrorIs(t, b.Drain(context.Background()), model.ErrChannelClosed)

	// Publishing to a channel whose only peer closed is not an error.
	require.NoError(t, a.Publish(context.Background(), model.NewRecordsRefreshed(nil)))
}

func TestEndpoint_PublishCanceledContext(t *testing.T) {
	hub := NewHub(8)
	a := hub.Open("ch")
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.Publish(ctx, model.NewRecordsRefreshed(nil)), context.Canceled)
}

func TestNewHub_DefaultBuffer(t *testing.T) {
	hub := NewHub(0)
	assert.Equal(t, DefaultBuffer, hub.buffer)
	ep := hub.Open("ch")
	t.Cleanup(func() { _ = ep.Close() })
	assert.NotEmpty(t, ep.ID())
	assert.Equal(t, "ch", ep.Name())
}
