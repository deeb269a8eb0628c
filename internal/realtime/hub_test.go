package realtime

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rain-droid/orgIO/pkg/events"
)

type recordingListener struct {
	mu       sync.Mutex
	received []events.Envelope
	err      error
	panics   bool
}

func (l *recordingListener) Send(envelope events.Envelope) error {
	if l.panics {
		panic("boom")
	}
	if l.err != nil {
		return l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.received = append(l.received, envelope)
	return nil
}

func (l *recordingListener) envelopes() []events.Envelope {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]events.Envelope(nil), l.received...)
}

func quietHub() *Hub {
	return NewHub(WithHubLogger(log.New(io.Discard, "", 0)))
}

func TestHubBroadcastScopesByOrganization(t *testing.T) {
	hub := quietHub()
	alice := &recordingListener{}
	bob := &recordingListener{}
	outsider := &recordingListener{}
	hub.Subscribe("org-1", alice)
	hub.Subscribe("org-1", bob)
	hub.Subscribe("org-2", outsider)

	delivered := hub.Broadcast("org-1", events.Envelope{Type: events.TypeSessionStarted})

	require.Equal(t, 2, delivered)
	require.Len(t, alice.envelopes(), 1)
	require.Len(t, bob.envelopes(), 1)
	require.Empty(t, outsider.envelopes())
}

func TestHubBroadcastWithoutListeners(t *testing.T) {
	hub := quietHub()
	require.Zero(t, hub.Broadcast("org-empty", events.Envelope{Type: events.TypeTasksUpdated}))
}

func TestHubDropsFailingListener(t *testing.T) {
	hub := quietHub()
	healthy := &recordingListener{}
	broken := &recordingListener{err: errors.New("socket closed")}
	panicky := &recordingListener{panics: true}
	hub.Subscribe("org-1", healthy)
	hub.Subscribe("org-1", broken)
	hub.Subscribe("org-1", panicky)

	before := testutil.ToFloat64(droppedCounter.WithLabelValues(events.TypeSubmissionNew))
	delivered := hub.Broadcast("org-1", events.Envelope{Type: events.TypeSubmissionNew})

	require.Equal(t, 1, delivered)
	require.Len(t, healthy.envelopes(), 1)
	require.Equal(t, 1, hub.Count("org-1"))
	require.Equal(t, before+2, testutil.ToFloat64(droppedCounter.WithLabelValues(events.TypeSubmissionNew)))

	hub.Broadcast("org-1", events.Envelope{Type: events.TypeSubmissionNew})
	require.Len(t, healthy.envelopes(), 2)
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	hub := quietHub()
	listener := &recordingListener{}
	sub := hub.Subscribe("org-1", listener)
	require.Equal(t, 1, hub.Count("org-1"))

	sub.Close()
	sub.Close()
	hub.Unsubscribe(sub)

	require.Zero(t, hub.Count("org-1"))
	require.Zero(t, hub.Broadcast("org-1", events.Envelope{Type: events.TypeSessionEnded}))
}

func TestHubNotifyNeverFails(t *testing.T) {
	hub := quietHub()
	hub.Subscribe("org-1", &recordingListener{err: errors.New("gone")})
	require.NoError(t, hub.Notify(context.Background(), "org-1", events.Envelope{Type: events.TypeWorkspaceUpdated}))
}

func TestHubConcurrentSubscribeAndBroadcast(t *testing.T) {
	hub := quietHub()
	const workers = 16

	var wg sync.WaitGroup
	listeners := make([]*recordingListener, workers)
	for i := range listeners {
		listeners[i] = &recordingListener{}
	}
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func(l *recordingListener) {
			defer wg.Done()
			sub := hub.Subscribe("org-1", l)
			hub.Broadcast("org-1", events.Envelope{Type: events.TypeSessionStarted})
			sub.Close()
		}(listeners[i])
		go func() {
			defer wg.Done()
			hub.Broadcast("org-1", events.Envelope{Type: events.TypeSessionEnded})
		}()
	}
	wg.Wait()

	require.Zero(t, hub.Count("org-1"))
	for _, l := range listeners {
		require.NotEmpty(t, l.envelopes())
	}
}

type closingListener struct {
	recordingListener
	closed int
}

func (l *closingListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed++
	return nil
}

func TestHubClosesDroppedListener(t *testing.T) {
	hub := quietHub()
	healthy := &closingListener{}
	broken := &closingListener{recordingListener: recordingListener{err: errSendBufferFull}}
	hub.Subscribe("org-1", healthy)
	hub.Subscribe("org-1", broken)

	require.Equal(t, 1, hub.Broadcast("org-1", events.Envelope{Type: events.TypeSessionEnded}))
	require.Equal(t, 1, broken.closed)
	require.Zero(t, healthy.closed)
	require.Equal(t, 1, hub.Count("org-1"))
}
