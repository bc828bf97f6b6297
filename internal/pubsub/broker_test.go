package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBroker_SubscribeReceivesPublished(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(CreatedEvent, "job started")

	select {
	case event := <-ch:
		require.Equal(t, "job started", event.Payload)
		require.Equal(t, CreatedEvent, event.Type)
		require.False(t, event.Timestamp.IsZero())
	case <-time.After(100 * time.Millisecond):
		require.Fail(t, "timeout waiting for event")
	}
}

func TestBroker_FanOut(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx := context.Background()
	chans := []<-chan Event[int]{
		broker.Subscribe(ctx),
		broker.Subscribe(ctx),
		broker.Subscribe(ctx),
	}
	require.Equal(t, 3, broker.SubscriberCount())

	broker.Publish(UpdatedEvent, 7)

	for i, ch := range chans {
		select {
		case event := <-ch:
			require.Equal(t, 7, event.Payload, "subscriber %d", i)
		case <-time.After(100 * time.Millisecond):
			require.Failf(t, "timeout", "subscriber %d never received", i)
		}
	}
}

func TestBroker_ContextCancelUnsubscribes(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	cancel()

	// The cleanup goroutine closes the channel.
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestBroker_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1)
	defer broker.Close()

	ctx := context.Background()
	ch := broker.Subscribe(ctx)

	broker.Publish(CreatedEvent, 1)
	broker.Publish(CreatedEvent, 2) // buffer full: dropped

	event := <-ch
	require.Equal(t, 1, event.Payload)

	select {
	case event := <-ch:
		require.Failf(t, "unexpected event", "got %v", event.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_CloseIsIdempotentAndTerminal(t *testing.T) {
	broker := NewBroker[string]()

	ctx := context.Background()
	ch := broker.Subscribe(ctx)

	broker.Close()
	broker.Close() // Second close must not panic

	_, ok := <-ch
	require.False(t, ok, "subscriber channel should be closed")

	// Publish and Subscribe after close are inert.
	broker.Publish(CreatedEvent, "late")
	late := broker.Subscribe(ctx)
	_, ok = <-late
	require.False(t, ok)
}

func TestBroker_ConcurrentPublishSubscribe(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ch := broker.Subscribe(ctx)
			for j := 0; j < 50; j++ {
				broker.Publish(UpdatedEvent, n*100+j)
			}
			// Drain whatever arrived.
			for {
				select {
				case <-ch:
				default:
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
