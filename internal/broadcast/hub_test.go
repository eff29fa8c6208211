package broadcast

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case change, ok := <-ch:
		require.True(t, ok, "channel closed")
		return change
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
		return Change{}
	}
}

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	require.NoError(t, hub.Publish(context.Background(), Change{Key: "token"}))

	for _, ch := range []<-chan Change{a, b} {
		change := receive(t, ch)
		assert.Equal(t, "token", change.Key)
		assert.Equal(t, hub.ID(), change.Origin)
		assert.False(t, change.At.IsZero())
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ch, cancel := hub.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	slow, cancelSlow := hub.Subscribe()
	defer cancelSlow()

	for i := 0; i < subscriberBuffer+1; i++ {
		hub.Deliver(Change{Key: "user_profile"})
	}

	drained := 0
	for range slow {
		drained++
	}
	assert.Equal(t, subscriberBuffer, drained)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.subs)
}

func TestHub_CloseEndsSubscriptions(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe()
	defer cancel()

	require.NoError(t, hub.Close())
	_, ok := <-ch
	assert.False(t, ok)

	late, _ := hub.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestNATSNotifier_IgnoresOwnChanges(t *testing.T) {
	n := &NATSNotifier{Hub: NewHub(nil)}
	defer n.Hub.Close()

	ch, cancel := n.Subscribe()
	defer cancel()

	own, _ := json.Marshal(Change{Key: "token", Origin: n.ID()})
	n.handle(own)
	n.handle([]byte("not json"))

	remote, _ := json.Marshal(Change{Key: "user_profile", Origin: "other-process"})
	n.handle(remote)

	change := receive(t, ch)
	assert.Equal(t, "user_profile", change.Key)
	assert.Equal(t, "other-process", change.Origin)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected change %+v", extra)
	default:
	}
}

func TestPGNotifier_IgnoresOwnChanges(t *testing.T) {
	n := &PGNotifier{Hub: NewHub(nil)}
	defer n.Hub.Close()

	ch, cancel := n.Subscribe()
	defer cancel()

	own, _ := json.Marshal(Change{Key: "token", Origin: n.ID()})
	n.handle(string(own))

	remote, _ := json.Marshal(Change{Key: "token", Origin: "cli"})
	n.handle(string(remote))

	change := receive(t, ch)
	assert.Equal(t, "cli", change.Origin)
}
