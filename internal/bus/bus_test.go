package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stellarlinkco/mytodo/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertBus_FanOut(t *testing.T) {
	b := New(10, nil)

	var mu sync.Mutex
	got := map[string][]string{}
	for _, name := range []string{"console", "webui"} {
		name := name
		b.Subscribe(name, func(a notify.Alert) {
			mu.Lock()
			defer mu.Unlock()
			got[name] = append(got[name], a.Title)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Dispatch(ctx)

	b.Publish(notify.Alert{ID: "1", Title: "Food Reminder: Lunch"})
	b.Publish(notify.Alert{ID: "2", Title: "Task Due Soon: Report"})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got["console"]) == 2 && len(got["webui"]) == 2
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Food Reminder: Lunch", "Task Due Soon: Report"}, got["console"])
}

func TestAlertBus_PublishDoesNotBlockWhenFull(t *testing.T) {
	b := New(1, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			b.Publish(notify.Alert{Title: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	assert.Len(t, b.queue, 1)
}

func TestAlertBus_SubscriberPanicIsContained(t *testing.T) {
	b := New(4, nil)
	received := make(chan string, 1)
	b.Subscribe("bad", func(notify.Alert) { panic("boom") })
	b.Subscribe("good", func(a notify.Alert) { received <- a.Title })

	b.deliver(notify.Alert{Title: "hello"})
	assert.Equal(t, "hello", <-received)
}

func TestAlertBus_Unsubscribe(t *testing.T) {
	b := New(4, nil)
	calls := 0
	b.Subscribe("once", func(notify.Alert) { calls++ })
	b.deliver(notify.Alert{})
	b.Unsubscribe("once")
	b.deliver(notify.Alert{})
	assert.Equal(t, 1, calls)
}
