package stream

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/lorrc/taskboard/internal/adapters/metrics"
	"github.com/lorrc/taskboard/internal/core/domain"
	apperrors "github.com/lorrc/taskboard/internal/core/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newTestRegistry() *Registry {
	return NewRegistry(nil, discardLogger())
}

func TestRegistry_BroadcastToAllSubscribers(t *testing.T) {
	reg := newTestRegistry()
	sinkA, sinkB := &fakeSink{}, &fakeSink{}

	_, err := reg.Subscribe("proj-1", newTestSubscriber(sinkA, 0))
	require.NoError(t, err)
	_, err = reg.Subscribe("proj-1", newTestSubscriber(sinkB, 0))
	require.NoError(t, err)

	err = reg.Broadcast("proj-1", domain.Event{Type: "task_created", ID: "t1"})
	require.NoError(t, err)

	want := "data: {\"type\":\"task_created\",\"id\":\"t1\"}\n\n"
	require.Eventually(t, func() bool {
		return sinkA.FrameCount() == 1 && sinkB.FrameCount() == 1
	}, waitFor, tick)

	// Give a duplicate delivery a chance to show up.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []string{want}, sinkA.Frames())
	assert.Equal(t, []string{want}, sinkB.Frames())
}

func TestRegistry_BroadcastIsScopedToProject(t *testing.T) {
	reg := newTestRegistry()
	inside, outside := &fakeSink{}, &fakeSink{}

	_, err := reg.Subscribe("proj-1", newTestSubscriber(inside, 0))
	require.NoError(t, err)
	outsideSub := newTestSubscriber(outside, 0)
	_, err = reg.Subscribe("proj-2", outsideSub)
	require.NoError(t, err)

	require.NoError(t, reg.Broadcast("proj-1", domain.Event{Type: "task_updated", ID: "t9"}))

	require.Eventually(t, func() bool { return inside.FrameCount() == 1 }, waitFor, tick)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, outside.Attempts())
}

func TestRegistry_UnsubscribeStopsDelivery(t *testing.T) {
	reg := newTestRegistry()
	sink := &fakeSink{}
	sub := newTestSubscriber(sink, 0)

	handle, err := reg.Subscribe("proj-1", sub)
	require.NoError(t, err)

	reg.Unsubscribe(handle)
	sub.Wait()

	require.NoError(t, reg.Broadcast("proj-1", domain.Event{Type: "task_created", ID: "t1"}))

	assert.Zero(t, sink.Attempts())
	assert.Equal(t, StateClosed, sub.State())
	assert.Zero(t, reg.SubscriberCount("proj-1"))
	assert.Equal(t, Stats{}, reg.Stats())
}

func TestRegistry_UnsubscribeIsIdempotent(t *testing.T) {
	m := metrics.NewStreamMetrics(prometheus.NewRegistry())
	reg := NewRegistry(m, discardLogger())
	sinkA, sinkB := &fakeSink{}, &fakeSink{}

	handleA, err := reg.Subscribe("proj-1", newTestSubscriber(sinkA, 0))
	require.NoError(t, err)
	_, err = reg.Subscribe("proj-1", newTestSubscriber(sinkB, 0))
	require.NoError(t, err)

	reg.Unsubscribe(handleA)
	assert.NotPanics(t, func() {
		reg.Unsubscribe(handleA)
		handleA.Unsubscribe()
		reg.Unsubscribe(nil)
	})

	assert.Equal(t, 1, reg.SubscriberCount("proj-1"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveSubscribers))
}

func TestRegistry_BroadcastWithoutSubscribers(t *testing.T) {
	m := metrics.NewStreamMetrics(prometheus.NewRegistry())
	reg := NewRegistry(m, discardLogger())

	err := reg.Broadcast("nobody-listens", domain.Event{Type: "task_deleted", ID: "t1"})

	assert.NoError(t, err)
	assert.Equal(t, Stats{}, reg.Stats())
	assert.Zero(t, testutil.ToFloat64(m.FramesDelivered))
}

func TestRegistry_BroadcastEncodingError(t *testing.T) {
	reg := newTestRegistry()
	sink := &fakeSink{}
	_, err := reg.Subscribe("proj-1", newTestSubscriber(sink, 0))
	require.NoError(t, err)

	err = reg.Broadcast("proj-1", map[string]any{"bad": func() {}})

	assert.Error(t, err)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, sink.Attempts())
	assert.Equal(t, 1, reg.SubscriberCount("proj-1"))
}

func TestRegistry_FailedWriteRemovesOnlyThatSubscriber(t *testing.T) {
	m := metrics.NewStreamMetrics(prometheus.NewRegistry())
	reg := NewRegistry(m, discardLogger())
	sinkA := &fakeSink{err: errors.New("broken pipe")}
	sinkB := &fakeSink{}
	subA := newTestSubscriber(sinkA, 0)

	handleA, err := reg.Subscribe("proj-1", subA)
	require.NoError(t, err)
	_, err = reg.Subscribe("proj-1", newTestSubscriber(sinkB, 0))
	require.NoError(t, err)

	require.NoError(t, reg.Broadcast("proj-1", domain.Event{Type: "task_created", ID: "t1"}))

	require.Eventually(t, func() bool { return sinkB.FrameCount() == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return reg.SubscriberCount("proj-1") == 1 }, waitFor, tick)
	<-handleA.Done()
	subA.Wait()

	require.NoError(t, reg.Broadcast("proj-1", domain.Event{Type: "task_created", ID: "t2"}))

	require.Eventually(t, func() bool { return sinkB.FrameCount() == 2 }, waitFor, tick)
	assert.Equal(t, 1, sinkA.Attempts())
	assert.Empty(t, sinkA.Frames())
	assert.Equal(t, StateClosed, subA.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveryFailures.WithLabelValues(metrics.ReasonWriteError)))

	// The connection handler unsubscribing afterwards is harmless.
	assert.NotPanics(t, handleA.Unsubscribe)
	assert.Equal(t, 1, reg.SubscriberCount("proj-1"))
}

func TestRegistry_FullQueueDisconnectsSlowSubscriber(t *testing.T) {
	m := metrics.NewStreamMetrics(prometheus.NewRegistry())
	reg := NewRegistry(m, discardLogger())
	slow := &fakeSink{block: make(chan struct{})}
	fast := &fakeSink{}
	slowSub := newTestSubscriber(slow, 1)

	_, err := reg.Subscribe("proj-1", slowSub)
	require.NoError(t, err)
	_, err = reg.Subscribe("proj-1", newTestSubscriber(fast, 16))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Broadcast("proj-1", domain.Event{Type: "task_updated", ID: fmt.Sprint(i)}))
	}

	assert.Equal(t, StateClosed, slowSub.State())
	assert.Equal(t, 1, reg.SubscriberCount("proj-1"))
	require.Eventually(t, func() bool { return fast.FrameCount() == 3 }, waitFor, tick)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeliveryFailures.WithLabelValues(metrics.ReasonQueueFull)))

	close(slow.block)
	slowSub.Wait()
	assert.LessOrEqual(t, slow.FrameCount(), 1)
}

func TestRegistry_PerSubscriberFIFO(t *testing.T) {
	reg := newTestRegistry()
	sink := &fakeSink{}
	_, err := reg.Subscribe("proj-1", newTestSubscriber(sink, 128))
	require.NoError(t, err)

	const n = 100
	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		event := domain.Event{Type: "task_updated", ID: fmt.Sprint(i)}
		frame, err := EncodeFrame(event)
		require.NoError(t, err)
		want = append(want, string(frame))
		require.NoError(t, reg.Broadcast("proj-1", event))
	}

	require.Eventually(t, func() bool { return sink.FrameCount() == n }, waitFor, tick)
	assert.Equal(t, want, sink.Frames())
}

func TestRegistry_SubscriberCannotBeAdmittedTwice(t *testing.T) {
	reg := newTestRegistry()
	sub := newTestSubscriber(&fakeSink{}, 0)

	_, err := reg.Subscribe("proj-1", sub)
	require.NoError(t, err)

	_, err = reg.Subscribe("proj-2", sub)
	assert.Error(t, err)
	assert.Equal(t, 1, reg.SubscriberCount("proj-1"))
	assert.Zero(t, reg.SubscriberCount("proj-2"))
	assert.Equal(t, Stats{Projects: 1, Subscribers: 1}, reg.Stats())
}

func TestRegistry_CloseProject(t *testing.T) {
	reg := newTestRegistry()
	subA := newTestSubscriber(&fakeSink{}, 0)
	subB := newTestSubscriber(&fakeSink{}, 0)
	other := newTestSubscriber(&fakeSink{}, 0)

	handleA, err := reg.Subscribe("proj-1", subA)
	require.NoError(t, err)
	_, err = reg.Subscribe("proj-1", subB)
	require.NoError(t, err)
	_, err = reg.Subscribe("proj-2", other)
	require.NoError(t, err)

	assert.Equal(t, 2, reg.CloseProject("proj-1"))
	assert.Zero(t, reg.CloseProject("proj-1"))

	<-handleA.Done()
	assert.Equal(t, StateClosed, subB.State())
	assert.Equal(t, StateActive, other.State())
	assert.Equal(t, Stats{Projects: 1, Subscribers: 1}, reg.Stats())

	// A fresh subscription to the closed project works.
	_, err = reg.Subscribe("proj-1", newTestSubscriber(&fakeSink{}, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, reg.SubscriberCount("proj-1"))
	assert.NotPanics(t, handleA.Unsubscribe)
}

func TestRegistry_Close(t *testing.T) {
	m := metrics.NewStreamMetrics(prometheus.NewRegistry())
	reg := NewRegistry(m, discardLogger())
	sub := newTestSubscriber(&fakeSink{}, 0)

	handle, err := reg.Subscribe("proj-1", sub)
	require.NoError(t, err)

	reg.Close()
	reg.Close()

	<-handle.Done()
	sub.Wait()
	assert.Equal(t, Stats{}, reg.Stats())
	assert.Zero(t, testutil.ToFloat64(m.ActiveSubscribers))

	_, err = reg.Subscribe("proj-1", newTestSubscriber(&fakeSink{}, 0))
	assert.ErrorIs(t, err, apperrors.ErrRegistryClosed)
	assert.NoError(t, reg.Broadcast("proj-1", domain.Event{Type: "task_created", ID: "t1"}))
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	reg := newTestRegistry()
	projects := []domain.ProjectID{"proj-1", "proj-2", "proj-3"}

	const workers = 24
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		kept = make(map[domain.ProjectID]int)
	)

	// Each producer sends fewer events than a subscriber queue holds, so no
	// subscriber is dropped for being slow.
	var producers sync.WaitGroup
	for _, p := range projects {
		producers.Add(1)
		go func(projectID domain.ProjectID) {
			defer producers.Done()
			for i := 0; i < 200; i++ {
				_ = reg.Broadcast(projectID, domain.Event{Type: "task_updated", ID: fmt.Sprint(i)})
			}
		}(p)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			projectID := projects[i%len(projects)]
			for j := 0; j < 20; j++ {
				handle, err := reg.Subscribe(projectID, newTestSubscriber(&fakeSink{}, 1024))
				if err != nil {
					t.Error(err)
					return
				}
				if j%2 == 0 {
					handle.Unsubscribe()
					handle.Unsubscribe()
					continue
				}
				mu.Lock()
				kept[projectID]++
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	producers.Wait()

	total := 0
	for _, p := range projects {
		assert.Equal(t, kept[p], reg.SubscriberCount(p), "project %s", p)
		total += kept[p]
	}
	assert.Equal(t, Stats{Projects: len(projects), Subscribers: total}, reg.Stats())
}
