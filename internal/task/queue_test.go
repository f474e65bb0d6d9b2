package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ok(context.Context) error { return nil }

func newQueue(t *testing.T, opts Options) (*Queue, *MemoryTracker) {
	t.Helper()
	tr := NewMemoryTracker(time.Hour)
	q := NewQueue(tr, opts, zap.NewNop())
	t.Cleanup(q.Close)
	return q, tr
}

func waitFor(t *testing.T, q *Queue, id string) Status {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := q.Wait(ctx, id)
	require.NoError(t, err)
	return st
}

func TestQueue_ItemsFailIndependently(t *testing.T) {
	q, _ := newQueue(t, Options{})

	id, err := q.Submit(context.Background(), Task{SiteID: "s1", Items: []Item{
		{Name: "logo", Kind: "logo", Run: func(context.Context) error { return errors.New("image service down") }},
		{Name: "page:home", Kind: "copy", Run: ok},
		{Name: "page:imoveis", Kind: "copy", Run: func(context.Context) error { panic("boom") }},
		{Name: "page:contato", Kind: "copy", Run: ok},
	}})
	require.NoError(t, err)

	st := waitFor(t, q, id)
	assert.True(t, st.Done())
	assert.Equal(t, "s1", st.SiteID)
	assert.Equal(t, 2, st.Failed())
	assert.NotNil(t, st.FinishedAt)

	logo, _ := st.Item("logo")
	assert.Equal(t, ItemFailed, logo.State)
	assert.Equal(t, "image service down", logo.Error)
	home, _ := st.Item("page:home")
	assert.Equal(t, ItemSucceeded, home.State)
	assert.NotNil(t, home.StartedAt)
	crashed, _ := st.Item("page:imoveis")
	assert.Equal(t, ItemFailed, crashed.State)
	assert.Contains(t, crashed.Error, "panicked")
	contato, _ := st.Item("page:contato")
	assert.Equal(t, ItemSucceeded, contato.State)
}

func TestQueue_ItemConcurrencyIsBounded(t *testing.T) {
	q, _ := newQueue(t, Options{ItemConcurrency: 2})

	var running, peak atomic.Int32
	work := func(context.Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return nil
	}
	items := make([]Item, 8)
	for i := range items {
		items[i] = Item{Name: string(rune('a' + i)), Kind: "copy", Run: work}
	}
	id, err := q.Submit(context.Background(), Task{Items: items})
	require.NoError(t, err)

	st := waitFor(t, q, id)
	assert.Zero(t, st.Failed())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestQueue_DetachedFromSubmitter(t *testing.T) {
	q, _ := newQueue(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	var sawCancel atomic.Bool
	id, err := q.Submit(ctx, Task{Items: []Item{{Name: "slow", Run: func(ictx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		sawCancel.Store(ictx.Err() != nil)
		return nil
	}}}})
	require.NoError(t, err)
	cancel()

	st := waitFor(t, q, id)
	assert.Zero(t, st.Failed())
	assert.False(t, sawCancel.Load(), "submitter cancellation reached the item")
}

func TestQueue_TimeoutFailsItems(t *testing.T) {
	q, _ := newQueue(t, Options{Timeout: 20 * time.Millisecond})

	id, err := q.Submit(context.Background(), Task{Items: []Item{{Name: "stuck", Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}}})
	require.NoError(t, err)

	st := waitFor(t, q, id)
	assert.Equal(t, 1, st.Failed())
}

func TestQueue_FullAndClosed(t *testing.T) {
	q, _ := newQueue(t, Options{Workers: 1, Size: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	block := func(context.Context) error {
		close(started)
		<-release
		return nil
	}
	_, err := q.Submit(context.Background(), Task{Items: []Item{{Name: "a", Run: block}}})
	require.NoError(t, err)
	<-started

	_, err = q.Submit(context.Background(), Task{Items: []Item{{Name: "b", Run: ok}}})
	require.NoError(t, err, "one slot in the buffer")
	_, err = q.Submit(context.Background(), Task{Items: []Item{{Name: "c", Run: ok}}})
	assert.ErrorIs(t, err, ErrQueueFull)

	close(release)
	q.Close()
	_, err = q.Submit(context.Background(), Task{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_CloseDrainsBuffer(t *testing.T) {
	tr := NewMemoryTracker(time.Hour)
	q := NewQueue(tr, Options{Workers: 1, Size: 8}, zap.NewNop())

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := q.Submit(context.Background(), Task{Items: []Item{{Name: "x", Run: ok}}})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	q.Close()

	for _, id := range ids {
		st, err := tr.Get(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, st.Done(), "task %s not drained", id)
	}
}

func TestQueue_OnDoneAndStatusVisibleWhileRunning(t *testing.T) {
	q, tr := newQueue(t, Options{})

	release := make(chan struct{})
	var mu sync.Mutex
	var final Status
	id, err := q.Submit(context.Background(), Task{
		Items: []Item{{Name: "wait", Run: func(context.Context) error { <-release; return nil }}},
		OnDone: func(s Status) {
			mu.Lock()
			final = s
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := tr.Get(context.Background(), id)
		return err == nil && st.State == StateRunning
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	waitFor(t, q, id)
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, final.Done())
}

func TestQueue_WaitHonoursContext(t *testing.T) {
	q, _ := newQueue(t, Options{})
	release := make(chan struct{})
	defer close(release)

	id, err := q.Submit(context.Background(), Task{Items: []Item{{Name: "wait", Run: func(context.Context) error { <-release; return nil }}}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = q.Wait(ctx, id)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryTracker(t *testing.T) {
	tr := NewMemoryTracker(time.Hour)
	ctx := context.Background()

	_, err := tr.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	st := Status{ID: "t1", Items: []ItemStatus{{Name: "a", State: ItemPending}}}
	require.NoError(t, tr.Put(ctx, st))
	st.Items[0].State = ItemFailed

	got, err := tr.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, ItemPending, got.Items[0].State, "tracker keeps its own copy")
}
