package api

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Nikhil-Joson/HomeCanvas/internal/asset"
	"github.com/Nikhil-Joson/HomeCanvas/internal/store"
	"github.com/Nikhil-Joson/HomeCanvas/internal/studio"
)

// gatedJournal blocks Load until release is closed.
type gatedJournal struct {
	*store.Memory
	loads   atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (j *gatedJournal) Load(ctx context.Context, id string) (*store.Snapshot, error) {
	j.loads.Add(1)
	j.once.Do(func() { close(j.started) })
	<-j.release
	return j.Memory.Load(ctx, id)
}

func testOptions(t *testing.T) studio.Options {
	t.Helper()
	assets, err := asset.NewStore(t.TempDir(), "/assets/")
	if err != nil {
		t.Fatal(err)
	}
	return studio.Options{Generator: &fakeGenerator{}, Assets: assets}
}

func TestManager_ConcurrentGetSharesLoad(t *testing.T) {
	ctx := context.Background()
	journal := &gatedJournal{
		Memory:  store.NewMemory(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	opts := testOptions(t)

	// Persist a session with a different manager so this one must load it.
	seed := NewManager(journal.Memory, opts)
	cold, err := seed.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	seed.Close()

	m := NewManager(journal, opts)
	defer m.Close()
	warm, err := m.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	const callers = 8
	var wg sync.WaitGroup
	got := make([]*studio.Studio, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = m.Get(ctx, cold.ID())
		}()
	}

	<-journal.started
	done := make(chan struct{})
	go func() {
		defer close(done)
		if st, err := m.Get(ctx, warm.ID()); err != nil || st != warm {
			t.Errorf("Get(warm) = %p, %v, want %p", st, err, warm)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Get of a loaded session blocked behind another session's load")
	}

	close(journal.release)
	wg.Wait()

	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("Get() caller %d error = %v", i, errs[i])
		}
		if got[i] != got[0] {
			t.Errorf("caller %d got a different studio", i)
		}
	}
	if n := journal.loads.Load(); n != 1 {
		t.Errorf("journal loads = %d, want 1", n)
	}
}

func TestManager_EvictIdle(t *testing.T) {
	ctx := context.Background()
	m := NewManager(store.NewMemory(), testOptions(t))
	defer m.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, err := m.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	watched, err := m.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	unsubscribe := watched.Subscribe(func(studio.Notice) {})
	defer unsubscribe()

	now = now.Add(10 * time.Minute)
	if ids := m.EvictIdle(30 * time.Minute); len(ids) != 0 {
		t.Fatalf("EvictIdle() before timeout = %v, want none", ids)
	}

	now = now.Add(30 * time.Minute)
	ids := m.EvictIdle(30 * time.Minute)
	if len(ids) != 1 || ids[0] != idle.ID() {
		t.Fatalf("EvictIdle() = %v, want [%s]", ids, idle.ID())
	}

	// The evicted session is restored from the journal on the next lookup.
	restored, err := m.Get(ctx, idle.ID())
	if err != nil {
		t.Fatalf("Get() after eviction error = %v", err)
	}
	if restored == idle {
		t.Error("Get() after eviction returned the closed studio")
	}
	if st, err := m.Get(ctx, watched.ID()); err != nil || st != watched {
		t.Errorf("Get(watched) = %p, %v, want the subscribed studio", st, err)
	}
}
