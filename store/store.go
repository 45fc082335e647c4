// Package store holds the current snapshot of every thread and notifies
// subscribers when it changes.
//
// Each (agent, thread) key has its own lock, so events for one key are
// reduced and published strictly in dispatch order while different keys
// never block each other. Listeners are called synchronously with the key's
// lock held: they see every snapshot in order, and they must not dispatch to
// the same key from inside the callback. Long work belongs in a goroutine.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	ai "github.com/spetersoncode/aguikit"
	"github.com/spetersoncode/aguikit/event"
	"github.com/spetersoncode/aguikit/reducer"
)

// Listener receives a snapshot after it was published for key.
type Listener func(key ai.ThreadKey, snap *reducer.Snapshot)

// Store maps thread keys to their latest snapshot.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	threads map[ai.ThreadKey]*thread
	global  map[uint64]Listener
	nextID  atomic.Uint64

	logger  *slog.Logger
	adapter Adapter
}

type thread struct {
	// mu serializes reduce and publish for the key.
	mu   sync.Mutex
	snap atomic.Pointer[reducer.Snapshot]
	// gen counts retirements; live is set by the first publish after one.
	gen  atomic.Uint64
	live atomic.Bool

	subMu sync.Mutex
	subs  map[uint64]Listener
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithAdapter persists the transcript of a thread each time one of its runs
// ends, and enables Restore.
func WithAdapter(a Adapter) Option {
	return func(s *Store) {
		s.adapter = a
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		threads: make(map[ai.ThreadKey]*thread),
		global:  make(map[uint64]Listener),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) thread(key ai.ThreadKey) *thread {
	s.mu.RLock()
	t, ok := s.threads[key]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok = s.threads[key]; ok {
		return t
	}
	t = &thread{subs: make(map[uint64]Listener)}
	t.snap.Store(reducer.New(key))
	s.threads[key] = t
	return t
}

// Get returns the latest snapshot for key. Unknown keys yield an empty
// snapshot, never nil.
func (s *Store) Get(key ai.ThreadKey) *reducer.Snapshot {
	s.mu.RLock()
	t, ok := s.threads[key]
	s.mu.RUnlock()
	if !ok {
		return reducer.New(key)
	}
	return t.snap.Load()
}

// Dispatch reduces e into the snapshot for key and publishes the result.
// It returns the snapshot after the event.
func (s *Store) Dispatch(key ai.ThreadKey, e event.Event) *reducer.Snapshot {
	t := s.thread(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snap.Load()
	next := reducer.Reduce(prev, e)
	if next != prev {
		s.publishLocked(key, t, prev, next, true)
	}
	return next
}

// Publish replaces the snapshot for key. Subscribers are notified only when
// snap differs from the current snapshot. Reports whether it did.
func (s *Store) Publish(key ai.ThreadKey, snap *reducer.Snapshot) bool {
	if snap == nil {
		return false
	}
	t := s.thread(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snap.Load()
	if prev == snap {
		return false
	}
	s.publishLocked(key, t, prev, snap, true)
	return true
}

// Reset retires the history of key and deletes its persisted transcript.
func (s *Store) Reset(key ai.ThreadKey) {
	if s.adapter != nil {
		if err := s.adapter.Delete(context.Background(), key.String()); err != nil {
			s.logger.Warn("store: failed to delete transcript", "thread", key.String(), "error", err)
		}
	}
	s.Retire(key)
}

// Retire publishes an empty snapshot for key and starts a new generation.
// A persisted transcript is kept, so the thread can be restored later.
func (s *Store) Retire(key ai.ThreadKey) {
	t := s.thread(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen.Add(1)
	t.live.Store(false)
	prev := t.snap.Load()
	if len(prev.Messages) == 0 && len(prev.ToolCalls) == 0 && len(prev.Runs) == 0 && prev.State == nil {
		return
	}
	s.publishLocked(key, t, prev, reducer.New(key), false)
}

// publishLocked stores next and notifies listeners. With persist set, a
// run ending saves the transcript. t.mu must be held.
func (s *Store) publishLocked(key ai.ThreadKey, t *thread, prev, next *reducer.Snapshot, persist bool) {
	t.snap.Store(next)
	if persist {
		t.live.Store(true)
	}

	if persist && s.adapter != nil && prev.Running && !next.Running {
		if err := s.persist(context.Background(), key, next); err != nil {
			s.logger.Warn("store: failed to persist transcript", "thread", key.String(), "error", err)
		}
	}

	for _, fn := range t.listeners() {
		fn(key, next)
	}
	for _, fn := range s.globalListeners() {
		fn(key, next)
	}
}

func (t *thread) listeners() []Listener {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	return sortedListeners(t.subs)
}

func (s *Store) globalListeners() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedListeners(s.global)
}

// sortedListeners returns listeners in subscription order.
func sortedListeners(m map[uint64]Listener) []Listener {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = m[id]
	}
	return out
}

// Subscribe registers fn for changes to key. The returned function removes
// the subscription; calling it more than once is a no-op.
func (s *Store) Subscribe(key ai.ThreadKey, fn Listener) (unsubscribe func()) {
	t := s.thread(key)
	id := s.nextID.Add(1)

	t.subMu.Lock()
	t.subs[id] = fn
	t.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.subMu.Lock()
			delete(t.subs, id)
			t.subMu.Unlock()
		})
	}
}

// SubscribeAll registers fn for changes to every key, including keys created
// after the call.
func (s *Store) SubscribeAll(fn Listener) (unsubscribe func()) {
	id := s.nextID.Add(1)

	s.mu.Lock()
	s.global[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.global, id)
			s.mu.Unlock()
		})
	}
}

// Generation returns the number of times key has been retired. It does not
// take the key's lock, so listeners may call it.
func (s *Store) Generation(key ai.ThreadKey) uint64 {
	s.mu.RLock()
	t, ok := s.threads[key]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return t.gen.Load()
}

// Live reports whether key has received events or a restored transcript
// since it was last retired.
func (s *Store) Live(key ai.ThreadKey) bool {
	s.mu.RLock()
	t, ok := s.threads[key]
	s.mu.RUnlock()
	return ok && t.live.Load()
}

// DispatchAt dispatches e on behalf of work that began at generation gen of
// key. When key was retired since, e reaches the live snapshot only if that
// snapshot already holds the tool call e refers to. Otherwise e is folded
// into the persisted transcript, if there is one. Reports whether the live
// snapshot received e.
func (s *Store) DispatchAt(ctx context.Context, key ai.ThreadKey, gen uint64, e event.Event) (bool, error) {
	t := s.thread(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snap.Load()
	if t.gen.Load() != gen {
		if _, ok := prev.ToolCall(e.ToolCallID); !ok {
			return false, s.amendLocked(ctx, key, e)
		}
	}
	next := reducer.Reduce(prev, e)
	if next != prev {
		s.publishLocked(key, t, prev, next, true)
	}
	return true, nil
}

// amendLocked applies e to the persisted transcript of key. The key's lock
// must be held so Restore cannot interleave.
func (s *Store) amendLocked(ctx context.Context, key ai.ThreadKey, e event.Event) error {
	saved, ok, err := s.load(ctx, key)
	if err != nil || !ok {
		return err
	}
	snap := reducer.Reduce(reducer.Reduce(reducer.New(key), saved), e)
	return s.persist(ctx, key, snap)
}

// RunIDs returns the run ids recorded for key in start order.
func (s *Store) RunIDs(key ai.ThreadKey) []string {
	return s.Get(key).RunIDs()
}

// RunState returns the shared state recorded for a run.
func (s *Store) RunState(key ai.ThreadKey, runID string) (any, bool) {
	run, ok := s.Get(key).Run(runID)
	if !ok {
		return nil, false
	}
	return run.State, true
}

// Keys returns every key the store has seen, ordered by agent then thread.
func (s *Store) Keys() []ai.ThreadKey {
	s.mu.RLock()
	keys := make([]ai.ThreadKey, 0, len(s.threads))
	for k := range s.threads {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AgentID != keys[j].AgentID {
			return keys[i].AgentID < keys[j].AgentID
		}
		return keys[i].ThreadID < keys[j].ThreadID
	})
	return keys
}

// Save persists the current transcript of key. It is a no-op without an
// adapter.
func (s *Store) Save(ctx context.Context, key ai.ThreadKey) error {
	if s.adapter == nil {
		return nil
	}
	return s.persist(ctx, key, s.Get(key))
}

func (s *Store) persist(ctx context.Context, key ai.ThreadKey, snap *reducer.Snapshot) error {
	data, err := json.Marshal(event.NewMessagesSnapshot(snap.WireMessages()))
	if err != nil {
		return fmt.Errorf("store: encode transcript: %w", err)
	}
	return s.adapter.Set(ctx, key.String(), data)
}

// Restore loads the persisted transcript of key and dispatches it as a
// MESSAGES_SNAPSHOT. Reports whether a transcript was found.
func (s *Store) Restore(ctx context.Context, key ai.ThreadKey) (bool, error) {
	if s.adapter == nil {
		return false, nil
	}
	t := s.thread(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok, err := s.load(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	prev := t.snap.Load()
	next := reducer.Reduce(prev, e)
	if next != prev {
		s.publishLocked(key, t, prev, next, true)
	} else {
		t.live.Store(true)
	}
	return true, nil
}

func (s *Store) load(ctx context.Context, key ai.ThreadKey) (event.Event, bool, error) {
	if s.adapter == nil {
		return event.Event{}, false, nil
	}
	data, ok, err := s.adapter.Get(ctx, key.String())
	if err != nil || !ok {
		return event.Event{}, false, err
	}
	e, err := event.Decode(data)
	if err != nil {
		return event.Event{}, false, fmt.Errorf("store: decode transcript for %s: %w", key, err)
	}
	return e, true, nil
}
