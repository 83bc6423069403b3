package bot

import (
	"maps"
	"sync"
	"time"

	"github.com/garyellow/chatbot-go/internal/metrics"
)

// FlowData is the partial form data of a multi-step flow.
type FlowData map[string]string

type flowKey struct {
	flow string
	user string
}

type flowEntry struct {
	mu      sync.Mutex
	data    FlowData
	expires time.Time // zero means never
	deleted bool
}

// SessionStore keeps multi-step flow state per (flow, user) in memory.
// Operations on the same key are serialized; different keys never contend.
// Nothing survives a restart.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[flowKey]*flowEntry
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
}

// NewSessionStore creates a store. ttl 0 keeps entries until deleted.
func NewSessionStore(ttl time.Duration, m *metrics.Metrics) *SessionStore {
	return &SessionStore{
		entries: make(map[flowKey]*flowEntry),
		ttl:     ttl,
		now:     time.Now,
		metrics: m,
	}
}

// lock returns the locked entry for k, creating it if needed.
func (s *SessionStore) lock(k flowKey) *flowEntry {
	for {
		s.mu.Lock()
		e, ok := s.entries[k]
		if !ok {
			e = &flowEntry{}
			s.entries[k] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.deleted {
			return e
		}
		// Removed between the map lookup and the lock; try again.
		e.mu.Unlock()
	}
}

// removeLocked drops e from the map. e.mu must be held.
func (s *SessionStore) removeLocked(k flowKey, e *flowEntry) {
	e.deleted = true
	e.data = nil
	s.mu.Lock()
	if s.entries[k] == e {
		delete(s.entries, k)
	}
	s.mu.Unlock()
}

func (s *SessionStore) expired(e *flowEntry) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}

// Get returns a copy of the stored data. A missing or expired entry
// reports false.
func (s *SessionStore) Get(flow, user string) (FlowData, bool) {
	k := flowKey{flow, user}
	s.mu.RLock()
	e, ok := s.entries[k]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted || e.data == nil {
		return nil, false
	}
	if s.expired(e) {
		s.removeLocked(k, e)
		s.report()
		return nil, false
	}
	return maps.Clone(e.data), true
}

// Put replaces the data for (flow, user).
func (s *SessionStore) Put(flow, user string, data FlowData) {
	s.Update(flow, user, func(FlowData, bool) (FlowData, bool) {
		return data, true
	})
}

// Update applies fn atomically to the current data of (flow, user). fn
// receives a copy and whether an entry existed; returning keep=false
// deletes the entry.
func (s *SessionStore) Update(flow, user string, fn func(cur FlowData, ok bool) (next FlowData, keep bool)) {
	k := flowKey{flow, user}
	e := s.lock(k)
	defer e.mu.Unlock()

	cur, ok := e.data, e.data != nil
	if ok && s.expired(e) {
		cur, ok = nil, false
	}
	next, keep := fn(maps.Clone(cur), ok)
	if !keep || next == nil {
		s.removeLocked(k, e)
		s.report()
		return
	}
	e.data = maps.Clone(next)
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.report()
}

// Take returns the data for (flow, user) and deletes it in one step.
func (s *SessionStore) Take(flow, user string) (FlowData, bool) {
	var out FlowData
	var found bool
	s.Update(flow, user, func(cur FlowData, ok bool) (FlowData, bool) {
		out, found = cur, ok
		return nil, false
	})
	return out, found
}

// Delete removes the entry. It reports whether one existed.
func (s *SessionStore) Delete(flow, user string) bool {
	_, found := s.Take(flow, user)
	return found
}

// Sweep removes expired entries and returns how many it removed.
func (s *SessionStore) Sweep() int {
	s.mu.RLock()
	snapshot := make(map[flowKey]*flowEntry, len(s.entries))
	maps.Copy(snapshot, s.entries)
	s.mu.RUnlock()

	removed := 0
	for k, e := range snapshot {
		e.mu.Lock()
		if !e.deleted && (e.data == nil || s.expired(e)) {
			s.removeLocked(k, e)
			removed++
		}
		e.mu.Unlock()
	}
	s.report()
	return removed
}

// Len returns the number of tracked entries.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *SessionStore) report() {
	if s.metrics != nil {
		s.metrics.SetSessionsActive(s.Len())
	}
}

// For returns an accessor bound to user.
func (s *SessionStore) For(user string) *FlowAccessor {
	return &FlowAccessor{store: s, user: user}
}

// FlowAccessor is the only way handlers touch flow state. It is bound to
// the acting user so a handler cannot read another user's flow.
type FlowAccessor struct {
	store *SessionStore
	user  string
}

// Get returns the data of flow for the bound user.
func (a *FlowAccessor) Get(flow string) (FlowData, bool) {
	return a.store.Get(flow, a.user)
}

// Put replaces the data of flow for the bound user.
func (a *FlowAccessor) Put(flow string, data FlowData) {
	a.store.Put(flow, a.user, data)
}

// Update applies fn atomically to flow for the bound user.
func (a *FlowAccessor) Update(flow string, fn func(cur FlowData, ok bool) (FlowData, bool)) {
	a.store.Update(flow, a.user, fn)
}

// Take returns and deletes the data of flow for the bound user.
func (a *FlowAccessor) Take(flow string) (FlowData, bool) {
	return a.store.Take(flow, a.user)
}

// Delete removes flow for the bound user.
func (a *FlowAccessor) Delete(flow string) bool {
	return a.store.Delete(flow, a.user)
}
