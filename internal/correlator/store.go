package correlator

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/walletbridge/internal/ctxlog"
)

// Store is the keyed store binding IDs to live interactions. It is created at
// application startup, passed to every module that needs it, and closed at
// shutdown. The zero value is not usable; call New.
type Store struct {
	handles sync.Map // Key: ID, Value: *Handle
	live    atomic.Int64

	newID func() ID
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDSource replaces the UUID generator.
func WithIDSource(fn func() ID) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock replaces the time source used for timestamps and sweeping.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		newID: uuid.New,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register stores the interaction as Active under a fresh ID and returns it.
// The caller recorded on ctx, if any, is kept on the handle.
func (s *Store) Register(ctx context.Context, owner string, interaction Interaction) ID {
	caller := CallerFrom(ctx)
	for {
		h := &Handle{
			id:          s.newID(),
			owner:       owner,
			caller:      caller,
			interaction: interaction,
			createdAt:   s.now(),
			status:      StatusActive,
		}
		if _, loaded := s.handles.LoadOrStore(h.id, h); loaded {
			ctxlog.FromContext(ctx).Warn("Interaction ID collision, generating a new one.", "uuid", h.id)
			continue
		}
		s.live.Add(1)
		ctxlog.FromContext(ctx).Debug("Interaction registered.", "uuid", h.id, "owner", owner, "caller", caller)
		return h.id
	}
}

// Lookup returns the handle while it is Active or Completed.
func (s *Store) Lookup(ctx context.Context, id ID) (*Handle, bool) {
	v, ok := s.handles.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Handle), true
}

// LookupString is Lookup for IDs received as strings across the bridge.
func (s *Store) LookupString(ctx context.Context, raw string) (*Handle, bool) {
	id, ok := ParseID(raw)
	if !ok {
		return nil, false
	}
	return s.Lookup(ctx, id)
}

// Complete marks an Active handle as Completed. It reports false when the
// handle is unknown, already completed or removed.
func (s *Store) Complete(ctx context.Context, id ID) bool {
	v, ok := s.handles.Load(id)
	if !ok {
		return false
	}
	if !v.(*Handle).complete(s.now()) {
		return false
	}
	ctxlog.FromContext(ctx).Debug("Interaction completed.", "uuid", id)
	return true
}

// Remove evicts the handle, marks it Removed and releases its interaction.
// It reports whether this call performed the eviction. Unknown IDs are a
// no-op.
func (s *Store) Remove(ctx context.Context, id ID) bool {
	v, ok := s.handles.LoadAndDelete(id)
	if !ok {
		ctxlog.FromContext(ctx).Debug("Remove for unknown interaction ignored.", "uuid", id)
		return false
	}
	s.live.Add(-1)
	h := v.(*Handle)
	h.markRemoved()
	if h.interaction != nil {
		h.interaction.Release()
	}
	ctxlog.FromContext(ctx).Debug("Interaction removed.", "uuid", id, "owner", h.owner)
	return true
}

// RemoveString is Remove for IDs received as strings across the bridge. A
// malformed ID is treated like an unknown one.
func (s *Store) RemoveString(ctx context.Context, raw string) bool {
	id, ok := ParseID(raw)
	if !ok {
		ctxlog.FromContext(ctx).Debug("Remove for malformed interaction ID ignored.", "uuid", raw)
		return false
	}
	return s.Remove(ctx, id)
}

// Do runs fn with a snapshot of the handle while holding the handle's lock,
// unless the handle is unknown or Removed. Once Remove has returned for an
// ID, Do for that ID never runs fn again.
func (s *Store) Do(ctx context.Context, id ID, fn func(Info)) bool {
	v, ok := s.handles.Load(id)
	if !ok {
		return false
	}
	h := v.(*Handle)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == StatusRemoved {
		return false
	}
	fn(h.infoLocked())
	return true
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	return int(s.live.Load())
}

// Snapshot returns the live handles ordered by creation time.
func (s *Store) Snapshot() []Info {
	var out []Info
	s.handles.Range(func(_, v any) bool {
		out = append(out, v.(*Handle).Info())
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Sweep removes Completed handles whose completion is older than ttl and
// returns how many it evicted. Active handles are never swept.
func (s *Store) Sweep(ctx context.Context, ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)
	var expired []ID
	s.handles.Range(func(k, v any) bool {
		info := v.(*Handle).Info()
		if info.Status == StatusCompleted && !info.CompletedAt.After(cutoff) {
			expired = append(expired, k.(ID))
		}
		return true
	})

	n := 0
	for _, id := range expired {
		if s.Remove(ctx, id) {
			n++
		}
	}
	if n > 0 {
		ctxlog.FromContext(ctx).Debug("Swept completed interactions.", "count", n)
	}
	return n
}

// Close removes every live handle. The store stays usable afterwards.
func (s *Store) Close(ctx context.Context) {
	var ids []ID
	s.handles.Range(func(k, _ any) bool {
		ids = append(ids, k.(ID))
		return true
	})
	for _, id := range ids {
		s.Remove(ctx, id)
	}
	ctxlog.FromContext(ctx).Debug("Correlator closed.", "released", len(ids))
}
