package correlator

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ID identifies a handle across the bridge. Its string form is the
// 36-character hyphenated UUID.
type ID = uuid.UUID

// ParseID parses the string form of an ID. Anything that is not a UUID
// reports ok=false.
func ParseID(s string) (ID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Interaction is a native-side object owned by the store while it is live.
type Interaction interface {
	// Release cancels pending callbacks and closes any underlying session.
	// The store calls it exactly once, after the handle has been evicted.
	Release()
}

// Handle is one tracked interaction.
type Handle struct {
	id          ID
	owner       string
	caller      string
	interaction Interaction
	createdAt   time.Time

	mu          sync.Mutex
	status      Status
	completedAt time.Time
}

func (h *Handle) ID() ID                   { return h.id }
func (h *Handle) Owner() string            { return h.owner }
func (h *Handle) Caller() string           { return h.caller }
func (h *Handle) Interaction() Interaction { return h.interaction }
func (h *Handle) CreatedAt() time.Time     { return h.createdAt }

// Status returns the current lifecycle state.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Info returns a consistent snapshot of the handle.
func (h *Handle) Info() Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.infoLocked()
}

func (h *Handle) infoLocked() Info {
	return Info{
		ID:          h.id,
		Owner:       h.owner,
		Caller:      h.caller,
		Status:      h.status,
		CreatedAt:   h.createdAt,
		CompletedAt: h.completedAt,
	}
}

// complete moves Active to Completed. Any other state is left untouched.
func (h *Handle) complete(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status != StatusActive {
		return false
	}
	h.status = StatusCompleted
	h.completedAt = now
	return true
}

func (h *Handle) markRemoved() {
	h.mu.Lock()
	h.status = StatusRemoved
	h.mu.Unlock()
}

// Info is an immutable view of a handle.
type Info struct {
	ID    ID
	Owner string
	// Caller is the bridge client that started the interaction, empty for
	// in-process callers.
	Caller      string
	Status      Status
	CreatedAt   time.Time
	CompletedAt time.Time
}
