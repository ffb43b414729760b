package websocket

import "sync"

// Subscriber is one live comment stream as seen by the broadcaster.
// Send must not block; Close may be called more than once.
type Subscriber interface {
	Send(frame []byte) error
	Close()
}

// Registry maps ticket IDs to the set of connections watching them.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	tickets map[int64]map[Subscriber]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		tickets: make(map[int64]map[Subscriber]struct{}),
	}
}

// Register adds sub to the ticket's set. Registering twice is a no-op.
func (r *Registry) Register(ticketID int64, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.tickets[ticketID]
	if !ok {
		set = make(map[Subscriber]struct{})
		r.tickets[ticketID] = set
	}
	set[sub] = struct{}{}
}

// Unregister removes sub from the ticket's set and drops the ticket entry
// once it is empty. Unknown pairs are ignored.
func (r *Registry) Unregister(ticketID int64, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.tickets[ticketID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(r.tickets, ticketID)
	}
}

// ConnectionsFor returns a copy of the ticket's subscribers. The caller may
// iterate it while connections come and go.
func (r *Registry) ConnectionsFor(ticketID int64) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.tickets[ticketID]
	subs := make([]Subscriber, 0, len(set))
	for sub := range set {
		subs = append(subs, sub)
	}
	return subs
}

// All returns every (ticket, subscriber) pair currently registered.
func (r *Registry) All() map[int64][]Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64][]Subscriber, len(r.tickets))
	for ticketID, set := range r.tickets {
		subs := make([]Subscriber, 0, len(set))
		for sub := range set {
			subs = append(subs, sub)
		}
		out[ticketID] = subs
	}
	return out
}

// TicketCount returns the number of tickets with at least one subscriber.
func (r *Registry) TicketCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets)
}

// ConnectionCount returns the total number of registrations.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, set := range r.tickets {
		count += len(set)
	}
	return count
}

// CountFor returns the number of subscribers watching a ticket.
func (r *Registry) CountFor(ticketID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets[ticketID])
}
