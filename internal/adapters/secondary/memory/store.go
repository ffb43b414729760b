// Package memory is a process-local store used when no database is
// configured. Data is lost on restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lorrc/repair-desk-backend/internal/core/domain"
	apperrors "github.com/lorrc/repair-desk-backend/internal/core/errors"
	"github.com/lorrc/repair-desk-backend/internal/core/ports"
)

// Store keeps users, tickets and comments in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	// txMu serialises WithTransaction callers so a lookup and the write
	// that depends on it are not interleaved with another transaction.
	txMu sync.Mutex

	nextUserID    int64
	nextTicketID  int64
	nextCommentID int64

	users     map[int64]domain.User
	usernames map[string]int64
	tickets   map[int64]domain.Ticket
	comments  map[int64][]domain.Comment
	now       func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:     make(map[int64]domain.User),
		usernames: make(map[string]int64),
		tickets:   make(map[int64]domain.Ticket),
		comments:  make(map[int64][]domain.Comment),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Ping always succeeds unless ctx is done.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Users returns the user repository view of the store.
func (s *Store) Users() ports.UserRepository { return userRepo{s} }

// Tickets returns the ticket repository view of the store.
func (s *Store) Tickets() ports.TicketRepository { return ticketRepo{s} }

// Comments returns the comment repository view of the store.
func (s *Store) Comments() ports.CommentRepository { return commentRepo{s} }

// TxManager returns a transaction manager over the store.
func (s *Store) TxManager() ports.TransactionManager { return txManager{s} }

type txManager struct{ s *Store }

// WithTransaction runs fn while holding the store's transaction lock. There
// is no rollback; fn's writes stand even when it returns an error.
func (t txManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()
	return fn(ctx)
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Username)
	if _, taken := s.usernames[key]; taken {
		return nil, apperrors.ErrUserExists
	}

	s.nextUserID++
	stored := *user
	stored.ID = s.nextUserID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.users[stored.ID] = stored
	s.usernames[key] = stored.ID

	out := stored
	return &out, nil
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &user, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.usernames[strings.ToLower(username)]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	user := r.s.users[id]
	return &user, nil
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextTicketID++
	stored := *ticket
	stored.ID = s.nextTicketID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	if stored.Status == "" {
		stored.Status = domain.StatusOpen
	}
	s.tickets[stored.ID] = stored

	out := stored
	return &out, nil
}

func (r ticketRepo) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	return &ticket, nil
}

type commentRepo struct{ s *Store }

// Create appends the comment. IDs are allocated under the write lock so
// per-ticket order matches ID order.
func (r commentRepo) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[comment.TicketID]; !ok {
		return nil, apperrors.ErrTicketNotFound
	}

	s.nextCommentID++
	stored := *comment
	stored.ID = s.nextCommentID
	stored.CreatedAt = s.now()
	s.comments[stored.TicketID] = append(s.comments[stored.TicketID], stored)

	out := stored
	return &out, nil
}

// ListByTicketID returns copies, oldest first. Unknown tickets yield an
// empty slice.
func (r commentRepo) ListByTicketID(ctx context.Context, ticketID int64) ([]*domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored := r.s.comments[ticketID]
	out := make([]*domain.Comment, 0, len(stored))
	for i := range stored {
		c := stored[i]
		out = append(out, &c)
	}
	return out, nil
}
