package accounts

import (
	"context"
	"errors"
	"sync"

	"github.com/congo-pay/bankaccount/internal/account"
)

var (
	// ErrNotFound is returned when no account is registered under an ID.
	ErrNotFound = errors.New("account not found")
	// ErrExists is returned when an ID is registered twice.
	ErrExists = errors.New("account exists")
)

// Handle pairs an account with the lock that serialises access to it.
// account.Account does no locking of its own.
type Handle struct {
	mu      sync.Mutex
	account *account.Account
}

// With runs fn while holding the account's lock.
func (h *Handle) With(fn func(a *account.Account) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.account)
}

// Repository keeps open accounts addressable by ID.
type Repository interface {
	Create(ctx context.Context, id string, acct *account.Account) error
	Get(ctx context.Context, id string) (*Handle, error)
	Count(ctx context.Context) (int, error)
}

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]*Handle
}

// NewMemoryRepository constructs a process-local account registry.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]*Handle)}
}

func (r *memoryRepository) Create(_ context.Context, id string, acct *account.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[id]; exists {
		return ErrExists
	}
	r.storage[id] = &Handle{account: acct}
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.storage[id]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

func (r *memoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.storage), nil
}
