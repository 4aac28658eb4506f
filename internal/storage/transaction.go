package storage

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

type ctxKey int

const (
	txKey ctxKey = iota
	hooksKey
)

// Manager wraps gorm transactions and carries the active transaction through
// the context so repositories across packages join the same one.
type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// WithTransaction runs fn inside a single transaction. Callbacks registered
// via OnCommit during fn run only after the transaction commits; on rollback
// they are discarded.
func (m *Manager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, hooks := BeginHooks(ctx)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
	if err != nil {
		return err
	}

	hooks.Run()

	return nil
}

// Executor returns the transaction bound to ctx, falling back to db.
func Executor(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}

	return db.WithContext(ctx)
}

// BeginHooks attaches a fresh post-commit hook list to the context. The
// owner decides when (or whether) to run the collected hooks.
func BeginHooks(ctx context.Context) (context.Context, *Hooks) {
	hooks := &Hooks{}

	return context.WithValue(ctx, hooksKey, hooks), hooks
}

// OnCommit defers fn until the enclosing transaction commits. Outside of a
// transaction fn runs immediately.
func OnCommit(ctx context.Context, fn func()) {
	hooks, ok := ctx.Value(hooksKey).(*Hooks)
	if !ok {
		fn()

		return
	}

	hooks.add(fn)
}

type Hooks struct {
	mu  sync.Mutex
	fns []func()
}

func (h *Hooks) add(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.fns = append(h.fns, fn)
}

func (h *Hooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
