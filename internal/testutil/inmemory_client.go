package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/tenantcore/internal/postgres"
	"github.com/flexprice/tenantcore/internal/types"
)

type memTxKey struct{}

type memTx struct {
	mu          sync.Mutex
	undo        []func()
	afterCommit []func()
}

// InMemoryClient implements postgres.IClient for the in-memory stores. A
// failing WithTx replays the undo log in reverse, which is what makes
// batch rollback observable in tests.
type InMemoryClient struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewInMemoryClient() *InMemoryClient {
	return &InMemoryClient{locks: make(map[string]*sync.Mutex)}
}

var _ postgres.IClient = (*InMemoryClient)(nil)

func (c *InMemoryClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if c.InTx(ctx) {
		return fn(ctx)
	}

	tx := &memTx{}
	txCtx := context.WithValue(ctx, memTxKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		tx.rollback()
		return err
	}

	tx.mu.Lock()
	hooks := tx.afterCommit
	tx.mu.Unlock()
	for _, h := range hooks {
		h()
	}
	return nil
}

func (c *InMemoryClient) AfterCommit(ctx context.Context, fn func()) {
	tx, ok := ctx.Value(memTxKey{}).(*memTx)
	if !ok {
		fn()
		return
	}
	tx.mu.Lock()
	tx.afterCommit = append(tx.afterCommit, fn)
	tx.mu.Unlock()
}

// LockKey takes a process-local mutex released when the transaction ends
func (c *InMemoryClient) LockKey(ctx context.Context, req types.LockRequest) error {
	tx, ok := ctx.Value(memTxKey{}).(*memTx)
	if !ok {
		return nil
	}

	c.mu.Lock()
	m, exists := c.locks[req.Key]
	if !exists {
		m = &sync.Mutex{}
		c.locks[req.Key] = m
	}
	c.mu.Unlock()

	m.Lock()
	tx.mu.Lock()
	tx.afterCommit = append(tx.afterCommit, m.Unlock)
	tx.undo = append([]func(){m.Unlock}, tx.undo...)
	tx.mu.Unlock()
	return nil
}

func (c *InMemoryClient) Querier(ctx context.Context) postgres.Querier {
	return nil
}

func (c *InMemoryClient) InTx(ctx context.Context) bool {
	_, ok := ctx.Value(memTxKey{}).(*memTx)
	return ok
}

func (tx *memTx) rollback() {
	tx.mu.Lock()
	undo := tx.undo
	tx.undo = nil
	tx.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

func recordUndo(ctx context.Context, fn func()) {
	tx, ok := ctx.Value(memTxKey{}).(*memTx)
	if !ok {
		return
	}
	tx.mu.Lock()
	tx.undo = append(tx.undo, fn)
	tx.mu.Unlock()
}
