package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/flexprice/tenantcore/internal/config"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/logger"
	"github.com/flexprice/tenantcore/internal/types"
	_ "github.com/lib/pq"
)

// Querier is satisfied by both *sql.DB and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// IClient is what services depend on: a unit of work plus advisory locks.
// Repositories additionally use Querier to run statements inside the
// transaction carried by the context.
type IClient interface {
	// WithTx runs fn inside a transaction. Nested calls join the outer one.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// AfterCommit defers fn until the surrounding transaction commits. Outside
	// a transaction fn runs immediately.
	AfterCommit(ctx context.Context, fn func())
	LockKey(ctx context.Context, req types.LockRequest) error
	Querier(ctx context.Context) Querier
	InTx(ctx context.Context) bool
}

type txKey struct{}

type txState struct {
	tx          *sql.Tx
	mu          sync.Mutex
	afterCommit []func()
}

type Client struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewDB opens the connection pool described by the configuration
func NewDB(cfg *config.Configuration, log *logger.Logger) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	log.Infow("connected to postgres",
		"host", cfg.Postgres.Host,
		"dbname", cfg.Postgres.DBName,
	)
	return db, nil
}

func NewClient(db *sql.DB, log *logger.Logger) *Client {
	return &Client{db: db, logger: log}
}

// DB exposes the pool for migrations and health checks
func (c *Client) DB() *sql.DB {
	return c.db
}

func (c *Client) TxFromContext(ctx context.Context) *sql.Tx {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		return st.tx
	}
	return nil
}

func (c *Client) InTx(ctx context.Context) bool {
	return c.TxFromContext(ctx) != nil
}

func (c *Client) Querier(ctx context.Context) Querier {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db
}

func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if c.InTx(ctx) {
		return fn(ctx)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to start transaction").
			Mark(ierr.ErrDatabase)
	}

	st := &txState{tx: tx}
	txCtx := context.WithValue(ctx, txKey{}, st)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Errorw("failed to rollback transaction", "error", rbErr, "cause", err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}

	st.mu.Lock()
	hooks := st.afterCommit
	st.mu.Unlock()
	for _, hook := range hooks {
		hook()
	}
	return nil
}

func (c *Client) AfterCommit(ctx context.Context, fn func()) {
	st, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		fn()
		return
	}
	st.mu.Lock()
	st.afterCommit = append(st.afterCommit, fn)
	st.mu.Unlock()
}
