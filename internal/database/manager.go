package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrMissingURL         = errors.New("database URL is required")
	ErrAlreadyInitialized = errors.New("database pool already initialized")
	ErrNotInitialized     = errors.New("database pool must be initialized before use")
	ErrPoolUnavailable    = errors.New("no database connection available")
	ErrProbeFailed        = errors.New("database probe failed")
)

const defaultProbeQuery = "SELECT 1"

// Config describes the pool the Manager builds.
type Config struct {
	URL        string
	MaxConns   int32
	ProbeQuery string
}

// Manager owns the process-wide connection pool. The pool is set at most once;
// later Initialize calls are rejected and leave the stored pool untouched.
type Manager struct {
	mu         sync.RWMutex
	pool       *pgxpool.Pool
	probeQuery string
}

func NewManager() *Manager {
	return &Manager{}
}

// Initialize builds the pool. Connections are opened lazily, so an unreachable
// server is reported by the first Acquire, not here.
func (m *Manager) Initialize(ctx context.Context, cfg Config) error {
	if cfg.URL == "" {
		return ErrMissingURL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		return ErrAlreadyInitialized
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}

	m.pool = pool
	m.probeQuery = cfg.ProbeQuery
	if m.probeQuery == "" {
		m.probeQuery = defaultProbeQuery
	}
	return nil
}

// Initialized reports whether Initialize has succeeded.
func (m *Manager) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pool != nil
}

// Pool returns the stored pool. Calling it before Initialize is a programming
// error and panics.
func (m *Manager) Pool() *pgxpool.Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pool == nil {
		panic(ErrNotInitialized)
	}
	return m.pool
}

// Acquire borrows a connection, blocking until one is free or ctx ends.
// The caller must Release it.
func (m *Manager) Acquire(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := m.Pool().Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoolUnavailable, err)
	}
	return conn, nil
}

// Probe runs the probe query on a borrowed connection. The connection goes back
// to the pool on every path, including when ctx is cancelled mid-query.
func (m *Manager) Probe(ctx context.Context) error {
	conn, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, m.probeQuery); err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	return nil
}

// Close releases every connection. It is safe to call on an uninitialized Manager.
func (m *Manager) Close() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pool != nil {
		m.pool.Close()
	}
}
