package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/drishti-pos/drishti-pos/internal/shared"
)

// ErrTerminalAuth indicates a failed terminal key check.
var ErrTerminalAuth = errors.New("terminal authentication failed")

// TerminalStore authenticates POS terminals against their provisioned keys.
// Keys are stored bcrypt-hashed; a till is enrolled once and keeps its key
// in its local config.
type TerminalStore struct {
	pool *pgxpool.Pool
}

// NewTerminalStore constructs TerminalStore.
func NewTerminalStore(pool *pgxpool.Pool) *TerminalStore {
	return &TerminalStore{pool: pool}
}

// Authenticate verifies the key for a terminal and returns its identity.
func (s *TerminalStore) Authenticate(ctx context.Context, terminalID int64, key string) (*shared.Terminal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, branch_code, label, key_hash, is_active FROM terminals WHERE id = $1`, terminalID)

	var (
		t        shared.Terminal
		keyHash  []byte
		isActive bool
	)
	if err := row.Scan(&t.ID, &t.BranchCode, &t.Label, &keyHash, &isActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTerminalAuth
		}
		return nil, fmt.Errorf("load terminal: %w", err)
	}
	if !isActive {
		return nil, ErrTerminalAuth
	}
	if err := bcrypt.CompareHashAndPassword(keyHash, []byte(key)); err != nil {
		return nil, ErrTerminalAuth
	}
	return &t, nil
}

// Enroll registers a new terminal and returns its id. The caller hands the
// plain key to the till operator; only the hash is kept.
func (s *TerminalStore) Enroll(ctx context.Context, branchCode, label, key string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash terminal key: %w", err)
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO terminals (branch_code, label, key_hash, is_active) VALUES ($1, $2, $3, true) RETURNING id`,
		branchCode, label, hash).Scan(&id)
	if err != nil {
		return 0, shared.MapStoreError(err)
	}
	return id, nil
}
