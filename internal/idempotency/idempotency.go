package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const Header = "Idempotency-Key"

// MaxKeyLength bounds client supplied keys.
const MaxKeyLength = 128

var (
	ErrInProgress = errors.New("a request with this idempotency key is still in progress")
	ErrInvalidKey = errors.New("invalid idempotency key")
	ErrKeyReused  = errors.New("idempotency key was already used for a different request")
)

func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Fingerprint identifies the payload of a request so a reused key can be told
// apart from a retry.
func Fingerprint(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint request: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

type Store interface {
	// Reserve claims key for the user. When an earlier request with the same
	// key and fingerprint completed, its stored response is returned with
	// replay=true. A different fingerprint yields ErrKeyReused.
	Reserve(ctx context.Context, userID, key, fingerprint string) (stored []byte, replay bool, err error)
	Complete(ctx context.Context, userID, key string, response []byte) error
	// Release forgets an unfinished reservation so the client may retry.
	Release(ctx context.Context, userID, key string) error
}

type PostgresStore struct {
	pool DBPool
}

func NewPostgresStore(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Reserve(ctx context.Context, userID, key, fingerprint string) ([]byte, bool, error) {
	if key == "" || len(key) > MaxKeyLength {
		return nil, false, ErrInvalidKey
	}

	var claimed bool
	err := s.pool.QueryRow(ctx, `
		INSERT INTO checkout_idempotency (user_id, idempotency_key, request_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, idempotency_key) DO NOTHING
		RETURNING true
	`, userID, key, fingerprint).Scan(&claimed)
	if err == nil {
		return nil, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}

	var (
		storedHash string
		stored     []byte
	)
	err = s.pool.QueryRow(ctx, `
		SELECT request_hash, response
		FROM checkout_idempotency
		WHERE user_id = $1 AND idempotency_key = $2
	`, userID, key).Scan(&storedHash, &stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Released between our insert and select.
			return nil, false, ErrInProgress
		}
		return nil, false, fmt.Errorf("load idempotent response: %w", err)
	}
	// Rows written before fingerprints were recorded carry an empty hash.
	if storedHash != "" && storedHash != fingerprint {
		return nil, false, ErrKeyReused
	}
	if stored == nil {
		return nil, false, ErrInProgress
	}
	return stored, true, nil
}

func (s *PostgresStore) Complete(ctx context.Context, userID, key string, response []byte) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE checkout_idempotency
		SET response = $3
		WHERE user_id = $1 AND idempotency_key = $2
	`, userID, key, response)
	if err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}

func (s *PostgresStore) Release(ctx context.Context, userID, key string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM checkout_idempotency
		WHERE user_id = $1 AND idempotency_key = $2 AND response IS NULL
	`, userID, key)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
