package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/wappgate/wappgate/internal/domain"
)

const (
	postgresSessionsTable    = "wapp_sessions"
	postgresOperationTimeout = 5 * time.Second
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// PostgresStore persists session snapshots in a single upsert table. The
// connection is opened lazily on first use.
type PostgresStore struct {
	dsn    string
	openDB sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	return &PostgresStore{dsn: dsn, openDB: sql.Open}, nil
}

func (s *PostgresStore) ensureReady() error {
	s.initOnce.Do(func() {
		db, err := s.openDB("postgres", s.dsn)
		if err != nil {
			s.initErr = err
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
		defer cancel()

		schema := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				account_id TEXT PRIMARY KEY,
				snapshot   TEXT NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`, postgresSessionsTable)
		if _, err := db.ExecContext(ctx, schema); err != nil {
			s.initErr = err
			_ = db.Close()
			return
		}
		s.db = db
	})
	return s.initErr
}

func (s *PostgresStore) UpdateSessionState(accountID string, snap domain.SessionSnapshot) error {
	if err := validateAccountID(accountID); err != nil {
		return err
	}
	if err := s.ensureReady(); err != nil {
		return err
	}

	payload, err := json.Marshal(toRecordData(snap))
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (account_id, snapshot, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account_id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = NOW()`, postgresSessionsTable)
	_, err = s.db.ExecContext(ctx, query, accountID, string(payload))
	return err
}

func (s *PostgresStore) Load(accountID string) (domain.SessionSnapshot, error) {
	if err := validateAccountID(accountID); err != nil {
		return domain.SessionSnapshot{}, err
	}
	if err := s.ensureReady(); err != nil {
		return domain.SessionSnapshot{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT snapshot FROM %s WHERE account_id = $1", postgresSessionsTable)
	var payload string
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionSnapshot{}, ErrNotFound
	}
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	var data recordData
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("failed to decode session record: %w", err)
	}
	return fromRecordData(data), nil
}

func (s *PostgresStore) List() ([]domain.SessionSnapshot, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT snapshot FROM %s ORDER BY account_id", postgresSessionsTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []domain.SessionSnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var data recordData
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			continue
		}
		snaps = append(snaps, fromRecordData(data))
	}
	return snaps, rows.Err()
}

func (s *PostgresStore) Delete(accountID string) error {
	if err := validateAccountID(accountID); err != nil {
		return err
	}
	if err := s.ensureReady(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), postgresOperationTimeout)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE account_id = $1", postgresSessionsTable)
	res, err := s.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
