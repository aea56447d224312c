package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const storeTimeout = 3 * time.Second

// Setting keys.
const (
	KeyStoreURL        = "store-url"
	KeyStoreKey        = "store-key"
	KeyStartDate       = "start-date"
	KeyEndDate         = "end-date"
	KeyAnonymousFilter = "anonymous-filter"
	KeyIndiaFilter     = "india-filter"
)

// Preferences is everything the dashboard remembers between runs.
type Preferences struct {
	StoreURL  string `json:"store_url"`
	AccessKey string `json:"access_key"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Anonymous string `json:"anonymous"`
	India     string `json:"india"`
}

// Store is a key-value table in a local SQLite file.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the settings database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping settings db: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("migrate settings db: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// Set writes several keys in one transaction.
func (s *Store) Set(ctx context.Context, values map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer tx.Rollback()

	ts := s.now().UTC()
	for key, value := range values {
		_, err := tx.ExecContext(ctx, `INSERT INTO settings(key, value, updated_at) VALUES(?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, key, value, ts)
		if err != nil {
			return fmt.Errorf("set setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings tx: %w", err)
	}
	return nil
}

// LoadPreferences reads every known key; missing keys stay empty.
func (s *Store) LoadPreferences(ctx context.Context) (Preferences, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return Preferences{}, fmt.Errorf("load preferences: %w", err)
	}
	defer rows.Close()

	var p Preferences
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Preferences{}, fmt.Errorf("scan preference: %w", err)
		}
		switch key {
		case KeyStoreURL:
			p.StoreURL = value
		case KeyStoreKey:
			p.AccessKey = value
		case KeyStartDate:
			p.Start = value
		case KeyEndDate:
			p.End = value
		case KeyAnonymousFilter:
			p.Anonymous = value
		case KeyIndiaFilter:
			p.India = value
		}
	}
	if err := rows.Err(); err != nil {
		return Preferences{}, fmt.Errorf("iterate preferences: %w", err)
	}
	return p, nil
}

func (s *Store) SaveConnection(ctx context.Context, storeURL, accessKey string) error {
	return s.Set(ctx, map[string]string{KeyStoreURL: storeURL, KeyStoreKey: accessKey})
}

func (s *Store) SaveWindow(ctx context.Context, start, end string) error {
	return s.Set(ctx, map[string]string{KeyStartDate: start, KeyEndDate: end})
}

func (s *Store) SaveSegments(ctx context.Context, anonymous, india string) error {
	return s.Set(ctx, map[string]string{KeyAnonymousFilter: anonymous, KeyIndiaFilter: india})
}
