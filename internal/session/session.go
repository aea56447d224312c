package session

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/abduss/pipelinedash/internal/config"
	"github.com/abduss/pipelinedash/internal/records"
	"github.com/abduss/pipelinedash/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Credentials identify the pipeline database chosen by the operator.
type Credentials struct {
	StoreURL  string `json:"store_url"`
	AccessKey string `json:"access_key"`
}

func (c Credentials) normalized() Credentials {
	return Credentials{StoreURL: strings.TrimSpace(c.StoreURL), AccessKey: strings.TrimSpace(c.AccessKey)}
}

// Valid reports whether both values are present.
func (c Credentials) Valid() bool {
	n := c.normalized()
	return n.StoreURL != "" && n.AccessKey != ""
}

// conn is an open store connection.
type conn interface {
	records.Source
	Ping(ctx context.Context) error
	Close()
}

type opener func(ctx context.Context, cfg config.StoreConfig) (conn, error)

type pooledRepository struct {
	*records.Repository
	pool *pgxpool.Pool
}

func (p pooledRepository) Close() {
	p.pool.Close()
}

func openPostgres(ctx context.Context, cfg config.StoreConfig) (conn, error) {
	pool, err := storage.NewPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pooledRepository{Repository: records.NewRepository(pool), pool: pool}, nil
}

// lease tracks the borrowers of one connection so it is closed only after
// the last of them is done.
type lease struct {
	conn      conn
	borrowers sync.WaitGroup
}

// Session owns the current store connection. It is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	open     opener
	maxConns int32
	current  *lease
	retiring sync.WaitGroup
	logger   *zap.Logger
}

// New returns a session with no connection.
func New(maxConns int32, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{open: openPostgres, maxConns: maxConns, logger: logger}
}

// Connect opens and verifies a connection for creds and replaces the current
// one. The previous connection is kept when the new one fails, and is closed
// in the background once its borrowers have released it.
func (s *Session) Connect(ctx context.Context, creds Credentials) error {
	creds = creds.normalized()
	if !creds.Valid() {
		return ErrMissingCredentials
	}

	next, err := s.open(ctx, config.StoreConfig{URL: creds.StoreURL, AccessKey: creds.AccessKey, MaxConns: s.maxConns})
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	s.mu.Lock()
	prev := s.current
	s.current = &lease{conn: next}
	s.mu.Unlock()

	s.retire(prev)
	s.logger.Info("store connection established")
	return nil
}

// Acquire borrows the current connection. The returned release func must be
// called once the caller is done with the source.
func (s *Session) Acquire() (records.Source, func(), error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, nil, ErrNotConnected
	}
	l := s.current
	l.borrowers.Add(1)
	var once sync.Once
	return l.conn, func() { once.Do(l.borrowers.Done) }, nil
}

// Connected reports whether a connection has been established.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Ping checks the current connection.
func (s *Session) Ping(ctx context.Context) error {
	src, release, err := s.Acquire()
	if err != nil {
		return err
	}
	defer release()
	return src.(conn).Ping(ctx)
}

// Close releases the current connection and waits for retired ones to drain.
func (s *Session) Close() {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	s.retire(current)
	s.retiring.Wait()
}

func (s *Session) retire(l *lease) {
	if l == nil {
		return
	}
	s.retiring.Add(1)
	go func() {
		defer s.retiring.Done()
		l.borrowers.Wait()
		l.conn.Close()
	}()
}
