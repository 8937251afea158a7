package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dbscribe/dbscribe/pkg/apperrors"
	"github.com/dbscribe/dbscribe/pkg/logging"
	"github.com/dbscribe/dbscribe/pkg/retry"
)

const (
	DefaultConnectionTTLMinutes = 5
	DefaultCleanupInterval      = 1 * time.Minute
	DefaultPoolMaxConns         = 10
	DefaultConnectTimeout       = 15 * time.Second
)

// ManagerConfig holds configuration for the connection manager.
type ManagerConfig struct {
	TTLMinutes     int
	PoolMaxConns   int32
	ConnectTimeout time.Duration
}

// Manager keeps one pooled Connection per connection fingerprint with
// TTL-based expiry and automatic cleanup. It is the process-wide owner of
// target-database resources; callers never close connections they obtain
// from it.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*managedConnection // key: connection fingerprint
	ttl         time.Duration
	poolMax     int32
	connectTO   time.Duration
	stopped     bool
	stopChan    chan struct{}
	logger      *zap.Logger
}

type managedConnection struct {
	conn     Connection
	lastUsed time.Time
	mu       sync.Mutex
}

// NewManager creates a connection manager and starts its background
// cleanup goroutine, which runs until Close() is called.
func NewManager(cfg ManagerConfig, logger *zap.Logger) *Manager {
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = DefaultConnectionTTLMinutes
	}
	if cfg.PoolMaxConns <= 0 {
		cfg.PoolMaxConns = DefaultPoolMaxConns
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	m := &Manager{
		connections: make(map[string]*managedConnection),
		ttl:         time.Duration(cfg.TTLMinutes) * time.Minute,
		poolMax:     cfg.PoolMaxConns,
		connectTO:   cfg.ConnectTimeout,
		stopChan:    make(chan struct{}),
		logger:      logger.Named("datasource"),
	}

	go m.cleanupExpiredConnections()
	return m
}

// GetOrConnect parses the connection string and returns a healthy pooled
// Connection plus its fingerprint, reusing an existing pool when one is
// alive for the same target.
func (m *Manager) GetOrConnect(ctx context.Context, connStr string) (Connection, string, error) {
	target, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", apperrors.ErrConnection, err)
	}

	key := target.Fingerprint()

	m.mu.RLock()
	managed, exists := m.connections[key]
	m.mu.RUnlock()

	if exists {
		managed.mu.Lock()

		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := retry.Do(healthCtx, retry.DefaultConfig(), func() error {
			return managed.conn.Ping(healthCtx)
		})
		cancel()

		if err != nil {
			m.logger.Warn("connection unhealthy, recreating",
				zap.String("fingerprint", key),
				zap.String("error", logging.SanitizeError(err)))
			managed.mu.Unlock()
			m.removeConnection(key)
			return m.connect(ctx, key, target)
		}

		managed.lastUsed = time.Now()
		managed.mu.Unlock()
		return managed.conn, key, nil
	}

	return m.connect(ctx, key, target)
}

// connect opens a new pooled Connection via the adapter registry.
func (m *Manager) connect(ctx context.Context, key string, target *Target) (Connection, string, error) {
	connectFn := GetConnectFunc(target.Type)
	if connectFn == nil {
		return nil, "", fmt.Errorf("%w: unsupported datasource type %q", apperrors.ErrConnection, target.Type)
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.connectTO)
	defer cancel()

	conn, err := connectFn(connectCtx, target, PoolSettings{MaxConns: m.poolMax}, m.logger)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", apperrors.ErrConnection, logging.SanitizeError(err))
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		_ = conn.Close()
		return nil, "", fmt.Errorf("%w: connection manager is shut down", apperrors.ErrConnection)
	}
	// Another request may have connected to the same target while we were
	// dialing; keep the first pool and discard ours.
	if existing, ok := m.connections[key]; ok {
		m.mu.Unlock()
		_ = conn.Close()
		return existing.conn, key, nil
	}
	m.connections[key] = &managedConnection{conn: conn, lastUsed: time.Now()}
	m.mu.Unlock()

	m.logger.Info("connected to datasource",
		zap.String("fingerprint", key),
		zap.String("target", target.Redacted()))

	return conn, key, nil
}

func (m *Manager) removeConnection(key string) {
	m.mu.Lock()
	managed, ok := m.connections[key]
	if ok {
		delete(m.connections, key)
	}
	m.mu.Unlock()

	if ok {
		_ = managed.conn.Close()
	}
}

// cleanupExpiredConnections closes pools idle beyond the TTL.
func (m *Manager) cleanupExpiredConnections() {
	ticker := time.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-m.ttl)

			m.mu.Lock()
			var expired []string
			for key, managed := range m.connections {
				if managed.lastUsed.Before(cutoff) {
					expired = append(expired, key)
				}
			}
			m.mu.Unlock()

			for _, key := range expired {
				m.logger.Debug("closing idle connection", zap.String("fingerprint", key))
				m.removeConnection(key)
			}
		case <-m.stopChan:
			return
		}
	}
}

// Close stops the cleanup goroutine and closes every pooled connection.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.stopChan)
	conns := make([]*managedConnection, 0, len(m.connections))
	for _, managed := range m.connections {
		conns = append(conns, managed)
	}
	m.connections = make(map[string]*managedConnection)
	m.mu.Unlock()

	for _, managed := range conns {
		_ = managed.conn.Close()
	}
}
