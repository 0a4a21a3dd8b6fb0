package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"revdash/internal/core"
	"revdash/internal/log"
	"revdash/internal/notify"
	"revdash/internal/sheets"
)

var (
	ErrNotConnected      = errors.New("not connected to a record source")
	ErrNoSnapshot        = errors.New("no data loaded yet")
	ErrRefreshSuperseded = errors.New("refresh superseded by a newer one")
	ErrConnectAborted    = errors.New("connect cancelled by disconnect")
)

// ConnectionState is the lifecycle state shown to users.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

const DefaultRefreshInterval = 30 * time.Second

// Status is a point-in-time copy of the manager state.
type Status struct {
	State        ConnectionState `json:"state"`
	Connected    bool            `json:"connected"`
	Refreshing   bool            `json:"refreshing"`
	LastRefresh  *time.Time      `json:"lastRefresh,omitempty"`
	LastError    string          `json:"lastError,omitempty"`
	AutoRefresh  string          `json:"autoRefresh"`
	Records      int             `json:"records"`
	BankAccounts int             `json:"bankAccounts"`
	Generation   uint64          `json:"generation"`
}

// SyncManagerConfig holds configuration for the sync manager
type SyncManagerConfig struct {
	// RefreshInterval is how often a connected manager reloads the source
	// (default: 30s)
	RefreshInterval time.Duration
}

func DefaultSyncManagerConfig() SyncManagerConfig {
	return SyncManagerConfig{RefreshInterval: DefaultRefreshInterval}
}

// SyncManager owns the connection to the record source, the current
// snapshot and the auto-refresh loop. Starting a refresh cancels the one
// in flight; only the newest refresh may replace the snapshot.
type SyncManager struct {
	source   sheets.Source
	config   SyncManagerConfig
	notifier *notify.Center
	logger   *log.Logger
	events   *log.StructuredLogger
	now      func() time.Time

	mu          sync.Mutex
	state       ConnectionState
	snapshot    *core.Snapshot
	lastErr     error
	generation  uint64
	seq         uint64
	cancelFetch context.CancelFunc
	fetchSeq    uint64
	// lifecycle changes on every connect attempt and disconnect
	lifecycle uint64

	// Lifecycle of the auto-refresh loop
	loopCancel context.CancelFunc
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewSyncManager creates a disconnected manager. notifier may be nil.
func NewSyncManager(source sheets.Source, config SyncManagerConfig, notifier *notify.Center, logger *log.Logger) *SyncManager {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentSync)
	return &SyncManager{
		source:   source,
		config:   config,
		notifier: notifier,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
		now:      time.Now,
		state:    StateDisconnected,
	}
}

// Connect tests the source, loads the first snapshot and starts the
// auto-refresh loop. A failed initial load keeps the connection and
// returns the error; the loop will retry on its next tick.
//
// Only one connect attempt runs at a time: a Connect issued while another
// is in progress returns nil without touching the source. A Disconnect
// issued while connecting wins, and the pending Connect returns
// ErrConnectAborted.
func (m *SyncManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected || m.state == StateConnecting {
		m.mu.Unlock()
		return nil
	}
	m.state = StateConnecting
	m.lifecycle++
	attempt := m.lifecycle
	m.mu.Unlock()

	testErr := m.source.TestConnection(ctx)

	m.mu.Lock()
	if m.lifecycle != attempt {
		m.mu.Unlock()
		m.logger.InfoContext(ctx, "Connect abandoned after disconnect")
		return ErrConnectAborted
	}
	if testErr != nil {
		err := fmt.Errorf("test connection: %w", testErr)
		m.state = StateError
		m.lastErr = err
		m.mu.Unlock()
		m.events.LogError(ctx, "Connection failed", err, log.ComponentSync, log.OpConnect, nil)
		m.notifier.Error(ctx, log.OpConnect, "Connection failed: "+err.Error())
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m.state = StateConnected
	m.lastErr = nil
	m.loopCancel = cancel
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.runLoop(loopCtx, m.stopCh, m.doneCh)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Connected to record source", "auto_refresh", m.config.RefreshInterval)
	m.notifier.Success(ctx, log.OpConnect, "Connected")

	_, err := m.Refresh(ctx)

	m.mu.Lock()
	aborted := m.lifecycle != attempt
	m.mu.Unlock()
	if aborted {
		return ErrConnectAborted
	}
	if err != nil && !errors.Is(err, ErrRefreshSuperseded) {
		return err
	}
	return nil
}

// Disconnect stops auto-refresh and cancels any in-flight refresh or
// connect attempt. The last snapshot stays readable.
func (m *SyncManager) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected:
	case StateConnecting:
		m.lifecycle++
		m.state = StateDisconnected
		m.mu.Unlock()
		m.logger.InfoContext(ctx, "Connect attempt cancelled")
		return nil
	default:
		m.state = StateDisconnected
		m.mu.Unlock()
		return nil
	}
	m.state = StateDisconnected
	m.lifecycle++
	m.seq++
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
	m.loopCancel()
	close(m.stopCh)
	doneCh := m.doneCh
	m.mu.Unlock()

	select {
	case <-doneCh:
	case <-ctx.Done():
		m.logger.WarnContext(ctx, "Auto-refresh stop timed out")
		return ctx.Err()
	}

	m.logger.InfoContext(ctx, "Disconnected from record source")
	m.notifier.Info(ctx, log.OpDisconnect, "Disconnected")
	return nil
}

// Refresh fetches records and bank accounts concurrently and, if this is
// still the newest refresh when both complete, replaces the snapshot.
func (m *SyncManager) Refresh(ctx context.Context) (*core.Snapshot, error) {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return nil, ErrNotConnected
	}
	if m.cancelFetch != nil {
		m.cancelFetch()
	}
	m.seq++
	seq := m.seq
	fetchCtx, cancel := context.WithCancel(ctx)
	m.cancelFetch = cancel
	m.fetchSeq = seq
	m.mu.Unlock()
	defer cancel()

	start := m.now()
	snap, err := m.fetch(fetchCtx)

	m.mu.Lock()
	if m.fetchSeq == seq {
		m.cancelFetch = nil
	}
	if seq != m.seq {
		m.mu.Unlock()
		m.logger.DebugContext(ctx, "Discarding superseded refresh", log.FieldGeneration, seq)
		return nil, ErrRefreshSuperseded
	}
	if err != nil {
		m.lastErr = err
		m.mu.Unlock()
		m.events.LogError(ctx, "Refresh failed", err, log.ComponentSync, log.OpRefresh, nil)
		m.notifier.Error(ctx, log.OpRefresh, "Sync failed: "+err.Error())
		return nil, err
	}
	m.snapshot = snap
	m.lastErr = nil
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.events.LogRefreshCompleted(ctx, gen, len(snap.Records), len(snap.BankAccounts), m.now().Sub(start))
	m.notifier.Success(ctx, log.OpRefresh,
		fmt.Sprintf("Data refreshed: %d records", len(snap.Records)))
	return snap, nil
}

func (m *SyncManager) fetch(ctx context.Context) (*core.Snapshot, error) {
	var (
		records []core.TransactionRecord
		banks   []core.BankAccountRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = m.source.FetchRecords(gctx)
		if err != nil {
			return fmt.Errorf("fetch records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		banks, err = m.source.FetchBankAccounts(gctx)
		if err != nil {
			return fmt.Errorf("fetch bank accounts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return core.NewSnapshot(records, banks, m.now()), nil
}

func (m *SyncManager) runLoop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := m.Refresh(ctx); err != nil && !errors.Is(err, ErrRefreshSuperseded) && !errors.Is(err, ErrNotConnected) {
				m.logger.DebugContext(ctx, "Auto-refresh failed", log.FieldError, err)
			}
		}
	}
}

// Snapshot returns the last committed snapshot.
func (m *SyncManager) Snapshot() (*core.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return nil, ErrNoSnapshot
	}
	return m.snapshot, nil
}

func (m *SyncManager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

func (m *SyncManager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:       m.state,
		Connected:   m.state == StateConnected,
		Refreshing:  m.cancelFetch != nil,
		AutoRefresh: m.config.RefreshInterval.String(),
		Generation:  m.generation,
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	if m.snapshot != nil {
		t := m.snapshot.FetchedAt
		st.LastRefresh = &t
		st.Records = len(m.snapshot.Records)
		st.BankAccounts = len(m.snapshot.BankAccounts)
	}
	return st
}
