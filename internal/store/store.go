// Package store holds the console's in-memory snapshot of backend state.
//
// The backend is the sole source of truth: mutations never patch the local
// snapshot, they trigger a full re-fetch of both lists. Overlapping fetches
// are allowed (a manual refresh may race a timer tick); a per-list sequence
// guard discards responses that were issued before the one already applied,
// so a slow early response can never overwrite a fresher snapshot.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/arena2036-x/emc/internal/edc"
	"github.com/arena2036-x/emc/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Gateway is the slice of the backend client the store depends on.
type Gateway interface {
	ListConnectors(ctx context.Context) ([]edc.Connector, error)
	RecentActivity(ctx context.Context, limit int) ([]edc.ActivityLog, error)
	CreateConnector(ctx context.Context, req edc.CreateConnectorRequest) (edc.Connector, error)
	UpdateConnector(ctx context.Context, id int64, req edc.UpdateConnectorRequest) (edc.Connector, error)
	DeleteConnector(ctx context.Context, ref edc.ConnectorRef) error
}

// Snapshot is a point-in-time copy of the store state. Errors are carried so
// presentation can show "empty list plus notice" without re-fetching.
type Snapshot struct {
	Connectors    []edc.Connector
	ActivityLogs  []edc.ActivityLog
	ConnectorsErr error
	ActivityErr   error
	RefreshedAt   time.Time
}

// Store is safe for concurrent use.
type Store struct {
	gw     Gateway
	limit  int
	logger *slog.Logger

	mu              sync.Mutex
	connectors      []edc.Connector
	activity        []edc.ActivityLog
	connectorsErr   error
	activityErr     error
	refreshedAt     time.Time
	connIssued      uint64
	connApplied     uint64
	activityIssued  uint64
	activityApplied uint64
}

// New creates a store. limit caps the activity log fetch.
func New(gw Gateway, limit int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{gw: gw, limit: limit, logger: logger}
}

// Refresh re-fetches connectors and activity logs concurrently. The two
// fetches are independent; one failing does not stop the other. The returned
// error is nil as long as the fetches completed, even with per-list failures,
// matching the "log and render what we have" policy.
func (s *Store) Refresh(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.refreshConnectors(ctx)
		return nil
	})
	g.Go(func() error {
		s.refreshActivity(ctx)
		return nil
	})
	return g.Wait()
}

func (s *Store) refreshConnectors(ctx context.Context) {
	seq := s.nextSeq(&s.connIssued)
	start := time.Now()
	connectors, err := s.gw.ListConnectors(ctx)
	metrics.RefreshDuration.WithLabelValues("connectors").Observe(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.connApplied {
		metrics.StaleResponsesTotal.WithLabelValues("connectors").Inc()
		s.logger.Debug("discarding stale connector list response", "seq", seq, "applied", s.connApplied)
		return
	}
	s.connApplied = seq
	s.refreshedAt = time.Now()
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues("connectors", "error").Inc()
		s.logger.Error("failed to load connectors", "err", err)
		s.connectorsErr = err
		return
	}
	metrics.RefreshesTotal.WithLabelValues("connectors", "ok").Inc()
	metrics.SnapshotSize.WithLabelValues("connectors").Set(float64(len(connectors)))
	s.connectors = connectors
	s.connectorsErr = nil
}

func (s *Store) refreshActivity(ctx context.Context) {
	seq := s.nextSeq(&s.activityIssued)
	start := time.Now()
	logs, err := s.gw.RecentActivity(ctx, s.limit)
	metrics.RefreshDuration.WithLabelValues("activity").Observe(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.activityApplied {
		metrics.StaleResponsesTotal.WithLabelValues("activity").Inc()
		s.logger.Debug("discarding stale activity response", "seq", seq, "applied", s.activityApplied)
		return
	}
	s.activityApplied = seq
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues("activity", "error").Inc()
		s.logger.Error("failed to load activity logs", "err", err)
		s.activityErr = err
		return
	}
	metrics.RefreshesTotal.WithLabelValues("activity", "ok").Inc()
	metrics.SnapshotSize.WithLabelValues("activity").Set(float64(len(logs)))
	s.activity = logs
	s.activityErr = nil
}

func (s *Store) nextSeq(counter *uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	*counter++
	return *counter
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Connectors:    make([]edc.Connector, len(s.connectors)),
		ActivityLogs:  make([]edc.ActivityLog, len(s.activity)),
		ConnectorsErr: s.connectorsErr,
		ActivityErr:   s.activityErr,
		RefreshedAt:   s.refreshedAt,
	}
	copy(snap.Connectors, s.connectors)
	copy(snap.ActivityLogs, s.activity)
	return snap
}

// ConnectorCount is the size of the last applied connector snapshot.
func (s *Store) ConnectorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connectors)
}

// Find returns the snapshot record with the given id.
func (s *Store) Find(id int64) (edc.Connector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.connectors {
		if c.ID == id {
			return c, true
		}
	}
	return edc.Connector{}, false
}

// Create provisions a connector and re-fetches both lists.
func (s *Store) Create(ctx context.Context, req edc.CreateConnectorRequest) (edc.Connector, error) {
	created, err := s.gw.CreateConnector(ctx, req)
	if err != nil {
		return edc.Connector{}, err
	}
	_ = s.Refresh(ctx)
	return created, nil
}

// Update applies a partial update and re-fetches both lists.
func (s *Store) Update(ctx context.Context, id int64, req edc.UpdateConnectorRequest) (edc.Connector, error) {
	updated, err := s.gw.UpdateConnector(ctx, id, req)
	if err != nil {
		return edc.Connector{}, err
	}
	_ = s.Refresh(ctx)
	return updated, nil
}

// Delete removes a connector and re-fetches both lists. A backend 404 still
// triggers the refresh so the snapshot converges, and is returned to the
// caller as a handled error.
func (s *Store) Delete(ctx context.Context, ref edc.ConnectorRef) error {
	err := s.gw.DeleteConnector(ctx, ref)
	if err != nil && !edc.IsNotFound(err) {
		return err
	}
	_ = s.Refresh(ctx)
	return err
}

// Run refreshes immediately and then on a fixed interval until ctx is
// canceled. Mirrors the backend polling the browser console used to do.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("initial refresh failed", "err", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("scheduled refresh failed", "err", err)
			}
		}
	}
}
