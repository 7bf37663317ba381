package view

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sales-dashboard/web/internal/analytics"
	"github.com/sales-dashboard/web/internal/metrics"
	"github.com/sales-dashboard/web/pkg/logger"
)

type DashboardAPI interface {
	GetDashboardData(ctx context.Context, sel analytics.Selection) (*analytics.DashboardSnapshot, error)
	GetComments(ctx context.Context, sel analytics.Selection, sentimentFilter string) ([]analytics.Comment, error)
}

// SnapshotCache is shared by every session. Mount reads through it, Refresh
// bypasses it and stores the fresh snapshot.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, sel analytics.Selection) (*analytics.DashboardSnapshot, bool, error)
	SetSnapshot(ctx context.Context, sel analytics.Selection, snapshot *analytics.DashboardSnapshot) error
}

type CommentsState struct {
	Filter  string              `json:"filter"`
	Loading bool                `json:"loading"`
	Error   string              `json:"error,omitempty"`
	Items   []analytics.Comment `json:"items,omitempty"`
	Loaded  bool                `json:"loaded"`
}

type DashboardState struct {
	Selection analytics.Selection          `json:"selection"`
	Mounted   bool                         `json:"mounted"`
	Loading   bool                         `json:"loading"`
	Error     string                       `json:"error,omitempty"`
	Snapshot  *analytics.DashboardSnapshot `json:"snapshot,omitempty"`
	FetchedAt time.Time                    `json:"fetched_at,omitempty"`
	FromCache bool                         `json:"from_cache"`
	Comments  CommentsState                `json:"comments"`
}

// DashboardView owns the dashboard screen state for one session. Every panel
// reads the same loading flag, so panels always flip together.
type DashboardView struct {
	api   DashboardAPI
	cache SnapshotCache
	now   func() time.Time

	mu    sync.Mutex
	state DashboardState
}

type DashboardOptions struct {
	Selection analytics.Selection
	Cache     SnapshotCache
	Now       func() time.Time
}

func NewDashboardView(api DashboardAPI, opts DashboardOptions) *DashboardView {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &DashboardView{
		api:   api,
		cache: opts.Cache,
		now:   now,
		state: DashboardState{Selection: opts.Selection},
	}
}

func (v *DashboardView) State() DashboardState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Mount starts the first fetch. Later calls return nil: the dashboard only
// fetches on its own once.
func (v *DashboardView) Mount() <-chan struct{} {
	v.mu.Lock()
	if v.state.Mounted {
		v.mu.Unlock()
		return nil
	}
	v.state.Mounted = true
	v.mu.Unlock()

	return v.start(true)
}

// Refresh re-runs the snapshot fetch, skipping the cache.
func (v *DashboardView) Refresh() <-chan struct{} {
	v.mu.Lock()
	v.state.Mounted = true
	v.mu.Unlock()

	return v.start(false)
}

func (v *DashboardView) start(useCache bool) <-chan struct{} {
	v.mu.Lock()
	v.state.Error = ""
	v.state.Loading = true
	sel := v.state.Selection
	v.mu.Unlock()

	done := make(chan struct{})
	go v.fetch(context.Background(), sel, useCache, done)
	return done
}

func (v *DashboardView) fetch(ctx context.Context, sel analytics.Selection, useCache bool, done chan<- struct{}) {
	defer close(done)

	metrics.InFlightCycles.WithLabelValues("dashboard").Inc()
	defer metrics.InFlightCycles.WithLabelValues("dashboard").Dec()

	if useCache && v.cache != nil {
		snapshot, ok, err := v.cache.GetSnapshot(ctx, sel)
		if err != nil {
			logger.Warn("Snapshot cache read failed", zap.Error(err))
		}
		if ok {
			metrics.CacheHits.WithLabelValues("snapshot").Inc()
			v.commit(snapshot, true)
			return
		}
		metrics.CacheMisses.WithLabelValues("snapshot").Inc()
	}

	snapshot, err := v.api.GetDashboardData(ctx, sel)
	if err != nil {
		message := analytics.ErrorMessage(err)
		v.mu.Lock()
		v.state.Error = message
		v.state.Loading = false
		v.mu.Unlock()

		metrics.FetchCycles.WithLabelValues("dashboard", "error").Inc()
		logger.Warn("Dashboard fetch failed",
			zap.String("product", sel.ProductName),
			zap.String("brand", sel.BrandName),
			zap.Error(err),
		)
		return
	}

	if v.cache != nil {
		if err := v.cache.SetSnapshot(ctx, sel, snapshot); err != nil {
			logger.Warn("Snapshot cache write failed", zap.Error(err))
		}
	}
	v.commit(snapshot, false)
}

func (v *DashboardView) commit(snapshot *analytics.DashboardSnapshot, fromCache bool) {
	v.mu.Lock()
	v.state.Snapshot = snapshot
	v.state.FromCache = fromCache
	v.state.FetchedAt = v.now()
	v.state.Loading = false
	v.mu.Unlock()

	metrics.FetchCycles.WithLabelValues("dashboard", "success").Inc()
	logger.Debug("Dashboard snapshot committed",
		zap.Bool("from_cache", fromCache),
		zap.Int("alerts", len(snapshot.Alerts)),
	)
}

// LoadComments fetches the comment list for the given sentiment filter.
func (v *DashboardView) LoadComments(filter string) (<-chan struct{}, error) {
	if !analytics.ValidCommentFilter(filter) {
		return nil, fmt.Errorf("unknown sentiment filter %q", filter)
	}

	v.mu.Lock()
	v.state.Comments.Filter = filter
	v.state.Comments.Loading = true
	v.state.Comments.Error = ""
	sel := v.state.Selection
	v.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)

		comments, err := v.api.GetComments(context.Background(), sel, filter)

		v.mu.Lock()
		defer v.mu.Unlock()
		v.state.Comments.Loading = false
		if err != nil {
			v.state.Comments.Error = analytics.ErrorMessage(err)
			metrics.FetchCycles.WithLabelValues("comments", "error").Inc()
			return
		}
		v.state.Comments.Items = comments
		v.state.Comments.Loaded = true
		metrics.FetchCycles.WithLabelValues("comments", "success").Inc()
	}()
	return done, nil
}
