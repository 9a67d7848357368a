package proxy

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/proxy-manager/internal/domain"
)

// Snapshot is a point-in-time view of declared and live state.
type Snapshot struct {
	Config   *domain.Config       `json:"config"`
	Routes   []domain.RouteStatus `json:"routes"`
	Proxy    domain.ProxyState    `json:"proxy"`
	LoadedAt time.Time            `json:"loaded_at"`
}

// StateView caches the last Snapshot for long-lived clients. It never watches
// the config file: callers Refresh after their own mutations or on demand.
type StateView struct {
	svc *Service
	now func() time.Time

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewStateView creates an empty view over svc.
func NewStateView(svc *Service) *StateView {
	return &StateView{svc: svc, now: time.Now}
}

// Snapshot returns the cached snapshot, loading it on first use.
func (v *StateView) Snapshot(ctx context.Context) (Snapshot, error) {
	v.mu.RLock()
	cached := v.snapshot
	v.mu.RUnlock()
	if cached != nil {
		return cloneSnapshot(cached), nil
	}
	return v.Refresh(ctx)
}

// Refresh reloads declared state and proxy status, replacing the cache.
// A runtime failure while probing the proxy keeps the declared state and
// reports the proxy with an unknown status.
func (v *StateView) Refresh(ctx context.Context) (Snapshot, error) {
	cfg, err := v.svc.Config(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	state, err := v.svc.ProxyState(ctx)
	if err != nil {
		v.svc.log.Debug("proxy state unavailable", "error", err)
		state = domain.ProxyState{Name: cfg.ProxyName, Status: domain.ContainerStatusUnknown}
	}

	snap := &Snapshot{
		Config:   cfg,
		Routes:   cfg.RouteStatuses(),
		Proxy:    state,
		LoadedAt: v.now(),
	}

	v.mu.Lock()
	v.snapshot = snap
	v.mu.Unlock()

	return cloneSnapshot(snap), nil
}

func cloneSnapshot(s *Snapshot) Snapshot {
	cp := *s
	cp.Config = s.Config.Clone()
	cp.Routes = append([]domain.RouteStatus(nil), s.Routes...)
	return cp
}
