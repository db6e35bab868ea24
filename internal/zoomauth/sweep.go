package zoomauth

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"meetsync/internal/store"
	"meetsync/internal/zoom"
	"meetsync/pkg/tenants"
)

var sweepOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "meetsync",
	Subsystem: "refresh_sweep",
	Name:      "tenants_total",
	Help:      "Refresh sweep outcomes per tenant.",
}, []string{"outcome"})

// SweepStats summarizes one refresh pass.
type SweepStats struct {
	Refreshed int
	Skipped   int
	Failed    int
}

type tenantToken struct {
	tenant tenants.Tenant
	doc    map[string]any
	err    error
}

// Sweep refreshes every tenant's provider token. Token documents are
// fetched concurrently, then each tenant is processed in sequence so a
// slow or broken tenant cannot starve the rest of more than its own slot.
// One tenant's failure never aborts the pass.
func (s *Service) Sweep(ctx context.Context, provider tenants.Provider) (SweepStats, error) {
	ts, err := provider.ListTenants(ctx)
	if err != nil {
		return SweepStats{}, err
	}

	fetched := make([]tenantToken, len(ts))
	var wg sync.WaitGroup
	for i, t := range ts {
		wg.Add(1)
		go func(i int, t tenants.Tenant) {
			defer wg.Done()
			doc, err := s.docs.Get(ctx, store.TenantTokenPath(t.ID, s.provider))
			fetched[i] = tenantToken{tenant: t, doc: doc, err: err}
		}(i, t)
	}
	wg.Wait()

	var stats SweepStats
	for _, tt := range fetched {
		switch {
		case errors.Is(tt.err, store.ErrNotFound):
			// tenant never completed OAuth; nothing to refresh
			stats.Skipped++
			sweepOutcomes.WithLabelValues("skipped").Inc()
			continue
		case tt.err != nil:
			s.log.Errorw("sweep token fetch failed", "tenant", tt.tenant.ID, "err", tt.err)
			stats.Failed++
			sweepOutcomes.WithLabelValues("failed").Inc()
			continue
		}
		if err := s.refreshTenant(ctx, tt.tenant, tokenFromDoc(tt.doc)); err != nil {
			s.log.Errorw("sweep refresh failed", "tenant", tt.tenant.ID, "err", err)
			stats.Failed++
			sweepOutcomes.WithLabelValues("failed").Inc()
			continue
		}
		stats.Refreshed++
		sweepOutcomes.WithLabelValues("refreshed").Inc()
	}
	s.log.Infow("refresh sweep done",
		"tenants", len(ts), "refreshed", stats.Refreshed, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

func (s *Service) refreshTenant(ctx context.Context, t tenants.Tenant, tok zoom.Token) error {
	if tok.RefreshToken == "" {
		return errors.New("stored token has no refresh token")
	}
	app, err := s.apps.Lookup(ctx, t.AppName)
	if err != nil {
		return err
	}
	next, err := s.client.Refresh(ctx, app, tok.RefreshToken)
	if err != nil {
		return err
	}
	return s.SaveToken(ctx, t.ID, next)
}
