package cron

import (
	"context"
	"time"

	"github.com/kizuna-social/backend/internal/common"
	"github.com/kizuna-social/backend/internal/domain/oauthstate"
	"github.com/kizuna-social/backend/pkg/xcontext"
)

// SweepOAuthStateCronJob deletes the OAuth2 states which expired without being consumed.
type SweepOAuthStateCronJob struct {
	store    oauthstate.Store
	backend  string
	interval time.Duration
}

func NewSweepOAuthStateCronJob(store oauthstate.Store, backend string, interval time.Duration) *SweepOAuthStateCronJob {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &SweepOAuthStateCronJob{store: store, backend: backend, interval: interval}
}

func (job *SweepOAuthStateCronJob) Do(ctx context.Context) {
	n, err := job.store.Sweep(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot sweep expired oauth states: %v", err)
		return
	}

	if n > 0 {
		xcontext.Logger(ctx).Infof("Swept %d expired oauth states", n)
	}

	common.PromCounters[common.OAuthStateSweptTotal].WithLabelValues(job.backend).Add(float64(n))
}

func (job *SweepOAuthStateCronJob) RunNow() bool {
	return true
}

func (job *SweepOAuthStateCronJob) Next() time.Time {
	return time.Now().Add(job.interval)
}
