package scheduler

import (
	"context"
	"time"

	"digigold-backend/internal/application/plans"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Maturity runs the daily plan-maturity sweep. Each eligible plan is
// processed in its own atomic unit so one failure never blocks the rest;
// failed plans stay eligible and are retried on the next run.
type Maturity struct {
	Plans *plans.Service
	cron  *cron.Cron
}

// Start schedules the sweep daily at midnight in loc and returns the running
// cron. Stop it via Stop on shutdown.
func (m *Maturity) Start(loc *time.Location) *cron.Cron {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))
	_, err := c.AddFunc("0 0 * * *", func() {
		m.RunOnce(context.Background())
	})
	if err != nil {
		log.Error().Err(err).Msg("maturity scheduler registration failed")
		return nil
	}
	c.Start()
	m.cron = c
	log.Info().Str("tz", loc.String()).Msg("maturity scheduler started")
	return c
}

// Stop halts the cron loop; in-flight sweeps finish.
func (m *Maturity) Stop() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

// RunOnce performs one sweep. Re-running against unchanged data is a no-op:
// the eligibility filter only matches plans not yet matured.
func (m *Maturity) RunOnce(ctx context.Context) (applied int) {
	now := time.Now()
	candidates, err := m.Plans.EligibleForMaturity(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("maturity sweep: candidate selection failed")
		return 0
	}
	log.Info().Int("candidates", len(candidates)).Msg("maturity sweep started")

	for _, c := range candidates {
		ok, err := m.Plans.ApplyMaturityBonus(ctx, c)
		if err != nil {
			// Left for the next run.
			log.Error().Err(err).
				Str("plan_id", c.Ref.ID.String()).
				Str("plan_type", string(c.Ref.Type)).
				Msg("maturity bonus failed")
			continue
		}
		if ok {
			applied++
			log.Info().
				Str("plan_id", c.Ref.ID.String()).
				Str("plan_type", string(c.Ref.Type)).
				Str("bonus", c.Bonus.String()).
				Msg("maturity bonus applied")
		}
	}
	return applied
}
