package monitoring

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/taskly/taskly-be/internal/auth"
	"github.com/taskly/taskly-be/internal/services"
)

// TokenPruner periodically deletes stored bearer tokens that are past their
// signed validity window. Expired tokens already fail verification; pruning
// keeps the token sets from growing forever.
type TokenPruner struct {
	users    services.UserServiceProvider
	schedule cron.Schedule
	ticker   *time.Ticker
	done     chan bool
	nextRun  time.Time
}

// NewTokenPruner creates a pruner from a cron expression such as "@hourly".
func NewTokenPruner(users services.UserServiceProvider, scheduleExpr string) (*TokenPruner, error) {
	schedule, err := cron.ParseStandard(scheduleExpr)
	if err != nil {
		return nil, err
	}
	return &TokenPruner{
		users:    users,
		schedule: schedule,
		done:     make(chan bool),
	}, nil
}

// Run starts the pruner's ticking loop. It prunes once immediately, then on
// the configured schedule.
func (p *TokenPruner) Run() {
	log.Info().Msg("Starting token pruner")
	p.ticker = time.NewTicker(1 * time.Minute)
	defer p.ticker.Stop()

	p.prune()
	p.nextRun = p.schedule.Next(time.Now())

	for {
		select {
		case <-p.done:
			log.Info().Msg("Stopping token pruner")
			return
		case now := <-p.ticker.C:
			if now.Before(p.nextRun) {
				continue
			}
			p.prune()
			p.nextRun = p.schedule.Next(now)
		}
	}
}

// Stop halts the pruner.
func (p *TokenPruner) Stop() {
	p.done <- true
}

func (p *TokenPruner) prune() {
	cutoff := time.Now().Add(-auth.TokenTTL)
	pruned, err := p.users.PruneTokens(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune expired tokens")
		return
	}
	if pruned > 0 {
		log.Info().Int64("pruned", pruned).Msg("Removed expired tokens")
	}
}
