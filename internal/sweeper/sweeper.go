package sweeper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amoradev/amora/internal/app"
	"github.com/amoradev/amora/internal/repository"
)

// Sweeper runs the periodic expiry jobs: expired password-reset links
// and refresh sessions, and never-activated stale accounts. Jobs are
// idempotent; a failed tick is logged and retried on the next tick.
type Sweeper struct {
	appCtx *app.AppContext
	jobs   []*job
	wg     sync.WaitGroup
}

type job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context, now time.Time) (int64, error)
	running  atomic.Bool
}

// New wires the two sweep jobs from AppContext.
func New(appCtx *app.AppContext) *Sweeper {
	sessions := repository.NewSessionRepository(appCtx.DB)
	links := repository.NewLinkRepository(appCtx.DB)

	return &Sweeper{
		appCtx: appCtx,
		jobs: []*job{
			{
				name:     "expired_links",
				interval: appCtx.Config.Sweeper.LinkInterval,
				run: func(ctx context.Context, now time.Time) (int64, error) {
					deleted, err := links.DeleteExpiredResetLinks(ctx, now)
					if err != nil {
						return deleted, err
					}
					// expired sessions are left in place by the token
					// service; this is where they go away
					sessionsDeleted, err := sessions.DeleteExpired(ctx, now)
					return deleted + sessionsDeleted, err
				},
			},
			{
				name:     "stale_accounts",
				interval: appCtx.Config.Sweeper.AccountInterval,
				run: func(ctx context.Context, now time.Time) (int64, error) {
					return links.DeleteStaleAccounts(ctx, now)
				},
			},
		},
	}
}

// RunAll executes every job once, immediately. Called at startup so a
// long sweep interval does not leave expired rows lying around after a
// restart.
func (s *Sweeper) RunAll(ctx context.Context) {
	for _, j := range s.jobs {
		s.tick(ctx, j)
	}
}

// Start launches one goroutine per job. Jobs stop when ctx is canceled;
// Wait blocks until they have drained.
func (s *Sweeper) Start(ctx context.Context) {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			s.loop(ctx, j)
		}(j)
	}
}

// Wait blocks until all job goroutines have exited.
func (s *Sweeper) Wait() {
	s.wg.Wait()
}

func (s *Sweeper) loop(ctx context.Context, j *job) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, j)
		}
	}
}

// tick runs one sweep, skipping if the previous run of the same job is
// still going (slow database conditions must not stack duplicate work).
func (s *Sweeper) tick(ctx context.Context, j *job) {
	if !j.running.CompareAndSwap(false, true) {
		s.appCtx.Logger.Warn("sweep still running, skipping tick", "job", j.name)
		return
	}
	defer j.running.Store(false)

	deleted, err := j.run(ctx, time.Now())
	if err != nil {
		s.appCtx.Logger.Error("sweep failed", "job", j.name, "deleted", deleted, "err", err)
		return
	}
	s.appCtx.Logger.Info("sweep completed", "job", j.name, "deleted", deleted)
}
