package scheduler

import (
	"context"
	"time"

	domainHealth "github.com/mahalbangetid-beep/scb-sub003/domains/health"
	domainSubscription "github.com/mahalbangetid-beep/scb-sub003/domains/subscription"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler owns the background jobs. Every job is skipped while its
// previous run is still going.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func New() *Scheduler {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithParser(cronParser),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddBroadcastPoller runs the broadcast runner on schedule, e.g. "@every 30s".
func (s *Scheduler) AddBroadcastPoller(schedule string, runner *BroadcastRunner) error {
	_, err := s.cron.AddFunc(schedule, func() {
		runner.Tick(s.ctx)
	})
	return err
}

// AddRenewals charges due subscriptions on schedule, e.g. "@daily".
func (s *Scheduler) AddRenewals(schedule string, hook domainSubscription.IResourceHook) error {
	_, err := s.cron.AddFunc(schedule, func() {
		res, err := hook.RenewDue(s.ctx, time.Now().UTC())
		if err != nil {
			logrus.WithError(err).Error("[SCHEDULER] Subscription renewal failed")
			return
		}
		logrus.Infof("[SCHEDULER] Subscriptions renewed: %d, suspended: %d", res.Renewed, res.Suspended)
	})
	return err
}

// AddHealthChecks checks every panel and device at a fixed interval.
// A non-positive interval disables the job.
func (s *Scheduler) AddHealthChecks(every time.Duration, checker domainHealth.IHealthUsecase) {
	if every <= 0 {
		return
	}
	s.cron.Schedule(cron.Every(every), cron.FuncJob(func() {
		records, err := checker.CheckAll(s.ctx)
		if err != nil {
			logrus.WithError(err).Warn("[HEALTH] Periodic check failed")
			return
		}
		failing := 0
		for _, r := range records {
			if r.Status == domainHealth.StatusError {
				failing++
			}
		}
		logrus.Infof("[HEALTH] Periodic check done: %d entities, %d failing", len(records), failing)
	}))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logrus.Infof("[SCHEDULER] Started with %d job(s)", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logrus.Info("[SCHEDULER] Stopped")
}
