package service

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// everyMinute fires at second zero of every minute.
const everyMinute = "0 * * * * *"

// SchedulerService wraps cron-based jobs. Jobs never overlap with themselves:
// a run that is still in flight causes the next one to be skipped.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location, logger *zap.Logger) *SchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := cronLogger{log: logger.Named("cron").Sugar()}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
	}
}

// ScheduleEveryMinute registers a job at the start of every minute.
func (s *SchedulerService) ScheduleEveryMinute(job func()) (cron.EntryID, error) {
	return s.cron.AddFunc(everyMinute, job)
}

// Schedule registers a job on a six-field cron spec (seconds first).
func (s *SchedulerService) Schedule(spec string, job func()) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, job)
}

// Next returns the next activation time of an entry.
func (s *SchedulerService) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// cronLogger routes cron's logging into zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
