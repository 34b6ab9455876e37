package cronjob

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/docwave/docwave-backend/internal/versioning/service"
)

// Jobs is the retention surface the scheduler drives.
type Jobs interface {
	RunDailySnapshots(ctx context.Context) (*service.DailyReport, error)
	RunThinning(ctx context.Context) (*service.ThinningReport, error)
	RunAgeCleanup(ctx context.Context) (int64, error)
}

type Scheduler struct {
	jobs             Jobs
	dailySchedule    string
	thinningSchedule string
	cron             *cron.Cron

	dailyMu    sync.Mutex
	thinningMu sync.Mutex
}

func NewScheduler(jobs Jobs, dailySchedule, thinningSchedule string) *Scheduler {
	return &Scheduler{
		jobs:             jobs,
		dailySchedule:    dailySchedule,
		thinningSchedule: thinningSchedule,
	}
}

// Start registers the retention jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	c := cron.New(cron.WithSeconds())

	if _, err := c.AddFunc(s.dailySchedule, s.runDaily); err != nil {
		return err
	}
	if _, err := c.AddFunc(s.thinningSchedule, s.runThinning); err != nil {
		return err
	}

	log.Printf("[cron] scheduler started (daily %q, thinning %q)", s.dailySchedule, s.thinningSchedule)
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[cron] scheduler stopped")
}

func (s *Scheduler) runDaily() {
	if !s.dailyMu.TryLock() {
		log.Println("[cron] daily snapshots still running, skipping this tick")
		return
	}
	defer s.dailyMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	report, err := s.jobs.RunDailySnapshots(ctx)
	if err != nil {
		log.Printf("[cron] daily snapshots failed: %v", err)
		return
	}
	log.Printf("[cron] daily snapshots done in %s: checked=%d created=%d",
		time.Since(start).Round(time.Millisecond), report.CheckedDocuments, report.CreatedVersions)
}

func (s *Scheduler) runThinning() {
	if !s.thinningMu.TryLock() {
		log.Println("[cron] thinning still running, skipping this tick")
		return
	}
	defer s.thinningMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	report, err := s.jobs.RunThinning(ctx)
	if err != nil {
		log.Printf("[cron] thinning failed: %v", err)
		return
	}

	deleted, err := s.jobs.RunAgeCleanup(ctx)
	if err != nil {
		log.Printf("[cron] age cleanup failed: %v", err)
		return
	}

	log.Printf("[cron] thinning done in %s: thinned=%d freed=%dB aged=%d",
		time.Since(start).Round(time.Millisecond), report.Deleted, report.FreedBytes, deleted)
}
