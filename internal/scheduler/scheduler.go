package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// monthlySpec fires at 11:00 local time on the first day of every month.
const monthlySpec = "0 11 1 * *"

// Job is a unit of scheduled work.
type Job interface {
	Run() error
	Name() string
}

// RunLogger records the outcome of each scheduled execution.
type RunLogger interface {
	LogSchedulerRun(at time.Time, status string, runErr error) error
}

// Scheduler runs the monthly rebalancing job in the configured timezone.
type Scheduler struct {
	cron     *cron.Cron
	location *time.Location
	runLog   RunLogger
	log      zerolog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	lastRun map[string]time.Time
	lastErr map[string]string
}

// New creates a scheduler pinned to the given timezone. Cron expressions
// are evaluated in that zone, so "11:00 on the 1st" means local market
// morning regardless of where the service runs.
func New(timezone string, runLog RunLogger, log zerolog.Logger) (*Scheduler, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		location: location,
		runLog:   runLog,
		log:      log.With().Str("component", "scheduler").Logger(),
		entries:  make(map[string]cron.EntryID),
		lastRun:  make(map[string]time.Time),
		lastErr:  make(map[string]string),
	}, nil
}

// AddMonthlyJob registers a job on the first-of-month schedule.
func (s *Scheduler) AddMonthlyJob(job Job) error {
	return s.AddJob(monthlySpec, job)
}

// AddJob registers a job with an arbitrary cron schedule.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() {
		s.execute(job)
	})
	if err != nil {
		return fmt.Errorf("registering job %q: %w", job.Name(), err)
	}

	s.mu.Lock()
	s.entries[job.Name()] = id
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Str("timezone", s.location.String()).
		Msg("Job registered")

	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) execute(job Job) {
	started := time.Now().In(s.location)
	s.log.Info().Str("job", job.Name()).Msg("Running job")

	err := job.Run()

	s.mu.Lock()
	s.lastRun[job.Name()] = started
	if err != nil {
		s.lastErr[job.Name()] = err.Error()
	} else {
		delete(s.lastErr, job.Name())
	}
	s.mu.Unlock()

	status := "success"
	if err != nil {
		status = "failure"
		s.log.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
	} else {
		s.log.Info().Str("job", job.Name()).Msg("Job completed")
	}

	if logErr := s.runLog.LogSchedulerRun(started, status, err); logErr != nil {
		s.log.Error().Err(logErr).Str("job", job.Name()).Msg("Failed to record scheduler run")
	}
}

// JobStatus describes a registered job for the status endpoint.
type JobStatus struct {
	Name      string     `json:"name"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Status reports next and last execution times for every registered job.
func (s *Scheduler) Status() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.entries))
	for name, id := range s.entries {
		status := JobStatus{Name: name, LastError: s.lastErr[name]}

		if entry := s.cron.Entry(id); !entry.Next.IsZero() {
			next := entry.Next
			status.NextRun = &next
		}
		if last, ok := s.lastRun[name]; ok {
			status.LastRun = &last
		}

		statuses = append(statuses, status)
	}
	return statuses
}
