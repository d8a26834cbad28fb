// Package sched runs registered flows on cron schedules. Each scheduled
// run gets a fresh store; failures are logged and do not stop the
// schedule.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	minllm "github.com/AAxiom-org/MinLLM"
)

// Runner is anything that can be run against a store, which covers Flow,
// BatchFlow, and ParallelBatchFlow.
type Runner interface {
	RunAsync(ctx context.Context, store *minllm.Store) (minllm.Action, error)
}

// Job declares one scheduled flow run.
type Job struct {
	// Name identifies the job in logs.
	Name string

	// Spec is a standard five-field cron expression.
	Spec string

	// Flow is the flow to run.
	Flow Runner

	// Seed populates the fresh store before each run.
	Seed map[string]any
}

// Scheduler runs flows on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// New creates a stopped scheduler. Register jobs with Add, then call Start.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers a job. The cron expression is validated immediately.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("sched: job needs a name")
	}
	if job.Flow == nil {
		return fmt.Errorf("sched: job %q has no flow", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[job.Name]; exists {
		return fmt.Errorf("sched: job %q already registered", job.Name)
	}

	id, err := s.cron.AddFunc(job.Spec, func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("sched: job %q: %w", job.Name, err)
	}
	s.entries[job.Name] = id
	return nil
}

// Remove unregisters a job by name. Unknown names are ignored.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// Jobs returns the names of registered jobs.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// Start begins running schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow triggers a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("sched: job %q not registered", name)
	}
	s.cron.Entry(id).Job.Run()
	return nil
}

func (s *Scheduler) runJob(job Job) {
	store := minllm.NewStore()
	for k, v := range job.Seed {
		store.Set(k, v)
	}

	action, err := job.Flow.RunAsync(context.Background(), store)
	if err != nil {
		s.logger.Error("scheduled run failed",
			"job", job.Name, "error", err)
		return
	}
	s.logger.Info("scheduled run finished",
		"job", job.Name, "action", string(action))
}
