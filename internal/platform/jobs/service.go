package jobs

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	JobTeamReport = "team_report"

	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type RunFunc func(ctx context.Context) (any, error)

// Observer is notified when a job finishes.
type Observer interface {
	RecordJob(jobType, status string)
}

type Service struct {
	Store    RunStore
	Observer Observer

	queue chan job
	wg    sync.WaitGroup
}

type job struct {
	Type        string
	RunID       string
	RequestedBy string
	Run         RunFunc
}

func New(store RunStore) *Service {
	return &Service{
		Store: store,
		queue: make(chan job, 128),
	}
}

// Start launches the worker. It stops when ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker(ctx)
	}()
}

// Wait blocks until the worker has stopped.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Enqueue records a queued run and hands it to the worker. It returns the
// run id, or ErrQueueFull when the worker is saturated.
func (s *Service) Enqueue(ctx context.Context, jobType, requestedBy string, run RunFunc) (string, error) {
	runID, err := s.Store.Create(ctx, jobType, requestedBy, StatusQueued)
	if err != nil {
		return "", err
	}
	select {
	case s.queue <- job{Type: jobType, RunID: runID, RequestedBy: requestedBy, Run: run}:
		return runID, nil
	default:
		log.Warn().Str("jobType", jobType).Msg("job queue full")
		s.finish(ctx, jobType, runID, StatusFailed, map[string]string{"error": ErrQueueFull.Error()})
		return runID, ErrQueueFull
	}
}

// RunNow executes run synchronously and records the outcome.
func (s *Service) RunNow(ctx context.Context, jobType, requestedBy string, run RunFunc) (any, error) {
	runID, err := s.Store.Create(ctx, jobType, requestedBy, StatusRunning)
	if err != nil {
		log.Warn().Err(err).Str("jobType", jobType).Msg("job run insert failed")
	}
	return s.runJob(ctx, job{Type: jobType, RunID: runID, RequestedBy: requestedBy, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if err := s.Store.MarkRunning(ctx, j.RunID); err != nil {
				log.Warn().Err(err).Str("runId", j.RunID).Msg("job run status update failed")
			}
			if _, err := s.runJob(ctx, j); err != nil {
				log.Warn().Err(err).Str("jobType", j.Type).Str("runId", j.RunID).Msg("job run failed")
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	details, err := j.Run(ctx)
	status := StatusCompleted
	var recorded any = details
	if err != nil {
		status = StatusFailed
		recorded = map[string]string{"error": err.Error()}
	}
	s.finish(ctx, j.Type, j.RunID, status, recorded)
	return details, err
}

func (s *Service) finish(ctx context.Context, jobType, runID, status string, details any) {
	if s.Observer != nil {
		s.Observer.RecordJob(jobType, status)
	}
	if runID == "" {
		return
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Warn().Err(err).Msg("job details marshal failed")
		detailsJSON = []byte("{}")
	}
	if err := s.Store.Finish(ctx, runID, status, detailsJSON); err != nil {
		log.Warn().Err(err).Str("runId", runID).Msg("job run update failed")
	}
}
