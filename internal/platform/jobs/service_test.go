package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type memoryRunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	next int
}

func newMemoryRunStore() *memoryRunStore {
	return &memoryRunStore{runs: map[string]*Run{}}
}

func (m *memoryRunStore) Create(_ context.Context, jobType, requestedBy, status string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	id := fmt.Sprintf("run-%d", m.next)
	m.runs[id] = &Run{ID: id, Type: jobType, Status: status, RequestedBy: requestedBy, StartedAt: time.Now()}
	return id, nil
}

func (m *memoryRunStore) MarkRunning(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[runID].Status = StatusRunning
	return nil
}

func (m *memoryRunStore) Finish(_ context.Context, runID, status string, details []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.runs[runID].Status = status
	m.runs[runID].Details = details
	m.runs[runID].CompletedAt = &now
	return nil
}

func (m *memoryRunStore) Get(_ context.Context, runID string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[runID]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return *r, nil
}

func (m *memoryRunStore) List(context.Context, string, int, int) ([]Run, int, error) {
	return nil, 0, nil
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) RecordJob(jobType, status string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[jobType+"/"+status]++
}

func TestRunNowRecordsOutcome(t *testing.T) {
	store := newMemoryRunStore()
	observer := &countingObserver{}
	svc := New(store)
	svc.Observer = observer

	out, err := svc.RunNow(context.Background(), JobTeamReport, "user-1", func(context.Context) (any, error) {
		return map[string]int{"members": 3}, nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.(map[string]int)["members"] != 3 {
		t.Fatalf("unexpected output %v", out)
	}

	run, _ := store.Get(context.Background(), "run-1")
	if run.Status != StatusCompleted || run.CompletedAt == nil {
		t.Fatalf("expected completed run, got %+v", run)
	}
	if string(run.Details) != `{"members":3}` {
		t.Fatalf("unexpected details %s", run.Details)
	}
	if observer.counts["team_report/completed"] != 1 {
		t.Fatalf("expected observer to see completion, got %v", observer.counts)
	}
}

func TestRunNowRecordsFailure(t *testing.T) {
	store := newMemoryRunStore()
	svc := New(store)

	_, err := svc.RunNow(context.Background(), JobTeamReport, "", func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	run, _ := store.Get(context.Background(), "run-1")
	if run.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", run.Status)
	}
}

func TestEnqueueRunsOnWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := newMemoryRunStore()
	svc := New(store)
	svc.Start(ctx)

	done := make(chan struct{})
	runID, err := svc.Enqueue(ctx, JobTeamReport, "user-1", func(context.Context) (any, error) {
		close(done)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not run")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		run, _ := store.Get(ctx, runID)
		if run.Status == StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("run never completed, status %s", run.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	svc.Wait()
}

func TestEnqueueQueueFull(t *testing.T) {
	store := newMemoryRunStore()
	svc := New(store)
	svc.queue = make(chan job)

	_, err := svc.Enqueue(context.Background(), JobTeamReport, "", func(context.Context) (any, error) { return nil, nil })
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	run, _ := store.Get(context.Background(), "run-1")
	if run.Status != StatusFailed {
		t.Fatalf("expected failed run, got %s", run.Status)
	}
}
