package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kpitrack/internal/platform/querier"
)

var (
	ErrQueueFull   = errors.New("job queue full")
	ErrRunNotFound = errors.New("job run not found")
)

type Run struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	RequestedBy string          `json:"requestedBy,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type RunStore interface {
	Create(ctx context.Context, jobType, requestedBy, status string) (string, error)
	MarkRunning(ctx context.Context, runID string) error
	Finish(ctx context.Context, runID, status string, details []byte) error
	Get(ctx context.Context, runID string) (Run, error)
	List(ctx context.Context, jobType string, limit, offset int) ([]Run, int, error)
}

type PGStore struct {
	DB querier.Querier
}

func NewPGStore(db querier.Querier) *PGStore {
	return &PGStore{DB: db}
}

func (s *PGStore) Create(ctx context.Context, jobType, requestedBy, status string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status, requested_by)
    VALUES ($1,$2,$3)
    RETURNING id::text
  `, jobType, status, requestedBy).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert job run: %w", err)
	}
	return id, nil
}

func (s *PGStore) MarkRunning(ctx context.Context, runID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE job_runs SET status = $1, started_at = now() WHERE id::text = $2
  `, StatusRunning, runID)
	return err
}

func (s *PGStore) Finish(ctx context.Context, runID, status string, details []byte) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id::text = $3
  `, status, details, runID)
	return err
}

func (s *PGStore) Get(ctx context.Context, runID string) (Run, error) {
	var r Run
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, job_type, status, requested_by, details_json, started_at, completed_at
    FROM job_runs
    WHERE id::text = $1
  `, runID).Scan(&r.ID, &r.Type, &r.Status, &r.RequestedBy, &r.Details, &r.StartedAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get job run: %w", err)
	}
	return r, nil
}

func (s *PGStore) List(ctx context.Context, jobType string, limit, offset int) ([]Run, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM job_runs WHERE $1 = '' OR job_type = $1
  `, jobType).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count job runs: %w", err)
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id::text, job_type, status, requested_by, details_json, started_at, completed_at
    FROM job_runs
    WHERE $1 = '' OR job_type = $1
    ORDER BY started_at DESC
    LIMIT $2 OFFSET $3
  `, jobType, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list job runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Type, &r.Status, &r.RequestedBy, &r.Details, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}
