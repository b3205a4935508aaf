package kpi

import (
	"errors"
	"strings"
)

var (
	ErrInvalidWindow     = errors.New("invalid period window")
	ErrNoPerformanceData = errors.New("no performance data for period")
	ErrMemberNotFound    = errors.New("team member not found")
	ErrKPINotFound       = errors.New("kpi not found")
	ErrInvalidTarget     = errors.New("invalid target")
	ErrInvalidRecord     = errors.New("invalid performance record")
	ErrInvalidMember     = errors.New("invalid team member")
	ErrInvalidDefinition = errors.New("invalid kpi definition")
)

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// WindowError lists every problem found with a PeriodWindow.
type WindowError struct {
	Issues []FieldIssue
}

func (e *WindowError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+" "+issue.Reason)
	}
	return ErrInvalidWindow.Error() + ": " + strings.Join(parts, "; ")
}

func (e *WindowError) Unwrap() error {
	return ErrInvalidWindow
}
