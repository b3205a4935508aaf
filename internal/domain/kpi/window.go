package kpi

import (
	"fmt"
	"strconv"
	"strings"
)

// PeriodWindow is an inclusive range of calendar months.
type PeriodWindow struct {
	StartMonth int `json:"startMonth"`
	StartYear  int `json:"startYear"`
	EndMonth   int `json:"endMonth"`
	EndYear    int `json:"endYear"`
}

func NewWindow(startYear, startMonth, endYear, endMonth int) PeriodWindow {
	return PeriodWindow{StartMonth: startMonth, StartYear: startYear, EndMonth: endMonth, EndYear: endYear}
}

func monthIndex(year, month int) int {
	return year*12 + (month - 1)
}

func (w PeriodWindow) Validate() error {
	var issues []FieldIssue
	if w.StartMonth < 1 || w.StartMonth > 12 {
		issues = append(issues, FieldIssue{Field: "startMonth", Reason: "must be between 1 and 12"})
	}
	if w.EndMonth < 1 || w.EndMonth > 12 {
		issues = append(issues, FieldIssue{Field: "endMonth", Reason: "must be between 1 and 12"})
	}
	if w.StartYear <= 0 {
		issues = append(issues, FieldIssue{Field: "startYear", Reason: "must be a positive year"})
	}
	if w.EndYear <= 0 {
		issues = append(issues, FieldIssue{Field: "endYear", Reason: "must be a positive year"})
	}
	if len(issues) == 0 && w.startIndex() > w.endIndex() {
		issues = append(issues, FieldIssue{Field: "endMonth", Reason: "window end must not be before window start"})
	}
	if len(issues) > 0 {
		return &WindowError{Issues: issues}
	}
	return nil
}

func (w PeriodWindow) startIndex() int { return monthIndex(w.StartYear, w.StartMonth) }
func (w PeriodWindow) endIndex() int   { return monthIndex(w.EndYear, w.EndMonth) }

// Contains reports whether the calendar month falls inside the window.
// Months outside 1..12 never match.
func (w PeriodWindow) Contains(year, month int) bool {
	if month < 1 || month > 12 {
		return false
	}
	idx := monthIndex(year, month)
	return idx >= w.startIndex() && idx <= w.endIndex()
}

// Months is the number of calendar months the window spans.
func (w PeriodWindow) Months() int {
	return w.endIndex() - w.startIndex() + 1
}

func (w PeriodWindow) String() string {
	return fmt.Sprintf("%04d-%02d..%04d-%02d", w.StartYear, w.StartMonth, w.EndYear, w.EndMonth)
}

// ParseYearMonth parses "YYYY-MM".
func ParseYearMonth(value string) (year, month int, err error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not YYYY-MM", ErrInvalidWindow, value)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil || year <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid year in %q", ErrInvalidWindow, value)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: invalid month in %q", ErrInvalidWindow, value)
	}
	return year, month, nil
}
