package shared

import (
	"errors"
	"net/url"

	"kpitrack/internal/domain/kpi"
)

// Window reads startMonth, startYear, endMonth and endYear from q.
func (v *Validator) Window(q url.Values) kpi.PeriodWindow {
	window := kpi.PeriodWindow{
		StartMonth: v.Int("startMonth", q.Get("startMonth")),
		StartYear:  v.Int("startYear", q.Get("startYear")),
		EndMonth:   v.Int("endMonth", q.Get("endMonth")),
		EndYear:    v.Int("endYear", q.Get("endYear")),
	}
	if v.HasIssues() {
		return window
	}
	v.WindowError(window.Validate())
	return window
}

// WindowError copies the issues of a *kpi.WindowError into v. It reports
// whether err was one.
func (v *Validator) WindowError(err error) bool {
	var werr *kpi.WindowError
	if !errors.As(err, &werr) {
		return false
	}
	for _, issue := range werr.Issues {
		v.Add(issue.Field, issue.Reason)
	}
	return true
}
