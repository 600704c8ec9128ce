package annualreport

import "errors"

var (
	// ErrReportExists indicates a report for the year already exists.
	ErrReportExists = errors.New("annual report already exists for year")
	// ErrReportNotFound indicates no matching report exists.
	ErrReportNotFound = errors.New("annual report not found")
	// ErrInvalidInput indicates invalid report input.
	ErrInvalidInput = errors.New("invalid annual report input")
	// ErrNotPermitted indicates the actor may not create reports.
	ErrNotPermitted = errors.New("not permitted to create annual reports")
	// ErrYearBackdated indicates a year older than the latest report.
	ErrYearBackdated = errors.New("annual report year precedes latest report")
	// ErrBusy indicates another fan-out holds the job lock.
	ErrBusy = errors.New("annual report fan-out already running")
)
