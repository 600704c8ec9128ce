package annualreport

import "time"

// Report is the annual research activity report container for one year.
type Report struct {
	ID        string    `json:"id"`
	Year      int       `json:"year"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Outcome is the result of requesting an update from one project.
type Outcome struct {
	ProjectID  string `json:"project_id"`
	Code       string `json:"code"`
	Transition string `json:"transition"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result describes a created report and its fan-out.
type Result struct {
	Report   *Report   `json:"report"`
	Outcomes []Outcome `json:"outcomes"`
}

// Failed counts the projects whose update request was rejected.
func (r *Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Error != "" {
			n++
		}
	}
	return n
}
