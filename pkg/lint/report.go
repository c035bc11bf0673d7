package lint

import "time"

// Report is the result of a lint run.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Roots     []string      `json:"roots,omitempty"`
	Skills    []string      `json:"skills"`
	Findings  []Finding     `json:"findings"`

	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

func (r *Report) finalize(d time.Duration) {
	r.Duration = d
	if r.Skills == nil {
		r.Skills = []string{}
	}
	if r.Findings == nil {
		r.Findings = []Finding{}
	}
	SortFindings(r.Findings)
	r.Recount()
}

// Recount recomputes the per-severity counters from Findings.
func (r *Report) Recount() {
	r.Errors, r.Warnings, r.Infos = 0, 0, 0
	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityError:
			r.Errors++
		case SeverityWarning:
			r.Warnings++
		default:
			r.Infos++
		}
	}
}

// Failed reports whether any finding is at or above threshold.
func (r *Report) Failed(threshold Severity) bool {
	for _, f := range r.Findings {
		if f.Severity >= threshold {
			return true
		}
	}
	return false
}

// FindingsFor returns the findings of one skill, in report order.
func (r *Report) FindingsFor(skill string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Skill == skill {
			out = append(out, f)
		}
	}
	return out
}
