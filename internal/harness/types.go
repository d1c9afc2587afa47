package harness

// StepTrace is the observable outcome of one build.
type StepTrace struct {
	Name     string            `json:"name"`
	RunID    string            `json:"run_id"`
	Waves    int               `json:"waves"`
	Executed []string          `json:"executed"`
	Modified []string          `json:"modified"`
	Written  map[string]string `json:"written"`
	Error    string            `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation held.
	Pass bool `json:"pass"`

	// Steps holds one trace per build, in order.
	Steps []StepTrace `json:"steps"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepTrace{},
		Errors: []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
