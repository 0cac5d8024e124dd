package validate

// Overall verdicts for one validation pass.
const (
	OverallValid   = "valid"
	OverallWarning = "warning"
	OverallInvalid = "invalid"
)

// Report is the outcome of validating one artifact. Errors halt
// publication; warnings publish but must reach the operators.
type Report struct {
	Overall  string   `json:"overall"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Report) Valid() bool {
	return r.Overall != OverallInvalid
}
