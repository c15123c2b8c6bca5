package domain

// AnnotatedError is one flagged issue. An empty Fragment means the
// explanation applies to the submission as a whole.
type AnnotatedError struct {
	Fragment    string `json:"fragment"`
	Explanation string `json:"explanation"`
}

// WholeText reports whether the error concerns the entire submission
func (e AnnotatedError) WholeText() bool {
	return e.Fragment == ""
}

// Feedback is the parsed result of checking a submission
type Feedback struct {
	Mistakes        []AnnotatedError `json:"mistakes"`
	StyleErrors     []AnnotatedError `json:"style_errors"`
	Recommendations string           `json:"recommendations"`
	Cost            Cost             `json:"cost"`
}

// Clean reports whether no issues were found
func (f *Feedback) Clean() bool {
	return len(f.Mistakes) == 0 && len(f.StyleErrors) == 0
}
