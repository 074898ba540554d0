package plan

// Quality grades an approved or rejected step attempt.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// Valid reports whether q is one of the known grades. The empty grade is valid.
func (q Quality) Valid() bool {
	switch q {
	case "", QualityHigh, QualityMedium, QualityLow:
		return true
	}
	return false
}

// PlanReview is the reviewer's verdict on a proposed plan.
type PlanReview struct {
	Approved   bool `json:"approved"`
	Feedback   Text `json:"feedback,omitempty"`
	Confidence Text `json:"confidence,omitempty"`
}

// StepReview is the reviewer's verdict on one execution attempt.
//
// Approved and RequiresReplan are not expected together. When both are set,
// approval wins and the replan request is ignored.
type StepReview struct {
	Approved       bool    `json:"approved"`
	Feedback       Text    `json:"feedback,omitempty"`
	RequiresReplan bool    `json:"requires_replan"`
	Quality        Quality `json:"quality,omitempty"`
}

// ConflictingVerdict reports whether the review both approves and asks for a replan.
func (r *StepReview) ConflictingVerdict() bool {
	return r.Approved && r.RequiresReplan
}

// FinalReview is the reviewer's verdict over a completed plan.
type FinalReview struct {
	Approved   bool       `json:"approved"`
	Feedback   Text       `json:"feedback,omitempty"`
	Highlights StringList `json:"highlights,omitempty"`
	Risks      StringList `json:"risks,omitempty"`
}
