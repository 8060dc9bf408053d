package review

// Status is the clinical review state of a knowledge record.
type Status string

// Review statuses.
const (
	Draft         Status = "draft"
	PendingReview Status = "pending_review"
	Approved      Status = "approved"
	Rejected      Status = "rejected"
)

// IsValid checks if the status is one of the supported values.
func (s Status) IsValid() bool {
	return s == Draft || s == PendingReview || s == Approved || s == Rejected
}

// Publishable reports whether a record in this state may ship in a bundle.
func (s Status) Publishable() bool { return s == Approved }
