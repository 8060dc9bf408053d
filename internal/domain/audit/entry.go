package audit

import (
	"encoding/json"
	"time"

	"github.com/kailas-cloud/nutrisafe/internal/domain/severity"
	domverdict "github.com/kailas-cloud/nutrisafe/internal/domain/verdict"
)

// Entry is one stored verdict. Body is the verdict exactly as it was
// returned to the caller.
type Entry struct {
	ID          string
	GeneratedAt time.Time
	KBVersion   string
	KBChecksum  string
	Status      domverdict.Status
	OverallRisk severity.Level
	Fingerprint string
	Body        json.RawMessage
}

// NewEntry captures the searchable fields of v next to its rendered body.
func NewEntry(v domverdict.Verdict, body json.RawMessage) Entry {
	return Entry{
		ID:          v.ID(),
		GeneratedAt: v.GeneratedAt(),
		KBVersion:   v.KBVersion(),
		KBChecksum:  v.KBChecksum(),
		Status:      v.Status(),
		OverallRisk: v.OverallRisk(),
		Fingerprint: v.Fingerprint(),
		Body:        body,
	}
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Status    domverdict.Status
	MinRisk   severity.Level
	KBVersion string
	Since     time.Time
	Limit     int
}
