package pipeline

import "github.com/couchcryptid/well-production-etl/internal/domain"

// Report summarizes one ingestion run: load counts, rejections by reason,
// and the attributed details for audit.
type Report struct {
	RecordsExtracted int
	RecordsLoaded    int
	FactsInserted    int
	FactsUpdated     int

	// Rejections counts every rejection and warning by reason.
	Rejections map[domain.RejectReason]int
	// Details attributes each rejection and warning to its record.
	Details []domain.Rejection
}

func newReport() *Report {
	return &Report{Rejections: make(map[domain.RejectReason]int)}
}

func (r *Report) add(rej domain.Rejection) {
	r.Rejections[rej.Reason]++
	r.Details = append(r.Details, rej)
}

// RejectionCount is the total number of rejections and warnings.
func (r *Report) RejectionCount() int {
	n := 0
	for _, c := range r.Rejections {
		n += c
	}
	return n
}

// Fatal reports whether any fatal-class error occurred. Soft warnings
// (outliers, unit mismatches) never make a run fatal.
func (r *Report) Fatal() bool {
	for reason, count := range r.Rejections {
		if count > 0 && !reason.Soft() {
			return true
		}
	}
	return false
}
