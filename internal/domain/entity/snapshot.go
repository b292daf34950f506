package entity

import "time"

// MRRSnapshot is the daily roll-up of MRR and its movements. Date is
// truncated to midnight UTC and unique per day.
type MRRSnapshot struct {
	ID             int64
	Date           time.Time
	TotalMRR       float64
	NewMRR         float64
	ExpansionMRR   float64
	ContractionMRR float64
	ChurnedMRR     float64

	// ProductBreakdown maps product name to its share of total MRR.
	ProductBreakdown map[string]float64

	CreatedAt time.Time
}

// NetMovement returns the day's net MRR change across all buckets.
func (s *MRRSnapshot) NetMovement() float64 {
	return s.NewMRR + s.ExpansionMRR - s.ContractionMRR - s.ChurnedMRR
}

// SnapshotDate truncates t to the UTC day a snapshot is keyed by.
func SnapshotDate(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
