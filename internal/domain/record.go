package domain

import "time"

// ProductType identifies a production series. Closed set.
type ProductType string

const (
	ProductOil ProductType = "oil"
	ProductGas ProductType = "gas"
)

// WellStatus is the regulatory lifecycle state of a well. Closed set.
type WellStatus string

const (
	StatusActive    WellStatus = "active"
	StatusInactive  WellStatus = "inactive"
	StatusPlugged   WellStatus = "plugged"
	StatusPermitted WellStatus = "permitted"
)

// RawRecord is the flat field bag produced by the extractor: one well
// header plus zero or more production readings. All fields are untyped
// text; Normalize does the coercion.
type RawRecord struct {
	APIWellNumber string       `json:"api_well_number"`
	State         string       `json:"state"`
	StateCode     string       `json:"state_code"`
	Operator      string       `json:"operator"`
	Status        string       `json:"status"`
	Latitude      string       `json:"latitude"`
	Longitude     string       `json:"longitude"`
	Readings      []RawReading `json:"readings,omitempty"`
}

// RawReading is one (month, product, volume, unit) measurement as text.
type RawReading struct {
	Date    string `json:"date"`
	Product string `json:"product"`
	Volume  string `json:"volume"`
	Unit    string `json:"unit"`
}

// Well is the normalized well header. APINumber, StateName/StateCode and
// Operator form the identity; Status and coordinates are last-write-wins.
type Well struct {
	APINumber string
	StateName string
	StateCode string
	Operator  string
	Status    WellStatus
	Latitude  float64
	Longitude float64
}

// Measurement is one normalized production reading. Date is the first of
// the month in UTC. A nil Volume means the source reported no measurement;
// it is excluded from aggregates, never treated as zero. Flagged marks an
// outlier loaded under the flag policy.
type Measurement struct {
	Date    time.Time
	Product ProductType
	Volume  *float64
	Unit    string
	Flagged bool
}

// Record is the normalized form of one raw record.
type Record struct {
	Well         Well
	Measurements []Measurement
	ProcessedAt  time.Time
}

// Rejection attributes a rejected record or reading to its reason.
type Rejection struct {
	Reason RejectReason
	Detail string
}

// Outcome is the tagged result of normalizing one raw record: either a
// loadable Record (Valid) or a whole-record Rejection. Dropped collects
// per-reading rejections for records that remain loadable — a record with
// one bad reading still loads its good ones.
type Outcome struct {
	Valid     bool
	Record    Record
	Rejection Rejection
	Dropped   []Rejection
}

// VolumeStats is the trailing mean and spread for one well/product series,
// supplied read-only for outlier screening.
type VolumeStats struct {
	Mean    float64
	StdDev  float64
	Samples int
}

// StatsProvider looks up reference statistics for outlier screening.
// A false return means no history exists and screening is skipped.
type StatsProvider interface {
	VolumeStats(apiNumber string, product ProductType) (VolumeStats, bool)
}
