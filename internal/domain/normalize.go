package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// OutlierMode selects what happens to readings that fail outlier screening.
type OutlierMode string

const (
	// OutlierModeDrop excludes the reading from load and reports it.
	OutlierModeDrop OutlierMode = "drop"
	// OutlierModeFlag loads the reading marked for audit.
	OutlierModeFlag OutlierMode = "flag"
)

// NormalizeOptions tunes outlier screening.
type NormalizeOptions struct {
	OutlierMultiple float64 // multiples of trailing stddev; <= 0 means 10
	OutlierMode     OutlierMode
}

const defaultOutlierMultiple = 10.0

// excelEpoch is day zero of the 1900 date system (accounting for the
// fictitious 1900-02-29). Serial 44927 lands on 2023-01-01.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Plausible range for Excel serial dates: 1927 through 2079. Keeps small
// integers and years from being misread as serials.
const (
	minExcelSerial = 10000
	maxExcelSerial = 65000
)

// Normalize coerces and validates one raw record. It is a pure function of
// the record, the supplied reference statistics, and the options: identity
// problems reject the whole record, while bad readings are dropped
// individually so the rest of the record still loads.
func Normalize(raw RawRecord, stats StatsProvider, opts NormalizeOptions) Outcome {
	api := CanonicalKey(raw.APIWellNumber)
	if api == "" {
		return reject(ReasonInvalidDimensionKey, "empty API well number")
	}

	stateName := CanonicalKey(raw.State)
	stateCode := CanonicalKey(raw.StateCode)
	operator := CanonicalKey(raw.Operator)
	if stateName == "" || stateCode == "" {
		return reject(ReasonInvalidDimensionKey, fmt.Sprintf("well %s: missing state name or code", api))
	}
	if operator == "" {
		return reject(ReasonInvalidDimensionKey, fmt.Sprintf("well %s: missing operator", api))
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(raw.Latitude), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(raw.Longitude), 64)
	if latErr != nil || lonErr != nil || lat == 0 || lon == 0 {
		return reject(ReasonInvalidCoordinates, fmt.Sprintf("well %s: lat=%q lon=%q", api, raw.Latitude, raw.Longitude))
	}

	rec := Record{
		Well: Well{
			APINumber: api,
			StateName: stateName,
			StateCode: stateCode,
			Operator:  operator,
			Status:    ParseStatus(raw.Status),
			Latitude:  lat,
			Longitude: lon,
		},
		ProcessedAt: clock.Now(),
	}

	var dropped []Rejection
	for _, r := range raw.Readings {
		m, rej := normalizeReading(api, r, stats, opts)
		if rej != nil {
			dropped = append(dropped, *rej)
			continue
		}
		rec.Measurements = append(rec.Measurements, m)
	}

	return Outcome{Valid: true, Record: rec, Dropped: dropped}
}

func reject(reason RejectReason, detail string) Outcome {
	return Outcome{Rejection: Rejection{Reason: reason, Detail: detail}}
}

func normalizeReading(api string, r RawReading, stats StatsProvider, opts NormalizeOptions) (Measurement, *Rejection) {
	date, err := ParseProductionDate(r.Date)
	if err != nil {
		return Measurement{}, &Rejection{Reason: ReasonMalformedDate, Detail: fmt.Sprintf("well %s: %v", api, err)}
	}

	product, ok := ParseProduct(r.Product)
	if !ok {
		return Measurement{}, &Rejection{Reason: ReasonInvalidDimensionKey, Detail: fmt.Sprintf("well %s: unknown product type %q", api, r.Product)}
	}

	volume, err := ParseVolume(r.Volume)
	if err != nil {
		return Measurement{}, &Rejection{Reason: ReasonNegativeVolume, Detail: fmt.Sprintf("well %s %s %s: %v", api, product, date.Format("2006-01"), err)}
	}

	m := Measurement{
		Date:    date,
		Product: product,
		Volume:  volume,
		Unit:    strings.TrimSpace(r.Unit),
	}

	if volume != nil && isOutlier(api, product, *volume, stats, opts) {
		detail := fmt.Sprintf("well %s %s %s: volume %g outside trailing spread", api, product, date.Format("2006-01"), *volume)
		if opts.OutlierMode != OutlierModeFlag {
			return Measurement{}, &Rejection{Reason: ReasonOutlier, Detail: detail}
		}
		m.Flagged = true
	}

	return m, nil
}

func isOutlier(api string, product ProductType, v float64, stats StatsProvider, opts NormalizeOptions) bool {
	if stats == nil {
		return false
	}
	s, ok := stats.VolumeStats(api, product)
	if !ok || s.Samples < 2 || s.StdDev <= 0 {
		return false
	}
	multiple := opts.OutlierMultiple
	if multiple <= 0 {
		multiple = defaultOutlierMultiple
	}
	return math.Abs(v-s.Mean) > multiple*s.StdDev
}

// CanonicalKey trims, collapses interior whitespace, and upper-cases a
// natural key so "WV", "wv", and " WV " resolve to the same dimension row.
func CanonicalKey(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// ParseProduct maps a product label to its closed-set type.
func ParseProduct(s string) (ProductType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oil":
		return ProductOil, true
	case "gas":
		return ProductGas, true
	default:
		return "", false
	}
}

// ParseStatus maps regulator status codes to the closed status set.
// Unrecognized codes become Inactive; status is not part of well identity,
// so a strange code should not reject the record.
func ParseStatus(s string) WellStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AC", "ACTIVE":
		return StatusActive
	case "PA", "PB", "PLUGGED":
		return StatusPlugged
	case "PM", "PERMITTED":
		return StatusPermitted
	default:
		return StatusInactive
	}
}

// ParseProductionDate accepts the date encodings seen in source files —
// "MM/YYYY", "YYYY-MM", "YYYY-MM-DD", RFC 3339, or an Excel serial day —
// and canonicalizes to the first of the month in UTC.
func ParseProductionDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("malformed date: empty")
	}

	for _, layout := range []string{"01/2006", "2006-01", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return monthStart(t), nil
		}
	}

	if serial, err := strconv.Atoi(s); err == nil {
		if serial < minExcelSerial || serial > maxExcelSerial {
			return time.Time{}, fmt.Errorf("malformed date: serial %d out of range", serial)
		}
		return monthStart(excelEpoch.AddDate(0, 0, serial)), nil
	}

	return time.Time{}, fmt.Errorf("malformed date: %q", s)
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParseVolume coerces a volume field. Empty or unparseable text means "no
// measurement" and returns nil, matching the source files' use of blanks
// and sentinels like "W" (withheld); negative values are a hard rejection,
// never clamped. Thousands separators from spreadsheet exports are
// tolerated.
func ParseVolume(s string) (*float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, nil
	}
	if v < 0 {
		return nil, fmt.Errorf("negative volume %g", v)
	}
	return &v, nil
}
