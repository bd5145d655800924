package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRaw() RawRecord {
	return RawRecord{
		APIWellNumber: "31-003-04676",
		State:         "West Virginia",
		StateCode:     "WV",
		Operator:      "Antero Resources",
		Status:        "AC",
		Latitude:      "39.2667",
		Longitude:     "-80.3456",
		Readings: []RawReading{
			{Date: "01/2023", Product: "oil", Volume: "1200.5", Unit: "bbl"},
		},
	}
}

// fixedStats returns the same VolumeStats for every series.
type fixedStats struct {
	stats VolumeStats
	ok    bool
}

func (f fixedStats) VolumeStats(string, ProductType) (VolumeStats, bool) {
	return f.stats, f.ok
}

func TestNormalize_ValidRecord(t *testing.T) {
	frozen := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	out := Normalize(validRaw(), nil, NormalizeOptions{})

	require.True(t, out.Valid)
	assert.Empty(t, out.Dropped)

	w := out.Record.Well
	assert.Equal(t, "31-003-04676", w.APINumber)
	assert.Equal(t, "WEST VIRGINIA", w.StateName)
	assert.Equal(t, "WV", w.StateCode)
	assert.Equal(t, "ANTERO RESOURCES", w.Operator)
	assert.Equal(t, StatusActive, w.Status)
	assert.Equal(t, 39.2667, w.Latitude)
	assert.Equal(t, frozen, out.Record.ProcessedAt)

	require.Len(t, out.Record.Measurements, 1)
	m := out.Record.Measurements[0]
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), m.Date)
	assert.Equal(t, ProductOil, m.Product)
	require.NotNil(t, m.Volume)
	assert.Equal(t, 1200.5, *m.Volume)
	assert.Equal(t, "bbl", m.Unit)
	assert.False(t, m.Flagged)
}

func TestNormalize_KeyCanonicalization(t *testing.T) {
	raw := validRaw()
	raw.StateCode = " wv "
	raw.State = "  west   virginia "
	raw.Operator = "antero resources"

	out := Normalize(raw, nil, NormalizeOptions{})

	require.True(t, out.Valid)
	assert.Equal(t, "WV", out.Record.Well.StateCode)
	assert.Equal(t, "WEST VIRGINIA", out.Record.Well.StateName)
	assert.Equal(t, "ANTERO RESOURCES", out.Record.Well.Operator)
}

func TestNormalize_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RawRecord)
		reason RejectReason
	}{
		{"empty API number", func(r *RawRecord) { r.APIWellNumber = "  " }, ReasonInvalidDimensionKey},
		{"empty state code", func(r *RawRecord) { r.StateCode = "" }, ReasonInvalidDimensionKey},
		{"empty operator", func(r *RawRecord) { r.Operator = "" }, ReasonInvalidDimensionKey},
		{"zero coordinates", func(r *RawRecord) { r.Latitude, r.Longitude = "0", "0" }, ReasonInvalidCoordinates},
		{"unparseable latitude", func(r *RawRecord) { r.Latitude = "n/a" }, ReasonInvalidCoordinates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)

			out := Normalize(raw, nil, NormalizeOptions{})

			assert.False(t, out.Valid)
			assert.Equal(t, tt.reason, out.Rejection.Reason)
		})
	}
}

func TestNormalize_DroppedReadings(t *testing.T) {
	t.Run("negative volume produces no measurement", func(t *testing.T) {
		raw := validRaw()
		raw.Readings = []RawReading{{Date: "01/2023", Product: "oil", Volume: "-5", Unit: "bbl"}}

		out := Normalize(raw, nil, NormalizeOptions{})

		require.True(t, out.Valid)
		assert.Empty(t, out.Record.Measurements)
		require.Len(t, out.Dropped, 1)
		assert.Equal(t, ReasonNegativeVolume, out.Dropped[0].Reason)
	})

	t.Run("malformed date", func(t *testing.T) {
		raw := validRaw()
		raw.Readings = []RawReading{{Date: "13/13/13", Product: "gas", Volume: "10", Unit: "mcf"}}

		out := Normalize(raw, nil, NormalizeOptions{})

		require.True(t, out.Valid)
		require.Len(t, out.Dropped, 1)
		assert.Equal(t, ReasonMalformedDate, out.Dropped[0].Reason)
	})

	t.Run("unknown product", func(t *testing.T) {
		raw := validRaw()
		raw.Readings = []RawReading{{Date: "01/2023", Product: "helium", Volume: "10", Unit: "mcf"}}

		out := Normalize(raw, nil, NormalizeOptions{})

		require.Len(t, out.Dropped, 1)
		assert.Equal(t, ReasonInvalidDimensionKey, out.Dropped[0].Reason)
	})

	t.Run("good reading survives a bad sibling", func(t *testing.T) {
		raw := validRaw()
		raw.Readings = append(raw.Readings, RawReading{Date: "garbage", Product: "gas", Volume: "10", Unit: "mcf"})

		out := Normalize(raw, nil, NormalizeOptions{})

		require.True(t, out.Valid)
		assert.Len(t, out.Record.Measurements, 1)
		assert.Len(t, out.Dropped, 1)
	})
}

func TestNormalize_MissingVolumeIsNotZero(t *testing.T) {
	raw := validRaw()
	raw.Readings = []RawReading{{Date: "01/2023", Product: "oil", Volume: "", Unit: "bbl"}}

	out := Normalize(raw, nil, NormalizeOptions{})

	require.True(t, out.Valid)
	require.Len(t, out.Record.Measurements, 1)
	assert.Nil(t, out.Record.Measurements[0].Volume)
	assert.Empty(t, out.Dropped)
}

func TestNormalize_OutlierPolicy(t *testing.T) {
	stats := fixedStats{stats: VolumeStats{Mean: 100, StdDev: 10, Samples: 24}, ok: true}

	raw := validRaw()
	raw.Readings = []RawReading{{Date: "01/2023", Product: "oil", Volume: "5000", Unit: "bbl"}}

	t.Run("drop mode excludes the reading", func(t *testing.T) {
		out := Normalize(raw, stats, NormalizeOptions{OutlierMultiple: 10, OutlierMode: OutlierModeDrop})

		require.True(t, out.Valid)
		assert.Empty(t, out.Record.Measurements)
		require.Len(t, out.Dropped, 1)
		assert.Equal(t, ReasonOutlier, out.Dropped[0].Reason)
	})

	t.Run("flag mode loads it marked", func(t *testing.T) {
		out := Normalize(raw, stats, NormalizeOptions{OutlierMultiple: 10, OutlierMode: OutlierModeFlag})

		require.True(t, out.Valid)
		require.Len(t, out.Record.Measurements, 1)
		assert.True(t, out.Record.Measurements[0].Flagged)
	})

	t.Run("in-range volume passes", func(t *testing.T) {
		ok := validRaw()
		out := Normalize(ok, stats, NormalizeOptions{OutlierMultiple: 10, OutlierMode: OutlierModeDrop})

		require.True(t, out.Valid)
		assert.Empty(t, out.Dropped)
	})

	t.Run("no history skips screening", func(t *testing.T) {
		out := Normalize(raw, fixedStats{}, NormalizeOptions{OutlierMultiple: 10, OutlierMode: OutlierModeDrop})

		require.True(t, out.Valid)
		assert.Len(t, out.Record.Measurements, 1)
	})
}

func TestParseProductionDate_Canonicalization(t *testing.T) {
	want := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	// The same month in every accepted encoding lands on the same
	// canonical first-of-month date.
	for _, input := range []string{"01/2023", "2023-01", "2023-01-15", "2023-01-15T00:00:00Z", "44927"} {
		t.Run(input, func(t *testing.T) {
			got, err := ParseProductionDate(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseProductionDate_Malformed(t *testing.T) {
	for _, input := range []string{"", "not a date", "13/13/13", "99", "999999"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseProductionDate(input)
			assert.Error(t, err)
		})
	}
}

func TestParseVolume(t *testing.T) {
	t.Run("thousands separators", func(t *testing.T) {
		v, err := ParseVolume("1,234,567.8")
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, 1234567.8, *v)
	})

	t.Run("withheld sentinel becomes no measurement", func(t *testing.T) {
		v, err := ParseVolume("W")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("negative is rejected", func(t *testing.T) {
		_, err := ParseVolume("-5")
		assert.Error(t, err)
	})
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusActive, ParseStatus("AC"))
	assert.Equal(t, StatusActive, ParseStatus("active"))
	assert.Equal(t, StatusPlugged, ParseStatus("PA"))
	assert.Equal(t, StatusPermitted, ParseStatus("PM"))
	assert.Equal(t, StatusInactive, ParseStatus("XX"))
}
