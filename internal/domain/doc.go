// Package domain models public oil and gas well records and their monthly
// production volumes.
//
// # Data Sources
//
// Production series originate from EIA state-level monthly spreadsheets
// (one sheet per state, columns: reporting month, volume). Well headers
// originate from state regulator bulk files such as the NY DEC wellDOS
// export, keyed by the regulatory API well number. The upstream extractor
// flattens both into raw records; this package never touches the network.
//
// # Source Data Conventions
//
// Reporting month:
//
//	Appears as "MM/YYYY", ISO 8601 ("2023-01" or "2023-01-15"), RFC 3339,
//	or an Excel serial day count (epoch 1899-12-30; 44927 = 2023-01-01).
//	All forms canonicalize to the first day of the month in UTC, since the
//	fact grain is monthly. Anything else is rejected as a malformed date.
//
// Volume:
//
//	A non-negative decimal. Negative values are hard rejections, never
//	clamped. An empty volume means "no measurement" and is carried as a
//	nil pointer so downstream sums and averages can exclude it; it is
//	never folded to zero.
//
// Natural keys:
//
//	State codes and names arrive in mixed case with stray whitespace
//	("WV", "wv", " WV "). Keys are trimmed and upper-cased before lookup
//	so all spellings resolve to the same dimension row.
//
// Well status:
//
//	Closed set: Active, Inactive, Plugged, Permitted. Regulator files use
//	assorted abbreviations ("AC", "PA", ...) which are mapped here;
//	unrecognized codes pass through as Inactive rather than failing the
//	record, since status is not part of well identity.
//
// # Outlier Screening
//
// A volume further than a configurable multiple of the trailing standard
// deviation from a well/product's trailing mean is flagged as an outlier.
// The default policy drops the reading before load; flag mode loads it
// marked for audit. Reference statistics are supplied read-only by the
// caller. Well records with zero or missing coordinates are rejected
// outright, matching the source data's convention that (0, 0) means
// "location unknown".
package domain
