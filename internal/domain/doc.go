// Package domain models avalanche forecast products published through the
// avalanche.org public API and the normalized summaries rendered into feeds.
//
// # Data Source
//
// Forecasts come from the product endpoint of the avalanche.org public API,
// https://api.avalanche.org/v2/public/product?type=forecast&center_id=..&zone_id=..
// Each fetch is wrapped in a [RawForecastPayload] envelope that records when the
// request started and how long it took. The forecast body itself is kept as
// opaque JSON so stored files survive upstream schema changes untouched.
//
// # Payload Envelope
//
//	{
//	  "request_time": "2024-01-05T08:00:00.000000Z",
//	  "request_duration_ms": 412,
//	  "forecast": { ...provider JSON... }
//	}
//
// A failed fetch stores "error" instead of "forecast". The two are mutually
// exclusive.
//
// # Provider Conventions
//
// Timestamps:
//
//	ISO-8601 UTC with a trailing "Z" marker, e.g. "2024-01-05T07:00:00Z".
//	The marker is stripped and the remainder parsed as UTC. Offsets such as
//	"+00:00" are also accepted.
//
// Danger ratings ("danger" list):
//
//	{"valid_day": "current"|"tomorrow", "upper": 3, "middle": 2, "lower": 1}
//	upper = above treeline, middle = near treeline, lower = below treeline.
//	Values are 1..5 on the North American Public Avalanche Danger Scale.
//	Anything else (0, -1, null) renders as "Unknown". When several entries
//	share a valid_day the last one scanned wins.
//
// Avalanche problems ("forecast_avalanche_problems" list):
//
//	{"name": "Wind Slab", "likelihood": "likely", "size": ["1", "2"]}
//	Sizes are destructive-size numbers, sent as numbers or numeric strings.
//	A single size prints as "D2", a range as "D1-D2" (smallest to largest).
//
// # Normalization
//
// [Extract] maps a payload into a [ForecastSummary]. Absent optional fields fall
// back to fixed defaults instead of failing, so partially populated products
// still render. The summary is recomputed on every read and never stored.
package domain
