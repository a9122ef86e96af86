package domain

import "time"

// ForecastSavedEvent announces that a zone's forecast was written to the store.
// Key returns the message key; events for one zone share a key so consumers see
// them in order.
type ForecastSavedEvent struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	CenterSlug string    `json:"center"`
	ZoneSlug   string    `json:"zone"`
	Date       string    `json:"date"` // YYYY-MM-DD the payload is filed under
	Path       string    `json:"path"`
	SavedAt    time.Time `json:"saved_at"`
}

// Key is "{center}/{zone}".
func (e ForecastSavedEvent) Key() string {
	return e.CenterSlug + "/" + e.ZoneSlug
}
