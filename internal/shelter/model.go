package shelter

import "time"

// FeedSource identifies the provenance of records produced by this package.
const FeedSource = "fdem_hurricane_shelters"

// Status is the operational state of a shelter.
type Status string

const (
	StatusOpen    Status = "OPEN"
	StatusClosed  Status = "CLOSED"
	StatusUnknown Status = "UNKNOWN"
)

// ParseStatus maps a raw feed value onto a Status. Only the literal strings
// "OPEN" and "CLOSED" are recognized; everything else (wrong case, wrong
// type, absent) is UNKNOWN.
func ParseStatus(v any) Status {
	s, ok := v.(string)
	if !ok {
		return StatusUnknown
	}
	switch s {
	case "OPEN":
		return StatusOpen
	case "CLOSED":
		return StatusClosed
	default:
		return StatusUnknown
	}
}

// Shelter is a normalized hurricane evacuation shelter record. Pointer
// fields are nil when the feed carried no usable value; Latitude and
// Longitude always come from the feature geometry, never from the property
// bag (the feed's property lat/lon columns are unreliable).
type Shelter struct {
	ShelterID            int       `json:"shelter_id"`
	Name                 string    `json:"name"`
	Address              string    `json:"address"`
	City                 string    `json:"city"`
	State                string    `json:"state"`
	Zip                  string    `json:"zip"`
	Status               Status    `json:"status"`
	Latitude             float64   `json:"latitude"`
	Longitude            float64   `json:"longitude"`
	TotalPopulation      *int      `json:"total_population,omitempty"`
	ADACompliant         *string   `json:"ada_compliant,omitempty"`
	WheelchairAccessible *string   `json:"wheelchair_accessible,omitempty"`
	PetAccommodations    *string   `json:"pet_accommodations,omitempty"`
	Source               string    `json:"source"`
	LastUpdated          time.Time `json:"last_updated"`
}
