package shelter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reliefops/shelterfeed/internal/fetcher"
)

// Sentinel errors for the two feed-level failure categories. JSON decode
// failures are propagated as wrapped encoding/json errors rather than
// classified here.
var (
	// ErrFetch means the transport call failed or returned a non-success
	// status. The wrapped message carries the HTTP status text.
	ErrFetch = eris.New("shelter feed fetch failed")

	// ErrInvalidFormat means the payload parsed as JSON but is not a GeoJSON
	// FeatureCollection with a features array.
	ErrInvalidFormat = eris.New("invalid GeoJSON response")
)

// feedFeature is one element of the FeatureCollection features array.
// Properties is a loose bag; the feed's schema drifts and most columns are
// optional.
type feedFeature struct {
	Geometry   *feedGeometry  `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// feedGeometry defers coordinate decoding so that non-Point geometries
// (whose coordinates are nested arrays) never fail the batch.
type feedGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Normalizer fetches the shelter feed and maps it into Shelter records.
// It holds no state between calls; concurrent use is fine.
type Normalizer struct {
	fetcher fetcher.Fetcher
	feedURL string
	now     func() time.Time
}

// NewNormalizer creates a Normalizer reading from feedURL.
func NewNormalizer(f fetcher.Fetcher, feedURL string) *Normalizer {
	return &Normalizer{
		fetcher: f,
		feedURL: feedURL,
		now:     time.Now,
	}
}

// queryURL builds the ArcGIS query: all records, all fields, with geometry,
// as GeoJSON.
func (n *Normalizer) queryURL() string {
	params := url.Values{
		"where":          {"1=1"},
		"outFields":      {"*"},
		"returnGeometry": {"true"},
		"f":              {"geojson"},
	}
	return n.feedURL + "?" + params.Encode()
}

// FetchAndNormalize issues one GET to the feed and returns the normalized
// records in feed order. Feed-level failures (transport, malformed JSON,
// missing features array) abort the call; individual features without a
// well-formed Point geometry are dropped silently, so a handful of bad rows
// never invalidates the batch. The upstream service is queried without
// paging; if it ever starts paginating this reads only the first page.
func (n *Normalizer) FetchAndNormalize(ctx context.Context) ([]Shelter, error) {
	body, err := n.fetcher.Download(ctx, n.queryURL())
	if err != nil {
		return nil, eris.Wrapf(ErrFetch, "shelter: %v", err)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(ErrFetch, "shelter: read response: %v", err)
	}

	var payload struct {
		Features json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		// Valid JSON of the wrong top-level shape (array, scalar) is a
		// format violation, not a parse failure.
		if json.Valid(data) {
			return nil, eris.Wrap(ErrInvalidFormat, "shelter: feed payload")
		}
		return nil, eris.Wrap(err, "shelter: decode response")
	}

	if !isJSONArray(payload.Features) {
		return nil, eris.Wrap(ErrInvalidFormat, "shelter: feed payload")
	}
	var rawFeatures []json.RawMessage
	if err := json.Unmarshal(payload.Features, &rawFeatures); err != nil {
		return nil, eris.Wrap(ErrInvalidFormat, "shelter: feed payload")
	}

	now := n.now().UTC()
	shelters := make([]Shelter, 0, len(rawFeatures))
	dropped := 0

	for _, raw := range rawFeatures {
		var ft feedFeature
		if err := json.Unmarshal(raw, &ft); err != nil {
			dropped++
			continue
		}
		if ft.Geometry == nil || ft.Geometry.Type != "Point" {
			dropped++
			continue
		}
		lon, lat, ok := pointCoords(ft.Geometry.Coordinates)
		if !ok {
			dropped++
			continue
		}
		shelters = append(shelters, newShelter(ft.Properties, lat, lon, now))
	}

	if dropped > 0 {
		zap.L().Debug("dropped features without valid point geometry",
			zap.Int("dropped", dropped),
			zap.Int("kept", len(shelters)),
		)
	}

	return shelters, nil
}

// isJSONArray reports whether raw is present and starts a JSON array.
// A missing key, null, or any non-array value fails the shape contract.
func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// pointCoords extracts a [lon, lat] pair. Anything other than exactly two
// JSON numbers is rejected.
func pointCoords(raw json.RawMessage) (lon, lat float64, ok bool) {
	var pair []json.Number
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return 0, 0, false
	}
	lon, err := pair[0].Float64()
	if err != nil {
		return 0, 0, false
	}
	lat, err = pair[1].Float64()
	if err != nil {
		return 0, 0, false
	}
	return lon, lat, true
}

// newShelter maps a feature property bag onto a Shelter. The geometry-derived
// coordinates always win over any latitude/longitude columns in the bag.
func newShelter(props map[string]any, lat, lon float64, now time.Time) Shelter {
	return Shelter{
		ShelterID:            intProp(props, "shelter_id"),
		Name:                 stringPropOr(props, "shelter_name", "Unknown Shelter"),
		Address:              stringPropOr(props, "address", ""),
		City:                 stringPropOr(props, "city", ""),
		State:                stringPropOr(props, "state", ""),
		Zip:                  stringPropOr(props, "zip", ""),
		Status:               ParseStatus(props["shelter_status"]),
		Latitude:             lat,
		Longitude:            lon,
		TotalPopulation:      numberProp(props, "total_population"),
		ADACompliant:         stringProp(props, "ada_compliant"),
		WheelchairAccessible: stringProp(props, "wheelchair_accessible"),
		PetAccommodations:    stringProp(props, "pet_accommodations_code"),
		Source:               FeedSource,
		LastUpdated:          now,
	}
}

// stringPropOr returns the string value for key, or def if absent or not a
// string.
func stringPropOr(props map[string]any, key, def string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return def
}

// stringProp returns the string value for key, or nil if absent or not a
// string.
func stringProp(props map[string]any, key string) *string {
	if s, ok := props[key].(string); ok {
		return &s
	}
	return nil
}

// numberProp returns the numeric value for key truncated to int, or nil if
// the value is absent or non-numeric. String digits are not coerced.
func numberProp(props map[string]any, key string) *int {
	if f, ok := props[key].(float64); ok {
		v := int(f)
		return &v
	}
	return nil
}

// intProp returns the numeric value for key as an int, or 0 if absent. The
// feed does not guarantee presence or uniqueness of ids and neither do we.
func intProp(props map[string]any, key string) int {
	if f, ok := props[key].(float64); ok {
		return int(f)
	}
	return 0
}
