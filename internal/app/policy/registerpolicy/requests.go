package registerpolicy

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/geo"
	"github.com/dalemusser/fieldhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/app/system/validate"
	"github.com/dalemusser/fieldhub/internal/domain/models"
)

// CameraRequest is a camera placement as clients submit it. Next and
// DaysAhead schedule the first check the same way a status update does.
type CameraRequest struct {
	CameraID    string   `json:"camera_id" validate:"required,max=100"`
	Site        string   `json:"site" validate:"required,max=200"`
	Crds        string   `json:"crds" validate:"required,latlon"`
	Date        string   `json:"date" validate:"required,iso8601"`
	Next        string   `json:"next" validate:"max=100"`
	DaysAhead   int      `json:"daysAhead" validate:"gte=0"`
	Type        string   `json:"type" validate:"max=100"`
	Perc        string   `json:"perc" validate:"max=20"`
	Mem         string   `json:"mem" validate:"max=100"`
	Lock        string   `json:"lock" validate:"max=100"`
	Comments    string   `json:"comments" validate:"max=2000"`
	Communities []string `json:"communities" validate:"required,codes"`
}

// Camera validates r and converts it to a placement owned by owner.
func (r CameraRequest) Camera(owner string) (models.Camera, error) {
	if err := validate.Struct("cameras.register", r); err != nil {
		return models.Camera{}, err
	}
	pt, err := geo.ParseLatLon(r.Crds)
	if err != nil {
		return models.Camera{}, err
	}
	date, _, err := geo.ParseTimestamp(r.Date)
	if err != nil {
		return models.Camera{}, err
	}
	var status string
	if strings.TrimSpace(r.Next) != "" {
		status = statusText(StatusRequest{Next: r.Next, DaysAhead: r.DaysAhead})
	} else if r.DaysAhead != 0 {
		return models.Camera{}, outcome.Malformed("cameras.register", "next is required with daysAhead")
	}
	return models.Camera{
		CameraID: strings.TrimSpace(r.CameraID),
		Date:     date,
		Owner:    owner,
		Site:     htmlsanitize.Text(r.Site),
		Crds:     pt,
		Status:   status,
		Type:     htmlsanitize.Text(r.Type),
		Perc:     htmlsanitize.Text(r.Perc),
		Mem:      htmlsanitize.Text(r.Mem),
		Lock:     htmlsanitize.Text(r.Lock),
		Comments: htmlsanitize.Text(r.Comments),
	}, nil
}

// SightingRequest is a sighting as clients submit it. URL is filled in from
// the uploaded image when there is one.
type SightingRequest struct {
	Title       string   `json:"title" validate:"max=200"`
	Observer    string   `json:"observer" validate:"required,max=200"`
	Crds        string   `json:"crds" validate:"required,latlon"`
	Date        string   `json:"date" validate:"required,iso8601"`
	Species     string   `json:"species" validate:"required,max=200"`
	Number      int      `json:"number" validate:"min=1"`
	Type        string   `json:"type" validate:"max=100"`
	URL         string   `json:"url" validate:"omitempty,uri,max=2000"`
	Comments    string   `json:"comments" validate:"max=2000"`
	Communities []string `json:"communities" validate:"required,codes"`
}

// Sighting validates r and converts it to a sighting owned by owner. The
// submitted UTC offset is kept so the local hour survives storage in UTC.
func (r SightingRequest) Sighting(owner string) (models.Sighting, error) {
	if err := validate.Struct("sightings.register", r); err != nil {
		return models.Sighting{}, err
	}
	pt, err := geo.ParseLatLon(r.Crds)
	if err != nil {
		return models.Sighting{}, err
	}
	date, offset, err := geo.ParseTimestamp(r.Date)
	if err != nil {
		return models.Sighting{}, err
	}
	return models.Sighting{
		Title:     htmlsanitize.Text(r.Title),
		Owner:     owner,
		Observer:  htmlsanitize.Text(r.Observer),
		Crds:      pt,
		Date:      date,
		UTCOffset: offset,
		Species:   htmlsanitize.Text(r.Species),
		Number:    r.Number,
		Type:      htmlsanitize.Text(r.Type),
		URL:       r.URL,
		Comments:  htmlsanitize.Text(r.Comments),
	}, nil
}

// AreaRequest is an area as clients submit it: a GeoJSON FeatureCollection,
// Feature or bare geometry whose polygons are unioned into one shape.
type AreaRequest struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Geom        json.RawMessage `json:"geom" validate:"required"`
	Communities []string        `json:"communities" validate:"required,codes"`
}

// Area validates r and converts it to an area.
func (r AreaRequest) Area() (models.GeoArea, error) {
	if err := validate.Struct("geoareas.register", r); err != nil {
		return models.GeoArea{}, err
	}
	g, err := geo.ParseArea(r.Geom)
	if err != nil {
		return models.GeoArea{}, err
	}
	name := htmlsanitize.Text(r.Name)
	if name == "" {
		return models.GeoArea{}, outcome.Malformed("geoareas.register", "name is required")
	}
	return models.GeoArea{
		Name:        name,
		Description: htmlsanitize.Text(r.Description),
		Geom:        g,
	}, nil
}

// StatusRequest sets a camera's next check date and how many days ahead it
// was scheduled.
type StatusRequest struct {
	Next      string `json:"next" validate:"required,max=100"`
	DaysAhead int    `json:"daysAhead" validate:"gte=0"`
}

// ParseCameraKey splits "<camera_id>-<ISO date>" at the first '-'.
func ParseCameraKey(key string) (string, time.Time, error) {
	id, rest, ok := strings.Cut(key, "-")
	if !ok || id == "" || rest == "" {
		return "", time.Time{}, outcome.Malformed("cameras.key", "camera key must be <camera_id>-<date>, got %q", key)
	}
	date, _, err := geo.ParseTimestamp(rest)
	if err != nil {
		return "", time.Time{}, err
	}
	return id, date, nil
}

func validateStatus(req StatusRequest) error {
	return validate.Struct("cameras.update_status", req)
}

func statusText(req StatusRequest) string {
	return strings.TrimSpace(htmlsanitize.Text(req.Next)) + "," + strconv.Itoa(req.DaysAhead)
}
