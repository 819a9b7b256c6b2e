// internal/app/store/queries/areastats/areastats.go

// Package areastats computes per-area statistics over the cameras and
// sightings that geometrically intersect each area a user can see.
//
// Areas are scoped by the membership graph. Cameras and sightings are not,
// unless the aggregator runs with ScopeCommunity: under the default
// ScopeGlobal an area's statistics count every intersecting camera and
// sighting in the store, whoever shared them. Nothing is cached between
// calls.
package areastats

import (
	"context"
	"fmt"

	camerastore "github.com/dalemusser/fieldhub/internal/app/store/cameras"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/visible"
	sightingstore "github.com/dalemusser/fieldhub/internal/app/store/sightings"
	"github.com/dalemusser/fieldhub/internal/app/system/geo"
	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/dalemusser/fieldhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Scope selects which cameras and sightings count toward an area.
type Scope string

const (
	// ScopeGlobal counts every intersecting camera and sighting.
	ScopeGlobal Scope = "global"
	// ScopeCommunity counts only those visible to the requesting user.
	ScopeCommunity Scope = "community"
)

// ParseScope accepts "global", "community" or "" (global).
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeCommunity:
		return ScopeCommunity, nil
	}
	return "", fmt.Errorf("unknown stats scope %q (want global or community)", s)
}

// AreaStats is the statistics document for one area.
type AreaStats struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Geom         models.Geometry `json:"geom"`
	NumCameras   int64           `json:"numCameras"`
	NumSightings int             `json:"numSightings"`
	NumSpecies   int             `json:"numSpecies"`
	SpeciesDist  map[string]int  `json:"speciesDist"`
	ObserverDist map[string]int  `json:"observerDist"`
	HourBins     [24]int         `json:"hourBins"`
}

// AreaError names an area that was skipped and why.
type AreaError struct {
	Area    string `json:"area"`
	Message string `json:"message"`
}

// Result holds the statistics for every well-formed area plus the areas that
// had to be skipped.
type Result struct {
	Areas  []AreaStats `json:"areas"`
	Errors []AreaError `json:"errors"`
}

// AreaSource yields the areas visible to a user, setting aside stored area
// documents that cannot be read.
type AreaSource interface {
	ReadableAreas(ctx context.Context, uid string) ([]models.GeoArea, []*visible.DecodeError, error)
}

// CameraCounter counts cameras inside a geometry, optionally limited to ids.
type CameraCounter interface {
	CountIntersecting(ctx context.Context, geom models.Geometry, ids []primitive.ObjectID) (int64, error)
}

// SightingLister lists sightings inside a geometry, optionally limited to ids.
type SightingLister interface {
	ListIntersecting(ctx context.Context, geom models.Geometry, ids []primitive.ObjectID) ([]sightingstore.Observation, error)
}

// Scoper returns the ids of resources of a kind visible to a user. Only
// consulted under ScopeCommunity.
type Scoper interface {
	IDs(ctx context.Context, kind models.Kind, uid string) ([]primitive.ObjectID, error)
}

// Sources bundles the collaborators an Aggregator reads from.
type Sources struct {
	Areas     AreaSource
	Cameras   CameraCounter
	Sightings SightingLister
	Scoper    Scoper
}

type Aggregator struct {
	src   Sources
	scope Scope
	log   *zap.Logger
}

func New(src Sources, scope Scope, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scope == "" {
		scope = ScopeGlobal
	}
	return &Aggregator{src: src, scope: scope, log: logger}
}

// ForDatabase wires an Aggregator to the Mongo stores.
func ForDatabase(db *mongo.Database, scope Scope, logger *zap.Logger) *Aggregator {
	res := visible.New(db)
	return New(Sources{
		Areas:     res,
		Cameras:   camerastore.New(db),
		Sightings: sightingstore.New(db),
		Scoper:    res,
	}, scope, logger)
}

// Scope reports the policy the aggregator runs with.
func (a *Aggregator) Scope() Scope { return a.scope }

// Aggregate computes statistics for every area visible to uid.
//
// An area whose stored document does not decode, whose geometry is
// malformed, or which the store refuses to use as a query shape, is skipped
// and listed in Result.Errors; the other areas are still returned. Any other
// store fault aborts the whole call.
func (a *Aggregator) Aggregate(ctx context.Context, uid string) (Result, error) {
	areas, unreadable, err := a.src.Areas.ReadableAreas(ctx, uid)
	if err != nil {
		return Result{}, err
	}

	var camIDs, sightingIDs []primitive.ObjectID
	if a.scope == ScopeCommunity && len(areas) > 0 {
		if camIDs, err = a.src.Scoper.IDs(ctx, models.KindCamera, uid); err != nil {
			return Result{}, err
		}
		if sightingIDs, err = a.src.Scoper.IDs(ctx, models.KindSighting, uid); err != nil {
			return Result{}, err
		}
		// A nil slice means "unrestricted" to the stores.
		if camIDs == nil {
			camIDs = []primitive.ObjectID{}
		}
		if sightingIDs == nil {
			sightingIDs = []primitive.ObjectID{}
		}
	}

	res := Result{Areas: []AreaStats{}, Errors: []AreaError{}}
	for _, de := range unreadable {
		name := de.Name
		if name == "" {
			name = de.ID
		}
		a.log.Warn("skipping unreadable area document",
			zap.String("id", de.ID), zap.String("area", de.Name), zap.Error(de.Err))
		res.Errors = append(res.Errors, AreaError{Area: name, Message: "stored area could not be read"})
	}
	for _, area := range areas {
		st, err := a.one(ctx, area, camIDs, sightingIDs)
		if outcome.Is(err, outcome.KindMalformed) {
			a.log.Warn("skipping area with malformed geometry",
				zap.String("area", area.Name), zap.Error(err))
			res.Errors = append(res.Errors, AreaError{Area: area.Name, Message: outcome.Message(err)})
			continue
		}
		if err != nil {
			return Result{}, err
		}
		res.Areas = append(res.Areas, st)
	}
	return res, nil
}

func (a *Aggregator) one(ctx context.Context, area models.GeoArea, camIDs, sightingIDs []primitive.ObjectID) (AreaStats, error) {
	if err := geo.CheckStored(area.Geom); err != nil {
		return AreaStats{}, outcome.Malformed("areastats.area", "area %q has malformed geometry: %v", area.Name, err)
	}
	n, err := a.src.Cameras.CountIntersecting(ctx, area.Geom, camIDs)
	if err != nil {
		return AreaStats{}, err
	}
	obs, err := a.src.Sightings.ListIntersecting(ctx, area.Geom, sightingIDs)
	if err != nil {
		return AreaStats{}, err
	}
	st := Tally(obs)
	st.Name = area.Name
	st.Description = area.Description
	st.Geom = area.Geom
	st.NumCameras = n
	return st, nil
}

// Tally folds observations into species and observer distributions and a
// histogram of local hour of day.
func Tally(obs []sightingstore.Observation) AreaStats {
	st := AreaStats{
		SpeciesDist:  map[string]int{},
		ObserverDist: map[string]int{},
	}
	for _, o := range obs {
		st.SpeciesDist[o.Species]++
		st.ObserverDist[o.Observer]++
		st.HourBins[o.LocalHour()]++
	}
	st.NumSightings = len(obs)
	st.NumSpecies = len(st.SpeciesDist)
	return st
}
