package datastructure

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/geo"
	"github.com/paulmach/osm"
)

// maxStepGap. consecutive steps must join up within this distance (meter)
const maxStepGap = 5.0

type RouteDocument struct {
	PolylinePrecision int           `json:"polyline_precision" validate:"omitempty,oneof=5 6"`
	Legs              []LegDocument `json:"legs" validate:"required,min=1,dive"`
}

type LegDocument struct {
	Steps []StepDocument `json:"steps" validate:"required,min=1,dive"`
}

type StepDocument struct {
	Name string `json:"name"`
	// Geometry is an encoded polyline. Coordinates is used when Geometry is empty.
	Geometry      string                 `json:"geometry" validate:"required_without=Coordinates"`
	Coordinates   []geo.Coordinate       `json:"coordinates" validate:"omitempty,min=2"`
	Intersections []IntersectionDocument `json:"intersections" validate:"dive"`
}

type IntersectionDocument struct {
	Location geo.Coordinate    `json:"location"`
	Classes  []string          `json:"classes,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// ReadRoute decodes and validates a route document.
func ReadRoute(r io.Reader) (*Route, error) {
	var doc RouteDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}
	return doc.Build()
}

func ReadRouteFile(filename string) (*Route, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRoute(f)
}

// Build validates the document and builds the route.
func (doc *RouteDocument) Build() (*Route, error) {
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid route: %w", err)
	}

	precision := doc.PolylinePrecision
	if precision == 0 {
		precision = 6
	}

	var prevEnd *geo.Coordinate
	legs := make([]*RouteLeg, len(doc.Legs))
	for li, legDoc := range doc.Legs {
		steps := make([]*RouteStep, len(legDoc.Steps))
		for si, stepDoc := range legDoc.Steps {
			geometry := stepDoc.Coordinates
			if stepDoc.Geometry != "" {
				var err error
				geometry, err = geo.DecodePolyline(stepDoc.Geometry, precision)
				if err != nil {
					return nil, fmt.Errorf("leg %d step %d: %w", li, si, err)
				}
			}
			if len(geometry) < 2 {
				return nil, fmt.Errorf("leg %d step %d: geometry needs at least 2 points", li, si)
			}
			if prevEnd != nil {
				if gap := geo.DistanceMeter(*prevEnd, geometry[0]); gap > maxStepGap {
					return nil, fmt.Errorf("leg %d step %d: starts %.1f m away from the end of the previous step",
						li, si, gap)
				}
			}
			end := geometry[len(geometry)-1]
			prevEnd = &end

			intersections := make([]*Intersection, len(stepDoc.Intersections))
			for ii, inDoc := range stepDoc.Intersections {
				in, err := inDoc.build()
				if err != nil {
					return nil, fmt.Errorf("leg %d step %d intersection %d: %w", li, si, ii, err)
				}
				intersections[ii] = in
			}
			steps[si] = NewRouteStep(stepDoc.Name, geometry, intersections)
		}
		legs[li] = NewRouteLeg(steps)
	}

	return NewRoute(legs), nil
}

func (d IntersectionDocument) build() (*Intersection, error) {
	if d.Classes == nil && d.Tags == nil {
		return NewIntersection(d.Location, 0, false), nil
	}

	classes, err := ParseRoadClasses(d.Classes)
	if err != nil {
		return nil, err
	}
	if len(d.Tags) > 0 {
		classes |= RoadClassesFromTags(toOsmTags(d.Tags))
	}
	return NewIntersection(d.Location, classes, true), nil
}

func toOsmTags(tags map[string]string) osm.Tags {
	osmTags := make(osm.Tags, 0, len(tags))
	for k, v := range tags {
		osmTags = append(osmTags, osm.Tag{Key: k, Value: v})
	}
	return osmTags
}
