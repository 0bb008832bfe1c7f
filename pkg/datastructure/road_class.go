package datastructure

import (
	"fmt"
	"strings"

	"github.com/paulmach/osm"
)

// RoadClasses is a bit set of road classes of an intersection outlet.
type RoadClasses uint8

const (
	RoadClassToll RoadClasses = 1 << iota
	RoadClassRestricted
	RoadClassMotorway
	RoadClassFerry
	RoadClassTunnel
)

var roadClassNames = []struct {
	class RoadClasses
	name  string
}{
	{RoadClassToll, "toll"},
	{RoadClassRestricted, "restricted"},
	{RoadClassMotorway, "motorway"},
	{RoadClassFerry, "ferry"},
	{RoadClassTunnel, "tunnel"},
}

func (rc RoadClasses) Contains(other RoadClasses) bool {
	return rc&other == other
}

func (rc RoadClasses) With(other RoadClasses) RoadClasses {
	return rc | other
}

func (rc RoadClasses) Names() []string {
	names := make([]string, 0, len(roadClassNames))
	for _, n := range roadClassNames {
		if rc.Contains(n.class) {
			names = append(names, n.name)
		}
	}
	return names
}

func (rc RoadClasses) String() string {
	return strings.Join(rc.Names(), ",")
}

// ParseRoadClasses parses road class names like "tunnel" or "toll".
func ParseRoadClasses(names []string) (RoadClasses, error) {
	var rc RoadClasses
	for _, name := range names {
		found := false
		for _, n := range roadClassNames {
			if strings.EqualFold(strings.TrimSpace(name), n.name) {
				rc |= n.class
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown road class %q", name)
		}
	}
	return rc, nil
}

// RoadClassesFromTags derives road classes from osm way tags of an intersection outlet.
func RoadClassesFromTags(tags osm.Tags) RoadClasses {
	var rc RoadClasses

	switch tags.Find("tunnel") {
	case "yes", "building_passage", "avalanche_protector":
		rc |= RoadClassTunnel
	}
	if tags.Find("covered") == "yes" && tags.Find("layer") != "" && strings.HasPrefix(tags.Find("layer"), "-") {
		rc |= RoadClassTunnel
	}

	if tags.Find("toll") == "yes" {
		rc |= RoadClassToll
	}

	switch tags.Find("highway") {
	case "motorway", "motorway_link":
		rc |= RoadClassMotorway
	}

	if tags.Find("route") == "ferry" {
		rc |= RoadClassFerry
	}

	switch tags.Find("access") {
	case "no", "private", "destination":
		rc |= RoadClassRestricted
	}
	switch tags.Find("motor_vehicle") {
	case "no", "private":
		rc |= RoadClassRestricted
	}

	return rc
}
