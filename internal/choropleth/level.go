// Package choropleth turns a fetched survey table into a region/value dataset and
// hands it to a renderer.
package choropleth

import "strings"

// DetailLevel is the geographic granularity of a map.
type DetailLevel string

const (
	LevelState  DetailLevel = "state"
	LevelCounty DetailLevel = "county"
	LevelZIP    DetailLevel = "zip"
)

// Levels lists every supported detail level.
var Levels = []DetailLevel{LevelState, LevelCounty, LevelZIP}

// Valid reports whether l is one of the supported levels.
func (l DetailLevel) Valid() bool {
	switch l {
	case LevelState, LevelCounty, LevelZIP:
		return true
	default:
		return false
	}
}

func (l DetailLevel) String() string { return string(l) }

// ParseDetailLevel converts "state", "county" or "zip" (any case) into a DetailLevel.
func ParseDetailLevel(s string) (DetailLevel, error) {
	l := DetailLevel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", invalidArgument("parse level", "unknown detail level %q (valid: state, county, zip)", s)
	}
	return l, nil
}
