package choropleth

import "net/url"

// Census API geography attribute names as they appear in response headers.
const (
	GeoName   = "NAME"
	GeoState  = "state"
	GeoCounty = "county"
	GeoZCTA   = "zip code tabulation area"
)

// GeographyFilter selects every region of one level. For is the target geography
// and In, when set, the enclosing geography it is nested within.
type GeographyFilter struct {
	For string
	In  string
}

// BuildGeographyFilter returns the "all regions" filter for level.
func BuildGeographyFilter(level DetailLevel) (GeographyFilter, error) {
	switch level {
	case LevelState:
		return GeographyFilter{For: GeoState + ":*"}, nil
	case LevelCounty:
		return GeographyFilter{For: GeoCounty + ":*", In: GeoState + ":*"}, nil
	case LevelZIP:
		return GeographyFilter{For: GeoZCTA + ":*"}, nil
	default:
		return GeographyFilter{}, invalidArgument("build geography filter", "unknown detail level %q", level)
	}
}

// Values returns the filter as query parameters.
func (f GeographyFilter) Values() url.Values {
	v := url.Values{"for": {f.For}}
	if f.In != "" {
		v.Set("in", f.In)
	}
	return v
}

func (f GeographyFilter) String() string {
	s := "for=" + f.For
	if f.In != "" {
		s += "&in=" + f.In
	}
	return s
}
