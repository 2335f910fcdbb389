package regions

// Coordinate is a WGS84 latitude/longitude pair
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

const (
	// MaxPhysicalID is the highest id of a DNO region. Larger ids are
	// England/Scotland/Wales/GB aggregates.
	MaxPhysicalID = 14

	// DefaultZoom fits Great Britain in a typical viewport
	DefaultZoom = 6
)

var (
	// Fallback is returned for ids outside the catalog
	Fallback = Coordinate{Lat: 54.0, Lon: -2.0}

	// MapCenter is roughly the middle of Great Britain
	MapCenter = Coordinate{Lat: 54.5, Lon: -3.0}
)

type entry struct {
	name  string
	coord Coordinate
}

// Approximate centroids; illustrative, not authoritative.
var catalog = map[int]entry{
	1:  {"North Scotland", Coordinate{58.0, -4.5}},
	2:  {"South Scotland", Coordinate{55.5, -3.5}},
	3:  {"North West England", Coordinate{54.0, -2.5}},
	4:  {"North East England", Coordinate{55.0, -1.5}},
	5:  {"Yorkshire", Coordinate{54.0, -1.0}},
	6:  {"North Wales & Merseyside", Coordinate{53.0, -3.0}},
	7:  {"South Wales", Coordinate{51.5, -3.5}},
	8:  {"West Midlands", Coordinate{52.5, -2.0}},
	9:  {"East Midlands", Coordinate{52.8, -1.0}},
	10: {"East England", Coordinate{52.5, 0.5}},
	11: {"South West England", Coordinate{50.5, -3.5}},
	12: {"South England", Coordinate{51.0, -1.0}},
	13: {"London", Coordinate{51.5, -0.1}},
	14: {"South East England", Coordinate{51.2, 0.5}},
}

// CoordinatesFor returns the marker position for a region, or Fallback
func CoordinatesFor(regionID int) Coordinate {
	if e, ok := catalog[regionID]; ok {
		return e.coord
	}
	return Fallback
}

// Name returns the catalog name for a region, or "" if unknown
func Name(regionID int) string {
	return catalog[regionID].name
}

// IsPhysical reports whether regionID is a DNO region (1-14)
func IsPhysical(regionID int) bool {
	return regionID >= 1 && regionID <= MaxPhysicalID
}

// IDs returns the physical region ids in ascending order
func IDs() []int {
	ids := make([]int, 0, MaxPhysicalID)
	for id := 1; id <= MaxPhysicalID; id++ {
		ids = append(ids, id)
	}
	return ids
}
