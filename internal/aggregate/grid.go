package aggregate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// GridSize is the cell edge in degrees (about 5.5 km at the equator).
const GridSize = 0.05

// GridKey identifies one grid cell by the floor-divided coordinates.
type GridKey struct {
	Lat int
	Lon int
}

// KeyOf returns the cell containing (lat, lon).
func KeyOf(lat, lon float64) GridKey {
	return GridKey{
		Lat: int(math.Floor(lat / GridSize)),
		Lon: int(math.Floor(lon / GridSize)),
	}
}

// String encodes the key as "lat,lon".
func (k GridKey) String() string {
	return strconv.Itoa(k.Lat) + "," + strconv.Itoa(k.Lon)
}

// ParseGridKey is the inverse of GridKey.String.
func ParseGridKey(s string) (GridKey, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return GridKey{}, errors.Wrapf(ErrInvalidArgument, "grid key %q: expected \"lat,lon\"", s)
	}
	lat, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return GridKey{}, errors.Wrapf(ErrInvalidArgument, "grid key %q: bad latitude index", s)
	}
	lon, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return GridKey{}, errors.Wrapf(ErrInvalidArgument, "grid key %q: bad longitude index", s)
	}
	return GridKey{Lat: lat, Lon: lon}, nil
}

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Bounds returns the rectangle covered by the cell.
func (k GridKey) Bounds() Bounds {
	return Bounds{
		North: float64(k.Lat+1) * GridSize,
		South: float64(k.Lat) * GridSize,
		East:  float64(k.Lon+1) * GridSize,
		West:  float64(k.Lon) * GridSize,
	}
}

// Contains reports whether the point lies inside b, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

func (b Bounds) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.South, b.West, b.North, b.East)
}

// Group is the ordered member list of one grid cell.
type Group struct {
	Key    GridKey
	Alerts []Alert
}

// GroupByGrid partitions alerts by cell. Groups come back in the order their
// key was first seen and members keep input order. Every alert must have a
// location; run Validate first.
func GroupByGrid(alerts []Alert) []Group {
	index := make(map[GridKey]int)
	groups := make([]Group, 0)

	for _, a := range alerts {
		key := KeyOf(a.Location.Latitude, a.Location.Longitude)
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, Group{Key: key})
		}
		groups[pos].Alerts = append(groups[pos].Alerts, a)
	}
	return groups
}

// AlertsInGrid returns the members of a single cell in input order.
func AlertsInGrid(alerts []Alert, key GridKey) []Alert {
	out := make([]Alert, 0)
	for _, a := range alerts {
		if a.Location == nil {
			continue
		}
		if KeyOf(a.Location.Latitude, a.Location.Longitude) == key {
			out = append(out, a)
		}
	}
	return out
}
