// Package geo holds the boundary between the external (latitude, longitude)
// coordinate order and the stored GeoJSON [longitude, latitude] order.
package geo

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

const TypePoint = "Point"

// Point is a coordinate as clients send and receive it.
type Point struct {
	Lat float64 `json:"ltd"`
	Lng float64 `json:"lng"`
}

func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Orb returns p in storage order.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// Stored converts p to its persisted GeoJSON form.
func (p Point) Stored() StoredPoint {
	return StoredPoint{Type: TypePoint, Coordinates: p.Orb()}
}

// StoredPoint is the persisted GeoJSON point: coordinates are [lng, lat].
type StoredPoint struct {
	Type        string    `json:"type"`
	Coordinates orb.Point `json:"coordinates"`
}

// Point converts the stored form back to client order.
func (s StoredPoint) Point() Point {
	return FromOrb(s.Coordinates)
}

func FromOrb(o orb.Point) Point {
	return Point{Lat: o.Lat(), Lng: o.Lon()}
}

// Value stores the point as GeoJSON text.
func (s StoredPoint) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StoredPoint) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = StoredPoint{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("geo: cannot scan %T into StoredPoint", src)
	}
	if err := json.Unmarshal(raw, s); err != nil {
		return err
	}
	if s.Type != TypePoint {
		return errors.New("geo: stored geometry is not a Point")
	}
	return nil
}

// GormDataType keeps the column as jsonb so PostGIS can read it with
// ST_GeomFromGeoJSON.
func (StoredPoint) GormDataType() string {
	return "jsonb"
}

// DistanceMeters is the haversine distance between a and b.
func DistanceMeters(a, b Point) float64 {
	return orbgeo.DistanceHaversine(a.Orb(), b.Orb())
}

// KilometersToMeters converts a client radius to the stored query unit.
func KilometersToMeters(km float64) float64 {
	return km * 1000
}
