package models

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371

type Location struct {
	Lat float64 `json:"latitude" parquet:"name=lat,type=DOUBLE"`
	Lon float64 `json:"longitude" parquet:"name=lon,type=DOUBLE"`
}

// DistanceKm is the haversine distance between l and other.
func (l Location) DistanceKm(other Location) float64 {
	lat1Rad := l.Lat * math.Pi / 180
	lat2Rad := other.Lat * math.Pi / 180
	deltaLat := (other.Lat - l.Lat) * math.Pi / 180
	deltaLon := (other.Lon - l.Lon) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func (l Location) String() string {
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lon)
}

// Scan reads PostGIS text output, e.g. ST_AsText(location).
func (l *Location) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		_, err := fmt.Sscanf(string(v), "POINT(%f %f)", &l.Lon, &l.Lat)
		return err
	case string:
		_, err := fmt.Sscanf(v, "POINT(%f %f)", &l.Lon, &l.Lat)
		return err
	default:
		return fmt.Errorf("unsupported type for Location: %T", value)
	}
}
