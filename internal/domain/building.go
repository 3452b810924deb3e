package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Building maps the buildings table. Coordinates are stored as a JSONB blob.
type Building struct {
	ID          int64       `db:"id" json:"id"`
	Address     string      `db:"address" json:"address"`
	Coordinates Coordinates `db:"coordinates" json:"coordinates"`
}

// Coordinates is a WGS84 lat/lon pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Value implements driver.Valuer; the column is JSONB.
func (c Coordinates) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *Coordinates) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = Coordinates{}
		return nil
	default:
		return fmt.Errorf("coordinates: unsupported scan type %T", src)
	}
}

// BoundingBox is an inclusive lat/lon rectangle.
type BoundingBox struct {
	LatMin float64
	LonMin float64
	LatMax float64
	LonMax float64
}

// Contains reports whether c lies inside the box, edges included.
func (b BoundingBox) Contains(c Coordinates) bool {
	return b.LatMin <= c.Lat && c.Lat <= b.LatMax &&
		b.LonMin <= c.Lon && c.Lon <= b.LonMax
}
