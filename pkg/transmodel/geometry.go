package transmodel

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/timetabler/timetabler/pkg/geomath"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SRID for all stored geometry.
const SRID = 4326

// LineString is a WGS84 line stored as EWKT. PostGIS parses the EWKT literal
// on insert; the sqlite driver used in tests keeps it as text.
type LineString struct {
	Points []geomath.Point
}

func NewLineString(points []geomath.Point) *LineString {
	if len(points) < 2 {
		return nil
	}

	return &LineString{Points: points}
}

func (l LineString) GormDataType() string {
	return fmt.Sprintf("geometry(LineString,%d)", SRID)
}

func (LineString) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "sqlite" {
		return "text"
	}

	return fmt.Sprintf("geometry(LineString,%d)", SRID)
}

func (l LineString) Value() (driver.Value, error) {
	if len(l.Points) < 2 {
		return nil, nil
	}

	return l.EWKT(), nil
}

func (l LineString) EWKT() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SRID=%d;LINESTRING(", SRID)

	for i, point := range l.Points {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(point.Longitude, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(point.Latitude, 'f', -1, 64))
	}

	b.WriteByte(')')
	return b.String()
}

func (l *LineString) Scan(value any) error {
	var text string

	switch v := value.(type) {
	case nil:
		l.Points = nil
		return nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return fmt.Errorf("cannot scan %T into LineString", value)
	}

	points, err := ParseEWKTLineString(text)
	if err != nil {
		return err
	}

	l.Points = points
	return nil
}

// ParseEWKTLineString reads "SRID=4326;LINESTRING(lon lat,...)". The SRID
// prefix is optional on input.
func ParseEWKTLineString(text string) ([]geomath.Point, error) {
	if idx := strings.IndexByte(text, ';'); idx != -1 && strings.HasPrefix(text, "SRID=") {
		text = text[idx+1:]
	}

	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "LINESTRING(") || !strings.HasSuffix(text, ")") {
		return nil, fmt.Errorf("not a LINESTRING: %q", text)
	}

	inner := text[len("LINESTRING(") : len(text)-1]

	var points []geomath.Point
	for _, pair := range strings.Split(inner, ",") {
		fields := strings.Fields(strings.TrimSpace(pair))
		if len(fields) != 2 {
			return nil, fmt.Errorf("bad coordinate pair: %q", pair)
		}

		lon, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, err
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, err
		}

		points = append(points, geomath.Point{Longitude: lon, Latitude: lat})
	}

	return points, nil
}
