// Package metacsv reads externally measured shot positions, for example
// exported from a previous flight's photo metadata, to replace computed
// shots.
package metacsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

import (
	"area2waypoint/pkg/wpml"
)

type columns struct {
	lat, lon, alt     int
	pitch, gyaw, fyaw int
	route             int
}

// first matching name wins
func find_column(hdr map[string]int, names ...string) int {
	for _, n := range names {
		if i, ok := hdr[n]; ok {
			return i
		}
	}
	return -1
}

func map_columns(rec []string) (columns, error) {
	hdr := make(map[string]int)
	for i, h := range rec {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := hdr[h]; !ok {
			hdr[h] = i
		}
	}
	c := columns{
		lat:   find_column(hdr, "lat"),
		lon:   find_column(hdr, "lon"),
		alt:   find_column(hdr, "rel_alt", "alt", "height"),
		pitch: find_column(hdr, "gimbal_pitch"),
		gyaw:  find_column(hdr, "gimbal_yaw"),
		fyaw:  find_column(hdr, "flight_yaw", "heading"),
		route: find_column(hdr, "wayline_id", "route"),
	}
	var missing []string
	if c.lat < 0 {
		missing = append(missing, "lat")
	}
	if c.lon < 0 {
		missing = append(missing, "lon")
	}
	if c.alt < 0 {
		missing = append(missing, "rel_alt")
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: missing column %s", wpml.ErrIncompleteOverride, strings.Join(missing, ", "))
	}
	return c, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// number parses a finite float
func number(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func required(rec []string, i int, name string, line int) (float64, error) {
	s := field(rec, i)
	if s == "" {
		return 0, fmt.Errorf("%w: line %d: empty %s", wpml.ErrIncompleteOverride, line, name)
	}
	v, ok := number(s)
	if !ok {
		return 0, fmt.Errorf("%w: line %d: %s %q", wpml.ErrInvalidCoordinate, line, name, s)
	}
	return v, nil
}

func optional(rec []string, i int, name string, line int) (*float64, error) {
	s := field(rec, i)
	if s == "" {
		return nil, nil
	}
	v, ok := number(s)
	if !ok {
		return nil, fmt.Errorf("%w: line %d: %s %q", wpml.ErrInvalidCoordinate, line, name, s)
	}
	return &v, nil
}

// Read returns the override rows keyed by wayline id. Rows that name no
// route are keyed wpml.AnyRoute.
func Read(r io.Reader) (map[int][]wpml.OverrideRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	hdr, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no header", wpml.ErrIncompleteOverride)
	}
	if err != nil {
		return nil, err
	}
	c, err := map_columns(hdr)
	if err != nil {
		return nil, err
	}

	rows := make(map[int][]wpml.OverrideRow)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}

		var row wpml.OverrideRow
		if row.Lat, err = required(rec, c.lat, "lat", line); err != nil {
			return nil, err
		}
		if row.Lon, err = required(rec, c.lon, "lon", line); err != nil {
			return nil, err
		}
		if row.Lat < -90 || row.Lat > 90 || row.Lon < -180 || row.Lon > 180 {
			return nil, fmt.Errorf("%w: line %d: %v,%v out of range", wpml.ErrInvalidCoordinate, line, row.Lat, row.Lon)
		}
		if row.RelAlt, err = required(rec, c.alt, "rel_alt", line); err != nil {
			return nil, err
		}
		if row.GimbalPitch, err = optional(rec, c.pitch, "gimbal_pitch", line); err != nil {
			return nil, err
		}
		if row.GimbalYaw, err = optional(rec, c.gyaw, "gimbal_yaw", line); err != nil {
			return nil, err
		}
		if row.FlightYaw, err = optional(rec, c.fyaw, "flight_yaw", line); err != nil {
			return nil, err
		}

		key := wpml.AnyRoute
		if s := field(rec, c.route); s != "" {
			id, err := strconv.Atoi(s)
			if err != nil || id < 0 {
				return nil, fmt.Errorf("%w: line %d: wayline id %q", wpml.ErrInvalidCoordinate, line, s)
			}
			key = id
		}
		rows[key] = append(rows[key], row)
	}
	return rows, nil
}

func ReadFile(fn string) (map[int][]wpml.OverrideRow, error) {
	fh, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	rows, err := Read(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return rows, nil
}
