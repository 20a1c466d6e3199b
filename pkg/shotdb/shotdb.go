package shotdb

import (
	"fmt"
	"os"
	"time"
)

import (
	"area2waypoint/pkg/geo"
	"area2waypoint/pkg/wpml"
)

import (
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const SCHEMA = `CREATE TABLE IF NOT EXISTS meta (name text, created text, routes integer, shots integer);
CREATE TABLE IF NOT EXISTS routes (route_no integer NOT NULL PRIMARY KEY, wayline_id integer,
 template_id integer, overridden integer, shots integer, distance double precision);
CREATE TABLE IF NOT EXISTS shots (route_no integer, idx integer,
 lat double precision, lon double precision, rel_alt double precision,
 gimbal_pitch double precision, gimbal_yaw double precision, flight_yaw double precision,
 along double precision, PRIMARY KEY (route_no, idx))`

const IMETA = `insert into meta (name, created, routes, shots) values (?,?,?,?)`
const IROUTE = `insert into routes (route_no, wayline_id, template_id, overridden, shots, distance)
 values (:route_no, :wayline_id, :template_id, :overridden, :shots, :distance)`
const ISHOT = `insert into shots (route_no, idx, lat, lon, rel_alt, gimbal_pitch, gimbal_yaw, flight_yaw, along)
 values (:route_no, :idx, :lat, :lon, :rel_alt, :gimbal_pitch, :gimbal_yaw, :flight_yaw, :along)`

type route_row struct {
	RouteNo    int     `db:"route_no"`
	WaylineID  int     `db:"wayline_id"`
	TemplateID int     `db:"template_id"`
	Overridden bool    `db:"overridden"`
	Shots      int     `db:"shots"`
	Distance   float64 `db:"distance"`
}

type shot_row struct {
	RouteNo     int     `db:"route_no"`
	Idx         int     `db:"idx"`
	Lat         float64 `db:"lat"`
	Lon         float64 `db:"lon"`
	RelAlt      float64 `db:"rel_alt"`
	GimbalPitch float64 `db:"gimbal_pitch"`
	GimbalYaw   float64 `db:"gimbal_yaw"`
	FlightYaw   float64 `db:"flight_yaw"`
	Along       float64 `db:"along"`
}

func shot_distance(shots []wpml.ShotPoint) float64 {
	d := 0.0
	for i := 1; i < len(shots); i++ {
		d += geo.Distance(shots[i-1].Lat, shots[i-1].Lon, shots[i].Lat, shots[i].Lon)
	}
	return d
}

// Export replaces fn with a database of the computed shots, written in a
// single transaction. Routes are numbered in input order.
func Export(fn string, name string, routes []wpml.RouteShots) error {
	os.Remove(fn)
	db, err := sqlx.Open("sqlite", fn)
	if err != nil {
		return fmt.Errorf("shotdb: %w", err)
	}
	defer db.Close()

	if _, err = db.Exec(SCHEMA); err != nil {
		return fmt.Errorf("shotdb: tables: %w", err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("shotdb: begin: %w", err)
	}
	if err = write_shots(tx, name, routes); err != nil {
		tx.Rollback()
		return fmt.Errorf("shotdb: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("shotdb: commit: %w", err)
	}
	return nil
}

func write_shots(tx *sqlx.Tx, name string, routes []wpml.RouteShots) error {
	rstmt, err := tx.PrepareNamed(IROUTE)
	if err != nil {
		return err
	}
	defer rstmt.Close()
	sstmt, err := tx.PrepareNamed(ISHOT)
	if err != nil {
		return err
	}
	defer sstmt.Close()

	nshots := 0
	for n, rs := range routes {
		rr := route_row{
			RouteNo:    n,
			WaylineID:  rs.Route.WaylineID,
			TemplateID: rs.Route.TemplateID,
			Overridden: rs.Overridden,
			Shots:      len(rs.Shots),
			Distance:   shot_distance(rs.Shots),
		}
		if _, err := rstmt.Exec(rr); err != nil {
			return fmt.Errorf("route %d: %w", n, err)
		}
		for i, sp := range rs.Shots {
			sr := shot_row{
				RouteNo:     n,
				Idx:         i,
				Lat:         sp.Lat,
				Lon:         sp.Lon,
				RelAlt:      sp.RelAlt,
				GimbalPitch: sp.GimbalPitch,
				GimbalYaw:   sp.GimbalYaw,
				FlightYaw:   sp.FlightYaw,
				Along:       sp.Along,
			}
			if _, err := sstmt.Exec(sr); err != nil {
				return fmt.Errorf("route %d shot %d: %w", n, i, err)
			}
		}
		nshots += len(rs.Shots)
	}
	_, err = tx.Exec(IMETA, name, time.Now().UTC().Format(time.RFC3339), len(routes), nshots)
	return err
}

// Load reads back a database written by Export. The returned routes carry
// only their wayline and template ids.
func Load(fn string) (string, []wpml.RouteShots, error) {
	if _, err := os.Stat(fn); err != nil {
		return "", nil, err
	}
	db, err := sqlx.Open("sqlite", fn)
	if err != nil {
		return "", nil, err
	}
	defer db.Close()

	var name string
	if err = db.Get(&name, "SELECT name FROM meta LIMIT 1"); err != nil {
		return "", nil, fmt.Errorf("shotdb: meta: %w", err)
	}

	var rrows []route_row
	if err = db.Select(&rrows, "SELECT * FROM routes ORDER BY route_no"); err != nil {
		return "", nil, fmt.Errorf("shotdb: routes: %w", err)
	}
	var srows []shot_row
	if err = db.Select(&srows, "SELECT * FROM shots ORDER BY route_no, idx"); err != nil {
		return "", nil, fmt.Errorf("shotdb: shots: %w", err)
	}

	routes := make([]wpml.RouteShots, len(rrows))
	byno := make(map[int]int, len(rrows))
	for i, rr := range rrows {
		byno[rr.RouteNo] = i
		routes[i] = wpml.RouteShots{
			Route:      &wpml.Route{WaylineID: rr.WaylineID, TemplateID: rr.TemplateID},
			Shots:      make([]wpml.ShotPoint, 0, rr.Shots),
			Overridden: rr.Overridden,
		}
	}
	for _, sr := range srows {
		i, ok := byno[sr.RouteNo]
		if !ok {
			return "", nil, fmt.Errorf("shotdb: shot %d of unknown route %d", sr.Idx, sr.RouteNo)
		}
		routes[i].Shots = append(routes[i].Shots, wpml.ShotPoint{
			Lat:         sr.Lat,
			Lon:         sr.Lon,
			RelAlt:      sr.RelAlt,
			GimbalPitch: sr.GimbalPitch,
			GimbalYaw:   sr.GimbalYaw,
			FlightYaw:   sr.FlightYaw,
			WaylineID:   routes[i].Route.WaylineID,
			Along:       sr.Along,
		})
	}
	return name, routes, nil
}
