package wpml

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

import (
	"area2waypoint/pkg/geo"
)

import (
	"golang.org/x/sync/errgroup"
)

// capture_group picks the qualifying group with the widest index range,
// the earliest one on a tie.
func capture_group(groups []ActionGroup) *ActionGroup {
	var best *ActionGroup
	for i := range groups {
		g := &groups[i]
		if !g.Qualifies() {
			continue
		}
		if best == nil || g.EndIndex-g.StartIndex > best.EndIndex-best.StartIndex {
			best = g
		}
	}
	return best
}

func walked_path(r *Route, g *ActionGroup) []Waypoint {
	if g.EndIndex <= g.StartIndex {
		return r.Waypoints
	}
	var p []Waypoint
	for _, w := range r.Waypoints {
		if w.Index >= g.StartIndex && w.Index <= g.EndIndex {
			p = append(p, w)
		}
	}
	return p
}

// ShotPoints places a shot every D metres along the route, D being the
// distance of its periodic capture group. The first shot is at D, the last
// at or before the end of the path. A shot k·D is taken when it lies within
// Tolerance of the path length L, so the count is floor((L+Tolerance)/D):
// floor(L/D), plus one when L falls just short of a multiple of D.
// A route with no capture group yields no shots and no error, one that would
// need more than MaxShots fails with ErrInvalidTrigger.
func ShotPoints(r *Route) ([]ShotPoint, error) {
	g := capture_group(r.ActionGroups)
	if g == nil {
		return nil, nil
	}
	if !g.Trigger.HasDistance || !(g.Trigger.Distance > 0) || math.IsInf(g.Trigger.Distance, 1) {
		return nil, route_error(r, fmt.Errorf("%w: group %d distance", ErrInvalidTrigger, g.ID))
	}
	dist := g.Trigger.Distance

	path := walked_path(r, g)
	if len(path) < 2 {
		return nil, route_error(r, fmt.Errorf("%w: %d waypoints between index %d and %d",
			ErrEmptyPath, len(path), g.StartIndex, g.EndIndex))
	}

	segs := make([]float64, len(path)-1)
	total := 0.0
	for i := range segs {
		a, b := path[i], path[i+1]
		segs[i] = geo.Distance(a.Lat, a.Lon, b.Lat, b.Lon)
		total += segs[i]
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, route_error(r, fmt.Errorf("%w: path length %v", ErrInvalidCoordinate, total))
	}
	if n := math.Floor((total + Tolerance) / dist); n > MaxShots {
		return nil, route_error(r, fmt.Errorf("%w: distance %gm gives %.0f shots over %.1fm",
			ErrInvalidTrigger, dist, n, total))
	}

	pitch := r.GimbalPitch
	var gyaw *float64
	if a := g.GimbalRotate(); a != nil {
		if a.Pitch != nil {
			pitch = *a.Pitch
		}
		gyaw = a.Yaw
	}

	shots := make([]ShotPoint, 0, int((total+Tolerance)/dist))
	i, acc := 0, 0.0
	for k := 1; ; k++ {
		t := float64(k) * dist
		if t > total+Tolerance {
			break
		}
		for i < len(segs) && (segs[i] <= Tolerance || acc+segs[i] < t-Tolerance) {
			acc += segs[i]
			i++
		}
		if i == len(segs) {
			break
		}
		a, b := path[i], path[i+1]
		f := geo.Clamp((t-acc)/segs[i], 0, 1)

		var yaw float64
		switch {
		case r.Heading != nil:
			yaw = *r.Heading
		case a.Heading != nil:
			yaw = *a.Heading
		default:
			yaw = geo.Bearing(a.Lat, a.Lon, b.Lat, b.Lon)
		}
		yaw = geo.NormaliseHeading(yaw)
		sp := ShotPoint{
			Lat:         geo.Lerp(a.Lat, b.Lat, f),
			Lon:         geo.Lerp(a.Lon, b.Lon, f),
			RelAlt:      geo.Lerp(a.RelAlt, b.RelAlt, f),
			GimbalPitch: pitch,
			GimbalYaw:   yaw,
			FlightYaw:   yaw,
			WaylineID:   r.WaylineID,
			Along:       t,
		}
		if gyaw != nil {
			sp.GimbalYaw = *gyaw
		}
		shots = append(shots, sp)
	}
	return shots, nil
}

// ComputeAll computes the shots of every route, replacing them with
// overrides where supplied. Results keep the input order and only include
// routes that succeeded; failures are joined into the error. A workers
// value <= 0 computes the routes one at a time.
func ComputeAll(routes []*Route, overrides map[int][]OverrideRow, workers int) ([]RouteShots, error) {
	bound, errs := bind_overrides(routes, overrides)

	results := make([]RouteShots, len(routes))
	failed := make([]error, len(routes))
	var eg errgroup.Group
	eg.SetLimit(max(workers, 1))
	for i, r := range routes {
		eg.Go(func() error {
			if rows, ok := bound[i]; ok {
				results[i] = RouteShots{Route: r, Shots: OverrideShots(r, rows), Overridden: true}
				return nil
			}
			shots, err := ShotPoints(r)
			if err != nil {
				failed[i] = err
				return nil
			}
			results[i] = RouteShots{Route: r, Shots: shots}
			return nil
		})
	}
	eg.Wait()

	var out []RouteShots
	for i := range routes {
		if failed[i] != nil {
			errs = append(errs, failed[i])
			continue
		}
		out = append(out, results[i])
	}
	return out, errors.Join(errs...)
}

// bind_overrides maps override rows to route positions. Rows keyed AnyRoute
// go to the first route unless it has rows of its own.
func bind_overrides(routes []*Route, overrides map[int][]OverrideRow) (map[int][]OverrideRow, []error) {
	bound := make(map[int][]OverrideRow)
	var errs []error
	for _, id := range slices.Sorted(maps.Keys(overrides)) {
		rows := overrides[id]
		if id == AnyRoute {
			continue
		}
		found := false
		for i, r := range routes {
			if r.WaylineID == id {
				bound[i] = rows
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, &RouteError{WaylineID: id, Folder: -1,
				Err: fmt.Errorf("%w: no route with this wayline id", ErrIncompleteOverride)})
		}
	}
	if rows, ok := overrides[AnyRoute]; ok {
		if len(routes) == 0 {
			errs = append(errs, fmt.Errorf("%w: no route to apply %d rows to", ErrIncompleteOverride, len(rows)))
		} else if _, ok := bound[0]; !ok {
			bound[0] = rows
		}
	}
	return bound, errs
}

// OverrideShots converts external rows into the route's shots. Absent
// pitch takes the route default, absent yaws are MissingYaw.
func OverrideShots(r *Route, rows []OverrideRow) []ShotPoint {
	shots := make([]ShotPoint, 0, len(rows))
	for _, row := range rows {
		sp := ShotPoint{
			Lat:         row.Lat,
			Lon:         row.Lon,
			RelAlt:      row.RelAlt,
			GimbalPitch: r.GimbalPitch,
			GimbalYaw:   MissingYaw,
			FlightYaw:   MissingYaw,
			WaylineID:   r.WaylineID,
		}
		if row.GimbalPitch != nil {
			sp.GimbalPitch = *row.GimbalPitch
		}
		if row.GimbalYaw != nil {
			sp.GimbalYaw = *row.GimbalYaw
		}
		if row.FlightYaw != nil {
			sp.FlightYaw = *row.FlightYaw
		}
		shots = append(shots, sp)
	}
	return shots
}
