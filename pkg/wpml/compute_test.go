package wpml

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

import (
	"area2waypoint/pkg/geo"
)

func path_length(r *Route) float64 {
	l := 0.0
	for i := 1; i < len(r.Waypoints); i++ {
		a, b := r.Waypoints[i-1], r.Waypoints[i]
		l += geo.Distance(a.Lat, a.Lon, b.Lat, b.Lon)
	}
	return l
}

func TestShotPointsEquator(t *testing.T) {
	m, err := ParseBytes([]byte(wpml_doc(WPMLNamespace, equator_folder("0", "100"))))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	shots, err := ShotPoints(m.Routes[0])
	if err != nil {
		t.Fatalf("ShotPoints: %v", err)
	}
	if len(shots) != 2 {
		t.Fatalf("got %d shots, want 2", len(shots))
	}
	for i, sp := range shots {
		want := float64(i+1) * 100
		d := geo.Distance(0, 0, sp.Lat, sp.Lon)
		if math.Abs(d-want) > 1e-3 {
			t.Errorf("shot %d is %.4fm from the start, want %v", i, d, want)
		}
		if sp.Along != want {
			t.Errorf("shot %d along = %v, want %v", i, sp.Along, want)
		}
		if sp.RelAlt != 50 || sp.Lat != 0 {
			t.Errorf("shot %d = %+v", i, sp)
		}
		if sp.GimbalPitch != OrthoPitch || math.Abs(sp.FlightYaw-90) > 1e-9 || sp.GimbalYaw != sp.FlightYaw {
			t.Errorf("shot %d attitude = %v %v %v", i, sp.GimbalPitch, sp.FlightYaw, sp.GimbalYaw)
		}
	}
}

func TestShotPointsCount(t *testing.T) {
	for _, d := range []float64{7, 30, 50, 100, 111.19, 150, 222, 500} {
		r := equator_route(1, d)
		shots, err := ShotPoints(r)
		if err != nil {
			t.Fatalf("D=%v: %v", d, err)
		}
		l := path_length(r)
		if want := int(math.Floor(l / d)); len(shots) != want {
			t.Errorf("D=%v: got %d shots, want floor(%.3f/%v) = %d", d, len(shots), l, d, want)
		}
		prev := 0.0
		for i, sp := range shots {
			if sp.Along <= prev {
				t.Errorf("D=%v: along not increasing at %d", d, i)
			}
			prev = sp.Along
			if sp.Lon < 0 || sp.Lon > 0.002 || sp.Lat != 0 {
				t.Errorf("D=%v: shot %d off the path: %+v", d, i, sp)
			}
		}
	}
}

func TestShotPointsExactEnd(t *testing.T) {
	// an end within Tolerance of 2·D still takes the second shot
	for _, slack := range []float64{0, 0.4 * Tolerance} {
		r := equator_route(0, 0)
		l := path_length(r)
		r.ActionGroups[0].Trigger.Distance = l/2 + slack
		shots, err := ShotPoints(r)
		if err != nil {
			t.Fatalf("ShotPoints: %v", err)
		}
		if len(shots) != 2 {
			t.Fatalf("slack %v: got %d shots, want 2", slack, len(shots))
		}
		if math.Abs(shots[1].Lon-0.002) > 1e-9 {
			t.Errorf("slack %v: last shot should sit on the final waypoint, got %v", slack, shots[1].Lon)
		}
	}
}

func TestShotPointsCorner(t *testing.T) {
	// east along the equator, then north while climbing from 50m to 70m
	r := equator_route(1, 75)
	r.Waypoints[2] = Waypoint{Index: 2, Lat: 0.001, Lon: 0.001, RelAlt: 70}
	leg := geo.Distance(0, 0, 0, 0.001)
	shots, err := ShotPoints(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(shots) != 2 {
		t.Fatalf("got %d shots, want 2", len(shots))
	}

	first := shots[0]
	if first.Lat != 0 || first.Lon <= 0 || first.Lon >= 0.001 || first.RelAlt != 50 {
		t.Errorf("first shot should be on the east leg: %+v", first)
	}
	if math.Abs(first.FlightYaw-90) > 1e-6 {
		t.Errorf("first shot yaw = %v, want 90", first.FlightYaw)
	}

	sp := shots[1]
	if sp.Lon != 0.001 || sp.Lat <= 0 || sp.Lat >= 0.001 {
		t.Errorf("second shot should be on the north leg: %+v", sp)
	}
	if d := geo.Distance(0, 0.001, sp.Lat, sp.Lon); math.Abs(d-(150-leg)) > 1e-3 {
		t.Errorf("second shot is %.4fm past the corner, want %.4f", d, 150-leg)
	}
	want := 50 + 20*(150-leg)/leg
	if sp.RelAlt <= 50 || sp.RelAlt >= 70 || math.Abs(sp.RelAlt-want) > 1e-3 {
		t.Errorf("second shot altitude = %v, want %v", sp.RelAlt, want)
	}
	if y := sp.FlightYaw; math.Min(y, 360-y) > 1e-6 || sp.GimbalYaw != y {
		t.Errorf("second shot yaw = %v/%v, want north", y, sp.GimbalYaw)
	}
}

func TestShotPointsShortPath(t *testing.T) {
	shots, err := ShotPoints(equator_route(0, 1000))
	if err != nil || len(shots) != 0 {
		t.Errorf("got %d shots, %v; want none", len(shots), err)
	}
}

func TestShotPointsIdempotent(t *testing.T) {
	r := equator_route(2, 17)
	a, err := ShotPoints(r)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := ShotPoints(r)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("results differ between runs")
	}
}

func TestShotPointsDegenerateSegment(t *testing.T) {
	r := equator_route(0, 100)
	want, _ := ShotPoints(r)
	r.Waypoints = []Waypoint{
		{Index: 0, Lat: 0, Lon: 0, RelAlt: 50},
		{Index: 1, Lat: 0, Lon: 0.001, RelAlt: 50},
		{Index: 2, Lat: 0, Lon: 0.001, RelAlt: 50},
		{Index: 3, Lat: 0, Lon: 0.002, RelAlt: 50},
	}
	r.ActionGroups[0].EndIndex = 3
	got, err := ShotPoints(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d shots, want %d", len(got), len(want))
	}
	for i := range got {
		if math.Abs(got[i].Lon-want[i].Lon) > 1e-12 {
			t.Errorf("shot %d lon %v, want %v", i, got[i].Lon, want[i].Lon)
		}
	}
}

func TestShotPointsDefaultPitch(t *testing.T) {
	for _, tt := range []struct {
		id    int
		pitch float64
	}{{0, -90}, {1, -40}, {3, -40}} {
		shots, err := ShotPoints(equator_route(tt.id, 100))
		if err != nil {
			t.Fatal(err)
		}
		for _, sp := range shots {
			if sp.GimbalPitch != tt.pitch || sp.WaylineID != tt.id {
				t.Errorf("wayline %d: pitch %v, want %v", tt.id, sp.GimbalPitch, tt.pitch)
			}
		}
	}
}

func TestShotPointsYaw(t *testing.T) {
	tests := []struct {
		name        string
		route       *float64
		waypoint    *float64
		rotate      *Action
		flight, gim float64
	}{
		{"segment bearing", nil, nil, nil, 90, 90},
		{"waypoint heading", nil, ptr(-30), nil, 330, 330},
		{"route heading wins", ptr(400), ptr(10), nil, 40, 40},
		{"gimbal yaw", nil, nil, &Action{Kind: ActionGimbalRotate, Yaw: ptr(15)}, 90, 15},
		{"gimbal pitch only", nil, nil, &Action{Kind: ActionGimbalRotate, Pitch: ptr(-45)}, 90, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := equator_route(1, 100)
			r.Heading = tt.route
			r.Waypoints[0].Heading = tt.waypoint
			r.Waypoints[1].Heading = tt.waypoint
			if tt.rotate != nil {
				r.ActionGroups[0].Actions = append(r.ActionGroups[0].Actions, *tt.rotate)
			}
			shots, err := ShotPoints(r)
			if err != nil {
				t.Fatal(err)
			}
			for _, sp := range shots {
				if math.Abs(sp.FlightYaw-tt.flight) > 1e-9 || math.Abs(sp.GimbalYaw-tt.gim) > 1e-9 {
					t.Errorf("yaw %v/%v, want %v/%v", sp.FlightYaw, sp.GimbalYaw, tt.flight, tt.gim)
				}
				want := ObliquePitch
				if tt.rotate != nil && tt.rotate.Pitch != nil {
					want = *tt.rotate.Pitch
				}
				if sp.GimbalPitch != want {
					t.Errorf("pitch %v, want %v", sp.GimbalPitch, want)
				}
			}
		})
	}
}

func TestShotPointsGroupSelection(t *testing.T) {
	r := equator_route(0, 100)
	r.ActionGroups = []ActionGroup{
		photo_group(0, 0, 1, 10),
		{ID: 1, StartIndex: 0, EndIndex: 2, Trigger: Trigger{Kind: TriggerMultipleDistance, Distance: 1, HasDistance: true}},
		photo_group(2, 0, 2, 100),
		photo_group(3, 1, 3, 50),
	}
	shots, err := ShotPoints(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(shots) != 2 {
		t.Errorf("got %d shots, want the 100m group's 2", len(shots))
	}

	r.ActionGroups = []ActionGroup{{ID: 0, Trigger: Trigger{Kind: TriggerOther, Type: "reachPoint"},
		Actions: []Action{{Kind: ActionCapture}}}}
	if shots, err := ShotPoints(r); err != nil || shots != nil {
		t.Errorf("no qualifying group: got %v, %v", shots, err)
	}
}

func TestShotPointsErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *Route)
		want  error
	}{
		{"zero distance", func(r *Route) { r.ActionGroups[0].Trigger.Distance = 0 }, ErrInvalidTrigger},
		{"negative distance", func(r *Route) { r.ActionGroups[0].Trigger.Distance = -5 }, ErrInvalidTrigger},
		{"nan distance", func(r *Route) { r.ActionGroups[0].Trigger.Distance = math.NaN() }, ErrInvalidTrigger},
		{"no distance", func(r *Route) { r.ActionGroups[0].Trigger.HasDistance = false }, ErrInvalidTrigger},
		{"too many shots", func(r *Route) { r.ActionGroups[0].Trigger.Distance = 1e-12 }, ErrInvalidTrigger},
		{"nan waypoint", func(r *Route) { r.Waypoints[1].Lon = math.NaN() }, ErrInvalidCoordinate},
		{"infinite waypoint", func(r *Route) { r.Waypoints[2].Lat = math.Inf(1) }, ErrInvalidCoordinate},
		{"range outside waypoints", func(r *Route) {
			r.ActionGroups[0].StartIndex = 5
			r.ActionGroups[0].EndIndex = 9
		}, ErrEmptyPath},
		{"single waypoint", func(r *Route) {
			r.Waypoints = r.Waypoints[:1]
			r.ActionGroups[0].EndIndex = 0
		}, ErrEmptyPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := equator_route(7, 100)
			tt.setup(r)
			shots, err := ShotPoints(r)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var re *RouteError
			if !errors.As(err, &re) || re.WaylineID != 7 {
				t.Errorf("error %v should carry wayline 7", err)
			}
			if shots != nil {
				t.Errorf("shots should be nil on error")
			}
		})
	}
}

func TestComputeAllOrder(t *testing.T) {
	var routes []*Route
	for i := range 12 {
		routes = append(routes, equator_route(i, float64(10+i)))
	}
	bad := equator_route(99, 0)
	routes = append(routes[:5], append([]*Route{bad}, routes[5:]...)...)

	for _, workers := range []int{0, 1, 4, 32} {
		res, err := ComputeAll(routes, nil, workers)
		if !errors.Is(err, ErrInvalidTrigger) {
			t.Errorf("workers=%d: error = %v", workers, err)
		}
		if len(res) != 12 {
			t.Fatalf("workers=%d: got %d results", workers, len(res))
		}
		for i, rs := range res {
			if rs.Route.WaylineID != i {
				t.Errorf("workers=%d: result %d is wayline %d", workers, i, rs.Route.WaylineID)
			}
			want, _ := ShotPoints(rs.Route)
			if !reflect.DeepEqual(rs.Shots, want) || rs.Overridden {
				t.Errorf("workers=%d: wayline %d shots differ", workers, i)
			}
		}
		errs := RouteErrors(err)
		var re *RouteError
		if len(errs) != 1 || !errors.As(errs[0], &re) || re.WaylineID != 99 {
			t.Errorf("workers=%d: route errors = %v", workers, errs)
		}
	}
}

func TestComputeAllOverride(t *testing.T) {
	r := equator_route(0, 40)
	computed, _ := ShotPoints(r)
	if len(computed) != 5 {
		t.Fatalf("fixture gives %d shots, want 5", len(computed))
	}
	rows := []OverrideRow{
		{Lat: 1, Lon: 2, RelAlt: 30, GimbalPitch: ptr(-60), GimbalYaw: ptr(10), FlightYaw: ptr(20)},
		{Lat: 1.5, Lon: 2.5, RelAlt: 35, GimbalPitch: ptr(-61), GimbalYaw: ptr(11), FlightYaw: ptr(21)},
	}
	res, err := ComputeAll([]*Route{r}, map[int][]OverrideRow{AnyRoute: rows}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || !res[0].Overridden || len(res[0].Shots) != 2 {
		t.Fatalf("result = %+v", res)
	}
	for i, sp := range res[0].Shots {
		row := rows[i]
		want := ShotPoint{Lat: row.Lat, Lon: row.Lon, RelAlt: row.RelAlt,
			GimbalPitch: *row.GimbalPitch, GimbalYaw: *row.GimbalYaw, FlightYaw: *row.FlightYaw}
		if sp != want {
			t.Errorf("shot %d = %+v, want %+v", i, sp, want)
		}
	}
}

func TestComputeAllOverrideBinding(t *testing.T) {
	routes := []*Route{equator_route(0, 100), equator_route(1, 100), equator_route(2, 100)}
	own := []OverrideRow{{Lat: 3, Lon: 3, RelAlt: 3}}
	shared := []OverrideRow{{Lat: 9, Lon: 9, RelAlt: 9}}

	res, err := ComputeAll(routes, map[int][]OverrideRow{AnyRoute: shared, 2: own}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !res[0].Overridden || res[1].Overridden || !res[2].Overridden {
		t.Errorf("overridden flags %v %v %v", res[0].Overridden, res[1].Overridden, res[2].Overridden)
	}
	if res[0].Shots[0].Lat != 9 || res[2].Shots[0].Lat != 3 {
		t.Errorf("rows bound to the wrong routes")
	}
	if len(res[1].Shots) != 2 {
		t.Errorf("route 1 should still be computed")
	}

	res, err = ComputeAll(routes, map[int][]OverrideRow{AnyRoute: shared, 0: own}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Shots[0].Lat != 3 {
		t.Errorf("an explicit key should win over AnyRoute")
	}

	res, err = ComputeAll(routes, map[int][]OverrideRow{7: own}, 0)
	if !errors.Is(err, ErrIncompleteOverride) {
		t.Errorf("error = %v, want ErrIncompleteOverride", err)
	}
	if len(res) != 3 {
		t.Errorf("the routes should still be computed")
	}
}

func TestOverrideShotsDefaults(t *testing.T) {
	r := equator_route(1, 100)
	shots := OverrideShots(r, []OverrideRow{{Lat: 1, Lon: 2, RelAlt: 3}})
	want := ShotPoint{Lat: 1, Lon: 2, RelAlt: 3, GimbalPitch: ObliquePitch,
		GimbalYaw: MissingYaw, FlightYaw: MissingYaw, WaylineID: 1}
	if len(shots) != 1 || shots[0] != want {
		t.Errorf("OverrideShots = %+v, want %+v", shots, want)
	}
}
