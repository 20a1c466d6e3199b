package kmlgen

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

import (
	"area2waypoint/pkg/wpml"
)

import (
	kml "github.com/twpayne/go-kml"
)

func test_routes() []wpml.RouteShots {
	var rs []wpml.RouteShots
	for id := 0; id < 3; id++ {
		r := &wpml.Route{WaylineID: id, Speed: 5}
		for i := 0; i < 4; i++ {
			r.Waypoints = append(r.Waypoints, wpml.Waypoint{Index: i, Lat: 51 + float64(id)*0.001, Lon: -1 + float64(i)*0.001, RelAlt: 60})
		}
		var shots []wpml.ShotPoint
		for i := 0; i < 2; i++ {
			shots = append(shots, wpml.ShotPoint{Lat: 51, Lon: -1 + float64(i)*0.0005, RelAlt: 60,
				GimbalPitch: wpml.DefaultGimbalPitch(id), GimbalYaw: 90, FlightYaw: 90, WaylineID: id,
				Along: float64(i+1) * 35})
		}
		rs = append(rs, wpml.RouteShots{Route: r, Shots: shots, Overridden: id == 2})
	}
	return rs
}

func TestPreview(t *testing.T) {
	d := Preview("site", test_routes(), false)
	var buf bytes.Buffer
	if err := kml.KML(d).WriteIndent(&buf, "", "  "); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if n := strings.Count(out, "<Folder>"); n != 3 {
		t.Errorf("got %d folders, want 3", n)
	}
	for _, s := range []string{"Wayline 0 (ortho)", "Wayline 1 (oblique)", "Wayline 2 (oblique, metadata)",
		"#styleShot2", "Shot track", "Area path", "51.0000000 -0.9995000"} {
		if !strings.Contains(out, s) {
			t.Errorf("preview lacks %q", s)
		}
	}
}

func TestPreviewDms(t *testing.T) {
	d := Preview("site", test_routes()[:1], true)
	var buf bytes.Buffer
	if err := kml.KML(d).WriteIndent(&buf, "", "  "); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "51°00") {
		t.Errorf("DMS position missing")
	}
}

func TestSourcePath(t *testing.T) {
	// collinear points reduce to the end points
	r := &wpml.Route{}
	for i := 0; i < 5; i++ {
		r.Waypoints = append(r.Waypoints, wpml.Waypoint{Lat: 0, Lon: float64(i) * 0.001, RelAlt: 50})
	}
	p := source_path(r)
	if len(p) < 2 || len(p) > 4 || p[0].Lon != 0 || p[len(p)-1].Lon != 0.004 {
		t.Errorf("source path = %+v", p)
	}
	if p := source_path(&wpml.Route{}); len(p) != 0 {
		t.Errorf("empty route path = %+v", p)
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	d := Preview("site", test_routes(), false)

	kfn := filepath.Join(dir, "p.kml")
	if err := Write(kfn, d); err != nil {
		t.Fatal(err)
	}
	dat, err := os.ReadFile(kfn)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(dat, []byte("<kml")) {
		t.Errorf("%s is not KML", kfn)
	}

	zfn := filepath.Join(dir, "p.kmz")
	if err := Write(zfn, d); err != nil {
		t.Fatal(err)
	}
	dat, err = os.ReadFile(zfn)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(dat, []byte("PK")) {
		t.Errorf("%s is not a zip archive", zfn)
	}

	if err := Write(filepath.Join(dir, "no", "such", "p.kml"), d); err == nil {
		t.Errorf("write to a missing directory should fail")
	}
}
