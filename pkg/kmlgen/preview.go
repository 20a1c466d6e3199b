package kmlgen

import (
	"fmt"
	"image/color"
	"os"
	"strings"
)

import (
	"area2waypoint/pkg/geo"
	"area2waypoint/pkg/wpml"
)

import (
	"github.com/deet/simpleline"
	"github.com/mazznoer/colorgrad"
	kml "github.com/twpayne/go-kml"
	"github.com/twpayne/go-kml/icon"
	kmz "github.com/twpayne/go-kmz"
)

const (
	// length of the camera direction marker, metres
	ray_length = 5.0
	// RDP tolerance for the source path, degrees
	path_epsilon = 1e-6
)

var balloon = kml.BalloonStyle(kml.BgColor(color.RGBA{R: 0xde, G: 0xde, B: 0xde, A: 0x40}),
	kml.Text(`<b><font size="+2">$[name]</font></b><br/><br/>$[description]<br/>`))

func route_colour(grad colorgrad.Gradient, i, n int) color.RGBA {
	t := 1.0
	if n > 1 {
		t = float64(i) / float64(n-1)
	}
	r, g, b, a := grad.At(t).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func route_styles(n int, c color.RGBA) []kml.Element {
	faded := c
	faded.A = 0x80
	return []kml.Element{
		kml.SharedStyle(
			fmt.Sprintf("styleShot%d", n),
			kml.IconStyle(
				kml.Scale(0.6),
				kml.Color(c),
				kml.Icon(
					kml.Href(icon.PaddleHref("wht-circle")),
				),
			),
			balloon,
		),
		kml.SharedStyle(
			fmt.Sprintf("styleTrack%d", n),
			kml.LineStyle(
				kml.Width(2.0),
				kml.Color(c),
			),
		),
		kml.SharedStyle(
			fmt.Sprintf("styleArea%d", n),
			kml.LineStyle(
				kml.Width(4.0),
				kml.Color(faded),
			),
		),
		kml.SharedStyle(
			fmt.Sprintf("styleRay%d", n),
			kml.LineStyle(
				kml.Width(1.0),
				kml.Color(c),
			),
		),
	}
}

// simplified path of the source waypoints; the whole path if RDP fails
func source_path(r *wpml.Route) []kml.Coordinate {
	points := []simpleline.Point{}
	for _, w := range r.Waypoints {
		pt := simpleline.Point3d{X: w.Lon, Y: w.Lat, Z: w.RelAlt}
		points = append(points, &pt)
	}
	res := points
	if len(points) > 2 {
		if s, err := simpleline.RDP(points, path_epsilon, simpleline.Euclidean, true); err == nil {
			res = s
		}
	}
	coords := make([]kml.Coordinate, 0, len(res))
	for _, p := range res {
		v := p.Vector()
		coords = append(coords, kml.Coordinate{Lon: v[0], Lat: v[1], Alt: v[2]})
	}
	return coords
}

func shot_description(sp wpml.ShotPoint, dms bool) string {
	return fmt.Sprintf("Position: %s<br/>Altitude: %.1fm<br/>Gimbal pitch: %s<br/>Gimbal yaw: %s<br/>Heading: %s<br/>Along: %.1fm<br/>",
		geo.PositionFormat(sp.Lat, sp.Lon, dms), sp.RelAlt,
		geo.AngleFormat(sp.GimbalPitch), geo.AngleFormat(sp.GimbalYaw),
		geo.AngleFormat(sp.FlightYaw), sp.Along)
}

func route_name(rs wpml.RouteShots) string {
	kind := "oblique"
	if rs.Route.IsOrtho() {
		kind = "ortho"
	}
	if rs.Overridden {
		kind += ", metadata"
	}
	return fmt.Sprintf("Wayline %d (%s)", rs.Route.WaylineID, kind)
}

func route_folder(n int, rs wpml.RouteShots, dms bool) *kml.CompoundElement {
	altmode := kml.AltitudeModeRelativeToGround
	f := kml.Folder(kml.Name(route_name(rs))).
		Add(kml.Description(fmt.Sprintf("%d shots", len(rs.Shots))))

	if src := source_path(rs.Route); len(src) > 1 {
		f.Add(kml.Placemark(
			kml.Name("Area path"),
			kml.StyleURL(fmt.Sprintf("#styleArea%d", n)),
			kml.LineString(
				kml.AltitudeMode(altmode),
				kml.Tessellate(false),
				kml.Coordinates(src...),
			),
		))
	}

	var track []kml.Coordinate
	var shots []kml.Element
	for i, sp := range rs.Shots {
		track = append(track, kml.Coordinate{Lon: sp.Lon, Lat: sp.Lat, Alt: sp.RelAlt})
		shots = append(shots, kml.Placemark(
			kml.Name(fmt.Sprintf("Shot %d", i+1)),
			kml.Description(shot_description(sp, dms)),
			kml.StyleURL(fmt.Sprintf("#styleShot%d", n)),
			kml.Point(
				kml.AltitudeMode(altmode),
				kml.Coordinates(kml.Coordinate{Lon: sp.Lon, Lat: sp.Lat, Alt: sp.RelAlt}),
			),
		))
		lat, lon := geo.Offset(sp.Lat, sp.Lon, ray_length, sp.GimbalYaw)
		shots = append(shots, kml.Placemark(
			kml.StyleURL(fmt.Sprintf("#styleRay%d", n)),
			kml.LineString(
				kml.AltitudeMode(altmode),
				kml.Coordinates(
					kml.Coordinate{Lon: sp.Lon, Lat: sp.Lat, Alt: sp.RelAlt},
					kml.Coordinate{Lon: lon, Lat: lat, Alt: sp.RelAlt},
				),
			),
		))
	}
	if len(track) > 1 {
		f.Add(kml.Placemark(
			kml.Name("Shot track"),
			kml.StyleURL(fmt.Sprintf("#styleTrack%d", n)),
			kml.LineString(
				kml.AltitudeMode(altmode),
				kml.Extrude(false),
				kml.Tessellate(false),
				kml.Coordinates(track...),
			),
		))
	}
	return f.Add(shots...)
}

// Preview returns a KML document with one folder per route: the source
// path, the shot track, a placemark per shot and a short line showing the
// gimbal yaw.
func Preview(name string, routes []wpml.RouteShots, dms bool) *kml.CompoundElement {
	grad := colorgrad.RdYlGn()
	d := kml.Document(kml.Name(name)).Add(kml.Open(true))
	for n := range routes {
		d.Add(route_styles(n, route_colour(grad, n, len(routes)))...)
	}
	for n, rs := range routes {
		d.Add(route_folder(n, rs, dms))
	}
	return d
}

// Write saves el as KMZ when fn ends in .kmz, otherwise as KML.
func Write(fn string, el kml.Element) error {
	w, err := os.Create(fn)
	if err != nil {
		return err
	}
	if strings.HasSuffix(strings.ToLower(fn), ".kmz") {
		z := kmz.NewKMZ(el)
		err = z.WriteIndent(w, "", "  ")
	} else {
		k := kml.KML(el)
		err = k.WriteIndent(w, "", "  ")
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}
