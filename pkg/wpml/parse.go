package wpml

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

import (
	"github.com/beevik/etree"
)

// ParseBytes decodes a waylines.wpml document and parses it.
func ParseBytes(dat []byte) (*Mission, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(dat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMission, err)
	}
	return Parse(doc)
}

// Parse extracts the routes of an area mission. Document level faults
// return a nil Mission. A route that cannot be read is dropped and its
// RouteError joined into the returned error, the remaining routes are
// still returned.
func Parse(doc *etree.Document) (*Mission, error) {
	root := doc.Root()
	if root == nil || root.Tag != "kml" {
		return nil, fmt.Errorf("%w: no kml root element", ErrMalformedMission)
	}
	d := child(root, false, "Document")
	if d == nil {
		return nil, fmt.Errorf("%w: no Document element", ErrMalformedMission)
	}

	m := &Mission{}
	if mc := child(d, true, "missionConfig"); mc != nil {
		m.Config.Entries = entries_of(mc)
		if di := child(mc, true, "droneInfo"); di != nil {
			m.Config.DroneInfo = entries_of(di)
		}
		if pi := child(mc, true, "payloadInfo"); pi != nil {
			m.Config.PayloadInfo = entries_of(pi)
		}
	}

	var errs []error
	n := 0
	for f := range children(d, false, "Folder") {
		r, err := read_folder(f, n)
		if err != nil {
			errs = append(errs, err)
		} else {
			m.Routes = append(m.Routes, r)
		}
		n++
	}
	return m, errors.Join(errs...)
}

func read_folder(f *etree.Element, pos int) (*Route, error) {
	s, ok := text_of(f, "waylineId")
	if !ok {
		return nil, &RouteError{WaylineID: -1, Folder: pos,
			Err: fmt.Errorf("%w: folder has no waylineId", ErrMalformedMission)}
	}
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return nil, &RouteError{WaylineID: -1, Folder: pos,
			Err: fmt.Errorf("%w: bad waylineId %q", ErrMalformedMission, s)}
	}

	r := &Route{WaylineID: id, Speed: 1, GimbalPitch: DefaultGimbalPitch(id), folder: pos}
	if r.TemplateID, _, err = int_of(f, "templateId"); err != nil {
		return nil, route_error(r, err)
	}
	r.HeightMode, _ = text_of(f, "executeHeightMode")
	if v, ok, err := float_of(f, "autoFlightSpeed"); err != nil {
		return nil, route_error(r, err)
	} else if ok && v > 0 {
		r.Speed = v
	}
	if r.Heading, err = read_heading(child(f, true, "globalWaypointHeadingParam")); err != nil {
		return nil, route_error(r, err)
	}

	for pm := range children(f, false, "Placemark") {
		wp, ok, err := read_placemark(pm, len(r.Waypoints))
		if err != nil {
			return nil, route_error(r, err)
		}
		if ok {
			r.Waypoints = append(r.Waypoints, wp)
		}
		for ag := range children(pm, true, "actionGroup") {
			g, err := read_action_group(ag)
			if err != nil {
				return nil, route_error(r, err)
			}
			r.ActionGroups = append(r.ActionGroups, g)
		}
	}
	slices.SortStableFunc(r.Waypoints, func(a, b Waypoint) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return r, nil
}

// Only these modes make the angle a fixed heading, followWayline and
// towardPOI derive it.
var fixed_heading_modes = map[string]bool{
	"fixed":            true,
	"manually":         true,
	"smoothTransition": true,
}

func read_heading(hp *etree.Element) (*float64, error) {
	if hp == nil {
		return nil, nil
	}
	mode, _ := text_of(hp, "waypointHeadingMode")
	enable, _ := text_of(hp, "waypointHeadingAngleEnable")
	angle, ok, err := float_of(hp, "waypointHeadingAngle")
	if err != nil {
		return nil, err
	}
	if ok && (fixed_heading_modes[mode] || enable == "1") {
		return &angle, nil
	}
	return nil, nil
}

func read_placemark(pm *etree.Element, n int) (Waypoint, bool, error) {
	wp := Waypoint{Index: n}
	coords := child(child(pm, false, "Point"), false, "coordinates")
	if coords == nil {
		return wp, false, nil
	}
	txt := strings.TrimSpace(coords.Text())
	if txt == "" {
		return wp, false, nil
	}
	parts := strings.Split(txt, ",")
	if len(parts) < 2 {
		return wp, false, fmt.Errorf("%w: coordinates %q", ErrInvalidCoordinate, txt)
	}
	var err error
	if wp.Lon, err = parse_float(parts[0]); err != nil || !(wp.Lon >= -180 && wp.Lon <= 180) {
		return wp, false, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinate, parts[0])
	}
	if wp.Lat, err = parse_float(parts[1]); err != nil || !(wp.Lat >= -90 && wp.Lat <= 90) {
		return wp, false, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinate, parts[1])
	}
	if len(parts) > 2 {
		if wp.RelAlt, err = parse_float(parts[2]); err != nil {
			return wp, false, fmt.Errorf("%w: altitude %q", ErrInvalidCoordinate, parts[2])
		}
	}

	if v, ok, err := int_of(pm, "index"); err != nil {
		return wp, false, err
	} else if ok {
		wp.Index = v
	}
	for _, tag := range []string{"executeHeight", "height"} {
		v, ok, err := float_of(pm, tag)
		if err != nil {
			return wp, false, err
		}
		if ok {
			wp.RelAlt = v
			break
		}
	}
	if wp.Speed, _, err = float_of(pm, "waypointSpeed"); err != nil {
		return wp, false, err
	}
	if wp.Heading, err = read_heading(child(pm, true, "waypointHeadingParam")); err != nil {
		return wp, false, err
	}
	return wp, true, nil
}

func read_action_group(ag *etree.Element) (ActionGroup, error) {
	g := ActionGroup{Mode: "sequence"}
	var err error
	if g.ID, _, err = int_of(ag, "actionGroupId"); err != nil {
		return g, err
	}
	if g.StartIndex, _, err = int_of(ag, "actionGroupStartIndex"); err != nil {
		return g, err
	}
	if g.EndIndex, _, err = int_of(ag, "actionGroupEndIndex"); err != nil {
		return g, err
	}
	if s, ok := text_of(ag, "actionGroupMode"); ok {
		g.Mode = s
	}

	if tt := child(ag, true, "actionTrigger"); tt != nil {
		g.Trigger.Type, _ = text_of(tt, "actionTriggerType")
		if g.Trigger.Type == "multipleDistance" {
			g.Trigger.Kind = TriggerMultipleDistance
		}
		// An unreadable distance is left unset and reported as an
		// invalid trigger if the group is ever used.
		if v, ok, err := float_of(tt, "actionTriggerParam"); err == nil && ok {
			g.Trigger.Distance = v
			g.Trigger.HasDistance = true
		}
	}

	for ae := range children(ag, true, "action") {
		a, err := read_action(ae)
		if err != nil {
			return g, err
		}
		g.Actions = append(g.Actions, a)
	}
	return g, nil
}

func read_action(ae *etree.Element) (Action, error) {
	var a Action
	var err error
	if a.ID, _, err = int_of(ae, "actionId"); err != nil {
		return a, err
	}
	a.Func, _ = text_of(ae, "actionActuatorFunc")
	param := child(ae, true, "actionActuatorFuncParam")
	switch a.Func {
	case "takePhoto", "orientedShoot":
		a.Kind = ActionCapture
		if s, ok := text_of(param, "payloadLensIndex"); ok {
			for _, l := range strings.Split(s, ",") {
				if l = strings.TrimSpace(l); l != "" {
					a.Lenses = append(a.Lenses, l)
				}
			}
		}
	case "gimbalRotate":
		a.Kind = ActionGimbalRotate
		if a.Pitch, err = gimbal_angle(param, "gimbalPitchRotateAngle", "gimbalPitchRotateEnable"); err != nil {
			return a, err
		}
		if a.Yaw, err = gimbal_angle(param, "gimbalYawRotateAngle", "gimbalYawRotateEnable"); err != nil {
			return a, err
		}
	default:
		a.Kind = ActionOther
	}
	return a, nil
}

// gimbal_angle returns the angle unless it is absent or explicitly disabled.
func gimbal_angle(param *etree.Element, tag, enable string) (*float64, error) {
	v, ok, err := float_of(param, tag)
	if err != nil || !ok {
		return nil, err
	}
	if s, ok := text_of(param, enable); ok && s == "0" {
		return nil, nil
	}
	return &v, nil
}
