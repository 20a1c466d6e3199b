package kmz

import (
	"math"
	"strconv"
	"strings"
	"time"
)

import (
	"area2waypoint/pkg/geo"
	"area2waypoint/pkg/wpml"
)

import (
	"github.com/beevik/etree"
)

// Values the flight app expects when the source mission left them out.
var (
	mission_defaults = []wpml.ConfigEntry{
		{Key: "flyToWaylineMode", Value: "safely"},
		{Key: "finishAction", Value: "goHome"},
		{Key: "exitOnRCLost", Value: "executeLostAction"},
		{Key: "executeRCLostAction", Value: "goBack"},
		{Key: "takeOffSecurityHeight", Value: "20"},
		{Key: "globalTransitionalSpeed", Value: "15"},
	}
	drone_defaults = []wpml.ConfigEntry{
		{Key: "droneEnumValue", Value: "67"},
		{Key: "droneSubEnumValue", Value: "0"},
	}
	payload_defaults = []wpml.ConfigEntry{
		{Key: "payloadEnumValue", Value: "53"},
		{Key: "payloadSubEnumValue", Value: "2"},
		{Key: "payloadPositionIndex", Value: "0"},
	}
)

const (
	oriented_camera_type = "53"
	turn_mode            = "toPointAndStopWithDiscontinuityCurvature"
)

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func angle(v float64) string {
	return strconv.Itoa(int(math.Round(v)))
}

func heading(v float64) string {
	return angle(geo.SignedHeading(v))
}

func add(el *etree.Element, tag string, text string) *etree.Element {
	c := el.CreateElement("wpml:" + tag)
	c.SetText(text)
	return c
}

func new_document() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	k := doc.CreateElement("kml")
	k.CreateAttr("xmlns", wpml.KMLNamespace)
	k.CreateAttr("xmlns:wpml", wpml.WPMLNamespace)
	return doc, k.CreateElement("Document")
}

func with_defaults(have, defs []wpml.ConfigEntry) []wpml.ConfigEntry {
	out := append([]wpml.ConfigEntry(nil), have...)
	for _, d := range defs {
		found := false
		for _, h := range have {
			if h.Key == d.Key {
				found = true
				break
			}
		}
		if !found {
			out = append(out, d)
		}
	}
	return out
}

func mission_config(d *etree.Element, mc wpml.MissionConfig) {
	el := d.CreateElement("wpml:missionConfig")
	for _, e := range with_defaults(mc.Entries, mission_defaults) {
		add(el, e.Key, e.Value)
	}
	di := el.CreateElement("wpml:droneInfo")
	for _, e := range with_defaults(mc.DroneInfo, drone_defaults) {
		add(di, e.Key, e.Value)
	}
	pi := el.CreateElement("wpml:payloadInfo")
	for _, e := range with_defaults(mc.PayloadInfo, payload_defaults) {
		add(pi, e.Key, e.Value)
	}
}

func coordinates(pm *etree.Element, sp wpml.ShotPoint) {
	pt := pm.CreateElement("Point")
	pt.CreateElement("coordinates").SetText(ftoa(sp.Lon) + "," + ftoa(sp.Lat))
}

func heading_param(el *etree.Element, tag string, deg string) {
	hp := el.CreateElement("wpml:" + tag)
	add(hp, "waypointHeadingMode", "followWayline")
	if deg != "" {
		add(hp, "waypointHeadingAngle", deg)
	}
	add(hp, "waypointPoiPoint", "0.000000,0.000000,0.000000")
	add(hp, "waypointHeadingAngleEnable", "0")
	add(hp, "waypointHeadingPathMode", "followBadArc")
	add(hp, "waypointHeadingPoiIndex", "0")
}

func turn_param(el *etree.Element, tag string) {
	tp := el.CreateElement("wpml:" + tag)
	add(tp, "waypointTurnMode", turn_mode)
	add(tp, "waypointTurnDampingDist", "0")
}

func shoot_group(pm *etree.Element, id int, wp wpml.OutputWaypoint) {
	ag := pm.CreateElement("wpml:actionGroup")
	add(ag, "actionGroupId", strconv.Itoa(id))
	add(ag, "actionGroupStartIndex", strconv.Itoa(wp.Index))
	add(ag, "actionGroupEndIndex", strconv.Itoa(wp.Index))
	add(ag, "actionGroupMode", "sequence")
	tr := ag.CreateElement("wpml:actionTrigger")
	add(tr, "actionTriggerType", "reachPoint")
	for _, a := range wp.Actions {
		oriented_shoot(ag, a)
	}
}

func oriented_shoot(ag *etree.Element, a wpml.OrientedShoot) {
	ae := ag.CreateElement("wpml:action")
	add(ae, "actionId", strconv.Itoa(a.ActionID))
	add(ae, "actionActuatorFunc", "orientedShoot")
	p := ae.CreateElement("wpml:actionActuatorFuncParam")
	add(p, "gimbalPitchRotateAngle", angle(a.GimbalPitch))
	add(p, "gimbalRollRotateAngle", "0")
	add(p, "gimbalYawRotateAngle", heading(a.GimbalYaw))
	add(p, "focusX", "0")
	add(p, "focusY", "0")
	add(p, "focusRegionWidth", "0")
	add(p, "focusRegionHeight", "0")
	add(p, "focalLength", ftoa(a.FocalLength))
	add(p, "aircraftHeading", heading(a.Heading))
	add(p, "accurateFrameValid", "0")
	add(p, "payloadPositionIndex", "0")
	add(p, "useGlobalPayloadLensIndex", "0")
	add(p, "payloadLensIndex", a.Lens)
	add(p, "targetAngle", "0")
	add(p, "actionUUID", a.UUID)
	add(p, "imageWidth", "0")
	add(p, "imageHeight", "0")
	add(p, "AFPos", "0")
	add(p, "gimbalPort", "0")
	add(p, "orientedCameraType", oriented_camera_type)
	add(p, "orientedFilePath", a.UUID)
	add(p, "orientedFileMD5", "")
	add(p, "orientedFileSize", "0")
	add(p, "orientedPhotoMode", "normalPhoto")
}

// EncodeTemplate builds wpmz/template.kml. The flight app only edits one
// template, so it describes the first route; the wayline file carries all
// of them.
func EncodeTemplate(om *wpml.OutputMission, now time.Time) *etree.Document {
	doc, d := new_document()
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	add(d, "author", "area2waypoint")
	add(d, "createTime", ms)
	add(d, "updateTime", ms)
	mission_config(d, om.Config)

	f := d.CreateElement("Folder")
	add(f, "templateType", "waypoint")
	add(f, "templateId", "0")
	cs := f.CreateElement("wpml:waylineCoordinateSysParam")
	add(cs, "coordinateMode", "WGS84")
	add(cs, "heightMode", om.HeightMode)
	add(cs, "positioningType", "GPS")

	var r wpml.OutputRoute
	if len(om.Routes) > 0 {
		r = om.Routes[0]
	}
	speed := r.Speed
	if speed <= 0 {
		speed = 1
	}
	add(f, "autoFlightSpeed", ftoa(speed))
	height := 0.0
	if len(r.Waypoints) > 0 {
		height = r.Waypoints[0].Shot.RelAlt
	}
	add(f, "globalHeight", ftoa(height))
	add(f, "caliFlightEnable", "0")
	add(f, "gimbalPitchMode", "usePointSetting")
	heading_param(f, "globalWaypointHeadingParam", "")
	add(f, "globalWaypointTurnMode", turn_mode)
	add(f, "globalUseStraightLine", "1")

	for i, wp := range r.Waypoints {
		pm := f.CreateElement("Placemark")
		coordinates(pm, wp.Shot)
		add(pm, "index", strconv.Itoa(wp.Index))
		add(pm, "ellipsoidHeight", ftoa(wp.Shot.RelAlt))
		add(pm, "height", ftoa(wp.Shot.RelAlt))
		add(pm, "useGlobalHeight", "0")
		add(pm, "useGlobalSpeed", "1")
		add(pm, "useGlobalHeadingParam", "1")
		add(pm, "useGlobalTurnParam", "1")
		add(pm, "useStraightLine", "1")
		add(pm, "gimbalPitchAngle", angle(wp.Shot.GimbalPitch))
		shoot_group(pm, i, wp)
		add(pm, "isRisky", "0")
	}

	pp := f.CreateElement("wpml:payloadParam")
	add(pp, "payloadPositionIndex", "0")
	add(pp, "meteringMode", "average")
	add(pp, "dewarpingEnable", "0")
	add(pp, "returnMode", "singleReturnStrongest")
	add(pp, "samplingRate", "240000")
	add(pp, "scanningMode", "nonRepetitive")
	add(pp, "modelColoringEnable", "0")
	add(pp, "imageFormat", strings.Join(om.Lenses, ","))
	return doc
}

// EncodeWaylines builds wpmz/waylines.wpml with one Folder per route.
func EncodeWaylines(om *wpml.OutputMission) *etree.Document {
	doc, d := new_document()
	mission_config(d, om.Config)
	for _, r := range om.Routes {
		f := d.CreateElement("Folder")
		add(f, "templateId", strconv.Itoa(r.TemplateID))
		add(f, "executeHeightMode", om.HeightMode)
		add(f, "waylineId", strconv.Itoa(r.WaylineID))
		add(f, "distance", ftoa(math.Round(r.Distance*10)/10))
		add(f, "duration", ftoa(math.Round(r.Duration*10)/10))
		add(f, "autoFlightSpeed", ftoa(r.Speed))
		for i, wp := range r.Waypoints {
			pm := f.CreateElement("Placemark")
			coordinates(pm, wp.Shot)
			add(pm, "index", strconv.Itoa(wp.Index))
			add(pm, "executeHeight", ftoa(wp.Shot.RelAlt))
			add(pm, "waypointSpeed", ftoa(r.Speed))
			heading_param(pm, "waypointHeadingParam", heading(wp.Shot.FlightYaw))
			turn_param(pm, "waypointTurnParam")
			add(pm, "useStraightLine", "1")
			shoot_group(pm, i, wp)
			gh := pm.CreateElement("wpml:waypointGimbalHeadingParam")
			add(gh, "waypointGimbalPitchAngle", "0")
			add(gh, "waypointGimbalYawAngle", "0")
			add(pm, "isRisky", "0")
			add(pm, "waypointWorkType", "0")
		}
	}
	return doc
}
