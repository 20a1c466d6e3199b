package wpml

import (
	"fmt"
	"strings"
)

const doc_head = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2" xmlns:wpml="%s">
  <Document>
    <wpml:missionConfig>
      <wpml:flyToWaylineMode>safely</wpml:flyToWaylineMode>
      <wpml:finishAction>goHome</wpml:finishAction>
      <wpml:droneInfo>
        <wpml:droneEnumValue>77</wpml:droneEnumValue>
        <wpml:droneSubEnumValue>2</wpml:droneSubEnumValue>
      </wpml:droneInfo>
    </wpml:missionConfig>
`

const take_photo = `<wpml:action><wpml:actionId>0</wpml:actionId>` +
	`<wpml:actionActuatorFunc>takePhoto</wpml:actionActuatorFunc>` +
	`<wpml:actionActuatorFuncParam><wpml:payloadLensIndex>wide,ir</wpml:payloadLensIndex></wpml:actionActuatorFuncParam>` +
	`</wpml:action>`

func wpml_doc(ns string, folders ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, doc_head, ns)
	for _, f := range folders {
		sb.WriteString(f)
	}
	sb.WriteString("  </Document>\n</kml>\n")
	return sb.String()
}

func folder_xml(id string, body ...string) string {
	var sb strings.Builder
	sb.WriteString("<Folder><wpml:templateId>0</wpml:templateId>")
	sb.WriteString("<wpml:executeHeightMode>relativeToStartPoint</wpml:executeHeightMode>")
	if id != "" {
		fmt.Fprintf(&sb, "<wpml:waylineId>%s</wpml:waylineId>", id)
	}
	sb.WriteString("<wpml:autoFlightSpeed>10</wpml:autoFlightSpeed>")
	for _, b := range body {
		sb.WriteString(b)
	}
	sb.WriteString("</Folder>\n")
	return sb.String()
}

func placemark_xml(idx int, coords string, alt string, inner ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<Placemark><Point><coordinates>%s</coordinates></Point>", coords)
	fmt.Fprintf(&sb, "<wpml:index>%d</wpml:index>", idx)
	if alt != "" {
		fmt.Fprintf(&sb, "<wpml:executeHeight>%s</wpml:executeHeight>", alt)
	}
	for _, s := range inner {
		sb.WriteString(s)
	}
	sb.WriteString("</Placemark>")
	return sb.String()
}

func group_xml(id, start, end int, trigger, param string, actions ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<wpml:actionGroup><wpml:actionGroupId>%d</wpml:actionGroupId>", id)
	fmt.Fprintf(&sb, "<wpml:actionGroupStartIndex>%d</wpml:actionGroupStartIndex>", start)
	fmt.Fprintf(&sb, "<wpml:actionGroupEndIndex>%d</wpml:actionGroupEndIndex>", end)
	sb.WriteString("<wpml:actionGroupMode>sequence</wpml:actionGroupMode>")
	fmt.Fprintf(&sb, "<wpml:actionTrigger><wpml:actionTriggerType>%s</wpml:actionTriggerType>", trigger)
	if param != "" {
		fmt.Fprintf(&sb, "<wpml:actionTriggerParam>%s</wpml:actionTriggerParam>", param)
	}
	sb.WriteString("</wpml:actionTrigger>")
	for _, a := range actions {
		sb.WriteString(a)
	}
	sb.WriteString("</wpml:actionGroup>")
	return sb.String()
}

func gimbal_xml(pitch, yaw string, yawEnable string) string {
	var sb strings.Builder
	sb.WriteString("<wpml:action><wpml:actionId>1</wpml:actionId><wpml:actionActuatorFunc>gimbalRotate</wpml:actionActuatorFunc><wpml:actionActuatorFuncParam>")
	fmt.Fprintf(&sb, "<wpml:gimbalPitchRotateAngle>%s</wpml:gimbalPitchRotateAngle>", pitch)
	fmt.Fprintf(&sb, "<wpml:gimbalYawRotateEnable>%s</wpml:gimbalYawRotateEnable>", yawEnable)
	fmt.Fprintf(&sb, "<wpml:gimbalYawRotateAngle>%s</wpml:gimbalYawRotateAngle>", yaw)
	sb.WriteString("</wpml:actionActuatorFuncParam></wpml:action>")
	return sb.String()
}

func heading_xml(tag, mode, angle, enable string) string {
	return fmt.Sprintf("<wpml:%s><wpml:waypointHeadingMode>%s</wpml:waypointHeadingMode>"+
		"<wpml:waypointHeadingAngle>%s</wpml:waypointHeadingAngle>"+
		"<wpml:waypointHeadingAngleEnable>%s</wpml:waypointHeadingAngleEnable></wpml:%s>",
		tag, mode, angle, enable, tag)
}

// equator_folder is three waypoints 0.001° of longitude apart on the
// equator, about 111.19m each, at 50m with a capture every dist metres.
func equator_folder(id string, dist string) string {
	return folder_xml(id,
		placemark_xml(0, "0,0", "50", group_xml(0, 0, 2, "multipleDistance", dist, take_photo)),
		placemark_xml(1, "0.001,0", "50"),
		placemark_xml(2, "0.002,0", "50"))
}

func photo_group(id, start, end int, dist float64) ActionGroup {
	return ActionGroup{
		ID:         id,
		StartIndex: start,
		EndIndex:   end,
		Mode:       "sequence",
		Trigger: Trigger{Kind: TriggerMultipleDistance, Type: "multipleDistance",
			Distance: dist, HasDistance: true},
		Actions: []Action{{Kind: ActionCapture, Func: "takePhoto"}},
	}
}

func equator_route(id int, dist float64) *Route {
	return &Route{
		WaylineID:   id,
		Speed:       10,
		GimbalPitch: DefaultGimbalPitch(id),
		Waypoints: []Waypoint{
			{Index: 0, Lat: 0, Lon: 0, RelAlt: 50},
			{Index: 1, Lat: 0, Lon: 0.001, RelAlt: 50},
			{Index: 2, Lat: 0, Lon: 0.002, RelAlt: 50},
		},
		ActionGroups: []ActionGroup{photo_group(0, 0, 2, dist)},
	}
}

func ptr(v float64) *float64 {
	return &v
}
