package wpml

const (
	KMLNamespace = "http://www.opengis.net/kml/2.2"
	// Any namespace under this prefix is accepted on input
	WPMLNamespacePrefix = "http://www.dji.com/wpmz/"
	WPMLNamespace       = WPMLNamespacePrefix + "1.0.6"
)

const (
	OrthoPitch   = -90.0
	ObliquePitch = -40.0
	// Segments shorter than this are degenerate
	Tolerance = 1e-3
	// Most shots one route may carry
	MaxShots = 1 << 20
	// Override key for rows that name no route
	AnyRoute   = -1
	MissingYaw = 0.0
)

type TriggerKind int

const (
	TriggerOther TriggerKind = iota
	TriggerMultipleDistance
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerMultipleDistance:
		return "multipleDistance"
	default:
		return "other"
	}
}

type ActionKind int

const (
	ActionOther ActionKind = iota
	ActionCapture
	ActionGimbalRotate
)

type Trigger struct {
	Kind        TriggerKind
	Type        string
	Distance    float64
	HasDistance bool
}

type Action struct {
	ID   int
	Kind ActionKind
	Func string
	// Capture only
	Lenses []string
	// GimbalRotate only
	Pitch *float64
	Yaw   *float64
}

type ActionGroup struct {
	ID         int
	StartIndex int
	EndIndex   int
	Mode       string
	Trigger    Trigger
	Actions    []Action
}

func (g *ActionGroup) HasCapture() bool {
	for _, a := range g.Actions {
		if a.Kind == ActionCapture {
			return true
		}
	}
	return false
}

// GimbalRotate returns the first gimbal rotation in the group, or nil.
func (g *ActionGroup) GimbalRotate() *Action {
	for i := range g.Actions {
		if g.Actions[i].Kind == ActionGimbalRotate {
			return &g.Actions[i]
		}
	}
	return nil
}

// Qualifies reports whether the group drives periodic capture.
func (g *ActionGroup) Qualifies() bool {
	return g.Trigger.Kind == TriggerMultipleDistance && g.HasCapture()
}

type Waypoint struct {
	Index   int
	Lat     float64
	Lon     float64
	RelAlt  float64
	Speed   float64
	Heading *float64
}

type Route struct {
	WaylineID    int
	TemplateID   int
	Speed        float64
	HeightMode   string
	Heading      *float64
	GimbalPitch  float64
	Waypoints    []Waypoint
	ActionGroups []ActionGroup
	folder       int
}

func DefaultGimbalPitch(waylineID int) float64 {
	if waylineID == 0 {
		return OrthoPitch
	}
	return ObliquePitch
}

func (r *Route) IsOrtho() bool {
	return r.WaylineID == 0
}

type ConfigEntry struct {
	Key   string
	Value string
}

// MissionConfig keeps the scalar missionConfig children in document order.
type MissionConfig struct {
	Entries     []ConfigEntry
	DroneInfo   []ConfigEntry
	PayloadInfo []ConfigEntry
}

func lookup(entries []ConfigEntry, key string) (string, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

func (c MissionConfig) Get(key string) (string, bool) {
	return lookup(c.Entries, key)
}

type Mission struct {
	Config MissionConfig
	Routes []*Route
}

type ShotPoint struct {
	Lat         float64
	Lon         float64
	RelAlt      float64
	GimbalPitch float64
	GimbalYaw   float64
	FlightYaw   float64
	WaylineID   int
	Along       float64
}

type RouteShots struct {
	Route      *Route
	Shots      []ShotPoint
	Overridden bool
}

// OverrideRow is one externally supplied shot. Nil fields were absent.
type OverrideRow struct {
	Lat         float64
	Lon         float64
	RelAlt      float64
	GimbalPitch *float64
	GimbalYaw   *float64
	FlightYaw   *float64
}
