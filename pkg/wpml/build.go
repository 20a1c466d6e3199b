package wpml

import (
	"fmt"
	"math"
	"strings"
)

import (
	"area2waypoint/pkg/geo"
)

import (
	"github.com/google/uuid"
)

type BuildConfig struct {
	Lenses      []string
	FocalLength float64
	// Split gives one mission per route
	Split bool
	// NewActionUUID, when set, replaces random action UUIDs
	NewActionUUID func() string
}

func DefaultBuildConfig() BuildConfig {
	return BuildConfig{Lenses: []string{"ir", "wide", "zoom"}, FocalLength: 48}
}

func (c BuildConfig) validate() error {
	if len(c.Lenses) == 0 {
		return fmt.Errorf("%w: no lenses", ErrInvalidConfig)
	}
	for _, l := range c.Lenses {
		if strings.TrimSpace(l) == "" {
			return fmt.Errorf("%w: empty lens name", ErrInvalidConfig)
		}
	}
	if math.IsNaN(c.FocalLength) || math.IsInf(c.FocalLength, 0) || c.FocalLength <= 0 {
		return fmt.Errorf("%w: focal length %v", ErrInvalidConfig, c.FocalLength)
	}
	return nil
}

func (c BuildConfig) action_uuid() string {
	if c.NewActionUUID != nil {
		return c.NewActionUUID()
	}
	u := uuid.New()
	return strings.ReplaceAll(u.String(), "-", "")
}

type OrientedShoot struct {
	ActionID    int
	Lens        string
	FocalLength float64
	GimbalPitch float64
	GimbalYaw   float64
	Heading     float64
	UUID        string
}

type OutputWaypoint struct {
	Index   int
	Shot    ShotPoint
	Actions []OrientedShoot
}

type OutputRoute struct {
	WaylineID  int
	TemplateID int
	Speed      float64
	HeightMode string
	// metres between consecutive shots, summed
	Distance float64
	// seconds at Speed
	Duration  float64
	Waypoints []OutputWaypoint
}

type OutputMission struct {
	Name        string
	Config      MissionConfig
	HeightMode  string
	Lenses      []string
	FocalLength float64
	Routes      []OutputRoute
}

func (om *OutputMission) ShotCount() int {
	n := 0
	for _, r := range om.Routes {
		n += len(r.Waypoints)
	}
	return n
}

type BuildResult struct {
	Missions []*OutputMission
	// WaylineIDs of routes dropped for having no shots
	Omitted []int
}

const DefaultHeightMode = "relativeToStartPoint"

// Build assembles waypoint missions from computed shots, one mission in
// combined mode or one per route when cfg.Split is set. m may be nil, in
// which case the output carries an empty mission config.
func Build(m *Mission, shots []RouteShots, cfg BuildConfig) (*BuildResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var mc MissionConfig
	if m != nil {
		mc = m.Config
	}

	res := &BuildResult{}
	var routes []OutputRoute
	var names []string
	northo, nobl := 0, 0
	for _, rs := range shots {
		if len(rs.Shots) == 0 {
			res.Omitted = append(res.Omitted, rs.Route.WaylineID)
			continue
		}
		routes = append(routes, build_route(rs, cfg))
		if rs.Route.IsOrtho() {
			northo++
			if northo == 1 {
				names = append(names, "ortho")
			} else {
				names = append(names, fmt.Sprintf("ortho%d", northo))
			}
		} else {
			nobl++
			names = append(names, fmt.Sprintf("oblique%d", nobl))
		}
	}
	if len(routes) == 0 {
		return res, nil
	}

	mission := func(name string, rts []OutputRoute) *OutputMission {
		hm := rts[0].HeightMode
		if hm == "" {
			hm = DefaultHeightMode
		}
		return &OutputMission{
			Name:        name,
			Config:      mc,
			HeightMode:  hm,
			Lenses:      append([]string(nil), cfg.Lenses...),
			FocalLength: cfg.FocalLength,
			Routes:      rts,
		}
	}
	if cfg.Split {
		for i := range routes {
			res.Missions = append(res.Missions, mission(names[i], routes[i:i+1]))
		}
	} else {
		res.Missions = append(res.Missions, mission("", routes))
	}
	return res, nil
}

func build_route(rs RouteShots, cfg BuildConfig) OutputRoute {
	r := rs.Route
	out := OutputRoute{
		WaylineID:  r.WaylineID,
		TemplateID: r.TemplateID,
		Speed:      r.Speed,
		HeightMode: r.HeightMode,
		Waypoints:  make([]OutputWaypoint, 0, len(rs.Shots)),
	}
	if out.Speed <= 0 {
		out.Speed = 1
	}
	for i, sp := range rs.Shots {
		if i > 0 {
			p := rs.Shots[i-1]
			out.Distance += geo.Distance(p.Lat, p.Lon, sp.Lat, sp.Lon)
		}
		wp := OutputWaypoint{Index: i, Shot: sp, Actions: make([]OrientedShoot, 0, len(cfg.Lenses))}
		for j, lens := range cfg.Lenses {
			wp.Actions = append(wp.Actions, OrientedShoot{
				ActionID:    j,
				Lens:        lens,
				FocalLength: cfg.FocalLength,
				GimbalPitch: sp.GimbalPitch,
				GimbalYaw:   sp.GimbalYaw,
				Heading:     sp.FlightYaw,
				UUID:        cfg.action_uuid(),
			})
		}
		out.Waypoints = append(out.Waypoints, wp)
	}
	out.Duration = out.Distance / out.Speed
	return out
}
