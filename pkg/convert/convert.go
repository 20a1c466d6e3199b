// Package convert runs the whole area to waypoint conversion: read the
// area KMZ, compute (or load) the shots, build and write the waypoint
// missions, and optionally export the shots elsewhere.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

import (
	"area2waypoint/pkg/geo"
	"area2waypoint/pkg/kmlgen"
	"area2waypoint/pkg/kmz"
	"area2waypoint/pkg/logging"
	"area2waypoint/pkg/metacsv"
	"area2waypoint/pkg/options"
	"area2waypoint/pkg/shotdb"
	"area2waypoint/pkg/shotmqtt"
	"area2waypoint/pkg/wpml"
)

import (
	"github.com/bmizerany/perks/quantile"
)

var ErrNoShots = errors.New("no shot points computed")

// bound on connecting to and publishing to the broker
const publish_timeout = 60 * time.Second

const (
	OutputWaypoints = "waypoints"
	OutputPreview   = "preview"
	OutputSQLite    = "sqlite"
)

type Output struct {
	Kind string
	Path string
	Size int64
}

type RouteSummary struct {
	WaylineID  int
	Shots      int
	Distance   float64
	Overridden bool
}

type Report struct {
	Input     string
	Routes    []RouteSummary
	Outputs   []Output
	Skipped   []error
	Omitted   []int
	Published int
	Elapsed   time.Duration

	// inter-shot spacing p05, p50, p95 in metres, valid when Spacings > 0
	Spacing  [3]float64
	Spacings int
}

// route_errors applies the error policy: in strict mode the first error
// aborts, otherwise each is logged and recorded.
func (r *Report) route_errors(err error, strict bool, lg *logging.Logger) error {
	for _, e := range wpml.RouteErrors(err) {
		if strict {
			return e
		}
		lg.Warnf("skipping route: %v", e)
		r.Skipped = append(r.Skipped, e)
	}
	return nil
}

func (r *Report) add_output(kind, fn string) {
	o := Output{Kind: kind, Path: fn}
	if fi, err := os.Stat(fn); err == nil {
		o.Size = fi.Size()
	}
	r.Outputs = append(r.Outputs, o)
}

func mission_name(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (r *Report) summarise(shots []wpml.RouteShots) {
	q := quantile.NewTargeted(0.05, 0.5, 0.95)
	for _, rs := range shots {
		s := RouteSummary{WaylineID: rs.Route.WaylineID, Shots: len(rs.Shots), Overridden: rs.Overridden}
		for i := 1; i < len(rs.Shots); i++ {
			a, b := rs.Shots[i-1], rs.Shots[i]
			d := geo.Distance(a.Lat, a.Lon, b.Lat, b.Lon)
			s.Distance += d
			q.Insert(d)
			r.Spacings++
		}
		r.Routes = append(r.Routes, s)
	}
	if r.Spacings > 0 {
		r.Spacing = [3]float64{q.Query(0.05), q.Query(0.5), q.Query(0.95)}
	}
}

// Run converts cfg.Input. Route level errors are skipped (and reported)
// unless cfg.Strict is set.
func Run(ctx context.Context, cfg options.Config, lg *logging.Logger) (*Report, error) {
	start := time.Now()
	rep := &Report{Input: cfg.Input}

	doc, err := kmz.ReadWaylines(cfg.Input)
	if err != nil {
		return nil, err
	}
	m, err := wpml.Parse(doc)
	if m == nil {
		return nil, fmt.Errorf("%s: %w", cfg.Input, err)
	}
	if err := rep.route_errors(err, cfg.Strict, lg); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Input, err)
	}
	lg.Infof("%s: %d routes", cfg.Input, len(m.Routes))

	var overrides map[int][]wpml.OverrideRow
	if cfg.MetadataCSV != "" {
		overrides, err = metacsv.ReadFile(cfg.MetadataCSV)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, rows := range overrides {
			n += len(rows)
		}
		lg.Infof("%s: %d override rows", cfg.MetadataCSV, n)
	}

	shots, err := wpml.ComputeAll(m.Routes, overrides, cfg.Workers)
	if err := rep.route_errors(err, cfg.Strict, lg); err != nil {
		return nil, err
	}
	for _, rs := range shots {
		lg.With("wayline", rs.Route.WaylineID).Debugf("%d shots, overridden %v", len(rs.Shots), rs.Overridden)
	}
	rep.summarise(shots)

	res, err := wpml.Build(m, shots, cfg.BuildConfig())
	if err != nil {
		return nil, err
	}
	for _, id := range res.Omitted {
		lg.Warnf("wayline %d: no shot points, route omitted", id)
	}
	rep.Omitted = res.Omitted
	if len(res.Missions) == 0 {
		return rep, ErrNoShots
	}

	now := time.Now()
	for _, om := range res.Missions {
		fn := cfg.Output
		if cfg.Split {
			fn = options.SplitOutput(cfg.Output, om.Name)
		}
		if err := kmz.Write(fn, om, now); err != nil {
			return rep, err
		}
		lg.Infof("%s: %d routes, %d shots", fn, len(om.Routes), om.ShotCount())
		rep.add_output(OutputWaypoints, fn)
	}

	name := mission_name(cfg.Input)
	if cfg.Preview != "" {
		if err := kmlgen.Write(cfg.Preview, kmlgen.Preview(name, shots, cfg.Dms)); err != nil {
			return rep, fmt.Errorf("preview: %w", err)
		}
		rep.add_output(OutputPreview, cfg.Preview)
	}
	if cfg.SQLite != "" {
		if err := shotdb.Export(cfg.SQLite, name, shots); err != nil {
			return rep, err
		}
		rep.add_output(OutputSQLite, cfg.SQLite)
	}
	if cfg.Broker != "" {
		n, err := publish(ctx, cfg.Broker, shots)
		rep.Published = n
		if err != nil {
			return rep, err
		}
		lg.Infof("published %d shots", n)
	}
	rep.Elapsed = time.Since(start)
	return rep, nil
}

func publish(ctx context.Context, broker string, shots []wpml.RouteShots) (int, error) {
	bc, err := shotmqtt.ParseBroker(broker)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, publish_timeout)
	defer cancel()
	c, err := shotmqtt.New(ctx, bc)
	if err != nil {
		return 0, err
	}
	defer c.Close()
	return c.Publish(ctx, shots)
}
