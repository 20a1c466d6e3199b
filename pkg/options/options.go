package options

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

import (
	"area2waypoint/pkg/wpml"
)

const (
	EnvName       = "AREA2WP_OPTS"
	DefaultLenses = "ir,wide,zoom"
	lens_seps     = ", ;:/\t"
)

type Config struct {
	Input       string
	Output      string
	MetadataCSV string
	Lenses      []string
	FocalLength float64
	Split       bool
	Preview     string
	Dms         bool
	SQLite      string
	Broker      string
	Workers     int
	Strict      bool
	LogLevel    string
	LogDir      string
}

func (c Config) BuildConfig() wpml.BuildConfig {
	return wpml.BuildConfig{
		Lenses:      c.Lenses,
		FocalLength: c.FocalLength,
		Split:       c.Split,
	}
}

// Msplit splits s on any of the runes in seps, dropping empty fields.
func Msplit(s string, seps string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
}

// ParseCLI parses the command line (without the program name). Defaults
// may be set from $AREA2WP_OPTS, e.g. AREA2WP_OPTS="-lens wide,ir -dms".
// Flags may follow the input file.
func ParseCLI(args []string, gv func() string) (Config, error) {
	var c Config
	app := "area2waypoint"

	envflags := flag.NewFlagSet("$"+EnvName, flag.ContinueOnError)
	envflags.SetOutput(io.Discard)
	lens := envflags.String("lens", DefaultLenses, "lens")
	focal := envflags.Float64("focal-length", 48, "focal-length")
	split := envflags.Bool("split-routes", false, "split-routes")
	dms := envflags.Bool("dms", false, "dms")
	workers := envflags.Int("workers", runtime.NumCPU(), "workers")
	strict := envflags.Bool("strict", false, "strict")
	level := envflags.String("log-level", "info", "log-level")
	logdir := envflags.String("log-dir", "", "log-dir")
	broker := envflags.String("broker", "", "broker")
	if err := envflags.Parse(strings.Fields(os.Getenv(EnvName))); err != nil {
		return c, fmt.Errorf("$%s: %w", EnvName, err)
	}

	fs := flag.NewFlagSet(app, flag.ContinueOnError)
	fs.Usage = func() {
		w := fs.Output()
		fmt.Fprintf(w, "Usage of %s [options] area_mission.kmz\n", app)
		fs.PrintDefaults()
		fmt.Fprintf(w, "\nDefaults may be set in $%s\n", EnvName)
		if gv != nil {
			fmt.Fprintln(w, gv())
		}
	}

	var lenses string
	fs.StringVar(&c.Output, "o", "", "Output waypoint KMZ (default <input>_waypoints.kmz)")
	fs.StringVar(&c.Output, "output", "", "Output waypoint KMZ (same as -o)")
	fs.StringVar(&c.MetadataCSV, "metadata-csv", "", "CSV of shot positions replacing computed shots (lat,lon,rel_alt[,gimbal_pitch,gimbal_yaw,flight_yaw,wayline_id])")
	fs.StringVar(&lenses, "lens", *lens, "Payload lens list")
	fs.Float64Var(&c.FocalLength, "focal-length", *focal, "Focal length for orientedShoot")
	fs.BoolVar(&c.Split, "split-routes", *split, "Write one KMZ per route (ortho, oblique1, ...)")
	fs.StringVar(&c.Preview, "kml", "", "Also write a preview of the shots to this KML/KMZ file")
	fs.BoolVar(&c.Dms, "dms", *dms, "Show preview positions as DD°MM'SS\" (vice decimal degrees)")
	fs.StringVar(&c.SQLite, "sqlite", "", "Also export the shots to this SQLite database")
	fs.StringVar(&c.Broker, "broker", *broker, "Publish shots to MQTT (mqtt://[user[:pass]@]broker[:port]/topic[?cafile=file])")
	fs.IntVar(&c.Workers, "workers", *workers, "Routes computed in parallel")
	fs.BoolVar(&c.Strict, "strict", *strict, "Abort on any route error (vice skip the route)")
	fs.StringVar(&c.LogLevel, "log-level", *level, "Log level [debug,info,warn,error]")
	fs.StringVar(&c.LogDir, "log-dir", *logdir, "Also write a JSON log in this directory")

	var files []string
	for {
		if err := fs.Parse(args); err != nil {
			return c, err
		}
		if fs.NArg() == 0 {
			break
		}
		files = append(files, fs.Arg(0))
		args = fs.Args()[1:]
	}
	if len(files) != 1 {
		fs.Usage()
		return c, fmt.Errorf("expected one input file, got %d", len(files))
	}
	c.Input = files[0]

	c.Lenses = Msplit(lenses, lens_seps)
	if len(c.Lenses) == 0 {
		return c, fmt.Errorf("no lens in %q", lenses)
	}
	if !(c.FocalLength > 0) {
		return c, fmt.Errorf("focal length must be positive, got %v", c.FocalLength)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Output == "" {
		c.Output = DefaultOutput(c.Input)
	}
	return c, nil
}

func stem(fn string) string {
	base := filepath.Base(fn)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DefaultOutput names the waypoint KMZ after the input, dropping an
// "_area" or "_mapping" suffix: site_area.kmz gives site_waypoints.kmz.
func DefaultOutput(input string) string {
	s := stem(input)
	for _, sfx := range []string{"_area", "_mapping"} {
		if strings.HasSuffix(s, sfx) {
			s = strings.TrimSuffix(s, sfx)
			break
		}
	}
	return filepath.Join(filepath.Dir(input), s+"_waypoints.kmz")
}

// SplitOutput names the KMZ of one route in split mode:
// site_waypoints.kmz and oblique1 give site_oblique1.kmz.
func SplitOutput(output, name string) string {
	s := strings.ReplaceAll(stem(output), "_waypoints", "")
	return filepath.Join(filepath.Dir(output), fmt.Sprintf("%s_%s.kmz", s, name))
}
