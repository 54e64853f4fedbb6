// Command asilib downloads and renders all-sky imager data from the REGO,
// THEMIS, and TREx networks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/gif"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	asilib "github.com/mshumko/aurora-asi-lib"
	"github.com/mshumko/aurora-asi-lib/asi"
	"github.com/mshumko/aurora-asi-lib/conjunction"
	"github.com/mshumko/aurora-asi-lib/keogram"
	"github.com/mshumko/aurora-asi-lib/plot"
)

const timeLayout = "2006-01-02T15:04:05"

func main() {
	cmd := &cli.Command{
		Name:  "asilib",
		Usage: "Download, analyze, and render auroral all-sky imager data",
		Commands: []*cli.Command{
			downloadCommand(),
			keogramCommand(),
			animateCommand(),
			conjunctionsCommand(),
			passesCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg *asilib.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func imagerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "network",
			Aliases:  []string{"n"},
			Usage:    "Instrument network: REGO, THEMIS, TREX_RGB, or TREX_NIR",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "location",
			Aliases:  []string{"l"},
			Usage:    "Four-letter site code, e.g. GILL",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "start",
			Usage:    "Range start, e.g. 2017-09-15T02:00:00 (UTC)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "end",
			Usage:    "Range end (exclusive), same layout as --start",
			Required: true,
		},
		&cli.FloatFlag{
			Name:  "alt",
			Usage: "Auroral emission altitude in km for geographic mapping",
			Value: asilib.DefaultAltKm,
		},
		&cli.BoolFlag{
			Name:  "redownload",
			Usage: "Fetch files again even when they exist locally",
		},
	}
}

// buildImager assembles a Service and Imager from the shared flags.
func buildImager(ctx context.Context, cmd *cli.Command) (*asi.Service, *asilib.Imager, *slog.Logger, error) {
	cfg, err := asilib.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := newLogger(cfg)

	start, err := time.Parse(timeLayout, cmd.String("start"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing --start: %w", err)
	}
	end, err := time.Parse(timeLayout, cmd.String("end"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parsing --end: %w", err)
	}

	network := asilib.Network(strings.ToUpper(cmd.String("network")))
	if !network.Valid() {
		return nil, nil, nil, fmt.Errorf("unknown network %q (have %v)", cmd.String("network"), asilib.Networks())
	}

	service, err := asi.NewService(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	im, err := service.Imager(ctx, asilib.LoadRequest{
		Network:    network,
		Location:   cmd.String("location"),
		TimeRange:  asilib.TimeRange{Start: start, End: end},
		AltKm:      cmd.Float("alt"),
		Redownload: cmd.Bool("redownload"),
	})
	if err != nil {
		service.Close()
		return nil, nil, nil, err
	}
	return service, im, logger, nil
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Mirror the minute files and skymaps a time range needs",
		Flags: imagerFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			service, im, logger, err := buildImager(ctx, cmd)
			if err != nil {
				return err
			}
			defer service.Close()

			stamps, err := im.Timestamps(ctx)
			if err != nil {
				return err
			}
			logger.Info("download complete",
				"imager", im.String(),
				"frames", len(stamps),
				"skymap", im.Skymap.Path,
			)
			return nil
		},
	}
}

func keogramCommand() *cli.Command {
	return &cli.Command{
		Name:  "keogram",
		Usage: "Render a keogram PNG for a time range",
		Flags: append(imagerFlags(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output PNG path",
				Value:   "keogram.png",
			},
			&cli.BoolFlag{
				Name:  "ewogram",
				Usage: "Slice along the east-west row instead of the meridian",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			service, im, logger, err := buildImager(ctx, cmd)
			if err != nil {
				return err
			}
			defer service.Close()

			build := keogram.New
			if cmd.Bool("ewogram") {
				build = keogram.Ewogram
			}
			k, err := build(ctx, im)
			if err != nil {
				return err
			}

			img, err := plot.Keogram(k, plot.Options{})
			if err != nil {
				return err
			}
			if err := plot.WritePNG(cmd.String("output"), img); err != nil {
				return err
			}
			logger.Info("keogram written",
				"path", cmd.String("output"),
				"time_steps", len(k.Times),
				"rows", k.Rows(),
			)
			return nil
		},
	}
}

func animateCommand() *cli.Command {
	return &cli.Command{
		Name:  "animate",
		Usage: "Render a time range as an animated GIF",
		Flags: append(imagerFlags(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output GIF path",
				Value:   "animation.gif",
			},
			&cli.BoolFlag{
				Name:  "map",
				Usage: "Animate the geographic map projection instead of the fisheye view",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			service, im, logger, err := buildImager(ctx, cmd)
			if err != nil {
				return err
			}
			defer service.Close()

			var anim *gif.GIF
			if cmd.Bool("map") {
				anim, err = plot.AnimateMap(ctx, im, nil, plot.Options{})
			} else {
				anim, err = plot.Animate(ctx, im, plot.Options{})
			}
			if err != nil {
				return err
			}
			if err := plot.WriteGIF(cmd.String("output"), anim); err != nil {
				return err
			}
			logger.Info("animation written",
				"path", cmd.String("output"),
				"frames", len(anim.Image),
			)
			return nil
		},
	}
}

func passesCommand() *cli.Command {
	return &cli.Command{
		Name:  "passes",
		Usage: "Find imager-satellite conjunctions locally from a TLE catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tle-url",
				Usage:   "TLE catalog URL",
				Value:   "https://celestrak.org/NORAD/elements/gp.php?GROUP=science&FORMAT=tle",
				Sources: cli.EnvVars("ASILIB_TLE_URL"),
			},
			&cli.StringFlag{
				Name:     "satellite",
				Usage:    "Satellite name or NORAD catalog number",
				Required: true,
			},
			&cli.StringFlag{Name: "site", Usage: "Site name for the report", Value: "site"},
			&cli.FloatFlag{Name: "lat", Usage: "Site latitude in degrees", Required: true},
			&cli.FloatFlag{Name: "lon", Usage: "Site longitude in degrees", Required: true},
			&cli.FloatFlag{Name: "site-alt", Usage: "Site altitude in km"},
			&cli.StringFlag{Name: "start", Usage: "Window start (UTC)", Required: true},
			&cli.StringFlag{Name: "end", Usage: "Window end (UTC)", Required: true},
			&cli.DurationFlag{Name: "step", Usage: "Footprint sample step", Value: 30 * time.Second},
			&cli.FloatFlag{Name: "min-elevation", Usage: "Minimum footprint elevation in degrees", Value: 10},
			&cli.FloatFlag{Name: "distance", Usage: "Maximum separation in km, 0 to disable"},
			&cli.FloatFlag{Name: "alt", Usage: "Footprint mapping altitude in km", Value: asilib.DefaultAltKm},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := asilib.LoadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			start, err := time.Parse(timeLayout, cmd.String("start"))
			if err != nil {
				return fmt.Errorf("parsing --start: %w", err)
			}
			end, err := time.Parse(timeLayout, cmd.String("end"))
			if err != nil {
				return fmt.Errorf("parsing --end: %w", err)
			}

			source := conjunction.NewTLESource(cmd.String("tle-url"),
				filepath.Join(cfg.DataDir, "tle"), 6*time.Hour, logger)
			tle, err := source.Lookup(ctx, cmd.String("satellite"))
			if err != nil {
				return err
			}
			logger.Info("using element set",
				"satellite", tle.Name,
				"norad_id", tle.NORADID,
				"epoch", tle.Epoch.Format(time.RFC3339),
			)

			prop, err := conjunction.NewPropagator(tle.Name, tle.Line1, tle.Line2)
			if err != nil {
				return err
			}
			track, err := prop.Footprint(start, end, cmd.Duration("step"), cmd.Float("alt"))
			if err != nil {
				return err
			}

			intervals := conjunction.Find(conjunction.Site{
				Name:  cmd.String("site"),
				Lat:   cmd.Float("lat"),
				Lon:   cmd.Float("lon"),
				AltKm: cmd.Float("site-alt"),
			}, track, conjunction.Criteria{
				MinElevation:  cmd.Float("min-elevation"),
				MaxDistanceKm: cmd.Float("distance"),
			})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(intervals)
		},
	}
}

func conjunctionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "conjunctions",
		Usage: "Search a conjunction service for imager-satellite alignments",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "url",
				Usage:    "Base URL of the conjunction search service",
				Required: true,
				Sources:  cli.EnvVars("ASILIB_CONJUNCTION_URL"),
			},
			&cli.StringFlag{Name: "start", Usage: "Window start (UTC)", Required: true},
			&cli.StringFlag{Name: "end", Usage: "Window end (UTC)", Required: true},
			&cli.FloatFlag{Name: "distance", Usage: "Maximum separation in km", Value: 500},
			&cli.StringSliceFlag{Name: "ground-program", Usage: "Ground program filter, e.g. themis-asi"},
			&cli.StringSliceFlag{Name: "platform", Usage: "Ground platform filter, e.g. gillam"},
			&cli.StringSliceFlag{Name: "space-program", Usage: "Space program filter, e.g. swarm"},
			&cli.StringSliceFlag{Name: "hemisphere", Usage: "Hemisphere filter: northern or southern"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := asilib.LoadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			start, err := time.Parse(timeLayout, cmd.String("start"))
			if err != nil {
				return fmt.Errorf("parsing --start: %w", err)
			}
			end, err := time.Parse(timeLayout, cmd.String("end"))
			if err != nil {
				return fmt.Errorf("parsing --end: %w", err)
			}

			client := conjunction.NewClient(cmd.String("url"), cfg.HTTPTimeout, logger)
			events, err := client.Search(ctx, conjunction.SearchRequest{
				Start:    start,
				End:      end,
				Distance: cmd.Float("distance"),
				Ground: []conjunction.GroundCriteria{{
					Programs:  cmd.StringSlice("ground-program"),
					Platforms: cmd.StringSlice("platform"),
				}},
				Space: []conjunction.SpaceCriteria{{
					Programs:   cmd.StringSlice("space-program"),
					Hemisphere: cmd.StringSlice("hemisphere"),
				}},
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		},
	}
}
