// Package main is the bboxeval command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nvr-ai/bbox-eval/config"
	"github.com/nvr-ai/bbox-eval/logger"
)

const (
	// Global flags.
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagDev      = "dev"

	// Command flags.
	flagGroundTruth = "ground-truth"
	flagResults     = "results"
	flagPolicy      = "policy"
	flagLoadPolicy  = "load-policy"
	flagWorkers     = "workers"
	flagReport      = "report"
	flagDir         = "dir"
	flagID          = "id"
	flagBox         = "box"
	flagSize        = "size"
	flagImage       = "image"
	flagImages      = "images"
	flagOut         = "out"
	flagMaxWidth    = "max-width"

	metadataConfig = "config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Sync()
		fmt.Fprintln(os.Stderr, "bboxeval:", err)
		os.Exit(1)
	}
	logger.Sync()
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "bboxeval",
		Usage: "score predicted bounding boxes against ground truth annotations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "YAML run configuration",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  flagDev,
				Usage: "human readable console logs",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:  "evaluate",
				Usage: "compute the mean IoU of results against ground truth",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagGroundTruth, Aliases: []string{"g"}, Usage: "ground truth annotation directory"},
					&cli.StringFlag{Name: flagResults, Aliases: []string{"r"}, Usage: "result annotation directory"},
					&cli.StringFlag{Name: flagPolicy, Usage: "match policy: intersection or legacy-truncate"},
					&cli.StringFlag{Name: flagLoadPolicy, Usage: "unparsable annotation files: abort or skip"},
					&cli.IntFlag{Name: flagWorkers, Usage: "goroutines scoring pairs"},
					&cli.StringFlag{Name: flagReport, Usage: "write the per-identifier YAML report to this file"},
				},
				Action: evaluateAction,
			},
			{
				Name:  "write",
				Usage: "write one annotation file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagDir, Value: ".", Usage: "output directory"},
					&cli.StringFlag{Name: flagID, Required: true, Usage: "image identifier"},
					&cli.StringFlag{Name: flagBox, Required: true, Usage: "xmin,ymin,xmax,ymax"},
					&cli.StringFlag{Name: flagSize, Usage: "nominal image size as WIDTHxHEIGHT"},
					&cli.StringFlag{Name: flagImage, Usage: "read the image size from this image"},
				},
				Action: writeAction,
			},
			{
				Name:  "list",
				Usage: "list image identifiers of a directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagImages, Usage: "image directory"},
				},
				Action: listAction,
			},
			{
				Name:  "render",
				Usage: "draw ground truth (green) and result (red) boxes onto their images",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagImages, Usage: "image directory"},
					&cli.StringFlag{Name: flagGroundTruth, Aliases: []string{"g"}, Usage: "ground truth annotation directory"},
					&cli.StringFlag{Name: flagResults, Aliases: []string{"r"}, Usage: "result annotation directory"},
					&cli.StringFlag{Name: flagOut, Usage: "overlay output directory"},
					&cli.IntFlag{Name: flagMaxWidth, Usage: "downscale overlays wider than this"},
					&cli.StringFlag{Name: flagLoadPolicy, Usage: "unparsable annotation files: abort or skip"},
				},
				Action: renderAction,
			},
		},
	}
}

// setup loads the configuration file and initialises the logger.
func setup(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if c.IsSet(flagLogLevel) {
		cfg.Log.Level = c.String(flagLogLevel)
	}
	if c.IsSet(flagDev) {
		cfg.Log.Development = c.Bool(flagDev)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata[metadataConfig] = cfg
	return nil
}

// runConfig returns the configuration installed by setup.
func runConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[metadataConfig].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}
