package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/bbox-eval/annotation"
	"github.com/nvr-ai/bbox-eval/common"
	"github.com/nvr-ai/bbox-eval/config"
	"github.com/nvr-ai/bbox-eval/evaluation"
	"github.com/nvr-ai/bbox-eval/images"
	"github.com/nvr-ai/bbox-eval/logger"
)

// overrideDirs applies the directory flags shared by evaluate and render.
func overrideDirs(c *cli.Context, cfg *config.Config) {
	if c.IsSet(flagGroundTruth) {
		cfg.GroundTruthDir = c.String(flagGroundTruth)
	}
	if c.IsSet(flagResults) {
		cfg.ResultsDir = c.String(flagResults)
	}
	if c.IsSet(flagLoadPolicy) {
		cfg.LoadPolicy = c.String(flagLoadPolicy)
	}
}

// loadPair loads the ground truth and result maps described by cfg.
func loadPair(cfg *config.Config, log *zap.Logger) (*common.AnnotationMap, *common.AnnotationMap, error) {
	policy, err := cfg.Loading()
	if err != nil {
		return nil, nil, err
	}
	loaderCfg := &annotation.LoaderConfig{Policy: policy, Logger: log}

	load := func(kind, dir string) (*common.AnnotationMap, error) {
		boxes, err := annotation.LoadBoxes(dir, loaderCfg)
		if err != nil && (policy == annotation.LoadAbort || boxes == nil) {
			return nil, errors.Wrapf(err, "load %s", kind)
		}
		if skipped := multierr.Errors(err); len(skipped) > 0 {
			log.Warn("skipped unparsable annotation files", zap.String("kind", kind), zap.Int("count", len(skipped)))
		}
		return boxes, nil
	}

	gt, err := load("ground truth", cfg.GroundTruthDir)
	if err != nil {
		return nil, nil, err
	}
	res, err := load("results", cfg.ResultsDir)
	if err != nil {
		return nil, nil, err
	}
	return gt, res, nil
}

func evaluateAction(c *cli.Context) error {
	cfg := runConfig(c)
	overrideDirs(c, cfg)
	if c.IsSet(flagPolicy) {
		cfg.MatchPolicy = c.String(flagPolicy)
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Log()
	gt, res, err := loadPair(cfg, log)
	if err != nil {
		return err
	}

	policy, _ := cfg.Match()
	report, err := evaluation.Evaluate(gt, res, &evaluation.Config{
		Policy:     policy,
		NumWorkers: cfg.Workers,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	log.Info("evaluation complete",
		zap.String("policy", string(report.Policy)),
		zap.Int("scored", len(report.Scores)),
		zap.Int("unmatched", len(report.Unmatched)),
		zap.Int("degenerate", report.Degenerate),
		zap.Float64("accuracy", report.Accuracy),
	)

	if path := c.String(flagReport); path != "" {
		if err := writeReport(path, report); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.App.Writer, "accuracy: %.6f\n", report.Accuracy)
	return nil
}

func writeReport(path string, report *evaluation.Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write report %s", path)
	}
	return nil
}

func writeAction(c *cli.Context) error {
	box, err := parseBox(c.String(flagBox))
	if err != nil {
		return err
	}

	var size annotation.Size
	switch {
	case c.IsSet(flagSize) && c.IsSet(flagImage):
		return errors.New("--size and --image are mutually exclusive")
	case c.IsSet(flagSize):
		if size, err = parseSize(c.String(flagSize)); err != nil {
			return err
		}
	case c.IsSet(flagImage):
		pt, err := images.ReadSize(c.String(flagImage))
		if err != nil {
			return err
		}
		size = annotation.Size{Width: pt.X, Height: pt.Y}
	}

	path, err := annotation.WriteBox(c.String(flagDir), c.String(flagID), size, box)
	if err != nil {
		return err
	}
	logger.Log().Debug("wrote annotation", zap.String("path", path), zap.Stringer("box", box))
	fmt.Fprintln(c.App.Writer, path)
	return nil
}

func listAction(c *cli.Context) error {
	dir := c.String(flagImages)
	if dir == "" {
		dir = runConfig(c).Overlay.ImagesDir
	}
	if dir == "" {
		return errors.New("--images is required")
	}

	files, err := images.ListImages(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", f.ID, f.Path)
	}
	return nil
}

func renderAction(c *cli.Context) error {
	cfg := runConfig(c)
	overrideDirs(c, cfg)
	if c.IsSet(flagImages) {
		cfg.Overlay.ImagesDir = c.String(flagImages)
	}
	if c.IsSet(flagOut) {
		cfg.Overlay.OutputDir = c.String(flagOut)
	}
	if c.IsSet(flagMaxWidth) {
		cfg.Overlay.MaxWidth = c.Int(flagMaxWidth)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Overlay.ImagesDir == "" {
		return errors.Wrap(config.ErrInvalidConfig, "overlay.images_dir is required")
	}

	log := logger.Log()
	gt, res, err := loadPair(cfg, log)
	if err != nil {
		return err
	}
	files, err := images.ListImages(cfg.Overlay.ImagesDir)
	if err != nil {
		return err
	}

	n, err := images.RenderOverlays(files, gt, res, images.OverlayConfig{
		OutputDir: cfg.Overlay.OutputDir,
		MaxWidth:  cfg.Overlay.MaxWidth,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	log.Info("rendered overlays", zap.Int("count", n), zap.String("dir", cfg.Overlay.OutputDir))
	return nil
}

// parseBox parses "xmin,ymin,xmax,ymax".
func parseBox(s string) (common.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return common.BoundingBox{}, errors.Errorf("box %q: want xmin,ymin,xmax,ymax", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return common.BoundingBox{}, errors.Wrapf(err, "box %q", s)
		}
		v[i] = n
	}
	return common.NewBoundingBox(v[0], v[1], v[2], v[3]), nil
}

// parseSize parses "WIDTHxHEIGHT".
func parseSize(s string) (annotation.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return annotation.Size{}, errors.Errorf("size %q: want WIDTHxHEIGHT", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || width < 0 {
		return annotation.Size{}, errors.Errorf("size %q: bad width", s)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height < 0 {
		return annotation.Size{}, errors.Errorf("size %q: bad height", s)
	}
	return annotation.Size{Width: width, Height: height}, nil
}
