package images

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/bbox-eval/common"
	"github.com/nvr-ai/bbox-eval/evaluation"
)

var (
	// GroundTruthColor is the outline color of ground truth boxes (green).
	GroundTruthColor = color.RGBA{0, 255, 0, 0}
	// ResultColor is the outline color of predicted boxes (red).
	ResultColor = color.RGBA{255, 0, 0, 0}
)

// OverlayConfig configures RenderOverlays.
type OverlayConfig struct {
	// OutputDir receives one "<id>.jpg" per rendered image.
	OutputDir string
	// MaxWidth downscales wider overlays, keeping the aspect ratio. 0 disables it.
	MaxWidth int
	// Logger is optional.
	Logger *zap.Logger
}

// RenderOverlay draws the ground truth and result boxes with their IoU onto the image at
// src and writes the annotated copy to dst.
//
// Arguments:
// - src: Source image path.
// - dst: Output image path. The extension selects the encoder.
// - gt: Ground truth box.
// - result: Predicted box.
// - maxWidth: Downscale wider images to this width. 0 keeps the original size.
//
// Returns:
// - An error if the image cannot be read, resized or written.
func RenderOverlay(src, dst string, gt, result common.BoundingBox, maxWidth int) error {
	img := gocv.IMRead(src, gocv.IMReadColor)
	if img.Empty() {
		return errors.Wrap(ErrUnreadableImage, src)
	}
	defer img.Close()

	gocv.Rectangle(&img, gt.ToRect(), GroundTruthColor, 2)
	gocv.Rectangle(&img, result.ToRect(), ResultColor, 2)

	label := fmt.Sprintf("IoU %.3f", evaluation.ComputeIoU(gt, result))
	gocv.PutText(&img, label, image.Pt(10, 30), gocv.FontHersheyPlain, 1.5, color.RGBA{255, 255, 255, 0}, 2)

	out := img
	if maxWidth > 0 && img.Cols() > maxWidth {
		scaled, err := downscale(img, maxWidth)
		if err != nil {
			return err
		}
		defer scaled.Close()
		out = scaled
	}

	if !gocv.IMWrite(dst, out) {
		return errors.Errorf("write overlay %s", dst)
	}
	return nil
}

// RenderOverlays renders every image whose identifier is present in both maps.
//
// Returns:
// - The number of overlays written.
// - An error on the first image that fails.
func RenderOverlays(files []ImageFile, groundTruth, results *common.AnnotationMap, config OverlayConfig) (int, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(config.OutputDir, 0o755); err != nil {
		return 0, errors.Wrapf(err, "create %s", config.OutputDir)
	}

	rendered := 0
	for _, file := range files {
		gt, ok := groundTruth.Lookup(file.ID)
		if !ok {
			logger.Debug("no ground truth for image", zap.String("id", file.ID))
			continue
		}
		result, ok := results.Lookup(file.ID)
		if !ok {
			logger.Debug("no result for image", zap.String("id", file.ID))
			continue
		}

		dst := filepath.Join(config.OutputDir, file.ID+".jpg")
		if err := RenderOverlay(file.Path, dst, gt, result, config.MaxWidth); err != nil {
			return rendered, err
		}
		logger.Debug("rendered overlay", zap.String("id", file.ID), zap.String("path", dst))
		rendered++
	}
	return rendered, nil
}

// downscale resizes img to width, keeping the aspect ratio.
func downscale(img gocv.Mat, width int) (gocv.Mat, error) {
	src, err := img.ToImage()
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "convert mat to image")
	}

	resized := resize.Resize(uint(width), 0, src, resize.Lanczos3)

	mat, err := gocv.ImageToMatRGB(resized)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "convert image to mat")
	}
	return mat, nil
}
