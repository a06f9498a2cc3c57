package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrUnreadableImage is returned when OpenCV cannot decode an image file.
var ErrUnreadableImage = errors.New("unreadable image")

// ReadSize returns the width (X) and height (Y) of the image at path.
func ReadSize(path string) (image.Point, error) {
	img := gocv.IMRead(path, gocv.IMReadUnchanged)
	defer img.Close()

	if img.Empty() {
		return image.Point{}, errors.Wrap(ErrUnreadableImage, path)
	}
	return image.Pt(img.Cols(), img.Rows()), nil
}
