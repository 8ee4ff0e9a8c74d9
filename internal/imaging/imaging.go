// Package imaging decodes captured JPEG frames and merges a burst of them
// into one aligned, averaged image with OpenCV.
package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"
)

const (
	eccIterations   = 50
	eccEpsilon      = 1e-4
	eccGaussianSize = 5
)

var (
	ErrDecode   = errors.New("imaging: decode failed")
	ErrNoFrames = errors.New("imaging: no frames to stack")
	ErrSave     = errors.New("imaging: save failed")
)

// Decode turns JPEG bytes into a single-channel 8-bit image. The caller owns
// the returned Mat and must Close it; on error there is nothing to close.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, fmt.Errorf("%w: empty buffer", ErrDecode)
	}
	img, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if img.Empty() {
		_ = img.Close()

		return gocv.Mat{}, fmt.Errorf("%w: not an image (%d bytes)", ErrDecode, len(data))
	}

	return img, nil
}

// Stack aligns every frame onto the first one with an ECC homography and
// averages the result. Frames that cannot be aligned are left out. It
// returns the stacked 8-bit image and how many frames went into it.
func Stack(frames []gocv.Mat, logger *slog.Logger) (gocv.Mat, int, error) {
	if len(frames) == 0 {
		return gocv.Mat{}, 0, ErrNoFrames
	}
	if logger == nil {
		logger = slog.Default()
	}

	reference := toFloat(frames[0])
	defer reference.Close()
	sum := reference.Clone()
	defer sum.Close()

	warp := gocv.Eye(3, 3, gocv.MatTypeCV32F)
	defer warp.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, eccIterations, eccEpsilon)
	size := image.Pt(reference.Cols(), reference.Rows())

	used := 1
	for i := 1; i < len(frames); i++ {
		if frames[i].Rows() != reference.Rows() || frames[i].Cols() != reference.Cols() {
			logger.Warn("skipping frame with different size", "frame", i,
				"rows", frames[i].Rows(), "cols", frames[i].Cols())
			continue
		}
		if !accumulate(frames[i], reference, &warp, mask, criteria, size, &sum) {
			logger.Warn("skipping frame that did not align", "frame", i)
			// Start the next frame from identity rather than a diverged estimate.
			resetIdentity(&warp)
			continue
		}
		used++
	}

	out := gocv.NewMat()
	sum.ConvertToWithParams(&out, gocv.MatTypeCV8U, float32(255.0/float64(used)), 0)

	return out, used, nil
}

// accumulate aligns frame onto reference and adds it to sum. The warp
// estimate carries over to the next frame. ECC estimates the map from
// reference coordinates into the frame, so the frame is warped through its
// inverse.
func accumulate(frame, reference gocv.Mat, warp *gocv.Mat, mask gocv.Mat, criteria gocv.TermCriteria, size image.Point, sum *gocv.Mat) bool {
	input := toFloat(frame)
	defer input.Close()

	gocv.FindTransformECC(reference, input, warp, gocv.MotionHomography, criteria, mask, eccGaussianSize)
	if !finite(*warp) {
		return false
	}

	aligned := gocv.NewMat()
	defer aligned.Close()
	gocv.WarpPerspectiveWithParams(input, &aligned, *warp, size,
		gocv.InterpolationLinear|gocv.WarpInverseMap, gocv.BorderConstant, color.RGBA{})
	if aligned.Empty() {
		return false
	}
	gocv.Add(*sum, aligned, sum)

	return true
}

func toFloat(img gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	img.ConvertToWithParams(&out, gocv.MatTypeCV32F, 1.0/255.0, 0)

	return out
}

func finite(m gocv.Mat) bool {
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			v := float64(m.GetFloatAt(r, c))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}

	return true
}

func resetIdentity(m *gocv.Mat) {
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < m.Cols(); c++ {
			v := float32(0)
			if r == c {
				v = 1
			}
			m.SetFloatAt(r, c, v)
		}
	}
}

// Save writes img to path, creating the directory if needed. The format
// follows the file extension.
func Save(path string, img gocv.Mat) error {
	if img.Empty() {
		return fmt.Errorf("%w: empty image", ErrSave)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("%w: create output dir: %w", ErrSave, err)
	}
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("%w: %s", ErrSave, path)
	}

	return nil
}
