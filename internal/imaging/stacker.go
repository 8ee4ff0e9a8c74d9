package imaging

import (
	"errors"
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"
)

// Stacker turns a burst of JPEG frames into one saved image.
type Stacker struct {
	logger *slog.Logger
}

func NewStacker(logger *slog.Logger) *Stacker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Stacker{logger: logger.With("component", "imaging")}
}

// Process decodes frames, stacks the decodable ones and writes the result to
// outputPath. It reports how many frames were decoded. When none decode the
// error matches ErrDecode.
func (s *Stacker) Process(frames [][]byte, outputPath string) (int, error) {
	mats := make([]gocv.Mat, 0, len(frames))
	defer func() {
		for i := range mats {
			_ = mats[i].Close()
		}
	}()

	var decodeErrs []error
	for i, data := range frames {
		img, err := Decode(data)
		if err != nil {
			s.logger.Warn("frame did not decode", "frame", i, "bytes", len(data), "error", err)
			decodeErrs = append(decodeErrs, err)
			continue
		}
		mats = append(mats, img)
	}
	if len(mats) == 0 {
		if len(decodeErrs) == 0 {
			return 0, ErrNoFrames
		}

		return 0, fmt.Errorf("no decodable frames: %w", errors.Join(decodeErrs...))
	}

	stacked, used, err := Stack(mats, s.logger)
	if err != nil {
		return len(mats), err
	}
	defer stacked.Close()

	if err := Save(outputPath, stacked); err != nil {
		return len(mats), err
	}
	s.logger.Debug("stacked image saved", "path", outputPath, "decoded", len(mats), "stacked", used)

	return len(mats), nil
}
