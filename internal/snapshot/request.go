package snapshot

import (
	"fmt"
	"strings"
)

const (
	DefaultPixelFormat = "sensor.GRAYSCALE"
	DefaultFrameSize   = "sensor.B128X128"
)

// Request selects the sensor configuration used for a snapshot. The values
// are opaque tags understood by the device firmware.
type Request struct {
	PixelFormat string
	FrameSize   string
	FrameRate   string
}

func DefaultRequest() Request {
	return Request{PixelFormat: DefaultPixelFormat, FrameSize: DefaultFrameSize}
}

func (r Request) Validate() error {
	fields := []struct {
		name  string
		value string
		opt   bool
	}{
		{name: "pixel format", value: r.PixelFormat},
		{name: "frame size", value: r.FrameSize},
		{name: "frame rate", value: r.FrameRate, opt: true},
	}
	for _, f := range fields {
		value := strings.TrimSpace(f.value)
		if value == "" && !f.opt {
			return fmt.Errorf("%w: %s is required", ErrInvalidRequest, f.name)
		}
		if strings.Contains(value, ",") {
			return fmt.Errorf("%w: %s %q contains a comma", ErrInvalidRequest, f.name, value)
		}
	}

	return nil
}

// Args renders the request as "<format>,<size>[,<rate>]".
func (r Request) Args() []byte {
	parts := []string{strings.TrimSpace(r.PixelFormat), strings.TrimSpace(r.FrameSize)}
	if rate := strings.TrimSpace(r.FrameRate); rate != "" {
		parts = append(parts, rate)
	}

	return []byte(strings.Join(parts, ","))
}
