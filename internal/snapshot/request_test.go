package snapshot

import (
	"errors"
	"testing"
)

func TestRequestArgs(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{name: "default", req: DefaultRequest(), want: "sensor.GRAYSCALE,sensor.B128X128"},
		{name: "with rate", req: Request{PixelFormat: "sensor.RGB565", FrameSize: "sensor.QVGA", FrameRate: "30"}, want: "sensor.RGB565,sensor.QVGA,30"},
		{name: "trims", req: Request{PixelFormat: " a ", FrameSize: "b "}, want: "a,b"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.req.Validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
			if got := string(tc.req.Args()); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "missing format", req: Request{FrameSize: "sensor.QVGA"}},
		{name: "missing size", req: Request{PixelFormat: "sensor.GRAYSCALE"}},
		{name: "comma in tag", req: Request{PixelFormat: "a,b", FrameSize: "c"}},
		{name: "comma in rate", req: Request{PixelFormat: "a", FrameSize: "c", FrameRate: "1,2"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.req.Validate(); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}
