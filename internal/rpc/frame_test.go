package rpc

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReadFrameResyncsToHeader(t *testing.T) {
	tests := []struct {
		name  string
		noise []byte
	}{
		{name: "no noise"},
		{name: "garbage", noise: []byte{0x00, 0x11, 0x22}},
		{name: "partial magic", noise: []byte{frameHeader[0], 0x00}},
		{name: "repeated first magic byte", noise: []byte{frameHeader[0], frameHeader[0]}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := append([]byte{}, tc.noise...)
			raw = append(raw, frameHeader[0], frameHeader[1], 0x00, 0x03, 0x01, 0x02, 0x03)

			got, err := readFrame(ioReadFullFunc(bytes.NewReader(raw)))
			if err != nil {
				t.Fatalf("read frame: %v", err)
			}
			if !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
				t.Fatalf("payload mismatch: got %x", got)
			}
		})
	}
}

func TestReadFrameRejectsZeroLength(t *testing.T) {
	raw := bytes.NewBuffer([]byte{frameHeader[0], frameHeader[1], 0x00, 0x00})

	_, err := readFrame(ioReadFullFunc(raw))
	if !errors.Is(err, ErrFrame) {
		t.Fatalf("expected ErrFrame, got %v", err)
	}
}

func TestEncodeFrameBounds(t *testing.T) {
	if _, err := encodeFrame(nil); !errors.Is(err, ErrFrame) {
		t.Fatalf("expected ErrFrame for empty payload, got %v", err)
	}
	if _, err := encodeFrame(make([]byte, maxFramePayload+1)); !errors.Is(err, ErrFrame) {
		t.Fatalf("expected ErrFrame for oversized payload, got %v", err)
	}
}

func TestEncodeFrameAndReadFrameRoundTrip(t *testing.T) {
	payload := []byte("hello")
	frame, err := encodeFrame(payload)
	if err != nil {
		t.Fatalf("encode frame: %v", err)
	}

	got, err := readFrame(ioReadFullFunc(bytes.NewReader(frame)))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: got %q want %q", got, payload)
	}
}

func TestReadFramePayloadEOF(t *testing.T) {
	raw := bytes.NewBuffer([]byte{frameHeader[0], frameHeader[1], 0x00, 0x04, 0x01, 0x02})

	_, err := readFrame(ioReadFullFunc(raw))
	if err == nil {
		t.Fatalf("expected payload read error, got nil")
	}
	if err == io.ErrUnexpectedEOF {
		t.Fatalf("expected wrapped error, got raw io.ErrUnexpectedEOF")
	}
}
