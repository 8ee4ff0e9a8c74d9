package rpc

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

var frameHeader = [2]byte{0x94, 0xC3}

const (
	frameHeaderLen  = 4
	maxFramePayload = math.MaxUint16
)

type readFullFunc func(buf []byte) error

func encodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrFrame)
	}
	if len(payload) > maxFramePayload {
		return nil, fmt.Errorf("%w: payload too large: %d", ErrFrame, len(payload))
	}

	frame := make([]byte, frameHeaderLen+len(payload))
	frame[0] = frameHeader[0]
	frame[1] = frameHeader[1]
	// #nosec G115 -- length is bounded by maxFramePayload above.
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(payload)))
	copy(frame[frameHeaderLen:], payload)

	return frame, nil
}

// readFrame discards bytes until the frame magic, then reads one length-prefixed payload.
func readFrame(readFull readFullFunc) ([]byte, error) {
	if err := resyncToHeader(readFull); err != nil {
		return nil, err
	}

	var lenBuf [2]byte
	if err := readFull(lenBuf[:]); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}
	ln := int(binary.BigEndian.Uint16(lenBuf[:]))
	if ln == 0 {
		return nil, fmt.Errorf("%w: zero-length frame", ErrFrame)
	}

	payload := make([]byte, ln)
	if err := readFull(payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}

	return payload, nil
}

func resyncToHeader(readFull readFullFunc) error {
	var b [1]byte
	matched := false
	for {
		if err := readFull(b[:]); err != nil {
			return fmt.Errorf("read frame header: %w", err)
		}
		switch {
		case matched && b[0] == frameHeader[1]:
			return nil
		case b[0] == frameHeader[0]:
			matched = true
		default:
			matched = false
		}
	}
}

func ioReadFullFunc(r io.Reader) readFullFunc {
	return func(buf []byte) error {
		_, err := io.ReadFull(r, buf)

		return err
	}
}
