package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Reply is a handler's answer to one request.
type Reply struct {
	Data []byte
	// NoResult answers with the "no result" status instead of Data.
	NoResult bool
	// Stream is written raw right after the response frame.
	Stream []byte
	// Delay postpones the response.
	Delay time.Duration
	// Silent sends nothing, as if the request was lost.
	Silent bool
}

type HandlerFunc func(name string, args []byte) Reply

// Serve answers framed requests read from rw until ctx ends or rw fails.
// It is the device side of the link and blocks in reads, so callers stop it
// by closing rw.
func Serve(ctx context.Context, rw io.ReadWriter, handler HandlerFunc, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	readFull := ioReadFullFunc(rw)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := readFrame(readFull)
		if err != nil {
			if errors.Is(err, ErrFrame) {
				logger.Debug("skipping invalid frame", "error", err)
				continue
			}

			return err
		}
		req, err := decodeRequest(payload)
		if err != nil {
			logger.Debug("skipping malformed request", "error", err)
			continue
		}

		reply := handler(req.name, req.args)
		if reply.Silent {
			continue
		}
		if reply.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reply.Delay):
			}
		}

		status := statusOK
		if reply.NoResult {
			status = statusNoResult
		}
		out, err := encodeResponse(response{seq: req.seq, status: status, data: reply.Data})
		if err != nil {
			logger.Warn("cannot encode response", "procedure", req.name, "error", err)
			out, _ = encodeResponse(response{seq: req.seq, status: statusNoResult})
			reply.Stream = nil
		}
		frame, err := encodeFrame(out)
		if err != nil {
			return err
		}
		if err := writeFull(ctx, rw, frame); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if len(reply.Stream) > 0 {
			if err := writeFull(ctx, rw, reply.Stream); err != nil {
				return fmt.Errorf("write stream: %w", err)
			}
		}
	}
}
