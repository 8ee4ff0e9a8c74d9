package rpc

import "fmt"

const (
	kindRequest  byte = 0x01
	kindResponse byte = 0x02

	statusOK       byte = 0x00
	statusNoResult byte = 0x01

	requestHeaderLen  = 3
	responseHeaderLen = 3

	// MaxNameLen bounds procedure names so the length fits one byte.
	MaxNameLen = 255
	// MaxResponseData is the largest result a single response frame can carry.
	MaxResponseData = maxFramePayload - responseHeaderLen
)

type request struct {
	seq  uint8
	name string
	args []byte
}

type response struct {
	seq    uint8
	status byte
	data   []byte
}

func encodeRequest(req request) ([]byte, error) {
	if req.name == "" || len(req.name) > MaxNameLen {
		return nil, fmt.Errorf("%w: procedure name length %d", ErrMalformedEnvelope, len(req.name))
	}
	size := requestHeaderLen + len(req.name) + len(req.args)
	if size > maxFramePayload {
		return nil, fmt.Errorf("%w: request too large: %d", ErrMalformedEnvelope, size)
	}

	out := make([]byte, 0, size)
	// #nosec G115 -- bounded by MaxNameLen above.
	out = append(out, kindRequest, req.seq, byte(len(req.name)))
	out = append(out, req.name...)
	out = append(out, req.args...)

	return out, nil
}

func decodeRequest(payload []byte) (request, error) {
	if len(payload) < requestHeaderLen || payload[0] != kindRequest {
		return request{}, fmt.Errorf("%w: not a request", ErrMalformedEnvelope)
	}
	nameLen := int(payload[2])
	if nameLen == 0 || len(payload) < requestHeaderLen+nameLen {
		return request{}, fmt.Errorf("%w: truncated procedure name", ErrMalformedEnvelope)
	}
	body := payload[requestHeaderLen:]

	return request{
		seq:  payload[1],
		name: string(body[:nameLen]),
		args: body[nameLen:],
	}, nil
}

func encodeResponse(resp response) ([]byte, error) {
	if len(resp.data) > MaxResponseData {
		return nil, fmt.Errorf("%w: response too large: %d", ErrMalformedEnvelope, len(resp.data))
	}
	out := make([]byte, 0, responseHeaderLen+len(resp.data))
	out = append(out, kindResponse, resp.seq, resp.status)
	out = append(out, resp.data...)

	return out, nil
}

func decodeResponse(payload []byte) (response, error) {
	if len(payload) < responseHeaderLen || payload[0] != kindResponse {
		return response{}, fmt.Errorf("%w: not a response", ErrMalformedEnvelope)
	}

	return response{
		seq:    payload[1],
		status: payload[2],
		data:   payload[responseHeaderLen:],
	}, nil
}
