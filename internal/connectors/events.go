package connectors

import "time"

// ConnectionState describes the link lifecycle state shown to the user.
type ConnectionState string

const (
	ConnectionStateDisconnected ConnectionState = "disconnected"
	ConnectionStateConnecting   ConnectionState = "connecting"
	ConnectionStateConnected    ConnectionState = "connected"
)

// ConnectionStatus is a bus event snapshot of current link status.
type ConnectionStatus struct {
	State         ConnectionState
	Err           string
	TransportName string
	Target        string
	Timestamp     time.Time
}

// FetchEvent mirrors a snapshot progress event for bus subscribers.
type FetchEvent struct {
	Kind        string
	Strategy    string
	Size        int
	ChunkOffset uint32
	ChunkLength uint32
	Attempt     int
	Elapsed     time.Duration
	Err         string
	Timestamp   time.Time
}

// CaptureStarted is published when a capture job leaves the queue.
type CaptureStarted struct {
	SessionID  string
	SlideIndex int
	OutputPath string
	Timestamp  time.Time
}

// CaptureResult summarizes a finished capture job.
type CaptureResult struct {
	CaptureID      string
	SessionID      string
	SlideIndex     int
	OutputPath     string
	FramesOK       int
	FramesAbsent   int
	DecodeFailures int
	Bytes          int
	Duration       time.Duration
	Err            string
	Timestamp      time.Time
}

func (r CaptureResult) Succeeded() bool {
	return r.Err == ""
}

type SessionStatus string

const (
	SessionStatusRunning  SessionStatus = "running"
	SessionStatusFinished SessionStatus = "finished"
	SessionStatusAborted  SessionStatus = "aborted"
)

// SessionState reports the lifecycle of a slideshow capture session.
type SessionState struct {
	SessionID   string
	Status      SessionStatus
	ImageFolder string
	OutputDir   string
	Strategy    string
	Slides      int
	Captured    int
	Failed      int
	Timestamp   time.Time
}
