package connectors

const (
	TopicConnStatus     = "conn.status"
	TopicCaptureStarted = "capture.started"
	TopicFetchEvent     = "fetch.event"
	TopicCaptureResult  = "capture.result"
	TopicSessionState   = "session.state"
)
