package app

const (
	Name           = "mvcapture"
	ConfigFilename = "config.json"
	DBFilename     = "captures.db"
	LogFilename    = "mvcapture.log"

	writerQueueCapacity = 256
	recentSessionsLoad  = 20
)
