package capture

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/richbai90/mvcapture/internal/connectors"
)

// Session groups the captures of one slideshow run.
type Session struct {
	ID          string
	ImageFolder string
	OutputDir   string
	Strategy    string
	Slides      int
	StartedAt   time.Time

	mu       sync.Mutex
	captured int
	failed   int
}

func NewSession(imageFolder, outputDir, strategy string, slides int) *Session {
	return &Session{
		ID:          uuid.New().String(),
		ImageFolder: imageFolder,
		OutputDir:   outputDir,
		Strategy:    strategy,
		Slides:      slides,
		StartedAt:   time.Now(),
	}
}

// Job builds the capture job for the given output index; the image lands
// in "<output dir>/<index>.jpg".
func (s *Session) Job(index int) Job {
	return Job{
		SessionID:  s.ID,
		SlideIndex: index,
		OutputPath: filepath.Join(s.OutputDir, fmt.Sprintf("%d.jpg", index)),
	}
}

func (s *Session) Record(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Err != nil {
		s.failed++

		return
	}
	s.captured++
}

func (s *Session) Counts() (captured, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.captured, s.failed
}

func (s *Session) State(status connectors.SessionStatus) connectors.SessionState {
	captured, failed := s.Counts()

	return connectors.SessionState{
		SessionID:   s.ID,
		Status:      status,
		ImageFolder: s.ImageFolder,
		OutputDir:   s.OutputDir,
		Strategy:    s.Strategy,
		Slides:      s.Slides,
		Captured:    captured,
		Failed:      failed,
		Timestamp:   time.Now(),
	}
}

// PublishSession announces a session state change on the bus.
func (s *Service) PublishSession(sess *Session, status connectors.SessionStatus) {
	s.publish(connectors.TopicSessionState, sess.State(status))
}
