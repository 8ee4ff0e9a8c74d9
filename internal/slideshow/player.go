// Package slideshow shows a folder of images one after another and asks
// for a camera capture of each slide while it is on screen.
package slideshow

import (
	"errors"
	"time"
)

// Step is what the caller must do after a tick.
type Step struct {
	// Show is the image to put on screen; empty when the slide is unchanged.
	Show string
	// Capture is set when a capture for CaptureIndex must be requested.
	Capture      bool
	CaptureIndex int
	Done         bool
}

// Player is the slideshow state machine. It is not safe for concurrent use.
type Player struct {
	images []string
	delay  time.Duration

	started    bool
	done       bool
	shown      int
	slideStart time.Time
	captured   bool
	inFlight   bool
}

func NewPlayer(images []string, delay time.Duration) (*Player, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	if delay <= 0 {
		return nil, errors.New("slideshow: delay must be positive")
	}

	return &Player{images: images, delay: delay}, nil
}

func (p *Player) Slides() int {
	return len(p.images)
}

// Current returns the output index of the slide on screen; it equals the
// number of slides shown before it.
func (p *Player) Current() int {
	return p.shown
}

func (p *Player) Done() bool {
	return p.done
}

// Step advances the player to now.
func (p *Player) Step(now time.Time) Step {
	if p.done {
		return Step{Done: true}
	}

	var st Step
	if !p.started {
		p.started = true
		p.slideStart = now
		st.Show = p.images[0]
	}

	if now.Sub(p.slideStart) >= p.delay {
		p.shown++
		p.slideStart = now
		p.captured = false
		if p.shown >= len(p.images) {
			p.done = true

			return Step{Done: true}
		}
		st.Show = p.images[p.shown]
	}

	if !p.captured && !p.inFlight && now.Sub(p.slideStart) >= p.delay/2 {
		p.inFlight = true
		st.Capture = true
		st.CaptureIndex = p.shown
	}

	return st
}

// CaptureFinished reports the outcome of the capture requested for index.
// A failed capture is requested again while the same slide is showing.
func (p *Player) CaptureFinished(index int, ok bool) {
	p.inFlight = false
	if ok && index == p.shown {
		p.captured = true
	}
}
