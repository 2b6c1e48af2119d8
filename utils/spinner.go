package utils

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const spinnerFrames = `⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏`

// Spinner is a progress indicator redrawn on a single terminal line.
type Spinner struct {
	// StopMsg is printed once the spinner is stopped.
	StopMsg string

	mu         sync.Mutex
	w          io.Writer
	message    string
	delay      time.Duration
	hideCursor bool
	lastWidth  int

	stop chan struct{}
	done chan struct{}
}

// NewSpinner returns a spinner printing msg to w every d.
func NewSpinner(w io.Writer, msg string, d time.Duration, hideCursor bool) *Spinner {
	return &Spinner{
		w:          w,
		message:    msg,
		delay:      d,
		hideCursor: hideCursor && runtime.GOOS != "windows",
	}
}

// Start launches the animation. Starting a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}
	if s.hideCursor {
		fmt.Fprint(s.w, "\033[?25l")
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stop, s.done)
}

func (s *Spinner) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.delay)
	defer ticker.Stop()

	for {
		for _, r := range spinnerFrames {
			s.mu.Lock()
			s.clear()
			out := fmt.Sprintf("%s %s", s.message, DecorateText(string(r), SuccessMessage))
			fmt.Fprint(s.w, out)
			s.lastWidth = utf8.RuneCountInString(out)
			s.mu.Unlock()

			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}
}

// Stop ends the animation, clears its line and prints StopMsg.
// It waits for the drawing goroutine to return.
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.clear()
	s.restoreCursor()
	if len(s.StopMsg) > 0 {
		fmt.Fprint(s.w, s.StopMsg)
	}
}

// RestoreCursor makes the cursor visible again.
func (s *Spinner) RestoreCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restoreCursor()
}

func (s *Spinner) restoreCursor() {
	if s.hideCursor {
		fmt.Fprint(s.w, "\033[?25h")
	}
}

// clear erases the last drawn frame. Caller must hold the lock.
func (s *Spinner) clear() {
	if s.lastWidth == 0 {
		return
	}
	fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.lastWidth)+"\r")
	s.lastWidth = 0
}
