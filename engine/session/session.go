// Package session holds the state for one user's end-to-end repair attempt,
// from device selection through completion. Sessions are explicit, injectable
// containers: independent sessions never share state.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/zester4/fixium/engine/capture"
	"github.com/zester4/fixium/engine/domain"
	"github.com/zester4/fixium/engine/guide"
)

// Screen identifies where the user is in the repair flow.
type Screen string

const (
	ScreenWelcome         Screen = "welcome"
	ScreenDeviceSelection Screen = "device-selection"
	ScreenPhotoCapture    Screen = "photo-capture"
	ScreenAnalyzing       Screen = "analyzing"
	ScreenDiagnosis       Screen = "diagnosis"
	ScreenRepairGuide     Screen = "repair-guide"
	ScreenPartsTools      Screen = "parts-tools" // overlay of repair-guide
	ScreenCompletion      Screen = "completion"
)

var (
	ErrNoDevice        = errors.New("no device selected")
	ErrNoPhotos        = errors.New("no photos captured")
	ErrNotAnalyzing    = errors.New("session is not analyzing")
	ErrNoGuide         = errors.New("no repair guide available")
	ErrStepsIncomplete = errors.New("not all steps are complete")
)

// Session is the state container for one repair attempt. All access goes
// through its methods; a mutex makes that safe for concurrent HTTP handlers.
type Session struct {
	mu      sync.Mutex
	id      string
	screen  Screen
	device  *domain.DeviceInfo
	photos  *capture.Collector
	guide   *domain.RepairGuide
	tracker *guide.Tracker
	saved   bool
}

// New creates a fresh session on the welcome screen.
func New() *Session {
	return &Session{
		id:     uuid.NewString(),
		screen: ScreenWelcome,
		photos: capture.New(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Screen returns the current screen.
func (s *Session) Screen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

// SetScreen assigns the screen unconditionally. The store does not verify
// that the target screen's data exists; callers that jump ahead get a screen
// with nothing to show. Backward navigation never clears collected data.
func (s *Session) SetScreen(screen Screen) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen = screen
}

// SetDevice records the device selection. The device is immutable for the
// session once analysis has produced a guide.
func (s *Session) SetDevice(d domain.DeviceInfo) error {
	if err := domain.ValidateDeviceInfo(d); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = &d
	return nil
}

// Device returns the selected device, if any.
func (s *Session) Device() (domain.DeviceInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return domain.DeviceInfo{}, false
	}
	return *s.device, true
}

// AddPhoto appends a captured photo.
func (s *Session) AddPhoto(p domain.CapturedPhoto) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photos.Add(p)
}

// RemovePhoto drops a photo by id; unknown ids are a no-op. Photos are never
// removed any other way within a session.
func (s *Session) RemovePhoto(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos.Remove(id)
}

// Photos returns the captured photos in order.
func (s *Session) Photos() []domain.CapturedPhoto {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photos.Photos()
}

// PhotosComplete reports whether every required role has a photo.
func (s *Session) PhotosComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photos.Complete()
}

// NextPhotoRole returns the first unsatisfied required role.
func (s *Session) NextPhotoRole() (domain.PhotoRole, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photos.NextRole()
}

// ContinueLabel returns the capture-screen CTA text.
func (s *Session) ContinueLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photos.ContinueLabel()
}

// BeginAnalysis moves the session onto the analyzing screen. A device and at
// least one photo are prerequisites.
func (s *Session) BeginAnalysis() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return ErrNoDevice
	}
	if !s.photos.CanProceed() {
		return ErrNoPhotos
	}
	s.screen = ScreenAnalyzing
	return nil
}

// ApplyAnalysis installs the finished guide and moves to the diagnosis
// screen. It is rejected unless the session is still analyzing, so a stale
// in-flight result arriving after the user navigated away is discarded.
func (s *Session) ApplyAnalysis(g domain.RepairGuide) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen != ScreenAnalyzing {
		return ErrNotAnalyzing
	}
	s.guide = &g
	s.tracker = guide.NewTracker(len(g.Steps))
	s.screen = ScreenDiagnosis
	return nil
}

// FailAnalysis routes a failed analysis back to photo capture. Captured
// photos stay intact so the user can retry without re-capturing.
func (s *Session) FailAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen == ScreenAnalyzing {
		s.screen = ScreenPhotoCapture
	}
}

// Guide returns the installed repair guide, if analysis has completed.
func (s *Session) Guide() (domain.RepairGuide, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guide == nil {
		return domain.RepairGuide{}, false
	}
	return *s.guide, true
}

// ToggleStep expands or collapses step i's detail panel.
func (s *Session) ToggleStep(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return ErrNoGuide
	}
	s.tracker.ToggleExpand(i)
	return nil
}

// MarkStepComplete marks step i complete.
func (s *Session) MarkStepComplete(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return ErrNoGuide
	}
	s.tracker.MarkComplete(i)
	return nil
}

// Progress describes guide progress for the repair-guide screen.
type Progress struct {
	CurrentStep  int     `json:"currentStep"`
	ExpandedStep int     `json:"expandedStep"`
	Completed    int     `json:"completed"`
	Total        int     `json:"total"`
	Fraction     float64 `json:"fraction"`
	AllComplete  bool    `json:"allComplete"`
}

// StepProgress returns a snapshot of the tracker state.
func (s *Session) StepProgress() (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return Progress{}, ErrNoGuide
	}
	return Progress{
		CurrentStep:  s.tracker.CurrentStep(),
		ExpandedStep: s.tracker.ExpandedStep(),
		Completed:    s.tracker.CompletedCount(),
		Total:        s.tracker.Steps(),
		Fraction:     s.tracker.Progress(),
		AllComplete:  s.tracker.AllComplete(),
	}, nil
}

// Complete moves to the completion screen once every step is done. The
// returned firstTime flag is true exactly once per session, guarding the
// history recording against repeats.
func (s *Session) Complete() (g domain.RepairGuide, firstTime bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guide == nil || s.tracker == nil {
		return domain.RepairGuide{}, false, ErrNoGuide
	}
	if !s.tracker.AllComplete() {
		return domain.RepairGuide{}, false, ErrStepsIncomplete
	}
	s.screen = ScreenCompletion
	first := !s.saved
	s.saved = true
	return *s.guide, first, nil
}

// Reset wipes all session state and returns to the welcome screen. History
// entries recorded elsewhere are unaffected.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen = ScreenWelcome
	s.device = nil
	s.photos = capture.New()
	s.guide = nil
	s.tracker = nil
	s.saved = false
}
