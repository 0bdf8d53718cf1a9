package session

import (
	"errors"
	"testing"

	"github.com/zester4/fixium/engine/domain"
	"github.com/zester4/fixium/engine/guide"
)

func photo(id string, role domain.PhotoRole) domain.CapturedPhoto {
	return domain.CapturedPhoto{
		ID:        id,
		Role:      role,
		DataURL:   "data:image/jpeg;base64,aGVsbG8=",
		Timestamp: 1700000000000,
	}
}

func testGuide(steps int) domain.RepairGuide {
	g := domain.RepairGuide{
		ID:         "guide-1",
		DeviceInfo: domain.DeviceInfo{Category: domain.DevicePhone},
		Diagnosis: domain.DiagnosisResult{
			Difficulty:    domain.DifficultyBeginner,
			Confidence:    80,
			Repairability: domain.RepairabilityHigh,
		},
		CreatedAt: 1700000000000,
	}
	for i := 0; i < steps; i++ {
		g.Steps = append(g.Steps, domain.RepairStep{
			ID: "step", StepNumber: i + 1, Title: "t", Instruction: "i",
		})
	}
	return g
}

// readySession returns a session on the analyzing screen with a device and
// one photo.
func readySession(t *testing.T) *Session {
	t.Helper()
	s := New()
	if err := s.SetDevice(domain.DeviceInfo{Category: domain.DevicePhone, Model: "Pixel 6"}); err != nil {
		t.Fatalf("set device: %v", err)
	}
	if err := s.AddPhoto(photo("p1", domain.RoleFront)); err != nil {
		t.Fatalf("add photo: %v", err)
	}
	if err := s.BeginAnalysis(); err != nil {
		t.Fatalf("begin analysis: %v", err)
	}
	return s
}

func TestNew_StartsAtWelcome(t *testing.T) {
	s := New()
	if s.Screen() != ScreenWelcome {
		t.Fatalf("screen = %s", s.Screen())
	}
	if s.ID() == "" {
		t.Fatal("session id missing")
	}
	if New().ID() == s.ID() {
		t.Fatal("sessions must have distinct ids")
	}
}

func TestSetScreen_Unconditional(t *testing.T) {
	s := New()
	// Jumping ahead is allowed; the screen simply has nothing to show.
	s.SetScreen(ScreenRepairGuide)
	if s.Screen() != ScreenRepairGuide {
		t.Fatalf("screen = %s", s.Screen())
	}
	if _, ok := s.Guide(); ok {
		t.Fatal("no guide should exist")
	}
}

func TestBeginAnalysis_Prerequisites(t *testing.T) {
	s := New()
	if err := s.BeginAnalysis(); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("err = %v, want ErrNoDevice", err)
	}
	s.SetDevice(domain.DeviceInfo{Category: domain.DeviceLaptop})
	if err := s.BeginAnalysis(); !errors.Is(err, ErrNoPhotos) {
		t.Fatalf("err = %v, want ErrNoPhotos", err)
	}
	s.AddPhoto(photo("p1", domain.RoleProblem))
	if err := s.BeginAnalysis(); err != nil {
		t.Fatalf("err = %v", err)
	}
	if s.Screen() != ScreenAnalyzing {
		t.Fatalf("screen = %s", s.Screen())
	}
}

func TestApplyAnalysis_OnlyWhileAnalyzing(t *testing.T) {
	s := readySession(t)

	// Navigating away discards a late-arriving result.
	s.SetScreen(ScreenPhotoCapture)
	if err := s.ApplyAnalysis(testGuide(2)); !errors.Is(err, ErrNotAnalyzing) {
		t.Fatalf("err = %v, want ErrNotAnalyzing", err)
	}
	if _, ok := s.Guide(); ok {
		t.Fatal("stale guide must not be installed")
	}

	s.SetScreen(ScreenAnalyzing)
	if err := s.ApplyAnalysis(testGuide(2)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s.Screen() != ScreenDiagnosis {
		t.Fatalf("screen = %s", s.Screen())
	}
}

func TestFailAnalysis_KeepsPhotos(t *testing.T) {
	s := readySession(t)
	s.FailAnalysis()
	if s.Screen() != ScreenPhotoCapture {
		t.Fatalf("screen = %s", s.Screen())
	}
	if len(s.Photos()) != 1 {
		t.Fatal("photos must survive a failed analysis")
	}

	// FailAnalysis outside the analyzing screen is a no-op.
	s.SetScreen(ScreenDiagnosis)
	s.FailAnalysis()
	if s.Screen() != ScreenDiagnosis {
		t.Fatalf("screen = %s", s.Screen())
	}
}

func TestStepProgress_AndComplete(t *testing.T) {
	s := readySession(t)
	if err := s.ApplyAnalysis(testGuide(3)); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, _, err := s.Complete(); !errors.Is(err, ErrStepsIncomplete) {
		t.Fatalf("err = %v, want ErrStepsIncomplete", err)
	}

	s.MarkStepComplete(0)
	p, err := s.StepProgress()
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Completed != 1 || p.ExpandedStep != 1 || p.CurrentStep != 1 {
		t.Fatalf("progress = %+v", p)
	}

	s.MarkStepComplete(1)
	s.MarkStepComplete(2)
	p, _ = s.StepProgress()
	if !p.AllComplete || p.Fraction != 1 {
		t.Fatalf("progress = %+v", p)
	}

	g, first, err := s.Complete()
	if err != nil || !first {
		t.Fatalf("complete = (%v, %v)", first, err)
	}
	if g.ID != "guide-1" {
		t.Fatalf("guide id = %s", g.ID)
	}
	if s.Screen() != ScreenCompletion {
		t.Fatalf("screen = %s", s.Screen())
	}

	// A second Complete succeeds but is no longer the first: the history
	// recording happens at most once per session.
	_, first, err = s.Complete()
	if err != nil || first {
		t.Fatalf("second complete = (%v, %v)", first, err)
	}
}

func TestTrackerOpsRequireGuide(t *testing.T) {
	s := New()
	if err := s.ToggleStep(0); !errors.Is(err, ErrNoGuide) {
		t.Fatalf("err = %v", err)
	}
	if err := s.MarkStepComplete(0); !errors.Is(err, ErrNoGuide) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.StepProgress(); !errors.Is(err, ErrNoGuide) {
		t.Fatalf("err = %v", err)
	}
}

func TestReset_RestoresInitialState(t *testing.T) {
	s := readySession(t)
	s.ApplyAnalysis(testGuide(1))
	s.MarkStepComplete(0)
	s.Complete()

	s.Reset()

	if s.Screen() != ScreenWelcome {
		t.Fatalf("screen = %s", s.Screen())
	}
	if _, ok := s.Device(); ok {
		t.Fatal("device should be cleared")
	}
	if len(s.Photos()) != 0 {
		t.Fatal("photos should be cleared")
	}
	if _, ok := s.Guide(); ok {
		t.Fatal("guide should be cleared")
	}
	if _, err := s.StepProgress(); !errors.Is(err, ErrNoGuide) {
		t.Fatal("tracker should be cleared")
	}

	// After reset, a fresh run records history again.
	s.SetDevice(domain.DeviceInfo{Category: domain.DevicePhone})
	s.AddPhoto(photo("p2", domain.RoleFront))
	s.BeginAnalysis()
	s.ApplyAnalysis(testGuide(1))
	s.MarkStepComplete(0)
	if _, first, err := s.Complete(); err != nil || !first {
		t.Fatalf("complete after reset = (%v, %v)", first, err)
	}
}

func TestExpandedSentinel(t *testing.T) {
	s := readySession(t)
	s.ApplyAnalysis(testGuide(2))
	p, _ := s.StepProgress()
	if p.ExpandedStep != guide.NoneExpanded {
		t.Fatalf("expanded = %d, want sentinel", p.ExpandedStep)
	}
}
