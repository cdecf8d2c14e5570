package proctor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cgpaplus/exam-core/internal/examclient"
	"github.com/cgpaplus/exam-core/internal/model"
)

type fakeAPI struct {
	mu          sync.Mutex
	status      *model.ExamStatusResponse
	statusErr   error
	progressErr error
	submitErr   error
	progress    []model.UpdateProgressRequest
	submits     []model.SubmitExamRequest
	// progressDelay holds each progress post before it is applied.
	progressDelay time.Duration
	// events records "progress" and "submit" in the order they were applied.
	events []string
	// gate, when set, holds Submit until closed; entered is signalled first.
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeAPI) Status(context.Context) (*model.ExamStatusResponse, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.status != nil {
		return f.status, nil
	}
	return &model.ExamStatusResponse{}, nil
}

func (f *fakeAPI) UpdateProgress(ctx context.Context, req model.UpdateProgressRequest) error {
	f.mu.Lock()
	delay := f.progressDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, req)
	f.events = append(f.events, "progress")
	return f.progressErr
}

func (f *fakeAPI) Submit(_ context.Context, req model.SubmitExamRequest) (*model.SubmitExamResponse, error) {
	f.mu.Lock()
	f.submits = append(f.submits, req)
	f.events = append(f.events, "submit")
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &model.SubmitExamResponse{
		ResultSummary: model.ResultSummary{TotalCorrect: len(req.Answers), TotalQuestions: 4},
		Message:       "Exam submitted successfully",
	}, nil
}

func (f *fakeAPI) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submits)
}

type fakeCaps struct {
	mu            sync.Mutex
	fullscreenErr error
	acquired      int
	released      int
	visibility    func(bool)
	fsExit        func()
	navLocked     bool
	visCancelled  bool
}

func (c *fakeCaps) AcquireFullscreen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquired++
	return c.fullscreenErr
}

func (c *fakeCaps) ReleaseFullscreen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released++
	return nil
}

func (c *fakeCaps) OnVisibilityChange(cb func(hidden bool)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visibility = cb
	return func() {
		c.mu.Lock()
		c.visCancelled = true
		c.mu.Unlock()
	}
}

func (c *fakeCaps) OnFullscreenExit(cb func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fsExit = cb
	return func() {}
}

func (c *fakeCaps) LockNavigation() (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navLocked = true
	return func() {
		c.mu.Lock()
		c.navLocked = false
		c.mu.Unlock()
	}, nil
}

// hide simulates the tab becoming hidden. It calls the callback the way a
// browser event loop would, regardless of whether it was cancelled.
func (c *fakeCaps) hide() {
	c.mu.Lock()
	cb := c.visibility
	c.mu.Unlock()
	cb(true)
}

var testLayout = []Section{
	{Title: "FCP - Passage 1", Round: 1, Questions: []string{"Q1", "Q2"}},
	{Title: "DSA - Passage 1", Round: 2, Questions: []string{"Q3", "Q4"}},
}

func startSession(t *testing.T, api *fakeAPI, caps *fakeCaps, opts ...Option) *Session {
	t.Helper()
	s, err := NewSession(api, caps, testLayout, opts...)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func TestAlreadyTaken(t *testing.T) {
	api := &fakeAPI{status: &model.ExamStatusResponse{Taken: true, Result: &model.ResultSummary{TotalCorrect: 40}}}
	caps := &fakeCaps{}
	s := startSession(t, api, caps)

	if s.State() != StateAlreadyTaken {
		t.Fatalf("state = %v", s.State())
	}
	if s.PreviousResult() == nil || s.PreviousResult().TotalCorrect != 40 {
		t.Errorf("previous = %+v", s.PreviousResult())
	}
	if caps.acquired != 0 || caps.navLocked {
		t.Error("screen guards engaged for a finished exam")
	}
	if err := s.SelectAnswer("Q1", "A"); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("SelectAnswer err = %v", err)
	}
}

func TestStatusFailureStillStartsExam(t *testing.T) {
	s := startSession(t, &fakeAPI{statusErr: errors.New("network down")}, &fakeCaps{})
	if s.State() != StateInProgress {
		t.Fatalf("state = %v, want in_progress", s.State())
	}
}

func TestStartTwice(t *testing.T) {
	s := startSession(t, &fakeAPI{}, &fakeCaps{})
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("err = %v", err)
	}
}

func TestViolationsAutoSubmitExactlyOnce(t *testing.T) {
	api := &fakeAPI{}
	caps := &fakeCaps{}
	var warnings []int
	s := startSession(t, api, caps, WithHooks(Hooks{
		OnViolation: func(count, limit int) {
			if limit != ViolationLimit {
				t.Errorf("limit = %d", limit)
			}
			warnings = append(warnings, count)
		},
	}))

	if err := s.SelectAnswer("Q1", "B"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	caps.visibility(false) // becoming visible is not a violation
	caps.hide()
	caps.hide()
	if api.submitCount() != 0 {
		t.Fatal("submitted before the third violation")
	}
	caps.hide()
	caps.hide()
	caps.hide()

	if got := api.submitCount(); got != 1 {
		t.Fatalf("submit calls = %d, want 1", got)
	}
	if s.State() != StateCompleted || s.Reason() != ReasonViolations {
		t.Errorf("state=%v reason=%v", s.State(), s.Reason())
	}
	if len(warnings) != 3 || warnings[2] != 3 {
		t.Errorf("warnings = %v, want [1 2 3]", warnings)
	}
	if s.Violations() != 3 {
		t.Errorf("violations = %d", s.Violations())
	}
	if len(api.submits[0].Answers) != 1 {
		t.Errorf("submitted answers = %+v", api.submits[0].Answers)
	}
	s.Wait()
}

func TestConcurrentViolationsAndManualSubmit(t *testing.T) {
	api := &fakeAPI{gate: make(chan struct{}), entered: make(chan struct{}, 8)}
	caps := &fakeCaps{}
	s := startSession(t, api, caps)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			caps.hide()
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.Submit(context.Background())
	}()

	<-api.entered
	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("Submit during in-flight submit err = %v", err)
	}
	close(api.gate)
	wg.Wait()

	if got := api.submitCount(); got != 1 {
		t.Fatalf("submit calls = %d, want 1", got)
	}
	if s.State() != StateCompleted {
		t.Errorf("state = %v", s.State())
	}
}

func TestFullscreenFailureIsNotFatal(t *testing.T) {
	caps := &fakeCaps{fullscreenErr: errors.New("denied by browser")}
	s := startSession(t, &fakeAPI{}, caps)

	if s.State() != StateInProgress {
		t.Fatalf("state = %v", s.State())
	}
	if err := s.SelectAnswer("Q1", "A"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	caps.fsExit()
	caps.fsExit()
	if caps.acquired != 3 {
		t.Errorf("acquire attempts = %d, want 3", caps.acquired)
	}
	s.Wait()
}

func TestProgressFailureIsAbsorbed(t *testing.T) {
	api := &fakeAPI{progressErr: &examclient.APIError{Status: 500, Code: "INTERNAL_ERROR"}}
	s := startSession(t, api, &fakeCaps{})

	if err := s.SelectAnswer("Q1", "A"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	if err := s.SelectAnswer("Q2", "C"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}
	s.Wait()

	if s.State() != StateInProgress || s.Answered() != 2 {
		t.Fatalf("state=%v answered=%d", s.State(), s.Answered())
	}

	api.mu.Lock()
	posts := append([]model.UpdateProgressRequest(nil), api.progress...)
	api.mu.Unlock()
	if len(posts) != 2 {
		t.Fatalf("progress posts = %d, want 2", len(posts))
	}
	for _, p := range posts {
		if p.CurrentSection != "FCP - Passage 1" || p.CurrentRound != 1 || p.StartedAt == nil {
			t.Errorf("progress = %+v", p)
		}
	}

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
}

func TestSubmitErrorIsPassedThrough(t *testing.T) {
	api := &fakeAPI{submitErr: &examclient.APIError{Status: 409, Code: "ALREADY_SUBMITTED", Message: "Exam already submitted."}}
	caps := &fakeCaps{}
	s := startSession(t, api, caps)

	_, err := s.Submit(context.Background())
	if err == nil || err.Error() != "Exam already submitted." {
		t.Fatalf("err = %v", err)
	}
	if s.State() != StateFailed || s.Err() == nil {
		t.Errorf("state=%v err=%v", s.State(), s.Err())
	}

	if _, err := s.Submit(context.Background()); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("retry err = %v", err)
	}
	if api.submitCount() != 1 {
		t.Errorf("submit calls = %d, want 1", api.submitCount())
	}
}

func TestSectionsAndFinishSubmits(t *testing.T) {
	api := &fakeAPI{}
	caps := &fakeCaps{}
	var states []State
	var mu sync.Mutex
	s := startSession(t, api, caps, WithHooks(Hooks{OnStateChange: func(st State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	}}))

	if err := s.SelectAnswer("Q3", "A"); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("answer outside section err = %v", err)
	}
	if err := s.SelectAnswer("Q1", "E"); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("bad option err = %v", err)
	}

	_ = s.SelectAnswer("Q2", "B")
	if _, err := s.NextSection(); !errors.Is(err, ErrSectionIncomplete) {
		t.Fatalf("NextSection err = %v", err)
	}
	_ = s.SelectAnswer("Q1", "A")
	_ = s.SelectAnswer("Q1", "D") // change of mind keeps the original position
	if submitted, err := s.NextSection(); err != nil || submitted {
		t.Fatalf("NextSection = %v, %v", submitted, err)
	}
	if sec, idx := s.CurrentSection(); idx != 1 || sec.Round != 2 {
		t.Errorf("section = %d round %d", idx, sec.Round)
	}

	_ = s.SelectAnswer("Q3", "C")
	_ = s.SelectAnswer("Q4", "A")
	submitted, err := s.NextSection()
	if err != nil || !submitted {
		t.Fatalf("final NextSection = %v, %v", submitted, err)
	}
	s.Wait()

	if s.Reason() != ReasonFinished || s.Result() == nil {
		t.Errorf("reason=%v result=%v", s.Reason(), s.Result())
	}
	want := []model.SubmittedAnswer{
		{QuestionID: "Q2", SelectedOption: "B"},
		{QuestionID: "Q1", SelectedOption: "D"},
		{QuestionID: "Q3", SelectedOption: "C"},
		{QuestionID: "Q4", SelectedOption: "A"},
	}
	got := api.submits[0].Answers
	if len(got) != len(want) {
		t.Fatalf("answers = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("answer %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if caps.navLocked || !caps.visCancelled || caps.released != 1 {
		t.Errorf("guards not released: nav=%v visCancelled=%v released=%d", caps.navLocked, caps.visCancelled, caps.released)
	}

	mu.Lock()
	defer mu.Unlock()
	wantStates := []State{StateChecking, StateInProgress, StateCompleting, StateCompleted}
	if len(states) != len(wantStates) {
		t.Fatalf("states = %v", states)
	}
	for i := range wantStates {
		if states[i] != wantStates[i] {
			t.Errorf("state %d = %v, want %v", i, states[i], wantStates[i])
		}
	}
}

func TestTickerAndFrozenElapsed(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	ticks := make(chan time.Duration, 16)
	s := startSession(t, &fakeAPI{}, &fakeCaps{},
		WithClock(clock),
		WithTickInterval(time.Millisecond),
		WithHooks(Hooks{OnTick: func(d time.Duration) {
			select {
			case ticks <- d:
			default:
			}
		}}),
	)

	advance(5 * time.Second)
	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("no tick received")
	}
	if got := s.Elapsed(); got != 5*time.Second {
		t.Errorf("elapsed = %v, want 5s", got)
	}

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	advance(time.Minute)
	if got := s.Elapsed(); got != 5*time.Second {
		t.Errorf("elapsed after submit = %v, want frozen at 5s", got)
	}
}

func TestLayout(t *testing.T) {
	layout, err := DefaultLayout()
	if err != nil {
		t.Fatalf("DefaultLayout: %v", err)
	}
	if len(layout) != 24 || QuestionCount(layout) != 72 {
		t.Errorf("sections=%d questions=%d, want 24 and 72", len(layout), QuestionCount(layout))
	}

	bad := []string{
		`[]`,
		`[{"title":"a","round":1,"questions":[]}]`,
		`[{"title":"a","round":1,"questions":["Q1"]},{"title":"b","round":1,"questions":["Q1"]}]`,
		`not json`,
	}
	for _, raw := range bad {
		if _, err := ParseLayout([]byte(raw)); err == nil {
			t.Errorf("ParseLayout(%s) succeeded", raw)
		}
	}

	if _, err := NewSession(&fakeAPI{}, nil, nil); !errors.Is(err, ErrEmptyLayout) {
		t.Errorf("NewSession(empty) err = %v", err)
	}
}

func TestSubmitWaitsForProgressInFlight(t *testing.T) {
	api := &fakeAPI{progressDelay: 50 * time.Millisecond}
	layout := []Section{{Title: "Only", Round: 1, Questions: []string{"Q1", "Q2"}}}
	s, err := NewSession(api, &fakeCaps{}, layout)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, q := range []string{"Q1", "Q2"} {
		if err := s.SelectAnswer(q, "B"); err != nil {
			t.Fatalf("SelectAnswer(%s): %v", q, err)
		}
	}
	submitted, err := s.NextSection()
	if err != nil || !submitted {
		t.Fatalf("NextSection = %v, %v", submitted, err)
	}
	s.Wait()

	api.mu.Lock()
	defer api.mu.Unlock()
	want := []string{"progress", "progress", "submit"}
	if len(api.events) != len(want) {
		t.Fatalf("events = %v, want %v", api.events, want)
	}
	for i := range want {
		if api.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", api.events, want)
		}
	}
}

func TestSubmitDoesNotWaitPastProgressTimeout(t *testing.T) {
	api := &fakeAPI{progressDelay: 5 * time.Second}
	layout := []Section{{Title: "Only", Round: 1, Questions: []string{"Q1"}}}
	s, err := NewSession(api, &fakeCaps{}, layout, WithProgressTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.SelectAnswer("Q1", "A"); err != nil {
		t.Fatalf("SelectAnswer: %v", err)
	}

	begin := time.Now()
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if took := time.Since(begin); took > time.Second {
		t.Errorf("Submit took %v, want it bounded by the progress timeout", took)
	}
	s.Wait()

	if api.submitCount() != 1 || s.State() != StateCompleted {
		t.Errorf("submits = %d, state = %s", api.submitCount(), s.State())
	}
}
