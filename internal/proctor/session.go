// Package proctor drives one participant's exam: it checks whether the exam
// was already taken, guards the screen while it runs, counts tab-switch
// violations and submits exactly once.
package proctor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ViolationLimit is the number of hidden-tab events that forces submission.
const ViolationLimit = 3

// State is the lifecycle position of a Session.
type State int

const (
	StateNotStarted State = iota
	StateChecking
	StateAlreadyTaken
	StateInProgress
	StateCompleting
	StateCompleted
	// StateFailed is terminal: the submit call returned an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateChecking:
		return "checking"
	case StateAlreadyTaken:
		return "already_taken"
	case StateInProgress:
		return "in_progress"
	case StateCompleting:
		return "completing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SubmitReason records what triggered submission.
type SubmitReason string

const (
	ReasonManual     SubmitReason = "manual"
	ReasonViolations SubmitReason = "violations"
	ReasonFinished   SubmitReason = "finished"
)

// Session errors.
var (
	ErrAlreadyStarted    = errors.New("session already started")
	ErrNotInProgress     = errors.New("session is not in progress")
	ErrUnknownQuestion   = errors.New("question is not in the current section")
	ErrInvalidOption     = errors.New("option must be one of A, B, C, D")
	ErrSectionIncomplete = errors.New("current section has unanswered questions")
)

// ExamAPI is the subset of the exam endpoints a participant uses.
type ExamAPI interface {
	Status(ctx context.Context) (*model.ExamStatusResponse, error)
	UpdateProgress(ctx context.Context, req model.UpdateProgressRequest) error
	Submit(ctx context.Context, req model.SubmitExamRequest) (*model.SubmitExamResponse, error)
}

// Hooks lets a UI react to the session. Any field may be nil. Hooks are
// never called while the session holds its lock.
type Hooks struct {
	OnStateChange func(State)
	// OnViolation shows the blocking "count of limit" warning.
	OnViolation func(count, limit int)
	// OnTick fires once per tick interval with the display-only elapsed time.
	OnTick func(elapsed time.Duration)
}

// Option customises a Session.
type Option func(*Session)

// WithHooks installs UI hooks.
func WithHooks(h Hooks) Option {
	return func(s *Session) { s.hooks = h }
}

// WithTickInterval changes the elapsed-time display tick (default 1s).
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.tickInterval = d }
}

// WithProgressTimeout bounds each fire-and-forget progress post and the
// wait for posts still in flight when the exam is submitted.
func WithProgressTimeout(d time.Duration) Option {
	return func(s *Session) { s.progressTimeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is one participant's run through the exam.
type Session struct {
	api             ExamAPI
	caps            Capabilities
	layout          []Section
	hooks           Hooks
	tickInterval    time.Duration
	progressTimeout time.Duration
	now             func() time.Time
	log             zerolog.Logger

	inflight sync.WaitGroup

	mu         sync.Mutex
	ctx        context.Context
	state      State
	violations int
	sectionIdx int
	answers    map[string]string
	order      []string
	startedAt  time.Time
	elapsed    time.Duration
	stop       chan struct{}
	releasers  []func()
	reason     SubmitReason
	previous   *model.ResultSummary
	result     *model.SubmitExamResponse
	err        error
}

// ErrEmptyLayout is returned by NewSession for a layout with no sections.
var ErrEmptyLayout = errors.New("layout has no sections")

// NewSession creates a session over layout. A nil caps means NopCapabilities.
func NewSession(api ExamAPI, caps Capabilities, layout []Section, opts ...Option) (*Session, error) {
	if len(layout) == 0 {
		return nil, ErrEmptyLayout
	}
	if caps == nil {
		caps = NopCapabilities{}
	}
	s := &Session{
		api:             api,
		caps:            caps,
		layout:          layout,
		tickInterval:    time.Second,
		progressTimeout: 5 * time.Second,
		now:             time.Now,
		log:             log.With().Str("component", "proctor").Logger(),
		answers:         make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start checks the participant's status and either stops at AlreadyTaken or
// begins the exam. A failed status check does not block the exam; the
// server still rejects a second submission.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateNotStarted {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.ctx = ctx
	s.state = StateChecking
	s.mu.Unlock()
	s.notify(StateChecking)

	status, err := s.api.Status(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("status check failed, starting exam anyway")
	} else if status.Taken {
		s.mu.Lock()
		s.state = StateAlreadyTaken
		s.previous = status.Result
		s.mu.Unlock()
		s.notify(StateAlreadyTaken)
		return nil
	}

	s.begin()
	return nil
}

func (s *Session) begin() {
	stop := make(chan struct{})
	s.mu.Lock()
	s.state = StateInProgress
	s.startedAt = s.now()
	s.stop = stop
	s.mu.Unlock()
	s.notify(StateInProgress)

	if err := s.caps.AcquireFullscreen(); err != nil {
		s.log.Warn().Err(err).Msg("fullscreen request failed")
	}

	releasers := []func(){
		s.caps.OnVisibilityChange(s.handleVisibility),
		s.caps.OnFullscreenExit(s.handleFullscreenExit),
	}
	if unlock, err := s.caps.LockNavigation(); err != nil {
		s.log.Warn().Err(err).Msg("navigation lock failed")
	} else if unlock != nil {
		releasers = append(releasers, unlock)
	}

	// A violation burst may already have submitted while we were registering.
	s.mu.Lock()
	if s.state == StateInProgress {
		s.releasers = releasers
		releasers = nil
	}
	s.mu.Unlock()
	for _, release := range releasers {
		release()
	}

	go s.tick(stop)
}

func (s *Session) tick(stop <-chan struct{}) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if s.hooks.OnTick != nil {
				s.hooks.OnTick(s.Elapsed())
			}
		}
	}
}

func (s *Session) handleVisibility(hidden bool) {
	if !hidden {
		return
	}

	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return
	}
	s.violations++
	count := s.violations
	ctx := s.ctx
	s.mu.Unlock()

	if s.hooks.OnViolation != nil {
		s.hooks.OnViolation(count, ViolationLimit)
	}
	s.log.Warn().Int("violations", count).Msg("tab hidden during exam")

	if count >= ViolationLimit {
		if _, err := s.submit(ctx, ReasonViolations); err != nil && !errors.Is(err, ErrNotInProgress) {
			s.log.Error().Err(err).Msg("auto submit failed")
		}
	}
}

func (s *Session) handleFullscreenExit() {
	s.mu.Lock()
	active := s.state == StateInProgress
	s.mu.Unlock()

	if !active {
		return
	}
	if err := s.caps.AcquireFullscreen(); err != nil {
		s.log.Debug().Err(err).Msg("fullscreen re-acquire failed")
	}
}

// SelectAnswer records letter for qid in the current section and posts
// progress in the background. It never waits on the network.
func (s *Session) SelectAnswer(qid, letter string) error {
	switch letter {
	case "A", "B", "C", "D":
	default:
		return ErrInvalidOption
	}

	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return ErrNotInProgress
	}
	sec := s.layout[s.sectionIdx]
	if !contains(sec.Questions, qid) {
		s.mu.Unlock()
		return ErrUnknownQuestion
	}
	if _, ok := s.answers[qid]; !ok {
		s.order = append(s.order, qid)
	}
	s.answers[qid] = letter

	startedAt := s.startedAt
	req := model.UpdateProgressRequest{
		AnsweredCount:  len(s.answers),
		CurrentSection: sec.Title,
		CurrentRound:   sec.Round,
		StartedAt:      &startedAt,
	}
	ctx := s.ctx
	s.inflight.Add(1)
	s.mu.Unlock()

	go s.postProgress(ctx, req)
	return nil
}

func (s *Session) postProgress(ctx context.Context, req model.UpdateProgressRequest) {
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, s.progressTimeout)
	defer cancel()

	if err := s.api.UpdateProgress(ctx, req); err != nil {
		s.log.Warn().Err(err).Int("answered", req.AnsweredCount).Msg("progress update dropped")
	}
}

// drainProgress waits, at most progressTimeout, for progress posts still in
// flight. A post landing after the submit would mark the row active again.
func (s *Session) drainProgress() {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.progressTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.log.Warn().Dur("timeout", s.progressTimeout).Msg("submitting with progress posts still in flight")
	}
}

// NextSection advances once every question on the current page is
// answered. Leaving the last section submits the exam.
func (s *Session) NextSection() (submitted bool, err error) {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return false, ErrNotInProgress
	}
	for _, q := range s.layout[s.sectionIdx].Questions {
		if _, ok := s.answers[q]; !ok {
			s.mu.Unlock()
			return false, ErrSectionIncomplete
		}
	}
	if s.sectionIdx < len(s.layout)-1 {
		s.sectionIdx++
		s.mu.Unlock()
		return false, nil
	}
	ctx := s.ctx
	s.mu.Unlock()

	_, err = s.submit(ctx, ReasonFinished)
	return true, err
}

// Submit sends the answers now. Only the first call reaches the server;
// later calls, and calls racing an auto submit, get ErrNotInProgress.
func (s *Session) Submit(ctx context.Context) (*model.SubmitExamResponse, error) {
	return s.submit(ctx, ReasonManual)
}

func (s *Session) submit(ctx context.Context, reason SubmitReason) (*model.SubmitExamResponse, error) {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return nil, ErrNotInProgress
	}
	s.state = StateCompleting
	s.reason = reason
	s.elapsed = s.now().Sub(s.startedAt)
	close(s.stop)
	releasers := s.releasers
	s.releasers = nil

	answers := make([]model.SubmittedAnswer, 0, len(s.order))
	for _, qid := range s.order {
		answers = append(answers, model.SubmittedAnswer{QuestionID: qid, SelectedOption: s.answers[qid]})
	}
	startedAt := s.startedAt
	s.mu.Unlock()
	s.notify(StateCompleting)

	for _, release := range releasers {
		release()
	}
	if err := s.caps.ReleaseFullscreen(); err != nil {
		s.log.Debug().Err(err).Msg("fullscreen release failed")
	}
	s.drainProgress()

	resp, err := s.api.Submit(ctx, model.SubmitExamRequest{Answers: answers, StartedAt: &startedAt})

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		s.err = err
	} else {
		s.state = StateCompleted
		s.result = resp
	}
	final := s.state
	s.mu.Unlock()
	s.notify(final)

	s.log.Info().Str("reason", string(reason)).Int("answered", len(answers)).Str("state", final.String()).Msg("exam submitted")
	return resp, err
}

func (s *Session) notify(st State) {
	if s.hooks.OnStateChange != nil {
		s.hooks.OnStateChange(st)
	}
}

// Wait blocks until every background progress post has finished.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Violations returns how many hidden-tab events were counted.
func (s *Session) Violations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations
}

// Elapsed is the display timer. It freezes once submission starts.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateInProgress:
		return s.now().Sub(s.startedAt)
	case StateCompleting, StateCompleted, StateFailed:
		return s.elapsed
	default:
		return 0
	}
}

// CurrentSection returns the page being answered and its index.
func (s *Session) CurrentSection() (Section, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout[s.sectionIdx], s.sectionIdx
}

// Answered is the number of distinct questions answered so far.
func (s *Session) Answered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Reason reports what triggered submission, empty before it.
func (s *Session) Reason() SubmitReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// PreviousResult is the summary returned by the status check when the
// exam was already taken.
func (s *Session) PreviousResult() *model.ResultSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous
}

// Result is the server's response to a successful submit.
func (s *Session) Result() *model.SubmitExamResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err is the submit error shown to the participant, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
