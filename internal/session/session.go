// Package session implements the TIMEFOLD workflow: INPUT → RECRUITING ⇄ SIMULATING.
//
// A Session owns all per-run state (history spine, council, current
// simulation, chaos flags) and exposes it only through methods. Model calls
// are made without holding the lock so views can keep reading snapshots
// while a request is in flight; results are discarded if the session was
// reset or moved on in the meantime.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"timefold/internal/logging"
	"timefold/internal/types"
)

var (
	// ErrInvalidTransition is wrapped by every wrong-stage call.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrEmptyInput is returned by Begin when neither text nor an image was supplied.
	ErrEmptyInput = errors.New("context description or image required")
	// ErrNoCouncil is returned by Confirm before a council has been recruited.
	ErrNoCouncil = errors.New("no council recruited")
	// ErrNoScenarios is returned by Explore when no simulation is held.
	ErrNoScenarios = errors.New("no scenarios to explore")
	// ErrUnknownScenario is returned by Explore for an id not in the current batch.
	ErrUnknownScenario = errors.New("unknown scenario")
	// ErrUnknownPreset is returned by BeginPreset for an out-of-range index.
	ErrUnknownPreset = errors.New("unknown preset")
	// ErrSuperseded is returned when the session changed while a model call was in flight.
	ErrSuperseded = errors.New("session changed during request")
)

// TransitionError reports an action attempted in the wrong stage.
type TransitionError struct {
	From   types.Stage
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed in stage %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Oracle produces councils and scenario batches. *perception.Gateway implements it.
type Oracle interface {
	Recruit(ctx context.Context, situation string, image *types.Image) (types.Council, error)
	Simulate(ctx context.Context, situation string, council types.Council, image *types.Image, injectChaos bool) (*types.SimulationBatch, error)
}

// Action names passed to observers.
const (
	ActionBegin    = "begin"
	ActionRecruit  = "recruit"
	ActionConfirm  = "confirm"
	ActionSimulate = "simulate"
	ActionChaos    = "chaos"
	ActionExplore  = "explore"
	ActionReset    = "reset"
)

// Transition describes one successful action.
type Transition struct {
	SessionID string
	From      types.Stage
	To        types.Stage
	Action    string
	// Entry is the history entry appended by this action, if any.
	Entry *types.HistoryEntry
	// Seq is the index of Entry in the history.
	Seq int
}

// Observer is notified after each successful action, outside the session lock.
type Observer interface {
	OnTransition(t Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(t Transition)

func (f ObserverFunc) OnTransition(t Transition) { f(t) }

// Option configures a Session.
type Option func(*Session)

// WithObserver registers an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is a single TIMEFOLD run. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	oracle    Oracle
	observers []Observer
	now       func() time.Time

	id        string
	createdAt time.Time
	// generation increments on every state change so in-flight calls can detect staleness.
	generation uint64

	stage        types.Stage
	history      []types.HistoryEntry
	council      *types.Council
	simulation   *types.SimulationBatch
	image        *types.Image
	chaosPending bool
	lastChaos    bool
}

// New creates a session in the INPUT stage.
func New(oracle Oracle, opts ...Option) *Session {
	s := &Session{oracle: oracle, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.clearLocked()
	logging.Session("Session created: %s", s.id)
	return s
}

// clearLocked resets every field to the INPUT state under a fresh id.
func (s *Session) clearLocked() {
	s.id = uuid.New().String()
	s.createdAt = s.now()
	s.generation++
	s.stage = types.StageInput
	s.history = nil
	s.council = nil
	s.simulation = nil
	s.image = nil
	s.chaosPending = false
	s.lastChaos = false
}

func (s *Session) notify(t Transition) {
	logging.WorkflowDebug("[%s] %s: %s -> %s", t.SessionID, t.Action, t.From, t.To)
	for _, o := range s.observers {
		o.OnTransition(t)
	}
}

// ID returns the current session id. It changes on Reset.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Stage returns the current stage.
func (s *Session) Stage() types.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Begin seeds the history and moves to RECRUITING. Text may be empty when
// an image is supplied.
func (s *Session) Begin(description string, image *types.Image) error {
	s.mu.Lock()
	if s.stage != types.StageInput {
		s.mu.Unlock()
		return &TransitionError{From: s.stage, Action: ActionBegin}
	}

	description = strings.TrimSpace(description)
	if description == "" {
		if image == nil {
			s.mu.Unlock()
			return ErrEmptyInput
		}
		description = types.ImageOnlyDescription
	}

	entry := types.SeedEntry(description)
	s.history = []types.HistoryEntry{entry}
	s.image = image
	s.stage = types.StageRecruiting
	s.generation++
	t := Transition{SessionID: s.id, From: types.StageInput, To: s.stage, Action: ActionBegin, Entry: &entry}
	s.mu.Unlock()

	logging.Session("Session %s seeded (image=%v): %q", t.SessionID, image != nil, description)
	s.notify(t)
	return nil
}

// BeginPreset begins with the description of the preset at index. image is
// optional and is sent with every model call, as with Begin.
func (s *Session) BeginPreset(index int, image *types.Image) error {
	presets := types.Presets()
	if index < 0 || index >= len(presets) {
		return fmt.Errorf("%w: %d", ErrUnknownPreset, index)
	}
	return s.Begin(presets[index].Description, image)
}

// Recruit obtains a council for the latest history entry. When a council is
// already held it is returned without a model call. A council that fails
// validation is returned as an error and nothing is stored.
func (s *Session) Recruit(ctx context.Context) (types.Council, error) {
	s.mu.Lock()
	if s.stage != types.StageRecruiting {
		s.mu.Unlock()
		return types.Council{}, &TransitionError{From: s.stage, Action: ActionRecruit}
	}
	if s.council != nil {
		c := *s.council
		id := s.id
		s.mu.Unlock()
		logging.SessionDebug("Session %s: council already held, skipping recruitment", id)
		return c, nil
	}
	situation := s.history[len(s.history)-1].Description
	image := s.image
	gen := s.generation
	s.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryWorkflow, "recruit")
	council, err := s.oracle.Recruit(ctx, situation, image)
	timer.Stop()
	if err != nil {
		logging.WorkflowWarn("Recruitment failed, staying in RECRUITING: %v", err)
		return types.Council{}, err
	}
	if err := council.Validate(); err != nil {
		logging.WorkflowWarn("Council rejected, staying in RECRUITING: %v", err)
		return types.Council{}, err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return types.Council{}, ErrSuperseded
	}
	s.council = &council
	s.generation++
	t := Transition{SessionID: s.id, From: s.stage, To: s.stage, Action: ActionRecruit}
	s.mu.Unlock()

	s.notify(t)
	return council, nil
}

// Confirm accepts the held council and moves to SIMULATING.
func (s *Session) Confirm() error {
	s.mu.Lock()
	if s.stage != types.StageRecruiting {
		s.mu.Unlock()
		return &TransitionError{From: s.stage, Action: ActionConfirm}
	}
	if s.council == nil {
		s.mu.Unlock()
		return ErrNoCouncil
	}
	s.stage = types.StageSimulating
	s.generation++
	t := Transition{SessionID: s.id, From: types.StageRecruiting, To: s.stage, Action: ActionConfirm}
	s.mu.Unlock()

	s.notify(t)
	return nil
}

// Simulate returns the held batch, or runs the council over the latest
// history entry. A pending chaos request is sent with the call and cleared
// only when the call succeeds. Batches without exactly three valid scenarios
// are rejected and leave the session unchanged.
func (s *Session) Simulate(ctx context.Context) (*types.SimulationBatch, error) {
	s.mu.Lock()
	if s.stage != types.StageSimulating {
		s.mu.Unlock()
		return nil, &TransitionError{From: s.stage, Action: ActionSimulate}
	}
	if s.simulation != nil {
		batch := copyBatch(s.simulation)
		id := s.id
		s.mu.Unlock()
		logging.SessionDebug("Session %s: simulation already held, skipping model call", id)
		return batch, nil
	}
	situation := s.history[len(s.history)-1].Description
	council := *s.council
	image := s.image
	chaos := s.chaosPending
	gen := s.generation
	s.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryWorkflow, "simulate")
	batch, err := s.oracle.Simulate(ctx, situation, council, image, chaos)
	timer.Stop()
	if err != nil {
		logging.WorkflowWarn("Simulation failed (chaos pending=%v): %v", chaos, err)
		return nil, err
	}
	if batch == nil {
		err = fmt.Errorf("%w: no simulation batch returned", types.ErrSchemaMismatch)
	} else {
		err = batch.Validate()
	}
	if err != nil {
		logging.WorkflowWarn("Simulation rejected (chaos pending=%v): %v", chaos, err)
		return nil, err
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	s.simulation = batch
	s.lastChaos = chaos
	s.chaosPending = false
	s.generation++
	t := Transition{SessionID: s.id, From: s.stage, To: s.stage, Action: ActionSimulate}
	out := copyBatch(batch)
	s.mu.Unlock()

	s.notify(t)
	return out, nil
}

// InjectChaos discards the current batch and forces a black swan into the next one.
func (s *Session) InjectChaos() error {
	s.mu.Lock()
	if s.stage != types.StageSimulating {
		s.mu.Unlock()
		return &TransitionError{From: s.stage, Action: ActionChaos}
	}
	s.simulation = nil
	s.chaosPending = true
	s.generation++
	t := Transition{SessionID: s.id, From: s.stage, To: s.stage, Action: ActionChaos}
	s.mu.Unlock()

	logging.Workflow("Chaos injection armed for session %s", t.SessionID)
	s.notify(t)
	return nil
}

// Explore commits the scenario with the given id to the history and returns
// to RECRUITING with a fresh council required.
func (s *Session) Explore(id string) error {
	s.mu.Lock()
	if s.stage != types.StageSimulating {
		s.mu.Unlock()
		return &TransitionError{From: s.stage, Action: ActionExplore}
	}
	if s.simulation == nil {
		s.mu.Unlock()
		return ErrNoScenarios
	}
	sc, ok := s.simulation.Find(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}

	entry := types.EntryFromScenario(sc)
	s.history = append(s.history, entry)
	s.simulation = nil
	s.council = nil
	s.lastChaos = false
	s.stage = types.StageRecruiting
	s.generation++
	t := Transition{
		SessionID: s.id,
		From:      types.StageSimulating,
		To:        s.stage,
		Action:    ActionExplore,
		Entry:     &entry,
		Seq:       len(s.history) - 1,
	}
	s.mu.Unlock()

	logging.Session("Session %s explored %s (%q), depth=%d", t.SessionID, id, sc.Title, t.Seq)
	s.notify(t)
	return nil
}

// Reset clears everything and returns to INPUT under a new session id.
func (s *Session) Reset() {
	s.mu.Lock()
	from := s.stage
	old := s.id
	s.clearLocked()
	t := Transition{SessionID: s.id, From: from, To: s.stage, Action: ActionReset}
	s.mu.Unlock()

	logging.Session("Session %s reset -> %s", old, t.SessionID)
	s.notify(t)
}

// Snapshot is a read-only copy of session state for views.
type Snapshot struct {
	ID           string
	CreatedAt    time.Time
	Stage        types.Stage
	History      []types.HistoryEntry
	Council      *types.Council
	Simulation   *types.SimulationBatch
	Image        *types.Image
	ChaosPending bool
	// LastChaos reports whether the held simulation was produced with chaos injected.
	LastChaos bool
}

// Context returns the description the next model call will be made about.
func (sn Snapshot) Context() string {
	if len(sn.History) == 0 {
		return ""
	}
	return sn.History[len(sn.History)-1].Description
}

// Snapshot returns a deep copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sn := Snapshot{
		ID:           s.id,
		CreatedAt:    s.createdAt,
		Stage:        s.stage,
		History:      copyHistory(s.history),
		Simulation:   copyBatch(s.simulation),
		Image:        s.image,
		ChaosPending: s.chaosPending,
		LastChaos:    s.lastChaos,
	}
	if s.council != nil {
		c := types.Council{Agents: append([]types.Persona(nil), s.council.Agents...)}
		sn.Council = &c
	}
	return sn
}

func copyHistory(h []types.HistoryEntry) []types.HistoryEntry {
	if h == nil {
		return nil
	}
	out := make([]types.HistoryEntry, len(h))
	for i, e := range h {
		out[i] = e
		if e.Scenario != nil {
			sc := *e.Scenario
			out[i].Scenario = &sc
		}
	}
	return out
}

func copyBatch(b *types.SimulationBatch) *types.SimulationBatch {
	if b == nil {
		return nil
	}
	c := *b
	c.Scenarios = append([]types.Scenario(nil), b.Scenarios...)
	return &c
}
