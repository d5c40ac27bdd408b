package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"timefold/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// MOCKS
// =============================================================================

type simulateCall struct {
	situation string
	council   types.Council
	image     *types.Image
	chaos     bool
}

// mockOracle returns scripted councils and batches and records every call.
type mockOracle struct {
	mu sync.Mutex

	council    types.Council
	recruitErr error
	batch      *types.SimulationBatch
	simErr     error

	recruitCalls  []string
	simulateCalls []simulateCall

	// block, when set, is waited on inside Recruit.
	block chan struct{}
}

func newMockOracle() *mockOracle {
	return &mockOracle{council: testCouncil(), batch: testBatch()}
}

func (m *mockOracle) Recruit(ctx context.Context, situation string, image *types.Image) (types.Council, error) {
	m.mu.Lock()
	m.recruitCalls = append(m.recruitCalls, situation)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if m.recruitErr != nil {
		return types.Council{}, m.recruitErr
	}
	return m.council, nil
}

func (m *mockOracle) Simulate(ctx context.Context, situation string, council types.Council, image *types.Image, injectChaos bool) (*types.SimulationBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simulateCalls = append(m.simulateCalls, simulateCall{situation, council, image, injectChaos})
	if m.simErr != nil {
		return nil, m.simErr
	}
	if m.batch == nil {
		return nil, nil
	}
	b := *m.batch
	b.Scenarios = append([]types.Scenario(nil), m.batch.Scenarios...)
	return &b, nil
}

func testCouncil() types.Council {
	return types.Council{Agents: []types.Persona{
		{Name: "Kestrel", Role: "Macro Economist", Stance: "Risk-Averse", Avatar: "🦅"},
		{Name: "Vance", Role: "Venture Capitalist", Stance: "Disruptive", Avatar: "🚀"},
		{Name: "Okoro", Role: "Policy Analyst", Stance: "Contrarian", Avatar: "⚖️"},
	}}
}

func testBatch() *types.SimulationBatch {
	mk := func(i int, risk types.RiskLevel) types.Scenario {
		return types.Scenario{
			ID:                  fmt.Sprintf("sc_%d", i),
			Title:               fmt.Sprintf("Path %d", i),
			Description:         fmt.Sprintf("Outcome %d unfolds", i),
			Probability:         30 + i,
			TimeHorizon:         types.HorizonMid,
			RiskLevel:           risk,
			ImpactScore:         5 + i,
			DataConfidence:      60,
			AssumptionStability: 40,
			ReasoningTrace:      fmt.Sprintf("trace %d", i),
		}
	}
	return &types.SimulationBatch{
		Scenarios: []types.Scenario{mk(1, types.RiskLow), mk(2, types.RiskHigh), mk(3, types.RiskCritical)},
		Synthesis: "The council splits on regulation speed.",
	}
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *recordingObserver) OnTransition(t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *recordingObserver) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.transitions))
	for i, t := range r.transitions {
		out[i] = t.Action
	}
	return out
}

// simulating drives a fresh session into SIMULATING with a held batch.
func simulating(t *testing.T, o *mockOracle, opts ...Option) *Session {
	t.Helper()
	s := New(o, opts...)
	require.NoError(t, s.Begin("AI Ban", nil))
	_, err := s.Recruit(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Confirm())
	_, err = s.Simulate(context.Background())
	require.NoError(t, err)
	return s
}

// =============================================================================
// INPUT
// =============================================================================

func TestNew_StartsInInput(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := New(newMockOracle(), WithClock(func() time.Time { return clock }))

	snap := s.Snapshot()
	assert.Equal(t, types.StageInput, snap.Stage)
	assert.Empty(t, snap.History)
	assert.Nil(t, snap.Council)
	assert.Nil(t, snap.Simulation)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, clock, snap.CreatedAt)
}

func TestBegin(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		s := New(newMockOracle())
		require.NoError(t, s.Begin("  Bitcoin crashes  ", nil))

		snap := s.Snapshot()
		assert.Equal(t, types.StageRecruiting, snap.Stage)
		require.Len(t, snap.History, 1)
		assert.Equal(t, types.SeedTitle, snap.History[0].Title)
		assert.Equal(t, "Bitcoin crashes", snap.History[0].Description)
		assert.True(t, snap.History[0].IsSeed())
	})

	t.Run("image only", func(t *testing.T) {
		s := New(newMockOracle())
		img := &types.Image{Name: "chart.png", MIMEType: "image/png", Data: []byte{1}}
		require.NoError(t, s.Begin("", img))

		snap := s.Snapshot()
		assert.Equal(t, types.ImageOnlyDescription, snap.History[0].Description)
		assert.Same(t, img, snap.Image)
	})

	t.Run("empty", func(t *testing.T) {
		s := New(newMockOracle())
		assert.ErrorIs(t, s.Begin("   ", nil), ErrEmptyInput)
		assert.Equal(t, types.StageInput, s.Stage())
		assert.Empty(t, s.Snapshot().History)
	})

	t.Run("twice", func(t *testing.T) {
		s := New(newMockOracle())
		require.NoError(t, s.Begin("a", nil))

		err := s.Begin("b", nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, types.StageRecruiting, te.From)
		assert.Equal(t, ActionBegin, te.Action)
	})
}

func TestBeginPreset(t *testing.T) {
	s := New(newMockOracle())
	assert.ErrorIs(t, s.BeginPreset(3, nil), ErrUnknownPreset)
	assert.ErrorIs(t, s.BeginPreset(-1, nil), ErrUnknownPreset)

	require.NoError(t, s.BeginPreset(2, nil))
	assert.Equal(t, types.Presets()[2].Description, s.Snapshot().History[0].Description)
}

func TestBeginPreset_KeepsImage(t *testing.T) {
	o := newMockOracle()
	s := New(o)
	img := &types.Image{Name: "chart.png", MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	require.NoError(t, s.BeginPreset(0, img))
	assert.Same(t, img, s.Snapshot().Image)

	_, err := s.Recruit(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Confirm())
	_, err = s.Simulate(context.Background())
	require.NoError(t, err)
	require.Len(t, o.simulateCalls, 1)
	assert.Same(t, img, o.simulateCalls[0].image)
}

// =============================================================================
// RECRUITING
// =============================================================================

func TestRecruit(t *testing.T) {
	o := newMockOracle()
	s := New(o)
	require.NoError(t, s.Begin("AI Ban", nil))

	council, err := s.Recruit(context.Background())
	require.NoError(t, err)
	assert.Len(t, council.Agents, 3)
	assert.Equal(t, types.StageRecruiting, s.Stage(), "recruitment never confirms on its own")

	// held council is returned without another call
	_, err = s.Recruit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AI Ban"}, o.recruitCalls)
}

func TestRecruit_Failure(t *testing.T) {
	o := newMockOracle()
	o.recruitErr = errors.New("backend down")
	s := New(o)
	require.NoError(t, s.Begin("AI Ban", nil))

	_, err := s.Recruit(context.Background())
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Nil(t, snap.Council)
	assert.Equal(t, types.StageRecruiting, snap.Stage)
	assert.ErrorIs(t, s.Confirm(), ErrNoCouncil)

	// retry succeeds
	o.recruitErr = nil
	_, err = s.Recruit(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Confirm())
}

func TestRecruit_RejectsWrongCouncilSize(t *testing.T) {
	for _, n := range []int{2, 4} {
		t.Run(fmt.Sprintf("%d personas", n), func(t *testing.T) {
			o := newMockOracle()
			agents := append([]types.Persona(nil), testCouncil().Agents...)
			if n == 2 {
				agents = agents[:2]
			} else {
				agents = append(agents, types.Persona{Name: "Lark", Role: "Historian", Stance: "Cyclical", Avatar: "📜"})
			}
			o.council = types.Council{Agents: agents}
			obs := &recordingObserver{}
			s := New(o, WithObserver(obs))
			require.NoError(t, s.Begin("AI Ban", nil))

			_, err := s.Recruit(context.Background())
			require.ErrorIs(t, err, types.ErrSchemaMismatch)

			snap := s.Snapshot()
			assert.Nil(t, snap.Council)
			assert.Equal(t, types.StageRecruiting, snap.Stage)
			assert.ErrorIs(t, s.Confirm(), ErrNoCouncil)
			assert.Equal(t, []string{ActionBegin}, obs.actions())
		})
	}
}

func TestRecruit_RejectsHonorifics(t *testing.T) {
	o := newMockOracle()
	o.council.Agents[0].Name = "Dr. Kestrel"
	s := New(o)
	require.NoError(t, s.Begin("AI Ban", nil))

	_, err := s.Recruit(context.Background())
	assert.ErrorIs(t, err, types.ErrSchemaMismatch)
	assert.Nil(t, s.Snapshot().Council)
}

func TestRecruit_WrongStage(t *testing.T) {
	s := New(newMockOracle())
	_, err := s.Recruit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRecruit_SupersededByReset(t *testing.T) {
	o := newMockOracle()
	o.block = make(chan struct{})
	s := New(o)
	require.NoError(t, s.Begin("AI Ban", nil))

	done := make(chan error)
	go func() {
		_, err := s.Recruit(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		o.mu.Lock()
		defer o.mu.Unlock()
		return len(o.recruitCalls) == 1
	}, time.Second, time.Millisecond)

	s.Reset()
	close(o.block)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	snap := s.Snapshot()
	assert.Equal(t, types.StageInput, snap.Stage)
	assert.Nil(t, snap.Council)
}

// Scenario 2: RECRUITING -> SIMULATING only on explicit confirmation.
func TestConfirm_Explicit(t *testing.T) {
	o := newMockOracle()
	s := New(o)
	require.NoError(t, s.Begin("AI Ban", nil))
	_, err := s.Recruit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, types.StageRecruiting, s.Stage())
	_, err = s.Simulate(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, o.simulateCalls)

	require.NoError(t, s.Confirm())
	assert.Equal(t, types.StageSimulating, s.Stage())
}

// =============================================================================
// SIMULATING
// =============================================================================

func TestSimulate(t *testing.T) {
	o := newMockOracle()
	s := simulating(t, o)

	snap := s.Snapshot()
	require.NotNil(t, snap.Simulation)
	assert.Len(t, snap.Simulation.Scenarios, 3)
	assert.False(t, snap.LastChaos)

	require.Len(t, o.simulateCalls, 1)
	assert.Equal(t, "AI Ban", o.simulateCalls[0].situation)
	assert.Equal(t, testCouncil(), o.simulateCalls[0].council)
	assert.False(t, o.simulateCalls[0].chaos)

	// held batch is reused
	_, err := s.Simulate(context.Background())
	require.NoError(t, err)
	assert.Len(t, o.simulateCalls, 1)
}

func TestSimulate_FailureKeepsSession(t *testing.T) {
	o := newMockOracle()
	o.simErr = errors.New("Simulation Error: 503")
	s := New(o)
	require.NoError(t, s.Begin("AI Ban", nil))
	_, err := s.Recruit(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Confirm())

	batch, err := s.Simulate(context.Background())
	assert.Nil(t, batch)
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, types.StageSimulating, snap.Stage)
	assert.Nil(t, snap.Simulation)
	assert.NotNil(t, snap.Council)
}

// Scenario 1: with no simulation held, Explore is unavailable.
// confirmed returns a session in SIMULATING with no batch held yet.
func confirmed(t *testing.T, o *mockOracle) *Session {
	t.Helper()
	s := New(o)
	require.NoError(t, s.Begin("AI Ban", nil))
	_, err := s.Recruit(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Confirm())
	return s
}

func TestSimulate_RejectsWrongScenarioCount(t *testing.T) {
	o := newMockOracle()
	o.batch.Scenarios = o.batch.Scenarios[:1]
	s := confirmed(t, o)

	batch, err := s.Simulate(context.Background())
	require.ErrorIs(t, err, types.ErrSchemaMismatch)
	assert.Nil(t, batch)

	snap := s.Snapshot()
	assert.Nil(t, snap.Simulation)
	assert.Equal(t, types.StageSimulating, snap.Stage)
	assert.ErrorIs(t, s.Explore("sc_1"), ErrNoScenarios)
}

func TestSimulate_RejectsNilBatch(t *testing.T) {
	o := newMockOracle()
	o.batch = nil
	s := confirmed(t, o)

	batch, err := s.Simulate(context.Background())
	require.ErrorIs(t, err, types.ErrSchemaMismatch)
	assert.Nil(t, batch)
	assert.Nil(t, s.Snapshot().Simulation)
}

func TestSimulate_RejectedBatchKeepsChaosPending(t *testing.T) {
	o := newMockOracle()
	s := simulating(t, o)
	require.NoError(t, s.InjectChaos())

	o.mu.Lock()
	o.batch = testBatch()
	o.batch.Scenarios = append(o.batch.Scenarios, o.batch.Scenarios[0])
	o.mu.Unlock()

	_, err := s.Simulate(context.Background())
	require.ErrorIs(t, err, types.ErrSchemaMismatch)
	assert.True(t, s.Snapshot().ChaosPending)
}

func TestSimulate_BlackSwanStillThree(t *testing.T) {
	o := newMockOracle()
	o.batch.BlackSwanAlert = "Solar storm wipes the grid"
	s := confirmed(t, o)

	batch, err := s.Simulate(context.Background())
	require.NoError(t, err)
	assert.True(t, batch.HasAlert())
	assert.Len(t, batch.Scenarios, 3)
}

func TestExplore_NoSimulation(t *testing.T) {
	o := newMockOracle()
	o.simErr = errors.New("down")
	s := New(o)
	require.NoError(t, s.Begin("AI Ban", nil))
	_, _ = s.Recruit(context.Background())
	require.NoError(t, s.Confirm())
	_, _ = s.Simulate(context.Background())

	assert.ErrorIs(t, s.Explore("sc_1"), ErrNoScenarios)
	assert.Len(t, s.Snapshot().History, 1)
}

// Scenario 3: chaos clears the simulation and the next call carries the flag.
func TestInjectChaos(t *testing.T) {
	o := newMockOracle()
	s := simulating(t, o)

	require.NoError(t, s.InjectChaos())
	snap := s.Snapshot()
	assert.Nil(t, snap.Simulation)
	assert.True(t, snap.ChaosPending)

	// idempotent
	require.NoError(t, s.InjectChaos())
	assert.True(t, s.Snapshot().ChaosPending)

	alerted := testBatch()
	alerted.BlackSwanAlert = "Solar storm disables satellites"
	o.batch = alerted

	batch, err := s.Simulate(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch.Scenarios, 3)
	assert.True(t, batch.HasAlert())

	require.Len(t, o.simulateCalls, 2)
	assert.True(t, o.simulateCalls[1].chaos)

	snap = s.Snapshot()
	assert.False(t, snap.ChaosPending)
	assert.True(t, snap.LastChaos)
}

func TestInjectChaos_SurvivesFailedSimulation(t *testing.T) {
	o := newMockOracle()
	s := simulating(t, o)
	require.NoError(t, s.InjectChaos())

	o.simErr = errors.New("timeout")
	_, err := s.Simulate(context.Background())
	require.Error(t, err)
	assert.True(t, s.Snapshot().ChaosPending)

	o.simErr = nil
	_, err = s.Simulate(context.Background())
	require.NoError(t, err)
	assert.True(t, o.simulateCalls[len(o.simulateCalls)-1].chaos)
	assert.False(t, s.Snapshot().ChaosPending)
}

func TestInjectChaos_WrongStage(t *testing.T) {
	s := New(newMockOracle())
	assert.ErrorIs(t, s.InjectChaos(), ErrInvalidTransition)
}

// Scenario 4: exploring sc_2 appends its record and returns to RECRUITING.
func TestExplore(t *testing.T) {
	o := newMockOracle()
	s := simulating(t, o)

	require.NoError(t, s.Explore("sc_2"))

	snap := s.Snapshot()
	assert.Equal(t, types.StageRecruiting, snap.Stage)
	assert.Nil(t, snap.Simulation)
	assert.Nil(t, snap.Council)
	require.Len(t, snap.History, 2)

	want := testBatch().Scenarios[1]
	got := snap.History[1]
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Description, got.Description)
	require.NotNil(t, got.Scenario)
	assert.Equal(t, want, *got.Scenario)

	// the next recruitment and simulation are about the explored path
	_, err := s.Recruit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.Description, o.recruitCalls[len(o.recruitCalls)-1])
	require.NoError(t, s.Confirm())
	_, err = s.Simulate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.Description, o.simulateCalls[len(o.simulateCalls)-1].situation)
}

func TestExplore_UnknownID(t *testing.T) {
	s := simulating(t, newMockOracle())
	assert.ErrorIs(t, s.Explore("sc_9"), ErrUnknownScenario)

	snap := s.Snapshot()
	assert.Equal(t, types.StageSimulating, snap.Stage)
	assert.NotNil(t, snap.Simulation)
}

// Scenario 5: reset from SIMULATING clears everything.
func TestReset(t *testing.T) {
	s := simulating(t, newMockOracle())
	require.NoError(t, s.InjectChaos())
	oldID := s.ID()

	s.Reset()

	snap := s.Snapshot()
	assert.Equal(t, types.StageInput, snap.Stage)
	assert.Empty(t, snap.History)
	assert.Nil(t, snap.Council)
	assert.Nil(t, snap.Simulation)
	assert.Nil(t, snap.Image)
	assert.False(t, snap.ChaosPending)
	assert.NotEqual(t, oldID, snap.ID)
}

func TestSnapshot_IsCopy(t *testing.T) {
	s := simulating(t, newMockOracle())
	require.NoError(t, s.Explore("sc_1"))

	snap := s.Snapshot()
	snap.History[1].Scenario.Title = "mutated"
	snap.History = append(snap.History, types.HistoryEntry{Title: "extra"})

	fresh := s.Snapshot()
	assert.Len(t, fresh.History, 2)
	assert.Equal(t, "Path 1", fresh.History[1].Scenario.Title)
	assert.Equal(t, "Outcome 1 unfolds", fresh.Context())
}

// =============================================================================
// OBSERVERS
// =============================================================================

func TestObserver(t *testing.T) {
	rec := &recordingObserver{}
	s := simulating(t, newMockOracle(), WithObserver(rec))
	require.NoError(t, s.InjectChaos())
	_, err := s.Simulate(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Explore("sc_3"))
	s.Reset()

	assert.Equal(t, []string{
		ActionBegin, ActionRecruit, ActionConfirm, ActionSimulate,
		ActionChaos, ActionSimulate, ActionExplore, ActionReset,
	}, rec.actions())

	begin := rec.transitions[0]
	require.NotNil(t, begin.Entry)
	assert.Equal(t, types.SeedTitle, begin.Entry.Title)
	assert.Equal(t, types.StageInput, begin.From)
	assert.Equal(t, types.StageRecruiting, begin.To)

	explore := rec.transitions[6]
	require.NotNil(t, explore.Entry)
	assert.Equal(t, "Path 3", explore.Entry.Title)
	assert.Equal(t, 1, explore.Seq)
	assert.Equal(t, begin.SessionID, explore.SessionID)

	reset := rec.transitions[7]
	assert.NotEqual(t, begin.SessionID, reset.SessionID)
	assert.Equal(t, types.StageRecruiting, reset.From)
	assert.Equal(t, types.StageInput, reset.To)
}
