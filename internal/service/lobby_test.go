package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/lobby-service/internal/audit"
	"github.com/cwrk-planet/lobby-service/internal/directory"
	"github.com/cwrk-planet/lobby-service/internal/domain"
	"github.com/cwrk-planet/lobby-service/internal/memory"
	"github.com/cwrk-planet/lobby-service/internal/provisioning"
	"github.com/cwrk-planet/lobby-service/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type riotMock struct {
	mock.Mock
}

func (m *riotMock) RegisterProvider(ctx context.Context, callbackURL string) (int64, error) {
	args := m.Called(ctx, callbackURL)
	return args.Get(0).(int64), args.Error(1)
}

func (m *riotMock) RegisterTournament(ctx context.Context, providerID int64, name string) (int64, error) {
	args := m.Called(ctx, providerID, name)
	return args.Get(0).(int64), args.Error(1)
}

func (m *riotMock) IssueCodes(ctx context.Context, tournamentID int64, spec provisioning.MatchSpec) ([]string, error) {
	args := m.Called(ctx, tournamentID, spec)
	codes, _ := args.Get(0).([]string)
	return codes, args.Error(1)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	topics []string
	events []domain.Event
}

func (b *recordingBroadcaster) Publish(_ context.Context, topic string, msg any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	b.events = append(b.events, msg.(domain.Event))
	return nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAuditor) Record(_ context.Context, e audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) last() audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entries[len(a.entries)-1]
}

type fixture struct {
	lobby  *Lobby
	store  *memory.RoomStore
	riot   *riotMock
	bus    *recordingBroadcaster
	audits *recordingAuditor
}

func email(i int) string { return fmt.Sprintf("user%d@example.com", i) }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	seed := make([]domain.User, 0, 60)
	for i := 1; i <= 60; i++ {
		seed = append(seed, domain.User{ID: int64(i), Email: email(i), Nickname: fmt.Sprintf("user%d", i)})
	}
	store := memory.NewRoomStore()
	riot := &riotMock{}
	f := &fixture{
		store:  store,
		riot:   riot,
		bus:    &recordingBroadcaster{},
		audits: &recordingAuditor{},
	}
	f.lobby = New(Deps{
		Store:       store,
		Users:       directory.New(memory.NewUserStore(seed...), nil),
		Provisioner: provisioning.NewWorkflow(riot, provisioning.WorkflowConfig{CallbackURL: "https://cb", Concurrency: 2}),
		Broadcaster: f.bus,
		Auditor:     f.audits,
	})
	return f
}

// roomWith создаёт комнату хостом user1 и добавляет участников до total.
func (f *fixture) roomWith(t *testing.T, max, total int) *domain.Room {
	t.Helper()
	ctx := context.Background()

	room, err := f.lobby.CreateRoom(ctx, "Scrims", max, email(1))
	require.NoError(t, err)
	for i := 2; i <= total; i++ {
		room, err = f.lobby.JoinRoom(ctx, room.Code, email(i))
		require.NoError(t, err)
	}
	return room
}

func (f *fixture) expectChain(codes ...string) {
	f.riot.On("RegisterProvider", mock.Anything, "https://cb").Return(int64(1), nil)
	f.riot.On("RegisterTournament", mock.Anything, int64(1), "Scrims").Return(int64(2), nil)
	for i, c := range codes {
		meta := fmt.Sprintf("#%d", i)
		f.riot.On("IssueCodes", mock.Anything, int64(2), mock.MatchedBy(func(s provisioning.MatchSpec) bool {
			return len(s.Metadata) > len(meta) && s.Metadata[len(s.Metadata)-len(meta):] == meta
		})).Return([]string{c}, nil)
	}
}

func waitRun(t *testing.T, run *MatchRun) (*domain.Room, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return run.Wait(ctx)
}

func TestScenarioA_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	f.expectChain("KR-0")
	ctx := context.Background()

	room := f.roomWith(t, 10, 10)
	require.Len(t, room.Participants, 10)

	room, err := f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuto, email(1))
	require.NoError(t, err)
	require.Equal(t, domain.StatusAutoTeamComposition, room.Status)
	one, two := 0, 0
	for _, p := range room.Participants {
		require.NotNil(t, p.TeamNumber)
		if *p.TeamNumber == domain.TeamOne {
			one++
		} else {
			two++
		}
	}
	require.Equal(t, 5, one)
	require.Equal(t, 5, two)

	run, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.NoError(t, err)
	final, err := waitRun(t, run)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, final.Status)
	require.Len(t, final.Matches, 1)
	require.Equal(t, "KR-0", final.Matches[0].TournamentCode)
	require.Equal(t, domain.MatchPending, final.Matches[0].Status)

	stored, err := f.lobby.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, stored.Status)

	last := f.bus.events[len(f.bus.events)-1]
	require.Equal(t, domain.EventRoomChanged, last.Type)
	require.Equal(t, domain.StatusInProgress, last.Payload.Status)
	require.Equal(t, "room:"+room.Code, f.bus.topics[len(f.bus.topics)-1])
	f.riot.AssertExpectations(t)
}

func TestScenarioB_InvalidParticipantCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 9 участников, комната всё ещё WAITING
	room := f.roomWith(t, 10, 9)

	_, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.ErrorIs(t, err, domain.ErrInvalidParticipantCount)
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	f.riot.AssertNotCalled(t, "RegisterProvider", mock.Anything, mock.Anything)

	got, _ := f.lobby.GetRoom(ctx, room.Code)
	require.Equal(t, domain.StatusWaiting, got.Status)
}

func TestStartMatches_FullRoomNotComposed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.roomWith(t, 10, 10)

	_, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	f.riot.AssertNotCalled(t, "RegisterProvider", mock.Anything, mock.Anything)
}

func TestScenarioC_NonHostCannotCompose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.roomWith(t, 10, 4)

	_, err := f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuto, email(2))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.ErrorIs(t, err, errs.ErrForbidden)

	got, _ := f.lobby.GetRoom(ctx, room.Code)
	require.Equal(t, domain.StatusWaiting, got.Status)
	require.Equal(t, audit.ResultFailure, f.audits.last().Result)
}

func TestScenarioD_InvalidCapacity(t *testing.T) {
	f := newFixture(t)
	_, err := f.lobby.CreateRoom(context.Background(), "Scrims", 12, email(1))
	require.ErrorIs(t, err, domain.ErrInvalidMaxParticipants)
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestCreateRoom_UnknownHost(t *testing.T) {
	f := newFixture(t)
	_, err := f.lobby.CreateRoom(context.Background(), "Scrims", 10, "ghost@example.com")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestJoinRoom_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.lobby.JoinRoom(ctx, "NOPE0000", email(2))
	require.ErrorIs(t, err, domain.ErrRoomNotFound)

	room := f.roomWith(t, 10, 10)
	_, err = f.lobby.JoinRoom(ctx, room.Code, email(11))
	require.ErrorIs(t, err, domain.ErrRoomFull)

	room = f.roomWith(t, 10, 2)
	_, err = f.lobby.JoinRoom(ctx, room.Code, email(2))
	require.ErrorIs(t, err, domain.ErrAlreadyJoined)

	_, err = f.lobby.JoinRoom(ctx, room.Code, "ghost@example.com")
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	// код нечувствителен к регистру
	_, err = f.lobby.JoinRoom(ctx, " "+strings.ToLower(room.Code)+" ", email(3))
	require.NoError(t, err)
}

func TestJoinRoom_ConcurrentCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room, err := f.lobby.CreateRoom(ctx, "Scrims", 10, email(1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 2; i <= 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.lobby.JoinRoom(ctx, room.Code, email(i))
		}(i)
	}
	wg.Wait()

	got, _ := f.lobby.GetRoom(ctx, room.Code)
	require.Len(t, got.Participants, 10)
}

func TestStartTeamComposition_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.lobby.StartTeamComposition(ctx, "NOPE0000", domain.CompositionAuto, email(1))
	require.ErrorIs(t, err, domain.ErrRoomNotFound)

	room := f.roomWith(t, 10, 3)
	_, err = f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuto, email(1))
	require.ErrorIs(t, err, domain.ErrOddParticipantCount)

	_, err = f.lobby.StartTeamComposition(ctx, room.Code, "RANDOM", email(1))
	require.ErrorIs(t, err, domain.ErrInvalidCompositionMethod)

	_, err = f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuction, email(1))
	require.NoError(t, err)
	_, err = f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuction, email(1))
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	// после сбора команд войти нельзя
	_, err = f.lobby.JoinRoom(ctx, room.Code, email(9))
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestStartMatches_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.roomWith(t, 10, 10)

	_, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	_, err = f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuto, email(1))
	require.NoError(t, err)

	_, err = f.lobby.StartMatches(ctx, room.Code, email(2))
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.lobby.StartMatches(ctx, "NOPE0000", email(1))
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestStartMatches_FailureKeepsStatusAndRetryFillsGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.roomWith(t, 20, 20)
	_, err := f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuto, email(1))
	require.NoError(t, err)

	boom := errors.New("429 rate limited")
	f.riot.On("RegisterProvider", mock.Anything, "https://cb").Return(int64(1), nil)
	f.riot.On("RegisterTournament", mock.Anything, int64(1), "Scrims").Return(int64(2), nil)
	f.riot.On("IssueCodes", mock.Anything, int64(2), mock.MatchedBy(func(s provisioning.MatchSpec) bool {
		return s.Metadata == room.Code+"#0"
	})).Return([]string{"KR-0"}, nil).Once()
	f.riot.On("IssueCodes", mock.Anything, int64(2), mock.MatchedBy(func(s provisioning.MatchSpec) bool {
		return s.Metadata == room.Code+"#1"
	})).Return(nil, boom).Once()

	run, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.NoError(t, err)
	_, err = waitRun(t, run)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, errs.ErrProvisioning)
	require.Equal(t, domain.StageCodes, domain.StageOf(err))
	require.ErrorIs(t, run.Err(), boom)

	got, _ := f.lobby.GetRoom(ctx, room.Code)
	require.Equal(t, domain.StatusAutoTeamComposition, got.Status)
	require.Len(t, got.Matches, 1)
	require.Equal(t, domain.StageCodes, f.audits.last().Stage)

	// повтор: код нужен только матчу #1
	f.riot.On("IssueCodes", mock.Anything, int64(2), mock.MatchedBy(func(s provisioning.MatchSpec) bool {
		return s.Metadata == room.Code+"#1"
	})).Return([]string{"KR-1"}, nil).Once()

	run, err = f.lobby.StartMatches(ctx, room.Code, email(1))
	require.NoError(t, err)
	final, err := waitRun(t, run)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, final.Status)
	require.Len(t, final.Matches, 2)
	require.Equal(t, "KR-0", final.Matches[0].TournamentCode)
	require.Equal(t, "KR-1", final.Matches[1].TournamentCode)
	f.riot.AssertNumberOfCalls(t, "IssueCodes", 3)
}

func TestStartMatches_StageFailureBeforeCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.roomWith(t, 10, 10)
	_, err := f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuction, email(1))
	require.NoError(t, err)

	f.riot.On("RegisterProvider", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.riot.On("RegisterTournament", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("500"))

	run, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.NoError(t, err)
	_, err = waitRun(t, run)
	require.Equal(t, domain.StageTournament, domain.StageOf(err))

	got, _ := f.lobby.GetRoom(ctx, room.Code)
	require.Equal(t, domain.StatusAuctionInProgress, got.Status)
	require.Empty(t, got.Matches)
	require.Equal(t, audit.ResultError, f.audits.last().Result)
}

func TestStartMatches_CallerCancellationDoesNotAbort(t *testing.T) {
	f := newFixture(t)
	f.expectChain("KR-0")
	room := f.roomWith(t, 10, 10)
	_, err := f.lobby.StartTeamComposition(context.Background(), room.Code, domain.CompositionAuto, email(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	run, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.NoError(t, err)
	cancel()

	final, err := waitRun(t, run)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInProgress, final.Status)
}

func TestStartMatches_SecondRunAfterCompletionRejected(t *testing.T) {
	f := newFixture(t)
	f.expectChain("KR-0")
	ctx := context.Background()
	room := f.roomWith(t, 10, 10)
	_, err := f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuto, email(1))
	require.NoError(t, err)

	run, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.NoError(t, err)
	_, err = waitRun(t, run)
	require.NoError(t, err)

	_, err = f.lobby.StartMatches(ctx, room.Code, email(1))
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	f.riot.AssertNumberOfCalls(t, "RegisterProvider", 1)
}

func TestListRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.roomWith(t, 10, 1)
	}

	rooms, next, err := f.lobby.ListRooms(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	require.NotEmpty(t, next)

	rooms, _, err = f.lobby.ListRooms(ctx, 0, next)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
}

func TestStartMatches_ConcurrentSubmitsShareOneRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.roomWith(t, 10, 10)
	_, err := f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuto, email(1))
	require.NoError(t, err)

	release := make(chan struct{})
	f.riot.On("RegisterProvider", mock.Anything, "https://cb").
		Run(func(mock.Arguments) { <-release }).
		Return(int64(1), nil)
	f.riot.On("RegisterTournament", mock.Anything, int64(1), "Scrims").Return(int64(2), nil)
	f.riot.On("IssueCodes", mock.Anything, int64(2), mock.Anything).Return([]string{"KR-0"}, nil)

	first, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.NoError(t, err)
	second, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.NoError(t, err)
	close(release)

	r1, err := waitRun(t, first)
	require.NoError(t, err)
	r2, err := waitRun(t, second)
	require.NoError(t, err)
	require.True(t, first.Shared())
	require.True(t, second.Shared())
	require.Equal(t, r1.ID, r2.ID)
	require.Len(t, r1.Matches, 1)
	f.riot.AssertNumberOfCalls(t, "RegisterProvider", 1)
}

func TestJoinRoom_PublishesRoomChanged(t *testing.T) {
	f := newFixture(t)
	room := f.roomWith(t, 10, 2)

	require.Len(t, f.bus.events, 1)
	ev := f.bus.events[0]
	require.Equal(t, domain.EventRoomChanged, ev.Type)
	require.Equal(t, room.Code, ev.Payload.RoomCode)
	require.Equal(t, 2, ev.Payload.CurrentParticipants)
	require.Equal(t, "room:"+room.Code, f.bus.topics[0])
}

func TestDrain_WaitsForRunningProvisioning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.roomWith(t, 10, 10)
	_, err := f.lobby.StartTeamComposition(ctx, room.Code, domain.CompositionAuto, email(1))
	require.NoError(t, err)

	release := make(chan struct{})
	f.riot.On("RegisterProvider", mock.Anything, "https://cb").
		Run(func(mock.Arguments) { <-release }).
		Return(int64(1), nil)
	f.riot.On("RegisterTournament", mock.Anything, int64(1), "Scrims").Return(int64(2), nil)
	f.riot.On("IssueCodes", mock.Anything, int64(2), mock.Anything).Return([]string{"KR-0"}, nil)

	run, err := f.lobby.StartMatches(ctx, room.Code, email(1))
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, f.lobby.Drain(short), context.DeadlineExceeded)

	// после начала остановки новые запуски отклоняются
	_, err = f.lobby.StartMatches(ctx, room.Code, email(1))
	require.ErrorIs(t, err, ErrShuttingDown)
	require.ErrorIs(t, err, errs.ErrUnavailable)

	close(release)
	waitCtx, cancelWait := context.WithTimeout(ctx, 5*time.Second)
	defer cancelWait()
	require.NoError(t, f.lobby.Drain(waitCtx))

	// аудит завершения записан до возврата Drain
	select {
	case <-run.Done():
	default:
		t.Fatal("run not finished after drain")
	}
	require.Equal(t, audit.ActionMatchesCompleted, f.audits.last().Action)
}

func TestDrain_NoRuns(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.lobby.Drain(context.Background()))
}
