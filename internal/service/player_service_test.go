package service

import (
	"errors"
	"flowbook_backend/internal/config"
	"flowbook_backend/internal/model"
	"flowbook_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testWaitTimeout = 2 * time.Second
	testWaitTick    = 5 * time.Millisecond
)

type fakeAssignmentStore struct {
	assignment *model.Assignment
}

func (f *fakeAssignmentStore) FindByID(id uint) (*model.Assignment, error) {
	if f.assignment == nil || f.assignment.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.assignment, nil
}

type fakeProgressStore struct {
	mu         sync.Mutex
	prior      []model.ActivityProgress
	submission *model.AssignmentSubmission
	saveErr    error
	saveGate   chan struct{} // 非nil时SaveSubmission阻塞等待

	savedSub     *model.AssignmentSubmission
	savedRecords []model.ActivityProgress
	saveCalls    int
}

func (f *fakeProgressStore) FindByAssignmentAndUser(assignmentID, userID uint) ([]model.ActivityProgress, error) {
	return f.prior, nil
}

func (f *fakeProgressStore) FindSubmission(assignmentID, userID uint) (*model.AssignmentSubmission, error) {
	if f.submission == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.submission, nil
}

func (f *fakeProgressStore) SaveSubmission(sub *model.AssignmentSubmission, records []model.ActivityProgress) error {
	f.mu.Lock()
	gate := f.saveGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedSub = sub
	f.savedRecords = records
	return nil
}

func testAssignment(activityCount int, timeLimitMinutes *int) *model.Assignment {
	a := &model.Assignment{
		Title:            "Unit 3 Homework",
		BookID:           1,
		TimeLimitMinutes: timeLimitMinutes,
	}
	a.ID = 10
	for i := 0; i < activityCount; i++ {
		act := model.AssignmentActivity{Type: model.ActivityQuiz, Order: i, MaxScore: 100}
		act.ID = uint(100 + i)
		a.Activities = append(a.Activities, act)
	}
	return a
}

func newTestPlayerService(assignment *model.Assignment, progress *fakeProgressStore) *PlayerService {
	cfg := &config.Config{
		// tick拉长到1小时，测试里用advance直接驱动计时
		Player: config.PlayerConfig{TimerTickSeconds: 3600, SessionIdleMinutes: 120},
	}
	return NewPlayerService(&fakeAssignmentStore{assignment: assignment}, progress, cfg)
}

func (s *PlayerService) testSession(t *testing.T, sessionID string) *PlayerSession {
	t.Helper()
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	require.True(t, ok)
	return session
}

func TestPlayerStart(t *testing.T) {
	store := &fakeProgressStore{}
	svc := newTestPlayerService(testAssignment(3, nil), store)

	state, err := svc.Start(10, 7)
	require.NoError(t, err)
	defer svc.Exit(state.SessionID, 7)

	assert.Equal(t, model.SessionReady, state.State)
	assert.Equal(t, 3, state.ActivityCount)
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Zero(t, state.TimeLimitSeconds)
	require.Len(t, state.Progress, 3)
	for _, rec := range state.Progress {
		assert.Equal(t, model.StatusNotStarted, rec.Status)
	}
}

func TestPlayerStartUnknownAssignment(t *testing.T) {
	svc := newTestPlayerService(testAssignment(1, nil), &fakeProgressStore{})

	_, err := svc.Start(99, 7)
	assert.ErrorIs(t, err, util.ErrAssignmentNotFound)
}

func TestPlayerStartRejectsCompletedAssignment(t *testing.T) {
	store := &fakeProgressStore{submission: &model.AssignmentSubmission{AssignmentID: 10, UserID: 7}}
	svc := newTestPlayerService(testAssignment(2, nil), store)

	_, err := svc.Start(10, 7)
	assert.ErrorIs(t, err, util.ErrAssignmentCompleted)
}

func TestPlayerStartResumesPriorProgress(t *testing.T) {
	score := 80.0
	store := &fakeProgressStore{
		prior: []model.ActivityProgress{
			{AssignmentID: 10, UserID: 7, ActivityID: 100, Status: model.StatusCompleted, Score: &score, TimeSpentSeconds: 120, Attempts: 1},
		},
	}
	svc := newTestPlayerService(testAssignment(3, nil), store)

	state, err := svc.Start(10, 7)
	require.NoError(t, err)
	defer svc.Exit(state.SessionID, 7)

	// 断点续做：历史用时计入已用时长
	assert.Equal(t, 120, state.ElapsedSeconds)
	assert.Equal(t, model.StatusCompleted, state.Progress[0].Status)
	assert.Equal(t, model.StatusNotStarted, state.Progress[1].Status)
}

func TestPlayerNavigate(t *testing.T) {
	svc := newTestPlayerService(testAssignment(3, nil), &fakeProgressStore{})
	started, err := svc.Start(10, 7)
	require.NoError(t, err)
	defer svc.Exit(started.SessionID, 7)

	state, err := svc.Navigate(started.SessionID, 7, "next", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentIndex)
	assert.Equal(t, model.SessionInProgress, state.State)
	assert.Equal(t, model.StatusInProgress, state.Progress[1].Status)

	state, err = svc.Navigate(started.SessionID, 7, "goto", 99)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentIndex)

	state, err = svc.Navigate(started.SessionID, 7, "previous", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentIndex)

	_, err = svc.Navigate(started.SessionID, 7, "sideways", 0)
	assert.Error(t, err)
}

func TestPlayerNavigateToCompletedActivityEntersReview(t *testing.T) {
	svc := newTestPlayerService(testAssignment(3, nil), &fakeProgressStore{})
	started, err := svc.Start(10, 7)
	require.NoError(t, err)
	defer svc.Exit(started.SessionID, 7)

	_, err = svc.ApplyResult(started.SessionID, 7, 101, 90, 30)
	require.NoError(t, err)

	// 已完成的活动可以随时回看，进度不丢
	state, err := svc.Navigate(started.SessionID, 7, "goto", 1)
	require.NoError(t, err)
	assert.Equal(t, model.SessionReviewing, state.State)
	assert.Equal(t, model.StatusCompleted, state.Progress[1].Status)
	require.NotNil(t, state.Progress[1].Score)
	assert.Equal(t, 90.0, *state.Progress[1].Score)
}

func TestPlayerApplyResult(t *testing.T) {
	svc := newTestPlayerService(testAssignment(2, nil), &fakeProgressStore{})
	started, err := svc.Start(10, 7)
	require.NoError(t, err)
	defer svc.Exit(started.SessionID, 7)

	state, err := svc.ApplyResult(started.SessionID, 7, 100, 75, 40)
	require.NoError(t, err)

	rec := state.Progress[0]
	assert.Equal(t, model.StatusCompleted, rec.Status)
	assert.Equal(t, 75.0, *rec.Score)
	assert.Equal(t, 40, rec.TimeSpentSeconds)
	assert.Equal(t, 1, rec.Attempts)

	// 重做累计用时和次数，得分以最新一次为准
	state, err = svc.ApplyResult(started.SessionID, 7, 100, 95, 25)
	require.NoError(t, err)
	rec = state.Progress[0]
	assert.Equal(t, 95.0, *rec.Score)
	assert.Equal(t, 65, rec.TimeSpentSeconds)
	assert.Equal(t, 2, rec.Attempts)

	_, err = svc.ApplyResult(started.SessionID, 7, 999, 50, 10)
	assert.ErrorIs(t, err, util.ErrActivityNotFound)
}

func TestPlayerSubmitAggregatesProgress(t *testing.T) {
	store := &fakeProgressStore{}
	svc := newTestPlayerService(testAssignment(3, nil), store)
	started, err := svc.Start(10, 7)
	require.NoError(t, err)

	_, err = svc.ApplyResult(started.SessionID, 7, 100, 90, 60)
	require.NoError(t, err)
	_, err = svc.ApplyResult(started.SessionID, 7, 101, 60, 30)
	require.NoError(t, err)

	state, err := svc.Submit(started.SessionID, 7)
	require.NoError(t, err)

	assert.Equal(t, model.SessionSubmitted, state.State)
	require.NotNil(t, state.CombinedScore)
	// 未完成的活动按0分计入综合得分
	assert.InDelta(t, 50.0, *state.CombinedScore, 1e-9)
	assert.NotNil(t, state.CompletedAt)

	require.NotNil(t, store.savedSub)
	assert.False(t, store.savedSub.AutoSubmitted)
	assert.Len(t, store.savedRecords, 3)

	// 提交后会话只读
	_, err = svc.Navigate(started.SessionID, 7, "next", 0)
	assert.ErrorIs(t, err, util.ErrAssignmentCompleted)
	_, err = svc.Submit(started.SessionID, 7)
	assert.ErrorIs(t, err, util.ErrAssignmentCompleted)
}

func TestPlayerSubmitFailurePreservesProgress(t *testing.T) {
	store := &fakeProgressStore{saveErr: errors.New("db down")}
	svc := newTestPlayerService(testAssignment(2, nil), store)
	started, err := svc.Start(10, 7)
	require.NoError(t, err)

	_, err = svc.ApplyResult(started.SessionID, 7, 100, 85, 45)
	require.NoError(t, err)

	before, err := svc.State(started.SessionID, 7)
	require.NoError(t, err)

	_, err = svc.Submit(started.SessionID, 7)
	assert.ErrorIs(t, err, util.ErrSubmitFailed)

	// 失败后回到Ready，本地进度原样保留
	after, err := svc.State(started.SessionID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.SessionReady, after.State)
	assert.Equal(t, before.Progress, after.Progress)

	store.mu.Lock()
	store.saveErr = nil
	store.mu.Unlock()

	state, err := svc.Submit(started.SessionID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.SessionSubmitted, state.State)
	assert.Equal(t, before.Progress, store.savedRecords)
}

func TestPlayerAutoSubmitOnTimeLimit(t *testing.T) {
	limit := 10
	store := &fakeProgressStore{}
	svc := newTestPlayerService(testAssignment(3, &limit), store)
	started, err := svc.Start(10, 7)
	require.NoError(t, err)

	assert.Equal(t, 600, started.TimeLimitSeconds)

	_, err = svc.ApplyResult(started.SessionID, 7, 100, 100, 200)
	require.NoError(t, err)
	_, err = svc.ApplyResult(started.SessionID, 7, 101, 70, 150)
	require.NoError(t, err)

	session := svc.testSession(t, started.SessionID)

	stop := svc.advance(session, 599)
	assert.False(t, stop)

	// 越过时限：以现有进度自动提交，计时器退出
	stop = svc.advance(session, 1)
	assert.True(t, stop)

	state, err := svc.State(started.SessionID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.SessionSubmitted, state.State)
	require.NotNil(t, store.savedSub)
	assert.True(t, store.savedSub.AutoSubmitted)
	assert.InDelta(t, (100.0+70.0)/3.0, store.savedSub.CombinedScore, 1e-9)

	// 提交后不再接受结果上报
	_, err = svc.ApplyResult(started.SessionID, 7, 102, 50, 10)
	assert.ErrorIs(t, err, util.ErrTimeLimitExceeded)
}

func TestPlayerAutoSubmitRetriesAfterFailure(t *testing.T) {
	limit := 1
	store := &fakeProgressStore{saveErr: errors.New("db down")}
	svc := newTestPlayerService(testAssignment(1, &limit), store)
	started, err := svc.Start(10, 7)
	require.NoError(t, err)

	session := svc.testSession(t, started.SessionID)

	// 落库失败：计时器不退出，下个tick重试
	stop := svc.advance(session, 60)
	assert.False(t, stop)

	store.mu.Lock()
	store.saveErr = nil
	store.mu.Unlock()

	stop = svc.advance(session, 1)
	assert.True(t, stop)

	state, err := svc.State(started.SessionID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.SessionSubmitted, state.State)
	assert.True(t, store.savedSub.AutoSubmitted)
}

func TestPlayerSubmitAtMostOnceInFlight(t *testing.T) {
	store := &fakeProgressStore{saveGate: make(chan struct{})}
	svc := newTestPlayerService(testAssignment(1, nil), store)
	started, err := svc.Start(10, 7)
	require.NoError(t, err)

	done := make(chan error)
	go func() {
		_, err := svc.Submit(started.SessionID, 7)
		done <- err
	}()

	// 等第一笔提交进入落库阶段
	require.Eventually(t, func() bool {
		state, err := svc.State(started.SessionID, 7)
		return err == nil && state.State == model.SessionSubmitting
	}, testWaitTimeout, testWaitTick)

	_, err = svc.Submit(started.SessionID, 7)
	assert.ErrorIs(t, err, util.ErrSubmitInFlight)

	close(store.saveGate)
	require.NoError(t, <-done)

	store.mu.Lock()
	assert.Equal(t, 1, store.saveCalls)
	store.mu.Unlock()
}

func TestPlayerExitDuringInFlightSubmitDiscardsResponse(t *testing.T) {
	store := &fakeProgressStore{saveGate: make(chan struct{})}
	svc := newTestPlayerService(testAssignment(1, nil), store)
	started, err := svc.Start(10, 7)
	require.NoError(t, err)

	done := make(chan error)
	go func() {
		_, err := svc.Submit(started.SessionID, 7)
		done <- err
	}()

	require.Eventually(t, func() bool {
		state, err := svc.State(started.SessionID, 7)
		return err == nil && state.State == model.SessionSubmitting
	}, testWaitTimeout, testWaitTick)

	require.NoError(t, svc.Exit(started.SessionID, 7))
	close(store.saveGate)

	// 迟到的落库响应不改写已退出的会话
	require.NoError(t, <-done)
	_, err = svc.State(started.SessionID, 7)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestPlayerExitDoesNotPersistProgress(t *testing.T) {
	store := &fakeProgressStore{}
	svc := newTestPlayerService(testAssignment(2, nil), store)
	started, err := svc.Start(10, 7)
	require.NoError(t, err)

	_, err = svc.ApplyResult(started.SessionID, 7, 100, 88, 20)
	require.NoError(t, err)

	require.NoError(t, svc.Exit(started.SessionID, 7))

	// 唯一的服务端写入点是提交，退出不落库
	assert.Zero(t, store.saveCalls)
	_, err = svc.State(started.SessionID, 7)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestPlayerSessionOwnership(t *testing.T) {
	svc := newTestPlayerService(testAssignment(1, nil), &fakeProgressStore{})
	started, err := svc.Start(10, 7)
	require.NoError(t, err)
	defer svc.Exit(started.SessionID, 7)

	_, err = svc.State(started.SessionID, 8)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}
