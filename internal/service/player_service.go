package service

import (
	"errors"
	"flowbook_backend/internal/config"
	"flowbook_backend/internal/model"
	"flowbook_backend/internal/util"
	"flowbook_backend/pkg/logger"
	"flowbook_backend/pkg/monitoring"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssignmentStore 会话启动时加载作业定义
type AssignmentStore interface {
	FindByID(id uint) (*model.Assignment, error)
}

// ProgressStore 进度读取与最终提交落库
type ProgressStore interface {
	FindByAssignmentAndUser(assignmentID, userID uint) ([]model.ActivityProgress, error)
	FindSubmission(assignmentID, userID uint) (*model.AssignmentSubmission, error)
	SaveSubmission(sub *model.AssignmentSubmission, records []model.ActivityProgress) error
}

// PlayerSession 一次多活动作业会话
// 进度记录只归会话所有：叶子活动通过回调上报结果，自己不直接改写
type PlayerSession struct {
	ID           string
	AssignmentID uint
	UserID       uint

	mu            sync.Mutex
	assignment    *model.Assignment
	state         model.SessionState
	currentIndex  int
	progress      map[uint]*model.ActivityProgress
	elapsedSecs   int
	timeLimitSecs int // 0 表示不限时
	submitting    bool
	closed        bool
	combinedScore float64
	completedAt   *time.Time
	lastActive    time.Time
	stopTimer     chan struct{}
}

// PlayerState 会话状态快照
// swagger:model PlayerState
type PlayerState struct {
	SessionID        string                    `json:"sessionId"`
	AssignmentID     uint                      `json:"assignmentId"`
	BookID           uint                      `json:"bookId"`
	State            model.SessionState        `json:"state"`
	CurrentIndex     int                       `json:"currentIndex"`
	ActivityCount    int                       `json:"activityCount"`
	Progress         []model.ActivityProgress  `json:"progress"`
	ElapsedSeconds   int                       `json:"elapsedSeconds"`
	TimeLimitSeconds int                       `json:"timeLimitSeconds,omitempty"`
	CombinedScore    *float64                  `json:"combinedScore,omitempty"`
	CompletedAt      *time.Time                `json:"completedAt,omitempty"`
	Activities       []model.AssignmentActivity `json:"activities,omitempty"`
}

// PlayerService 多活动作业播放器
// 倒计时挂在作业维度而非单个活动，跨活动导航不中断；
// 提交是全程唯一一次服务端写入，退出不自动保存。
type PlayerService struct {
	assignments AssignmentStore
	progress    ProgressStore
	tick        time.Duration
	idleTTL     time.Duration

	mu       sync.RWMutex
	sessions map[string]*PlayerSession
}

func NewPlayerService(assignments AssignmentStore, progress ProgressStore, cfg *config.Config) *PlayerService {
	return &PlayerService{
		assignments: assignments,
		progress:    progress,
		tick:        time.Duration(cfg.Player.TimerTickSeconds) * time.Second,
		idleTTL:     time.Duration(cfg.Player.SessionIdleMinutes) * time.Minute,
		sessions:    make(map[string]*PlayerSession),
	}
}

// Start 启动作业会话
// 已有最终提交的作业拒绝重开；有历史进度则断点续做，计时从已用时长继续
func (s *PlayerService) Start(assignmentID, userID uint) (*PlayerState, error) {
	assignment, err := s.assignments.FindByID(assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssignmentNotFound
		}
		return nil, err
	}

	if sub, err := s.progress.FindSubmission(assignmentID, userID); err == nil && sub != nil {
		return nil, util.ErrAssignmentCompleted
	}

	prior, err := s.progress.FindByAssignmentAndUser(assignmentID, userID)
	if err != nil {
		return nil, err
	}

	session := &PlayerSession{
		ID:           model.GenerateUUID(),
		AssignmentID: assignmentID,
		UserID:       userID,
		assignment:   assignment,
		state:        model.SessionReady,
		progress:     make(map[uint]*model.ActivityProgress, len(assignment.Activities)),
		lastActive:   time.Now(),
		stopTimer:    make(chan struct{}),
	}

	if assignment.TimeLimitMinutes != nil {
		session.timeLimitSecs = *assignment.TimeLimitMinutes * 60
	}

	// 每个活动一条进度记录，服务端上报过的覆盖默认值
	for _, a := range assignment.Activities {
		session.progress[a.ID] = &model.ActivityProgress{
			AssignmentID: assignmentID,
			UserID:       userID,
			ActivityID:   a.ID,
			Status:       model.StatusNotStarted,
		}
	}
	for i := range prior {
		rec := prior[i]
		if p, ok := session.progress[rec.ActivityID]; ok {
			*p = rec
			session.elapsedSecs += rec.TimeSpentSeconds
		}
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	go s.runTimer(session)

	logger.Log.Info("player session started",
		zap.String("session", session.ID),
		zap.Uint("assignment", assignmentID),
		zap.Uint("user", userID),
		zap.Int("timeLimitSecs", session.timeLimitSecs))

	return session.snapshot(), nil
}

// runTimer 作业级计时器，会话关闭或提交后退出
func (s *PlayerService) runTimer(session *PlayerSession) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	tickSecs := int(s.tick / time.Second)
	if tickSecs < 1 {
		tickSecs = 1
	}

	for {
		select {
		case <-session.stopTimer:
			return
		case <-ticker.C:
			if s.advance(session, tickSecs) {
				return
			}
		}
	}
}

// advance 推进会话计时，返回true表示计时器应当停止
// 超出时限时以现有进度自动提交，之后不再接受任何编辑
func (s *PlayerService) advance(session *PlayerSession, seconds int) bool {
	session.mu.Lock()
	if session.closed || session.state == model.SessionSubmitted {
		session.mu.Unlock()
		return true
	}
	if session.state == model.SessionSubmitting {
		session.mu.Unlock()
		return false
	}

	session.elapsedSecs += seconds
	overLimit := session.timeLimitSecs > 0 && session.elapsedSecs >= session.timeLimitSecs
	session.mu.Unlock()

	if overLimit {
		if err := s.submit(session, true); err != nil &&
			!errors.Is(err, util.ErrSubmitInFlight) &&
			!errors.Is(err, util.ErrAssignmentCompleted) {
			logger.Log.Error("auto submit failed", zap.String("session", session.ID), zap.Error(err))
			// 提交失败会话回到Ready，下个tick再试
			return false
		}
		return true
	}
	return false
}

func (s *PlayerService) get(sessionID string, userID uint) (*PlayerSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, util.ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, util.ErrPermissionDenied
	}

	session.mu.Lock()
	session.lastActive = time.Now()
	session.mu.Unlock()
	return session, nil
}

func (s *PlayerService) State(sessionID string, userID uint) (*PlayerState, error) {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return session.snapshot(), nil
}

// Navigate 跳转到指定活动，与完成状态无关（非线性导航）
// op: next / previous / goto
func (s *PlayerService) Navigate(sessionID string, userID uint, op string, index int) (*PlayerState, error) {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.closed {
		return nil, util.ErrSessionClosed
	}
	if session.state == model.SessionSubmitting || session.state == model.SessionSubmitted {
		return nil, util.ErrAssignmentCompleted
	}

	count := len(session.assignment.Activities)
	target := session.currentIndex
	switch op {
	case "next":
		target++
	case "previous":
		target--
	case "goto":
		target = index
	default:
		return nil, errors.New("unknown navigation op: " + op)
	}

	if target < 0 {
		target = 0
	}
	if count > 0 && target > count-1 {
		target = count - 1
	}
	session.currentIndex = target

	// 导航即进入活动：未开始的标记为进行中，已完成的进入回顾态
	if count > 0 {
		activity := session.assignment.Activities[target]
		rec := session.progress[activity.ID]
		if rec.Status == model.StatusCompleted {
			session.state = model.SessionReviewing
		} else {
			if rec.Status == model.StatusNotStarted {
				rec.Status = model.StatusInProgress
			}
			session.state = model.SessionInProgress
		}
	}

	return session.snapshotLocked(), nil
}

// ApplyResult 叶子活动完成后的回调，合并得分与用时
// 是否允许重做由活动类型自行决定，会话只负责合并上报的结果
func (s *PlayerService) ApplyResult(sessionID string, userID, activityID uint, score float64, timeSpentSeconds int) (*PlayerState, error) {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.closed {
		return nil, util.ErrSessionClosed
	}
	if session.state == model.SessionSubmitting || session.state == model.SessionSubmitted {
		return nil, util.ErrTimeLimitExceeded
	}

	rec, ok := session.progress[activityID]
	if !ok {
		return nil, util.ErrActivityNotFound
	}

	rec.Status = model.StatusCompleted
	rec.Score = &score
	rec.TimeSpentSeconds += timeSpentSeconds
	rec.Attempts++

	return session.snapshotLocked(), nil
}

// Submit 学生主动提交
// 与超时自动提交走同一条守卫路径，同一时刻至多一次在途提交
func (s *PlayerService) Submit(sessionID string, userID uint) (*PlayerState, error) {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.submit(session, false); err != nil {
		return nil, err
	}
	return session.snapshot(), nil
}

func (s *PlayerService) submit(session *PlayerSession, auto bool) error {
	session.mu.Lock()
	if session.closed {
		session.mu.Unlock()
		return util.ErrSessionClosed
	}
	if session.submitting {
		session.mu.Unlock()
		return util.ErrSubmitInFlight
	}
	if session.state == model.SessionSubmitted {
		session.mu.Unlock()
		return util.ErrAssignmentCompleted
	}

	session.submitting = true
	session.state = model.SessionSubmitting

	// 在锁内拷贝进度，落库期间的会话状态与提交内容一致
	records := make([]model.ActivityProgress, 0, len(session.progress))
	for _, a := range session.assignment.Activities {
		records = append(records, *session.progress[a.ID])
	}
	elapsed := session.elapsedSecs
	session.mu.Unlock()

	var combined float64
	for _, rec := range records {
		if rec.Score != nil {
			combined += *rec.Score
		}
	}
	if len(records) > 0 {
		combined = combined / float64(len(records))
	}

	now := time.Now()
	sub := &model.AssignmentSubmission{
		AssignmentID:  session.AssignmentID,
		UserID:        session.UserID,
		CombinedScore: combined,
		ElapsedSecs:   elapsed,
		AutoSubmitted: auto,
		CompletedAt:   now,
	}

	err := s.progress.SaveSubmission(sub, records)

	session.mu.Lock()
	defer session.mu.Unlock()

	session.submitting = false
	if session.closed {
		// 用户已退出，迟到的响应不再改写会话状态
		return nil
	}

	if err != nil {
		// 失败可重试：本地进度原样保留，回到Ready
		session.state = model.SessionReady
		monitoring.AssignmentSubmits.WithLabelValues("failed").Inc()
		logger.Log.Error("submission failed",
			zap.String("session", session.ID), zap.Error(err))
		return util.ErrSubmitFailed
	}

	session.state = model.SessionSubmitted
	session.combinedScore = combined
	session.completedAt = &now
	if auto {
		monitoring.AssignmentSubmits.WithLabelValues("auto").Inc()
	} else {
		monitoring.AssignmentSubmits.WithLabelValues("success").Inc()
	}

	logger.Log.Info("assignment submitted",
		zap.String("session", session.ID),
		zap.Float64("combinedScore", combined),
		zap.Bool("auto", auto))
	return nil
}

// Exit 不提交直接退出，本地进度不落库（唯一写入点是Submit）
func (s *PlayerService) Exit(sessionID string, userID uint) error {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, session.ID)
	s.mu.Unlock()

	session.mu.Lock()
	session.closeLocked()
	session.mu.Unlock()

	logger.Log.Info("player session exited", zap.String("session", session.ID))
	return nil
}

// SweepIdle 回收闲置超时的会话
func (s *PlayerService) SweepIdle() int {
	s.mu.Lock()
	var expired []*PlayerSession
	for id, session := range s.sessions {
		session.mu.Lock()
		idle := time.Since(session.lastActive)
		session.mu.Unlock()
		if idle > s.idleTTL {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.mu.Lock()
		session.closeLocked()
		session.mu.Unlock()
	}
	return len(expired)
}

func (p *PlayerSession) closeLocked() {
	if p.closed {
		return
	}
	p.closed = true
	close(p.stopTimer)
}

func (p *PlayerSession) snapshot() *PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *PlayerSession) snapshotLocked() *PlayerState {
	state := &PlayerState{
		SessionID:        p.ID,
		AssignmentID:     p.AssignmentID,
		BookID:           p.assignment.BookID,
		State:            p.state,
		CurrentIndex:     p.currentIndex,
		ActivityCount:    len(p.assignment.Activities),
		ElapsedSeconds:   p.elapsedSecs,
		TimeLimitSeconds: p.timeLimitSecs,
		Activities:       p.assignment.Activities,
	}

	state.Progress = make([]model.ActivityProgress, 0, len(p.progress))
	for _, a := range p.assignment.Activities {
		state.Progress = append(state.Progress, *p.progress[a.ID])
	}

	if p.state == model.SessionSubmitted {
		score := p.combinedScore
		state.CombinedScore = &score
		state.CompletedAt = p.completedAt
	}
	return state
}
