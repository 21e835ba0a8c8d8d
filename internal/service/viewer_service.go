package service

import (
	"context"
	"errors"
	"flowbook_backend/internal/config"
	"flowbook_backend/internal/model"
	"flowbook_backend/internal/util"
	"flowbook_backend/pkg/logger"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const viewerSessionPrefix = "viewer:session:"

// ViewerSession 一次翻书会话的可变状态
// 缩放和平移独立于翻页，翻页时重置为默认值，避免叠加层错位
type ViewerSession struct {
	ID     string
	BookID uint
	UserID uint

	mu         sync.Mutex
	book       *model.Book
	pageIndex  int
	viewMode   model.ViewMode
	zoom       float64
	panX       float64
	panY       float64
	pageWidth  float64 // 当前页图片自然宽度，客户端报告前为0
	pageHeight float64
	lastActive time.Time
}

// ViewerState 会话状态快照
// swagger:model ViewerState
type ViewerState struct {
	SessionID    string         `json:"sessionId"`
	BookID       uint           `json:"bookId"`
	PageIndex    int            `json:"pageIndex"`
	PageCount    int            `json:"pageCount"`
	ViewMode     model.ViewMode `json:"viewMode"`
	VisiblePages []int          `json:"visiblePages"`
	Zoom         float64        `json:"zoom"`
	PanX         float64        `json:"panX"`
	PanY         float64        `json:"panY"`
}

// BookStore 会话打开时加载书籍定义
type BookStore interface {
	FindByID(id uint) (*model.Book, error)
}

// ViewerService 观看器外壳：持有翻书会话，驱动坐标换算和共享音频通道的生命周期
type ViewerService struct {
	books    BookStore
	playback *PlaybackService
	media    *MediaService
	rdb      *redis.Client
	idleTTL  time.Duration

	mu       sync.RWMutex
	sessions map[string]*ViewerSession
}

func NewViewerService(books BookStore, playback *PlaybackService, media *MediaService, cfg *config.Config, rdb *redis.Client) *ViewerService {
	return &ViewerService{
		books:    books,
		playback: playback,
		media:    media,
		rdb:      rdb,
		idleTTL:  time.Duration(cfg.Player.SessionIdleMinutes) * time.Minute,
		sessions: make(map[string]*ViewerSession),
	}
}

// Open 加载书籍并创建翻书会话，同时为会话建立专属音频通道
func (s *ViewerService) Open(ctx context.Context, bookID, userID uint) (*ViewerState, error) {
	book, err := s.books.FindByID(bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrBookNotFound
		}
		return nil, err
	}

	session := &ViewerSession{
		ID:         model.GenerateUUID(),
		BookID:     bookID,
		UserID:     userID,
		book:       book,
		viewMode:   model.ViewSingle,
		zoom:       1.0,
		lastActive: time.Now(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.playback.Create(session.ID)

	if s.rdb != nil {
		key := viewerSessionPrefix + session.ID
		if err := s.rdb.Set(ctx, key, userID, s.idleTTL).Err(); err != nil {
			logger.Log.Warn("viewer session index write failed", zap.Error(err))
		}
	}

	logger.Log.Info("viewer session opened",
		zap.String("session", session.ID),
		zap.Uint("book", bookID),
		zap.Uint("user", userID))

	return session.snapshot(), nil
}

func (s *ViewerService) get(sessionID string, userID uint) (*ViewerSession, error) {
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

func (s *ViewerService) State(sessionID string, userID uint) (*ViewerState, error) {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return session.snapshot(), nil
}

// GoToPage 翻页，页码钳制到有效区间
// 翻页后缩放/平移回到默认值，页面自然尺寸清零等待客户端重新报告
func (s *ViewerService) GoToPage(sessionID string, userID uint, index int) (*ViewerState, error) {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	count := len(session.book.Pages)
	if index < 0 {
		index = 0
	}
	if count > 0 && index > count-1 {
		index = count - 1
	}
	if index != session.pageIndex {
		session.pageIndex = index
		session.zoom = 1.0
		session.panX = 0
		session.panY = 0
		session.pageWidth = 0
		session.pageHeight = 0
	}
	session.mu.Unlock()

	return session.snapshot(), nil
}

func (s *ViewerService) SetViewMode(sessionID string, userID uint, mode model.ViewMode) (*ViewerState, error) {
	if mode != model.ViewSingle && mode != model.ViewDouble {
		return nil, fmt.Errorf("unknown view mode: %s", mode)
	}

	session, err := s.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	session.viewMode = mode
	session.mu.Unlock()

	return session.snapshot(), nil
}

// SetPageSize 客户端报告当前页图片的自然尺寸
// 尺寸已知前，叠加层一律不渲染
func (s *ViewerService) SetPageSize(sessionID string, userID uint, width, height float64) error {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return model.ErrInvalidPageSize
	}

	session.mu.Lock()
	session.pageWidth = width
	session.pageHeight = height
	session.mu.Unlock()
	return nil
}

func (s *ViewerService) SetZoomPan(sessionID string, userID uint, zoom, panX, panY float64) (*ViewerState, error) {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	if zoom > 0 {
		session.zoom = zoom
	}
	session.panX = panX
	session.panY = panY
	session.mu.Unlock()

	return session.snapshot(), nil
}

// Overlays 当前页的全部叠加层，已换算为百分比坐标
// 页面尺寸未知时返回空列表；单条几何数据损坏只丢弃该条，不影响整页
func (s *ViewerService) Overlays(sessionID string, userID uint) ([]model.PositionedOverlay, error) {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	overlays := []model.PositionedOverlay{}
	if session.pageWidth <= 0 || session.pageHeight <= 0 {
		return overlays, nil
	}
	if session.pageIndex >= len(session.book.Pages) {
		return overlays, nil
	}

	page := session.book.Pages[session.pageIndex]
	w, h := session.pageWidth, session.pageHeight

	appendOverlay := func(id uint, kind model.OverlayKind, src, answer string, region model.Region) {
		rect, err := region.ToPercent(w, h)
		if err != nil {
			logger.Log.Debug("overlay dropped, bad geometry",
				zap.Uint("overlay", id), zap.Error(err))
			return
		}
		overlays = append(overlays, model.PositionedOverlay{
			ID: id, Kind: kind, Src: src, Answer: answer, Rect: rect,
		})
	}

	for _, a := range page.Audio {
		appendOverlay(a.ID, model.OverlayAudio, a.Src, "", a.Region)
	}
	for _, v := range page.Video {
		appendOverlay(v.ID, model.OverlayVideo, v.Src, "", v.Region)
	}
	for _, act := range page.Activities {
		appendOverlay(act.ID, model.OverlayActivity, "", "", act.Region)
	}
	for _, f := range page.FillAnswers {
		appendOverlay(f.ID, model.OverlayFillAnswer, "", f.Answer, f.Region)
	}
	for _, sec := range page.Sections {
		if page.Number < sec.StartPage || page.Number > sec.EndPage {
			continue
		}
		for _, a := range sec.Audio {
			appendOverlay(a.ID, model.OverlayAudio, a.Src, "", a.Region)
		}
		for _, v := range sec.Video {
			appendOverlay(v.ID, model.OverlayVideo, v.Src, "", v.Region)
		}
	}

	return overlays, nil
}

// Close 结束会话：销毁音频通道并释放该会话名下的媒体句柄
func (s *ViewerService) Close(ctx context.Context, sessionID string, userID uint) error {
	session, err := s.get(sessionID, userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, session.ID)
	s.mu.Unlock()

	s.playback.Dispose(session.ID)
	s.media.ReleaseByPrefix(ctx, session.ID)

	if s.rdb != nil {
		s.rdb.Del(ctx, viewerSessionPrefix+session.ID)
	}

	logger.Log.Info("viewer session closed", zap.String("session", session.ID))
	return nil
}

// SweepIdle 回收闲置超时的会话，由后台定时任务驱动
func (s *ViewerService) SweepIdle(ctx context.Context) int {
	s.mu.Lock()
	var expired []*ViewerSession
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
		s.playback.Dispose(session.ID)
		s.media.ReleaseByPrefix(ctx, session.ID)
		if s.rdb != nil {
			s.rdb.Del(ctx, viewerSessionPrefix+session.ID)
		}
	}
	return len(expired)
}

func (v *ViewerSession) snapshot() *ViewerState {
	v.mu.Lock()
	defer v.mu.Unlock()

	return &ViewerState{
		SessionID:    v.ID,
		BookID:       v.BookID,
		PageIndex:    v.pageIndex,
		PageCount:    len(v.book.Pages),
		ViewMode:     v.viewMode,
		VisiblePages: visiblePages(v.pageIndex, len(v.book.Pages), v.viewMode),
		Zoom:         v.zoom,
		PanX:         v.panX,
		PanY:         v.panY,
	}
}

// visiblePages 双页模式下封面和末页单独显示，其余按(奇,偶)配对
func visiblePages(index, count int, mode model.ViewMode) []int {
	if count == 0 {
		return []int{}
	}
	if mode == model.ViewSingle || index == 0 {
		return []int{index}
	}

	base := index
	if index%2 == 0 {
		base = index - 1
	}
	if base+1 <= count-1 {
		return []int{base, base + 1}
	}
	return []int{base}
}
