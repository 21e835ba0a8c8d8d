package service

import (
	"context"
	"flowbook_backend/internal/config"
	"flowbook_backend/internal/model"
	"flowbook_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeBookStore struct {
	book *model.Book
}

func (f *fakeBookStore) FindByID(id uint) (*model.Book, error) {
	if f.book == nil || f.book.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.book, nil
}

func testBook(pageCount int) *model.Book {
	book := &model.Book{Title: "Fly High 1"}
	book.ID = 1
	for i := 0; i < pageCount; i++ {
		book.Pages = append(book.Pages, model.Page{Number: i, Image: "pages/p.jpg"})
	}
	return book
}

func newTestViewerService(book *model.Book) *ViewerService {
	cfg := &config.Config{
		Player: config.PlayerConfig{TimerTickSeconds: 1, SessionIdleMinutes: 120},
		Media: config.MediaConfig{
			ProtectedPrefixes:      []string{"/api/media/"},
			SignedURLExpireMinutes: 15,
			ResolveCacheMinutes:    10,
		},
	}
	media := NewMediaService(&StorageService{Provider: &fakeStorageProvider{}}, cfg, nil)
	return NewViewerService(&fakeBookStore{book: book}, NewPlaybackService(), media, cfg, nil)
}

func TestViewerOpenUnknownBook(t *testing.T) {
	svc := newTestViewerService(testBook(3))

	_, err := svc.Open(context.Background(), 99, 7)
	assert.ErrorIs(t, err, util.ErrBookNotFound)
}

func TestViewerOpenCreatesSessionWithAudioChannel(t *testing.T) {
	svc := newTestViewerService(testBook(5))

	state, err := svc.Open(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.Equal(t, 0, state.PageIndex)
	assert.Equal(t, 5, state.PageCount)
	assert.Equal(t, model.ViewSingle, state.ViewMode)
	assert.Equal(t, 1.0, state.Zoom)

	// 会话专属音频通道随会话创建
	_, err = svc.playback.Get(state.SessionID)
	assert.NoError(t, err)
}

func TestViewerSessionOwnership(t *testing.T) {
	svc := newTestViewerService(testBook(3))

	state, err := svc.Open(context.Background(), 1, 7)
	require.NoError(t, err)

	_, err = svc.State(state.SessionID, 8)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = svc.State("no-such-session", 7)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestViewerGoToPageClampsIndex(t *testing.T) {
	svc := newTestViewerService(testBook(4))
	state, err := svc.Open(context.Background(), 1, 7)
	require.NoError(t, err)

	state, err = svc.GoToPage(state.SessionID, 7, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, state.PageIndex)

	state, err = svc.GoToPage(state.SessionID, 7, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, state.PageIndex)
}

func TestViewerPageTurnResetsZoomAndPan(t *testing.T) {
	svc := newTestViewerService(testBook(4))
	opened, err := svc.Open(context.Background(), 1, 7)
	require.NoError(t, err)

	state, err := svc.SetZoomPan(opened.SessionID, 7, 2.5, 40, -20)
	require.NoError(t, err)
	assert.Equal(t, 2.5, state.Zoom)
	assert.Equal(t, 40.0, state.PanX)

	// 原地跳转不重置
	state, err = svc.GoToPage(opened.SessionID, 7, 0)
	require.NoError(t, err)
	assert.Equal(t, 2.5, state.Zoom)

	state, err = svc.GoToPage(opened.SessionID, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, state.Zoom)
	assert.Zero(t, state.PanX)
	assert.Zero(t, state.PanY)
}

func TestVisiblePages(t *testing.T) {
	cases := []struct {
		name  string
		index int
		count int
		mode  model.ViewMode
		want  []int
	}{
		{"single mode", 3, 10, model.ViewSingle, []int{3}},
		{"cover alone", 0, 10, model.ViewDouble, []int{0}},
		{"odd index starts pair", 1, 10, model.ViewDouble, []int{1, 2}},
		{"even index joins previous", 2, 10, model.ViewDouble, []int{1, 2}},
		{"middle pair", 5, 10, model.ViewDouble, []int{5, 6}},
		{"last page alone", 9, 10, model.ViewDouble, []int{9}},
		{"empty book", 0, 0, model.ViewDouble, []int{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, visiblePages(tc.index, tc.count, tc.mode))
		})
	}
}

func TestViewerOverlaysRequirePageSize(t *testing.T) {
	book := testBook(2)
	book.Pages[0].Audio = []model.AudioArea{
		{Src: "word-cat.mp3", Word: "cat", Region: model.Region{X: 100, Y: 150}},
	}
	book.Pages[0].FillAnswers = []model.FillAnswerArea{
		{Answer: "apple", Region: model.Region{X: 200, Y: 300, Width: 80, Height: 20}},
	}

	svc := newTestViewerService(book)
	opened, err := svc.Open(context.Background(), 1, 7)
	require.NoError(t, err)

	// 客户端尚未报告图片自然尺寸，任何叠加层都不渲染
	overlays, err := svc.Overlays(opened.SessionID, 7)
	require.NoError(t, err)
	assert.Empty(t, overlays)

	require.NoError(t, svc.SetPageSize(opened.SessionID, 7, 1000, 600))

	overlays, err = svc.Overlays(opened.SessionID, 7)
	require.NoError(t, err)
	require.Len(t, overlays, 2)

	audio := overlays[0]
	assert.Equal(t, model.OverlayAudio, audio.Kind)
	assert.Equal(t, "word-cat.mp3", audio.Src)
	assert.InDelta(t, 10.0, audio.Rect.Left, 1e-9)
	assert.InDelta(t, 25.0, audio.Rect.Top, 1e-9)

	fill := overlays[1]
	assert.Equal(t, model.OverlayFillAnswer, fill.Kind)
	assert.Equal(t, "apple", fill.Answer)
	assert.InDelta(t, 8.0, fill.Rect.Width, 1e-9)
}

func TestViewerPageTurnInvalidatesPageSize(t *testing.T) {
	book := testBook(3)
	book.Pages[1].Audio = []model.AudioArea{
		{Src: "a.mp3", Region: model.Region{X: 10, Y: 10}},
	}

	svc := newTestViewerService(book)
	opened, err := svc.Open(context.Background(), 1, 7)
	require.NoError(t, err)
	require.NoError(t, svc.SetPageSize(opened.SessionID, 7, 800, 600))

	_, err = svc.GoToPage(opened.SessionID, 7, 1)
	require.NoError(t, err)

	// 新页的尺寸未知，叠加层暂不渲染
	overlays, err := svc.Overlays(opened.SessionID, 7)
	require.NoError(t, err)
	assert.Empty(t, overlays)
}

func TestViewerSetPageSizeRejectsBadDimensions(t *testing.T) {
	svc := newTestViewerService(testBook(2))
	opened, err := svc.Open(context.Background(), 1, 7)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SetPageSize(opened.SessionID, 7, 0, 600), model.ErrInvalidPageSize)
	assert.ErrorIs(t, svc.SetPageSize(opened.SessionID, 7, 800, -1), model.ErrInvalidPageSize)
}

func TestViewerCloseDisposesChannel(t *testing.T) {
	svc := newTestViewerService(testBook(2))
	opened, err := svc.Open(context.Background(), 1, 7)
	require.NoError(t, err)

	require.NoError(t, svc.Close(context.Background(), opened.SessionID, 7))

	_, err = svc.State(opened.SessionID, 7)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
	_, err = svc.playback.Get(opened.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestViewerSectionOverlaysRespectPageRange(t *testing.T) {
	book := testBook(3)
	book.Pages[0].Sections = []model.PageSection{
		{
			StartPage: 0,
			EndPage:   1,
			Audio:     []model.AudioArea{{Src: "section.mp3", Region: model.Region{X: 50, Y: 50}}},
		},
		{
			StartPage: 2,
			EndPage:   2,
			Audio:     []model.AudioArea{{Src: "other.mp3", Region: model.Region{X: 60, Y: 60}}},
		},
	}

	svc := newTestViewerService(book)
	opened, err := svc.Open(context.Background(), 1, 7)
	require.NoError(t, err)
	require.NoError(t, svc.SetPageSize(opened.SessionID, 7, 1000, 1000))

	overlays, err := svc.Overlays(opened.SessionID, 7)
	require.NoError(t, err)
	require.Len(t, overlays, 1)
	assert.Equal(t, "section.mp3", overlays[0].Src)
}
