package service

import (
	"context"
	"flowbook_backend/internal/config"
	"flowbook_backend/internal/model"
	"flowbook_backend/internal/repository"
	"flowbook_backend/internal/util"
	"flowbook_backend/pkg/logger"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ContentService 书籍与页面媒体的内容管理
type ContentService struct {
	BookRepo *repository.BookRepository
	Storage  *StorageService
	Cfg      *config.Config
}

func NewContentService(bookRepo *repository.BookRepository, storage *StorageService, cfg *config.Config) *ContentService {
	return &ContentService{
		BookRepo: bookRepo,
		Storage:  storage,
		Cfg:      cfg,
	}
}

func (s *ContentService) CreateBook(book *model.Book) error {
	return s.BookRepo.Create(book)
}

func (s *ContentService) GetBook(id uint) (*model.Book, error) {
	return s.BookRepo.FindByID(id)
}

func (s *ContentService) ListBooks(page, limit int) ([]model.Book, int64, error) {
	return s.BookRepo.List(page, limit)
}

// UploadPageMedia 上传页面音频/视频并挂载为叠加层
// 先落临时文件探测时长，再传存储，最后写叠加层记录
func (s *ContentService) UploadPageMedia(ctx context.Context, bookID, pageID uint, file *multipart.FileHeader, kind model.OverlayKind, region model.Region) (string, error) {
	page, err := s.BookRepo.FindPage(bookID, pageID)
	if err != nil {
		return "", util.ErrPageNotFound
	}

	var allowedExts []string
	var allowedMimes []string
	switch kind {
	case model.OverlayAudio:
		allowedExts = util.AllowedAudioExtensions
		allowedMimes = []string{util.MimeAudio, util.MimeOctetStream}
	case model.OverlayVideo:
		allowedExts = util.AllowedVideoExtensions
		allowedMimes = []string{util.MimeVideo, util.MimeOctetStream}
	default:
		return "", fmt.Errorf("unsupported media kind: %s", kind)
	}

	if !util.HasAllowedExtension(file.Filename, allowedExts) {
		return "", fmt.Errorf("file extension not allowed: %s", file.Filename)
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if _, err := util.ValidateMimeType(src, allowedMimes); err != nil {
		return "", err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	// 临时文件用于ffmpeg探测
	tmp, err := os.CreateTemp("", "pagemedia-*"+filepath.Ext(file.Filename))
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", err
	}
	tmp.Close()

	info, err := util.ProbeMedia(tmpPath)
	if err != nil {
		// 探测失败不阻断上传，时长留空
		logger.Log.Warn("media probe failed", zap.String("file", file.Filename), zap.Error(err))
		info = &util.MediaInfo{}
	}

	objectName := fmt.Sprintf("books/%d/pages/%d/%d%s",
		bookID, pageID, time.Now().UnixNano(), filepath.Ext(file.Filename))

	url, err := s.Storage.UploadFile(ctx, objectName, tmpPath, file.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}

	switch kind {
	case model.OverlayAudio:
		page.Audio = append(page.Audio, model.AudioArea{
			PageID: page.ID,
			Src:    url,
			Region: region,
		})
	case model.OverlayVideo:
		page.Video = append(page.Video, model.VideoArea{
			PageID: page.ID,
			Src:    url,
			Region: region,
		})
	}

	if err := s.BookRepo.SavePage(page); err != nil {
		return "", err
	}

	logger.Log.Info("page media uploaded",
		zap.Uint("book", bookID),
		zap.Uint("page", pageID),
		zap.String("object", objectName),
		zap.Float64("duration", info.Duration))

	return url, nil
}
