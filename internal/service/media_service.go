package service

import (
	"context"
	"flowbook_backend/internal/config"
	"flowbook_backend/pkg/logger"
	"flowbook_backend/pkg/monitoring"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const mediaCachePrefix = "media:resolve:"

// MediaService 媒体解析网关
// 受保护的来源换取带签名的临时URL，普通路径原样放行。
// 解析失败一律降级为空地址，由调用方把对应叠加层置为禁用，绝不向上抛错。
type MediaService struct {
	Storage *StorageService
	cfg     *config.MediaConfig
	rdb     *redis.Client

	mu        sync.Mutex
	resolvers map[string]*MediaResolver
}

func NewMediaService(storage *StorageService, cfg *config.Config, rdb *redis.Client) *MediaService {
	return &MediaService{
		Storage:   storage,
		cfg:       &cfg.Media,
		rdb:       rdb,
		resolvers: make(map[string]*MediaResolver),
	}
}

// IsProtected 按已知协议或API路径前缀判断来源是否需要鉴权
func (s *MediaService) IsProtected(src string) bool {
	for _, prefix := range s.cfg.ProtectedPrefixes {
		if strings.HasPrefix(src, prefix) {
			return true
		}
	}
	return false
}

// objectName 从受保护来源中提取存储对象名
func (s *MediaService) objectName(src string) string {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		if u, err := url.Parse(src); err == nil {
			return strings.TrimPrefix(u.Path, "/")
		}
	}
	for _, prefix := range s.cfg.ProtectedPrefixes {
		if !strings.HasPrefix(prefix, "http") && strings.HasPrefix(src, prefix) {
			return strings.TrimPrefix(src, prefix)
		}
	}
	return strings.TrimPrefix(src, "/")
}

// Resolve 把创作端引用的媒体地址换成可播放地址
// 返回空串表示解析失败，对应叠加层应隐藏或禁用
func (s *MediaService) Resolve(ctx context.Context, src string) string {
	if src == "" {
		return ""
	}

	if !s.IsProtected(src) {
		monitoring.MediaResolves.WithLabelValues("passthrough").Inc()
		return src
	}

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, mediaCachePrefix+src).Result()
		if err == nil && cached != "" {
			monitoring.MediaResolves.WithLabelValues("cached").Inc()
			return cached
		}
	}

	expiry := time.Duration(s.cfg.SignedURLExpireMinutes) * time.Minute
	signed, err := s.Storage.PresignedGetURL(ctx, s.objectName(src), expiry)
	if err != nil {
		logger.Log.Warn("media resolve failed", zap.String("src", src), zap.Error(err))
		monitoring.MediaResolves.WithLabelValues("failed").Inc()
		return ""
	}

	if s.rdb != nil {
		ttl := time.Duration(s.cfg.ResolveCacheMinutes) * time.Minute
		if err := s.rdb.Set(ctx, mediaCachePrefix+src, signed, ttl).Err(); err != nil {
			logger.Log.Warn("media cache write failed", zap.Error(err))
		}
	}

	monitoring.MediaResolves.WithLabelValues("signed").Inc()
	return signed
}

// ResolverFor 返回某个叠加层实例专属的解析器，不存在则创建
func (s *MediaService) ResolverFor(consumerID string) *MediaResolver {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.resolvers[consumerID]
	if !ok {
		r = &MediaResolver{svc: s}
		s.resolvers[consumerID] = r
	}
	return r
}

// ReleaseResolver 叠加层卸载时调用，重复调用无害
func (s *MediaService) ReleaseResolver(ctx context.Context, consumerID string) {
	s.mu.Lock()
	r, ok := s.resolvers[consumerID]
	delete(s.resolvers, consumerID)
	s.mu.Unlock()

	if ok {
		r.Release(ctx)
	}
}

// ReleaseByPrefix 释放某会话名下的全部解析器（consumerID约定为"sessionID:overlayID"）
func (s *MediaService) ReleaseByPrefix(ctx context.Context, sessionID string) {
	prefix := sessionID + ":"

	s.mu.Lock()
	var released []*MediaResolver
	for id, r := range s.resolvers {
		if strings.HasPrefix(id, prefix) {
			released = append(released, r)
			delete(s.resolvers, id)
		}
	}
	s.mu.Unlock()

	for _, r := range released {
		r.Release(ctx)
	}
}

// MediaResolver 单个叠加层实例的解析状态
// 用代数守卫丢弃迟到的解析结果：src已被替换时，旧请求的响应不得覆盖新状态
type MediaResolver struct {
	svc *MediaService

	mu       sync.Mutex
	gen      uint64
	src      string
	url      string
	released bool
}

// Resolve 解析src并更新解析器状态，返回当前生效的地址
// 若解析期间src已被更新，本次结果作废，保留较新的状态
func (r *MediaResolver) Resolve(ctx context.Context, src string) string {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return ""
	}
	r.gen++
	myGen := r.gen
	r.src = src
	r.mu.Unlock()

	resolved := r.svc.Resolve(ctx, src)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != myGen || r.released {
		// 迟到的响应，当前src已不是发起请求时的那个
		monitoring.MediaResolves.WithLabelValues("stale").Inc()
		return r.url
	}
	r.url = resolved
	return r.url
}

// Current 返回最近一次成功生效的解析结果
func (r *MediaResolver) Current() (src, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src, r.url
}

// Release 释放解析句柄并作废在途请求，恰好生效一次
func (r *MediaResolver) Release(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	r.gen++
	r.src = ""
	r.url = ""
}
