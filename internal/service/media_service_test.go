package service

import (
	"context"
	"errors"
	"flowbook_backend/internal/config"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorageProvider 只关心 PresignedGetURL，其余接口方法给空实现
type fakeStorageProvider struct {
	mu        sync.Mutex
	presignFn func(filename string) (string, error)
	calls     []string
}

func (f *fakeStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	return "", nil
}

func (f *fakeStorageProvider) UploadFile(ctx context.Context, filename string, localPath string, contentType string) (string, error) {
	return "", nil
}

func (f *fakeStorageProvider) Delete(ctx context.Context, filename string) error { return nil }

func (f *fakeStorageProvider) GetURL(filename string) string { return "/uploads/" + filename }

func (f *fakeStorageProvider) PresignedGetURL(ctx context.Context, filename string, expiry time.Duration) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, filename)
	fn := f.presignFn
	f.mu.Unlock()
	if fn != nil {
		return fn(filename)
	}
	return "https://signed.example.com/" + filename, nil
}

func newTestMediaService(provider StorageProvider) *MediaService {
	cfg := &config.Config{
		Media: config.MediaConfig{
			ProtectedPrefixes:      []string{"/api/media/"},
			SignedURLExpireMinutes: 15,
			ResolveCacheMinutes:    10,
		},
	}
	return NewMediaService(&StorageService{Provider: provider}, cfg, nil)
}

func TestMediaResolvePassthroughForPlainPaths(t *testing.T) {
	fake := &fakeStorageProvider{}
	svc := newTestMediaService(fake)

	url := svc.Resolve(context.Background(), "assets/page1.jpg")
	assert.Equal(t, "assets/page1.jpg", url)
	assert.Empty(t, fake.calls)
}

func TestMediaResolveSignsProtectedSources(t *testing.T) {
	fake := &fakeStorageProvider{}
	svc := newTestMediaService(fake)

	url := svc.Resolve(context.Background(), "/api/media/books/1/audio.mp3")
	assert.Equal(t, "https://signed.example.com/books/1/audio.mp3", url)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "books/1/audio.mp3", fake.calls[0])
}

func TestMediaResolveFailureDegradesToEmpty(t *testing.T) {
	fake := &fakeStorageProvider{
		presignFn: func(string) (string, error) {
			return "", errors.New("bucket unreachable")
		},
	}
	svc := newTestMediaService(fake)

	url := svc.Resolve(context.Background(), "/api/media/missing.mp3")
	assert.Empty(t, url)
}

func TestMediaResolveEmptySource(t *testing.T) {
	svc := newTestMediaService(&fakeStorageProvider{})
	assert.Empty(t, svc.Resolve(context.Background(), ""))
}

func TestMediaResolverDiscardsStaleResponse(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fake := &fakeStorageProvider{
		presignFn: func(filename string) (string, error) {
			close(entered)
			<-release
			return "https://signed.example.com/" + filename, nil
		},
	}
	svc := newTestMediaService(fake)
	resolver := svc.ResolverFor("sess:overlay-1")

	done := make(chan string)
	go func() {
		done <- resolver.Resolve(context.Background(), "/api/media/slow.mp3")
	}()
	<-entered

	// 解析还在途中时来源被替换，旧请求的响应必须作废
	url := resolver.Resolve(context.Background(), "assets/fast.jpg")
	assert.Equal(t, "assets/fast.jpg", url)

	close(release)
	stale := <-done
	assert.Equal(t, "assets/fast.jpg", stale)

	src, current := resolver.Current()
	assert.Equal(t, "assets/fast.jpg", src)
	assert.Equal(t, "assets/fast.jpg", current)
}

func TestMediaResolverReleaseIsIdempotent(t *testing.T) {
	svc := newTestMediaService(&fakeStorageProvider{})
	resolver := svc.ResolverFor("sess:overlay-2")

	resolver.Resolve(context.Background(), "assets/a.jpg")
	resolver.Release(context.Background())
	resolver.Release(context.Background())

	src, url := resolver.Current()
	assert.Empty(t, src)
	assert.Empty(t, url)

	// 释放后的解析器不再接受新请求
	assert.Empty(t, resolver.Resolve(context.Background(), "assets/b.jpg"))
}

func TestMediaReleaseByPrefixOnlyTouchesOwnSession(t *testing.T) {
	svc := newTestMediaService(&fakeStorageProvider{})

	mine := svc.ResolverFor("sess-1:overlay-1")
	other := svc.ResolverFor("sess-2:overlay-1")
	mine.Resolve(context.Background(), "assets/a.jpg")
	other.Resolve(context.Background(), "assets/b.jpg")

	svc.ReleaseByPrefix(context.Background(), "sess-1")

	_, url := mine.Current()
	assert.Empty(t, url)
	_, url = other.Current()
	assert.Equal(t, "assets/b.jpg", url)
}
