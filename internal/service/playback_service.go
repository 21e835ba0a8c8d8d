package service

import (
	"flowbook_backend/internal/model"
	"flowbook_backend/internal/util"
	"flowbook_backend/pkg/monitoring"
	"sync"
)

// AudioChannel 共享音频通道
// 一个观看器会话只有一个通道，页面上所有音频图标共用它，
// 各图标通过对比自己的src与快照判断按下状态，自己不持有播放权。
// 切换来源时先替换currentSrc再对外可见，不存在两个来源同时为"当前"的窗口。
type AudioChannel struct {
	mu    sync.Mutex
	state model.ChannelState
}

func NewAudioChannel() *AudioChannel {
	return &AudioChannel{
		state: model.ChannelState{
			State:        model.TransportStopped,
			Volume:       1.0,
			PlaybackRate: 1.0,
		},
	}
}

// Play 播放指定来源
// 来源不同：整体替换，旧来源停止；来源相同且暂停中：恢复播放
func (c *AudioChannel) Play(src string) (model.ChannelState, error) {
	if src == "" {
		return c.Snapshot(), util.ErrMediaSourceEmpty
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CurrentSrc == src && c.state.State == model.TransportPaused {
		c.state.State = model.TransportPlaying
		monitoring.PlaybackTransitions.WithLabelValues("resume").Inc()
		return c.state, nil
	}

	c.state.CurrentSrc = src
	c.state.State = model.TransportPlaying
	monitoring.PlaybackTransitions.WithLabelValues("play").Inc()
	return c.state, nil
}

// Pause 仅在播放中有效，其余状态为空操作
func (c *AudioChannel) Pause() model.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.State == model.TransportPlaying {
		c.state.State = model.TransportPaused
		monitoring.PlaybackTransitions.WithLabelValues("pause").Inc()
	}
	return c.state
}

// Stop 任意状态可停，释放当前来源
func (c *AudioChannel) Stop() model.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.CurrentSrc = ""
	c.state.State = model.TransportStopped
	monitoring.PlaybackTransitions.WithLabelValues("stop").Inc()
	return c.state
}

// SetVolume 音量钳制到[0,1]，任意状态可调
func (c *AudioChannel) SetVolume(v float64) model.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.state.Volume = v
	return c.state
}

func (c *AudioChannel) ToggleMute() model.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.IsMuted = !c.state.IsMuted
	return c.state
}

// CyclePlaybackRate 在固定倍速集合中循环切换，到末尾后回绕
func (c *AudioChannel) CyclePlaybackRate() model.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()

	rates := model.PlaybackRates
	next := rates[0]
	for i, r := range rates {
		if r == c.state.PlaybackRate {
			next = rates[(i+1)%len(rates)]
			break
		}
	}
	c.state.PlaybackRate = next
	return c.state
}

func (c *AudioChannel) Snapshot() model.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PlaybackService 按观看器会话管理音频通道的生命周期
// 通道随会话创建、随会话销毁，多个会话互不干扰
type PlaybackService struct {
	mu       sync.RWMutex
	channels map[string]*AudioChannel
}

func NewPlaybackService() *PlaybackService {
	return &PlaybackService{
		channels: make(map[string]*AudioChannel),
	}
}

func (s *PlaybackService) Create(sessionID string) *AudioChannel {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := NewAudioChannel()
	s.channels[sessionID] = ch
	return ch
}

func (s *PlaybackService) Get(sessionID string) (*AudioChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.channels[sessionID]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	return ch, nil
}

func (s *PlaybackService) Dispose(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, sessionID)
}
