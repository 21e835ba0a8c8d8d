package model

type TransportState string

const (
	TransportStopped TransportState = "stopped"
	TransportPlaying TransportState = "playing"
	TransportPaused  TransportState = "paused"
)

// PlaybackRates 允许的倍速集合，循环切换时按此顺序回绕
var PlaybackRates = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}

// ChannelState 共享音频通道的只读快照
// 全局至多一个currentSrc，所有音频图标据此判断自己是否处于播放态
// swagger:model ChannelState
type ChannelState struct {
	CurrentSrc   string         `json:"currentSrc,omitempty"`
	State        TransportState `json:"state"`
	Volume       float64        `json:"volume"`
	IsMuted      bool           `json:"isMuted"`
	PlaybackRate float64        `json:"playbackRate"`
}

// IsActive 给定来源当前是否为正在播放的来源
func (s ChannelState) IsActive(src string) bool {
	return src != "" && s.CurrentSrc == src && s.State == TransportPlaying
}

type ViewMode string

const (
	ViewSingle ViewMode = "single"
	ViewDouble ViewMode = "double"
)
