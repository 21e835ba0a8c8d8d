package service

import (
	"flowbook_backend/internal/model"
	"flowbook_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioChannelPlayReplacesSource(t *testing.T) {
	ch := NewAudioChannel()

	state, err := ch.Play("page1/word-cat.mp3")
	require.NoError(t, err)
	assert.Equal(t, model.TransportPlaying, state.State)
	assert.True(t, state.IsActive("page1/word-cat.mp3"))

	// 第二个图标按下，旧来源整体被替换，同一时刻只有一个来源在播
	state, err = ch.Play("page1/word-dog.mp3")
	require.NoError(t, err)
	assert.Equal(t, "page1/word-dog.mp3", state.CurrentSrc)
	assert.True(t, state.IsActive("page1/word-dog.mp3"))
	assert.False(t, state.IsActive("page1/word-cat.mp3"))
}

func TestAudioChannelResumeKeepsSource(t *testing.T) {
	ch := NewAudioChannel()

	_, err := ch.Play("story.mp3")
	require.NoError(t, err)

	state := ch.Pause()
	assert.Equal(t, model.TransportPaused, state.State)
	assert.Equal(t, "story.mp3", state.CurrentSrc)

	// 同源再次播放是恢复，不是重新开始
	state, err = ch.Play("story.mp3")
	require.NoError(t, err)
	assert.Equal(t, model.TransportPlaying, state.State)
	assert.Equal(t, "story.mp3", state.CurrentSrc)
}

func TestAudioChannelPauseIsNoOpWhenNotPlaying(t *testing.T) {
	ch := NewAudioChannel()

	state := ch.Pause()
	assert.Equal(t, model.TransportStopped, state.State)

	_, err := ch.Play("a.mp3")
	require.NoError(t, err)
	ch.Stop()

	state = ch.Pause()
	assert.Equal(t, model.TransportStopped, state.State)
	assert.Empty(t, state.CurrentSrc)
}

func TestAudioChannelPlayRejectsEmptySource(t *testing.T) {
	ch := NewAudioChannel()

	_, err := ch.Play("")
	assert.ErrorIs(t, err, util.ErrMediaSourceEmpty)
	assert.Equal(t, model.TransportStopped, ch.Snapshot().State)
}

func TestAudioChannelStopClearsSourceFromAnyState(t *testing.T) {
	ch := NewAudioChannel()

	_, err := ch.Play("a.mp3")
	require.NoError(t, err)
	ch.Pause()

	state := ch.Stop()
	assert.Equal(t, model.TransportStopped, state.State)
	assert.Empty(t, state.CurrentSrc)
}

func TestAudioChannelVolumeClamped(t *testing.T) {
	ch := NewAudioChannel()

	assert.Equal(t, 0.0, ch.SetVolume(-0.5).Volume)
	assert.Equal(t, 1.0, ch.SetVolume(1.5).Volume)
	assert.Equal(t, 0.3, ch.SetVolume(0.3).Volume)
}

func TestAudioChannelRateCyclesAndWraps(t *testing.T) {
	ch := NewAudioChannel()

	// 初始1.0，依次走完集合后回绕
	want := []float64{1.25, 1.5, 2.0, 0.5, 0.75, 1.0}
	for _, rate := range want {
		state := ch.CyclePlaybackRate()
		assert.Equal(t, rate, state.PlaybackRate)
	}
}

func TestPlaybackServiceChannelsAreIsolated(t *testing.T) {
	svc := NewPlaybackService()

	a := svc.Create("session-a")
	b := svc.Create("session-b")

	_, err := a.Play("a.mp3")
	require.NoError(t, err)

	assert.Equal(t, model.TransportStopped, b.Snapshot().State)

	got, err := svc.Get("session-a")
	require.NoError(t, err)
	assert.Same(t, a, got)

	svc.Dispose("session-a")
	_, err = svc.Get("session-a")
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}
