package controller

import (
	"errors"
	"flowbook_backend/internal/service"
	"flowbook_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// PlaybackController 共享音频通道的传输控制
// 所有操作先经观看器会话校验归属，再落到该会话的通道上
type PlaybackController struct {
	ViewerService   *service.ViewerService
	PlaybackService *service.PlaybackService
}

func NewPlaybackController(viewerService *service.ViewerService, playbackService *service.PlaybackService) *PlaybackController {
	return &PlaybackController{
		ViewerService:   viewerService,
		PlaybackService: playbackService,
	}
}

func (c *PlaybackController) channel(ctx *gin.Context) *service.AudioChannel {
	sessionID := ctx.Param("sessionId")
	claims := util.GetUserFromContext(ctx)

	// 归属校验走观看器会话
	if _, err := c.ViewerService.State(sessionID, claims.UserID); err != nil {
		if errors.Is(err, util.ErrPermissionDenied) {
			util.Forbidden(ctx)
		} else {
			util.NotFound(ctx)
		}
		return nil
	}

	ch, err := c.PlaybackService.Get(sessionID)
	if err != nil {
		util.NotFound(ctx)
		return nil
	}
	return ch
}

// PlayRequest swagger:model PlayRequest
type PlayRequest struct {
	Src string `json:"src" binding:"required"`
}

// Play godoc
// @Summary 播放指定音频来源
// @Description 来源不同则整体替换旧来源；同源且暂停中则恢复播放
// @Tags playback
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Param   body body PlayRequest true "音频来源"
// @Success 200 {object} util.Response{data=model.ChannelState} "Success"
// @Router /api/viewer/{sessionId}/playback/play [post]
func (c *PlaybackController) Play(ctx *gin.Context) {
	var req PlayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ch := c.channel(ctx)
	if ch == nil {
		return
	}

	state, err := ch.Play(req.Src)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, state)
}

// Pause godoc
// @Summary 暂停播放（非播放状态下为空操作）
// @Tags playback
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response{data=model.ChannelState} "Success"
// @Router /api/viewer/{sessionId}/playback/pause [post]
func (c *PlaybackController) Pause(ctx *gin.Context) {
	ch := c.channel(ctx)
	if ch == nil {
		return
	}
	util.Success(ctx, ch.Pause())
}

// Stop godoc
// @Summary 停止播放并释放当前来源
// @Tags playback
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response{data=model.ChannelState} "Success"
// @Router /api/viewer/{sessionId}/playback/stop [post]
func (c *PlaybackController) Stop(ctx *gin.Context) {
	ch := c.channel(ctx)
	if ch == nil {
		return
	}
	util.Success(ctx, ch.Stop())
}

// VolumeRequest swagger:model VolumeRequest
type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

// SetVolume godoc
// @Summary 调整音量（0到1）
// @Tags playback
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Param   body body VolumeRequest true "音量"
// @Success 200 {object} util.Response{data=model.ChannelState} "Success"
// @Router /api/viewer/{sessionId}/playback/volume [post]
func (c *PlaybackController) SetVolume(ctx *gin.Context) {
	var req VolumeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	ch := c.channel(ctx)
	if ch == nil {
		return
	}
	util.Success(ctx, ch.SetVolume(req.Volume))
}

// ToggleMute godoc
// @Summary 静音开关
// @Tags playback
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response{data=model.ChannelState} "Success"
// @Router /api/viewer/{sessionId}/playback/mute [post]
func (c *PlaybackController) ToggleMute(ctx *gin.Context) {
	ch := c.channel(ctx)
	if ch == nil {
		return
	}
	util.Success(ctx, ch.ToggleMute())
}

// CycleRate godoc
// @Summary 循环切换倍速
// @Description 在固定倍速集合中依次切换，到末尾后回绕
// @Tags playback
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response{data=model.ChannelState} "Success"
// @Router /api/viewer/{sessionId}/playback/rate [post]
func (c *PlaybackController) CycleRate(ctx *gin.Context) {
	ch := c.channel(ctx)
	if ch == nil {
		return
	}
	util.Success(ctx, ch.CyclePlaybackRate())
}

// GetState godoc
// @Summary 查询通道状态
// @Tags playback
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response{data=model.ChannelState} "Success"
// @Router /api/viewer/{sessionId}/playback [get]
func (c *PlaybackController) GetState(ctx *gin.Context) {
	ch := c.channel(ctx)
	if ch == nil {
		return
	}
	util.Success(ctx, ch.Snapshot())
}
