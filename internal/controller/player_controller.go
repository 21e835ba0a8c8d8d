package controller

import (
	"errors"
	"flowbook_backend/internal/service"
	"flowbook_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PlayerController struct {
	PlayerService *service.PlayerService
}

func NewPlayerController(playerService *service.PlayerService) *PlayerController {
	return &PlayerController{PlayerService: playerService}
}

// 错误分级：404/403/409为终态，503可重试（本地进度保留）
func respondPlayerError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAssignmentNotFound), errors.Is(err, util.ErrSessionNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrAssignmentCompleted):
		util.Conflict(ctx, "assignment already submitted")
	case errors.Is(err, util.ErrSubmitInFlight):
		util.Conflict(ctx, "submission already in flight")
	case errors.Is(err, util.ErrSubmitFailed):
		util.Error(ctx, http.StatusServiceUnavailable, "submit failed, progress preserved, please retry")
	case errors.Is(err, util.ErrTimeLimitExceeded), errors.Is(err, util.ErrSessionClosed),
		errors.Is(err, util.ErrActivityNotFound):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// Start godoc
// @Summary 启动作业会话
// @Description 返回活动列表、历史进度和时限；已提交过的作业返回409
// @Tags player
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "Assignment ID"
// @Success 201 {object} util.Response{data=service.PlayerState} "Created"
// @Failure 404 {object} util.Response "Not Found"
// @Failure 409 {object} util.Response "Conflict"
// @Router /api/assignments/{id}/start [post]
func (c *PlayerController) Start(ctx *gin.Context) {
	assignmentID := util.MustParseUint(ctx.Param("id"))
	claims := util.GetUserFromContext(ctx)

	state, err := c.PlayerService.Start(assignmentID, claims.UserID)
	if err != nil {
		respondPlayerError(ctx, err)
		return
	}

	util.Created(ctx, state)
}

// GetState godoc
// @Summary 查询作业会话状态
// @Tags player
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response{data=service.PlayerState} "Success"
// @Router /api/player/{sessionId} [get]
func (c *PlayerController) GetState(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	state, err := c.PlayerService.State(ctx.Param("sessionId"), claims.UserID)
	if err != nil {
		respondPlayerError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// NavigateRequest swagger:model NavigateRequest
type NavigateRequest struct {
	Op    string `json:"op" binding:"required,oneof=next previous goto"`
	Index int    `json:"index"`
}

// Navigate godoc
// @Summary 活动间导航
// @Description 非线性导航，与完成状态无关；倒计时跨导航持续运行
// @Tags player
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Param   body body NavigateRequest true "导航指令"
// @Success 200 {object} util.Response{data=service.PlayerState} "Success"
// @Router /api/player/{sessionId}/navigate [post]
func (c *PlayerController) Navigate(ctx *gin.Context) {
	var req NavigateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	state, err := c.PlayerService.Navigate(ctx.Param("sessionId"), claims.UserID, req.Op, req.Index)
	if err != nil {
		respondPlayerError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// ActivityResultRequest swagger:model ActivityResultRequest
type ActivityResultRequest struct {
	Score            float64 `json:"score"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
}

// SubmitActivityResult godoc
// @Summary 叶子活动上报完成结果
// @Description 会话合并得分与用时并标记完成；是否允许重做由活动类型决定
// @Tags player
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Param   activityId path int true "Activity ID"
// @Param   body body ActivityResultRequest true "活动结果"
// @Success 200 {object} util.Response{data=service.PlayerState} "Success"
// @Router /api/player/{sessionId}/activities/{activityId}/result [post]
func (c *PlayerController) SubmitActivityResult(ctx *gin.Context) {
	var req ActivityResultRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	activityID := util.MustParseUint(ctx.Param("activityId"))

	state, err := c.PlayerService.ApplyResult(ctx.Param("sessionId"), claims.UserID, activityID, req.Score, req.TimeSpentSeconds)
	if err != nil {
		respondPlayerError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// Submit godoc
// @Summary 提交作业
// @Description 聚合全部进度一次性落库；失败时进度保留可重试，在途提交拒绝重复
// @Tags player
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response{data=service.PlayerState} "Success"
// @Failure 409 {object} util.Response "Conflict"
// @Failure 503 {object} util.Response "Submit failed, retry allowed"
// @Router /api/player/{sessionId}/submit [post]
func (c *PlayerController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	state, err := c.PlayerService.Submit(ctx.Param("sessionId"), claims.UserID)
	if err != nil {
		respondPlayerError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// Exit godoc
// @Summary 不提交退出
// @Description 本地进度不写服务器，唯一写入点是提交
// @Tags player
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response "Success"
// @Router /api/player/{sessionId}/exit [post]
func (c *PlayerController) Exit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.PlayerService.Exit(ctx.Param("sessionId"), claims.UserID); err != nil {
		respondPlayerError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
