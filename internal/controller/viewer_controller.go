package controller

import (
	"errors"
	"flowbook_backend/internal/model"
	"flowbook_backend/internal/service"
	"flowbook_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ViewerController struct {
	ViewerService *service.ViewerService
}

func NewViewerController(viewerService *service.ViewerService) *ViewerController {
	return &ViewerController{ViewerService: viewerService}
}

func respondViewerError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrSessionNotFound), errors.Is(err, util.ErrBookNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, model.ErrInvalidPageSize):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// OpenRequest swagger:model OpenRequest
type OpenRequest struct {
	BookID uint `json:"bookId" binding:"required"`
}

// Open godoc
// @Summary 打开书籍，创建翻书会话
// @Tags viewer
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body OpenRequest true "书籍ID"
// @Success 201 {object} util.Response{data=service.ViewerState} "Created"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/viewer/open [post]
func (c *ViewerController) Open(ctx *gin.Context) {
	var req OpenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	state, err := c.ViewerService.Open(ctx, req.BookID, claims.UserID)
	if err != nil {
		respondViewerError(ctx, err)
		return
	}

	util.Created(ctx, state)
}

// GetState godoc
// @Summary 查询翻书会话状态
// @Tags viewer
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response{data=service.ViewerState} "Success"
// @Router /api/viewer/{sessionId} [get]
func (c *ViewerController) GetState(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	state, err := c.ViewerService.State(ctx.Param("sessionId"), claims.UserID)
	if err != nil {
		respondViewerError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// GoToPageRequest swagger:model GoToPageRequest
type GoToPageRequest struct {
	Page int `json:"page"`
}

// GoToPage godoc
// @Summary 翻页
// @Description 页码钳制到有效区间，翻页后缩放/平移重置
// @Tags viewer
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Param   body body GoToPageRequest true "目标页"
// @Success 200 {object} util.Response{data=service.ViewerState} "Success"
// @Router /api/viewer/{sessionId}/goto [post]
func (c *ViewerController) GoToPage(ctx *gin.Context) {
	var req GoToPageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	state, err := c.ViewerService.GoToPage(ctx.Param("sessionId"), claims.UserID, req.Page)
	if err != nil {
		respondViewerError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// ViewModeRequest swagger:model ViewModeRequest
type ViewModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=single double"`
}

// SetViewMode godoc
// @Summary 切换单页/双页模式
// @Tags viewer
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Param   body body ViewModeRequest true "显示模式"
// @Success 200 {object} util.Response{data=service.ViewerState} "Success"
// @Router /api/viewer/{sessionId}/view-mode [post]
func (c *ViewerController) SetViewMode(ctx *gin.Context) {
	var req ViewModeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	state, err := c.ViewerService.SetViewMode(ctx.Param("sessionId"), claims.UserID, model.ViewMode(req.Mode))
	if err != nil {
		respondViewerError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// PageSizeRequest swagger:model PageSizeRequest
type PageSizeRequest struct {
	Width  float64 `json:"width" binding:"required"`
	Height float64 `json:"height" binding:"required"`
}

// SetPageSize godoc
// @Summary 报告当前页图片的自然尺寸
// @Description 叠加层坐标换算依赖自然尺寸，报告之前叠加层不渲染
// @Tags viewer
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Param   body body PageSizeRequest true "自然尺寸（像素）"
// @Success 200 {object} util.Response "Success"
// @Router /api/viewer/{sessionId}/page-size [post]
func (c *ViewerController) SetPageSize(ctx *gin.Context) {
	var req PageSizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.ViewerService.SetPageSize(ctx.Param("sessionId"), claims.UserID, req.Width, req.Height); err != nil {
		respondViewerError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ZoomPanRequest swagger:model ZoomPanRequest
type ZoomPanRequest struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// SetZoomPan godoc
// @Summary 调整缩放与平移
// @Tags viewer
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Param   body body ZoomPanRequest true "缩放与平移"
// @Success 200 {object} util.Response{data=service.ViewerState} "Success"
// @Router /api/viewer/{sessionId}/zoom [post]
func (c *ViewerController) SetZoomPan(ctx *gin.Context) {
	var req ZoomPanRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	state, err := c.ViewerService.SetZoomPan(ctx.Param("sessionId"), claims.UserID, req.Zoom, req.PanX, req.PanY)
	if err != nil {
		respondViewerError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// GetOverlays godoc
// @Summary 当前页叠加层（百分比坐标）
// @Description 页面尺寸未报告时返回空列表
// @Tags viewer
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response{data=[]model.PositionedOverlay} "Success"
// @Router /api/viewer/{sessionId}/overlays [get]
func (c *ViewerController) GetOverlays(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	overlays, err := c.ViewerService.Overlays(ctx.Param("sessionId"), claims.UserID)
	if err != nil {
		respondViewerError(ctx, err)
		return
	}
	util.Success(ctx, overlays)
}

// Close godoc
// @Summary 关闭翻书会话
// @Tags viewer
// @Produce  json
// @Security ApiKeyAuth
// @Param   sessionId path string true "Session ID"
// @Success 200 {object} util.Response "Success"
// @Router /api/viewer/{sessionId}/close [post]
func (c *ViewerController) Close(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.ViewerService.Close(ctx, ctx.Param("sessionId"), claims.UserID); err != nil {
		respondViewerError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
