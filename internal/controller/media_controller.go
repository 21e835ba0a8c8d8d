package controller

import (
	"flowbook_backend/internal/service"
	"flowbook_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MediaController struct {
	MediaService *service.MediaService
}

func NewMediaController(mediaService *service.MediaService) *MediaController {
	return &MediaController{MediaService: mediaService}
}

// ResolveRequest swagger:model ResolveRequest
type ResolveRequest struct {
	Src string `json:"src" binding:"required"`
	// 叠加层实例标识，同一实例的并发解析按最新的算
	ConsumerID string `json:"consumerId"`
}

// Resolve godoc
// @Summary 解析媒体地址
// @Description 受保护来源换取签名URL，普通路径原样返回；失败时url为空，调用方应禁用对应叠加层
// @Tags media
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ResolveRequest true "媒体来源"
// @Success 200 {object} util.Response{data=object} "Success"
// @Router /api/media/resolve [post]
func (c *MediaController) Resolve(ctx *gin.Context) {
	var req ResolveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	var url string
	if req.ConsumerID != "" {
		url = c.MediaService.ResolverFor(req.ConsumerID).Resolve(ctx, req.Src)
	} else {
		url = c.MediaService.Resolve(ctx, req.Src)
	}

	// 失败降级为空地址，不向客户端报错
	util.Success(ctx, gin.H{"src": req.Src, "url": url})
}

// ReleaseRequest swagger:model ReleaseRequest
type ReleaseRequest struct {
	ConsumerID string `json:"consumerId" binding:"required"`
}

// Release godoc
// @Summary 释放叠加层的媒体解析句柄
// @Description 叠加层卸载或来源变更时调用，重复释放无害
// @Tags media
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ReleaseRequest true "叠加层实例标识"
// @Success 200 {object} util.Response "Success"
// @Router /api/media/release [post]
func (c *MediaController) Release(ctx *gin.Context) {
	var req ReleaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	c.MediaService.ReleaseResolver(ctx, req.ConsumerID)
	util.Success(ctx, nil)
}
