package controller

import (
	"errors"
	"flowbook_backend/internal/model"
	"flowbook_backend/internal/service"
	"flowbook_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type BookController struct {
	ContentService *service.ContentService
}

func NewBookController(contentService *service.ContentService) *BookController {
	return &BookController{ContentService: contentService}
}

// GetBook godoc
// @Summary 获取书籍配置
// @Description 返回书籍、模块和全部页面的叠加层描述
// @Tags book
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "Book ID"
// @Success 200 {object} util.Response{data=model.Book} "Success"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/books/{id} [get]
func (c *BookController) GetBook(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	book, err := c.ContentService.GetBook(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, book)
}

// ListBooks godoc
// @Summary 获取书籍列表
// @Tags book
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "Page number"
// @Param   limit query int false "Page size"
// @Success 200 {object} util.Response{data=util.PageResponse} "Success"
// @Router /api/books [get]
func (c *BookController) ListBooks(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	books, total, err := c.ContentService.ListBooks(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  books,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// CreateBookRequest defines model for book creation
// swagger:model CreateBookRequest
type CreateBookRequest struct {
	Title    string       `json:"title" binding:"required"`
	Author   string       `json:"author"`
	Cover    string       `json:"cover"`
	Language string       `json:"language"`
	Pages    []model.Page `json:"pages"`
}

// CreateBook godoc
// @Summary 创建书籍（教师/管理员）
// @Tags book
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CreateBookRequest true "书籍定义"
// @Success 201 {object} util.Response{data=object} "Created"
// @Failure 400 {object} util.Response "Bad Request"
// @Router /api/admin/books [post]
func (c *BookController) CreateBook(ctx *gin.Context) {
	var req CreateBookRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	book := &model.Book{
		Title:    req.Title,
		Author:   req.Author,
		Cover:    req.Cover,
		Language: req.Language,
		Pages:    req.Pages,
	}

	if err := c.ContentService.CreateBook(book); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"id": book.ID})
}

// UploadPageMedia godoc
// @Summary 上传页面媒体并挂载叠加层（教师/管理员）
// @Description 上传音频或视频，探测时长后保存为页面叠加层
// @Tags book
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "Book ID"
// @Param   pageId path int true "Page ID"
// @Param   kind formData string true "Media kind (audio, video)" Enums(audio, video)
// @Param   x formData number true "Region X"
// @Param   y formData number true "Region Y"
// @Param   width formData number false "Region width"
// @Param   height formData number false "Region height"
// @Param   file formData file true "Media file"
// @Success 201 {object} util.Response{data=object} "Created"
// @Failure 400 {object} util.Response "Bad Request"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/admin/books/{id}/pages/{pageId}/media [post]
func (c *BookController) UploadPageMedia(ctx *gin.Context) {
	bookID := util.MustParseUint(ctx.Param("id"))
	pageID := util.MustParseUint(ctx.Param("pageId"))

	kind := model.OverlayKind(ctx.PostForm("kind"))
	x, _ := strconv.ParseFloat(ctx.PostForm("x"), 64)
	y, _ := strconv.ParseFloat(ctx.PostForm("y"), 64)
	w, _ := strconv.ParseFloat(ctx.PostForm("width"), 64)
	h, _ := strconv.ParseFloat(ctx.PostForm("height"), 64)

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}

	region := model.Region{X: x, Y: y, Width: w, Height: h}
	url, err := c.ContentService.UploadPageMedia(ctx, bookID, pageID, file, kind, region)
	if err != nil {
		if errors.Is(err, util.ErrPageNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}

	util.Created(ctx, gin.H{"url": url})
}
