package controller

import (
	"errors"
	"flowbook_backend/internal/model"
	"flowbook_backend/internal/repository"
	"flowbook_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AssignmentController struct {
	AssignmentRepo *repository.AssignmentRepository
}

func NewAssignmentController(assignmentRepo *repository.AssignmentRepository) *AssignmentController {
	return &AssignmentController{AssignmentRepo: assignmentRepo}
}

// CreateAssignmentRequest swagger:model CreateAssignmentRequest
type CreateAssignmentRequest struct {
	Title            string                     `json:"title" binding:"required"`
	BookID           uint                       `json:"bookId" binding:"required"`
	TimeLimitMinutes *int                       `json:"timeLimitMinutes"`
	VideoPath        string                     `json:"videoPath"`
	Activities       []model.AssignmentActivity `json:"activities" binding:"required,min=1"`
}

// CreateAssignment godoc
// @Summary 创建作业（教师/管理员）
// @Tags assignment
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CreateAssignmentRequest true "作业定义"
// @Success 201 {object} util.Response{data=object} "Created"
// @Failure 400 {object} util.Response "Bad Request"
// @Router /api/admin/assignments [post]
func (c *AssignmentController) CreateAssignment(ctx *gin.Context) {
	var req CreateAssignmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	assignment := &model.Assignment{
		Title:            req.Title,
		BookID:           req.BookID,
		TeacherID:        claims.UserID,
		TimeLimitMinutes: req.TimeLimitMinutes,
		VideoPath:        req.VideoPath,
		Activities:       req.Activities,
	}

	if err := c.AssignmentRepo.Create(assignment); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"id": assignment.ID})
}

// GetAssignment godoc
// @Summary 获取作业定义
// @Tags assignment
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "Assignment ID"
// @Success 200 {object} util.Response{data=model.Assignment} "Success"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/assignments/{id} [get]
func (c *AssignmentController) GetAssignment(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	assignment, err := c.AssignmentRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, assignment)
}

// ListMyAssignments godoc
// @Summary 教师名下的作业列表
// @Tags assignment
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "Page number"
// @Param   limit query int false "Page size"
// @Success 200 {object} util.Response{data=util.PageResponse} "Success"
// @Router /api/admin/assignments [get]
func (c *AssignmentController) ListMyAssignments(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	claims := util.GetUserFromContext(ctx)
	assignments, total, err := c.AssignmentRepo.ListByTeacher(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  assignments,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
