package repository

import (
	"flowbook_backend/internal/model"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(assignment *model.Assignment) error {
	return r.DB.Create(assignment).Error
}

func (r *AssignmentRepository) FindByID(id uint) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.DB.
		Preload("Activities", func(db *gorm.DB) *gorm.DB {
			return db.Order("assignment_activities.sort_order ASC")
		}).
		First(&assignment, id).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentRepository) ListByTeacher(teacherID uint, page, limit int) ([]model.Assignment, int64, error) {
	var assignments []model.Assignment
	var total int64

	query := r.DB.Model(&model.Assignment{}).Where("teacher_id = ?", teacherID)
	query.Count(&total)

	offset := (page - 1) * limit
	err := query.Preload("Activities").Offset(offset).Limit(limit).Find(&assignments).Error
	return assignments, total, err
}
