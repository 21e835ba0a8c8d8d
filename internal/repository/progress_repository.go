package repository

import (
	"flowbook_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// FindByAssignmentAndUser 取回学生此前的进度记录，用于断点续做
func (r *ProgressRepository) FindByAssignmentAndUser(assignmentID, userID uint) ([]model.ActivityProgress, error) {
	var records []model.ActivityProgress
	err := r.DB.Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		Find(&records).Error
	return records, err
}

func (r *ProgressRepository) FindSubmission(assignmentID, userID uint) (*model.AssignmentSubmission, error) {
	var sub model.AssignmentSubmission
	err := r.DB.Where("assignment_id = ? AND user_id = ?", assignmentID, userID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// SaveSubmission 在单个事务中落库提交结果和全部进度记录
// 任一步失败则整体回滚，会话侧保留本地进度以便重试
func (r *ProgressRepository) SaveSubmission(sub *model.AssignmentSubmission, records []model.ActivityProgress) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		for i := range records {
			rec := &records[i]
			err := tx.Where("assignment_id = ? AND user_id = ? AND activity_id = ?",
				rec.AssignmentID, rec.UserID, rec.ActivityID).
				Assign(map[string]interface{}{
					"status":             rec.Status,
					"score":              rec.Score,
					"time_spent_seconds": rec.TimeSpentSeconds,
					"attempts":           rec.Attempts,
				}).
				FirstOrCreate(&model.ActivityProgress{}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
