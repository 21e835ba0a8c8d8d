package model

import "time"

type ActivityType string

const (
	ActivityQuiz       ActivityType = "quiz"
	ActivityMatching   ActivityType = "matching"
	ActivityWordSearch ActivityType = "word-search"
	ActivityFillBlank  ActivityType = "fill-blank"
	ActivityDragDrop   ActivityType = "drag-drop"
	ActivityListening  ActivityType = "listening"
)

// Assignment represents a multi-activity assignment bound to a book
// swagger:model Assignment
type Assignment struct {
	BaseModel
	Title            string               `gorm:"size:255;not null" json:"title"`
	BookID           uint                 `gorm:"index;type:bigint unsigned" json:"bookId"`
	TeacherID        uint                 `gorm:"index;type:bigint unsigned" json:"teacherId"`
	TimeLimitMinutes *int                 `json:"timeLimitMinutes,omitempty"` // 为空表示不限时
	VideoPath        string               `gorm:"size:500" json:"videoPath,omitempty"`
	Activities       []AssignmentActivity `gorm:"foreignKey:AssignmentID" json:"activities,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// AssignmentActivity 作业内的单个活动，具体题型配置由叶子组件自行解释
// swagger:model AssignmentActivity
type AssignmentActivity struct {
	BaseModel
	AssignmentID uint         `gorm:"index;type:bigint unsigned" json:"assignmentId"`
	Type         ActivityType `gorm:"size:50;not null" json:"type"`
	Order        int          `gorm:"column:sort_order;default:0" json:"order"`
	MaxScore     float64      `gorm:"default:100" json:"maxScore"`
	ConfigJSON   string       `gorm:"type:text" json:"config,omitempty"`
}

func (AssignmentActivity) TableName() string {
	return "assignment_activities"
}

// SessionState 作业会话状态机
type SessionState string

const (
	SessionLoading      SessionState = "loading"
	SessionReady        SessionState = "ready"
	SessionInProgress   SessionState = "in-progress"
	SessionReviewing    SessionState = "reviewing"
	SessionSubmitting   SessionState = "submitting"
	SessionSubmitted    SessionState = "submitted"
	SessionSubmitFailed SessionState = "submit-failed"
)

type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not-started"
	StatusInProgress ProgressStatus = "in-progress"
	StatusCompleted  ProgressStatus = "completed"
)

// ActivityProgress 学生在单个活动上的进度记录
// 只由会话在导航事件和叶子活动回调时写入
// swagger:model ActivityProgress
type ActivityProgress struct {
	BaseModel
	AssignmentID     uint           `gorm:"index;type:bigint unsigned" json:"assignmentId"`
	UserID           uint           `gorm:"index;type:bigint unsigned" json:"userId"`
	ActivityID       uint           `gorm:"index;type:bigint unsigned" json:"activityId"`
	Status           ProgressStatus `gorm:"size:20;default:'not-started'" json:"status"`
	Score            *float64       `json:"score,omitempty"`
	TimeSpentSeconds int            `gorm:"default:0" json:"timeSpentSeconds"`
	Attempts         int            `gorm:"default:0" json:"attempts"`
}

func (ActivityProgress) TableName() string {
	return "activity_progress"
}

// AssignmentSubmission 一次作业的最终提交结果
// swagger:model AssignmentSubmission
type AssignmentSubmission struct {
	BaseModel
	AssignmentID  uint      `gorm:"index;type:bigint unsigned" json:"assignmentId"`
	UserID        uint      `gorm:"index;type:bigint unsigned" json:"userId"`
	CombinedScore float64   `json:"combinedScore"`
	ElapsedSecs   int       `gorm:"column:elapsed_seconds" json:"elapsedSeconds"`
	AutoSubmitted bool      `gorm:"default:false" json:"autoSubmitted"` // 超时自动提交
	CompletedAt   time.Time `json:"completedAt"`
	DetailJSON    string    `gorm:"type:text" json:"-"`
}

func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}
