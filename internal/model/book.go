package model

// Book represents a flowbook and its page list
// swagger:model Book
type Book struct {
	BaseModel
	Title    string       `gorm:"size:255;not null" json:"title"`
	Author   string       `gorm:"size:255" json:"author"`
	Cover    string       `gorm:"size:255" json:"cover"`
	Modules  []BookModule `gorm:"foreignKey:BookID" json:"modules,omitempty"`
	Pages    []Page       `gorm:"foreignKey:BookID" json:"pages,omitempty"`
	Language string       `gorm:"size:20;default:'en'" json:"language"`
}

func (Book) TableName() string {
	return "books"
}

// BookModule 命名的连续页范围，不在Page上建外键，按范围归属
// swagger:model BookModule
type BookModule struct {
	BaseModel
	BookID    uint   `gorm:"index;type:bigint unsigned" json:"bookId"`
	Name      string `gorm:"size:255;not null" json:"name"`
	StartPage int    `gorm:"not null" json:"startPage"`
	EndPage   *int   `json:"endPage,omitempty"`
}

func (BookModule) TableName() string {
	return "book_modules"
}

// Contains 页码是否落在该模块范围内
func (m *BookModule) Contains(page int) bool {
	if page < m.StartPage {
		return false
	}
	return m.EndPage == nil || page <= *m.EndPage
}

// Page 单页及其叠加层描述
// swagger:model Page
type Page struct {
	BaseModel
	BookID      uint             `gorm:"index;type:bigint unsigned" json:"bookId"`
	Number      int              `gorm:"not null;index" json:"number"`
	Image       string           `gorm:"size:255;not null" json:"image"`
	Width       float64          `gorm:"default:0" json:"width"`  // 图片自然宽度（像素）
	Height      float64          `gorm:"default:0" json:"height"` // 图片自然高度（像素）
	Audio       []AudioArea      `gorm:"foreignKey:PageID" json:"audio,omitempty"`
	Video       []VideoArea      `gorm:"foreignKey:PageID" json:"video,omitempty"`
	Activities  []ActivityArea   `gorm:"foreignKey:PageID" json:"activities,omitempty"`
	FillAnswers []FillAnswerArea `gorm:"foreignKey:PageID" json:"fillAnswers,omitempty"`
	Sections    []PageSection    `gorm:"foreignKey:PageID" json:"sections,omitempty"`
}

func (Page) TableName() string {
	return "pages"
}

// PageSection 页内子范围，携带独立于页面媒体的叠加层
// swagger:model PageSection
type PageSection struct {
	BaseModel
	PageID    uint        `gorm:"index;type:bigint unsigned" json:"pageId"`
	StartPage int         `json:"startPage"`
	EndPage   int         `json:"endPage"`
	Audio     []AudioArea `gorm:"foreignKey:SectionID" json:"audio,omitempty"`
	Video     []VideoArea `gorm:"foreignKey:SectionID" json:"video,omitempty"`
}

func (PageSection) TableName() string {
	return "page_sections"
}

// AudioArea 页面上的发音/朗读图标
// swagger:model AudioArea
type AudioArea struct {
	BaseModel
	PageID    uint   `gorm:"index;type:bigint unsigned" json:"pageId"`
	SectionID *uint  `gorm:"index;type:bigint unsigned" json:"sectionId,omitempty"`
	Src       string `gorm:"size:500;not null" json:"src"`
	Word      string `gorm:"size:255" json:"word,omitempty"` // 单词发音图标对应的词
	Region
}

func (AudioArea) TableName() string {
	return "audio_areas"
}

// VideoArea 视频热区
// swagger:model VideoArea
type VideoArea struct {
	BaseModel
	PageID    uint   `gorm:"index;type:bigint unsigned" json:"pageId"`
	SectionID *uint  `gorm:"index;type:bigint unsigned" json:"sectionId,omitempty"`
	Src       string `gorm:"size:500;not null" json:"src"`
	Region
}

func (VideoArea) TableName() string {
	return "video_areas"
}

// ActivityArea 页面上嵌入的活动入口区域
// swagger:model ActivityArea
type ActivityArea struct {
	BaseModel
	PageID       uint         `gorm:"index;type:bigint unsigned" json:"pageId"`
	ActivityType ActivityType `gorm:"size:50" json:"activityType"`
	ConfigJSON   string       `gorm:"type:text" json:"config,omitempty"`
	Region
}

func (ActivityArea) TableName() string {
	return "activity_areas"
}

// FillAnswerArea 点击显示答案的填空区域
// swagger:model FillAnswerArea
type FillAnswerArea struct {
	BaseModel
	PageID uint   `gorm:"index;type:bigint unsigned" json:"pageId"`
	Answer string `gorm:"type:text;not null" json:"answer"`
	Region
}

func (FillAnswerArea) TableName() string {
	return "fill_answer_areas"
}

// OverlayKind 叠加层类型
type OverlayKind string

const (
	OverlayAudio      OverlayKind = "audio"
	OverlayVideo      OverlayKind = "video"
	OverlayActivity   OverlayKind = "activity"
	OverlayFillAnswer OverlayKind = "fill-answer"
)

// PositionedOverlay 已换算为百分比坐标、可直接渲染的叠加层
// swagger:model PositionedOverlay
type PositionedOverlay struct {
	ID     uint        `json:"id"`
	Kind   OverlayKind `json:"kind"`
	Src    string      `json:"src,omitempty"`
	Answer string      `json:"answer,omitempty"`
	Rect   PercentRect `json:"rect"`
}
