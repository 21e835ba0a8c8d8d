package repository

import (
	"flowbook_backend/internal/model"

	"gorm.io/gorm"
)

type BookRepository struct {
	DB *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{DB: db}
}

func (r *BookRepository) Create(book *model.Book) error {
	return r.DB.Create(book).Error
}

// FindByID 加载书籍及全部页面和叠加层描述
// 页面按页码排序，观看器以此决定翻页顺序
func (r *BookRepository) FindByID(id uint) (*model.Book, error) {
	var book model.Book
	err := r.DB.
		Preload("Modules").
		Preload("Pages", func(db *gorm.DB) *gorm.DB {
			return db.Order("pages.number ASC")
		}).
		Preload("Pages.Audio").
		Preload("Pages.Video").
		Preload("Pages.Activities").
		Preload("Pages.FillAnswers").
		Preload("Pages.Sections").
		Preload("Pages.Sections.Audio").
		Preload("Pages.Sections.Video").
		First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *BookRepository) FindPage(bookID uint, pageID uint) (*model.Page, error) {
	var page model.Page
	err := r.DB.Where("book_id = ?", bookID).
		Preload("Audio").
		Preload("Video").
		First(&page, pageID).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *BookRepository) SavePage(page *model.Page) error {
	return r.DB.Save(page).Error
}

func (r *BookRepository) List(page, limit int) ([]model.Book, int64, error) {
	var books []model.Book
	var total int64

	r.DB.Model(&model.Book{}).Count(&total)

	offset := (page - 1) * limit
	err := r.DB.Offset(offset).Limit(limit).Find(&books).Error
	return books, total, err
}
