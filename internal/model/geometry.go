package model

import "errors"

var ErrInvalidPageSize = errors.New("page dimensions must be positive")

// Region 叠加层在页面原始坐标系中的位置
// 坐标相对于页面图片的自然尺寸，与缩放、视口无关
// swagger:model Region
type Region struct {
	X      float64 `gorm:"column:x" json:"x"`
	Y      float64 `gorm:"column:y" json:"y"`
	Width  float64 `gorm:"column:width" json:"width,omitempty"`
	Height float64 `gorm:"column:height" json:"height,omitempty"`
}

// PercentRect CSS百分比定位结果
// swagger:model PercentRect
type PercentRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// ToPercent 将原始坐标换算为相对页面尺寸的百分比
// 越界的创作数据原样透传，不做修正，避免掩盖排版错误
func (r Region) ToPercent(pageWidth, pageHeight float64) (PercentRect, error) {
	if pageWidth <= 0 || pageHeight <= 0 {
		return PercentRect{}, ErrInvalidPageSize
	}

	rect := PercentRect{
		Left: r.X / pageWidth * 100,
		Top:  r.Y / pageHeight * 100,
	}
	if r.Width > 0 {
		rect.Width = r.Width / pageWidth * 100
	}
	if r.Height > 0 {
		rect.Height = r.Height / pageHeight * 100
	}
	return rect, nil
}
