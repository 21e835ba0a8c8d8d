package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionToPercent(t *testing.T) {
	region := Region{X: 100, Y: 150, Width: 200, Height: 50}

	rect, err := region.ToPercent(1000, 600)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, rect.Left, 1e-9)
	assert.InDelta(t, 25.0, rect.Top, 1e-9)
	assert.InDelta(t, 20.0, rect.Width, 1e-9)
	assert.InDelta(t, 50.0/6.0, rect.Height, 1e-9)
}

func TestRegionToPercentOmitsZeroDimensions(t *testing.T) {
	// 单词发音图标只有坐标点，没有宽高
	region := Region{X: 320, Y: 240}

	rect, err := region.ToPercent(640, 480)
	require.NoError(t, err)

	assert.InDelta(t, 50.0, rect.Left, 1e-9)
	assert.InDelta(t, 50.0, rect.Top, 1e-9)
	assert.Zero(t, rect.Width)
	assert.Zero(t, rect.Height)
}

func TestRegionToPercentRejectsBadPageSize(t *testing.T) {
	region := Region{X: 10, Y: 10}

	cases := []struct {
		name   string
		width  float64
		height float64
	}{
		{"zero width", 0, 600},
		{"zero height", 800, 0},
		{"negative width", -800, 600},
		{"negative height", 800, -600},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := region.ToPercent(tc.width, tc.height)
			assert.ErrorIs(t, err, ErrInvalidPageSize)
		})
	}
}

func TestRegionToPercentPassesThroughOutOfRangeData(t *testing.T) {
	// 越界的创作数据原样透传，不做修正
	region := Region{X: 1200, Y: -60, Width: 400, Height: 100}

	rect, err := region.ToPercent(1000, 600)
	require.NoError(t, err)

	assert.InDelta(t, 120.0, rect.Left, 1e-9)
	assert.InDelta(t, -10.0, rect.Top, 1e-9)
	assert.InDelta(t, 40.0, rect.Width, 1e-9)
}

func TestRegionToPercentIsPure(t *testing.T) {
	region := Region{X: 100, Y: 100, Width: 50, Height: 50}

	first, err := region.ToPercent(500, 500)
	require.NoError(t, err)
	second, err := region.ToPercent(500, 500)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, Region{X: 100, Y: 100, Width: 50, Height: 50}, region)
}
