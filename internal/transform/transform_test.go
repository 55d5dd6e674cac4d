/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/geom"
)

func TestResizeImage_SideHandles(t *testing.T) {
	start := DefaultScaled()

	tests := []struct {
		name   string
		handle Handle
		dx, dy float64
		want   Scaled
	}{
		{"east grows scaleX", HandleE, 100, 0, Scaled{X: 0, Y: 0, ScaleX: 1.2, ScaleY: 1, Scale: 1}},
		{"west shifts x", HandleW, -50, 0, Scaled{X: -12.5, Y: 0, ScaleX: 1.1, ScaleY: 1, Scale: 1}},
		{"south grows scaleY", HandleS, 0, 50, Scaled{X: 0, Y: 0, ScaleX: 1, ScaleY: 1.1, Scale: 1}},
		{"north shifts y", HandleN, 0, -100, Scaled{X: 0, Y: -25, ScaleX: 1, ScaleY: 1.2, Scale: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResizeImage(start, tt.handle, tt.dx, tt.dy)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.ScaleX, got.ScaleX, 1e-9)
			assert.InDelta(t, tt.want.ScaleY, got.ScaleY, 1e-9)
			assert.InDelta(t, tt.want.Scale, got.Scale, 1e-9)
		})
	}
}

func TestResizeImage_CornerDirection(t *testing.T) {
	start := DefaultScaled()

	// 3-4-5 triangle keeps the distance exact.
	grow := ResizeImage(start, HandleSE, 3, 4)
	assert.InDelta(t, 1.015, grow.Scale, 1e-9)
	assert.Equal(t, 1.0, grow.ScaleX)
	assert.Equal(t, 1.0, grow.ScaleY)

	shrink := ResizeImage(start, HandleNE, -3, 4)
	assert.InDelta(t, 0.985, shrink.Scale, 1e-9)

	west := ResizeImage(start, HandleNW, -3, -4)
	assert.InDelta(t, 1.015, west.Scale, 1e-9)
	westShrink := ResizeImage(start, HandleSW, 3, 4)
	assert.InDelta(t, 0.985, westShrink.Scale, 1e-9)

	// dx == 0 counts as moving inward for every corner.
	assert.InDelta(t, 0.97, ResizeImage(start, HandleSE, 0, 10).Scale, 1e-9)
	assert.InDelta(t, 0.97, ResizeImage(start, HandleSW, 0, 10).Scale, 1e-9)
}

func TestResizeLogo_AllHandlesProportional(t *testing.T) {
	start := DefaultScaled()
	for _, h := range ResizeHandles {
		got := ResizeLogo(start, h, 30, 40)
		assert.Equal(t, 1.0, got.ScaleX, h.String())
		assert.Equal(t, 1.0, got.ScaleY, h.String())
		assert.Equal(t, 0.0, got.X, h.String())
		assert.Equal(t, 0.0, got.Y, h.String())
		if h == HandleNW || h == HandleSW {
			assert.InDelta(t, 0.85, got.Scale, 1e-9, h.String())
		} else {
			assert.InDelta(t, 1.15, got.Scale, 1e-9, h.String())
		}
	}
	assert.Equal(t, start, ResizeLogo(start, HandleMove, 30, 40))
}

func TestResize_ScaleBounds(t *testing.T) {
	deltas := []float64{1e6, -1e6, 1e-9, 0, 12345.6}
	for _, h := range ResizeHandles {
		for _, dx := range deltas {
			for _, dy := range deltas {
				for _, got := range []Scaled{ResizeImage(DefaultScaled(), h, dx, dy), ResizeLogo(DefaultScaled(), h, dx, dy)} {
					require.NoError(t, got.Validate(), "handle=%s dx=%v dy=%v", h, dx, dy)
				}
			}
		}
	}
	assert.Equal(t, MaxScale, ResizeImage(DefaultScaled(), HandleE, 1e6, 0).ScaleX)
	assert.Equal(t, MinScale, ResizeImage(DefaultScaled(), HandleE, -1e6, 0).ScaleX)
}

func TestResizeBox(t *testing.T) {
	rendered := geom.Size{W: 240, H: 80}

	t.Run("west floor", func(t *testing.T) {
		got := ResizeBox(Box{Width: Float(200)}, rendered, HandleW, 150, 0)
		require.NotNil(t, got.Width)
		assert.Equal(t, 100.0, *got.Width)
		assert.Nil(t, got.Height)
	})
	t.Run("east grows", func(t *testing.T) {
		got := ResizeBox(Box{X: 5, Y: 6, Width: Float(200)}, rendered, HandleE, 25, 99)
		assert.Equal(t, 225.0, *got.Width)
		assert.Nil(t, got.Height)
		assert.Equal(t, 5.0, got.X)
		assert.Equal(t, 6.0, got.Y)
	})
	t.Run("missing size falls back to rendered", func(t *testing.T) {
		got := ResizeBox(Box{}, rendered, HandleSE, 10, 20)
		assert.Equal(t, 250.0, *got.Width)
		assert.Equal(t, 100.0, *got.Height)
	})
	t.Run("north shrinks", func(t *testing.T) {
		got := ResizeBox(Box{Height: Float(120)}, rendered, HandleN, 0, 30)
		assert.Equal(t, 90.0, *got.Height)
	})
	t.Run("start is not aliased", func(t *testing.T) {
		start := Box{Width: Float(200), Height: Float(60)}
		_ = ResizeBox(start, rendered, HandleNE, 50, -50)
		assert.Equal(t, 200.0, *start.Width)
		assert.Equal(t, 60.0, *start.Height)
	})
	t.Run("floor under extreme deltas", func(t *testing.T) {
		for _, h := range ResizeHandles {
			got := ResizeBox(Box{}, rendered, h, -1e6*sign(h), 1e6)
			require.NoError(t, got.Validate(), h.String())
			got = ResizeBox(Box{}, rendered, h, 1e6, -1e6)
			require.NoError(t, got.Validate(), h.String())
		}
	})
}

func sign(h Handle) float64 {
	if h == HandleW || h == HandleNW || h == HandleSW {
		return -1
	}
	return 1
}

func TestNormalizeAndValidate(t *testing.T) {
	s := Scaled{X: math.NaN(), Y: 3, ScaleX: 9, ScaleY: 0, Scale: 0.1}.Normalize()
	assert.Equal(t, Scaled{X: 0, Y: 3, ScaleX: MaxScale, ScaleY: 1, Scale: MinScale}, s)
	require.NoError(t, s.Validate())

	require.ErrorIs(t, Scaled{ScaleX: 1, ScaleY: 1, Scale: 5}.Validate(), ErrOutOfRange)
	require.ErrorIs(t, Box{Width: Float(20)}.Validate(), ErrOutOfRange)
	require.ErrorIs(t, Box{X: math.Inf(1)}.Validate(), ErrOutOfRange)

	b := Box{Width: Float(10), Height: Float(math.NaN())}.Normalize()
	assert.Equal(t, MinTextWidth, *b.Width)
	assert.Equal(t, MinTextHeight, *b.Height)
}

func TestValidateReportsFirstBadField(t *testing.T) {
	bad := Scaled{X: math.NaN(), Y: math.Inf(1), ScaleX: 9, ScaleY: 0, Scale: 0}
	for i := 0; i < 20; i++ {
		err := bad.Validate()
		require.ErrorIs(t, err, ErrOutOfRange)
		assert.Contains(t, err.Error(), "x is not finite")
	}
	for i := 0; i < 20; i++ {
		err := Scaled{ScaleX: 1, ScaleY: 9, Scale: 0}.Validate()
		require.ErrorIs(t, err, ErrOutOfRange)
		assert.Contains(t, err.Error(), "scaleY=9")
	}
}

func TestBoxMovedAndEqual(t *testing.T) {
	b := Box{X: 1, Y: 2, Width: Float(150)}
	m := b.Moved(10, -2)
	assert.Equal(t, 11.0, m.X)
	assert.Equal(t, 0.0, m.Y)
	*m.Width = 300
	assert.Equal(t, 150.0, *b.Width)
	assert.True(t, b.Equal(Box{X: 1, Y: 2, Width: Float(150)}))
	assert.False(t, b.Equal(Box{X: 1, Y: 2}))
}

func TestParseHandle(t *testing.T) {
	h, err := ParseHandle(" NE ")
	require.NoError(t, err)
	assert.Equal(t, HandleNE, h)
	assert.True(t, h.IsCorner())

	_, err = ParseHandle("middle")
	assert.Error(t, err)
	assert.False(t, HandleMove.IsResize())
	assert.Equal(t, "none", HandleNone.String())
}
