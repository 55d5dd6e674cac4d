/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package patch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidedeck/internal/domain"
	"slidedeck/internal/transform"
)

func TestApplyRejectsIllegalKinds(t *testing.T) {
	text := domain.NewText(domain.RoleTitle, "hi", transform.Box{})
	img := domain.NewImage(0, 0)
	logo := domain.NewLogo(0, 0)

	tests := []struct {
		name string
		el   domain.Element
		p    Patch
	}{
		{"scale on text", text, Scale{ScaleX: 1, ScaleY: 1, Scale: 2}},
		{"box on image", img, BoxSize{Width: transform.Float(200)}},
		{"style on logo", logo, Style{Style: domain.DefaultStyle()}},
		{"nil", img, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.el, tt.p)
			require.ErrorIs(t, err, ErrIllegal)
			assert.Equal(t, tt.el, got)
		})
	}
}

func TestApplyPositionByKind(t *testing.T) {
	img, err := Apply(domain.NewImage(1, 2), Position{X: 10, Y: 20})
	require.NoError(t, err)
	assert.Equal(t, 10.0, img.Scaled.X)
	assert.Equal(t, 1.0, img.Scaled.Scale)

	txt, err := Apply(domain.NewText(domain.RoleTitle, "", transform.Box{Width: transform.Float(150)}), Position{X: 5, Y: 6})
	require.NoError(t, err)
	assert.Equal(t, 5.0, txt.Box.X)
	assert.Equal(t, 150.0, *txt.Box.Width)
}

func TestApplyClampsOutOfRange(t *testing.T) {
	img, err := Apply(domain.NewImage(0, 0), Scale{ScaleX: 10, ScaleY: 0.01, Scale: 1.5})
	require.NoError(t, err)
	assert.Equal(t, transform.Scaled{ScaleX: 3, ScaleY: 0.2, Scale: 1.5}, *img.Scaled)

	txt, err := Apply(domain.NewText(domain.RoleTitle, "", transform.Box{}), BoxSize{Height: transform.Float(10)})
	require.NoError(t, err)
	assert.Nil(t, txt.Box.Width)
	assert.Equal(t, transform.MinTextHeight, *txt.Box.Height)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	el := domain.NewText(domain.RoleTitle, "a", transform.Box{Width: transform.Float(300)})
	_, err := Apply(el, BoxSize{Width: transform.Float(120)})
	require.NoError(t, err)
	assert.Equal(t, 300.0, *el.Box.Width)
}

func TestDeleteHidesAndClears(t *testing.T) {
	img := domain.NewImage(0, 0)
	img.Content = "https://cdn/x.png"
	got, err := ApplyUpdate(img, Delete(img.ID))
	require.NoError(t, err)
	assert.True(t, got.Hidden)
	assert.Empty(t, got.Content)

	got, err = ApplyUpdate(got, Show(img.ID))
	require.NoError(t, err)
	assert.False(t, got.Hidden)
}

func TestApplyUpdateIsAtomic(t *testing.T) {
	txt := domain.NewText(domain.RoleTitle, "a", transform.Box{})
	u := Update{ElementID: txt.ID, Patches: []Patch{Content{Value: "b"}, Scale{Scale: 2}}}
	got, err := ApplyUpdate(txt, u)
	require.ErrorIs(t, err, ErrIllegal)
	assert.Equal(t, "a", got.Content)

	_, err = ApplyUpdate(txt, Replace("other", "x"))
	require.ErrorIs(t, err, ErrIllegal)
}

func TestResizedCarriesChangedFields(t *testing.T) {
	start := transform.DefaultScaled()
	east := transform.ResizeImage(start, transform.HandleE, 100, 0)
	assert.Equal(t, []Type{TypeScale}, Resized("a", start, east).Types())

	west := transform.ResizeImage(start, transform.HandleW, -50, 0)
	u := Resized("a", start, west)
	assert.Equal(t, []Type{TypePosition, TypeScale}, u.Types())
	p, ok := u.Find(TypePosition)
	require.True(t, ok)
	assert.Equal(t, Position{X: -12.5, Y: 0}, p)

	box := ResizedBox("t", transform.Box{}, transform.Box{Width: transform.Float(120)})
	assert.Equal(t, []Type{TypeBoxSize}, box.Types())
}

func TestUpdateJSON(t *testing.T) {
	in := Update{ElementID: "e1", Patches: []Patch{
		Position{X: 1, Y: 2},
		BoxSize{Width: transform.Float(120)},
		Style{Style: domain.Style{Font: "Courier", Align: domain.AlignCenter}},
		Visibility{Visible: false},
	}}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"boxSize"`)

	var out Update
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)

	err = json.Unmarshal([]byte(`{"elementId":"x","patches":[{"type":"rotate","data":{}}]}`), &out)
	assert.ErrorIs(t, err, ErrIllegal)
}
