// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewThemeExplicitMode(t *testing.T) {
	dark := NewTheme("dark")
	assert.True(t, dark.IsDark)
	assert.Equal(t, "dark", dark.GlamourStyle())

	light := NewTheme("LIGHT")
	assert.False(t, light.IsDark)
	assert.Equal(t, "light", light.GlamourStyle())
}

func TestLayoutMode(t *testing.T) {
	th := NewTheme("dark")
	cases := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tc := range cases {
		th.SetSize(tc.width, 30)
		assert.Equal(t, tc.want, th.GetLayoutMode(), "width %d", tc.width)
	}
}
