package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoColorStyles_RenderPlainText(t *testing.T) {
	s := NoColorStyles()

	for _, style := range []struct {
		name string
		out  string
	}{
		{"header", s.Header.Render("x")},
		{"success", s.Success.Render("x")},
		{"warning", s.Warning.Render("x")},
		{"error", s.Error.Render("x")},
		{"chart", s.Chart.Render("x")},
	} {
		assert.Equal(t, "x", style.out, style.name)
	}
}

func TestGetStyles(t *testing.T) {
	assert.Equal(t, NoColorStyles().Header.Render("x"), GetStyles(true).Header.Render("x"))

	colored := GetStyles(false)
	assert.True(t, colored.Header.GetBold())
	assert.True(t, colored.Active.GetBold())
}
