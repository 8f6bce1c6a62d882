package main

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownTheme mirrors the config's theme values.
type markdownTheme string

const (
	themeAuto  markdownTheme = "auto"
	themeDark  markdownTheme = "dark"
	themeLight markdownTheme = "light"
)

func parseTheme(value string) markdownTheme {
	switch markdownTheme(strings.ToLower(strings.TrimSpace(value))) {
	case themeDark:
		return themeDark
	case themeLight:
		return themeLight
	}
	return themeAuto
}

func (t markdownTheme) next() markdownTheme {
	switch t {
	case themeAuto:
		return themeDark
	case themeDark:
		return themeLight
	}
	return themeAuto
}

func (t markdownTheme) label() string {
	switch t {
	case themeDark:
		return "Dark"
	case themeLight:
		return "Light"
	}
	return "Auto"
}

func (t markdownTheme) option() glamour.TermRendererOption {
	if t == themeAuto {
		return glamour.WithAutoStyle()
	}
	return glamour.WithStandardStyle(string(t))
}

// markdown renders the help overlay and suggestion reasoning. The glamour
// renderer is built on first use and dropped whenever the theme or wrap
// width changes. Only the UI goroutine touches it.
type markdown struct {
	theme    markdownTheme
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdown(theme markdownTheme) *markdown {
	return &markdown{theme: theme, width: 72}
}

func (md *markdown) setTheme(theme markdownTheme) {
	if md.theme != theme {
		md.theme, md.renderer = theme, nil
	}
}

func (md *markdown) setWidth(width int) {
	width = max(width, 0)
	if md.width != width {
		md.width, md.renderer = width, nil
	}
}

// render falls back to the raw text when glamour fails.
func (md *markdown) render(content string) string {
	if md.renderer == nil {
		r, err := glamour.NewTermRenderer(md.theme.option(), glamour.WithWordWrap(md.width))
		if err != nil {
			return content
		}
		md.renderer = r
	}
	out, err := md.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(out, "\n")
}
