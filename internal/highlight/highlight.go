// Package highlight activates syntax highlighting for code blocks and serves
// the stylesheet variant that matches each theme.
package highlight

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/sakif/docrunner/internal/model"
)

// CSSClass must be present on an ancestor of highlighted code for the
// generated stylesheets to apply.
const CSSClass = "chroma"

// themeStyles maps each page theme to its chroma style. Light themes share
// one stylesheet, the dark ones pair up the way the page palettes do.
var themeStyles = map[string]string{
	model.ThemeLight: "github",
	model.ThemeRust:  "github",
	model.ThemeCoal:  "monokai",
	model.ThemeNavy:  "monokai",
	model.ThemeAyu:   "dracula",
}

// StyleFor returns the chroma style name used with a theme.
func StyleFor(theme string) string {
	if s, ok := themeStyles[theme]; ok {
		return s
	}
	return themeStyles[model.ThemeLight]
}

// StylesheetHref is the URL of the highlight stylesheet for a theme.
func StylesheetHref(theme string) string {
	return "/highlight/" + StyleFor(theme) + ".css"
}

// Highlighter turns source text into class-annotated HTML.
type Highlighter struct {
	formatter *chromahtml.Formatter
}

func New() *Highlighter {
	return &Highlighter{formatter: chromahtml.New(chromahtml.WithClasses(true))}
}

// Lines highlights text and returns one HTML fragment per source line, so
// callers can regroup lines (hidden units) without re-tokenising. Unknown
// languages and lexer failures fall back to escaped plain text.
func (h *Highlighter) Lines(language, text string) []string {
	want := strings.Count(text, "\n") + 1

	lexer := lexers.Get(language)
	if language == "" || lexer == nil {
		return plain(text)
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, text)
	if err != nil {
		return plain(text)
	}

	split := chroma.SplitTokensIntoLines(it.Tokens())
	if len(split) < want {
		return plain(text)
	}

	out := make([]string, want)
	for i := 0; i < want; i++ {
		out[i] = renderLine(split[i])
	}
	return out
}

func renderLine(tokens []chroma.Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		value := strings.TrimSuffix(tok.Value, "\n")
		if value == "" {
			continue
		}
		cls := tokenClass(tok.Type)
		if cls == "" {
			b.WriteString(html.EscapeString(value))
			continue
		}
		fmt.Fprintf(&b, `<span class="%s">%s</span>`, cls, html.EscapeString(value))
	}
	return b.String()
}

func tokenClass(tt chroma.TokenType) string {
	for _, t := range []chroma.TokenType{tt, tt.SubCategory(), tt.Category()} {
		if cls, ok := chroma.StandardTypes[t]; ok && cls != "" {
			return cls
		}
	}
	return ""
}

func plain(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = html.EscapeString(l)
	}
	return lines
}

// WriteStylesheet writes the CSS of a chroma style, by style name.
func (h *Highlighter) WriteStylesheet(w io.Writer, styleName string) error {
	style := styles.Get(styleName)
	if err := h.formatter.WriteCSS(w, style); err != nil {
		return fmt.Errorf("highlight: writing %s stylesheet: %w", styleName, err)
	}
	return nil
}

// KnownStyle reports whether a style name is one the themes use.
func KnownStyle(name string) bool {
	for _, s := range themeStyles {
		if s == name {
			return true
		}
	}
	return false
}
