// Package annotate discovers the code samples of a rendered page and
// post-processes them: hidden-line wrapping, syntax highlighting, and the
// toggle / copy / run / reset controls.
package annotate

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/sakif/docrunner/internal/highlight"
	"github.com/sakif/docrunner/internal/model"
)

// Conventions are the page markup rules produced by the site generator.
type Conventions struct {
	LanguagePrefix  string   `yaml:"language_prefix" koanf:"language_prefix"`
	PlaygroundClass string   `yaml:"playground_class" koanf:"playground_class"` // on the <pre>
	SkipClasses     []string `yaml:"skip_classes" koanf:"skip_classes"`
	NoPlayground    []string `yaml:"no_playground_classes" koanf:"no_playground_classes"`
	EditableClass   string   `yaml:"editable_class" koanf:"editable_class"`
	HiddenMarker    string   `yaml:"hidden_marker" koanf:"hidden_marker"`
	HiddenLanguages []string `yaml:"hidden_languages" koanf:"hidden_languages"`
}

// DefaultConventions matches mdBook-style output.
func DefaultConventions() Conventions {
	return Conventions{
		LanguagePrefix:  "language-",
		PlaygroundClass: "playground",
		SkipClasses:     []string{"ignore"},
		NoPlayground:    []string{"noplayground", "noplaypen"},
		EditableClass:   "editable",
		HiddenMarker:    "#",
		HiddenLanguages: []string{"rust"},
	}
}

const (
	attrBlock  = "data-block"
	attrHidden = "data-hidden"
)

// Annotator scans and rewrites code blocks.
type Annotator struct {
	conv     Conventions
	hl       *highlight.Highlighter
	editable bool
}

// New creates an Annotator. editingAvailable controls whether editable
// playground blocks get a reset control.
func New(conv Conventions, hl *highlight.Highlighter, editingAvailable bool) *Annotator {
	if conv.HiddenMarker == "" {
		conv.HiddenMarker = "#"
	}
	return &Annotator{conv: conv, hl: hl, editable: editingAvailable}
}

// Discover returns the code blocks of doc in document order without
// modifying it. It is safe to call on a document that Annotate already
// processed: the result is the same.
func (a *Annotator) Discover(doc *html.Node) []*model.CodeBlock {
	var blocks []*model.CodeBlock
	for _, code := range codeElements(doc) {
		blocks = append(blocks, a.block(code, len(blocks)))
	}
	return blocks
}

// Annotate discovers the blocks of doc and rewrites each one that was not
// annotated before. Calling it again is a no-op on the markup.
func (a *Annotator) Annotate(doc *html.Node) []*model.CodeBlock {
	codes := codeElements(doc)
	blocks := make([]*model.CodeBlock, 0, len(codes))
	for i, code := range codes {
		b := a.block(code, i)
		blocks = append(blocks, b)
		if hasAttr(code, attrBlock) {
			continue
		}
		if a.hl != nil {
			for j, frag := range a.hl.Lines(b.Language, b.Text()) {
				b.Lines[j].HTML = frag
			}
		}
		rewrite(code, b)
		a.injectControls(code.Parent, b)
	}
	return blocks
}

// block builds the model of one <code> element.
func (a *Annotator) block(code *html.Node, index int) *model.CodeBlock {
	classes := classList(code)
	preClasses := classList(code.Parent)

	b := &model.CodeBlock{
		ID:    "block-" + strconv.Itoa(index),
		Index: index,
	}
	for _, c := range classes {
		if lang, ok := strings.CutPrefix(c, a.conv.LanguagePrefix); ok && b.Language == "" {
			b.Language = lang
		}
	}
	b.Flags = model.BlockFlags{
		Playground:    slices.Contains(preClasses, a.conv.PlaygroundClass) && !anyIn(classes, a.conv.NoPlayground),
		SkipExecution: anyIn(classes, a.conv.SkipClasses),
		Editable:      a.conv.EditableClass != "" && slices.Contains(classes, a.conv.EditableClass),
	}

	text := textContent(code)
	if hidden, ok := attr(code, attrHidden); ok {
		b.Lines = restoreLines(text, hidden)
		return b
	}
	text = strings.TrimSuffix(text, "\n")
	if slices.Contains(a.conv.HiddenLanguages, b.Language) {
		b.Lines = SplitHidden(text, a.conv.HiddenMarker)
	} else {
		b.Lines = plainLines(text)
	}
	return b
}

// SplitHidden applies the hidden-line convention to text.
//
// A line whose first non-whitespace character is marker is hidden: exactly
// one marker and one following space are removed, indentation is kept. With
// the "#" marker, attribute lines ("#[...]", "#![...]") stay visible.
func SplitHidden(text, marker string) []model.Line {
	raw := strings.Split(text, "\n")
	lines := make([]model.Line, len(raw))
	for i, line := range raw {
		trimmed := strings.TrimLeft(line, " \t")
		rest, ok := strings.CutPrefix(trimmed, marker)
		if !ok || isAttribute(marker, rest) {
			lines[i] = model.Line{Text: line}
			continue
		}
		indent := line[:len(line)-len(trimmed)]
		lines[i] = model.Line{Text: indent + strings.TrimPrefix(rest, " "), Hidden: true}
	}
	return lines
}

func isAttribute(marker, rest string) bool {
	if marker != "#" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return r == '[' || r == '!'
}

// Render returns the visible text of a block: hidden units are included only
// when expanded.
func Render(b *model.CodeBlock, expanded bool) string {
	var sb strings.Builder
	for _, seg := range b.Segments() {
		if seg.Hidden && !expanded {
			continue
		}
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

func plainLines(text string) []model.Line {
	raw := strings.Split(text, "\n")
	lines := make([]model.Line, len(raw))
	for i, l := range raw {
		lines[i] = model.Line{Text: l}
	}
	return lines
}

func restoreLines(text, hidden string) []model.Line {
	lines := plainLines(text)
	for _, f := range strings.Split(hidden, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(f)); err == nil && n >= 0 && n < len(lines) {
			lines[n].Hidden = true
		}
	}
	return lines
}

func hiddenIndexes(b *model.CodeBlock) string {
	var idx []string
	for i, l := range b.Lines {
		if l.Hidden {
			idx = append(idx, strconv.Itoa(i))
		}
	}
	return strings.Join(idx, ",")
}

func anyIn(classes, wanted []string) bool {
	for _, w := range wanted {
		if slices.Contains(classes, w) {
			return true
		}
	}
	return false
}
