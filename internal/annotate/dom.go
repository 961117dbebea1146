package annotate

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sakif/docrunner/internal/highlight"
	"github.com/sakif/docrunner/internal/model"
)

// Control actions carried by the injected buttons' data-action attribute.
const (
	ActionToggleHidden = "toggle-hidden"
	ActionCopy         = "copy"
	ActionRun          = "run"
	ActionReset        = "reset"
)

// codeElements returns every <code> that is a direct child of a <pre>.
func codeElements(doc *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Code &&
			n.Parent != nil && n.Parent.DataAtom == atom.Pre {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// classList splits the class attribute on whitespace and commas; generators
// append block properties to the language class ("language-rust,ignore").
func classList(n *html.Node) []string {
	if n == nil {
		return nil
	}
	v, _ := attr(n, "class")
	return strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func addClass(n *html.Node, class string) {
	v, _ := attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return
		}
	}
	setAttr(n, "class", strings.TrimSpace(v+" "+class))
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func element(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// rewrite replaces the body of code with the block's segments, wrapping each
// hidden unit in a collapsible span.
func rewrite(code *html.Node, b *model.CodeBlock) {
	for c := code.FirstChild; c != nil; {
		next := c.NextSibling
		code.RemoveChild(c)
		c = next
	}

	for _, seg := range b.Segments() {
		parent := code
		if seg.Hidden {
			parent = element("span", "class", "boring")
			code.AppendChild(parent)
		}
		nodes, err := html.ParseFragment(strings.NewReader(seg.HTML), code)
		if err != nil {
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: seg.Text})
			continue
		}
		for _, n := range nodes {
			parent.AppendChild(n)
		}
	}

	setAttr(code, attrBlock, b.ID)
	setAttr(code, attrHidden, hiddenIndexes(b))
	addClass(code.Parent, highlight.CSSClass)
}

func button(action, blockID, class, title string) *html.Node {
	return element("button",
		"class", class,
		"title", title,
		"aria-label", title,
		"data-action", action,
		attrBlock, blockID,
	)
}

// injectControls prepends the block's control set to its <pre>.
func (a *Annotator) injectControls(pre *html.Node, b *model.CodeBlock) {
	buttons := element("div", "class", "buttons")

	if b.Flags.Playground {
		buttons.AppendChild(button(ActionRun, b.ID, "fa fa-play play-button hidden", "Run this code"))
	}
	if b.HasHidden() {
		buttons.AppendChild(button(ActionToggleHidden, b.ID, "fa fa-eye", "Show hidden lines"))
	}
	clip := button(ActionCopy, b.ID, "fa fa-copy clip-button", "Copy to clipboard")
	clip.AppendChild(element("i", "class", "tooltiptext"))
	buttons.AppendChild(clip)
	if b.Flags.Playground && b.Flags.Editable && a.editable {
		buttons.AppendChild(button(ActionReset, b.ID, "fa fa-history reset-button hidden", "Undo changes"))
	}

	pre.InsertBefore(buttons, pre.FirstChild)
}
