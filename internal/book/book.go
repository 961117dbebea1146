// Package book loads the statically generated pages of a book, annotates
// their code blocks and caches the result until the files change.
package book

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sakif/docrunner/internal/annotate"
	"github.com/sakif/docrunner/internal/apperror"
	"github.com/sakif/docrunner/internal/model"
	"github.com/sakif/docrunner/internal/navigation"
)

const indexPage = "index.html"

// Page is one annotated page. It is immutable once loaded.
type Page struct {
	Path   string
	Blocks []*model.CodeBlock
	Links  navigation.Links
	doc    *html.Node
}

// Parse annotates a page read from r.
func Parse(pagePath string, r io.Reader, a *annotate.Annotator) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("book: parsing %s: %w", pagePath, err)
	}
	return &Page{
		Path:   pagePath,
		Blocks: a.Annotate(doc),
		Links:  navigation.DiscoverLinks(doc),
		doc:    doc,
	}, nil
}

// Render writes the page with classes added to its root <html> element. The
// cached document is never modified.
func (p *Page) Render(w io.Writer, classes ...string) error {
	for c := p.doc.FirstChild; c != nil; c = c.NextSibling {
		n := c
		if c.Type == html.ElementNode && c.DataAtom == atom.Html && len(classes) > 0 {
			n = withClasses(c, classes)
		}
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("book: rendering %s: %w", p.Path, err)
		}
	}
	return nil
}

// withClasses returns a shallow copy of n sharing its children.
func withClasses(n *html.Node, classes []string) *html.Node {
	cp := *n
	cp.Attr = make([]html.Attribute, 0, len(n.Attr)+1)
	found := false
	for _, a := range n.Attr {
		if a.Key == "class" {
			a.Val = strings.TrimSpace(a.Val + " " + strings.Join(classes, " "))
			found = true
		}
		cp.Attr = append(cp.Attr, a)
	}
	if !found {
		cp.Attr = append(cp.Attr, html.Attribute{Key: "class", Val: strings.Join(classes, " ")})
	}
	cp.Parent, cp.PrevSibling, cp.NextSibling = nil, nil, nil
	return &cp
}

// Library serves the pages under a root directory.
type Library struct {
	root      string
	annotator *annotate.Annotator
	logger    *slog.Logger

	script string

	mu    sync.RWMutex
	pages map[string]*Page
}

func NewLibrary(root string, annotator *annotate.Annotator, logger *slog.Logger) *Library {
	return &Library{
		root:      root,
		annotator: annotator,
		logger:    logger,
		pages:     make(map[string]*Page),
	}
}

func (l *Library) Root() string {
	return l.root
}

// InjectScript makes every page loaded from now on reference the script at
// src from the end of its body. Call it before serving.
func (l *Library) InjectScript(src string) {
	l.script = src
}

// Resolve maps a request path to a page path relative to the root. Directory
// paths resolve to their index page; ok is false for anything that is not a
// page.
func Resolve(requestPath string) (string, bool) {
	p := strings.TrimPrefix(path.Clean("/"+requestPath), "/")
	if p == "" || p == "." || strings.HasSuffix(requestPath, "/") {
		p = path.Join(p, indexPage)
	}
	if path.Ext(p) != ".html" {
		return "", false
	}
	return p, true
}

// Page returns the annotated page at pagePath, loading it on first use.
func (l *Library) Page(pagePath string) (*Page, error) {
	p, ok := Resolve(pagePath)
	if !ok {
		return nil, apperror.NotFound("page", pagePath)
	}

	l.mu.RLock()
	page, cached := l.pages[p]
	l.mu.RUnlock()
	if cached {
		return page, nil
	}

	page, err := l.load(p)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.pages[p] = page
	l.mu.Unlock()
	return page, nil
}

func (l *Library) load(p string) (*Page, error) {
	f, err := os.Open(filepath.Join(l.root, filepath.FromSlash(p)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperror.NotFound("page", p)
		}
		return nil, fmt.Errorf("book: opening %s: %w", p, err)
	}
	defer f.Close()

	page, err := Parse(p, f, l.annotator)
	if err != nil {
		return nil, err
	}
	if l.script != "" {
		injectScript(page.doc, l.script)
	}
	l.logger.Debug("page annotated", slog.String("page", p), slog.Int("blocks", len(page.Blocks)))
	return page, nil
}

// Invalidate drops a cached page so the next request reloads it.
func (l *Library) Invalidate(pagePath string) {
	p := filepath.ToSlash(pagePath)
	l.mu.Lock()
	delete(l.pages, p)
	l.mu.Unlock()
	l.logger.Info("page changed", slog.String("page", p))
}

// Rescan reloads every page under the root and replaces the cache. Running it
// again on unchanged files yields the same pages.
func (l *Library) Rescan() (int, error) {
	pages := make(map[string]*Page)
	err := filepath.WalkDir(l.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if full != l.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(full) != ".html" {
			return nil
		}
		rel, err := filepath.Rel(l.root, full)
		if err != nil {
			return err
		}
		p := filepath.ToSlash(rel)
		page, err := l.load(p)
		if err != nil {
			return err
		}
		pages[p] = page
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("book: scanning %s: %w", l.root, err)
	}

	l.mu.Lock()
	l.pages = pages
	l.mu.Unlock()

	l.logger.Info("book scanned", slog.String("root", l.root), slog.Int("pages", len(pages)))
	return len(pages), nil
}

// injectScript appends <script src=src defer> to the body unless the page
// already references src.
func injectScript(doc *html.Node, src string) {
	var body *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script:
				for _, a := range n.Attr {
					if a.Key == "src" && a.Val == src {
						return true
					}
				}
			case atom.Body:
				body = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	if walk(doc) || body == nil {
		return
	}
	body.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "src", Val: src}, {Key: "defer"}},
	})
}
