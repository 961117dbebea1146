// Package navigation turns arrow keys and horizontal swipes into page
// navigation and sidebar reveal/hide actions.
package navigation

import (
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Gesture thresholds.
const (
	SwipeDistance = 150.0
	SwipeWindow   = 250 * time.Millisecond
	EdgeBandRatio = 0.25
	EdgeBandMax   = 300.0
	// HideEdge is the x position a leftward swipe must end before to hide
	// the sidebar.
	HideEdge = 300.0
)

// Action is what the page should do in response to input.
type Action int

const (
	None Action = iota
	Previous
	Next
	CloseMenu
	ShowSidebar
	HideSidebar
)

func (a Action) String() string {
	switch a {
	case Previous:
		return "previous"
	case Next:
		return "next"
	case CloseMenu:
		return "close-menu"
	case ShowSidebar:
		return "show-sidebar"
	case HideSidebar:
		return "hide-sidebar"
	}
	return "none"
}

// Links are the adjacent pages of the current page.
type Links struct {
	Previous string
	Next     string
}

// DiscoverLinks finds the previous/next links of a page: anchors with
// rel="prev"/rel="next", or the generator's .previous/.next nav links. The
// first match in document order wins.
func DiscoverLinks(doc *html.Node) Links {
	var links Links
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			href, rel, classes := "", "", []string(nil)
			for _, a := range n.Attr {
				switch a.Key {
				case "href":
					href = a.Val
				case "rel":
					rel = a.Val
				case "class":
					classes = strings.Fields(a.Val)
				}
			}
			if href != "" {
				switch {
				case links.Previous == "" && (rel == "prev" || slices.Contains(classes, "previous")):
					links.Previous = href
				case links.Next == "" && (rel == "next" || slices.Contains(classes, "next")):
					links.Next = href
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

// Key is a keydown event.
type Key struct {
	Key                    string
	Alt, Ctrl, Shift, Meta bool
	// InEditor is set when the key was typed inside a code editor.
	InEditor bool
}

func (k Key) modified() bool {
	return k.Alt || k.Ctrl || k.Shift || k.Meta
}

// Point is a touch contact: position in CSS pixels and the event time since
// page load.
type Point struct {
	X, Y float64
	T    time.Duration
}

// EdgeBand is the width of the band along the left edge where a rightward
// swipe reveals the sidebar.
func EdgeBand(viewportWidth float64) float64 {
	return math.Min(viewportWidth*EdgeBandRatio, EdgeBandMax)
}

// Controller holds the links of one page and the state of the current touch
// gesture.
type Controller struct {
	links Links
	start *Point
}

func New(links Links) *Controller {
	return &Controller{links: links}
}

// Target returns the URL a navigation action leads to, if the page has one.
func (c *Controller) Target(a Action) (string, bool) {
	switch a {
	case Previous:
		return c.links.Previous, c.links.Previous != ""
	case Next:
		return c.links.Next, c.links.Next != ""
	}
	return "", false
}

// Key maps a keydown to an action. Keys with a modifier held and keys typed
// inside an editor are ignored.
func (c *Controller) Key(k Key) Action {
	if k.Key == "Escape" {
		return CloseMenu
	}
	if k.modified() || k.InEditor {
		return None
	}
	switch k.Key {
	case "ArrowLeft":
		if c.links.Previous != "" {
			return Previous
		}
	case "ArrowRight":
		if c.links.Next != "" {
			return Next
		}
	}
	return None
}

// TouchStart records the first contact of a gesture.
func (c *Controller) TouchStart(p Point) {
	c.start = &p
}

// TouchMove checks whether the gesture has become a swipe. viewportWidth and
// sidebarVisible describe the page at the time of the move.
func (c *Controller) TouchMove(p Point, viewportWidth float64, sidebarVisible bool) Action {
	if c.start == nil {
		return None
	}
	start := *c.start
	if p.T-start.T > SwipeWindow {
		c.start = nil
		return None
	}
	dx := p.X - start.X
	if math.Abs(dx) < SwipeDistance {
		return None
	}
	c.start = nil

	switch {
	case dx > 0 && !sidebarVisible && start.X <= EdgeBand(viewportWidth):
		return ShowSidebar
	case dx < 0 && sidebarVisible && p.X < HideEdge:
		return HideSidebar
	case dx > 0 && c.links.Previous != "":
		return Previous
	case dx < 0 && c.links.Next != "":
		return Next
	}
	return None
}

// TouchEnd discards any unfinished gesture.
func (c *Controller) TouchEnd() {
	c.start = nil
}
