package model

import "time"

// Preference keys.
const (
	PreferenceTheme   = "theme"
	PreferenceSidebar = "sidebar"
)

// Theme values. ThemeLight is what a viewer sees before choosing anything.
const (
	ThemeLight = "light"
	ThemeRust  = "rust"
	ThemeCoal  = "coal"
	ThemeNavy  = "navy"
	ThemeAyu   = "ayu"
)

// Themes lists every selectable theme in menu order.
var Themes = []string{ThemeLight, ThemeRust, ThemeCoal, ThemeNavy, ThemeAyu}

// Sidebar values.
const (
	SidebarVisible = "visible"
	SidebarHidden  = "hidden"
)

// SidebarBreakpoint is the viewport width above which the sidebar starts
// visible when the viewer never chose otherwise.
const SidebarBreakpoint = 1080

// IsDarkTheme reports whether a theme uses a dark palette.
func IsDarkTheme(theme string) bool {
	switch theme {
	case ThemeCoal, ThemeNavy, ThemeAyu:
		return true
	}
	return false
}

// Preference is a named, persisted viewer choice.
type Preference struct {
	ViewerID  string    `json:"-"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
