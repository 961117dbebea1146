package playground

import (
	"regexp"
	"strings"

	"github.com/sakif/docrunner/internal/model"
)

// DependencyPattern matches an external dependency declaration and captures
// its identifier.
var DependencyPattern = regexp.MustCompile(`extern\s+crate\s+([A-Za-z0-9_]+)\s*;`)

// nightlyMarker opts a program into unstable features.
const nightlyMarker = "#![feature"

// ExtractDependencies returns the identifiers of every `extern crate X;`
// declaration in code, in order of appearance. Malformed declarations are
// not matched; no declarations yields nil.
func ExtractDependencies(code string) []string {
	matches := DependencyPattern.FindAllStringSubmatch(code, -1)
	if len(matches) == 0 {
		return nil
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m[1]
	}
	return ids
}

// Runnable decides whether a block's run control is shown. A nil manifest
// means it has not arrived yet, which always hides the control.
func Runnable(flags model.BlockFlags, code string, manifest *model.DependencyManifest) bool {
	if !flags.Playground || flags.SkipExecution {
		return false
	}
	if manifest == nil {
		return false
	}
	for _, id := range ExtractDependencies(code) {
		if !manifest.Contains(id) {
			return false
		}
	}
	return true
}

// BuildRequest builds the execution request for code: the stable channel
// unless code opts into nightly features.
func BuildRequest(code string) model.ExecutionRequest {
	channel := model.ChannelStable
	if strings.Contains(code, nightlyMarker) {
		channel = model.ChannelNightly
	}
	return model.ExecutionRequest{
		Channel:   channel,
		Mode:      "debug",
		CrateType: "bin",
		Tests:     false,
		Code:      code,
	}
}
