package model

import "sort"

// Release channels understood by the execution service.
const (
	ChannelStable  = "stable"
	ChannelNightly = "nightly"
)

// ExecutionRequest is the body sent to the remote execution endpoint.
type ExecutionRequest struct {
	Channel   string `json:"channel"`
	Mode      string `json:"mode"`
	CrateType string `json:"crateType"`
	Tests     bool   `json:"tests"`
	Code      string `json:"code"`
}

// ExecutionResult is the remote service's answer. Success false means the
// program failed to compile or run; that is a result, not an error.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
}

// Output returns the text to display for the result.
func (r *ExecutionResult) Output() string {
	if r.Success {
		return r.Stdout
	}
	return r.Stderr
}

// DependencyManifest is the immutable set of crate identifiers the execution
// service supports.
type DependencyManifest struct {
	ids map[string]struct{}
}

// NewDependencyManifest builds a manifest from identifiers; duplicates collapse.
func NewDependencyManifest(ids ...string) DependencyManifest {
	m := DependencyManifest{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
	return m
}

func (m DependencyManifest) Contains(id string) bool {
	_, ok := m.ids[id]
	return ok
}

func (m DependencyManifest) Len() int {
	return len(m.ids)
}

// IDs returns the identifiers in sorted order.
func (m DependencyManifest) IDs() []string {
	out := make([]string, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RunState is the execution state of one playground block.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunSucceeded RunState = "succeeded"
	RunFailed    RunState = "failed"
	RunTimedOut  RunState = "timed-out"
)

// Pending reports whether a request is outstanding in this state.
func (s RunState) Pending() bool {
	return s == RunRunning
}
