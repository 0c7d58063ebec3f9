package flow

import (
	"fmt"
	"strings"
)

// IssueKind classifies a finding in a validation report.
type IssueKind string

const (
	IssueDuplicateNode       IssueKind = "duplicate-node-id"
	IssueDuplicateConnection IssueKind = "duplicate-connection-id"
	IssueDangling            IssueKind = "dangling-connection"
	IssueSelfLoop            IssueKind = "self-loop"
	IssueUnknownType         IssueKind = "unknown-type"
)

// Issue is a single finding.
type Issue struct {
	Kind IssueKind
	ID   string
	Msg  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Kind, i.ID, i.Msg)
}

// Report lists what Validate found. Diagrams with issues still load and
// render; the report is informational.
type Report struct {
	Issues []Issue
}

// OK reports whether no issues were found.
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// Count returns the number of issues of the given kind.
func (r Report) Count(kind IssueKind) int {
	n := 0
	for _, i := range r.Issues {
		if i.Kind == kind {
			n++
		}
	}
	return n
}

func (r Report) String() string {
	if r.OK() {
		return "no issues"
	}
	lines := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		lines[i] = issue.String()
	}
	return strings.Join(lines, "\n")
}

// Validate inspects d for duplicate ids, dangling or self-referencing
// connections and unknown node types.
func Validate(d Diagram) Report {
	var r Report
	add := func(kind IssueKind, id, format string, args ...interface{}) {
		r.Issues = append(r.Issues, Issue{Kind: kind, ID: id, Msg: fmt.Sprintf(format, args...)})
	}

	nodeIDs := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if nodeIDs[n.ID] {
			add(IssueDuplicateNode, n.ID, "node id used more than once")
		}
		nodeIDs[n.ID] = true
		if !n.Type.Valid() {
			add(IssueUnknownType, n.ID, "unknown node type %q", n.Type)
		}
	}

	connIDs := make(map[string]bool, len(d.Connections))
	for _, c := range d.Connections {
		if connIDs[c.ID] {
			add(IssueDuplicateConnection, c.ID, "connection id used more than once")
		}
		connIDs[c.ID] = true
		if !nodeIDs[c.From] {
			add(IssueDangling, c.ID, "from node %q does not exist", c.From)
		}
		if !nodeIDs[c.To] {
			add(IssueDangling, c.ID, "to node %q does not exist", c.To)
		}
		if c.From == c.To {
			add(IssueSelfLoop, c.ID, "connects node %q to itself", c.From)
		}
	}
	return r
}
