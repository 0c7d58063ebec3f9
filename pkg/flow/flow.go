// Package flow provides the core flowchart diagram types and operations.
package flow

import (
	"fmt"
	"strings"
	"time"
)

// NodeType is the kind of a flowchart block.
type NodeType string

const (
	TypeStart    NodeType = "start"
	TypeEnd      NodeType = "end"
	TypeProcess  NodeType = "process"
	TypeInput    NodeType = "input"
	TypeDecision NodeType = "decision"
)

// NodeTypes lists every node type in toolbar order.
var NodeTypes = []NodeType{TypeStart, TypeEnd, TypeProcess, TypeInput, TypeDecision}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case TypeStart, TypeEnd, TypeProcess, TypeInput, TypeDecision:
		return true
	}
	return false
}

// DefaultLabel returns the label given to a freshly placed node of type t.
func DefaultLabel(t NodeType) string {
	switch t {
	case TypeStart:
		return "Начало"
	case TypeEnd:
		return "Конец"
	case TypeProcess:
		return "Процесс"
	case TypeInput:
		return "Ввод/Вывод"
	case TypeDecision:
		return "Условие?"
	}
	return "Блок"
}

// Node is a typed, positioned, labelled block. X and Y are the top-left
// corner in model coordinates.
type Node struct {
	ID    string   `json:"id"`
	Type  NodeType `json:"type"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Label string   `json:"label"`
}

// Connection is a directed edge between two node ids.
type Connection struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Diagram is the node/connection pair edited on the canvas.
type Diagram struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Empty reports whether the diagram has neither nodes nor connections.
func (d Diagram) Empty() bool {
	return len(d.Nodes) == 0 && len(d.Connections) == 0
}

// Flowchart is a saved diagram together with its metadata.
type Flowchart struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Data        Diagram   `json:"data"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FindNode returns the index of the node with the given id, or -1.
func FindNode(nodes []Node, id string) int {
	for i, n := range nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// NodeByID returns the node with the given id.
func NodeByID(nodes []Node, id string) (Node, bool) {
	if i := FindNode(nodes, id); i >= 0 {
		return nodes[i], true
	}
	return Node{}, false
}

// AppendNode returns a new slice holding nodes followed by n.
func AppendNode(nodes []Node, n Node) []Node {
	out := make([]Node, 0, len(nodes)+1)
	out = append(out, nodes...)
	return append(out, n)
}

// AppendConnection returns a new slice holding conns followed by c.
func AppendConnection(conns []Connection, c Connection) []Connection {
	out := make([]Connection, 0, len(conns)+1)
	out = append(out, conns...)
	return append(out, c)
}

// ReplaceNode returns a copy of nodes where the node with id is passed
// through fn. Other nodes are copied unchanged.
func ReplaceNode(nodes []Node, id string, fn func(Node) Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		if n.ID == id {
			n = fn(n)
		}
		out[i] = n
	}
	return out
}

// DeleteNode removes the node with id and every connection that starts or
// ends at it. Both returned slices are fresh copies.
func DeleteNode(nodes []Node, conns []Connection, id string) ([]Node, []Connection) {
	keptNodes := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID != id {
			keptNodes = append(keptNodes, n)
		}
	}
	keptConns := make([]Connection, 0, len(conns))
	for _, c := range conns {
		if c.From != id && c.To != id {
			keptConns = append(keptConns, c)
		}
	}
	return keptNodes, keptConns
}

// Resolve returns both endpoints of c. ok is false when either endpoint is
// missing from nodes; such a connection is dangling and is not drawn.
func Resolve(nodes []Node, c Connection) (from, to Node, ok bool) {
	from, okFrom := NodeByID(nodes, c.From)
	to, okTo := NodeByID(nodes, c.To)
	return from, to, okFrom && okTo
}

// String returns a short summary of the diagram.
func (d Diagram) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Diagram: %d nodes, %d connections\n", len(d.Nodes), len(d.Connections)))
	for _, t := range NodeTypes {
		count := 0
		for _, n := range d.Nodes {
			if n.Type == t {
				count++
			}
		}
		if count > 0 {
			sb.WriteString(fmt.Sprintf("  %s: %d\n", t, count))
		}
	}
	return sb.String()
}
