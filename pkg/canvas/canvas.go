// Package canvas implements the interactive flowchart canvas: selection,
// dragging, panning, zooming, connecting and label editing over a diagram
// owned by the host.
//
// The canvas never edits the host's slices in place. Every mutation builds
// a complete new slice, keeps it, and hands it to the matching callback.
// Handlers are meant to be called from a single event loop.
package canvas

import (
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

// Tool is the active toolbar entry: ToolSelect, or a node type to place.
type Tool string

// ToolSelect selects and drags without ever creating nodes.
const ToolSelect Tool = "select"

// Tools lists the toolbar in display order.
var Tools = []Tool{
	ToolSelect,
	ToolFor(flow.TypeStart),
	ToolFor(flow.TypeEnd),
	ToolFor(flow.TypeProcess),
	ToolFor(flow.TypeInput),
	ToolFor(flow.TypeDecision),
}

// ToolFor returns the tool that places nodes of type t.
func ToolFor(t flow.NodeType) Tool {
	return Tool(t)
}

// NodeType returns the node type the tool places. ok is false for
// ToolSelect and unknown tools.
func (t Tool) NodeType() (flow.NodeType, bool) {
	nt := flow.NodeType(t)
	return nt, nt.Valid()
}

// Button identifies a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Pointer is a pointer event in screen coordinates relative to the canvas
// origin.
type Pointer struct {
	X, Y   float64
	Button Button
	Shift  bool
}

// Key identifies a keyboard key.
type Key int

const (
	KeyRune Key = iota
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyDelete
)

// KeyEvent is a key press. Rune is set for KeyRune.
type KeyEvent struct {
	Key  Key
	Rune rune
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithIDSource sets where new node and connection ids come from.
func WithIDSource(ids flow.IDSource) Option {
	return func(c *Canvas) { c.ids = ids }
}

// WithLogger sets the logger used for gesture transitions.
func WithLogger(l *slog.Logger) Option {
	return func(c *Canvas) { c.log = l }
}

// OnNodesChange registers the callback that receives every new node slice.
func OnNodesChange(fn func([]flow.Node)) Option {
	return func(c *Canvas) { c.onNodes = fn }
}

// OnConnectionsChange registers the callback that receives every new
// connection slice.
func OnConnectionsChange(fn func([]flow.Connection)) Option {
	return func(c *Canvas) { c.onConns = fn }
}

// Canvas is the interactive diagram editor state.
type Canvas struct {
	nodes []flow.Node
	conns []flow.Connection

	tool     Tool
	selected string
	view     flow.View
	state    State

	width, height float64

	ids     flow.IDSource
	log     *slog.Logger
	onNodes func([]flow.Node)
	onConns func([]flow.Connection)
}

// New returns an empty canvas with the select tool, identity view and an
// 800x600 viewport.
func New(opts ...Option) *Canvas {
	c := &Canvas{
		nodes:  []flow.Node{},
		conns:  []flow.Connection{},
		tool:   ToolSelect,
		view:   flow.IdentityView(),
		state:  Idle{},
		width:  800,
		height: 600,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ids == nil {
		c.ids = flow.NewClockIDs(nil)
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// SetDiagram replaces the diagram, as when the host re-renders. Selection,
// view and gesture survive unless the node they refer to is gone, so
// passing back the slices the canvas just emitted changes nothing.
func (c *Canvas) SetDiagram(nodes []flow.Node, conns []flow.Connection) {
	if nodes == nil {
		nodes = []flow.Node{}
	}
	if conns == nil {
		conns = []flow.Connection{}
	}
	c.nodes, c.conns = nodes, conns

	if c.selected != "" && flow.FindNode(nodes, c.selected) < 0 {
		c.selected = ""
	}
	if id := nodeOf(c.state); id != "" && flow.FindNode(nodes, id) < 0 {
		c.setState(Idle{})
	}
}

// Nodes returns the current node slice.
func (c *Canvas) Nodes() []flow.Node { return c.nodes }

// Connections returns the current connection slice.
func (c *Canvas) Connections() []flow.Connection { return c.conns }

// Diagram returns the current nodes and connections together.
func (c *Canvas) Diagram() flow.Diagram {
	return flow.Diagram{Nodes: c.nodes, Connections: c.conns}
}

// Tool returns the active tool.
func (c *Canvas) Tool() Tool { return c.tool }

// SetTool changes the active tool. Unknown tools are ignored.
func (c *Canvas) SetTool(t Tool) {
	if _, ok := t.NodeType(); !ok && t != ToolSelect {
		c.log.Debug("ignoring unknown tool", "tool", string(t))
		return
	}
	c.tool = t
}

// Selected returns the selected node id.
func (c *Canvas) Selected() (string, bool) {
	return c.selected, c.selected != ""
}

// Select selects the node with id. An unknown id clears the selection.
func (c *Canvas) Select(id string) {
	if flow.FindNode(c.nodes, id) < 0 {
		id = ""
	}
	c.selected = id
}

// View returns the current view transform.
func (c *Canvas) View() flow.View { return c.view }

// PanBy shifts the view by (dx, dy) screen units.
func (c *Canvas) PanBy(dx, dy float64) {
	c.view.PanX += dx
	c.view.PanY += dy
}

// ResetView restores the identity view.
func (c *Canvas) ResetView() {
	c.view = flow.IdentityView()
}

// Resize sets the viewport size used by Scene.
func (c *Canvas) Resize(width, height float64) {
	if width > 0 && height > 0 {
		c.width, c.height = width, height
	}
}

// State returns the gesture in progress.
func (c *Canvas) State() State { return c.state }

// Mode returns the kind of gesture in progress.
func (c *Canvas) Mode() Mode { return c.state.Mode() }

func (c *Canvas) setState(s State) {
	if from := c.state.Mode(); from != s.Mode() {
		c.log.Debug("gesture", "from", from.String(), "to", s.Mode().String())
	}
	c.state = s
}

func (c *Canvas) setNodes(nodes []flow.Node) {
	c.nodes = nodes
	if c.onNodes != nil {
		c.onNodes(nodes)
	}
}

func (c *Canvas) setConns(conns []flow.Connection) {
	c.conns = conns
	if c.onConns != nil {
		c.onConns(conns)
	}
}

func (c *Canvas) toModel(p Pointer) flow.Point {
	return c.view.ToModel(flow.Point{X: p.X, Y: p.Y})
}

// PointerDown handles a button press.
//
// Middle presses start a pan. Primary presses on a node select it and start
// a drag, or, with shift held and another node selected, connect the
// selected node to it. Primary presses on empty canvas start a pending
// connection when shift is held and a node is selected, and otherwise
// place a node of the active tool's type.
func (c *Canvas) PointerDown(p Pointer) {
	switch c.state.(type) {
	case Dragging, Panning, Editing:
		return
	}

	if p.Button == ButtonMiddle {
		c.setState(Panning{AnchorX: p.X - c.view.PanX, AnchorY: p.Y - c.view.PanY})
		return
	}
	if p.Button != ButtonPrimary {
		return
	}

	m := c.toModel(p)
	id, hit := flow.HitTest(c.nodes, m)

	if pending, ok := c.state.(Connecting); ok {
		c.setState(Idle{})
		if !hit {
			c.log.Debug("connection abandoned", "from", pending.From)
			return
		}
		if id != pending.From {
			c.connect(pending.From, id)
			c.selected = id
			return
		}
	}

	if hit {
		if p.Shift && c.selected != "" && c.selected != id {
			c.connect(c.selected, id)
			c.selected = id
			return
		}
		n, _ := flow.NodeByID(c.nodes, id)
		c.selected = id
		c.setState(Dragging{NodeID: id, OffsetX: m.X - n.X, OffsetY: m.Y - n.Y})
		return
	}

	t, creates := c.tool.NodeType()
	if !creates {
		return
	}
	if p.Shift && c.selected != "" {
		c.setState(Connecting{From: c.selected})
		return
	}
	c.place(t, m)
}

// PointerMove handles pointer motion. Only the gesture that owns the
// pointer reacts.
func (c *Canvas) PointerMove(p Pointer) {
	switch st := c.state.(type) {
	case Panning:
		c.view.PanX = p.X - st.AnchorX
		c.view.PanY = p.Y - st.AnchorY
	case Dragging:
		m := c.toModel(p)
		x, y := m.X-st.OffsetX, m.Y-st.OffsetY
		c.setNodes(flow.ReplaceNode(c.nodes, st.NodeID, func(n flow.Node) flow.Node {
			n.X, n.Y = x, y
			return n
		}))
	}
}

// PointerUp ends a drag or pan.
func (c *Canvas) PointerUp(p Pointer) {
	switch c.state.(type) {
	case Dragging, Panning:
		c.setState(Idle{})
	}
}

// Wheel applies one zoom tick. Positive deltaY zooms out.
func (c *Canvas) Wheel(deltaY float64) {
	c.view = c.view.Zoom(deltaY)
}

// Key handles a key press. While editing, keys go to the label buffer.
// Otherwise Delete removes the selected node, Enter starts editing it and
// Escape abandons a pending connection or clears the selection.
func (c *Canvas) Key(k KeyEvent) {
	if ed, ok := c.state.(Editing); ok {
		switch k.Key {
		case KeyEnter:
			c.CommitEdit()
		case KeyEscape:
			c.CancelEdit()
		case KeyBackspace:
			if ed.Buffer != "" {
				_, size := utf8.DecodeLastRuneInString(ed.Buffer)
				ed.Buffer = ed.Buffer[:len(ed.Buffer)-size]
				c.state = ed
			}
		case KeyRune:
			if k.Rune != 0 {
				ed.Buffer += string(k.Rune)
				c.state = ed
			}
		}
		return
	}

	switch k.Key {
	case KeyDelete:
		c.DeleteSelected()
	case KeyEnter:
		c.BeginEdit()
	case KeyEscape:
		if _, ok := c.state.(Connecting); ok {
			c.setState(Idle{})
			return
		}
		c.selected = ""
	}
}

func (c *Canvas) place(t flow.NodeType, at flow.Point) {
	n := flow.Node{
		ID:    c.ids.NextID(),
		Type:  t,
		X:     at.X,
		Y:     at.Y,
		Label: flow.DefaultLabel(t),
	}
	c.log.Debug("node placed", "id", n.ID, "type", string(t), "x", n.X, "y", n.Y)
	c.setNodes(flow.AppendNode(c.nodes, n))
}

func (c *Canvas) connect(from, to string) {
	conn := flow.Connection{ID: c.ids.NextID(), From: from, To: to}
	c.log.Debug("connection added", "id", conn.ID, "from", from, "to", to)
	c.setConns(flow.AppendConnection(c.conns, conn))
}

// BeginEdit opens the label buffer for the selected node, seeded with its
// current label. It reports whether editing started.
func (c *Canvas) BeginEdit() bool {
	switch c.state.(type) {
	case Idle, Connecting:
	default:
		return false
	}
	n, ok := flow.NodeByID(c.nodes, c.selected)
	if !ok {
		return false
	}
	c.setState(Editing{NodeID: n.ID, Buffer: n.Label})
	return true
}

// EditText returns the label buffer, or "" when not editing.
func (c *Canvas) EditText() string {
	if ed, ok := c.state.(Editing); ok {
		return ed.Buffer
	}
	return ""
}

// SetEditText replaces the label buffer. It is a no-op when not editing.
func (c *Canvas) SetEditText(s string) {
	if ed, ok := c.state.(Editing); ok {
		ed.Buffer = s
		c.state = ed
	}
}

// CommitEdit writes the buffer to the node's label and stops editing.
func (c *Canvas) CommitEdit() {
	ed, ok := c.state.(Editing)
	if !ok {
		return
	}
	c.setState(Idle{})
	c.setNodes(flow.ReplaceNode(c.nodes, ed.NodeID, func(n flow.Node) flow.Node {
		n.Label = ed.Buffer
		return n
	}))
}

// CancelEdit discards the buffer without touching the node.
func (c *Canvas) CancelEdit() {
	if _, ok := c.state.(Editing); ok {
		c.setState(Idle{})
	}
}

// DeleteSelected deletes the selected node, if any.
func (c *Canvas) DeleteSelected() {
	if c.selected != "" {
		c.DeleteNode(c.selected)
	}
}

// DeleteNode removes the node with id and every connection touching it.
// Unknown ids are ignored.
func (c *Canvas) DeleteNode(id string) {
	if flow.FindNode(c.nodes, id) < 0 {
		return
	}
	nodes, conns := flow.DeleteNode(c.nodes, c.conns, id)
	c.log.Debug("node deleted", "id", id, "connections_removed", len(c.conns)-len(conns))
	if c.selected == id {
		c.selected = ""
	}
	if nodeOf(c.state) == id {
		c.setState(Idle{})
	}
	c.setNodes(nodes)
	c.setConns(conns)
}
