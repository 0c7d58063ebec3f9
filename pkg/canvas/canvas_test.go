package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

// recorder plays the host: it keeps whatever the canvas emits.
type recorder struct {
	nodes     []flow.Node
	conns     []flow.Connection
	nodeCalls int
	connCalls int
}

func newTestCanvas(t *testing.T) (*Canvas, *recorder) {
	t.Helper()
	rec := &recorder{}
	c := New(
		WithIDSource(&flow.SequenceIDs{Prefix: "id"}),
		OnNodesChange(func(n []flow.Node) { rec.nodes = n; rec.nodeCalls++ }),
		OnConnectionsChange(func(cs []flow.Connection) { rec.conns = cs; rec.connCalls++ }),
	)
	return c, rec
}

func click(c *Canvas, x, y float64) {
	c.PointerDown(Pointer{X: x, Y: y})
	c.PointerUp(Pointer{X: x, Y: y})
}

func shiftClick(c *Canvas, x, y float64) {
	c.PointerDown(Pointer{X: x, Y: y, Shift: true})
	c.PointerUp(Pointer{X: x, Y: y, Shift: true})
}

func TestEndToEndScenario(t *testing.T) {
	c, rec := newTestCanvas(t)

	c.SetTool(ToolFor(flow.TypeStart))
	click(c, 100, 100)
	require.Len(t, rec.nodes, 1)
	start := rec.nodes[0]
	assert.Equal(t, flow.TypeStart, start.Type)
	assert.Equal(t, "Начало", start.Label)
	assert.Equal(t, 100.0, start.X)
	assert.Equal(t, 100.0, start.Y)

	c.SetTool(ToolFor(flow.TypeProcess))
	click(c, 300, 100)
	require.Len(t, rec.nodes, 2)
	process := rec.nodes[1]
	assert.Equal(t, flow.TypeProcess, process.Type)

	// Select start, then shift-press process.
	click(c, 150, 130)
	shiftClick(c, 350, 130)
	require.Len(t, rec.conns, 1)
	assert.Equal(t, start.ID, rec.conns[0].From)
	assert.Equal(t, process.ID, rec.conns[0].To)
	sel, _ := c.Selected()
	assert.Equal(t, process.ID, sel)

	click(c, 150, 130)
	c.Key(KeyEvent{Key: KeyDelete})
	require.Len(t, rec.nodes, 1)
	assert.Equal(t, process.ID, rec.nodes[0].ID)
	assert.Empty(t, rec.conns)
	_, ok := c.Selected()
	assert.False(t, ok)
}

func TestPlaceUsesInverseTransform(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.Wheel(-1)
	c.Wheel(-1)
	c.PanBy(30, -20)
	v := c.View()

	c.SetTool(ToolFor(flow.TypeDecision))
	click(c, 200, 150)
	require.Len(t, rec.nodes, 1)
	n := rec.nodes[0]
	assert.InDelta(t, (200-30)/v.Scale, n.X, 1e-9)
	assert.InDelta(t, (150+20)/v.Scale, n.Y, 1e-9)
	assert.Equal(t, "Условие?", n.Label)

	back := v.ToScreen(flow.Point{X: n.X, Y: n.Y})
	assert.InDelta(t, 200, back.X, 1e-9)
	assert.InDelta(t, 150, back.Y, 1e-9)
}

func TestSelectToolNeverCreates(t *testing.T) {
	c, rec := newTestCanvas(t)
	click(c, 10, 10)
	click(c, 400, 300)
	assert.Equal(t, 0, rec.nodeCalls)
	assert.Empty(t, c.Nodes())
}

func TestPressOnNodeNeverPlaces(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{{ID: "a", Type: flow.TypeProcess, X: 0, Y: 0}}, nil)
	c.SetTool(ToolFor(flow.TypeEnd))

	click(c, 60, 40)
	assert.Equal(t, 0, rec.nodeCalls)
	sel, _ := c.Selected()
	assert.Equal(t, "a", sel)
}

func TestUnknownToolIgnored(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.SetTool(ToolFor(flow.TypeInput))
	c.SetTool(Tool("lasso"))
	assert.Equal(t, ToolFor(flow.TypeInput), c.Tool())
}

func TestDragMovesOnlyTarget(t *testing.T) {
	c, rec := newTestCanvas(t)
	nodes := []flow.Node{
		{ID: "a", Type: flow.TypeStart, X: 0, Y: 0},
		{ID: "b", Type: flow.TypeProcess, X: 200, Y: 0},
		{ID: "c", Type: flow.TypeEnd, X: 400, Y: 0},
	}
	c.SetDiagram(nodes, nil)

	// Press 10 right and 5 below b's corner.
	c.PointerDown(Pointer{X: 210, Y: 5})
	require.Equal(t, ModeDragging, c.Mode())
	c.PointerMove(Pointer{X: 260, Y: 105})
	c.PointerMove(Pointer{X: 310, Y: 205})
	c.PointerUp(Pointer{X: 310, Y: 205})

	assert.Equal(t, 2, rec.nodeCalls)
	require.Len(t, rec.nodes, 3)
	assert.Equal(t, nodes[0], rec.nodes[0])
	assert.Equal(t, nodes[2], rec.nodes[2])
	assert.Equal(t, 300.0, rec.nodes[1].X)
	assert.Equal(t, 200.0, rec.nodes[1].Y)
	assert.Equal(t, ModeIdle, c.Mode())

	// The host's original slice was not touched.
	assert.Equal(t, 200.0, nodes[1].X)
}

func TestDragUnderZoom(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{{ID: "a", Type: flow.TypeProcess, X: 100, Y: 100}}, nil)
	c.Wheel(1) // 0.9

	// Screen (99, 99) is model (110, 110).
	c.PointerDown(Pointer{X: 99, Y: 99})
	c.PointerMove(Pointer{X: 189, Y: 99})
	require.Len(t, rec.nodes, 1)
	assert.InDelta(t, 200, rec.nodes[0].X, 1e-9)
	assert.InDelta(t, 100, rec.nodes[0].Y, 1e-9)
}

func TestMoveWithoutGestureIsNoop(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{{ID: "a", Type: flow.TypeProcess}}, nil)
	c.PointerMove(Pointer{X: 50, Y: 50})
	assert.Equal(t, 0, rec.nodeCalls)
	assert.Equal(t, flow.IdentityView(), c.View())
}

func TestPanTracksPointer(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.PanBy(10, 10)

	c.PointerDown(Pointer{X: 100, Y: 100, Button: ButtonMiddle})
	require.Equal(t, ModePanning, c.Mode())
	c.PointerMove(Pointer{X: 150, Y: 80, Button: ButtonMiddle})
	assert.Equal(t, 60.0, c.View().PanX)
	assert.Equal(t, -10.0, c.View().PanY)

	c.PointerUp(Pointer{X: 150, Y: 80, Button: ButtonMiddle})
	assert.Equal(t, ModeIdle, c.Mode())
	c.PointerMove(Pointer{X: 500, Y: 500})
	assert.Equal(t, 60.0, c.View().PanX)
}

func TestPanAndDragAreExclusive(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{{ID: "a", Type: flow.TypeProcess, X: 0, Y: 0}}, nil)

	// Pan first: a primary press on the node does not start a drag.
	c.PointerDown(Pointer{X: 300, Y: 300, Button: ButtonMiddle})
	c.PointerDown(Pointer{X: 10, Y: 10})
	assert.Equal(t, ModePanning, c.Mode())
	_, selected := c.Selected()
	assert.False(t, selected)
	c.PointerMove(Pointer{X: 320, Y: 300})
	assert.Equal(t, 0, rec.nodeCalls)
	c.PointerUp(Pointer{X: 320, Y: 300})

	// Drag first: a middle press does not start a pan.
	pan := c.View()
	c.PointerDown(Pointer{X: 30, Y: 10})
	require.Equal(t, ModeDragging, c.Mode())
	c.PointerDown(Pointer{X: 30, Y: 10, Button: ButtonMiddle})
	assert.Equal(t, ModeDragging, c.Mode())
	c.PointerMove(Pointer{X: 40, Y: 10})
	assert.Equal(t, pan, c.View())
	assert.Equal(t, 1, rec.nodeCalls)
}

func TestSecondaryButtonIgnored(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetTool(ToolFor(flow.TypeProcess))
	c.PointerDown(Pointer{X: 10, Y: 10, Button: ButtonSecondary})
	assert.Equal(t, ModeIdle, c.Mode())
	assert.Equal(t, 0, rec.nodeCalls)
}

func TestShiftOnEmptyCanvasStartsConnecting(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{
		{ID: "a", Type: flow.TypeStart, X: 0, Y: 0},
		{ID: "b", Type: flow.TypeEnd, X: 300, Y: 0},
	}, nil)
	c.SetTool(ToolFor(flow.TypeProcess))
	click(c, 10, 10)

	shiftClick(c, 150, 300)
	assert.Equal(t, ModeConnecting, c.Mode())
	assert.Equal(t, 0, rec.nodeCalls, "shift-press on empty canvas must not place")

	click(c, 310, 10)
	require.Len(t, rec.conns, 1)
	assert.Equal(t, flow.Connection{ID: "id1", From: "a", To: "b"}, rec.conns[0])
	assert.Equal(t, ModeIdle, c.Mode())
	sel, _ := c.Selected()
	assert.Equal(t, "b", sel)
}

func TestShiftOnEmptyCanvasWithSelectTool(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{
		{ID: "a", Type: flow.TypeStart, X: 0, Y: 0},
		{ID: "b", Type: flow.TypeEnd, X: 300, Y: 0},
	}, nil)
	c.SetTool(ToolSelect)
	click(c, 10, 10)

	shiftClick(c, 150, 300)
	assert.Equal(t, ModeIdle, c.Mode())
	sel, _ := c.Selected()
	assert.Equal(t, "a", sel)

	// Shift-pressing another node still connects.
	shiftClick(c, 310, 10)
	require.Len(t, rec.conns, 1)
	assert.Equal(t, "b", rec.conns[0].To)
	assert.Equal(t, 0, rec.nodeCalls)
}

func TestConnectingAbandoned(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{{ID: "a", Type: flow.TypeStart}}, nil)
	c.SetTool(ToolFor(flow.TypeProcess))
	click(c, 10, 10)

	shiftClick(c, 500, 500)
	require.Equal(t, ModeConnecting, c.Mode())
	c.Key(KeyEvent{Key: KeyEscape})
	assert.Equal(t, ModeIdle, c.Mode())

	shiftClick(c, 500, 500)
	require.Equal(t, ModeConnecting, c.Mode())
	click(c, 600, 600)
	assert.Equal(t, ModeIdle, c.Mode())
	assert.Equal(t, 0, rec.nodeCalls, "abandoning press must not place")
	assert.Equal(t, 0, rec.connCalls)
}

func TestShiftPressOnSameNodeDoesNotConnect(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{{ID: "a", Type: flow.TypeStart}}, nil)
	click(c, 10, 10)
	shiftClick(c, 20, 20)
	assert.Equal(t, 0, rec.connCalls)
}

func TestConsecutiveEventsCompose(t *testing.T) {
	// The host never calls SetDiagram, yet each emission builds on the last.
	c, rec := newTestCanvas(t)
	c.SetTool(ToolFor(flow.TypeProcess))
	click(c, 0, 0)
	click(c, 500, 0)
	click(c, 0, 500)
	assert.Len(t, rec.nodes, 3)
	assert.Equal(t, 3, rec.nodeCalls)
	assert.Equal(t, []string{"id1", "id2", "id3"}, []string{rec.nodes[0].ID, rec.nodes[1].ID, rec.nodes[2].ID})
}

func TestSetDiagramKeepsTransientState(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{{ID: "a", Type: flow.TypeProcess, X: 0, Y: 0}}, nil)
	c.Wheel(-1)
	c.PanBy(5, 7)
	c.PointerDown(Pointer{X: 20, Y: 20})
	c.PointerMove(Pointer{X: 40, Y: 20})
	view := c.View()

	c.SetDiagram(rec.nodes, rec.conns)
	assert.Equal(t, view, c.View())
	assert.Equal(t, ModeDragging, c.Mode())
	sel, _ := c.Selected()
	assert.Equal(t, "a", sel)

	c.SetDiagram([]flow.Node{{ID: "z", Type: flow.TypeEnd}}, nil)
	_, ok := c.Selected()
	assert.False(t, ok)
	assert.Equal(t, ModeIdle, c.Mode())
	assert.Equal(t, view, c.View())
	assert.NotNil(t, c.Connections())
}

func TestEditCommit(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{
		{ID: "a", Type: flow.TypeProcess, Label: "Процесс"},
		{ID: "b", Type: flow.TypeEnd, X: 300, Label: "Конец"},
	}, nil)
	click(c, 10, 10)

	require.True(t, c.BeginEdit())
	assert.Equal(t, ModeEditing, c.Mode())
	assert.Equal(t, "Процесс", c.EditText())

	c.Key(KeyEvent{Key: KeyBackspace})
	c.Key(KeyEvent{Key: KeyBackspace})
	assert.Equal(t, "Проце", c.EditText())
	c.Key(KeyEvent{Key: KeyRune, Rune: 'д'})
	c.Key(KeyEvent{Key: KeyDelete})
	assert.Equal(t, "Процед", c.EditText())

	// Pointer input is ignored while the buffer is open.
	c.PointerDown(Pointer{X: 310, Y: 10})
	assert.Equal(t, ModeEditing, c.Mode())

	c.Key(KeyEvent{Key: KeyEnter})
	assert.Equal(t, ModeIdle, c.Mode())
	require.Len(t, rec.nodes, 2)
	assert.Equal(t, "Процед", rec.nodes[0].Label)
	assert.Equal(t, "Конец", rec.nodes[1].Label)
}

func TestEditCancel(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{{ID: "a", Type: flow.TypeProcess, Label: "old"}}, nil)
	c.Select("a")

	require.True(t, c.BeginEdit())
	c.SetEditText("new")
	c.Key(KeyEvent{Key: KeyEscape})
	assert.Equal(t, ModeIdle, c.Mode())
	assert.Equal(t, 0, rec.nodeCalls)
	assert.Equal(t, "old", c.Nodes()[0].Label)
	assert.Equal(t, "", c.EditText())
}

func TestBeginEditNeedsSelection(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.SetDiagram([]flow.Node{{ID: "a", Type: flow.TypeProcess}}, nil)
	assert.False(t, c.BeginEdit())
	c.Key(KeyEvent{Key: KeyEnter})
	assert.Equal(t, ModeIdle, c.Mode())

	c.Select("a")
	c.Key(KeyEvent{Key: KeyEnter})
	assert.Equal(t, ModeEditing, c.Mode())
}

func TestDeleteNodeRemovesIncidentConnections(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram(
		[]flow.Node{{ID: "a"}, {ID: "b", X: 200}, {ID: "c", X: 400}},
		[]flow.Connection{
			{ID: "1", From: "a", To: "b"},
			{ID: "2", From: "b", To: "c"},
			{ID: "3", From: "c", To: "a"},
		},
	)
	c.Select("c")
	c.DeleteNode("a")

	assert.Len(t, rec.nodes, 2)
	require.Len(t, rec.conns, 1)
	assert.Equal(t, "2", rec.conns[0].ID)
	sel, _ := c.Selected()
	assert.Equal(t, "c", sel, "deleting another node keeps the selection")
}

func TestDeleteKeyWithoutSelection(t *testing.T) {
	c, rec := newTestCanvas(t)
	c.SetDiagram([]flow.Node{{ID: "a"}}, nil)
	c.Key(KeyEvent{Key: KeyDelete})
	c.DeleteNode("missing")
	assert.Equal(t, 0, rec.nodeCalls)
	assert.Equal(t, 0, rec.connCalls)
}

func TestZoomClamp(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.Wheel(1)
	assert.InDelta(t, 0.9, c.View().Scale, 1e-12)

	c.ResetView()
	for i := 0; i < 10; i++ {
		c.Wheel(-1)
		assert.LessOrEqual(t, c.View().Scale, flow.MaxScale)
	}
	for i := 0; i < 5; i++ {
		c.Wheel(-1)
	}
	assert.Equal(t, flow.MaxScale, c.View().Scale)

	for i := 0; i < 60; i++ {
		c.Wheel(1)
		assert.GreaterOrEqual(t, c.View().Scale, flow.MinScale)
	}
	assert.Equal(t, flow.MinScale, c.View().Scale)
}

func TestZoomAnchoredAtOrigin(t *testing.T) {
	c, _ := newTestCanvas(t)
	c.PanBy(40, 40)
	c.Wheel(-1)
	assert.Equal(t, 40.0, c.View().PanX)
	assert.Equal(t, 40.0, c.View().PanY)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "idle", ModeIdle.String())
	assert.Equal(t, "connecting", ModeConnecting.String())
	assert.Equal(t, "unknown", Mode(99).String())
}
