package canvas

// Mode names the gesture the canvas is in.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDragging
	ModePanning
	ModeConnecting
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDragging:
		return "dragging"
	case ModePanning:
		return "panning"
	case ModeConnecting:
		return "connecting"
	case ModeEditing:
		return "editing"
	}
	return "unknown"
}

// State is the gesture in progress. Exactly one is active at a time, so a
// drag and a pan can never overlap: whichever starts first owns pointer
// moves until its release.
type State interface {
	Mode() Mode
	isState()
}

// Idle means no gesture is in progress.
type Idle struct{}

// Dragging moves NodeID with the pointer. The offset is the pointer's model
// position minus the node's top-left at the press.
type Dragging struct {
	NodeID  string
	OffsetX float64
	OffsetY float64
}

// Panning moves the view with the pointer. The anchor is the press point
// minus the pan offset at the press, so pan = pointer - anchor.
type Panning struct {
	AnchorX float64
	AnchorY float64
}

// Connecting waits for the node a new connection from From should end at.
type Connecting struct {
	From string
}

// Editing holds the label buffer of NodeID until it is committed or
// cancelled.
type Editing struct {
	NodeID string
	Buffer string
}

func (Idle) Mode() Mode       { return ModeIdle }
func (Dragging) Mode() Mode   { return ModeDragging }
func (Panning) Mode() Mode    { return ModePanning }
func (Connecting) Mode() Mode { return ModeConnecting }
func (Editing) Mode() Mode    { return ModeEditing }

func (Idle) isState()       {}
func (Dragging) isState()   {}
func (Panning) isState()    {}
func (Connecting) isState() {}
func (Editing) isState()    {}

// nodeOf returns the node a state refers to, if any.
func nodeOf(s State) string {
	switch st := s.(type) {
	case Dragging:
		return st.NodeID
	case Connecting:
		return st.From
	case Editing:
		return st.NodeID
	}
	return ""
}
