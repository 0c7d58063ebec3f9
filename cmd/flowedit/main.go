// Command flowedit is a terminal flowchart editor.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"

	"github.com/ha1tch/flowchart-toolkit/internal/logging"
	"github.com/ha1tch/flowchart-toolkit/pkg/canvas"
	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
	"github.com/ha1tch/flowchart-toolkit/pkg/flowfile"
	"github.com/ha1tch/flowchart-toolkit/pkg/store"
)

// One terminal cell covers this many canvas screen units.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// Screen rows outside the canvas: the toolbar on top, help line and status
// bar at the bottom.
const (
	canvasTop  = 1
	statusRows = 2
)

// Mode represents editor mode
type Mode int

const (
	ModeDashboard Mode = iota // list of stored charts
	ModeCanvas
	ModeInput  // single-line prompt
	ModeExport // export dialog
	ModeHelp   // help overlay
)

// MessageType for status messages
type MessageType int

const (
	MsgInfo    MessageType = iota // Informative, no flash
	MsgError                      // Errors, flash
	MsgSuccess                    // Saves and exports, flash
	MsgWarning                    // Warnings, flash
)

// Interrupt payloads posted from background goroutines.
type (
	savedEvent struct {
		rev  int
		auto bool
		err  error
	}
	exportedEvent struct {
		path string
		err  error
	}
)

// Editor holds all editor state
type Editor struct {
	screen     tcell.Screen
	config     Config
	configPath string
	log        *slog.Logger
	store      *store.Store
	ctx        context.Context

	canvas   *canvas.Canvas
	filename string // set when editing a file outside the store

	// The open chart. The canvas callbacks replace nodes and conns; the
	// autosaver reads them from its own goroutine.
	mu       sync.Mutex
	chart    flow.Flowchart
	nodes    []flow.Node
	conns    []flow.Connection
	rev      int
	savedRev int

	modified     bool
	saving       bool
	lastSaved    time.Time
	stopAutosave context.CancelFunc

	mode        Mode
	prevMode    Mode
	message     string
	messageType MessageType

	// Dashboard state
	charts        []flow.Flowchart
	chartSelected int

	// Input state
	inputBuffer string
	inputPrompt string
	inputAction func(string)

	// Export dialog state
	exportKind flowfile.Kind
	exporting  bool

	// Mouse state
	lastButtons tcell.ButtonMask
	stickyShift bool // next canvas click behaves as shift-click

	// Message flash state
	messageFlashStart int64 // Unix milliseconds when message was shown
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		os.Exit(1)
	}

	path := ConfigPath()
	cfg, err := LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
	}
	applyEnv(&cfg)

	log := logging.Discard()
	if cfg.Debug {
		logFile, err := os.OpenFile(path+".log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening debug log: %v\n", err)
			os.Exit(1)
		}
		defer logFile.Close()
		log = logging.New(logFile, slog.LevelDebug, false)
	}

	st, err := store.Open(cfg.StoreDir, store.WithLogger(log.With("component", "store")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ed := newEditor(ctx, cfg, st, log)
	ed.configPath = path

	// Check command line
	if len(os.Args) > 1 {
		if err := ed.open(os.Args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", os.Args[1], err)
			os.Exit(1)
		}
	} else {
		ed.refreshCharts()
	}

	// Initialize screen
	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	screen.Clear()
	ed.screen = screen
	ed.resize()

	ed.run()

	ed.close()
	screen.Fini()
}

func newEditor(ctx context.Context, cfg Config, st *store.Store, log *slog.Logger) *Editor {
	ed := &Editor{
		ctx:        ctx,
		config:     cfg,
		configPath: ConfigPath(),
		log:        log,
		store:      st,
		mode:       ModeDashboard,
		exportKind: flowfile.Kind(cfg.FileType),
	}
	ed.canvas = canvas.New(
		canvas.WithLogger(log.With("component", "canvas")),
		canvas.OnNodesChange(func(nodes []flow.Node) {
			ed.mu.Lock()
			ed.nodes = nodes
			ed.rev++
			ed.mu.Unlock()
			ed.modified = true
		}),
		canvas.OnConnectionsChange(func(conns []flow.Connection) {
			ed.mu.Lock()
			ed.conns = conns
			ed.rev++
			ed.mu.Unlock()
			ed.modified = true
		}),
	)
	return ed
}

func (ed *Editor) run() {
	// Use a goroutine to send periodic refresh events during any flash animation
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ed.ctx.Done():
				return
			case <-ticker.C:
				if ed.flashing(time.Now().UnixMilli()) {
					ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
				}
			}
		}
	}()

	for {
		ed.draw()
		ed.screen.Show()

		ev := ed.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			ed.resize()
			ed.screen.Sync()
		case *tcell.EventKey:
			if ed.handleKey(ev) {
				return
			}
		case *tcell.EventMouse:
			ed.handleMouse(ev)
		case *tcell.EventInterrupt:
			ed.handleInterrupt(ev.Data())
		case nil:
			return
		}
	}
}

func (ed *Editor) resize() {
	w, h := ed.screen.Size()
	rows := h - canvasTop - statusRows
	if rows < 0 {
		rows = 0
	}
	ed.canvas.Resize(float64(w)*CellWidth, float64(rows)*CellHeight)
}

func (ed *Editor) post(data any) {
	if ed.screen != nil {
		ed.screen.PostEvent(tcell.NewEventInterrupt(data))
	}
}

func (ed *Editor) handleInterrupt(data any) {
	switch ev := data.(type) {
	case savedEvent:
		if !ev.auto {
			ed.saving = false
		}
		if ev.err != nil {
			ed.showMessage("Ошибка при сохранении: "+ev.err.Error(), MsgError)
			return
		}
		ed.lastSaved = time.Now()
		if ev.rev == ed.currentRev() {
			ed.modified = false
		}
		if !ev.auto {
			ed.showMessage("Сохранено", MsgSuccess)
		}
	case exportedEvent:
		ed.exporting = false
		if ev.err != nil {
			ed.showMessage("Ошибка экспорта: "+ev.err.Error(), MsgError)
			return
		}
		ed.showMessage("Экспортировано: "+ev.path, MsgSuccess)
	}
}

// Chart lifecycle

// open loads a chart from a file path, or from the store when no such file
// exists.
func (ed *Editor) open(arg string) error {
	if _, err := os.Stat(arg); err == nil {
		f, err := flowfile.ReadFlowFile(arg)
		if err != nil {
			return err
		}
		if f.Title == "" {
			f.Title = strings.TrimSuffix(filepath.Base(arg), filepath.Ext(arg))
		}
		ed.openChart(f, arg)
		return nil
	}
	f, err := ed.store.Get(ed.ctx, arg)
	if err != nil {
		return err
	}
	ed.openChart(f, "")
	return nil
}

func (ed *Editor) openChart(f *flow.Flowchart, filename string) {
	ed.stopAutosaver()

	ed.mu.Lock()
	ed.chart = *f
	ed.nodes = f.Data.Nodes
	ed.conns = f.Data.Connections
	ed.rev = 0
	ed.mu.Unlock()

	ed.filename = filename
	ed.modified = false
	ed.lastSaved = time.Time{}
	ed.canvas.SetDiagram(f.Data.Nodes, f.Data.Connections)
	ed.canvas.SetTool(canvas.ToolSelect)
	ed.canvas.ResetView()
	ed.mode = ModeCanvas
	ed.prevMode = ModeCanvas
	ed.log.Info("chart opened", "id", f.ID, "file", filename, "nodes", len(f.Data.Nodes))

	ctx, cancel := context.WithCancel(ed.ctx)
	ed.stopAutosave = cancel
	interval := time.Duration(ed.config.AutosaveSeconds) * time.Second
	saver := store.NewAutosaver(interval, ed.autosnapshot, ed.autosave, ed.log.With("component", "autosave"))
	go saver.Run(ctx)
}

func (ed *Editor) stopAutosaver() {
	if ed.stopAutosave != nil {
		ed.stopAutosave()
		ed.stopAutosave = nil
	}
}

// close stops autosaving and writes any unsaved changes.
func (ed *Editor) close() {
	ed.stopAutosaver()
	if ed.mode == ModeDashboard || !ed.modified {
		return
	}
	if err := ed.persist(context.Background(), ed.snapshot()); err != nil {
		ed.log.Error("save on close failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
		return
	}
	ed.modified = false
}

func (ed *Editor) backToDashboard() {
	ed.close()
	ed.canvas.SetDiagram(nil, nil)
	ed.mode = ModeDashboard
	ed.refreshCharts()
}

func (ed *Editor) snapshot() flow.Diagram {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return flow.Diagram{Nodes: ed.nodes, Connections: ed.conns}
}

func (ed *Editor) currentRev() int {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.rev
}

// autosnapshot is the autosaver's view of the chart. It records which
// revision is about to be written.
func (ed *Editor) autosnapshot() flow.Diagram {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	ed.savedRev = ed.rev
	return flow.Diagram{Nodes: ed.nodes, Connections: ed.conns}
}

func (ed *Editor) autosave(ctx context.Context, d flow.Diagram) error {
	err := ed.persist(ctx, d)
	ed.mu.Lock()
	rev := ed.savedRev
	ed.mu.Unlock()
	if err == nil {
		ed.post(savedEvent{rev: rev, auto: true})
	}
	return err
}

// persist writes d with the open chart's metadata, to its file or to the
// store.
func (ed *Editor) persist(ctx context.Context, d flow.Diagram) error {
	ed.mu.Lock()
	f := ed.chart
	ed.mu.Unlock()
	f.Data = d

	if ed.filename != "" {
		f.UpdatedAt = time.Now().UTC()
		return flowfile.WriteFlowFile(ed.filename, &f)
	}
	updated, err := ed.store.Update(ctx, f.ID, store.Patch{Title: &f.Title, Data: &d})
	if err != nil {
		return err
	}
	ed.mu.Lock()
	ed.chart.UpdatedAt = updated.UpdatedAt
	ed.mu.Unlock()
	return nil
}

func (ed *Editor) save() {
	if ed.saving {
		return
	}
	ed.saving = true
	d := ed.snapshot()
	rev := ed.currentRev()
	go func() {
		err := ed.persist(ed.ctx, d)
		ed.post(savedEvent{rev: rev, err: err})
	}()
}

func (ed *Editor) title() string {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.chart.Title
}

func (ed *Editor) setTitle(title string) {
	ed.mu.Lock()
	ed.chart.Title = title
	ed.rev++
	ed.mu.Unlock()
	ed.modified = true
}

// Dashboard

func (ed *Editor) refreshCharts() {
	charts, err := ed.store.List(ed.ctx)
	if err != nil {
		ed.showMessage(err.Error(), MsgError)
		return
	}
	ed.charts = charts
	if ed.chartSelected >= len(charts) {
		ed.chartSelected = len(charts) - 1
	}
	if ed.chartSelected < 0 {
		ed.chartSelected = 0
	}
}

func (ed *Editor) createChart() {
	ed.prompt("Название: ", "", func(title string) {
		title = strings.TrimSpace(title)
		if title == "" {
			ed.showMessage("Введите название", MsgWarning)
			return
		}
		ed.prompt("Описание (опционально): ", "", func(desc string) {
			f, err := ed.store.Create(ed.ctx, title, strings.TrimSpace(desc), flow.Diagram{})
			if err != nil {
				ed.showMessage(err.Error(), MsgError)
				return
			}
			ed.openChart(f, "")
		})
	})
}

func (ed *Editor) deleteChart(i int) {
	if i < 0 || i >= len(ed.charts) {
		return
	}
	f := ed.charts[i]
	ed.prompt("Удалить эту блок-схему? (y/n): ", "", func(answer string) {
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			return
		}
		if err := ed.store.Delete(ed.ctx, f.ID); err != nil {
			ed.showMessage(err.Error(), MsgError)
			return
		}
		ed.showMessage("Удалено: "+f.Title, MsgWarning)
		ed.refreshCharts()
	})
}

// Input

func (ed *Editor) prompt(label, initial string, action func(string)) {
	if ed.mode != ModeInput {
		ed.prevMode = ed.mode
	}
	ed.inputPrompt = label
	ed.inputBuffer = initial
	ed.inputAction = action
	ed.mode = ModeInput
}

func (ed *Editor) handleInputKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ed.prevMode
	case tcell.KeyEnter:
		action := ed.inputAction
		ed.mode = ed.prevMode
		ed.inputAction = nil
		if action != nil {
			action(ed.inputBuffer)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		ed.inputBuffer = dropLastRune(ed.inputBuffer)
	case tcell.KeyCtrlV:
		if text, err := clipboard.ReadAll(); err == nil {
			ed.inputBuffer += firstLine(text)
		}
	case tcell.KeyRune:
		ed.inputBuffer += string(ev.Rune())
	}
}

func dropLastRune(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return string(r[:len(r)-1])
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// Keyboard

func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	switch ed.mode {
	case ModeInput:
		ed.handleInputKey(ev)
		return false
	case ModeHelp:
		ed.mode = ed.prevMode
		return false
	case ModeExport:
		ed.handleExportKey(ev)
		return false
	case ModeDashboard:
		return ed.handleDashboardKey(ev)
	}
	return ed.handleCanvasKey(ev)
}

func (ed *Editor) handleDashboardKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyCtrlQ, tcell.KeyEscape:
		return true
	case tcell.KeyUp:
		if ed.chartSelected > 0 {
			ed.chartSelected--
		}
	case tcell.KeyDown:
		if ed.chartSelected < len(ed.charts)-1 {
			ed.chartSelected++
		}
	case tcell.KeyEnter:
		ed.openSelected()
	case tcell.KeyDelete:
		ed.deleteChart(ed.chartSelected)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case 'n':
			ed.createChart()
		case 'd':
			ed.deleteChart(ed.chartSelected)
		case 'r':
			ed.refreshCharts()
		case '?':
			ed.showHelp()
		}
	}
	return false
}

func (ed *Editor) openSelected() {
	if ed.chartSelected < 0 || ed.chartSelected >= len(ed.charts) {
		return
	}
	f, err := ed.store.Get(ed.ctx, ed.charts[ed.chartSelected].ID)
	if err != nil {
		ed.showMessage(err.Error(), MsgError)
		ed.refreshCharts()
		return
	}
	ed.openChart(f, "")
}

func (ed *Editor) handleCanvasKey(ev *tcell.EventKey) bool {
	// The label editor owns the keyboard while it is open.
	if ed.canvas.Mode() == canvas.ModeEditing {
		switch ev.Key() {
		case tcell.KeyEnter:
			ed.canvas.Key(canvas.KeyEvent{Key: canvas.KeyEnter})
		case tcell.KeyEscape:
			ed.canvas.Key(canvas.KeyEvent{Key: canvas.KeyEscape})
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			ed.canvas.Key(canvas.KeyEvent{Key: canvas.KeyBackspace})
		case tcell.KeyCtrlV:
			if text, err := clipboard.ReadAll(); err == nil {
				ed.canvas.SetEditText(ed.canvas.EditText() + firstLine(text))
			}
		case tcell.KeyRune:
			ed.canvas.Key(canvas.KeyEvent{Key: canvas.KeyRune, Rune: ev.Rune()})
		}
		return false
	}

	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyCtrlQ:
		return true
	case tcell.KeyCtrlS:
		ed.save()
	case tcell.KeyCtrlE:
		ed.prevMode = ModeCanvas
		ed.mode = ModeExport
	case tcell.KeyCtrlW:
		ed.backToDashboard()
	case tcell.KeyEnter:
		ed.canvas.Key(canvas.KeyEvent{Key: canvas.KeyEnter})
	case tcell.KeyEscape:
		ed.stickyShift = false
		ed.canvas.Key(canvas.KeyEvent{Key: canvas.KeyEscape})
	case tcell.KeyDelete, tcell.KeyBackspace, tcell.KeyBackspace2:
		ed.canvas.Key(canvas.KeyEvent{Key: canvas.KeyDelete})
	case tcell.KeyTab:
		ed.cycleSelection()
	case tcell.KeyUp:
		ed.canvas.PanBy(0, 2*CellHeight)
	case tcell.KeyDown:
		ed.canvas.PanBy(0, -2*CellHeight)
	case tcell.KeyLeft:
		ed.canvas.PanBy(4*CellWidth, 0)
	case tcell.KeyRight:
		ed.canvas.PanBy(-4*CellWidth, 0)
	case tcell.KeyRune:
		return ed.handleCanvasRune(ev.Rune())
	}
	return false
}

func (ed *Editor) handleCanvasRune(r rune) bool {
	if r >= '1' && r < '1'+rune(len(canvas.Tools)) {
		ed.canvas.SetTool(canvas.Tools[r-'1'])
		return false
	}
	switch r {
	case 'q':
		return true
	case 'e':
		ed.canvas.Key(canvas.KeyEvent{Key: canvas.KeyEnter})
	case 'c':
		ed.stickyShift = !ed.stickyShift
	case '+', '=':
		ed.canvas.Wheel(-1)
	case '-':
		ed.canvas.Wheel(1)
	case '0':
		ed.canvas.ResetView()
	case 't':
		ed.prompt("Название: ", ed.title(), func(title string) {
			if title = strings.TrimSpace(title); title != "" {
				ed.setTitle(title)
			}
		})
	case 'y':
		ed.copySVG()
	case 'l':
		ed.copyLabel()
	case 'p':
		ed.snapshotView()
	case '?':
		ed.showHelp()
	}
	return false
}

func (ed *Editor) showHelp() {
	ed.prevMode = ed.mode
	ed.mode = ModeHelp
}

// cycleSelection selects the node after the current one.
func (ed *Editor) cycleSelection() {
	nodes := ed.canvas.Nodes()
	if len(nodes) == 0 {
		return
	}
	next := 0
	if id, ok := ed.canvas.Selected(); ok {
		next = (flow.FindNode(nodes, id) + 1) % len(nodes)
	}
	ed.canvas.Select(nodes[next].ID)
}

// Clipboard

func (ed *Editor) copySVG() {
	d := ed.snapshot()
	if err := clipboard.WriteAll(string(flowfile.RenderSVG(d.Nodes, d.Connections))); err != nil {
		ed.showMessage("Буфер обмена недоступен: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("SVG скопирован", MsgSuccess)
}

func (ed *Editor) copyLabel() {
	id, ok := ed.canvas.Selected()
	if !ok {
		ed.showMessage("Нет выбранного блока", MsgWarning)
		return
	}
	n, _ := flow.NodeByID(ed.canvas.Nodes(), id)
	if err := clipboard.WriteAll(n.Label); err != nil {
		ed.showMessage("Буфер обмена недоступен: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Текст скопирован", MsgSuccess)
}

// Export

func (ed *Editor) handleExportKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
	case tcell.KeyTab, tcell.KeyLeft, tcell.KeyRight, tcell.KeyUp, tcell.KeyDown:
		ed.toggleExportKind()
	case tcell.KeyEnter:
		ed.export()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'p', 'P':
			ed.exportKind = flowfile.KindPNG
		case 's', 'S':
			ed.exportKind = flowfile.KindSVG
		case ' ':
			ed.toggleExportKind()
		}
	}
}

func (ed *Editor) toggleExportKind() {
	if ed.exportKind == flowfile.KindSVG {
		ed.exportKind = flowfile.KindPNG
	} else {
		ed.exportKind = flowfile.KindSVG
	}
}

// export renders the chart in the background and writes it to the
// configured directory.
func (ed *Editor) export() {
	ed.mode = ModeCanvas
	if ed.exporting {
		return
	}
	ed.exporting = true

	ed.config.FileType = string(ed.exportKind)
	if err := SaveConfig(ed.configPath, ed.config); err != nil {
		ed.log.Warn("save config failed", "error", err)
	}

	d := ed.snapshot()
	title, kind, dir := ed.title(), ed.exportKind, ed.config.LastDir
	go func() {
		ctx, cancel := context.WithTimeout(ed.ctx, flowfile.DefaultRasterTimeout)
		defer cancel()

		file, err := flowfile.Export(ctx, title, d.Nodes, d.Connections, kind)
		if err != nil {
			ed.post(exportedEvent{err: err})
			return
		}
		path := filepath.Join(dir, file.Name)
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			ed.post(exportedEvent{err: err})
			return
		}
		ed.log.Info("exported", "path", path, "bytes", len(file.Data))
		ed.post(exportedEvent{path: path})
	}()
}

// snapshotView writes the canvas as currently seen, pan and zoom included.
func (ed *Editor) snapshotView() {
	name := strings.TrimSuffix(flowfile.FileName(ed.title(), flowfile.KindPNG), ".png") + "-view.png"
	path := filepath.Join(ed.config.LastDir, name)
	f, err := os.Create(path)
	if err != nil {
		ed.showMessage(err.Error(), MsgError)
		return
	}
	if err := flowfile.EncodePNG(f, ed.canvas.Scene(), 1); err != nil {
		f.Close()
		ed.showMessage(err.Error(), MsgError)
		return
	}
	if err := f.Close(); err != nil {
		ed.showMessage(err.Error(), MsgError)
		return
	}
	ed.showMessage("Снимок: "+path, MsgSuccess)
}

// Mouse

// pointer converts a cell position to canvas screen units, taking the
// centre of the cell.
func pointer(x, y int) canvas.Pointer {
	return canvas.Pointer{
		X: (float64(x) + 0.5) * CellWidth,
		Y: (float64(y-canvasTop) + 0.5) * CellHeight,
	}
}

const pointerButtons = tcell.Button1 | tcell.Button2 | tcell.Button3

func (ed *Editor) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	btns := ev.Buttons()
	pressed := btns &^ ed.lastButtons & pointerButtons
	released := ed.lastButtons &^ btns & pointerButtons
	ed.lastButtons = btns & pointerButtons

	switch ed.mode {
	case ModeDashboard:
		if pressed&tcell.Button1 != 0 {
			ed.dashboardClick(y)
		}
		return
	case ModeCanvas:
	default:
		return
	}

	if btns&tcell.WheelUp != 0 {
		ed.canvas.Wheel(-1)
		return
	}
	if btns&tcell.WheelDown != 0 {
		ed.canvas.Wheel(1)
		return
	}

	if pressed&tcell.Button1 != 0 && y < canvasTop {
		if tool, ok := toolAt(x); ok {
			ed.canvas.SetTool(tool)
		}
		return
	}

	p := pointer(x, y)
	p.Shift = ev.Modifiers()&tcell.ModShift != 0 || ed.stickyShift

	switch {
	case pressed&tcell.Button1 != 0:
		p.Button = canvas.ButtonPrimary
		ed.canvas.PointerDown(p)
		if ed.stickyShift && ed.canvas.Mode() != canvas.ModeConnecting {
			ed.stickyShift = false
		}
	case pressed&tcell.Button3 != 0:
		p.Button = canvas.ButtonMiddle
		ed.canvas.PointerDown(p)
	case pressed&tcell.Button2 != 0:
		p.Button = canvas.ButtonSecondary
		ed.canvas.PointerDown(p)
	case released != 0:
		ed.canvas.PointerUp(p)
	default:
		ed.canvas.PointerMove(p)
	}
}

func (ed *Editor) dashboardClick(y int) {
	i := y - dashboardListTop
	if i < 0 || i >= len(ed.charts) {
		return
	}
	if i == ed.chartSelected {
		ed.openSelected()
		return
	}
	ed.chartSelected = i
}

// Messages

func (ed *Editor) showMessage(msg string, msgType MessageType) {
	ed.message = msg
	ed.messageType = msgType
	ed.messageFlashStart = time.Now().UnixMilli()
	ed.log.Debug("message", "text", msg, "type", int(msgType))
	// Trigger immediate refresh for flash animation
	ed.post(nil)
}

// flashing reports whether a message flash is still animating at now.
func (ed *Editor) flashing(now int64) bool {
	if ed.message == "" || ed.messageFlashStart == 0 || !flashes(ed.messageType) {
		return false
	}
	elapsed := now - ed.messageFlashStart
	return elapsed >= 0 && elapsed < flashWindow+200
}

const (
	flashWindow = 500
	flashPhase  = 125
)

// flashInverted reports whether the message is drawn inverted elapsed
// milliseconds into its flash: two inverted blinks, then steady.
func flashInverted(elapsed int64) bool {
	if elapsed < 0 || elapsed >= flashWindow {
		return false
	}
	phase := elapsed / flashPhase
	return phase == 1 || phase == 3
}

// flashes reports whether messages of type t blink when shown.
func flashes(t MessageType) bool {
	switch t {
	case MsgError, MsgSuccess, MsgWarning:
		return true
	}
	return false
}
