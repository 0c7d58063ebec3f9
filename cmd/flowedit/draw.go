package main

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/ha1tch/flowchart-toolkit/pkg/canvas"
	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
	"github.com/ha1tch/flowchart-toolkit/pkg/flowfile"
)

// Styles
var (
	styleDefault    = tcell.StyleDefault
	styleTitle      = tcell.StyleDefault.Bold(true).Foreground(tcell.ColorWhite)
	styleToolbar    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorDarkSlateGray)
	styleToolSel    = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlue).Bold(true)
	styleHint       = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorDarkSlateGray)
	styleMenu       = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleMenuSel    = tcell.StyleDefault.Background(tcell.ColorBlue).Foreground(tcell.ColorWhite)
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgInfo    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgSuccess = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgWarning = tcell.StyleDefault.Foreground(tcell.ColorYellow).Background(tcell.ColorNavy)
	styleHelp       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleMuted      = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleInput      = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
	styleBorder     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleDialogH    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)

	styleCanvas     = tcell.StyleDefault.Background(termColor(flowfile.CanvasColor))
	styleGrid       = styleCanvas.Foreground(tcell.NewRGBColor(0xd1, 0xd5, 0xdb))
	styleConnection = styleCanvas.Foreground(tcell.NewRGBColor(0x37, 0x41, 0x51))
	styleEdgeLabel  = styleCanvas.Foreground(tcell.NewRGBColor(0x37, 0x41, 0x51)).Italic(true)
)

func termColor(c flowfile.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

var toolLabels = map[canvas.Tool]string{
	canvas.ToolSelect:                 "Выбрать",
	canvas.ToolFor(flow.TypeStart):    "Начало",
	canvas.ToolFor(flow.TypeEnd):      "Конец",
	canvas.ToolFor(flow.TypeProcess):  "Процесс",
	canvas.ToolFor(flow.TypeInput):    "Ввод/Вывод",
	canvas.ToolFor(flow.TypeDecision): "Условие",
}

const toolbarHint = "Shift+клик для соединения"

type toolbarItem struct {
	tool   canvas.Tool
	label  string
	x0, x1 int // cells [x0, x1)
}

// toolbarItems lays the toolbar out from column 1, one cell between items.
func toolbarItems() []toolbarItem {
	items := make([]toolbarItem, 0, len(canvas.Tools))
	x := 1
	for i, t := range canvas.Tools {
		label := fmt.Sprintf(" %d %s ", i+1, toolLabels[t])
		w := runewidth.StringWidth(label)
		items = append(items, toolbarItem{tool: t, label: label, x0: x, x1: x + w})
		x += w + 1
	}
	return items
}

// toolAt returns the toolbar entry under column x.
func toolAt(x int) (canvas.Tool, bool) {
	for _, it := range toolbarItems() {
		if x >= it.x0 && x < it.x1 {
			return it.tool, true
		}
	}
	return "", false
}

// Border glyphs per node type.
type borderSet struct {
	tl, tr, bl, br, h, v rune
}

var (
	borderRound   = borderSet{'╭', '╮', '╰', '╯', '─', '│'}
	borderSquare  = borderSet{'┌', '┐', '└', '┘', '─', '│'}
	borderSlanted = borderSet{'┌', '┐', '└', '┘', '─', '╱'}
	borderDiamond = borderSet{'╱', '╲', '╲', '╱', '─', '│'}
	borderDouble  = borderSet{'╔', '╗', '╚', '╝', '═', '║'}

	nodeBorders = map[flow.NodeType]borderSet{
		flow.TypeStart:    borderRound,
		flow.TypeEnd:      borderRound,
		flow.TypeProcess:  borderSquare,
		flow.TypeInput:    borderSlanted,
		flow.TypeDecision: borderDiamond,
	}
)

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()

	if ed.mode == ModeDashboard || (ed.mode != ModeCanvas && ed.prevMode == ModeDashboard) {
		ed.drawDashboard(w, h)
	} else {
		ed.drawToolbar(w)
		ed.drawCanvas(w, h)
		if ed.canvas.Mode() == canvas.ModeEditing {
			ed.drawEditBox(w, h)
		}
	}

	switch ed.mode {
	case ModeInput:
		ed.drawInputBox(w, h)
	case ModeExport:
		ed.drawExportDialog(w, h)
	case ModeHelp:
		ed.drawHelp(w, h)
	}

	ed.drawStatusBar(w, h)
}

// Dashboard

const dashboardListTop = 4

func (ed *Editor) drawDashboard(w, h int) {
	ed.drawString(2, 1, "Мои блок-схемы", styleTitle)
	ed.drawString(2, 2, ed.store.Dir(), styleMuted)

	if len(ed.charts) == 0 {
		ed.drawString(2, dashboardListTop, "Нет блок-схем", styleMenu)
		ed.drawString(2, dashboardListTop+1, "Создайте свою первую блок-схему: n", styleMuted)
		return
	}

	titleW := w - 2 - 30
	if titleW < 10 {
		titleW = 10
	}
	for i, f := range ed.charts {
		y := dashboardListTop + i
		if y >= h-statusRows {
			break
		}
		style := styleMenu
		if i == ed.chartSelected {
			style = styleMenuSel
		}
		updated := "-"
		if !f.UpdatedAt.IsZero() {
			updated = f.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		line := fmt.Sprintf(" %s  %-16s  %4d ", padRight(truncate(f.Title, titleW), titleW), updated, len(f.Data.Nodes))
		ed.drawString(1, y, line, style)
	}
}

// Canvas

func (ed *Editor) drawToolbar(w int) {
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, 0, ' ', nil, styleToolbar)
	}
	end := 0
	for _, it := range toolbarItems() {
		style := styleToolbar
		if it.tool == ed.canvas.Tool() {
			style = styleToolSel
		}
		ed.drawString(it.x0, 0, it.label, style)
		end = it.x1
	}
	if hx := w - runewidth.StringWidth(toolbarHint) - 1; hx > end+1 {
		ed.drawString(hx, 0, toolbarHint, styleHint)
	}
}

// canvasBottom is the first row below the canvas.
func canvasBottom(h int) int { return h - statusRows }

func (ed *Editor) setCell(x, y int, r rune, style tcell.Style) {
	w, h := ed.screen.Size()
	if x < 0 || x >= w || y < canvasTop || y >= canvasBottom(h) {
		return
	}
	ed.screen.SetContent(x, y, r, nil, style)
}

func (ed *Editor) drawCanvas(w, h int) {
	view := ed.canvas.View()
	for y := canvasTop; y < canvasBottom(h); y++ {
		for x := 0; x < w; x++ {
			r := ' '
			if gridDot(view, x, y) {
				r = '·'
			}
			ed.screen.SetContent(x, y, r, nil, styleGrid)
		}
	}

	nodes := ed.canvas.Nodes()
	for _, c := range ed.canvas.Connections() {
		from, to, ok := flow.Resolve(nodes, c)
		if !ok {
			continue
		}
		ed.drawConnection(view, from, to, c.Label)
	}

	selected, _ := ed.canvas.Selected()
	source := ""
	if st, ok := ed.canvas.State().(canvas.Connecting); ok {
		source = st.From
	}
	for _, n := range nodes {
		ed.drawNode(view, n, n.ID == selected || n.ID == source)
	}
}

// gridDot places a dot every 40 screen units, moving with the pan.
func gridDot(v flow.View, x, y int) bool {
	const spacing = 40.0
	gx := math.Mod(float64(x)*CellWidth-v.PanX, spacing)
	gy := math.Mod(float64(y-canvasTop)*CellHeight-v.PanY, spacing)
	if gx < 0 {
		gx += spacing
	}
	if gy < 0 {
		gy += spacing
	}
	return gx < CellWidth && gy < CellHeight
}

// nodeCells returns the inclusive cell rectangle a node covers under v.
// Boxes are never smaller than 3x3 so that borders and a label fit.
func nodeCells(v flow.View, n flow.Node) (x0, y0, x1, y1 int) {
	w, h := flow.Size(n.Type)
	tl := v.ToScreen(flow.Point{X: n.X, Y: n.Y})
	br := v.ToScreen(flow.Point{X: n.X + w, Y: n.Y + h})
	x0 = int(math.Floor(tl.X / CellWidth))
	y0 = int(math.Floor(tl.Y/CellHeight)) + canvasTop
	x1 = int(math.Ceil(br.X/CellWidth)) - 1
	y1 = int(math.Ceil(br.Y/CellHeight)) - 1 + canvasTop
	if x1 < x0+2 {
		x1 = x0 + 2
	}
	if y1 < y0+2 {
		y1 = y0 + 2
	}
	return x0, y0, x1, y1
}

func (ed *Editor) drawNode(v flow.View, n flow.Node, highlight bool) {
	x0, y0, x1, y1 := nodeCells(v, n)
	pal := flowfile.PaletteFor(n.Type)
	fill := tcell.StyleDefault.Background(termColor(pal.Background))
	border := fill.Foreground(termColor(pal.Border))
	set, ok := nodeBorders[n.Type]
	if !ok {
		set = borderSquare
	}
	if highlight {
		set = borderDouble
		border = fill.Foreground(termColor(flowfile.SelectionColor)).Bold(true)
	}

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			ed.setCell(x, y, ' ', fill)
		}
	}
	for x := x0 + 1; x < x1; x++ {
		ed.setCell(x, y0, set.h, border)
		ed.setCell(x, y1, set.h, border)
	}
	for y := y0 + 1; y < y1; y++ {
		ed.setCell(x0, y, set.v, border)
		ed.setCell(x1, y, set.v, border)
	}
	ed.setCell(x0, y0, set.tl, border)
	ed.setCell(x1, y0, set.tr, border)
	ed.setCell(x0, y1, set.bl, border)
	ed.setCell(x1, y1, set.br, border)

	label := runewidth.Truncate(n.Label, x1-x0-1, "…")
	lx := x0 + (x1-x0+1-runewidth.StringWidth(label))/2
	ly := (y0 + y1) / 2
	ed.drawClipped(lx, ly, label, fill.Foreground(termColor(pal.Text)).Bold(true))
}

// drawConnection routes an edge horizontally from the source centre, then
// vertically into the target, ending in an arrow outside the target box.
func (ed *Editor) drawConnection(v flow.View, from, to flow.Node, label string) {
	fx0, fy0, fx1, fy1 := nodeCells(v, from)
	tx0, ty0, tx1, ty1 := nodeCells(v, to)
	fx, fy := (fx0+fx1)/2, (fy0+fy1)/2
	tx, ty := (tx0+tx1)/2, (ty0+ty1)/2

	// Target level with the source row: one straight horizontal run.
	if fy >= ty0 && fy <= ty1 {
		end, arrow := tx0-1, '→'
		if tx < fx {
			end, arrow = tx1+1, '←'
		}
		ed.hline(fx, end, fy)
		ed.setCell(end, fy, arrow, styleConnection)
		ed.drawEdgeLabel((fx+end)/2, fy-1, label)
		return
	}

	ed.hline(fx, tx, fy)
	end, arrow := ty0-1, '↓'
	if ty < fy {
		end, arrow = ty1+1, '↑'
	}
	ed.vline(tx, fy, end)
	switch {
	case tx > fx && ty > fy:
		ed.setCell(tx, fy, '╮', styleConnection)
	case tx > fx:
		ed.setCell(tx, fy, '╯', styleConnection)
	case tx < fx && ty > fy:
		ed.setCell(tx, fy, '╭', styleConnection)
	case tx < fx:
		ed.setCell(tx, fy, '╰', styleConnection)
	}
	ed.setCell(tx, end, arrow, styleConnection)

	// Keep the label off the source box when the run is short.
	ly := fy - 1
	if ly >= fy0 && ly <= fy1 && (tx < fx0 || tx > fx1) {
		ed.drawEdgeLabel((fx+tx)/2, ly, label)
	} else {
		ed.drawEdgeLabel(tx+2, (fy+end)/2, label)
	}
}

func (ed *Editor) hline(x0, x1, y int) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	for x := x0; x <= x1; x++ {
		ed.setCell(x, y, '─', styleConnection)
	}
}

func (ed *Editor) vline(x, y0, y1 int) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		ed.setCell(x, y, '│', styleConnection)
	}
}

func (ed *Editor) drawEdgeLabel(cx, y int, label string) {
	if label == "" {
		return
	}
	ed.drawClipped(cx-runewidth.StringWidth(label)/2, y, label, styleEdgeLabel)
}

// drawClipped draws s inside the canvas area only.
func (ed *Editor) drawClipped(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		ed.setCell(x, y, r, style)
		x += runewidth.RuneWidth(r)
	}
}

// Overlays

func (ed *Editor) drawEditBox(w, h int) {
	boxW := 50
	if boxW > w-2 {
		boxW = w - 2
	}
	boxX := (w - boxW) / 2
	boxY := (h - 5) / 2

	ed.drawTitledBox(boxX, boxY, boxW, 5, "Редактировать текст")
	text := ed.canvas.EditText() + "_"
	if runewidth.StringWidth(text) > boxW-4 {
		// Show the tail, where the cursor is.
		r := []rune(text)
		for len(r) > 0 && runewidth.StringWidth(string(r)) > boxW-5 {
			r = r[1:]
		}
		text = "…" + string(r)
	}
	ed.drawString(boxX+2, boxY+1, padRight(text, boxW-4), styleInput)
	ed.drawString(boxX+2, boxY+3, "Enter: Сохранить  Esc: Отмена", styleHelp)
}

func (ed *Editor) drawInputBox(w, h int) {
	boxW := 60
	if boxW > w-2 {
		boxW = w - 2
	}
	boxX := (w - boxW) / 2
	boxY := (h - 3) / 2

	ed.drawBox(boxX, boxY, boxW, 3, styleInput)
	ed.drawString(boxX+2, boxY+1, ed.inputPrompt, styleInput)
	ed.drawString(boxX+2+runewidth.StringWidth(ed.inputPrompt), boxY+1, ed.inputBuffer+"_", styleInput)
}

func (ed *Editor) drawExportDialog(w, h int) {
	boxW := 64
	if boxW > w-2 {
		boxW = w - 2
	}
	boxH := 10
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2
	ed.drawTitledBox(boxX, boxY, boxW, boxH, "Экспорт блок-схемы")

	ed.drawString(boxX+2, boxY+2, "Выберите формат:", styleMenu)
	options := []struct {
		kind flowfile.Kind
		desc string
	}{
		{flowfile.KindPNG, "Растровое изображение высокого качества"},
		{flowfile.KindSVG, "Векторное изображение для масштабирования"},
	}
	for i, o := range options {
		mark, style := "( )", styleMenu
		if o.kind == ed.exportKind {
			mark, style = "(•)", styleMenuSel
		}
		line := fmt.Sprintf(" %s %-4s %s", mark, strings.ToUpper(string(o.kind)), o.desc)
		ed.drawString(boxX+2, boxY+3+i, truncate(line, boxW-4), style)
	}

	name := flowfile.FileName(ed.title(), ed.exportKind)
	ed.drawString(boxX+2, boxY+6, truncate(filepath.Join(ed.config.LastDir, name), boxW-4), styleMuted)
	action := fmt.Sprintf("Enter: Скачать %s  Esc: Отмена", strings.ToUpper(string(ed.exportKind)))
	ed.drawString(boxX+2, boxY+8, action, styleHelp)
}

var helpLines = []string{
	"1-6        Инструмент (Выбрать, Начало, Конец, ...)",
	"Клик       Выбрать блок / добавить блок",
	"Shift+клик Соединить выбранный блок",
	"c          Следующий клик как Shift+клик",
	"Перетащить Переместить блок",
	"Ср. кнопка Перемещать холст",
	"Колесо +/- Масштаб, 0 сброс вида",
	"Стрелки    Перемещать холст",
	"Tab        Следующий блок",
	"Enter, e   Редактировать текст",
	"Delete     Удалить блок",
	"t          Переименовать блок-схему",
	"y / l      Копировать SVG / текст блока",
	"p          Снимок вида в PNG",
	"Ctrl+S     Сохранить",
	"Ctrl+E     Экспорт",
	"Ctrl+W     К списку блок-схем",
	"q, Ctrl+Q  Выход",
}

func (ed *Editor) drawHelp(w, h int) {
	boxW := 56
	if boxW > w-2 {
		boxW = w - 2
	}
	boxH := len(helpLines) + 4
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2
	if boxY < 0 {
		boxY = 0
	}
	ed.drawTitledBox(boxX, boxY, boxW, boxH, "Справка")
	for i, line := range helpLines {
		ed.drawString(boxX+2, boxY+2+i, truncate(line, boxW-4), styleMenu)
	}
}

// Status

func (ed *Editor) drawStatusBar(w, h int) {
	y := h - 1

	// Background
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	// Chart info
	if ed.mode != ModeDashboard {
		info := ed.title()
		if info == "" {
			info = "[Без названия]"
		}
		if ed.filename != "" {
			info += " (" + filepath.Base(ed.filename) + ")"
		}
		if ed.modified {
			info += " *"
		}
		ed.drawString(1, y, truncate(info, w/3), styleStatus)
	}

	// Mode
	modeStr := ed.modeString()
	ed.drawString(w/2-runewidth.StringWidth(modeStr)/2, y, modeStr, styleStatus)

	// Message
	if ed.message != "" {
		style := styleMsgInfo
		switch ed.messageType {
		case MsgError:
			style = styleMsgError
		case MsgSuccess:
			style = styleMsgSuccess
		case MsgWarning:
			style = styleMsgWarning
		}
		if flashes(ed.messageType) && flashInverted(time.Now().UnixMilli()-ed.messageFlashStart) {
			style = style.Reverse(true)
		}
		msg := truncate(ed.message, w/3)
		ed.drawString(w-runewidth.StringWidth(msg)-2, y, msg, style)
	}

	// Help bar
	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, ed.helpString(), styleHelp)
	if ed.mode == ModeDashboard {
		return
	}
	right := fmt.Sprintf("Масштаб: %d%%  Колесо мыши для масштаба", zoomPercent(ed.canvas.View()))
	if s := ed.saveStatus(); s != "" {
		right = s + "  " + right
	}
	ed.drawString(w-runewidth.StringWidth(right)-1, y, right, styleHelp)
}

func zoomPercent(v flow.View) int {
	return int(math.Round(v.Scale * 100))
}

func (ed *Editor) saveStatus() string {
	switch {
	case ed.saving:
		return "Сохранение..."
	case !ed.lastSaved.IsZero():
		return "Сохранено " + ed.lastSaved.Format("15:04:05")
	}
	return ""
}

func (ed *Editor) modeString() string {
	switch ed.mode {
	case ModeInput:
		return "ВВОД"
	case ModeExport:
		return "ЭКСПОРТ"
	case ModeHelp:
		return "СПРАВКА"
	case ModeDashboard:
		return ""
	}
	switch ed.canvas.Mode() {
	case canvas.ModeDragging:
		return "ПЕРЕМЕЩЕНИЕ"
	case canvas.ModePanning:
		return "ХОЛСТ"
	case canvas.ModeConnecting:
		return "СОЕДИНЕНИЕ: кликните по блоку"
	case canvas.ModeEditing:
		return "РЕДАКТИРОВАНИЕ"
	}
	if ed.stickyShift {
		return "SHIFT"
	}
	if ed.exporting {
		return "Экспорт..."
	}
	return ""
}

func (ed *Editor) helpString() string {
	switch ed.mode {
	case ModeDashboard:
		return "↑↓:Выбор  Enter:Открыть  n:Создать  d:Удалить  r:Обновить  q:Выход"
	case ModeInput:
		return "Enter:OK  Esc:Отмена"
	case ModeExport:
		return "Tab:Формат  Enter:Скачать  Esc:Отмена"
	case ModeHelp:
		return "Любая клавиша: закрыть"
	}
	if ed.canvas.Mode() == canvas.ModeEditing {
		return "Enter:Сохранить  Esc:Отмена  Ctrl+V:Вставить"
	}
	return "1-6:Инструмент  Enter:Текст  Del:Удалить  Ctrl+S:Сохранить  Ctrl+E:Экспорт  ?:Справка"
}

// Primitives

func (ed *Editor) drawTitledBox(x, y, w, h int, title string) {
	ed.drawBox(x, y, w, h, styleDefault)
	if title != "" {
		tw := runewidth.StringWidth(title)
		titleX := x + (w-tw-2)/2
		ed.screen.SetContent(titleX, y, ' ', nil, styleBorder)
		ed.drawString(titleX+1, y, title, styleDialogH)
		ed.screen.SetContent(titleX+1+tw, y, ' ', nil, styleBorder)
	}
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	// Corners
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	// Horizontal borders
	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}

	// Vertical borders
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}

	// Fill
	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		ed.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}

// truncate shortens s to at most maxLen cells.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	return runewidth.Truncate(s, maxLen, "...")
}

func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}
