// Command flow is a CLI tool for working with flowcharts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/ha1tch/flowchart-toolkit/internal/logging"
	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
	"github.com/ha1tch/flowchart-toolkit/pkg/flowfile"
	"github.com/ha1tch/flowchart-toolkit/pkg/store"
)

const usage = `flow - flowchart toolkit

Usage:
  flow [--store dir] [-v] <command> [options]

Commands:
  render     Render a flowchart to SVG
  export     Export a flowchart as an SVG or PNG file
  thumb      Write a small PNG preview
  dot        Generate Graphviz DOT output
  info       Show flowchart information
  validate   Check a flowchart for structural problems
  new        Create an empty flowchart in the store
  import     Copy a .flow or .json file into the store
  list       List stored flowcharts, newest first
  rm         Delete a stored flowchart

Inputs are .flow/.json files or ids of stored flowcharts.
The store lives in $FLOW_STORE_DIR, or ~/.flowcharts by default.
A .env file in the working directory is read first.

Examples:
  flow export plan.flow -f png
  flow render plan.flow -o plan.svg
  flow dot plan.flow | dot -Tpng -o plan.png
  flow new "Обработка заказа"
  flow list

Use "flow <command> -h" for more information about a command.
`

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

// options are the flags accepted before or after the command name.
type options struct {
	storeDir string
	verbose  bool
}

// app carries what every command needs.
type app struct {
	opts options
	log  *slog.Logger
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		warnColor.Fprintf(os.Stderr, "Warning: ignoring .env: %v\n", err)
	}

	opts, args := parseGlobal(os.Args[1:])
	if len(args) < 1 {
		fmt.Print(usage)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	a := &app{opts: opts, log: logging.New(os.Stderr, level, true)}
	slog.SetDefault(a.log)

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "render":
		a.cmdRender(args)
	case "export":
		a.cmdExport(args)
	case "thumb":
		a.cmdThumb(args)
	case "dot":
		a.cmdDot(args)
	case "info":
		a.cmdInfo(args)
	case "validate":
		a.cmdValidate(args)
	case "new":
		a.cmdNew(args)
	case "import":
		a.cmdImport(args)
	case "list", "ls":
		a.cmdList(args)
	case "rm", "delete":
		a.cmdRemove(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		errorColor.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}

// parseGlobal pulls --store and -v out of args. The environment supplies
// the defaults.
func parseGlobal(args []string) (options, []string) {
	opts := options{storeDir: os.Getenv("FLOW_STORE_DIR")}
	if v, err := strconv.ParseBool(os.Getenv("FLOW_DEBUG")); err == nil {
		opts.verbose = v
	}

	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--store":
			if i+1 < len(args) {
				opts.storeDir = args[i+1]
				i++
			}
		case "-v", "--verbose":
			opts.verbose = true
		default:
			rest = append(rest, args[i])
		}
	}
	if opts.storeDir == "" {
		opts.storeDir = store.DefaultDir()
	}
	return opts, rest
}

func fatalf(format string, args ...any) {
	errorColor.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func (a *app) openStore() *store.Store {
	s, err := store.Open(a.opts.storeDir, store.WithLogger(a.log))
	if err != nil {
		fatalf("Error opening store %s: %v", a.opts.storeDir, err)
	}
	return s
}

// load reads a flowchart from a file, or from the store when no file by
// that name exists.
func (a *app) load(input string) *flow.Flowchart {
	if _, err := os.Stat(input); err == nil {
		f, err := flowfile.ReadFlowFile(input)
		if err != nil {
			fatalf("Error loading %s: %v", input, err)
		}
		if f.Title == "" {
			f.Title = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		}
		return f
	}

	f, err := a.openStore().Get(context.Background(), input)
	if err != nil {
		fatalf("Error loading %s: %v", input, err)
	}
	return f
}

func writeOutput(output string, data []byte) {
	if output == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		fatalf("Error writing %s: %v", output, err)
	}
	successColor.Printf("Written: %s\n", output)
}

func (a *app) cmdRender(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow render <input> [-o output.svg]")
		os.Exit(1)
	}

	input := args[0]
	var output string
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		}
	}

	f := a.load(input)
	writeOutput(output, flowfile.RenderSVG(f.Data.Nodes, f.Data.Connections))
}

// exportKind picks the format: an explicit -f wins, then the output
// extension, then PNG.
func exportKind(format, output string) (flowfile.Kind, error) {
	if format != "" {
		return flowfile.ParseKind(format)
	}
	if ext := filepath.Ext(output); ext != "" {
		return flowfile.ParseKind(ext)
	}
	return flowfile.KindPNG, nil
}

func (a *app) cmdExport(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow export <input> [-f png|svg] [-o output] [--timeout 10s]")
		os.Exit(1)
	}

	input := args[0]
	var format, output string
	timeout := flowfile.DefaultRasterTimeout
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-f", "--format":
			if i+1 < len(args) {
				format = args[i+1]
				i++
			}
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		case "--timeout":
			if i+1 < len(args) {
				d, err := time.ParseDuration(args[i+1])
				if err != nil {
					fatalf("Error: invalid timeout %q: %v", args[i+1], err)
				}
				timeout = d
				i++
			}
		}
	}

	kind, err := exportKind(format, output)
	if err != nil {
		fatalf("Error: %v", err)
	}

	f := a.load(input)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	file, err := flowfile.Export(ctx, f.Title, f.Data.Nodes, f.Data.Connections, kind)
	if err != nil {
		fatalf("Error exporting %s: %v", input, err)
	}
	a.log.Debug("exported", "kind", string(kind), "bytes", len(file.Data), "elapsed", time.Since(start))

	if output == "" {
		output = file.Name
	}
	writeOutput(output, file.Data)
}

func (a *app) cmdThumb(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow thumb <input> [-s size] [-o output.png]")
		os.Exit(1)
	}

	input := args[0]
	var output string
	size := 256
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		case "-s", "--size":
			if i+1 < len(args) {
				n, err := strconv.Atoi(args[i+1])
				if err != nil || n < 1 {
					fatalf("Error: invalid size %q", args[i+1])
				}
				size = n
				i++
			}
		}
	}

	f := a.load(input)
	if output == "" {
		output = flowfile.FileName(f.Title+"-thumb", flowfile.KindPNG)
	}

	out, err := os.Create(output)
	if err != nil {
		fatalf("Error writing %s: %v", output, err)
	}
	err = flowfile.Thumbnail(out, flowfile.Render(f.Data.Nodes, f.Data.Connections), size)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fatalf("Error writing %s: %v", output, err)
	}
	successColor.Printf("Written: %s\n", output)
}

func (a *app) cmdDot(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow dot <input> [-o output] [-t title]")
		os.Exit(1)
	}

	input := args[0]
	var output, title string
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		case "-t", "--title":
			if i+1 < len(args) {
				title = args[i+1]
				i++
			}
		}
	}

	f := a.load(input)
	if title == "" {
		title = f.Title
	}
	writeOutput(output, []byte(flowfile.GenerateDOT(f.Data, title)))
}

func (a *app) cmdInfo(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow info <input>")
		os.Exit(1)
	}
	fmt.Println(infoPanel(a.load(args[0])))
}

func (a *app) cmdValidate(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow validate <input>")
		os.Exit(1)
	}

	input := args[0]
	f := a.load(input)
	report := flow.Validate(f.Data)
	if !report.OK() {
		errorColor.Fprintf(os.Stderr, "Validation failed: %d issue(s)\n", len(report.Issues))
		fmt.Fprintln(os.Stderr, report.String())
		os.Exit(1)
	}

	successColor.Printf("%s: valid, %d nodes, %d connections\n",
		input, len(f.Data.Nodes), len(f.Data.Connections))
}

func (a *app) cmdNew(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow new <title> [-d description]")
		os.Exit(1)
	}

	title := args[0]
	var description string
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-d", "--description":
			if i+1 < len(args) {
				description = args[i+1]
				i++
			}
		}
	}

	f, err := a.openStore().Create(context.Background(), title, description, flow.Diagram{})
	if err != nil {
		fatalf("Error creating flowchart: %v", err)
	}
	successColor.Printf("Created: %s (%s)\n", f.ID, f.Title)
}

func (a *app) cmdImport(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow import <file> [-t title]")
		os.Exit(1)
	}

	input := args[0]
	var title string
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-t", "--title":
			if i+1 < len(args) {
				title = args[i+1]
				i++
			}
		}
	}

	src, err := flowfile.ReadFlowFile(input)
	if err != nil {
		fatalf("Error loading %s: %v", input, err)
	}
	if title == "" {
		title = src.Title
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	}

	f, err := a.openStore().Create(context.Background(), title, src.Description, src.Data)
	if err != nil {
		fatalf("Error importing %s: %v", input, err)
	}
	successColor.Printf("Imported: %s (%s)\n", f.ID, f.Title)
}

func (a *app) cmdList(args []string) {
	charts, err := a.openStore().List(context.Background())
	if err != nil {
		fatalf("Error listing flowcharts: %v", err)
	}
	if len(charts) == 0 {
		fmt.Println("No flowcharts yet")
		return
	}
	fmt.Print(listTable(charts))
}

func (a *app) cmdRemove(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: flow rm <id>...")
		os.Exit(1)
	}

	s := a.openStore()
	failed := false
	for _, id := range args {
		if err := s.Delete(context.Background(), id); err != nil {
			errorColor.Fprintf(os.Stderr, "Error deleting %s: %v\n", id, err)
			failed = true
			continue
		}
		successColor.Printf("Deleted: %s\n", id)
	}
	if failed {
		os.Exit(1)
	}
}
