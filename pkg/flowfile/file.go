package flowfile

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

// Extension is the file extension of saved flowcharts.
const Extension = ".flow"

// WriteFlowFile writes a flowchart to a .flow file. The data goes to a
// temporary file in the same directory first and is renamed into place,
// so a crash never leaves a half-written chart behind.
func WriteFlowFile(path string, f *flow.Flowchart) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".flow-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteFlow(tmp, f); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteFlow writes a flowchart to a writer in .flow format.
func WriteFlow(w io.Writer, f *flow.Flowchart) error {
	data, err := ToJSON(f, true)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// ReadFlowFile reads a flowchart from a .flow (or plain .json) file.
func ReadFlowFile(path string) (*flow.Flowchart, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadFlow(file)
}

// ReadFlow reads a flowchart from a reader containing .flow format.
func ReadFlow(r io.Reader) (*flow.Flowchart, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid flowchart: %w", err)
	}
	return f, nil
}
