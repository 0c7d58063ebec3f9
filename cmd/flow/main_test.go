package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
	"github.com/ha1tch/flowchart-toolkit/pkg/flowfile"
)

func TestParseGlobal(t *testing.T) {
	t.Setenv("FLOW_STORE_DIR", "/from/env")
	t.Setenv("FLOW_DEBUG", "")

	opts, rest := parseGlobal([]string{"export", "a.flow", "-v", "-f", "svg"})
	assert.Equal(t, "/from/env", opts.storeDir)
	assert.True(t, opts.verbose)
	assert.Equal(t, []string{"export", "a.flow", "-f", "svg"}, rest)

	opts, rest = parseGlobal([]string{"--store", "/flag", "list"})
	assert.Equal(t, "/flag", opts.storeDir)
	assert.False(t, opts.verbose)
	assert.Equal(t, []string{"list"}, rest)
}

func TestParseGlobalEnvDebug(t *testing.T) {
	t.Setenv("FLOW_STORE_DIR", "")
	t.Setenv("FLOW_DEBUG", "true")

	opts, _ := parseGlobal(nil)
	assert.True(t, opts.verbose)
	assert.NotEmpty(t, opts.storeDir)
}

func TestExportKind(t *testing.T) {
	tests := []struct {
		format, output string
		want           flowfile.Kind
	}{
		{"", "", flowfile.KindPNG},
		{"", "out.svg", flowfile.KindSVG},
		{"png", "out.svg", flowfile.KindPNG},
		{"SVG", "", flowfile.KindSVG},
	}
	for _, tt := range tests {
		got, err := exportKind(tt.format, tt.output)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "format %q output %q", tt.format, tt.output)
	}

	_, err := exportKind("", "out.gif")
	assert.ErrorIs(t, err, flowfile.ErrUnknownKind)
}

func TestInfoPanel(t *testing.T) {
	f := &flow.Flowchart{
		ID:    "17",
		Title: "Заказ",
		Data: flow.Diagram{
			Nodes: []flow.Node{
				{ID: "a", Type: flow.TypeStart, X: 0, Y: 0},
				{ID: "b", Type: flow.TypeProcess, X: 200, Y: 0},
			},
			Connections: []flow.Connection{{ID: "c", From: "a", To: "ghost"}},
		},
		UpdatedAt: time.Date(2024, 2, 3, 4, 5, 0, 0, time.UTC),
	}

	out := infoPanel(f)
	assert.Contains(t, out, "Заказ")
	assert.Contains(t, out, "17")
	assert.Contains(t, out, "start")
	assert.Contains(t, out, "420x180")
	assert.Contains(t, out, "Issues")
	assert.Contains(t, out, "Updated")
	assert.NotContains(t, out, "Created")
}

func TestListTable(t *testing.T) {
	charts := []flow.Flowchart{
		{ID: "2", Title: "newer", Data: flow.Diagram{Nodes: []flow.Node{{ID: "a"}}}},
		{ID: "1", Title: "older"},
	}
	lines := strings.Split(strings.TrimRight(listTable(charts), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "TITLE")
	assert.Contains(t, lines[1], "newer")
	assert.Contains(t, lines[2], "older")
}
