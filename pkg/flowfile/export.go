package flowfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ha1tch/flowchart-toolkit/pkg/flow"
)

// Kind is an export output format.
type Kind string

const (
	KindSVG Kind = "svg"
	KindPNG Kind = "png"
)

// DefaultRasterTimeout bounds PNG encoding when the caller's context has no
// deadline of its own.
const DefaultRasterTimeout = 10 * time.Second

var (
	// ErrUnknownKind is returned for an export format other than svg or png.
	ErrUnknownKind = errors.New("unknown export format")
	// ErrExportTimeout is returned when raster encoding does not finish in time.
	ErrExportTimeout = errors.New("export timed out")
)

// ParseKind accepts "svg" or "png" in any case, with or without a dot.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case KindSVG:
		return KindSVG, nil
	case KindPNG:
		return KindPNG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MIME returns the media type of the format.
func (k Kind) MIME() string {
	switch k {
	case KindSVG:
		return "image/svg+xml"
	case KindPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// File is a finished export ready to be written or downloaded.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Export renders a diagram and encodes it as kind. The file is named after
// title. PNG output is rasterized at RasterScale on a separate goroutine
// and abandoned with ErrExportTimeout if ctx ends first.
func Export(ctx context.Context, title string, nodes []flow.Node, conns []flow.Connection, kind Kind) (File, error) {
	scene := Render(nodes, conns)
	name := FileName(title, kind)

	switch kind {
	case KindSVG:
		var buf bytes.Buffer
		if err := EncodeSVG(&buf, scene); err != nil {
			return File{}, err
		}
		return File{Name: name, MIME: kind.MIME(), Data: buf.Bytes()}, nil
	case KindPNG:
		data, err := encodePNGAsync(ctx, scene)
		if err != nil {
			return File{}, err
		}
		return File{Name: name, MIME: kind.MIME(), Data: data}, nil
	}
	return File{}, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
}

// encodePNG is swapped out by tests that need a slow or failing encoder.
var encodePNG = EncodePNG

type encodeResult struct {
	data []byte
	err  error
}

func encodePNGAsync(ctx context.Context, scene *Scene) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultRasterTimeout)
		defer cancel()
	}

	if ctx.Err() != nil {
		return nil, exportCtxErr(ctx)
	}

	encode := encodePNG
	done := make(chan encodeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- encodeResult{err: fmt.Errorf("png encoding failed: %v", r)}
			}
		}()
		var buf bytes.Buffer
		err := encode(&buf, scene, RasterScale)
		done <- encodeResult{data: buf.Bytes(), err: err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, exportCtxErr(ctx)
	}
}

func exportCtxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrExportTimeout, ctx.Err())
	}
	return ctx.Err()
}

// FileName builds "<title>.<kind>" with characters that are unsafe in file
// names replaced. An empty title becomes "flowchart".
func FileName(title string, kind Kind) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		}
		return r
	}, title)
	clean = strings.Trim(strings.TrimSpace(clean), ".")
	if clean == "" {
		clean = "flowchart"
	}
	return clean + "." + string(kind)
}
