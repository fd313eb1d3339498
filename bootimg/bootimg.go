// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package bootimg merges two program images into a single boot image.
//
// The first image is placed at offset zero and the second one at a fixed
// absolute offset, with zero bytes in between:
//
//	[0, len(A))             image A
//	[len(A), Offset)        zero padding
//	[Offset, Offset+len(B)) image B
//
// The result has no header or metadata. It is used to bootstrap simulations
// that load an RV32 image and a CM7 image from one memory blob.
package bootimg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/docker/go-units"
	"github.com/natefinch/atomic"

	"go.astrophena.name/bootmerge/logger"
)

const (
	// DefaultOffset is where the second image starts.
	DefaultOffset = 0x30_0000
	// DefaultOutput is the default name of the merged image.
	DefaultOutput = "boot.bin"
	// MaxOffset is the largest accepted offset: the end of the 32-bit
	// address space both cores load their images from.
	MaxOffset = 1 << 32
)

// Layout returns image a followed by zero bytes up to offset, followed by
// image b. It returns an [*OverflowError] if a is longer than offset, and an
// error wrapping [ErrAddressRange] if offset is larger than [MaxOffset].
func Layout(a, b []byte, offset int64) ([]byte, error) {
	if err := checkLayout("first", int64(len(a)), offset); err != nil {
		return nil, err
	}
	out := make([]byte, offset+int64(len(b)))
	copy(out, a)
	copy(out[offset:], b)
	return out, nil
}

func checkLayout(label string, size, offset int64) error {
	if offset < 0 {
		return fmt.Errorf("negative offset %d", offset)
	}
	if offset > MaxOffset {
		return fmt.Errorf("%w: offset %#x is past %#x", ErrAddressRange, offset, int64(MaxOffset))
	}
	if size > offset {
		return &OverflowError{Image: label, Size: size, Offset: offset}
	}
	return nil
}

// Merger merges images with a fixed layout.
type Merger struct {
	// Offset is where the second image starts. If zero, DefaultOffset is used.
	Offset int64
	// Format is the encoding of the output. The zero value is FormatBinary.
	Format Format
	// Base is the load address of the image in FormatIntelHex output.
	Base uint32
	// Labels name images A and B in errors and logs. Empty labels default to
	// "first" and "second".
	Labels [2]string
}

func (m *Merger) offset() int64 {
	if m.Offset == 0 {
		return DefaultOffset
	}
	return m.Offset
}

func (m *Merger) label(i int) string {
	if m.Labels[i] != "" {
		return m.Labels[i]
	}
	if i == 0 {
		return "first"
	}
	return "second"
}

// Merge writes the merged image of a and b to w and returns the number of
// bytes written. Nothing is written if the layout is invalid.
func (m *Merger) Merge(w io.Writer, a, b []byte) (int64, error) {
	offset := m.offset()
	if err := checkLayout(m.label(0), int64(len(a)), offset); err != nil {
		return 0, err
	}

	cw := &countingWriter{w: w}
	switch m.Format {
	case FormatBinary:
		if _, err := cw.Write(a); err != nil {
			return cw.n, err
		}
		if err := writeZeros(cw, offset-int64(len(a))); err != nil {
			return cw.n, err
		}
		if _, err := cw.Write(b); err != nil {
			return cw.n, err
		}
	case FormatIntelHex:
		if err := checkAddressRange(m.Base, offset+int64(len(b))); err != nil {
			return 0, err
		}
		blob, err := Layout(a, b, offset)
		if err != nil {
			return 0, err
		}
		if err := writeIntelHex(cw, blob, m.Base); err != nil {
			return cw.n, err
		}
	default:
		return 0, fmt.Errorf("unsupported format %v", m.Format)
	}
	return cw.n, nil
}

// MergeFiles reads images from pathA and pathB, merges them and writes the
// result to dst, replacing any existing file.
//
// Both inputs are read completely and the layout is validated before dst is
// touched. The output is written to a temporary file and renamed over dst,
// so a failed merge never leaves a partial image behind.
func (m *Merger) MergeFiles(ctx context.Context, dst, pathA, pathB string) error {
	for i, p := range []string{pathA, pathB} {
		if p == "" {
			return fmt.Errorf("%w: no path for %s image", ErrMissingImage, m.label(i))
		}
	}
	if dst == "" {
		dst = DefaultOutput
	}

	a, err := m.readImage(ctx, 0, pathA)
	if err != nil {
		return err
	}
	b, err := m.readImage(ctx, 1, pathB)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	n, err := m.Merge(&buf, a, b)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(dst)
	created := errors.Is(statErr, fs.ErrNotExist)
	if err := atomic.WriteFile(dst, &buf); err != nil {
		return &OutputError{Path: dst, Err: err}
	}
	if created {
		// Temporary files are created with mode 0600.
		if err := os.Chmod(dst, 0o644); err != nil {
			return &OutputError{Path: dst, Err: err}
		}
	}

	logger.Debug(ctx, "wrote boot image",
		slog.String("path", dst),
		slog.String("format", m.Format.String()),
		slog.String("size", units.BytesSize(float64(n))),
		slog.Int64("padding", m.offset()-int64(len(a))),
		slog.String("offset", fmt.Sprintf("%#x", m.offset())),
	)
	return nil
}

func (m *Merger) readImage(ctx context.Context, i int, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InputError{Image: m.label(i), Path: path, Err: err}
	}
	logger.Debug(ctx, "read image",
		slog.String("image", m.label(i)),
		slog.String("path", path),
		slog.String("size", units.BytesSize(float64(len(data)))),
	)
	return data, nil
}

var zeros [32 << 10]byte

func writeZeros(w io.Writer, n int64) error {
	for n > 0 {
		chunk := min(n, int64(len(zeros)))
		if _, err := w.Write(zeros[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
