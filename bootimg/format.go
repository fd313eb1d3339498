// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package bootimg

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/marcinbor85/gohex"
)

// Format is the encoding of the merged image.
type Format int

const (
	// FormatBinary is a flat binary blob with no header or metadata.
	FormatBinary Format = iota
	// FormatIntelHex is the same blob encoded as Intel HEX records, loaded at
	// [Merger.Base].
	FormatIntelHex
)

// ihexLineLength is the number of data bytes per Intel HEX record.
const ihexLineLength = 16

// ParseFormat parses a format name: "bin" (or "binary", "raw") and "ihex"
// (or "hex").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bin", "binary", "raw":
		return FormatBinary, nil
	case "ihex", "hex":
		return FormatIntelHex, nil
	}
	return 0, fmt.Errorf("unknown output format %q (want bin or ihex)", s)
}

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "bin"
	case FormatIntelHex:
		return "ihex"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Set implements [flag.Value].
func (f *Format) Set(s string) error {
	v, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (f *Format) UnmarshalText(text []byte) error { return f.Set(string(text)) }

// MarshalText implements [encoding.TextMarshaler].
func (f Format) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// checkAddressRange returns an error wrapping [ErrAddressRange] unless size
// bytes loaded at base stay inside the 32-bit address space.
func checkAddressRange(base uint32, size int64) error {
	if size < 0 || uint64(base)+uint64(size) > math.MaxUint32+1 {
		return fmt.Errorf("%w: %d bytes at %#x", ErrAddressRange, size, base)
	}
	return nil
}

func writeIntelHex(w io.Writer, blob []byte, base uint32) error {
	if err := checkAddressRange(base, int64(len(blob))); err != nil {
		return err
	}
	mem := gohex.NewMemory()
	if len(blob) > 0 {
		if err := mem.AddBinary(base, blob); err != nil {
			return err
		}
	}
	return mem.DumpIntelHex(w, ihexLineLength)
}
