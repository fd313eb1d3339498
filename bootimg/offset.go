// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package bootimg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

// ParseOffset parses an offset given either as a Go integer literal
// ("0x300000", "0x30_0000", "3145728") or as a binary size ("3MiB", "3m").
// Negative offsets and offsets past [MaxOffset] are rejected.
func ParseOffset(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty offset")
	}
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		n, err = units.RAMInBytes(s)
		if err != nil {
			return 0, fmt.Errorf("invalid offset %q: want an integer like 0x300000 or a size like 3MiB", s)
		}
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid offset %q: must not be negative", s)
	}
	if n > MaxOffset {
		return 0, fmt.Errorf("invalid offset %q: must not exceed %#x", s, int64(MaxOffset))
	}
	return n, nil
}
