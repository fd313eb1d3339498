// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package bootimg

import (
	"errors"
	"fmt"
)

// ErrMissingImage is returned when an input image path is not provided.
var ErrMissingImage = errors.New("missing input image")

// ErrAddressRange is returned when the offset or an Intel HEX output would
// extend past the 32-bit address space.
var ErrAddressRange = errors.New("image does not fit in 32-bit address space")

// InputError reports that an input image could not be read.
type InputError struct {
	Image string // label of the image, like "rv32"
	Path  string
	Err   error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("reading %s image %s: %v", e.Image, e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// OverflowError reports that the first image is larger than the offset at
// which the second image must start.
type OverflowError struct {
	Image  string // label of the first image
	Size   int64  // size of the first image
	Offset int64  // start of the second image
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s image is %d bytes (%#x), which overlaps the second image at offset %#x by %d bytes",
		e.Image, e.Size, e.Size, e.Offset, e.Size-e.Offset)
}

// OutputError reports that the merged image could not be written.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }
