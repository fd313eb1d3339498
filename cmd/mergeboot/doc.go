// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Mergeboot merges an RV32 and a CM7 program image into one boot image for
simulation.

The RV32 image is written at offset zero, followed by zero bytes up to the
CM7 offset (0x300000 by default), followed by the CM7 image:

	mergeboot --rv32 rv32.bin --cm7 cm7.bin --out-file boot.bin

The output is replaced atomically: if anything fails, an existing output file
is left as it was and no partial file is created. An RV32 image that is
larger than the offset is rejected.

With --format ihex the same image is written as Intel HEX records, loaded at
the address given by --base.

Settings can also be read from a TOML file passed with --config:

	offset = 0x300000   # or "3MiB"
	out_file = "boot.bin"
	format = "bin"
	base = 0

Flags given on the command line take precedence over the file.

Exit codes:

	0  success
	1  unexpected error
	2  invalid arguments or configuration
	3  an input image could not be read or the output could not be written
	4  the RV32 image does not fit below the CM7 offset
*/
package main

import (
	_ "embed"

	"go.astrophena.name/bootmerge/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
