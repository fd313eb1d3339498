// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Addcopyright adds a license header to source files that don't have one.

It recursively walks the given directory (the current directory by default),
skipping .git, and checks each file whose extension has a header rule. If the
file does not contain the rule's marker anywhere, the header and an empty line
are prepended to it. Running the tool again leaves updated files alone.

Without configuration, .v, .sv and .rs files get the CrossBar CERN-OHL-W-2.0
header, recognized by the marker "Copyright CrossBar, Inc. 2024.".

Rules can be configured through a .devtools/config.txtar file in the walked
directory. This file is a txtar archive and can contain the following files,
which replace the built-in rules:

  - copyright/exclusions.json: A JSON array of path suffixes to exclude from
    processing.
  - copyright/template.{ext}: The header for files with extension ext (e.g.,
    template.sv). The first %d in the template is replaced by the year the
    file was last modified; any other text, including %, is kept as is.
  - copyright/marker.{ext}: A string that identifies an existing header in
    files with extension ext. If a file contains this string, it's considered
    to already have a header. Defaults to the first line of the template.

Each updated file is reported on standard error.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/bootmerge/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
