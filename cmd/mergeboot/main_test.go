// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"errors"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/marcinbor85/gohex"

	"go.astrophena.name/bootmerge/bootimg"
	"go.astrophena.name/bootmerge/cli"
	"go.astrophena.name/bootmerge/cli/clitest"
	"go.astrophena.name/bootmerge/testutil"
)

var (
	rv32Image = []byte{0x01, 0x02, 0x03, 0x04}
	cm7Image  = []byte{0xAA, 0xBB}
	// rv32Image, 12 zero bytes, cm7Image.
	mergedAt16 = []byte{
		0x01, 0x02, 0x03, 0x04,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0xAA, 0xBB,
	}
)

func wantOutput(path string, want []byte) func(*testing.T, *app) {
	return func(t *testing.T, _ *app) {
		testutil.AssertBytesEqual(t, testutil.ReadFile(t, path), want)
	}
}

func wantNoFile(path string) func(*testing.T, *app) {
	return func(t *testing.T, _ *app) {
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("%s must not exist, stat error: %v", path, err)
		}
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	rv32 := testutil.WriteFile(t, dir, "rv32.bin", rv32Image)
	cm7 := testutil.WriteFile(t, dir, "cm7.bin", cm7Image)
	big := testutil.WriteFile(t, dir, "big.bin", make([]byte, 32))
	out := func(name string) string { return filepath.Join(dir, name) }

	hexConfig := testutil.WriteFile(t, dir, "hex.toml", []byte(`
offset = 0x10
format = "ihex"
base = "0x1000"
out_file = "`+filepath.ToSlash(out("from-config.hex"))+`"
`))
	sizeConfig := testutil.WriteFile(t, dir, "size.toml", []byte(`offset = "8"`+"\n"))
	badConfig := testutil.WriteFile(t, dir, "bad.toml", []byte("offset = 16\nfill = 255\n"))

	cases := map[string]clitest.Case[*app]{
		"merges at offset": {
			Args:               []string{"--rv32", rv32, "--cm7", cm7, "--offset", "16", "--out-file", out("a.bin")},
			WantNothingPrinted: true,
			CheckFunc:          wantOutput(out("a.bin"), mergedAt16),
		},
		"single dash flags": {
			Args:      []string{"-rv32", rv32, "-cm7", cm7, "-offset", "0x10", "-out-file", out("b.bin")},
			CheckFunc: wantOutput(out("b.bin"), mergedAt16),
		},
		"first image exactly at offset": {
			Args:      []string{"--rv32", rv32, "--cm7", cm7, "--offset", "4", "--out-file", out("c.bin")},
			CheckFunc: wantOutput(out("c.bin"), []byte{0x01, 0x02, 0x03, 0x04, 0xAA, 0xBB}),
		},
		"verbose": {
			Args:         []string{"-v", "--rv32", rv32, "--cm7", cm7, "--offset", "16", "--out-file", out("d.bin")},
			WantInStderr: "wrote boot image",
			CheckFunc:    wantOutput(out("d.bin"), mergedAt16),
		},
		"missing cm7": {
			Args:         []string{"--rv32", rv32, "--out-file", out("e.bin")},
			WantErr:      cli.ErrInvalidArgs,
			WantExitCode: cli.ExitInvalidArgs,
			CheckFunc:    wantNoFile(out("e.bin")),
		},
		"missing rv32": {
			Args:         []string{"--cm7", cm7, "--out-file", out("f.bin")},
			WantErr:      cli.ErrInvalidArgs,
			WantExitCode: cli.ExitInvalidArgs,
		},
		"unreadable input": {
			Args:         []string{"--rv32", out("nope.bin"), "--cm7", cm7, "--out-file", out("g.bin")},
			WantErrType:  &bootimg.InputError{},
			WantExitCode: exitIO,
			CheckFunc:    wantNoFile(out("g.bin")),
		},
		"first image overflows offset": {
			Args:         []string{"--rv32", big, "--cm7", cm7, "--offset", "16", "--out-file", out("h.bin")},
			WantErrType:  &bootimg.OverflowError{},
			WantExitCode: exitLayout,
			CheckFunc:    wantNoFile(out("h.bin")),
		},
		"invalid offset": {
			Args:         []string{"--rv32", rv32, "--cm7", cm7, "--offset", "far away"},
			WantErr:      cli.ErrInvalidArgs,
			WantExitCode: cli.ExitInvalidArgs,
		},
		"offset past address space": {
			Args:         []string{"--rv32", rv32, "--cm7", cm7, "--offset", "0x7fffffffffffffff", "--format", "ihex", "--out-file", out("huge.hex")},
			WantErr:      cli.ErrInvalidArgs,
			WantExitCode: cli.ExitInvalidArgs,
			CheckFunc:    wantNoFile(out("huge.hex")),
		},
		"zero offset": {
			Args:         []string{"--rv32", rv32, "--cm7", cm7, "--offset", "0"},
			WantErr:      cli.ErrInvalidArgs,
			WantExitCode: cli.ExitInvalidArgs,
		},
		"unknown format": {
			Args:         []string{"--rv32", rv32, "--cm7", cm7, "--format", "elf"},
			WantExitCode: cli.ExitInvalidArgs,
			WantInStderr: "unknown output format",
		},
		"positional arguments": {
			Args:         []string{"--rv32", rv32, "--cm7", cm7, "extra"},
			WantErr:      cli.ErrInvalidArgs,
			WantExitCode: cli.ExitInvalidArgs,
		},
		"config file": {
			Args: []string{"--rv32", rv32, "--cm7", cm7, "--config", hexConfig},
			CheckFunc: func(t *testing.T, _ *app) {
				mem := gohex.NewMemory()
				if err := mem.ParseIntelHex(bytes.NewReader(testutil.ReadFile(t, out("from-config.hex")))); err != nil {
					t.Fatalf("ParseIntelHex(): %v", err)
				}
				testutil.AssertBytesEqual(t, mem.ToBinary(0x1000, uint32(len(mergedAt16)), 0xff), mergedAt16)
			},
		},
		"flags override config": {
			Args:      []string{"--rv32", rv32, "--cm7", cm7, "--config", sizeConfig, "--offset", "16", "--out-file", out("i.bin")},
			CheckFunc: wantOutput(out("i.bin"), mergedAt16),
		},
		"config overrides defaults": {
			Args:      []string{"--rv32", rv32, "--cm7", cm7, "--config", sizeConfig, "--out-file", out("j.bin")},
			CheckFunc: wantOutput(out("j.bin"), []byte{0x01, 0x02, 0x03, 0x04, 0, 0, 0, 0, 0xAA, 0xBB}),
		},
		"config with unknown key": {
			Args:         []string{"--rv32", rv32, "--cm7", cm7, "--config", badConfig},
			WantErr:      cli.ErrInvalidArgs,
			WantExitCode: cli.ExitInvalidArgs,
		},
		"missing config file": {
			Args:         []string{"--rv32", rv32, "--cm7", cm7, "--config", out("nope.toml")},
			WantErr:      fs.ErrNotExist,
			WantExitCode: exitIO,
		},
		"help": {
			Args:         []string{"-h"},
			WantErr:      flag.ErrHelp,
			WantInStderr: "Mergeboot merges an RV32 and a CM7 program image",
		},
	}

	clitest.Run(t, func(*testing.T) *app { return new(app) }, cases)
}

func TestRunDefaults(t *testing.T) {
	rv32 := make([]byte, 1024)
	for i := range rv32 {
		rv32[i] = byte(i)
	}

	setup := func(t *testing.T) *app {
		dir := t.TempDir()
		t.Chdir(dir)
		testutil.WriteFile(t, dir, "rv32.bin", rv32)
		testutil.WriteFile(t, dir, "cm7.bin", cm7Image)
		return new(app)
	}

	clitest.Run(t, setup, map[string]clitest.Case[*app]{
		"writes boot.bin at 0x300000": {
			Args:               []string{"--rv32", "rv32.bin", "--cm7", "cm7.bin"},
			WantNothingPrinted: true,
			CheckFunc: func(t *testing.T, _ *app) {
				got := testutil.ReadFile(t, bootimg.DefaultOutput)
				testutil.AssertEqual(t, len(got), 0x300000+len(cm7Image))
				testutil.AssertBytesEqual(t, got[:len(rv32)], rv32)
				testutil.AssertBytesEqual(t, got[len(rv32):0x300000], make([]byte, 0x300000-len(rv32)))
				testutil.AssertBytesEqual(t, got[0x300000:], cm7Image)
			},
		},
	})
}
