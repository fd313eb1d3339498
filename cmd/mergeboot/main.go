// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"go.astrophena.name/bootmerge/bootimg"
	"go.astrophena.name/bootmerge/cli"
)

// Exit codes in addition to the ones defined by cli.
const (
	exitIO     = 3
	exitLayout = 4
)

func main() { cli.Main(new(app)) }

type app struct {
	rv32    string
	cm7     string
	outFile string
	offset  string
	base    string
	format  bootimg.Format
	config  string

	flags *flag.FlagSet
}

func (a *app) Flags(f *flag.FlagSet) {
	f.StringVar(&a.rv32, "rv32", "", "RV32 image `file` (required).")
	f.StringVar(&a.cm7, "cm7", "", "CM7 image `file` (required).")
	f.StringVar(&a.outFile, "out-file", bootimg.DefaultOutput, "Output `file`.")
	f.StringVar(&a.offset, "offset", "0x"+strconv.FormatInt(bootimg.DefaultOffset, 16), "Offset of the CM7 image, as an integer or a size like 3MiB.")
	f.StringVar(&a.base, "base", "0", "Load `address` of the image in Intel HEX output.")
	f.Var(&a.format, "format", "Output format: bin or ihex.")
	f.StringVar(&a.config, "config", "", "Read settings from TOML `file`.")
	a.flags = f
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if len(env.Args) > 0 {
		return fmt.Errorf("%w: unexpected arguments %q", cli.ErrInvalidArgs, env.Args)
	}

	m, out, err := a.merger()
	if err != nil {
		return err
	}

	if a.rv32 == "" {
		return fmt.Errorf("%w: --rv32 is required", cli.ErrInvalidArgs)
	}
	if a.cm7 == "" {
		return fmt.Errorf("%w: --cm7 is required", cli.ErrInvalidArgs)
	}

	return classify(m.MergeFiles(ctx, out, a.rv32, a.cm7))
}

// merger builds the merge settings from defaults, the config file and flags,
// in increasing order of precedence.
func (a *app) merger() (*bootimg.Merger, string, error) {
	set := make(map[string]bool)
	if a.flags != nil {
		a.flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
	}

	offset, err := bootimg.ParseOffset(a.offset)
	if err != nil {
		return nil, "", fmt.Errorf("%w: --offset: %v", cli.ErrInvalidArgs, err)
	}
	base, err := parseAddress(a.base)
	if err != nil {
		return nil, "", fmt.Errorf("%w: --base: %v", cli.ErrInvalidArgs, err)
	}
	format := a.format
	out := a.outFile

	if a.config != "" {
		cfg, err := loadConfig(a.config)
		if err != nil {
			return nil, "", err
		}
		if cfg.defined("offset") && !set["offset"] {
			offset = int64(cfg.Offset)
		}
		if cfg.defined("base") && !set["base"] {
			if cfg.Base > math.MaxUint32 {
				return nil, "", fmt.Errorf("%w: %s: base %#x does not fit in 32 bits", cli.ErrInvalidArgs, a.config, int64(cfg.Base))
			}
			base = uint32(cfg.Base)
		}
		if cfg.defined("format") && !set["format"] {
			format = cfg.Format
		}
		if cfg.defined("out_file") && !set["out-file"] {
			out = cfg.OutFile
		}
	}

	if offset == 0 {
		return nil, "", fmt.Errorf("%w: offset must be greater than zero", cli.ErrInvalidArgs)
	}
	if out == "" {
		return nil, "", fmt.Errorf("%w: output file must not be empty", cli.ErrInvalidArgs)
	}

	return &bootimg.Merger{
		Offset: offset,
		Format: format,
		Base:   base,
		Labels: [2]string{"rv32", "cm7"},
	}, out, nil
}

func parseAddress(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint32(n), nil
}

// sizeValue is an offset or address in a config file, given either as a TOML
// integer or as a string accepted by bootimg.ParseOffset.
type sizeValue int64

func (v *sizeValue) UnmarshalText(text []byte) error {
	n, err := bootimg.ParseOffset(string(text))
	if err != nil {
		return err
	}
	*v = sizeValue(n)
	return nil
}

type config struct {
	Offset  sizeValue      `toml:"offset"`
	Base    sizeValue      `toml:"base"`
	Format  bootimg.Format `toml:"format"`
	OutFile string         `toml:"out_file"`

	md toml.MetaData
}

func (c *config) defined(key string) bool { return c.md.IsDefined(key) }

func loadConfig(path string) (*config, error) {
	cfg := new(config)
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, cli.WithExitCode(exitIO, fmt.Errorf("reading config: %w", err))
		}
		return nil, fmt.Errorf("%w: %s: %v", cli.ErrInvalidArgs, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: %s: unknown keys %q", cli.ErrInvalidArgs, path, undecoded)
	}
	cfg.md = md
	return cfg, nil
}

// classify attaches exit codes to merge errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var (
		ie *bootimg.InputError
		oe *bootimg.OutputError
		ov *bootimg.OverflowError
	)
	switch {
	case errors.As(err, &ov), errors.Is(err, bootimg.ErrAddressRange):
		return cli.WithExitCode(exitLayout, err)
	case errors.As(err, &ie), errors.As(err, &oe):
		return cli.WithExitCode(exitIO, err)
	case errors.Is(err, bootimg.ErrMissingImage):
		return fmt.Errorf("%w: %w", cli.ErrInvalidArgs, err)
	}
	return err
}
