// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/go4org/hashtriemap"
	"github.com/hashicorp/go-multierror"
	"github.com/natefinch/atomic"

	"go.astrophena.name/bootmerge/cli"
	"go.astrophena.name/bootmerge/syncx"
	"go.astrophena.name/bootmerge/txtar"
)

// configPath is the location of the config archive, relative to the root.
const configPath = ".devtools/config.txtar"

const crossbarHeader = `// (c) Copyright CrossBar, Inc. 2024.
//
// This documentation describes Open Hardware and is licensed under the
// [CERN-OHL-W-2.0].
//
// You may redistribute and modify this documentation under the terms of the
// [CERN-OHL- W-2.0 (http://ohwr.org/cernohl)]. This documentation is
// distributed WITHOUT ANY EXPRESS OR IMPLIED WARRANTY, INCLUDING OF
// MERCHANTABILITY, SATISFACTORY QUALITY AND FITNESS FOR A PARTICULAR PURPOSE.
// Please see the [CERN-OHL- W-2.0] for applicable conditions.
`

const crossbarMarker = "Copyright CrossBar, Inc. 2024."

// rule describes the header for files with one extension.
type rule struct {
	template string // the first %d is replaced by the year
	marker   string // presence anywhere in a file means it has a header
}

func (r rule) header(year int) string {
	hdr := strings.Replace(r.template, "%d", strconv.Itoa(year), 1)
	if !strings.HasSuffix(hdr, "\n") {
		hdr += "\n"
	}
	return hdr
}

type config struct {
	exclusions []string
	rules      map[string]rule
}

func defaultConfig() *config {
	r := rule{template: crossbarHeader, marker: crossbarMarker}
	return &config{
		rules: map[string]rule{
			".v":  r,
			".sv": r,
			".rs": r,
		},
	}
}

func (cfg *config) isExcluded(path string) bool {
	path = filepath.ToSlash(path)
	for _, ex := range cfg.exclusions {
		if strings.HasSuffix(path, ex) {
			return true
		}
	}
	return false
}

// parseConfig reads the config archive under root. Without one, the built-in
// rules are used.
func parseConfig(root string) (*config, error) {
	ar, err := txtar.ParseFile(filepath.Join(root, filepath.FromSlash(configPath)))
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := &config{rules: make(map[string]rule)}
	templates := make(map[string]string)
	markers := make(map[string]string)
	for _, f := range ar.Files {
		if path.Dir(f.Name) != "copyright" {
			continue
		}
		name := path.Base(f.Name)
		ext := path.Ext(name)
		switch {
		case name == "exclusions.json":
			if err := json.Unmarshal(f.Data, &cfg.exclusions); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", configPath, f.Name, err)
			}
		case strings.HasPrefix(name, "template."):
			templates[ext] = string(f.Data)
		case strings.HasPrefix(name, "marker."):
			markers[ext] = strings.TrimSpace(string(f.Data))
		}
	}

	for ext, tmpl := range templates {
		marker, ok := markers[ext]
		if !ok {
			// The first line of the header identifies it.
			marker, _, _ = strings.Cut(strings.TrimSpace(tmpl), "\n")
		}
		if marker == "" {
			return nil, fmt.Errorf("%s: empty marker for %s files", configPath, ext)
		}
		cfg.rules[ext] = rule{template: tmpl, marker: marker}
	}
	for ext := range markers {
		if _, ok := templates[ext]; !ok {
			return nil, fmt.Errorf("%s: marker for %s files has no template", configPath, ext)
		}
	}
	return cfg, nil
}

func main() { cli.Main(new(app)) }

type app struct {
	dry bool
}

func (a *app) Flags(f *flag.FlagSet) {
	f.BoolVar(&a.dry, "dry", false, "Print the files that would have a copyright header added, without making changes.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	root := "."
	switch len(env.Args) {
	case 0:
	case 1:
		root = env.Args[0]
	default:
		return fmt.Errorf("%w: at most one directory may be given", cli.ErrInvalidArgs)
	}

	cfg, err := parseConfig(root)
	if err != nil {
		return err
	}

	var (
		lwg     = syncx.NewLimitedWaitGroup(runtime.GOMAXPROCS(0))
		errs    = syncx.Protect(new(multierror.Error))
		updated hashtriemap.HashTrieMap[string, string] // path → added header
	)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || cfg.isExcluded(path) {
			return nil
		}
		r, ok := cfg.rules[filepath.Ext(path)]
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		lwg.Go(func() {
			hdr, err := a.addHeader(path, r)
			if err != nil {
				errs.WriteAccess(func(me *multierror.Error) {
					me.Errors = append(me.Errors, err)
				})
				return
			}
			if hdr != "" {
				updated.Store(path, hdr)
			}
		})
		return nil
	})
	lwg.Wait()

	type change struct{ path, header string }
	var changes []change
	updated.Range(func(path, hdr string) bool {
		changes = append(changes, change{path, hdr})
		return true
	})
	slices.SortFunc(changes, func(x, y change) int { return cmp.Compare(x.path, y.path) })
	for _, c := range changes {
		if a.dry {
			env.Logf("Would add copyright header to file %s:\n%s", c.path, c.header)
			continue
		}
		env.Logf("Updating %s with license header...", c.path)
	}

	var result *multierror.Error
	errs.ReadAccess(func(me *multierror.Error) { result = me })
	if walkErr != nil {
		result = multierror.Append(result, walkErr)
	}
	return result.ErrorOrNil()
}

// addHeader prepends the header of r to the file at path, followed by an
// empty line, unless the file already contains the marker. It returns the
// added header, or an empty string if the file was left alone.
func (a *app) addHeader(path string, r rule) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	if bytes.Contains(content, []byte(r.marker)) {
		return "", nil
	}

	hdr := r.header(info.ModTime().Year())
	if a.dry {
		return hdr, nil
	}

	body := io.MultiReader(strings.NewReader(hdr+"\n"), bytes.NewReader(content))
	if err := atomic.WriteFile(path, body); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return hdr, nil
}
