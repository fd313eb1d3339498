// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package logger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"go.astrophena.name/bootmerge/testutil"
)

func TestLogfWriter(t *testing.T) {
	var (
		logged  bool
		message string
	)
	logf := func(format string, args ...any) {
		logged = true
		message = fmt.Sprintf(format, args...)
	}
	Logf(logf).Write([]byte("hello\n"))
	testutil.AssertEqual(t, logged, true)
	testutil.AssertEqual(t, message, "hello")
}

func TestAttachDetach(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	l := New(nil)
	h1 := slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: l.Level})
	h2 := slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: l.Level})
	l.Attach(h1)
	l.Attach(h2)

	ctx := Put(context.Background(), l)
	Info(ctx, "first")
	l.Detach(h2)
	Info(ctx, "second")
	Debug(ctx, "hidden")

	testutil.AssertEqual(t, strings.Count(buf1.String(), "msg="), 2)
	testutil.AssertEqual(t, strings.Count(buf2.String(), "msg="), 1)
	if strings.Contains(buf1.String(), "hidden") {
		t.Errorf("debug message logged at info level: %q", buf1.String())
	}

	LevelVar(ctx).Set(slog.LevelDebug)
	Debug(ctx, "visible")
	if !strings.Contains(buf1.String(), "visible") {
		t.Errorf("debug message not logged after level change: %q", buf1.String())
	}
}

func TestGetDefault(t *testing.T) {
	l := Get(context.Background())
	testutil.AssertEqual(t, IsDefault(l), true)
	// Must not panic or print anything.
	Error(context.Background(), "discarded")
}
