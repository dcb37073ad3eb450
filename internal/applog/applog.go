/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package applog provides the manager's structured logger, a thin wrapper
// around hclog with a colorized console writer for warnings and errors.
package applog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	hclog "github.com/hashicorp/go-hclog"
)

// Logger is the logging surface every component receives at construction time,
// never a process-global. Every package takes one as a constructor argument
// instead of reaching for a singleton.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	Named(name string) Logger
}

type logger struct {
	hc hclog.Logger
}

// New builds a root Logger writing to w (os.Stderr when w is nil) at the given
// hclog level name ("debug", "info", "warn", "error").
func New(name string, level string, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	hc := hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		Output:     &highlightWriter{out: w},
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return &logger{hc: hc}
}

func (l *logger) Debug(msg string, args ...any) { l.hc.Debug(msg, args...) }
func (l *logger) Info(msg string, args ...any)  { l.hc.Info(msg, args...) }
func (l *logger) Warn(msg string, args ...any)  { l.hc.Warn(msg, args...) }
func (l *logger) Error(msg string, args ...any) { l.hc.Error(msg, args...) }

func (l *logger) With(args ...any) Logger {
	return &logger{hc: l.hc.With(args...)}
}

func (l *logger) Named(name string) Logger {
	return &logger{hc: l.hc.Named(name)}
}

// highlightWriter colors only lines that look like warnings or errors,
// keeping color sparing for operator signal rather than decorating every
// line.
type highlightWriter struct {
	out io.Writer
}

func (w *highlightWriter) Write(p []byte) (int, error) {
	s := string(p)
	switch {
	case strings.Contains(s, "[ERROR]"):
		_, _ = fmt.Fprint(w.out, color.RedString("%s", s))
	case strings.Contains(s, "[WARN] "):
		_, _ = fmt.Fprint(w.out, color.YellowString("%s", s))
	default:
		_, _ = fmt.Fprint(w.out, s)
	}
	return len(p), nil
}

// Banner prints a one-line, colorized startup banner to stderr.
func Banner(name, listen string) {
	_, _ = fmt.Fprintln(os.Stderr, color.CyanString("%s listening on %s", name, listen))
}
