/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"go.mongodb.org/mongo-driver/event"
)

const (
	ansiReset     = "\x1b[0m"
	ansiRed       = "\x1b[31m"
	ansiYellow    = "\x1b[33m"
	ansiGreen     = "\x1b[32m"
	ansiBlue      = "\x1b[34m"
	ansiMagenta   = "\x1b[35m"
	ansiCyan      = "\x1b[36m"
	ansiBGGreen   = "\x1b[42;97m"
	ansiBGYellow  = "\x1b[43;97m"
	ansiBGBlue    = "\x1b[44;97m"
	ansiBGMagenta = "\x1b[45;97m"
	ansiBGCyan    = "\x1b[46;97m"
	ansiBGRed     = "\x1b[41;97m"
)

// DefaultCommandLogEnv switches command logging at runtime: "0" off, "1"
// failed commands only, "2" every command.
const DefaultCommandLogEnv = "MONGODEBUG"

const maxCommandLength = 2048

var commandSilentMode atomic.Bool

// EnableCommandSilent mutes every CommandHook, e.g. while a CLI prints JSON.
func EnableCommandSilent(b bool) {
	commandSilentMode.Store(b)
}

func colorWrap(s, code string) string { return fmt.Sprintf("%s%s%s", code, s, ansiReset) }

// CommandHookOptions configures a CommandHook.
type CommandHookOptions struct {
	Enabled  bool
	SlowTime time.Duration
	EnvName  string
	Writer   io.Writer
}

// CommandHook prints driver commands with their duration, colouring each by
// kind, and flags commands slower than the configured threshold.
type CommandHook struct {
	envName  string
	enabled  bool
	verbose  bool
	slowTime time.Duration
	writer   io.Writer
	pending  sync.Map // request id -> started command text
}

func NewCommandHook(opts CommandHookOptions) *CommandHook {
	h := &CommandHook{
		envName:  opts.EnvName,
		enabled:  opts.Enabled,
		verbose:  opts.Enabled,
		slowTime: opts.SlowTime,
		writer:   opts.Writer,
	}
	if h.envName == "" {
		h.envName = DefaultCommandLogEnv
	}
	if h.writer == nil {
		h.writer = os.Stdout
	}
	return h
}

// Monitor adapts the hook to the driver's command monitor.
func (h *CommandHook) Monitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started:   h.started,
		Succeeded: h.succeeded,
		Failed:    h.failed,
	}
}

func (h *CommandHook) mode() (enabled, verbose bool) {
	enabled, verbose = h.enabled, h.verbose
	if env, ok := os.LookupEnv(h.envName); ok {
		env = strings.TrimSpace(env)
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	return enabled, verbose
}

func (h *CommandHook) started(_ context.Context, e *event.CommandStartedEvent) {
	if commandSilentMode.Load() {
		return
	}
	enabled, _ := h.mode()
	if !enabled && h.slowTime <= 0 {
		return
	}
	cmd := e.Command.String()
	if len(cmd) > maxCommandLength {
		cmd = cmd[:maxCommandLength] + "..."
	}
	h.pending.Store(e.RequestID, cmd)
}

func (h *CommandHook) succeeded(_ context.Context, e *event.CommandSucceededEvent) {
	h.finish(e.CommandFinishedEvent, nil)
}

func (h *CommandHook) failed(_ context.Context, e *event.CommandFailedEvent) {
	h.finish(e.CommandFinishedEvent, fmt.Errorf("%s", e.Failure))
}

func (h *CommandHook) finish(e event.CommandFinishedEvent, failure error) {
	v, ok := h.pending.LoadAndDelete(e.RequestID)
	if !ok || commandSilentMode.Load() {
		return
	}
	cmd, _ := v.(string)
	dur := e.Duration

	if h.slowTime > 0 && failure == nil && dur > h.slowTime {
		_, _ = fmt.Fprintln(h.writer,
			time.Now().Format("2006-01-02 15:04:05.000"),
			colorWrap(fmt.Sprintf("%15s", "[MONGO_SLOW]"), ansiYellow),
			fmt.Sprintf("%17s", dur.Round(time.Microsecond)),
			"  ", commandBackgroundColor(e.CommandName, cmd),
		)
		return
	}

	enabled, verbose := h.mode()
	if !enabled || (!verbose && failure == nil) {
		return
	}

	args := []interface{}{
		time.Now().Format("2006-01-02 15:04:05.000"),
		colorWrap(fmt.Sprintf("%15s", "[MONGO]"), ansiCyan),
		fmt.Sprintf("%17s", dur.Round(time.Microsecond)),
		"  ", commandColor(e.CommandName, cmd),
	}
	if failure != nil {
		args = append(args, "\t", color.New(color.BgRed).Sprintf(" %s ", failure.Error()))
	}
	_, _ = fmt.Fprintln(h.writer, args...)
}

func commandColor(name, cmd string) string {
	switch name {
	case "find", "getMore", "count", "distinct":
		return colorWrap(cmd, ansiGreen)
	case "insert":
		return colorWrap(cmd, ansiBlue)
	case "update", "findAndModify":
		return colorWrap(cmd, ansiYellow)
	case "delete":
		return colorWrap(cmd, ansiMagenta)
	case "aggregate":
		return colorWrap(cmd, ansiCyan)
	default:
		return colorWrap(cmd, ansiRed)
	}
}

func commandBackgroundColor(name, cmd string) string {
	switch name {
	case "find", "getMore", "count", "distinct":
		return colorWrap(cmd, ansiBGGreen)
	case "insert":
		return colorWrap(cmd, ansiBGBlue)
	case "update", "findAndModify":
		return colorWrap(cmd, ansiBGYellow)
	case "delete":
		return colorWrap(cmd, ansiBGMagenta)
	case "aggregate":
		return colorWrap(cmd, ansiBGCyan)
	default:
		return colorWrap(cmd, ansiBGRed)
	}
}
