// Copyright (C) 2014 Jakob Borg and Contributors (see the CONTRIBUTORS file).
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License for
// more details.
//
// You should have received a copy of the GNU General Public License along
// with this program. If not, see <http://www.gnu.org/licenses/>.

// Package logger implements a small level-aware logger in the style the
// rest of the core expects: a package-level Default plus the option for
// any component to hold its own instance, with pluggable handlers per
// level that receive each message without its trailing newline.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelOK
	LevelFatal
	NumLevels
)

type MessageHandler func(l LogLevel, msg string)

// Logger wraps a standard library *log.Logger and fans each formatted
// message out to any handlers registered for its level, in addition to
// the log.Logger's own Output.
type Logger struct {
	mut      sync.Mutex
	logger   *log.Logger
	handlers [NumLevels][]MessageHandler
}

// Default is the package-level logger every component logs through, via
// its own package var l, mirroring lamport.Default.
var Default = New()

func New() *Logger {
	return &Logger{
		logger: log.New(os.Stdout, "", log.Ltime),
	}
}

func (l *Logger) SetFlags(flags int) {
	l.mut.Lock()
	defer l.mut.Unlock()
	l.logger.SetFlags(flags)
}

func (l *Logger) SetPrefix(prefix string) {
	l.mut.Lock()
	defer l.mut.Unlock()
	l.logger.SetPrefix(prefix)
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mut.Lock()
	defer l.mut.Unlock()
	l.logger.SetOutput(w)
}

// AddHandler registers fn to be called for every message logged at level.
func (l *Logger) AddHandler(level LogLevel, fn MessageHandler) {
	l.mut.Lock()
	defer l.mut.Unlock()
	l.handlers[level] = append(l.handlers[level], fn)
}

func (l *Logger) callHandlers(level LogLevel, s string) {
	s = strings.TrimSuffix(s, "\n")
	for _, h := range l.handlers[level] {
		h(level, s)
	}
}

func (l *Logger) log(level LogLevel, prefix, s string) {
	l.mut.Lock()
	l.logger.Output(3, prefix+s)
	l.mut.Unlock()
	l.callHandlers(level, s)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, "DEBUG: ", fmt.Sprintf(format, args...))
}

func (l *Logger) Debugln(args ...interface{}) {
	l.log(LevelDebug, "DEBUG: ", fmt.Sprintln(args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, "INFO: ", fmt.Sprintf(format, args...))
}

func (l *Logger) Infoln(args ...interface{}) {
	l.log(LevelInfo, "INFO: ", fmt.Sprintln(args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, "WARNING: ", fmt.Sprintf(format, args...))
}

func (l *Logger) Warnln(args ...interface{}) {
	l.log(LevelWarn, "WARNING: ", fmt.Sprintln(args...))
}

func (l *Logger) Okf(format string, args ...interface{}) {
	l.log(LevelOK, "OK: ", fmt.Sprintf(format, args...))
}

func (l *Logger) Okln(args ...interface{}) {
	l.log(LevelOK, "OK: ", fmt.Sprintln(args...))
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(LevelFatal, "FATAL: ", fmt.Sprintf(format, args...))
	os.Exit(1)
}

func (l *Logger) Fatalln(args ...interface{}) {
	l.log(LevelFatal, "FATAL: ", fmt.Sprintln(args...))
	os.Exit(1)
}
