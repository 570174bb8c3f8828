// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package log provides leveled logging for the interpreter and its
// collaborator packages.
//
// Time/date are omitted by default because systemd adds them for us; call
// SetLogDateTime(true) for callers that run outside systemd. Uses the
// syslog-style priority prefixes described at
// https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
)

var (
	DebugPrefix string = "<7>[DEBUG]   "
	InfoPrefix  string = "<6>[INFO]    "
	WarnPrefix  string = "<4>[WARNING] "
	ErrPrefix   string = "<3>[ERROR]   "
)

var (
	debugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	infoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, 0)
	warnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.Lshortfile)
	errLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.Llongfile)

	debugTimeLog *log.Logger = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	infoTimeLog  *log.Logger = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	warnTimeLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Llongfile)
)

// SetLevel silences every level below lvl ("debug", "info", "warn", "err").
func SetLevel(lvl string) {
	switch lvl {
	case "err", "fatal":
		WarnWriter, InfoWriter, DebugWriter = io.Discard, io.Discard, io.Discard
	case "warn":
		InfoWriter, DebugWriter = io.Discard, io.Discard
	case "info":
		DebugWriter = io.Discard
	case "debug":
	default:
		fmt.Printf("pkg/log: flag 'loglevel' has invalid value %q, using 'info'\n", lvl)
		SetLevel("info")
	}
}

// SetLogDateTime toggles whether log lines carry a date/time prefix.
func SetLogDateTime(logdate bool) {
	logDateTime = logdate
}

// Print logs v at info level, matching the teacher's convention of Print
// aliasing Info rather than writing straight to stdout.
func Print(v ...interface{}) { Info(v...) }

// Printf is Print's formatted counterpart.
func Printf(format string, v ...interface{}) { Infof(format, v...) }

// Fatal logs v at error level, then terminates the process.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

// Fatalf is Fatal's formatted counterpart.
func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}

func Debug(v ...interface{}) {
	if DebugWriter == io.Discard {
		return
	}
	out := fmt.Sprint(v...)
	if logDateTime {
		debugTimeLog.Output(2, out)
	} else {
		debugLog.Output(2, out)
	}
}

func Info(v ...interface{}) {
	if InfoWriter == io.Discard {
		return
	}
	out := fmt.Sprint(v...)
	if logDateTime {
		infoTimeLog.Output(2, out)
	} else {
		infoLog.Output(2, out)
	}
}

func Warn(v ...interface{}) {
	if WarnWriter == io.Discard {
		return
	}
	out := fmt.Sprint(v...)
	if logDateTime {
		warnTimeLog.Output(2, out)
	} else {
		warnLog.Output(2, out)
	}
}

func Error(v ...interface{}) {
	if ErrWriter == io.Discard {
		return
	}
	out := fmt.Sprint(v...)
	if logDateTime {
		errTimeLog.Output(2, out)
	} else {
		errLog.Output(2, out)
	}
}

func Debugf(format string, v ...interface{}) {
	if DebugWriter == io.Discard {
		return
	}
	out := fmt.Sprintf(format, v...)
	if logDateTime {
		debugTimeLog.Output(2, out)
	} else {
		debugLog.Output(2, out)
	}
}

func Infof(format string, v ...interface{}) {
	if InfoWriter == io.Discard {
		return
	}
	out := fmt.Sprintf(format, v...)
	if logDateTime {
		infoTimeLog.Output(2, out)
	} else {
		infoLog.Output(2, out)
	}
}

func Warnf(format string, v ...interface{}) {
	if WarnWriter == io.Discard {
		return
	}
	out := fmt.Sprintf(format, v...)
	if logDateTime {
		warnTimeLog.Output(2, out)
	} else {
		warnLog.Output(2, out)
	}
}

func Errorf(format string, v ...interface{}) {
	if ErrWriter == io.Discard {
		return
	}
	out := fmt.Sprintf(format, v...)
	if logDateTime {
		errTimeLog.Output(2, out)
	} else {
		errLog.Output(2, out)
	}
}
