// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// logBackend writes to stdout and, when a log file is set, to a rotating
// file. Levels are set per subsystem with "subsys=level" pairs.
type logBackend struct {
	stdOut       io.Writer
	rotator      *rotator.Rotator
	bknd         *slog.Backend
	defaultLevel slog.Level
	levels       map[string]slog.Level
}

func newLogBackend(logFile, debugLevel string, stdOut io.Writer) (*logBackend, error) {
	var r *rotator.Rotator
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		var err error
		r, err = rotator.New(logFile, 1024, false, 10)
		if err != nil {
			return nil, fmt.Errorf("create file rotator: %w", err)
		}
	}

	b := &logBackend{
		stdOut:       stdOut,
		rotator:      r,
		defaultLevel: slog.LevelInfo,
		levels:       make(map[string]slog.Level),
	}
	b.bknd = slog.NewBackend(b)

	for _, v := range strings.Split(debugLevel, ",") {
		fields := strings.Split(v, "=")
		switch len(fields) {
		case 1:
			if lvl, ok := slog.LevelFromString(fields[0]); ok {
				b.defaultLevel = lvl
			}
		case 2:
			lvl, ok := slog.LevelFromString(fields[1])
			if !ok {
				return nil, fmt.Errorf("unknown log level %q", fields[1])
			}
			b.levels[fields[0]] = lvl
		default:
			return nil, fmt.Errorf("unable to parse %q as subsys=level", v)
		}
	}

	return b, nil
}

func (b *logBackend) Write(p []byte) (int, error) {
	if b.stdOut != nil {
		b.stdOut.Write(p)
	}
	if b.rotator != nil {
		b.rotator.Write(p)
	}

	return len(p), nil
}

func (b *logBackend) logger(subsys string) slog.Logger {
	l := b.bknd.Logger(subsys)
	if lvl, ok := b.levels[subsys]; ok {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(b.defaultLevel)
	}

	return l
}

func (b *logBackend) Close() error {
	if b.rotator == nil {
		return nil
	}

	return b.rotator.Close()
}
