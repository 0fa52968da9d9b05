// Copyright (C) The Beagle Engine Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package beaglephase

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

// ConfigureLogging sets up the package-wide logrus logger the way the
// teacher's command entrypoints do: plain text with forced colors when
// out is a terminal, structured (non-colored) text otherwise so log
// aggregators get stable field ordering.
func ConfigureLogging(out io.Writer, level log.Level) {
	log.SetOutput(out)
	log.SetLevel(level)
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	if f, ok := out.(*os.File); ok {
		formatter.ForceColors = isatty.IsTerminal(f.Fd())
	}
	log.SetFormatter(formatter)
}

// WindowLogger returns a logrus.Entry pre-populated with the fields every
// log line about a window's progress should carry, so per-window log output
// can be grepped or filtered without re-parsing a free-text message.
func WindowLogger(chrom int, windowStartCM, windowEndCM float64) *log.Entry {
	return log.WithFields(log.Fields{
		"chrom":      chrom,
		"window_cm_start": windowStartCM,
		"window_cm_end":   windowEndCM,
	})
}
