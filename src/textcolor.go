package direwolf

// A lightweight reimplementation of Dire Wolf's textcolor.c
//
// The colors were only ever a severity hint so they now select the level
// of a structured logger.

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

type dw_color_e int

const (
	DW_COLOR_INFO    dw_color_e = iota /* black */
	DW_COLOR_ERROR                     /* red */
	DW_COLOR_REC                       /* green */
	DW_COLOR_DECODED                   /* blue */
	DW_COLOR_XMIT                      /* magenta */
	DW_COLOR_DEBUG                     /* dark_green */
)

var logger = log.NewWithOptions(os.Stderr, log.Options{ //nolint:gochecknoglobals
	Prefix: "samoyed-rx",
	Level:  log.InfoLevel,
})

// SetLogger replaces the package logger.  Tools use this to pick the output
// and level; tests use it to keep quiet.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard)
	}
	logger = l
}

// Logger returns the package logger.
func Logger() *log.Logger {
	return logger
}

func dw_log(color dw_color_e, msg string, keyvals ...any) {
	switch color {
	case DW_COLOR_ERROR:
		logger.Error(msg, keyvals...)
	case DW_COLOR_DEBUG:
		logger.Debug(msg, keyvals...)
	case DW_COLOR_INFO, DW_COLOR_REC, DW_COLOR_DECODED, DW_COLOR_XMIT:
		logger.Info(msg, keyvals...)
	}
}
