package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:	Save received frames to a log file.
 *
 * Description: Write one CSV line per frame with where it was heard,
 *		the audio level, the fix up effort and the frame itself
 *		in hexadecimal, for easy reading and later processing.
 *
 *		There are two alternatives here.
 *
 *		-L logfile		Specify full file path.
 *
 *		-l logdir		Daily names will be created here.
 *
 *		Use one or the other but not both.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lestrrat-go/strftime"
)

const DAILY_LOG_NAME = "%Y-%m-%d.log"

var log_header = []string{"chan", "utime", "isotime", "subchan", "slice", "level", "error", "speed", "spectrum", "length", "frame"}

type FrameLog struct {
	daily_names bool
	log_path    string // Directory for daily names, otherwise the file.
	daily       *strftime.Strftime

	fp         *os.File
	open_fname string

	now func() time.Time
}

/*------------------------------------------------------------------
 *
 * Function:	NewFrameLog
 *
 * Inputs:	daily_names	- True if daily names should be generated.
 *				  In this case path is a directory.
 *				  When false, path would be the file name.
 *
 *		path		- Log file name or just directory.
 *				  Use "." for current directory.
 *
 * Description:	The directory is created if it does not exist.
 *		The file is opened on first use and kept open.
 *
 *------------------------------------------------------------------*/

func NewFrameLog(daily_names bool, path string) (*FrameLog, error) {
	if path == "" {
		return nil, fmt.Errorf("empty log path: %w", ErrBadConfig)
	}

	var daily, err = strftime.New(DAILY_LOG_NAME)
	if err != nil {
		return nil, fmt.Errorf("log file name pattern: %w", err)
	}

	var l = &FrameLog{daily_names: daily_names, log_path: path, daily: daily, now: time.Now} //nolint:exhaustruct

	if daily_names {
		var stat, statErr = os.Stat(path)
		if statErr == nil {
			if !stat.IsDir() {
				return nil, fmt.Errorf("log file location %q is not a directory: %w", path, ErrBadConfig)
			}
		} else {
			var mkdirErr = os.MkdirAll(path, 0755)
			if mkdirErr != nil {
				return nil, fmt.Errorf("failed to create log file location %q: %w", path, mkdirErr)
			}
			dw_log(DW_COLOR_INFO, "Log file location has been created", "path", path)
		}
	} else {
		dw_log(DW_COLOR_INFO, "Log file", "path", path)
	}

	return l, nil
}

func (l *FrameLog) open(full_path string) error {
	var _, statErr = os.Stat(full_path)
	var already_there = statErr == nil

	dw_log(DW_COLOR_INFO, "Opening log file", "path", full_path)

	var f, err = os.OpenFile(full_path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("can't open log file %q for write: %w", full_path, err)
	}
	l.fp = f

	if !already_there {
		var w = csv.NewWriter(l.fp)
		_ = w.Write(log_header)
		w.Flush()
	}
	return nil
}

/*------------------------------------------------------------------
 *
 * Function:	RecPacket
 *
 * Purpose:	Save information to log file.
 *
 *------------------------------------------------------------------*/

func (l *FrameLog) RecPacket(p *Packet) {

	var now = l.now().UTC()

	if l.daily_names {
		var fname = l.daily.FormatString(now)

		if l.fp != nil && fname != l.open_fname {
			l.Close()
		}

		if l.fp == nil {
			if err := l.open(filepath.Join(l.log_path, fname)); err != nil {
				dw_log(DW_COLOR_ERROR, "Log file", "err", err)
				return
			}
			l.open_fname = fname
		}
	} else if l.fp == nil {
		if err := l.open(l.log_path); err != nil {
			dw_log(DW_COLOR_ERROR, "Log file", "err", err)
			return
		}
	}

	var w = csv.NewWriter(l.fp)
	var err = w.Write([]string{
		strconv.Itoa(p.Channel),
		strconv.FormatInt(now.Unix(), 10),
		now.Format("2006-01-02T15:04:05Z"),
		strconv.Itoa(p.Subchannel),
		strconv.Itoa(p.Slice),
		p.Alevel.String(),
		strconv.Itoa(int(p.Retries)),
		strconv.FormatFloat(p.SpeedError, 'f', 1, 64),
		p.Spectrum,
		strconv.Itoa(len(p.Frame)),
		hex.EncodeToString(p.Frame),
	})
	w.Flush()
	if err == nil {
		err = w.Error()
	}
	if err != nil {
		dw_log(DW_COLOR_ERROR, "Can't write log file", "err", err)
	}
}

func (l *FrameLog) Close() {
	if l.fp != nil {
		_ = l.fp.Close()
	}
	l.fp = nil
	l.open_fname = ""
}
