package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Show the channel busy (DCD) state on a GPIO line,
 *		typically driving an LED.
 *
 * Description:	Uses the Linux GPIO character device so a line is named
 *		by chip and offset, e.g. "gpiochip0:17".  An optional
 *		leading "-" inverts the output.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// The part of *gpiocdev.Line we use.  Tests substitute a fake.
type gpiodOutputLine interface {
	SetValue(value int) error
	Close() error
}

type DCDIndicator struct {
	channel int
	invert  bool
	line    gpiodOutputLine
}

/*------------------------------------------------------------------
 *
 * Name:        OpenDCDIndicator
 *
 * Inputs:      spec	- [-]chip:offset
 *		channel	- Radio channel to follow.
 *
 * Returns:     Indicator, initially off, or error.
 *
 *----------------------------------------------------------------*/

func OpenDCDIndicator(spec string, channel int) (*DCDIndicator, error) {
	var chip, offset, invert, err = parse_gpio_spec(spec)
	if err != nil {
		return nil, err
	}

	var line, reqErr = gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(IfThenElse(invert, 1, 0)),
		gpiocdev.WithConsumer("samoyed-rx"))
	if reqErr != nil {
		return nil, fmt.Errorf("DCD output %s: %w", spec, reqErr)
	}

	dw_log(DW_COLOR_INFO, "DCD output line opened", "chip", chip, "offset", offset, "invert", invert, "channel", channel)

	return newDCDIndicator(line, channel, invert), nil
}

func newDCDIndicator(line gpiodOutputLine, channel int, invert bool) *DCDIndicator {
	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)
	return &DCDIndicator{channel: channel, invert: invert, line: line}
}

func parse_gpio_spec(spec string) (string, int, bool, error) {
	var invert = strings.HasPrefix(spec, "-")
	spec = strings.TrimPrefix(spec, "-")

	var chip, off, found = strings.Cut(spec, ":")
	if !found || chip == "" {
		return "", 0, false, fmt.Errorf("GPIO line %q is not chip:offset: %w", spec, ErrBadConfig)
	}

	var offset, err = strconv.Atoi(off)
	if err != nil || offset < 0 {
		return "", 0, false, fmt.Errorf("GPIO line offset %q: %w", off, ErrBadConfig)
	}

	return chip, offset, invert, nil
}

func (d *DCDIndicator) ChannelBusy(channel int, busy bool) {
	if channel != d.channel || d.line == nil {
		return
	}

	var err = d.line.SetValue(IfThenElse(busy != d.invert, 1, 0))
	if err != nil {
		dw_log(DW_COLOR_ERROR, "Error setting DCD output line", "channel", channel, "err", err)
	}
}

func (d *DCDIndicator) Close() error {
	if d.line == nil {
		return nil
	}
	var err = d.line.Close()
	d.line = nil
	return err
}
