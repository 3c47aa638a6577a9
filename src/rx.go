package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the live receiver.
 *
 * Description:	Audio from the sound card goes through the demodulators
 *		configured for each radio channel.  Good frames are
 *		printed, optionally logged to a CSV file and counted
 *		for Prometheus.  The composite DCD of a channel can
 *		drive a GPIO line.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
)

/*
 * Prints each received frame the way the monitor window of a TNC would.
 */

type rx_monitor struct {
	w     io.Writer
	rx    *Receiver
	stamp *strftime.Strftime // nil for no time stamp.
	hex   bool
	now   func() time.Time
}

func new_rx_monitor(w io.Writer, rx *Receiver, timestamp_format string, hex bool) (*rx_monitor, error) {
	var m = &rx_monitor{w: w, rx: rx, hex: hex, now: time.Now} //nolint:exhaustruct

	if timestamp_format != "" {
		var stamp, err = strftime.New(timestamp_format)
		if err != nil {
			return nil, fmt.Errorf("timestamp format %q: %w", timestamp_format, err)
		}
		m.stamp = stamp
	}

	return m, nil
}

func (m *rx_monitor) RecPacket(p *Packet) {
	var c = &m.rx.Config().Chan[p.Channel]

	var addrs, info, _ = frame_addrs(p.Frame)

	if m.stamp != nil {
		fmt.Fprintf(m.w, "%s ", m.stamp.FormatString(m.now()))
	}

	switch {
	case c.NumSubchan() > 1 && c.NumSlicers() == 1:
		fmt.Fprintf(m.w, "[%d.%d] ", p.Channel, p.Subchannel)
	case c.NumSubchan() == 1 && c.NumSlicers() > 1:
		fmt.Fprintf(m.w, "[%d.%d] ", p.Channel, p.Slice)
	case c.NumSubchan() > 1 && c.NumSlicers() > 1:
		fmt.Fprintf(m.w, "[%d.%d.%d] ", p.Channel, p.Subchannel, p.Slice)
	default:
		fmt.Fprintf(m.w, "[%d] ", p.Channel)
	}

	fmt.Fprintf(m.w, "%s%s\n", addrs, safe_text(info))

	if p.Alevel.TooHigh() {
		dw_log(DW_COLOR_ERROR, "Audio input level is too high.  Reduce so most stations are around 50.",
			"channel", p.Channel, "level", p.Alevel.String())
	}

	if m.hex {
		fmt.Fprintf(m.w, "------\n")
		hex_dump(m.w, p.Frame)
		fmt.Fprintf(m.w, "------\n")
	}
}

type RxOptions struct {
	ConfigFile      string
	SampleRate      int // Overrides the configuration file when not 0.
	AudioChannels   int
	BitErrorRate    float64
	MetricsAddress  string
	DCDGPIO         string
	LogDir          string
	LogFile         string
	TimestampFormat string
	HexDisplay      bool
	AudioStats      int // Seconds between audio input reports, 0 for none.
}

/*------------------------------------------------------------------
 *
 * Name:        RxConfig
 *
 * Purpose:     Configuration from the file, if any, with command
 *		line overrides.
 *
 *----------------------------------------------------------------*/

func RxConfig(o *RxOptions) (*AudioConfig, error) {
	var pa *AudioConfig

	if o.ConfigFile != "" {
		var err error
		pa, err = LoadConfig(o.ConfigFile)
		if err != nil {
			return nil, err
		}
	} else {
		pa = DefaultAudioConfig()
	}

	if o.SampleRate != 0 {
		pa.SamplesPerSec = o.SampleRate
	}
	if o.AudioChannels != 0 {
		pa.NumChannels = o.AudioChannels
	}
	if o.BitErrorRate != 0 {
		pa.RecvBER = o.BitErrorRate
	}

	// Sound cards give us 16 bits.
	pa.BitsPerSample = 16

	if o.LogDir != "" && o.LogFile != "" {
		return nil, fmt.Errorf("log directory and log file name are mutually exclusive: %w", ErrBadConfig)
	}

	return pa, nil
}

func RxMain() {
	var configFileName = pflag.StringP("config-file", "c", "", "Configuration file name (YAML).  Default is one 1200 baud AFSK channel.")
	var audioSampleRate = pflag.IntP("audio-sample-rate", "r", 0, "Audio sample rate, per sec.")
	var audioChannels = pflag.IntP("audio-channels", "n", 0, "Number of audio channels, 1 or 2.")
	var bitErrorRate = pflag.Float64P("bit-error-rate", "e", 0.0, "Receive Bit Error Rate (BER).")
	var metricsAddress = pflag.String("metrics", "", "Serve Prometheus metrics on this address, e.g. :9101.")
	var dcdGPIO = pflag.String("dcd-gpio", "", "Show channel 0 DCD on this GPIO line, chip:offset.  Prefix with - to invert.")
	var logDir = pflag.StringP("log-dir", "l", "", "Directory name for log files.")
	var logFile = pflag.StringP("log-file", "L", "", "File name for logging.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede received frames with 'strftime' format time stamp.")
	var hexDisplay = pflag.BoolP("hex-display", "x", false, "Print frame contents as hexadecimal bytes.")
	var audioStats = pflag.IntP("audio-stats", "a", 100, "Audio statistics interval in seconds.  0 to disable.")
	var logLevel = pflag.String("log-level", "info", "Log level: debug, info, warn, error.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")
	var version = pflag.BoolP("version", "v", false, "Display version information and exit.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s decodes AX.25 frames from the sound card.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]...\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *version {
		printVersion("samoyed-rx", true)
		return
	}

	var level, levelErr = log.ParseLevel(*logLevel)
	if levelErr != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level %q\n", *logLevel)
		pflag.Usage()
		os.Exit(1)
	}
	Logger().SetLevel(level)

	var opt = &RxOptions{
		ConfigFile:      *configFileName,
		SampleRate:      *audioSampleRate,
		AudioChannels:   *audioChannels,
		BitErrorRate:    *bitErrorRate,
		MetricsAddress:  *metricsAddress,
		DCDGPIO:         *dcdGPIO,
		LogDir:          *logDir,
		LogFile:         *logFile,
		TimestampFormat: *timestampFormat,
		HexDisplay:      *hexDisplay,
		AudioStats:      *audioStats,
	}

	if err := RunReceiver(opt); err != nil {
		dw_log(DW_COLOR_ERROR, "Receiver stopped", "err", err)
		os.Exit(1)
	}
}

/*------------------------------------------------------------------
 *
 * Name:        RunReceiver
 *
 * Purpose:     Set everything up and receive until interrupted.
 *
 *----------------------------------------------------------------*/

func RunReceiver(o *RxOptions) error {
	var pa, err = RxConfig(o)
	if err != nil {
		return err
	}

	var rx, rxErr = NewReceiver(pa)
	if rxErr != nil {
		return rxErr
	}

	for ch := range MAX_RADIO_CHANS {
		var c = &pa.Chan[ch]
		if c.Medium == MEDIUM_RADIO {
			dw_log(DW_COLOR_INFO, "Channel", "channel", ch, "modem", c.ModemType, "baud", c.Baud,
				"profiles", c.Profiles, "subchannels", c.NumSubchan(), "slicers", c.NumSlicers())
		}
	}

	rx.SetAudioStatsInterval(time.Duration(o.AudioStats) * time.Second)

	var monitor, monErr = new_rx_monitor(os.Stdout, rx, o.TimestampFormat, o.HexDisplay)
	if monErr != nil {
		return monErr
	}
	rx.AddPacketSink(monitor)

	if o.LogDir != "" || o.LogFile != "" {
		var fl, flErr = NewFrameLog(o.LogDir != "", IfThenElse(o.LogDir != "", o.LogDir, o.LogFile))
		if flErr != nil {
			return flErr
		}
		defer fl.Close()
		rx.AddPacketSink(fl)
	}

	if o.DCDGPIO != "" {
		var dcd, dcdErr = OpenDCDIndicator(o.DCDGPIO, 0)
		if dcdErr != nil {
			return dcdErr
		}
		defer func() { _ = dcd.Close() }()
		rx.AddChannelBusyListener(dcd)
	}

	var ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.MetricsAddress != "" {
		var metrics = NewMetrics()
		metrics.Attach(rx)

		var mux = http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())

		var server = &http.Server{ //nolint:exhaustruct
			Addr:              o.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			dw_log(DW_COLOR_INFO, "Metrics server listening", "address", o.MetricsAddress)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				dw_log(DW_COLOR_ERROR, "Metrics server error", "err", err)
			}
		}()

		defer func() {
			if err := server.Close(); err != nil {
				dw_log(DW_COLOR_ERROR, "Error closing metrics server", "err", err)
			}
		}()
	}

	var src, srcErr = OpenPortAudio(pa)
	if srcErr != nil {
		return srcErr
	}
	defer func() { _ = src.Close() }()

	err = RecvProcess(ctx, rx, src)
	if errors.Is(err, context.Canceled) {
		dw_log(DW_COLOR_INFO, "Shutting down")
		return nil
	}
	return err
}
