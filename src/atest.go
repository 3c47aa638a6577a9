package direwolf

/*-------------------------------------------------------------------
 *
 * Name:        atest.go
 *
 * Purpose:     Test fixture for the demodulators.
 *
 * Inputs:	Takes audio from a .WAV file instead of the audio device.
 *
 * Description:	This can be used to test the demodulators under
 *		controlled and reproducible conditions for tweaking.
 *
 *		For example
 *
 *		(1) Download WA8LMF's TNC Test CD image file from
 *			http://wa8lmf.net/TNCtest/index.htm
 *
 *		(2) Burn a physical CD.
 *
 *		(3) "Rip" the desired tracks with Windows Media Player.
 *			Select .WAV file format.
 *
 *		"Track 2" is used for most tests because that is more
 *		realistic for most people using the speaker output.
 *
 *		Stereo files are decoded on the left channel only unless
 *		-1 or -2 is given.  With -2 the count will be about twice
 *		the number expected because the two channels are decoded
 *		separately.
 *
 *--------------------------------------------------------------------*/

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
)

const MIN_BAUD = 100
const MAX_BAUD = 40000

var ErrBadWAV = errors.New("not a usable WAV file")

/*
 * Header of the .WAV file.  Little endian throughout.
 */

type riff_header struct {
	RIFF     [4]byte /* "RIFF" */
	Filesize uint32  /* file length - 8 */
	WAVE     [4]byte /* "WAVE" */
}

type chunk_header struct {
	ID       [4]byte /* "LIST" or "fmt " */
	Datasize uint32
}

type wav_format struct {
	Wformattag      uint16 /* 1 for PCM. */
	Nchannels       uint16 /* 1 for mono, 2 for stereo. */
	Nsamplespersec  uint32 /* sampling freq, Hz. */
	Navgbytespersec uint32 /* = nblockalign*nsamplespersec. */
	Nblockalign     uint16 /* = wbitspersample/8 * nchannels. */
	Wbitspersample  uint16 /* 16 or 8. */
}

type WAVInfo struct {
	SamplesPerSec int
	BitsPerSample int
	NumChannels   int
	DataSize      int64 // Bytes of audio following the header.
}

// Seconds of audio in the file.
func (w *WAVInfo) Duration() float64 {
	return float64(w.DataSize) / float64((w.BitsPerSample/8)*w.NumChannels*w.SamplesPerSec)
}

/*------------------------------------------------------------------
 *
 * Name:        ReadWAVHeader
 *
 * Purpose:     Read the header of a .WAV file and leave r at the
 *		start of the audio data.
 *
 * Description:	Doesn't handle all possible cases but good enough for
 *		our purposes.  A LIST chunk before the format is skipped.
 *
 *----------------------------------------------------------------*/

func ReadWAVHeader(r io.Reader) (*WAVInfo, error) {
	var header riff_header
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("WAV header: %w", err)
	}

	if string(header.RIFF[:]) != "RIFF" || string(header.WAVE[:]) != "WAVE" {
		return nil, fmt.Errorf("this is not a .WAV format file: %w", ErrBadWAV)
	}

	var chunk chunk_header
	if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
		return nil, fmt.Errorf("WAV chunk: %w", err)
	}

	if string(chunk.ID[:]) == "LIST" {
		if _, err := io.CopyN(io.Discard, r, int64(chunk.Datasize)); err != nil {
			return nil, fmt.Errorf("WAV LIST chunk: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			return nil, fmt.Errorf("WAV chunk: %w", err)
		}
	}

	if string(chunk.ID[:]) != "fmt " {
		return nil, fmt.Errorf("found %q where \"fmt \" was expected: %w", chunk.ID[:], ErrBadWAV)
	}

	if chunk.Datasize != 16 && chunk.Datasize != 18 {
		return nil, fmt.Errorf("need fmt chunk datasize of 16 or 18, found %d: %w", chunk.Datasize, ErrBadWAV)
	}

	var format wav_format
	if err := binary.Read(r, binary.LittleEndian, &format); err != nil {
		return nil, fmt.Errorf("WAV format: %w", err)
	}
	if chunk.Datasize == 18 {
		if _, err := io.CopyN(io.Discard, r, 2); err != nil {
			return nil, fmt.Errorf("WAV format: %w", err)
		}
	}

	var data chunk_header
	if err := binary.Read(r, binary.LittleEndian, &data); err != nil {
		return nil, fmt.Errorf("WAV data chunk: %w", err)
	}

	if string(data.ID[:]) != "data" {
		return nil, fmt.Errorf("found %q where \"data\" was expected: %w", data.ID[:], ErrBadWAV)
	}

	if format.Wformattag != 1 {
		return nil, fmt.Errorf("only audio format 1 (PCM) is understood, this file has %d: %w", format.Wformattag, ErrBadWAV)
	}

	if format.Nchannels != 1 && format.Nchannels != 2 {
		return nil, fmt.Errorf("only 1 or 2 channels are understood, this file has %d: %w", format.Nchannels, ErrBadWAV)
	}

	if format.Wbitspersample != 8 && format.Wbitspersample != 16 {
		return nil, fmt.Errorf("only 8 or 16 bits per sample are understood, this file has %d: %w", format.Wbitspersample, ErrBadWAV)
	}

	if format.Nsamplespersec == 0 {
		return nil, fmt.Errorf("zero samples per second: %w", ErrBadWAV)
	}

	return &WAVInfo{
		SamplesPerSec: int(format.Nsamplespersec),
		BitsPerSample: int(format.Wbitspersample),
		NumChannels:   int(format.Nchannels),
		DataSize:      int64(data.Datasize),
	}, nil
}

/*
 * Command line settings that shape the channel configuration.
 */

type AtestOptions struct {
	Bitrate      string
	G3RUH        bool
	V26A         bool // Compatible with direwolf <= 1.5.
	V26B         bool // Compatible with MFJ-2400.
	ModemProfile string
	Decimate     int
	Upsample     int
	FixBits      int
	BitErrorRate float64

	DecodeOnly int // 0 = left, 1 = right, 2 = both.

	HexDisplay bool
	ShowDCD    bool
}

/*------------------------------------------------------------------
 *
 * Name:        AtestConfig
 *
 * Purpose:     Channel 0 settings from the options.  Channel 1 is a
 *		copy for stereo files.
 *
 * Description:	Set modem type based on data rate.
 *		(Could be overridden by -g, -j, or -J later.)
 *
 *		    300 implies 1600/1800 AFSK.
 *		    1200 implies 1200/2200 AFSK.
 *		    2400 implies V.26 QPSK.
 *		    4800 implies V.27 8PSK.
 *		    9600 implies G3RUH baseband scrambled.
 *
 *----------------------------------------------------------------*/

func AtestConfig(o *AtestOptions) (*AudioConfig, error) {
	var pa = DefaultAudioConfig()
	var c = &pa.Chan[0]

	if o.Decimate < 0 || o.Decimate > 8 {
		return nil, fmt.Errorf("decimate should be between 0 and 8 inclusive, not %d: %w", o.Decimate, ErrBadConfig)
	}
	c.Decimate = o.Decimate

	if o.Upsample < 0 || o.Upsample > MAX_UPSAMPLE {
		return nil, fmt.Errorf("upsample should be between 1 and %d inclusive, not %d: %w", MAX_UPSAMPLE, o.Upsample, ErrBadConfig)
	}
	c.Upsample = o.Upsample

	if o.FixBits < int(RETRY_NONE) || o.FixBits >= int(RETRY_MAX) {
		return nil, fmt.Errorf("fix bits should be between %d and %d inclusive, not %d: %w", RETRY_NONE, RETRY_MAX-1, o.FixBits, ErrBadConfig)
	}
	c.FixBits = retry_t(o.FixBits)

	if o.DecodeOnly < 0 || o.DecodeOnly > 2 {
		return nil, fmt.Errorf("channel selection %d: %w", o.DecodeOnly, ErrBadConfig)
	}

	pa.RecvBER = o.BitErrorRate

	var bitrate = DEFAULT_BAUD
	if o.Bitrate != "" {
		var err error
		bitrate, err = strconv.Atoi(o.Bitrate)
		if err != nil {
			return nil, fmt.Errorf("invalid bitrate %q, should be an integer: %w", o.Bitrate, ErrBadConfig)
		}
	}

	c.Baud = bitrate

	switch {
	case c.Baud == 100:
		c.ModemType = MODEM_AFSK
		c.MarkFreq = 1615
		c.SpaceFreq = 1785
	case c.Baud < 600: // e.g. HF SSB packet
		c.ModemType = MODEM_AFSK
		c.MarkFreq = 1600
		c.SpaceFreq = 1800
	case c.Baud < 1800: // common 1200
		c.ModemType = MODEM_AFSK
		c.MarkFreq = DEFAULT_MARK_FREQ
		c.SpaceFreq = DEFAULT_SPACE_FREQ
	case c.Baud < 3600:
		c.ModemType = MODEM_QPSK
		c.MarkFreq = 0
		c.SpaceFreq = 0
		c.Profiles = ""
	case c.Baud < 7200:
		c.ModemType = MODEM_8PSK
		c.MarkFreq = 0
		c.SpaceFreq = 0
		c.Profiles = ""
	default:
		c.ModemType = MODEM_SCRAMBLE
		c.MarkFreq = 0
		c.SpaceFreq = 0
		c.Profiles = ""
	}

	if c.Baud < MIN_BAUD || c.Baud > MAX_BAUD {
		return nil, fmt.Errorf("use a more reasonable bit rate in range of %d - %d: %w", MIN_BAUD, MAX_BAUD, ErrBadConfig)
	}

	/*
	 * -g option means force g3RUH regardless of speed.
	 */

	if o.G3RUH {
		c.ModemType = MODEM_SCRAMBLE
		c.MarkFreq = 0
		c.SpaceFreq = 0
		c.Profiles = ""
	}

	/*
	 * We have two different incompatible flavors of V.26.
	 */

	if o.V26A {
		// V.26 compatible with earlier versions of direwolf.
		//   Example:   -B 2400 -j    or simply   -j

		c.V26Alt = V26_A
		c.ModemType = MODEM_QPSK
		c.MarkFreq = 0
		c.SpaceFreq = 0
		c.Baud = 2400
		c.Profiles = ""
	}
	if o.V26B {
		// V.26 compatible with MFJ and maybe others.
		//   Example:   -B 2400 -J     or simply   -J

		c.V26Alt = V26_B
		c.ModemType = MODEM_QPSK
		c.MarkFreq = 0
		c.SpaceFreq = 0
		c.Baud = 2400
		c.Profiles = ""
	}

	// Needs to be after -B, -j, -J.
	if o.ModemProfile != "" {
		c.Profiles = o.ModemProfile
	}

	pa.Chan[1] = pa.Chan[0]

	return pa, nil
}

/*
 * Prints what was decoded and keeps score.
 */

type atest_results struct {
	w   io.Writer
	rx  *Receiver
	opt *AtestOptions

	decoded int

	dcd_count          int
	dcd_missing_errors int
	dcd_start_time     [MAX_RADIO_CHANS]float64
}

func (a *atest_results) seconds(channel int) float64 {
	return float64(a.rx.SamplesProcessed(channel)) / float64(a.rx.Config().SamplesPerSec)
}

/*
 * This is called when we have a good frame.
 */

func (a *atest_results) RecPacket(p *Packet) {
	a.decoded++

	if !a.rx.DataDetectAny(p.Channel) {
		a.dcd_missing_errors++
	}

	var addrs, info, h = frame_addrs(p.Frame)

	/* Insert time stamp relative to start of file. */

	var sec = a.seconds(p.Channel)
	var minutes = int(sec / 60.)
	sec -= float64(minutes * 60)

	fmt.Fprintf(a.w, "\n")
	fmt.Fprintf(a.w, "DECODED[%d] %d:%06.3f ", a.decoded, minutes, sec)

	/* Who are we hearing?   Original station or digipeater? */

	var heard string
	if h >= 0 {
		heard = station_heard(addrs, h)
	}
	if h > 1 {
		fmt.Fprintf(a.w, "Digipeater ")
	}

	var c = &a.rx.Config().Chan[p.Channel]

	if c.FixBits == RETRY_NONE {
		fmt.Fprintf(a.w, "%s audio level = %s     %s\n", heard, p.Alevel, p.Spectrum)
	} else {
		Assert(p.Retries >= RETRY_NONE && p.Retries < RETRY_MAX)
		fmt.Fprintf(a.w, "%s audio level = %s   [%s]   %s\n", heard, p.Alevel, p.Retries, p.Spectrum)
	}

	// Display channel with subchannel/slice if applicable.

	switch {
	case c.NumSubchan() > 1 && c.NumSlicers() == 1:
		fmt.Fprintf(a.w, "[%d.%d] ", p.Channel, p.Subchannel)
	case c.NumSubchan() == 1 && c.NumSlicers() > 1:
		fmt.Fprintf(a.w, "[%d.%d] ", p.Channel, p.Slice)
	case c.NumSubchan() > 1 && c.NumSlicers() > 1:
		fmt.Fprintf(a.w, "[%d.%d.%d] ", p.Channel, p.Subchannel, p.Slice)
	default:
		fmt.Fprintf(a.w, "[%d] ", p.Channel)
	}

	fmt.Fprintf(a.w, "%s%s\n", addrs, safe_text(info))

	/*
	 * -h option for hexadecimal display.
	 */

	if a.opt.HexDisplay {
		fmt.Fprintf(a.w, "------\n")
		hex_dump(a.w, p.Frame)
		fmt.Fprintf(a.w, "------\n")
	}
}

// Only slicer 0 of subchannel 0, like a single DCD output line would.
func (a *atest_results) DCDChange(channel, subchannel, slice int, asserted bool) {
	if !a.opt.ShowDCD || subchannel != 0 || slice != 0 {
		return
	}

	var t = a.seconds(channel)

	if asserted {
		a.dcd_count++
		a.dcd_start_time[channel] = t
		return
	}

	var sec1 = a.dcd_start_time[channel]
	var min1 = int(sec1 / 60.)
	sec1 -= float64(min1 * 60)

	var sec2 = t
	var min2 = int(sec2 / 60.)
	sec2 -= float64(min2 * 60)

	fmt.Fprintf(a.w, "DCD[%d]  %d:%06.3f - %d:%06.3f =  %3.0f\n", channel, min1, sec1, min2, sec2, (t-a.dcd_start_time[channel])*1000.)
}

// Field h of "SRC>DST,DIGI*:" with a hint for WIDEn-0.
func station_heard(addrs string, h int) string {
	var fields = strings.FieldsFunc(strings.TrimSuffix(addrs, ":"), func(r rune) bool {
		return r == '>' || r == ','
	})

	// fields are source, destination, digipeaters.
	var idx = IfThenElse(h == 1, 0, h)
	if idx >= len(fields) {
		return ""
	}

	var heard = strings.TrimSuffix(fields[idx], "*")

	/* If we are receiving from WIDEn-0, it is quite likely (but not */
	/* guaranteed), that we are actually hearing the preceding station */
	/* in the path. */

	if h >= 3 && len(heard) == 5 && strings.HasPrefix(heard, "WIDE") && unicode.IsDigit(rune(heard[4])) {
		heard += " (probably " + fields[h-1] + ")"
	}

	return heard
}

/*------------------------------------------------------------------
 *
 * Name:        DecodeWAV
 *
 * Purpose:     Decode every frame in one .WAV file.
 *
 * Inputs:      r	- The file, positioned at the start.
 *		o	- Options.
 *		w	- Where to print the results.
 *
 * Returns:     Number of frames decoded.
 *
 * Description:	The receiver is created for each file because files
 *		could have different sample rates.
 *
 *----------------------------------------------------------------*/

func DecodeWAV(ctx context.Context, r io.Reader, o *AtestOptions, w io.Writer) (*AtestSummary, error) {
	var info, err = ReadWAVHeader(r)
	if err != nil {
		return nil, err
	}

	var pa, cfgErr = AtestConfig(o)
	if cfgErr != nil {
		return nil, cfgErr
	}

	pa.SamplesPerSec = info.SamplesPerSec
	pa.BitsPerSample = info.BitsPerSample
	pa.NumChannels = info.NumChannels

	/* Set to 0 or 1 to decode only one channel.  2 for both.  */

	pa.Chan[0].Medium = IfThenElse(o.DecodeOnly != 1, MEDIUM_RADIO, MEDIUM_NONE)
	pa.Chan[1].Medium = IfThenElse(info.NumChannels == 2 && o.DecodeOnly != 0, MEDIUM_RADIO, MEDIUM_NONE)

	fmt.Fprintf(w, "%d samples per second.  %d bits per sample.  %d audio channels.\n",
		info.SamplesPerSec, info.BitsPerSample, info.NumChannels)
	fmt.Fprintf(w, "%d audio bytes in file.  Duration = %.1f seconds.\n", info.DataSize, info.Duration())
	fmt.Fprintf(w, "Fix Bits level = %d\n", pa.Chan[0].FixBits)

	var rx, rxErr = NewReceiver(pa)
	if rxErr != nil {
		return nil, rxErr
	}

	var results = &atest_results{w: w, rx: rx, opt: o} //nolint:exhaustruct
	rx.AddPacketSink(results)
	rx.AddDCDListener(results)

	var src = NewPCMSource(io.LimitReader(r, info.DataSize), info.BitsPerSample)

	if err := RecvProcess(ctx, rx, src); err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "\n\n")

	return &AtestSummary{
		Decoded:          results.decoded,
		Duration:         info.Duration(),
		DCDCount:         results.dcd_count,
		DCDMissingErrors: results.dcd_missing_errors,
	}, nil
}

type AtestSummary struct {
	Decoded  int
	Duration float64 // Seconds of audio.

	DCDCount         int
	DCDMissingErrors int // Frames decoded while no DCD was reported.
}

func AtestMain() {
	var bitrateStr = pflag.StringP("bitrate", "B", strconv.Itoa(DEFAULT_BAUD), `Bits/second for data.  Proper modem automatically selected for speed.
300 bps defaults to AFSK tones of 1600 & 1800.
1200 bps uses AFSK tones of 1200 & 2200.
2400 bps uses QPSK based on V.26 standard.
4800 bps uses 8PSK based on V.27 standard.
9600 bps and up uses K9NG/G3RUH standard.`)
	var g3ruh = pflag.BoolP("g3ruh", "g", false, "Use G3RUH modem rather than default for data rate.")
	var direwolf15compat = pflag.BoolP("direwolf-15-compat", "j", false, "2400 bps QPSK compatible with direwolf <= 1.5.")
	var mfj2400compat = pflag.BoolP("mfj-2400-compat", "J", false, "2400 bps QPSK compatible with MFJ-2400.")
	var modemProfile = pflag.StringP("modem-profile", "P", "", "Select the demodulator type such as A (default for 300 bps), A+ (default for 1200 bps), PQRS for 2400 bps, etc.")
	var decimate = pflag.IntP("decimate", "D", 0, "Divide audio sample rate by n. 0 is auto-select.")
	var upsample = pflag.IntP("upsample", "U", 0, "Upsample for G3RUH to improve performance when the sample rate to baud ratio is low.")
	var fixBits = pflag.IntP("fix-bits", "F", 0, `Amount of effort to try fixing frames with an invalid CRC.
0 (default) = consider only correct frames.
1 = Try to fix only a single bit.
2 = Also try two adjacent bits.`)
	var errorIfLessThan = pflag.IntP("error-if-less-than", "L", -1, "Error if less than this number decoded.")
	var errorIfGreaterThan = pflag.IntP("error-if-greater-than", "G", -1, "Error if greater than this number decoded.")
	var channel0 = pflag.BoolP("channel-0", "0", false, "Use channel 0 (left) of stereo audio.  This is the default.")
	var channel1 = pflag.BoolP("channel-1", "1", false, "Use channel 1 (right) of stereo audio.")
	var channel2 = pflag.BoolP("channel-2", "2", false, "Use both channels of stereo audio.")
	var hexDisplay = pflag.BoolP("hex-display", "h", false, "Print frame contents as hexadecimal bytes.")
	var bitErrorRate = pflag.Float64P("bit-error-rate", "e", 0.0, "Receive Bit Error Rate (BER).")
	var debugFlags = pflag.StringSliceP("debug", "d", []string{}, `Debug (repeat for increased verbosity).
o = DCD output control`)
	var help = pflag.Bool("help", false, "Display help text.")
	var version = pflag.BoolP("version", "v", false, "Display version information.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s is a test application which decodes AX.25 frames from audio recordings.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "This provides an easy way to test decoding performance and functionality much quicker than normal real-time.\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTION]... <WAV FILE>...\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "$ atest test1.wav\n")
		fmt.Fprintf(os.Stderr, "$ atest -B 300 test3.wav\n")
		fmt.Fprintf(os.Stderr, "$ atest -B 9600 test9.wav\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Try different combinations of options to compare decoding performance.\n")
	}

	// !!! PARSE !!!
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(1)
	}

	if *version {
		printVersion("atest", false)
		return
	}

	var opt = &AtestOptions{ //nolint:exhaustruct
		Bitrate:      *bitrateStr,
		G3RUH:        *g3ruh,
		V26A:         *direwolf15compat,
		V26B:         *mfj2400compat,
		ModemProfile: *modemProfile,
		Decimate:     *decimate,
		Upsample:     *upsample,
		FixBits:      *fixBits,
		BitErrorRate: *bitErrorRate,
		HexDisplay:   *hexDisplay,
	}

	for _, debugFlag := range *debugFlags {
		switch debugFlag {
		case "o":
			opt.ShowDCD = true
		default:
			fmt.Fprintf(os.Stderr, "Unrecognised debug flag: %s\n", debugFlag)
			pflag.Usage()
			os.Exit(1)
		}
	}

	var channelFlagCount int
	for _, b := range []bool{*channel0, *channel1, *channel2} {
		if b {
			channelFlagCount++
		}
	}
	if channelFlagCount > 1 {
		fmt.Fprintf(os.Stderr, "Exactly one of left/right/both channels must be selected.\n")
		pflag.Usage()
		os.Exit(1)
	}
	if *channel1 {
		opt.DecodeOnly = 1
	}
	if *channel2 {
		opt.DecodeOnly = 2
	}

	if *modemProfile != "" {
		fmt.Printf("Demodulator profile set to \"%s\"\n", *modemProfile)
	}

	if _, err := AtestConfig(opt); err != nil {
		dw_log(DW_COLOR_ERROR, "Bad option", "err", err)
		pflag.Usage()
		os.Exit(1)
	}

	if len(pflag.Args()) == 0 {
		dw_log(DW_COLOR_ERROR, "Specify .WAV file name on command line.")
		pflag.Usage()
		os.Exit(1)
	}

	var stamp, _ = strftime.New("%Y-%m-%d %H:%M:%S")
	fmt.Printf("Started %s\n", stamp.FormatString(time.Now()))

	var start_time = time.Now()
	var total_filetime float64
	var packets_decoded_total int
	var dcd_count, dcd_missing_errors int

	for _, wavFileName := range pflag.Args() {
		var f, err = os.Open(wavFileName)
		if err != nil {
			dw_log(DW_COLOR_ERROR, "Couldn't open file for read", "file", wavFileName, "err", err)
			os.Exit(1)
		}

		fmt.Printf("\nDecoding %s\n", wavFileName)

		var summary, decodeErr = DecodeWAV(context.Background(), f, opt, os.Stdout)
		_ = f.Close()
		if decodeErr != nil {
			dw_log(DW_COLOR_ERROR, "Decode failed", "file", wavFileName, "err", decodeErr)
			os.Exit(1)
		}

		fmt.Printf("%d from %s\n", summary.Decoded, wavFileName)

		packets_decoded_total += summary.Decoded
		total_filetime += summary.Duration
		dcd_count += summary.DCDCount
		dcd_missing_errors += summary.DCDMissingErrors
	}

	var elapsed = time.Since(start_time)
	fmt.Printf("%d packets decoded in %.3f seconds.  %.1f x realtime\n", packets_decoded_total, elapsed.Seconds(), total_filetime/elapsed.Seconds())

	if opt.ShowDCD {
		fmt.Printf("DCD count = %d\n", dcd_count)
		fmt.Printf("DCD missing errors = %d\n", dcd_missing_errors)
	}

	if *errorIfLessThan != -1 && packets_decoded_total < *errorIfLessThan {
		dw_log(DW_COLOR_ERROR, fmt.Sprintf("TEST FAILED: number decoded is less than %d", *errorIfLessThan))
		os.Exit(1)
	}
	if *errorIfGreaterThan != -1 && packets_decoded_total > *errorIfGreaterThan {
		dw_log(DW_COLOR_ERROR, fmt.Sprintf("TEST FAILED: number decoded is greater than %d", *errorIfGreaterThan))
		os.Exit(1)
	}
}
