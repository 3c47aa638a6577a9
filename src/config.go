package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Receive configuration: audio device parameters and
 *		the modem settings for each radio channel.
 *
 * Description:	The settings can be filled in directly, from the
 *		command line, or from a YAML file like this:
 *
 *			samples_per_sec: 48000
 *			channels:
 *			  - modem: afsk
 *			    baud: 1200
 *			    mark: 1200
 *			    space: 2200
 *			    profiles: "A+"
 *
 *----------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrBadConfig      = errors.New("invalid receive configuration")
	ErrFilterTooLarge = errors.New("filter too large")
	ErrRatioTooLow    = errors.New("sample rate too low for baud rate")
)

type modem_t int

const (
	MODEM_AFSK modem_t = iota
	MODEM_BASEBAND
	MODEM_SCRAMBLE
	MODEM_QPSK
	MODEM_8PSK
)

func (m modem_t) String() string {
	switch m {
	case MODEM_AFSK:
		return "afsk"
	case MODEM_BASEBAND:
		return "baseband"
	case MODEM_SCRAMBLE:
		return "scramble"
	case MODEM_QPSK:
		return "qpsk"
	case MODEM_8PSK:
		return "8psk"
	}
	return fmt.Sprintf("modem(%d)", int(m))
}

// V.26 alternative A or B for 2400 bps QPSK.
type v26_e int

const (
	V26_UNSPECIFIED v26_e = iota
	V26_A
	V26_B
)

const V26_DEFAULT = V26_B

// How hard the second stage works at fixing a frame with a bad FCS.
type retry_t int

const (
	RETRY_NONE retry_t = iota
	RETRY_INVERT_SINGLE
	RETRY_INVERT_DOUBLE
	RETRY_MAX
)

var retry_text = [RETRY_MAX]string{"NONE", "SINGLE", "DOUBLE"}

func (r retry_t) String() string {
	if r >= RETRY_NONE && r < RETRY_MAX {
		return retry_text[r]
	}
	return fmt.Sprintf("retry(%d)", int(r))
}

type medium_e int

const (
	MEDIUM_NONE medium_e = iota // Channel is not valid for use.
	MEDIUM_RADIO                // Internal modem for radio.
)

const DEFAULT_SAMPLES_PER_SEC = 44100
const DEFAULT_BITS_PER_SAMPLE = 16
const DEFAULT_BAUD = 1200
const DEFAULT_MARK_FREQ = 1200
const DEFAULT_SPACE_FREQ = 2200

/* Per radio channel. */

type ChannelConfig struct {
	Medium medium_e

	ModemType modem_t

	Baud int // Bits per second for PSK, symbols per second for the others.

	MarkFreq  int // Two tones for AFSK modulation, in Hz.
	SpaceFreq int

	Profiles string // Demodulator profile letters, optional trailing + or -.

	NumFreq int // Number of different frequency pairs for decoders.
	Offset  int // Spacing between filter frequencies.

	Decimate int // Reduce AFSK sample rate by this factor.  0 = automatic.
	Upsample int // Upsample by this factor for 9600 baud.  0 = automatic.

	V26Alt v26_e

	FixBits retry_t // Level of effort to recover from a bad FCS on the frame.

	// Filled in by the receiver.

	num_subchan int
	num_slicers int
}

type AudioConfig struct {
	SamplesPerSec int // Audio sampling rate.
	BitsPerSample int // 8 or 16.
	NumChannels   int // Interleaved channels in the audio stream, 1 or 2.

	RecvBER float64 // Receive bit error rate, for testing the decoders.

	Chan [MAX_RADIO_CHANS]ChannelConfig
}

// Sensible defaults: one 1200 baud AFSK channel.
func DefaultAudioConfig() *AudioConfig {
	var pa = new(AudioConfig)

	pa.SamplesPerSec = DEFAULT_SAMPLES_PER_SEC
	pa.BitsPerSample = DEFAULT_BITS_PER_SAMPLE
	pa.NumChannels = 1

	for ch := range MAX_RADIO_CHANS {
		pa.Chan[ch] = ChannelConfig{
			Medium:    MEDIUM_NONE,
			ModemType: MODEM_AFSK,
			Baud:      DEFAULT_BAUD,
			MarkFreq:  DEFAULT_MARK_FREQ,
			SpaceFreq: DEFAULT_SPACE_FREQ,
			NumFreq:   1,
			Offset:    0,
			V26Alt:    V26_UNSPECIFIED,
			FixBits:   RETRY_INVERT_SINGLE,
		}
	}
	pa.Chan[0].Medium = MEDIUM_RADIO

	return pa
}

// Number of demodulators on a channel, after NewReceiver has normalized things.
func (c *ChannelConfig) NumSubchan() int {
	return c.num_subchan
}

// Number of slicers per demodulator, after NewReceiver has normalized things.
func (c *ChannelConfig) NumSlicers() int {
	return c.num_slicers
}

/*
 * The YAML form.
 * Zero values mean "use the default."
 */

type yamlChannel struct {
	Modem    string `yaml:"modem"`
	Baud     int    `yaml:"baud"`
	Mark     int    `yaml:"mark"`
	Space    int    `yaml:"space"`
	Profiles string `yaml:"profiles"`
	NumFreq  int    `yaml:"num_freq"`
	Offset   int    `yaml:"offset"`
	Decimate int    `yaml:"decimate"`
	Upsample int    `yaml:"upsample"`
	V26      string `yaml:"v26"`
	FixBits  *int   `yaml:"fix_bits"`
}

type yamlConfig struct {
	SamplesPerSec int           `yaml:"samples_per_sec"`
	BitsPerSample int           `yaml:"bits_per_sample"`
	NumChannels   int           `yaml:"num_channels"`
	RecvBER       float64       `yaml:"recv_ber"`
	Channels      []yamlChannel `yaml:"channels"`
}

/*------------------------------------------------------------------
 *
 * Name:        ParseConfig
 *
 * Purpose:     Build the receive configuration from a YAML document.
 *
 * Returns:	Configuration or error.  Channels are numbered in
 *		the order they appear.
 *
 *----------------------------------------------------------------*/

func ParseConfig(data []byte) (*AudioConfig, error) {
	var y yamlConfig

	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var pa = DefaultAudioConfig()

	if y.SamplesPerSec != 0 {
		pa.SamplesPerSec = y.SamplesPerSec
	}
	if y.BitsPerSample != 0 {
		pa.BitsPerSample = y.BitsPerSample
	}
	if y.NumChannels != 0 {
		pa.NumChannels = y.NumChannels
	}
	pa.RecvBER = y.RecvBER

	if len(y.Channels) > MAX_RADIO_CHANS {
		return nil, fmt.Errorf("%d channels, no more than %d allowed: %w", len(y.Channels), MAX_RADIO_CHANS, ErrBadConfig)
	}

	if len(y.Channels) > 0 {
		pa.Chan[0].Medium = MEDIUM_NONE
	}

	for ch, yc := range y.Channels {
		var c = &pa.Chan[ch]

		c.Medium = MEDIUM_RADIO

		var mt, err = parse_modem_type(yc.Modem)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		c.ModemType = mt

		if yc.Baud != 0 {
			c.Baud = yc.Baud
		} else {
			c.Baud = default_baud(mt)
		}
		if yc.Mark != 0 {
			c.MarkFreq = yc.Mark
		}
		if yc.Space != 0 {
			c.SpaceFreq = yc.Space
		}
		c.Profiles = yc.Profiles
		if yc.NumFreq != 0 {
			c.NumFreq = yc.NumFreq
		}
		c.Offset = yc.Offset
		c.Decimate = yc.Decimate
		c.Upsample = yc.Upsample

		switch strings.ToUpper(yc.V26) {
		case "":
			c.V26Alt = V26_UNSPECIFIED
		case "A", "V26A":
			c.V26Alt = V26_A
		case "B", "V26B":
			c.V26Alt = V26_B
		default:
			return nil, fmt.Errorf("channel %d: v26 alternative %q is not A or B: %w", ch, yc.V26, ErrBadConfig)
		}

		if yc.FixBits != nil {
			if *yc.FixBits < int(RETRY_NONE) || *yc.FixBits >= int(RETRY_MAX) {
				return nil, fmt.Errorf("channel %d: fix_bits %d out of range 0 to %d: %w", ch, *yc.FixBits, int(RETRY_MAX)-1, ErrBadConfig)
			}
			c.FixBits = retry_t(*yc.FixBits)
		}
	}

	return pa, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (*AudioConfig, error) {
	var data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var pa, parseErr = ParseConfig(data)
	if parseErr != nil {
		return nil, fmt.Errorf("%s: %w", path, parseErr)
	}

	return pa, nil
}

func parse_modem_type(s string) (modem_t, error) {
	switch strings.ToLower(s) {
	case "", "afsk":
		return MODEM_AFSK, nil
	case "baseband":
		return MODEM_BASEBAND, nil
	case "scramble", "g3ruh", "9600":
		return MODEM_SCRAMBLE, nil
	case "qpsk", "2400":
		return MODEM_QPSK, nil
	case "8psk", "4800":
		return MODEM_8PSK, nil
	}
	return MODEM_AFSK, fmt.Errorf("unknown modem type %q: %w", s, ErrBadConfig)
}

func default_baud(mt modem_t) int {
	switch mt {
	case MODEM_BASEBAND, MODEM_SCRAMBLE:
		return 9600
	case MODEM_QPSK:
		return 2400
	case MODEM_8PSK:
		return 4800
	case MODEM_AFSK:
	}
	return DEFAULT_BAUD
}
