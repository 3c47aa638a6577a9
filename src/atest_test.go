package direwolf

import (
	"bytes"
	"context"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testWAVFormat struct {
	tag             uint16
	channels        uint16
	samples_per_sec uint32
	bits            uint16
	list            bool // Put a LIST chunk first.
	fmt18           bool // Add the cbSize field.
}

func pcmWAVFormat(samples_per_sec int, bits int, channels int) testWAVFormat {
	return testWAVFormat{
		tag:             1,
		channels:        uint16(channels),
		samples_per_sec: uint32(samples_per_sec),
		bits:            uint16(bits),
	}
}

func buildWAV(f testWAVFormat, data []byte) []byte {
	var body bytes.Buffer

	body.WriteString("WAVE")

	if f.list {
		body.WriteString("LIST")
		_ = binary.Write(&body, binary.LittleEndian, uint32(4))
		body.WriteString("INFO")
	}

	body.WriteString("fmt ")
	_ = binary.Write(&body, binary.LittleEndian, uint32(IfThenElse(f.fmt18, 18, 16)))

	var block_align = f.channels * f.bits / 8
	_ = binary.Write(&body, binary.LittleEndian, wav_format{
		Wformattag:      f.tag,
		Nchannels:       f.channels,
		Nsamplespersec:  f.samples_per_sec,
		Navgbytespersec: f.samples_per_sec * uint32(block_align),
		Nblockalign:     block_align,
		Wbitspersample:  f.bits,
	})
	if f.fmt18 {
		_ = binary.Write(&body, binary.LittleEndian, uint16(0))
	}

	body.WriteString("data")
	_ = binary.Write(&body, binary.LittleEndian, uint32(len(data)))
	body.Write(data)

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

func monoPCM16(samples []int16) []byte {
	var out = make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}
	return out
}

func Test_ReadWAVHeader(t *testing.T) {
	for _, f := range []testWAVFormat{
		pcmWAVFormat(44100, 16, 1),
		{tag: 1, channels: 2, samples_per_sec: 22050, bits: 8, list: true, fmt18: false},
		{tag: 1, channels: 1, samples_per_sec: 48000, bits: 16, list: true, fmt18: true},
	} {
		var r = bytes.NewReader(buildWAV(f, []byte{1, 2, 3, 4}))

		var info, err = ReadWAVHeader(r)
		require.NoError(t, err)
		assert.Equal(t, int(f.samples_per_sec), info.SamplesPerSec)
		assert.Equal(t, int(f.bits), info.BitsPerSample)
		assert.Equal(t, int(f.channels), info.NumChannels)
		assert.Equal(t, int64(4), info.DataSize)
		assert.Equal(t, 4, r.Len(), "Left at the audio")
	}
}

func Test_ReadWAVHeader_errors(t *testing.T) {
	var good = pcmWAVFormat(44100, 16, 1)

	var float = good
	float.tag = 3

	var surround = good
	surround.channels = 6

	var deep = good
	deep.bits = 24

	var silent = good
	silent.samples_per_sec = 0

	for name, data := range map[string][]byte{
		"not riff":    []byte("RIFX\x00\x00\x00\x00WAVEfmt "),
		"format tag":  buildWAV(float, nil),
		"channels":    buildWAV(surround, nil),
		"bits":        buildWAV(deep, nil),
		"sample rate": buildWAV(silent, nil),
		"no data":     bytes.Replace(buildWAV(good, nil), []byte("data"), []byte("junk"), 1),
		"no fmt":      bytes.Replace(buildWAV(good, nil), []byte("fmt "), []byte("fmx "), 1),
	} {
		t.Run(name, func(t *testing.T) {
			var _, err = ReadWAVHeader(bytes.NewReader(data))
			assert.ErrorIs(t, err, ErrBadWAV)
		})
	}

	var _, err = ReadWAVHeader(bytes.NewReader([]byte("RIFF")))
	assert.Error(t, err, "Truncated")
}

func Test_WAVInfo_Duration(t *testing.T) {
	var info = WAVInfo{SamplesPerSec: 44100, BitsPerSample: 16, NumChannels: 2, DataSize: 44100 * 4 * 3}
	assert.InDelta(t, 3.0, info.Duration(), 1e-9)
}

func Test_AtestConfig(t *testing.T) {
	var tests = []struct {
		opt    AtestOptions
		modem  modem_t
		baud   int
		mark   int
		space  int
		v26    v26_e
		prof   string
		medium medium_e
	}{
		{AtestOptions{}, MODEM_AFSK, 1200, 1200, 2200, V26_UNSPECIFIED, "", MEDIUM_RADIO},
		{AtestOptions{Bitrate: "300"}, MODEM_AFSK, 300, 1600, 1800, V26_UNSPECIFIED, "", MEDIUM_RADIO},
		{AtestOptions{Bitrate: "100"}, MODEM_AFSK, 100, 1615, 1785, V26_UNSPECIFIED, "", MEDIUM_RADIO},
		{AtestOptions{Bitrate: "2400"}, MODEM_QPSK, 2400, 0, 0, V26_UNSPECIFIED, "", MEDIUM_RADIO},
		{AtestOptions{Bitrate: "4800", ModemProfile: "W"}, MODEM_8PSK, 4800, 0, 0, V26_UNSPECIFIED, "W", MEDIUM_RADIO},
		{AtestOptions{Bitrate: "9600"}, MODEM_SCRAMBLE, 9600, 0, 0, V26_UNSPECIFIED, "", MEDIUM_RADIO},
		{AtestOptions{Bitrate: "1200", G3RUH: true}, MODEM_SCRAMBLE, 1200, 0, 0, V26_UNSPECIFIED, "", MEDIUM_RADIO},
		{AtestOptions{V26A: true}, MODEM_QPSK, 2400, 0, 0, V26_A, "", MEDIUM_RADIO},
		{AtestOptions{Bitrate: "300", V26B: true}, MODEM_QPSK, 2400, 0, 0, V26_B, "", MEDIUM_RADIO},
		{AtestOptions{ModemProfile: "B"}, MODEM_AFSK, 1200, 1200, 2200, V26_UNSPECIFIED, "B", MEDIUM_RADIO},
	}

	for _, tt := range tests {
		var pa, err = AtestConfig(&tt.opt)
		require.NoError(t, err)

		var c = pa.Chan[0]
		assert.Equal(t, tt.modem, c.ModemType, tt.opt)
		assert.Equal(t, tt.baud, c.Baud, tt.opt)
		assert.Equal(t, tt.mark, c.MarkFreq, tt.opt)
		assert.Equal(t, tt.space, c.SpaceFreq, tt.opt)
		assert.Equal(t, tt.v26, c.V26Alt, tt.opt)
		assert.Equal(t, tt.prof, c.Profiles, tt.opt)
		assert.Equal(t, tt.medium, c.Medium, tt.opt)

		assert.Equal(t, c.ModemType, pa.Chan[1].ModemType, "Right channel is the same")
	}
}

func Test_AtestConfig_options(t *testing.T) {
	var pa, err = AtestConfig(&AtestOptions{Decimate: 2, Upsample: 3, FixBits: 2, BitErrorRate: 0.01}) //nolint:exhaustruct
	require.NoError(t, err)
	assert.Equal(t, 2, pa.Chan[0].Decimate)
	assert.Equal(t, 3, pa.Chan[0].Upsample)
	assert.Equal(t, RETRY_INVERT_DOUBLE, pa.Chan[0].FixBits)
	assert.InDelta(t, 0.01, pa.RecvBER, 0)
}

func Test_AtestConfig_errors(t *testing.T) {
	for _, o := range []AtestOptions{
		{Bitrate: "fast"},
		{Bitrate: "50"},
		{Bitrate: "50000"},
		{Decimate: 9},
		{Upsample: MAX_UPSAMPLE + 1},
		{FixBits: 3},
		{FixBits: -1},
		{DecodeOnly: 3},
	} {
		var _, err = AtestConfig(&o)
		assert.ErrorIs(t, err, ErrBadConfig, o)
	}
}

func Test_DecodeWAV(t *testing.T) {
	var c = DefaultAudioConfig().Chan[0]
	var samples = test_transmit(&c, 44100, test_frames, nil)

	var wav = buildWAV(pcmWAVFormat(44100, 16, 1), monoPCM16(samples))

	var out bytes.Buffer
	var summary, err = DecodeWAV(context.Background(), bytes.NewReader(wav), &AtestOptions{ShowDCD: true, HexDisplay: true}, &out) //nolint:exhaustruct
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Decoded)
	assert.InDelta(t, float64(len(samples))/44100, summary.Duration, 1e-9)
	assert.GreaterOrEqual(t, summary.DCDCount, 1)
	assert.Equal(t, 0, summary.DCDMissingErrors)

	var text = out.String()
	assert.True(t, strings.HasPrefix(text, "44100 samples per second.  16 bits per sample.  1 audio channels.\n"), text)
	assert.Contains(t, text, "DECODED[1] ")
	assert.Contains(t, text, "DECODED[2] ")
	assert.Contains(t, text, "WB2OSZ-15 audio level = ")
	assert.Contains(t, text, "WB2OSZ-15>TEST:The quick brown fox jumps over the lazy dog!  1 of 2\n")
	assert.Contains(t, text, "WB2OSZ-15>TEST:The quick brown fox jumps over the lazy dog!  2 of 2\n")
	assert.Contains(t, text, "  000:  a8 8a a6 a8 40 40 60")
	assert.Contains(t, text, "DCD[0]  0:")
}

func Test_DecodeWAV_8bit(t *testing.T) {
	var c = DefaultAudioConfig().Chan[0]
	var samples = test_transmit(&c, 22050, test_frames[:1], nil)

	var data = make([]byte, len(samples))
	for i, s := range samples {
		data[i] = byte(int(s)/256 + 128)
	}

	var out bytes.Buffer
	var summary, err = DecodeWAV(context.Background(), bytes.NewReader(buildWAV(pcmWAVFormat(22050, 8, 1), data)), &AtestOptions{}, &out) //nolint:exhaustruct
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Decoded)
}

func Test_DecodeWAV_right_channel(t *testing.T) {
	var c = DefaultAudioConfig().Chan[0]
	var left = test_transmit(&c, 44100, test_frames, nil)
	var right = test_transmit(&c, 44100, test_frames[1:], nil)

	var wav = buildWAV(pcmWAVFormat(44100, 16, 2), stereoPCM(left, right))

	var out bytes.Buffer
	var summary, err = DecodeWAV(context.Background(), bytes.NewReader(wav), &AtestOptions{DecodeOnly: 1}, &out) //nolint:exhaustruct
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Decoded)
	assert.Contains(t, out.String(), "2 of 2")
	assert.NotContains(t, out.String(), "1 of 2")
}

func Test_DecodeWAV_bad(t *testing.T) {
	var _, err = DecodeWAV(context.Background(), strings.NewReader("not a wav file at all"), &AtestOptions{}, new(bytes.Buffer)) //nolint:exhaustruct
	assert.ErrorIs(t, err, ErrBadWAV)
}

func Test_station_heard(t *testing.T) {
	assert.Equal(t, "WB2OSZ-15", station_heard("WB2OSZ-15>TEST:", 1))
	assert.Equal(t, "W1AW", station_heard("N0CALL>APRS,W1AW*,WIDE2-1:", 2))
	assert.Equal(t, "WIDE2 (probably W1AW)", station_heard("N0CALL>APRS,W1AW,WIDE2*:", 3))
	assert.Equal(t, "", station_heard("A>B:", 5))
}
