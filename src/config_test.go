package direwolf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DefaultAudioConfig(t *testing.T) {
	var pa = DefaultAudioConfig()

	assert.Equal(t, 44100, pa.SamplesPerSec)
	assert.Equal(t, 16, pa.BitsPerSample)
	assert.Equal(t, 1, pa.NumChannels)
	assert.Equal(t, MEDIUM_RADIO, pa.Chan[0].Medium)
	assert.Equal(t, MEDIUM_NONE, pa.Chan[1].Medium)
	assert.Equal(t, MODEM_AFSK, pa.Chan[0].ModemType)
	assert.Equal(t, 1200, pa.Chan[0].Baud)
	assert.Equal(t, RETRY_INVERT_SINGLE, pa.Chan[0].FixBits)
}

func Test_ParseConfig(t *testing.T) {
	var pa, err = ParseConfig([]byte(`
samples_per_sec: 48000
num_channels: 2
channels:
  - modem: afsk
    baud: 300
    mark: 1600
    space: 1800
    profiles: "a"
    num_freq: 3
    offset: 30
    fix_bits: 0
  - modem: 9600
    upsample: 2
  - modem: qpsk
    v26: A
  - modem: 8psk
    profiles: "U"
`))
	require.NoError(t, err)

	assert.Equal(t, 48000, pa.SamplesPerSec)
	assert.Equal(t, 16, pa.BitsPerSample)
	assert.Equal(t, 2, pa.NumChannels)

	var c0 = pa.Chan[0]
	assert.Equal(t, MEDIUM_RADIO, c0.Medium)
	assert.Equal(t, MODEM_AFSK, c0.ModemType)
	assert.Equal(t, 300, c0.Baud)
	assert.Equal(t, 1600, c0.MarkFreq)
	assert.Equal(t, 1800, c0.SpaceFreq)
	assert.Equal(t, 3, c0.NumFreq)
	assert.Equal(t, 30, c0.Offset)
	assert.Equal(t, RETRY_NONE, c0.FixBits)

	var c1 = pa.Chan[1]
	assert.Equal(t, MODEM_SCRAMBLE, c1.ModemType)
	assert.Equal(t, 9600, c1.Baud)
	assert.Equal(t, 2, c1.Upsample)
	assert.Equal(t, RETRY_INVERT_SINGLE, c1.FixBits, "Default when not given")

	assert.Equal(t, MODEM_QPSK, pa.Chan[2].ModemType)
	assert.Equal(t, 2400, pa.Chan[2].Baud)
	assert.Equal(t, V26_A, pa.Chan[2].V26Alt)

	assert.Equal(t, MODEM_8PSK, pa.Chan[3].ModemType)
	assert.Equal(t, 4800, pa.Chan[3].Baud)

	assert.Equal(t, MEDIUM_NONE, pa.Chan[4].Medium)

	// And the receiver is happy with all that.
	var rx, rxErr = NewReceiver(pa)
	require.NoError(t, rxErr)
	assert.Equal(t, "A", pa.Chan[0].Profiles)
	assert.Equal(t, 3, pa.Chan[0].NumSubchan())
	assert.Equal(t, 1, pa.Chan[3].NumSubchan())
	assert.NotNil(t, rx)
}

func Test_ParseConfig_empty(t *testing.T) {
	var pa, err = ParseConfig([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultAudioConfig(), pa)
}

func Test_ParseConfig_errors(t *testing.T) {
	var cases = map[string]string{
		"modem":         "channels:\n  - modem: fsk\n",
		"v26":           "channels:\n  - modem: qpsk\n    v26: C\n",
		"fix bits":      "channels:\n  - fix_bits: 3\n",
		"too many":      "channels: [{}, {}, {}, {}, {}, {}, {}]\n",
		"not a mapping": "- 1\n- 2\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			var _, err = ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}

	var _, err = ParseConfig([]byte("channels:\n  - modem: fsk\n"))
	assert.ErrorIs(t, err, ErrBadConfig)
}

func Test_LoadConfig(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "rx.yaml")

	require.NoError(t, os.WriteFile(path, []byte("samples_per_sec: 22050\n"), 0600))

	var pa, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 22050, pa.SamplesPerSec)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func Test_retry_t_String(t *testing.T) {
	assert.Equal(t, "NONE", RETRY_NONE.String())
	assert.Equal(t, "SINGLE", RETRY_INVERT_SINGLE.String())
	assert.Equal(t, "DOUBLE", RETRY_INVERT_DOUBLE.String())
	assert.Equal(t, "retry(7)", retry_t(7).String())
	assert.Equal(t, "qpsk", MODEM_QPSK.String())
}
