package direwolf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGPIODLine is a test double for gpiodOutputLine that records calls
// without requiring GPIO hardware or the gpio-sim kernel module.
type mockGPIODLine struct {
	value  int
	sets   int
	closed bool
	err    error
}

func (m *mockGPIODLine) SetValue(v int) error {
	m.value = v
	m.sets++
	return m.err
}

func (m *mockGPIODLine) Close() error {
	m.closed = true
	return nil
}

func Test_DCDIndicator(t *testing.T) {
	var mock = new(mockGPIODLine)
	var d = newDCDIndicator(mock, 1, false)

	d.ChannelBusy(1, true)
	assert.Equal(t, 1, mock.value)

	d.ChannelBusy(1, false)
	assert.Equal(t, 0, mock.value)

	d.ChannelBusy(0, true)
	assert.Equal(t, 0, mock.value, "Other channels are ignored")
	assert.Equal(t, 2, mock.sets)

	require.NoError(t, d.Close())
	assert.True(t, mock.closed)

	d.ChannelBusy(1, true)
	assert.Equal(t, 2, mock.sets, "Nothing after close")
	assert.NoError(t, d.Close(), "Second close is harmless")
}

func Test_DCDIndicator_invert(t *testing.T) {
	var mock = new(mockGPIODLine)
	var d = newDCDIndicator(mock, 0, true)

	d.ChannelBusy(0, true)
	assert.Equal(t, 0, mock.value)

	d.ChannelBusy(0, false)
	assert.Equal(t, 1, mock.value)
}

func Test_DCDIndicator_set_error(t *testing.T) {
	var mock = &mockGPIODLine{err: errors.New("line gone")} //nolint:exhaustruct
	var d = newDCDIndicator(mock, 0, false)

	assert.NotPanics(t, func() { d.ChannelBusy(0, true) })
	assert.Equal(t, 1, mock.sets)
}

func Test_DCDIndicator_from_receiver(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "A" })
	var tr = new_test_rx(t, pa)

	var mock = new(mockGPIODLine)
	tr.rx.AddChannelBusyListener(newDCDIndicator(mock, 0, false))

	tr.feed(0, test_transmit(&pa.Chan[0], pa.SamplesPerSec, test_frames[:1], nil))
	tr.feed(0, make([]int16, pa.SamplesPerSec/2))

	require.Len(t, tr.packets, 1)
	assert.GreaterOrEqual(t, mock.sets, 2, "On then off")
	assert.Equal(t, 0, mock.value)
}

func Test_parse_gpio_spec(t *testing.T) {
	var chip, offset, invert, err = parse_gpio_spec("gpiochip0:17")
	require.NoError(t, err)
	assert.Equal(t, "gpiochip0", chip)
	assert.Equal(t, 17, offset)
	assert.False(t, invert)

	chip, offset, invert, err = parse_gpio_spec("-/dev/gpiochip1:0")
	require.NoError(t, err)
	assert.Equal(t, "/dev/gpiochip1", chip)
	assert.Equal(t, 0, offset)
	assert.True(t, invert)

	for _, bad := range []string{"", "gpiochip0", ":3", "gpiochip0:", "gpiochip0:x", "gpiochip0:-1"} {
		_, _, _, err = parse_gpio_spec(bad)
		assert.ErrorIs(t, err, ErrBadConfig, bad)
	}
}

func Test_OpenDCDIndicator_bad_spec(t *testing.T) {
	var _, err = OpenDCDIndicator("nonsense", 0)
	assert.ErrorIs(t, err, ErrBadConfig)
}
