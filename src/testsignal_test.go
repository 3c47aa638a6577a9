package direwolf

/*
 * Transmit side, just enough to make test signals for the receivers.
 *
 * HDLC framing with bit stuffing and NRZI, then one of the modulators:
 * AFSK tones, G3RUH style baseband with optional scrambling, or the
 * phase shifts of V.26 QPSK and V.27 8PSK on an 1800 Hz carrier.
 */

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const TEST_TICKS_PER_CYCLE = 256.0 * 256.0 * 256.0 * 256.0

const TEST_PHASE_SHIFT_90 uint32 = 64 << 24
const TEST_PHASE_SHIFT_45 uint32 = 32 << 24

// Symbol (Gray code) to phase shift, in units of 90 or 45 degrees.
var test_gray2phase_v26 = [4]uint32{0, 1, 3, 2}
var test_gray2phase_v27 = [8]uint32{1, 0, 2, 3, 6, 7, 5, 4}

/*
 * HDLC framing.  The output is the line bits after NRZI.
 */

type test_hdlc_tx struct {
	bits  []int
	nrzi  int // Current line level.
	stuff int // Number of 1 data bits in a row.
}

// A 0 data bit is a change of the line level, a 1 is no change.
func (h *test_hdlc_tx) send_bit_nrzi(b int) {
	if b == 0 {
		h.nrzi = 1 - h.nrzi
	}
	h.bits = append(h.bits, h.nrzi)
}

// Flags go out without stuffing.
func (h *test_hdlc_tx) send_control_nrzi(x byte) {
	for range 8 {
		h.send_bit_nrzi(int(x & 1))
		x >>= 1
	}
	h.stuff = 0
}

// Data octets, LSB first, with a 0 inserted after 5 ones in a row.
func (h *test_hdlc_tx) send_data_nrzi(x byte) {
	for range 8 {
		h.send_bit_nrzi(int(x & 1))
		if x&1 != 0 {
			h.stuff++
			if h.stuff == 5 {
				h.send_bit_nrzi(0)
				h.stuff = 0
			}
		} else {
			h.stuff = 0
		}
		x >>= 1
	}
}

// Flags, frame, FCS low byte first, more flags.
func (h *test_hdlc_tx) send_frame(frame []byte, flags_before int, flags_after int) {
	for range flags_before {
		h.send_control_nrzi(0x7e)
	}

	for _, b := range frame {
		h.send_data_nrzi(b)
	}

	var fcs = fcs_calc(frame)
	h.send_data_nrzi(byte(fcs & 0xff))
	h.send_data_nrzi(byte(fcs >> 8))

	for range flags_after {
		h.send_control_nrzi(0x7e)
	}
}

/*
 * Modulators.
 */

type test_modulator struct {
	modem_type modem_t
	v26_alt    v26_e

	amplitude  float64 // Fraction of full scale.
	space_gain float64 // AFSK space tone relative to mark.

	ticks_per_sample int64
	ticks_per_bit    int64 // Really per symbol for PSK.

	f1_change uint32 // Mark, PSK carrier, or half the baud rate.
	f2_change uint32 // Space.

	tone_phase  uint32
	bit_len_acc int64

	lfsr      int
	bit_count int
	save_bit  int
	prev_dat  int

	out []int16
}

// For a channel configuration after NewReceiver has filled in the defaults.
func new_test_modulator(c *ChannelConfig, samples_per_sec int) *test_modulator {
	var m = &test_modulator{ //nolint:exhaustruct
		modem_type: c.ModemType,
		v26_alt:    c.V26Alt,
		amplitude:  0.25,
		space_gain: 1.0,
	}

	var change = func(freq float64) uint32 {
		return uint32(int64(math.Round(TEST_TICKS_PER_CYCLE * freq / float64(samples_per_sec))))
	}

	m.ticks_per_sample = int64(math.Round(TEST_TICKS_PER_CYCLE / float64(samples_per_sec)))

	switch c.ModemType {
	case MODEM_QPSK:
		m.ticks_per_bit = int64(math.Round(TEST_TICKS_PER_CYCLE / (float64(c.Baud) * 0.5)))
		m.f1_change = change(PSK_CARRIER_FREQ)
		m.tone_phase = TEST_PHASE_SHIFT_45
	case MODEM_8PSK:
		m.ticks_per_bit = int64(math.Round(TEST_TICKS_PER_CYCLE / (float64(c.Baud) / 3.)))
		m.f1_change = change(PSK_CARRIER_FREQ)
	case MODEM_BASEBAND, MODEM_SCRAMBLE:
		m.ticks_per_bit = int64(math.Round(TEST_TICKS_PER_CYCLE / float64(c.Baud)))
		m.f1_change = change(float64(c.Baud) * 0.5)
	case MODEM_AFSK:
		m.ticks_per_bit = int64(math.Round(TEST_TICKS_PER_CYCLE / float64(c.Baud)))
		m.f1_change = change(float64(c.MarkFreq))
		m.f2_change = change(float64(c.SpaceFreq))
	}

	return m
}

func (m *test_modulator) put_sample(phase uint32, gain float64) {
	var s = m.amplitude * gain * 32767 * math.Sin(2*math.Pi*float64(phase)/TEST_TICKS_PER_CYCLE)
	m.out = append(m.out, int16(math.Round(s)))
}

func (m *test_modulator) put_bit(dat int) {

	switch m.modem_type {
	case MODEM_QPSK:
		dat &= 1
		if m.bit_count&1 == 0 {
			m.save_bit = dat
			m.bit_count++
			return
		}

		var dibit = (m.save_bit << 1) | dat
		m.tone_phase += test_gray2phase_v26[dibit] * TEST_PHASE_SHIFT_90
		if m.v26_alt == V26_B {
			m.tone_phase += TEST_PHASE_SHIFT_45
		}
		m.bit_count++

	case MODEM_8PSK:
		dat &= 1
		if m.bit_count < 2 {
			m.save_bit = (m.save_bit << 1) | dat
			m.bit_count++
			return
		}

		var tribit = (m.save_bit << 1) | dat
		m.tone_phase += test_gray2phase_v27[tribit] * TEST_PHASE_SHIFT_45
		m.save_bit = 0
		m.bit_count = 0

	case MODEM_SCRAMBLE:
		var x = (dat ^ (m.lfsr >> 16) ^ (m.lfsr >> 11)) & 1
		m.lfsr = (m.lfsr << 1) | x
		dat = x

	case MODEM_AFSK, MODEM_BASEBAND:
	}

	for { /* until enough audio samples for this symbol. */

		switch m.modem_type {
		case MODEM_AFSK:
			// A data '1' is the mark tone.
			if dat > 0 {
				m.tone_phase += m.f1_change
				m.put_sample(m.tone_phase, 1.0)
			} else {
				m.tone_phase += m.f2_change
				m.put_sample(m.tone_phase, m.space_gain)
			}

		case MODEM_QPSK, MODEM_8PSK:
			m.tone_phase += m.f1_change
			m.put_sample(m.tone_phase, 1.0)

		case MODEM_BASEBAND, MODEM_SCRAMBLE:
			if dat != m.prev_dat {
				m.tone_phase += m.f1_change
			} else if m.tone_phase&0x80000000 != 0 {
				m.tone_phase = 0xc0000000 // 270 degrees.
			} else {
				m.tone_phase = 0x40000000 // 90 degrees.
			}
			m.put_sample(m.tone_phase, 1.0)
		}

		m.bit_len_acc += m.ticks_per_sample
		if m.bit_len_acc >= m.ticks_per_bit {
			break
		}
	}

	m.bit_len_acc -= m.ticks_per_bit
	m.prev_dat = dat
}

func (m *test_modulator) silence(n int) {
	for range n {
		m.out = append(m.out, 0)
	}
}

/*
 * AX.25 UI frame from text addresses, e.g. "WB2OSZ-15".
 */

func test_ax25_addr(call string, last bool) []byte {
	var name, ssid_text, _ = strings.Cut(call, "-")
	var ssid, _ = strconv.Atoi(ssid_text)

	var a = make([]byte, AX25_ADDR_LEN)
	for i := range 6 {
		var c = byte(' ')
		if i < len(name) {
			c = name[i]
		}
		a[i] = c << 1
	}
	a[6] = 0x60 | byte(ssid<<1)
	if last {
		a[6] |= 0x01
	}
	return a
}

func test_ax25_frame(src string, dst string, info string) []byte {
	var frame []byte
	frame = append(frame, test_ax25_addr(dst, false)...)
	frame = append(frame, test_ax25_addr(src, true)...)
	frame = append(frame, 0x03, 0xf0)
	frame = append(frame, info...)
	return frame
}

// Line bits for each frame with a generous preamble.
func test_hdlc_bits(baud int, frames [][]byte) [][]int {
	var preamble = max(baud/40, 16) // About 0.2 seconds of flags.

	var result [][]int
	for _, f := range frames {
		var h test_hdlc_tx
		h.send_frame(f, preamble, 4)
		result = append(result, h.bits)
	}
	return result
}

// Audio for the frames, with silence before, between and after.
func test_transmit(c *ChannelConfig, samples_per_sec int, frames [][]byte, tweak func(*test_modulator)) []int16 {
	var m = new_test_modulator(c, samples_per_sec)
	if tweak != nil {
		tweak(m)
	}

	m.silence(samples_per_sec / 10)
	for _, bits := range test_hdlc_bits(c.Baud, frames) {
		for _, b := range bits {
			m.put_bit(b)
		}
		m.silence(samples_per_sec / 10)
	}
	return m.out
}

/*
 * Receive side plumbing.
 */

type test_rx struct {
	rx      *Receiver
	packets []*Packet
}

func new_test_rx(t *testing.T, pa *AudioConfig) *test_rx {
	t.Helper()

	var rx, err = NewReceiver(pa)
	require.NoError(t, err)

	var tr = &test_rx{rx: rx} //nolint:exhaustruct
	rx.AddPacketSink(PacketSinkFunc(func(p *Packet) {
		tr.packets = append(tr.packets, p)
	}))
	return tr
}

func (tr *test_rx) feed(channel int, samples []int16) {
	for _, s := range samples {
		tr.rx.ProcessChannelSample(channel, int(s))
	}
}

// Channel 0 of a default configuration, changed by setup.
func test_config(samples_per_sec int, setup func(c *ChannelConfig)) *AudioConfig {
	var pa = DefaultAudioConfig()
	pa.SamplesPerSec = samples_per_sec
	setup(&pa.Chan[0])
	return pa
}

var test_frames = [][]byte{
	test_ax25_frame("WB2OSZ-15", "TEST", "The quick brown fox jumps over the lazy dog!  1 of 2"),
	test_ax25_frame("WB2OSZ-15", "TEST", "The quick brown fox jumps over the lazy dog!  2 of 2"),
}
