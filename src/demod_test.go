package direwolf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Send the test frames through a receiver for the configuration and
// check they all come out, in order, unchanged.
func checkRoundTrip(t *testing.T, pa *AudioConfig, tweak func(*test_modulator)) *test_rx {
	t.Helper()

	var tr = new_test_rx(t, pa)
	var audio = test_transmit(&pa.Chan[0], pa.SamplesPerSec, test_frames, tweak)

	tr.feed(0, audio)

	require.Len(t, tr.packets, len(test_frames))
	for i, p := range tr.packets {
		assert.Equal(t, test_frames[i], p.Frame)
		assert.Equal(t, 0, p.Channel)
	}

	assert.Equal(t, int64(len(audio)), tr.rx.SamplesProcessed(0))

	return tr
}

func Test_demod_afsk_1200(t *testing.T) {
	for _, profile := range []string{"A", "B"} {
		t.Run(profile, func(t *testing.T) {
			var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = profile })
			var tr = checkRoundTrip(t, pa, nil)

			for _, p := range tr.packets {
				assert.Equal(t, RETRY_NONE, p.Retries)
				assert.Empty(t, p.Spectrum, "Only one demodulator and one slicer")
				assert.InDelta(t, 0.0, p.SpeedError, 1.0)
			}
		})
	}
}

func Test_demod_afsk_1200_multiple_slicers(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "" })

	// Typical of FM with pre-emphasis that was never undone.
	var tr = checkRoundTrip(t, pa, func(m *test_modulator) { m.space_gain = 0.4 })

	assert.Equal(t, "A+", pa.Chan[0].Profiles)
	assert.Equal(t, 1, pa.Chan[0].NumSubchan())
	assert.Equal(t, MAX_SLICERS, pa.Chan[0].NumSlicers())

	for _, p := range tr.packets {
		assert.Len(t, p.Spectrum, MAX_SLICERS)
		assert.Contains(t, p.Spectrum, "|")
		assert.Equal(t, 0, p.Subchannel)
	}
}

func Test_demod_afsk_skewed_tones(t *testing.T) {
	// Space a third of mark.  The fixed threshold at the bottom of the
	// gain ladder misses; those that boost the space tone get it.
	var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "A+" })
	var tr = checkRoundTrip(t, pa, func(m *test_modulator) { m.space_gain = 1. / 3. })

	for _, p := range tr.packets {
		require.Len(t, p.Spectrum, MAX_SLICERS)
		assert.Equal(t, byte('_'), p.Spectrum[0], p.Spectrum)
		assert.NotContains(t, p.Spectrum[3:8], "_", p.Spectrum)
	}

	// Space three times mark.
	pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "A+" })
	tr = checkRoundTrip(t, pa, func(m *test_modulator) { m.space_gain = 3 })

	for _, p := range tr.packets {
		require.Len(t, p.Spectrum, MAX_SLICERS)
		assert.NotContains(t, p.Spectrum[:3], "_", p.Spectrum)
	}
}

func Test_demod_afsk_steady_tone(t *testing.T) {
	for _, profile := range []string{"A", "B"} {
		t.Run(profile, func(t *testing.T) {
			var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = profile })
			var tr = new_test_rx(t, pa)
			var baud = pa.Chan[0].Baud

			var bits []int
			tr.rx.AddBitObserver(BitObserverFunc(func(ev BitEvent) {
				bits = append(bits, ev.Raw)
			}))

			// Two seconds of mark.
			var m = new_test_modulator(&pa.Chan[0], pa.SamplesPerSec)
			for range 2 * baud {
				m.put_bit(1)
			}
			tr.feed(0, m.out)

			// Give the AGC a second to settle.
			require.Greater(t, len(bits), baud+50)
			var settled = bits[baud:]

			var transitions = 0
			for i := 1; i < len(settled); i++ {
				if settled[i] != settled[i-1] {
					transitions++
				}
			}
			assert.Zero(t, transitions)
			assert.Empty(t, tr.packets)
		})
	}
}

func Test_demod_afsk_multiple_profiles(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "AB" })
	var tr = checkRoundTrip(t, pa, nil)

	assert.Equal(t, 2, pa.Chan[0].NumSubchan())
	assert.Equal(t, 1, pa.Chan[0].NumSlicers())

	for _, p := range tr.packets {
		assert.Len(t, p.Spectrum, 2)
	}
}

func Test_demod_afsk_300(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) {
		c.Baud = 300
		c.MarkFreq = 1600
		c.SpaceFreq = 1800
	})

	checkRoundTrip(t, pa, nil)

	assert.Equal(t, 3, pa.Chan[0].Decimate, "Low speed at a high sample rate should decimate")
}

func Test_demod_9600(t *testing.T) {
	for _, mt := range []modem_t{MODEM_SCRAMBLE, MODEM_BASEBAND} {
		t.Run(mt.String(), func(t *testing.T) {
			var pa = test_config(48000, func(c *ChannelConfig) {
				c.ModemType = mt
				c.Baud = 9600
			})

			var tr = checkRoundTrip(t, pa, nil)

			assert.Equal(t, 3, pa.Chan[0].Upsample)
			assert.Equal(t, MAX_SLICERS, pa.Chan[0].NumSlicers())

			for _, p := range tr.packets {
				assert.Len(t, p.Spectrum, MAX_SLICERS)
			}
		})
	}
}

func Test_demod_qpsk(t *testing.T) {
	for _, alt := range []v26_e{V26_A, V26_B} {
		t.Run(IfThenElse(alt == V26_A, "V26A", "V26B"), func(t *testing.T) {
			var pa = test_config(44100, func(c *ChannelConfig) {
				c.ModemType = MODEM_QPSK
				c.Baud = 2400
				c.V26Alt = alt
			})

			var tr = checkRoundTrip(t, pa, nil)

			assert.Equal(t, "PQRS", pa.Chan[0].Profiles)
			for _, p := range tr.packets {
				assert.Len(t, p.Spectrum, 4)
				assert.Equal(t, -1, p.Alevel.Mark, "No tones for PSK")
			}
		})
	}
}

func Test_demod_qpsk_default_v26(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) {
		c.ModemType = MODEM_QPSK
		c.Baud = 2400
	})

	var _, err = NewReceiver(pa)
	require.NoError(t, err)
	assert.Equal(t, V26_B, pa.Chan[0].V26Alt)
}

func Test_demod_8psk(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) {
		c.ModemType = MODEM_8PSK
		c.Baud = 4800
	})

	var tr = checkRoundTrip(t, pa, nil)

	assert.Equal(t, "TUVW", pa.Chan[0].Profiles)
	for _, p := range tr.packets {
		assert.Len(t, p.Spectrum, 4)
	}
}

func Test_demod_two_channels(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "A" })
	pa.Chan[1] = pa.Chan[0]

	var tr = new_test_rx(t, pa)
	var audio = test_transmit(&pa.Chan[0], pa.SamplesPerSec, test_frames[:1], nil)

	tr.feed(1, audio)

	require.Len(t, tr.packets, 1)
	assert.Equal(t, 1, tr.packets[0].Channel)
	assert.Equal(t, int64(0), tr.rx.SamplesProcessed(0))
}

func Test_demod_mute(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "A" })
	var tr = new_test_rx(t, pa)

	tr.rx.MuteInput(0, true)
	tr.feed(0, test_transmit(&pa.Chan[0], pa.SamplesPerSec, test_frames, nil))

	assert.Empty(t, tr.packets)
	assert.Equal(t, 0, tr.rx.GetAudioLevel(0, 0).Rec)
}

func Test_demod_audio_level(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "A" })
	var tr = new_test_rx(t, pa)

	assert.Equal(t, noAudioLevel, tr.rx.GetAudioLevel(1, 0), "Channel not in use")

	tr.feed(0, test_transmit(&pa.Chan[0], pa.SamplesPerSec, test_frames[:1], nil))

	require.Len(t, tr.packets, 1)

	// Quarter of full scale comes out as about 50.
	var alevel = tr.packets[0].Alevel
	assert.InDelta(t, 50, alevel.Rec, 12)
	assert.Positive(t, alevel.Mark)
	assert.Positive(t, alevel.Space)
	assert.False(t, alevel.TooHigh())
}

func Test_demod_bit_observer(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "A" })
	var tr = new_test_rx(t, pa)

	var count = 0
	tr.rx.AddBitObserver(BitObserverFunc(func(ev BitEvent) {
		assert.Contains(t, []int{0, 1}, ev.Raw)
		assert.False(t, ev.IsScrambled)
		count++
	}))

	var audio = test_transmit(&pa.Chan[0], pa.SamplesPerSec, test_frames[:1], nil)
	tr.feed(0, audio)

	// One bit per symbol time, give or take the PLL.
	var expected = len(audio) * pa.Chan[0].Baud / pa.SamplesPerSec
	assert.InDelta(t, expected, count, float64(expected)/50)
}

func Test_demod_frame_sink_replaced(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "A" })
	var tr = new_test_rx(t, pa)

	var frames [][]byte
	tr.rx.SetFrameSink(FrameSinkFunc(func(b *RRBB) {
		assert.GreaterOrEqual(t, b.Len(), MIN_FRAME_LEN*8)
		frames = append(frames, b.Frame)
	}))

	tr.feed(0, test_transmit(&pa.Chan[0], pa.SamplesPerSec, test_frames, nil))

	assert.Empty(t, tr.packets, "Nothing goes past a replacement frame sink")

	// Octets collected on the fly still have the FCS.
	for _, f := range test_frames {
		var fcs = fcs_calc(f)
		var expected = append(append([]byte(nil), f...), byte(fcs&0xff), byte(fcs>>8))
		assert.Contains(t, frames, expected)
	}
}

func Test_demod_pll_step(t *testing.T) {
	var D demodulator_state_s

	require.NoError(t, demod_afsk_init(44100, 1200, 1200, 2200, 'A', &D))
	assert.Equal(t, int32(116869858), D.pll_step_per_sample)
	assert.Same(t, DCD_CONFIG_AFSK, D.dcd)

	require.NoError(t, demod_afsk_init(14700, 300, 1600, 1800, 'B', &D))
	assert.Equal(t, int32(87652394), D.pll_step_per_sample)

	demod_9600_init(MODEM_SCRAMBLE, 48000, 3, 9600, &D)
	assert.Equal(t, int32(286331153), D.pll_step_per_sample)
	assert.Same(t, DCD_CONFIG_9600, D.dcd)
}

func Test_demod_lowpass_delay(t *testing.T) {
	var D demodulator_state_s

	demod_9600_init(MODEM_SCRAMBLE, 48000, 3, 9600, &D)
	assert.Equal(t, (D.lp_filter_taps*3-1)/2, D.lp_filter_delay, "Middle of the upsampled filter")

	require.NoError(t, demod_psk_init(MODEM_QPSK, V26_B, 44100, 2400, 'P', &D))
	var P = D.u.(*psk_state_s)
	assert.InDelta(t, float64(P.lp_filter_taps-1)/2, float64(D.lp_filter_delay), 1)
}

func Test_demod_afsk_bad_profile(t *testing.T) {
	var D demodulator_state_s
	assert.ErrorIs(t, demod_afsk_init(44100, 1200, 1200, 2200, 'Z', &D), ErrBadConfig)
}

func Test_NewReceiver_errors(t *testing.T) {
	var cases = map[string]func(pa *AudioConfig){
		"sample rate":              func(pa *AudioConfig) { pa.SamplesPerSec = 0 },
		"bits per sample":          func(pa *AudioConfig) { pa.BitsPerSample = 24 },
		"bit error rate":           func(pa *AudioConfig) { pa.RecvBER = 1.5 },
		"baud":                     func(pa *AudioConfig) { pa.Chan[0].Baud = 0 },
		"profile characters":       func(pa *AudioConfig) { pa.Chan[0].Profiles = "A*" },
		"plus not at end":          func(pa *AudioConfig) { pa.Chan[0].Profiles = "+A" },
		"plus with frequencies":    func(pa *AudioConfig) { pa.Chan[0].Profiles = "A+"; pa.Chan[0].NumFreq = 3 },
		"letters with frequencies": func(pa *AudioConfig) { pa.Chan[0].Profiles = "AB"; pa.Chan[0].NumFreq = 3 },
		"too many letters":         func(pa *AudioConfig) { pa.Chan[0].Profiles = "AAAAAAAAAA" },
		"psk decimate": func(pa *AudioConfig) {
			pa.Chan[0].ModemType = MODEM_QPSK
			pa.Chan[0].Baud = 2400
			pa.Chan[0].Decimate = 2
		},
		"upsample": func(pa *AudioConfig) {
			pa.Chan[0].ModemType = MODEM_SCRAMBLE
			pa.Chan[0].Baud = 9600
			pa.Chan[0].Upsample = MAX_UPSAMPLE + 1
		},
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			var pa = DefaultAudioConfig()
			setup(pa)

			var _, err = NewReceiver(pa)
			assert.ErrorIs(t, err, ErrBadConfig)
		})
	}
}

func Test_NewReceiver_ratio_too_low(t *testing.T) {
	var pa = test_config(22050, func(c *ChannelConfig) {
		c.ModemType = MODEM_SCRAMBLE
		c.Baud = 9600
	})

	var _, err = NewReceiver(pa)
	assert.ErrorIs(t, err, ErrRatioTooLow)
}

func assertAFSKFilters(t require.TestingT, D *demodulator_state_s) {
	require.NotNil(t, D)
	assert.GreaterOrEqual(t, D.lp_filter_taps, MIN_RRC_TAPS)
	assert.LessOrEqual(t, D.lp_filter_taps, MAX_FILTER_SIZE)
	assert.GreaterOrEqual(t, D.pre_filter_taps, 3)
	assert.LessOrEqual(t, D.pre_filter_taps, MAX_FILTER_SIZE)
}

func Test_NewReceiver_afsk_low_ratio(t *testing.T) {
	var cases = []struct {
		name            string
		samples_per_sec int
		decimate        int
		profiles        string
		err             error
	}{
		{"B at 4000", 4000, 0, "B", nil},
		{"B+ at 4000", 4000, 0, "B+", nil},
		{"A+ at 4000", 4000, 0, "A+", nil},
		{"A at 3600", 3600, 0, "A", nil},
		{"B at 3600", 3600, 0, "B", nil},
		{"B decimated to 3675", 44100, 12, "B", nil},
		{"A decimated to 3675", 22050, 6, "A", nil},
		{"A at 3000", 3000, 0, "A", ErrRatioTooLow},
		{"B decimated to 2205", 44100, 20, "B", ErrRatioTooLow},
		{"A decimated to 2756", 22050, 8, "A", ErrRatioTooLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var pa = test_config(tc.samples_per_sec, func(c *ChannelConfig) {
				c.Profiles = tc.profiles
				c.Decimate = tc.decimate
			})

			var rx, err = NewReceiver(pa)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)

			for d := range pa.Chan[0].NumSubchan() {
				assertAFSKFilters(t, rx.demod[0][d])
			}

			var audio = test_transmit(&pa.Chan[0], pa.SamplesPerSec, test_frames[:1], nil)
			assert.NotPanics(t, func() {
				for _, s := range audio {
					rx.ProcessChannelSample(0, int(s))
				}
			})
		})
	}
}

func Test_NewReceiver_afsk_any_ratio(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var baud = rapid.SampledFrom([]int{300, 1200, 2400}).Draw(t, "baud")
		var samples_per_sec = rapid.IntRange(3*baud, 96000).Draw(t, "samples_per_sec")
		var profiles = rapid.SampledFrom([]string{"A", "B", "A+", "B+", "AB"}).Draw(t, "profiles")

		var pa = test_config(samples_per_sec, func(c *ChannelConfig) {
			c.Baud = baud
			c.Profiles = profiles
		})

		var rx, err = NewReceiver(pa)
		require.NoError(t, err)

		var c = &pa.Chan[0]
		assert.GreaterOrEqual(t, samples_per_sec/c.Decimate, 3*baud)
		for d := range c.NumSubchan() {
			assertAFSKFilters(t, rx.demod[0][d])
		}
	})
}

func Test_NewReceiver_afsk_no_decimation_below_ratio(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) {
		c.Baud = 9600
		c.Profiles = "B"
	})

	var _, err = NewReceiver(pa)
	require.NoError(t, err)
	assert.Equal(t, 1, pa.Chan[0].Decimate)
}

func Test_NewReceiver_multiple_frequencies(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) {
		c.Baud = 300
		c.MarkFreq = 1600
		c.SpaceFreq = 1800
		c.Profiles = "A-"
		c.NumFreq = 3
		c.Offset = 30
	})

	var rx, err = NewReceiver(pa)
	require.NoError(t, err)

	assert.Equal(t, "A", pa.Chan[0].Profiles)
	assert.Equal(t, 3, pa.Chan[0].NumSubchan())
	assert.Equal(t, 1, pa.Chan[0].NumSlicers())
	assert.NotNil(t, rx.demod[0][2])
	assert.Nil(t, rx.demod[0][3])
}

func Test_ProcessSample_allocations(t *testing.T) {
	var pa = test_config(44100, func(c *ChannelConfig) { c.Profiles = "A+" })
	var rx, err = NewReceiver(pa)
	require.NoError(t, err)

	// Steady mark tone, so no frames and no DCD changes.
	var m = new_test_modulator(&pa.Chan[0], pa.SamplesPerSec)
	for range 1200 {
		m.put_bit(1)
	}
	var tone = m.out

	var n = 0
	var next = func() {
		rx.ProcessChannelSample(0, int(tone[n%len(tone)]))
		n++
	}

	for range 10000 {
		next()
	}

	var allocs = testing.AllocsPerRun(1000, next)
	assert.Zero(t, allocs)
}
