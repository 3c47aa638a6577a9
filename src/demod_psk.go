package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Demodulator for 2400 and 4800 bits per second Phase Shift Keying (PSK).
 *
 * Input:	Audio samples from either a file or the "sound card."
 *
 * Outputs:	Two or three bits per symbol to the receiver, which passes
 *		them along to the HDLC decoder and any other observers.
 *
 * References:	MFJ-2400 Product description and manual.
 *
 *		AEA had a 2400 bps packet modem, PK232-2400.
 *
 *		There was also a Kantronics KPC-2400 that had 2400 bps.
 *
 *		From what I'm able to gather, they all used the EXAR XR-2123 PSK modem chip
 *		which implements the V.26 / Bell 201 standard.
 *
 *		"ter" version has phase shifts of 0, 90, 180, and 270 degrees.
 *		Alternative B uses other phase shifts offset by another 45 degrees.
 *
 *		V.27 is the same idea with 8 phases.
 *
 * Compatibility:
 *		V.26 has two variations, A and B.  The MFJ-2400 uses the B alternative.
 *		The B alternative works a little more reliably, perhaps because there is never a
 *		zero phase difference between adjacent symbols.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"
)

var DCD_CONFIG_PSK = GenericDCDConfig()

var phase_to_gray_v26 = [4]int{0, 1, 3, 2}
var phase_to_gray_v27 = [8]int{1, 0, 2, 3, 7, 6, 4, 5}

const PSK_CARRIER_FREQ = 1800

type psk_state_s struct {
	v26_alt v26_e // Which alternative when V.26.

	sin_table256 [256]float64 // Precomputed sin table for speed.

	// Optional band pass pre-filter before phase detector.

	use_prefilter        bool
	prefilter_baud       float64 // Cutoff frequencies, as fraction of baud rate, beyond tones used.
	pre_filter_width_sym float64 /* Length in number of symbol times. */
	pre_filter_taps      int     /* Size of pre filter, in audio samples. */
	pre_window           bp_window_t

	audio_in   sample_history
	pre_filter [MAX_FILTER_SIZE]float64

	// Use local oscillator or correlate with previous sample.

	psk_use_lo bool /* Use local oscillator rather than self correlation. */

	lo_step uint32 /* How much to advance the local oscillator */
	/* phase for each audio sample. */

	lo_phase uint32 /* Local oscillator phase accumulator for PSK. */

	// After mixing with LO before low pass filter.

	I_raw sample_history
	Q_raw sample_history

	// Number of delay line taps into previous symbol.
	// They are one symbol period and + or - 45 degrees of the carrier frequency.

	boffs int /* symbol length based on sample rate and baud. */
	coffs int /* to get cos component of previous symbol. */
	soffs int /* to get sin component of previous symbol. */

	delay_line_width_sym float64
	delay_line_taps      int // In audio samples.

	delay_line sample_history

	// Low pass filter Second is frequency as ratio to baud rate for FIR.

	lpf_baud float64 /* Cutoff frequency as fraction of baud. */
	/* Intuitively we'd expect this to be somewhere */
	/* in the range of 0.5 to 1. */

	lp_filter_width_sym float64 /* Length in number of symbol times. */

	lp_filter_taps int /* Size of Low Pass filter, in audio samples (i.e. filter taps). */

	lp_window bp_window_t

	lp_filter [MAX_FILTER_SIZE]float64
}

/*------------------------------------------------------------------
 *
 * Name:        demod_psk_init
 *
 * Purpose:     Initialization for a PSK demodulator.
 *		Select appropriate parameters and set up filters.
 *
 * Inputs:   	modem_type	- MODEM_QPSK or MODEM_8PSK.
 *
 *		v26_alt		- V26_A (classic) or V26_B (MFJ compatible)
 *
 *		samples_per_sec	- Audio sample rate.
 *
 *		bps		- Bits per second.
 *				  Should be 2400 for V.26 or 4800 for V.27.
 *
 *		profile		- Select different variations.  For QPSK:
 *
 *					P - Using self-correlation technique.
 *					Q - Same preceded by bandpass filter.
 *					R - Using local oscillator to derive phase.
 *					S - Same with bandpass filter.
 *
 *				  For 8-PSK:
 *
 *					T, U, V, W  same as above.
 *
 *		D		- Demodulator state for given channel.
 *
 * Returns:     Error if a filter would be too large.
 *
 *----------------------------------------------------------------*/

func demod_psk_init(modem_type modem_t, v26_alt v26_e, samples_per_sec int, bps int, profile byte, D *demodulator_state_s) error {

	*D = demodulator_state_s{} //nolint:exhaustruct
	D.dcd = DCD_CONFIG_PSK

	var P = new(psk_state_s)
	D.u = P

	D.modem_type = modem_type
	P.v26_alt = v26_alt

	D.num_slicers = 1 // Haven't thought about this yet.  Is it even applicable?

	var correct_baud int // baud is not same as bits/sec here!
	var carrier_freq = PSK_CARRIER_FREQ

	var sps = float64(samples_per_sec)

	if modem_type == MODEM_QPSK {

		Assert(P.v26_alt != V26_UNSPECIFIED)

		correct_baud = bps / 2

		switch profile {

		case 'P': /* Self correlation technique. */

			P.use_prefilter = false /* No bandpass filter. */

			P.lpf_baud = 0.60
			P.lp_filter_width_sym = 1.061 // 39. * 1200. / 44100.;
			P.lp_window = BP_WINDOW_COSINE

			D.pll_locked_inertia = 0.95
			D.pll_searching_inertia = 0.50

		case 'Q': /* Self correlation technique. */

			P.use_prefilter = true /* Add a bandpass filter. */
			P.prefilter_baud = 1.3
			P.pre_filter_width_sym = 1.497 // 55. * 1200. / 44100.;
			P.pre_window = BP_WINDOW_COSINE

			P.lpf_baud = 0.60
			P.lp_filter_width_sym = 1.061 // 39. * 1200. / 44100.;
			P.lp_window = BP_WINDOW_COSINE

			D.pll_locked_inertia = 0.87
			D.pll_searching_inertia = 0.50

		default: //nolint: gocritic
			dw_log(DW_COLOR_ERROR, "Invalid demodulator profile for v.26 QPSK.  Valid choices are P, Q, R, S.  Using default.",
				"profile", string(profile))
			profile = 'R'
			fallthrough

		case 'R': /* Mix with local oscillator. */

			P.psk_use_lo = true

			P.use_prefilter = false /* No bandpass filter. */

			P.lpf_baud = 0.70
			P.lp_filter_width_sym = 1.007 // 37. * 1200. / 44100.;
			P.lp_window = BP_WINDOW_TRUNCATED

			D.pll_locked_inertia = 0.925
			D.pll_searching_inertia = 0.50

		case 'S': /* Mix with local oscillator. */

			P.psk_use_lo = true

			P.use_prefilter = true /* Add a bandpass filter. */
			P.prefilter_baud = 0.55
			P.pre_filter_width_sym = 2.014 // 74. * 1200. / 44100.;
			P.pre_window = BP_WINDOW_FLATTOP

			P.lpf_baud = 0.60
			P.lp_filter_width_sym = 1.061 // 39. * 1200. / 44100.;
			P.lp_window = BP_WINDOW_COSINE

			D.pll_locked_inertia = 0.925
			D.pll_searching_inertia = 0.50
		}

		P.delay_line_width_sym = 1.25 // Delay line > 13/12 * symbol period

		P.coffs = int(math.Round((11.0 / 12.0) * sps / float64(correct_baud)))
		P.boffs = int(math.Round(sps / float64(correct_baud)))
		P.soffs = int(math.Round((13.0 / 12.0) * sps / float64(correct_baud)))

	} else {

		correct_baud = bps / 3

		switch profile {

		case 'T': /* Self correlation technique. */

			P.use_prefilter = false /* No bandpass filter. */

			P.lpf_baud = 1.15
			P.lp_filter_width_sym = 0.871 // 32. * 1200. / 44100.;
			P.lp_window = BP_WINDOW_COSINE

			D.pll_locked_inertia = 0.95
			D.pll_searching_inertia = 0.50

		case 'U': /* Self correlation technique. */

			P.use_prefilter = true /* Add a bandpass filter. */
			P.prefilter_baud = 0.9
			P.pre_filter_width_sym = 0.571 // 21. * 1200. / 44100.;
			P.pre_window = BP_WINDOW_FLATTOP

			P.lpf_baud = 1.15
			P.lp_filter_width_sym = 0.871 // 32. * 1200. / 44100.;
			P.lp_window = BP_WINDOW_COSINE

			D.pll_locked_inertia = 0.87
			D.pll_searching_inertia = 0.50

		default: //nolint: gocritic
			dw_log(DW_COLOR_ERROR, "Invalid demodulator profile for v.27 8PSK.  Valid choices are T, U, V, W.  Using default.",
				"profile", string(profile))
			profile = 'V'
			fallthrough

		case 'V': /* Mix with local oscillator. */

			P.psk_use_lo = true

			P.use_prefilter = false /* No bandpass filter. */

			P.lpf_baud = 0.85
			P.lp_filter_width_sym = 0.844 // 31. * 1200. / 44100.;
			P.lp_window = BP_WINDOW_COSINE

			D.pll_locked_inertia = 0.925
			D.pll_searching_inertia = 0.50

		case 'W': /* Mix with local oscillator. */

			P.psk_use_lo = true

			P.use_prefilter = true /* Add a bandpass filter. */
			P.prefilter_baud = 0.85
			P.pre_filter_width_sym = 0.844 // 31. * 1200. / 44100.;
			P.pre_window = BP_WINDOW_COSINE

			P.lpf_baud = 0.85
			P.lp_filter_width_sym = 0.844 // 31. * 1200. / 44100.;
			P.lp_window = BP_WINDOW_COSINE

			D.pll_locked_inertia = 0.925
			D.pll_searching_inertia = 0.50
		}

		P.delay_line_width_sym = 1.25 // Delay line > 10/9 * symbol period

		P.coffs = int(math.Round((8.0 / 9.0) * sps / float64(correct_baud)))
		P.boffs = int(math.Round(sps / float64(correct_baud)))
		P.soffs = int(math.Round((10.0 / 9.0) * sps / float64(correct_baud)))
	}

	D.profile = profile

	if P.psk_use_lo {
		P.lo_step = uint32(math.Round(256. * 256. * 256. * 256. * float64(carrier_freq) / sps))

		// Our own sin table for speed later.

		for j := range 256 {
			P.sin_table256[j] = math.Sin(2.0 * math.Pi * float64(j) / 256.0)
		}
	}

	/*
	 * Calculate constants used for timing.
	 * The audio sample rate must be at least a few times the data rate.
	 */

	D.pll_step_per_sample = int32(math.Round((TICKS_PER_PLL_CYCLE * float64(correct_baud)) / sps))

	/*
	 * Convert number of symbol times to number of taps.
	 */

	P.pre_filter_taps = int(math.Round(P.pre_filter_width_sym * sps / float64(correct_baud)))
	P.delay_line_taps = int(math.Round(P.delay_line_width_sym * sps / float64(correct_baud)))
	P.lp_filter_taps = int(math.Round(P.lp_filter_width_sym * sps / float64(correct_baud)))

	for _, f := range []struct {
		what string
		taps int
	}{
		{"pre filter", P.pre_filter_taps},
		{"delay line", P.delay_line_taps},
		{"low pass filter", P.lp_filter_taps},
	} {
		if f.taps > MAX_FILTER_SIZE {
			return fmt.Errorf("PSK %s size of %d is more than %d, decrease the audio sample rate: %w",
				f.what, f.taps, MAX_FILTER_SIZE, ErrFilterTooLarge)
		}
	}

	if P.lp_filter_taps < 3 || P.delay_line_taps <= P.soffs {
		return fmt.Errorf("PSK sample rate %d is too low for %d bps: %w", samples_per_sec, bps, ErrRatioTooLow)
	}

	/*
	 * Optionally apply a bandpass ("pre") filter to attenuate
	 * frequencies outside the range of interest.
	 * It's a tradeoff.  Attenuate frequencies outside the the range of interest
	 * but also distort the signal.  This demodulator is not compuationally
	 * intensive so we can usually run both in parallel.
	 */

	if P.use_prefilter {
		var f1 = float64(carrier_freq) - P.prefilter_baud*float64(correct_baud)
		var f2 = float64(carrier_freq) + P.prefilter_baud*float64(correct_baud)

		if f1 <= 0 {
			dw_log(DW_COLOR_ERROR, "Prefilter doesn't make sense.", "low", f1, "high", f2)
			f1 = 10
		}

		f1 /= sps
		f2 /= sps

		P.pre_filter_taps = max(P.pre_filter_taps, 3)
		gen_bandpass(f1, f2, P.pre_filter[:], P.pre_filter_taps, P.pre_window)
		P.audio_in.init(P.pre_filter_taps)
	}

	/*
	 * Now the lowpass filter.
	 */

	var fc = float64(correct_baud) * P.lpf_baud / sps
	D.lp_filter_delay = gen_lowpass(fc, P.lp_filter[:], P.lp_filter_taps, P.lp_window, 0.5)

	dw_log(DW_COLOR_DEBUG, "PSK low pass filter", "profile", string(D.profile),
		"taps", P.lp_filter_taps, "delay_samples", D.lp_filter_delay)

	P.I_raw.init(P.lp_filter_taps)
	P.Q_raw.init(P.lp_filter_taps)
	P.delay_line.init(P.delay_line_taps)

	/*
	 * No point in having multiple numbers for signal level.
	 */

	D.alevel_mark_peak = -1
	D.alevel_space_peak = -1

	return nil

} /* demod_psk_init */

/*-------------------------------------------------------------------
 *
 * Name:        phase_shift_to_symbol
 *
 * Purpose:     Translate phase shift, between two symbols, into 2 or 3 bits.
 *
 * Inputs:	phase_shift	- in radians.
 *
 *		bits_per_symbol	- 2 for QPSK, 3 for 8PSK.
 *
 * Outputs:	bit_quality[]	- Value of 0 (at threshold) to 100 (perfect) for each bit.
 *
 * Returns:	2 or 3 bit symbol value in Gray code.
 *
 *--------------------------------------------------------------------*/

func phase_shift_to_symbol(phase_shift float64, bits_per_symbol int, bit_quality *[3]int) int {

	// Number of different symbol states.
	Assert(bits_per_symbol == 2 || bits_per_symbol == 3)
	var N = 1 << bits_per_symbol
	Assert(N == 4 || N == 8)

	// Scale angle to 1 per symbol then separate into integer and fractional parts.
	var a = phase_shift * float64(N) / (math.Pi * 2.0)
	for a >= float64(N) {
		a -= float64(N)
	}
	for a < 0.0 {
		a += float64(N)
	}
	var i = int(a)
	if i == N {
		i = N - 1 // Should be < N. Watch out for possible roundoff errors.
	}
	var f = a - float64(i)
	Assert(i >= 0 && i < N)
	Assert(f >= -0.001 && f <= 1.001)

	// Interpolate between the ideal angles to get a level of certainty.
	var result = 0
	for b := range bits_per_symbol {
		var demod float64
		if bits_per_symbol == 2 {
			demod = float64((phase_to_gray_v26[i]>>b)&1)*(1.0-f) + float64((phase_to_gray_v26[(i+1)&3]>>b)&1)*f
		} else {
			demod = float64((phase_to_gray_v27[i]>>b)&1)*(1.0-f) + float64((phase_to_gray_v27[(i+1)&7]>>b)&1)*f
		}

		// Slice to get boolean value and quality measurement.

		if demod >= 0.5 {
			result |= 1 << b
		}
		bit_quality[b] = int(math.Round(100.0 * 2.0 * math.Abs(demod-0.5)))
	}
	return result

} // end phase_shift_to_symbol

/*-------------------------------------------------------------------
 *
 * Name:        process_sample
 *
 * Purpose:     (1) Demodulate the psk signal into I & Q components.
 *		(2) Recover clock and sample data at the right time.
 *		(3) Produce two or three bits per symbol based on phase change from previous.
 *
 * Inputs:	sam	- One sample of audio.
 *			  Should be in range of -32768 .. 32767.
 *
 * Descripion:	The usual way is mixing with a local oscillator.
 *		Multiply the input by cos and sin then low pass filter each.
 *		The absolute phase doesn't matter.  We only care about the
 *		phase shift between symbols so the LO is free running.
 *
 *		There is also no need for a local oscillator at all.
 *		Simply correlate the signal with the previous symbol,
 *		phase shifted by + and - 45 degrees.
 *
 *		This works better under noisy conditions because we are
 *		including the noise from only the current symbol and not
 *		the previous one.
 *
 *--------------------------------------------------------------------*/

func (P *psk_state_s) process_sample(D *demodulator_state_s, sam int) {
	const slice = 0 // Would it make sense to have more than one?

	/* Scale to nice number for plotting during debug. */

	var fsam = float64(sam) / 16384.0

	/*
	 * Optional bandpass filter before the phase detector.
	 */

	if P.use_prefilter {
		P.audio_in.push(fsam)
		fsam = P.audio_in.convolve(P.pre_filter[:])
	}

	var gray int
	var bit_quality [3]int

	if P.psk_use_lo {
		/*
		 * Mix with local oscillator to obtain phase.
		 * The absolute phase doesn't matter.
		 * We are just concerned with the change since the previous symbol.
		 */

		P.I_raw.push(fsam * P.sin_table256[((P.lo_phase>>24)+64)&0xff])
		var I = P.I_raw.convolve(P.lp_filter[:])

		P.Q_raw.push(fsam * P.sin_table256[(P.lo_phase>>24)&0xff])
		var Q = P.Q_raw.convolve(P.lp_filter[:])

		var a = math.Atan2(I, Q)

		// This is just a delay line of one symbol time.

		P.delay_line.push(a)
		var delta = a - P.delay_line.at(P.boffs)

		if D.modem_type == MODEM_QPSK {
			if P.v26_alt == V26_B {
				gray = phase_shift_to_symbol(delta+(-math.Pi/4), 2, &bit_quality) // MFJ compatible
			} else {
				gray = phase_shift_to_symbol(delta, 2, &bit_quality) // Classic
			}
		} else {
			gray = phase_shift_to_symbol(delta, 3, &bit_quality) // 8-PSK
		}

		P.lo_phase += P.lo_step

	} else {
		/*
		 * Correlate with previous symbol.  We are looking for the phase shift.
		 */

		P.delay_line.push(fsam)

		P.I_raw.push(fsam * P.delay_line.at(P.coffs))
		var I = P.I_raw.convolve(P.lp_filter[:])

		P.Q_raw.push(fsam * P.delay_line.at(P.soffs))
		var Q = P.Q_raw.convolve(P.lp_filter[:])

		var delta = math.Atan2(I, Q)

		if D.modem_type == MODEM_QPSK {
			if P.v26_alt == V26_B {
				gray = phase_shift_to_symbol(delta+(math.Pi/2), 2, &bit_quality) // MFJ compatible
			} else {
				gray = phase_shift_to_symbol(delta+(3*math.Pi/4), 2, &bit_quality) // Classic
			}
		} else {
			gray = phase_shift_to_symbol(delta+(3*math.Pi/2), 3, &bit_quality)
		}
	}

	nudge_pll_psk(D, slice, gray, &bit_quality)

} /* end process_sample */

/*
 * Finally, a PLL is used to sample near the centers of the data bits.
 *
 * data_clock_pll is a SIGNED 32 bit variable.
 * When it overflows from a large positive value to a negative value, we
 * sample a data bit from the demodulated signal.
 *
 * Nudge the PLL by removing some small fraction from the value of
 * data_clock_pll, pushing it closer to zero.
 *
 * Be a little more aggressive about adjusting the PLL
 * phase when searching for a signal.
 * Don't change it as much when locked on to a signal.
 */

func nudge_pll_psk(D *demodulator_state_s, slice int, demod_bits int, bit_quality *[3]int) {

	var S = &D.slicer[slice]

	if D.pll_advance(slice) {

		/* Overflow of PLL counter. */
		/* This is where we sample the data. */

		var gray = demod_bits

		if D.modem_type == MODEM_QPSK {
			D.emit_bit(slice, (gray>>1)&1, false, 0, bit_quality[1])
			D.emit_bit(slice, gray&1, false, 0, bit_quality[0])
		} else {
			D.emit_bit(slice, (gray>>2)&1, false, 0, bit_quality[2])
			D.emit_bit(slice, (gray>>1)&1, false, 0, bit_quality[1])
			D.emit_bit(slice, gray&1, false, 0, bit_quality[0])
		}
		D.pll_sampled(slice)
	}

	/*
	 * If demodulated data has changed,
	 * Pull the PLL phase closer to zero.
	 * Use "floor" instead of simply casting so the sign won't flip.
	 * For example if we had -0.7 we want to end up with -1 rather than 0.
	 */

	if demod_bits != S.prev_demod_data {
		D.pll_transition(slice, 0, math.Floor)
	}

	/*
	 * Remember demodulator output so we can compare next time.
	 */
	S.prev_demod_data = demod_bits

} /* end nudge_pll_psk */
