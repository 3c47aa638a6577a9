package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Demodulator for Audio Frequency Shift Keying (AFSK).
 *
 * Input:	Audio samples from either a file or the "sound card."
 *
 * Outputs:	One bit for each symbol to the receiver, which passes
 *		it along to the HDLC decoder and any other observers.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"
)

var DCD_CONFIG_AFSK = GenericDCDConfig()

// Smallest RRC low pass filter that keeps its shape.
const MIN_RRC_TAPS = 9

// Cosine table indexed by unsigned byte.
var fcos256_table [256]float64

func fcos256(x uint32) float64 {
	return fcos256_table[(x>>24)&0xff]
}

func fsin256(x uint32) float64 {
	return fcos256_table[((x>>24)-64)&0xff]
}

/*
 * for multi-slicer experiment.
 *
 * Rather than trying to find the best threshold location, use multiple
 * slicer thresholds in parallel.  The space tone is boosted or cut by
 * a logarithmically spaced set of gains.
 */

const MIN_G = 0.5
const MAX_G = 4.0

var space_gain [MAX_SUBCHANS]float64

func init() {
	for j := range 256 {
		fcos256_table[j] = math.Cos(float64(j) * 2.0 * math.Pi / 256.0)
	}

	space_gain[0] = MIN_G
	var step = math.Pow(10.0, math.Log10(MAX_G/MIN_G)/(MAX_SUBCHANS-1))
	for j := 1; j < MAX_SUBCHANS; j++ {
		space_gain[j] = space_gain[j-1] * step
	}
}

type afsk_state_s struct {
	m_osc_phase uint32 // Phase for Mark local oscillator.
	m_osc_delta uint32 // How much to change for each audio sample.

	s_osc_phase uint32 // Phase for Space local oscillator.
	s_osc_delta uint32 // How much to change for each audio sample.

	c_osc_phase uint32 // Phase for Center frequency local oscillator.
	c_osc_delta uint32 // How much to change for each audio sample.

	// Need two mixers for profile "A".

	m_I_raw sample_history
	m_Q_raw sample_history
	s_I_raw sample_history
	s_Q_raw sample_history

	// Only need one mixer for profile "B".  Reuse the same storage?

	c_I_raw sample_history
	c_Q_raw sample_history

	rrc_width_sym float64 /* Width of RRC filter in number of symbols.  */

	rrc_rolloff float64 /* Rolloff factor for RRC.  Between 0 and 1. */

	prev_phase float64 // To see phase shift between samples for FM demod.

	normalize_rpsam float64 // Normalize to -1 to +1 for expected tones.
}

/*------------------------------------------------------------------
 *
 * Name:        demod_afsk_init
 *
 * Purpose:     Initialization for an AFSK demodulator.
 *		Select appropriate parameters and set up filters.
 *
 * Inputs:   	samples_per_sec	- After any decimation.
 *		baud
 *		mark_freq
 *		space_freq
 *		profile		- 'A' (or 'E') for mark and space oscillators,
 *				  'B' (or 'D') for the FM discriminator.
 *
 *		D		- Demodulator state to fill in.
 *
 * Returns:     Error for an unknown profile.
 *
 *----------------------------------------------------------------*/

func demod_afsk_init(samples_per_sec int, baud int, mark_freq int, space_freq int, profile byte, D *demodulator_state_s) error {

	*D = demodulator_state_s{} //nolint:exhaustruct
	D.dcd = DCD_CONFIG_AFSK

	var F = new(afsk_state_s)
	D.u = F

	D.modem_type = MODEM_AFSK
	D.num_slicers = 1

	switch profile {

	case 'A', // Official name
		'E': // For compatibility during transition

		D.profile = 'A'

		/* Rather than convolving each sample with a pre-computed mark and */
		/* space filter, we have two free running local oscillators.  */
		/* A Root Raised Cosine filter reduces intersymbol interference. */

		D.use_prefilter = true /* first, a bandpass filter. */

		if baud > 600 {
			D.prefilter_baud = 0.155
			// Low cutoff below mark, high cutoff above space
			// as fraction of the symbol rate.
			// Intuitively you might expect this to be about
			// half the symbol rate, e.g. 600 Hz outside
			// the two tones of interest for 1200 baud.
			// It turns out that narrower is better.

			D.pre_filter_len_sym = 383 * 1200. / 44100. // about 8 symbols
			D.pre_window = BP_WINDOW_TRUNCATED
		} else {
			D.prefilter_baud = 0.87
			D.pre_filter_len_sym = 1.857
			D.pre_window = BP_WINDOW_COSINE
		}

		// Local oscillators for Mark and Space tones.

		F.m_osc_delta = uint32(math.Round(math.Pow(2., 32.) * float64(mark_freq) / float64(samples_per_sec)))
		F.s_osc_delta = uint32(math.Round(math.Pow(2., 32.) * float64(space_freq) / float64(samples_per_sec)))

		F.rrc_width_sym = 2.80
		F.rrc_rolloff = 0.20

		D.agc_fast_attack = 0.70
		D.agc_slow_decay = 0.000090

		D.pll_locked_inertia = 0.74
		D.pll_searching_inertia = 0.50

	case 'B', // official name
		'D': // backward compatibility

		D.profile = 'B'

		// Mix with the center frequency and look for
		// the rate of change of the phase.

		D.use_prefilter = true /* first, a bandpass filter. */

		if baud > 600 {
			D.prefilter_baud = 0.19
			D.pre_filter_len_sym = 8.163 // Filter length in symbol times.
			D.pre_window = BP_WINDOW_TRUNCATED
		} else {
			D.prefilter_baud = 0.87
			D.pre_filter_len_sym = 1.857
			D.pre_window = BP_WINDOW_COSINE
		}

		// Local oscillator for Center frequency.

		F.c_osc_delta = uint32(math.Round(math.Pow(2., 32.) * 0.5 * float64(mark_freq+space_freq) / float64(samples_per_sec)))

		F.rrc_width_sym = 2.00
		F.rrc_rolloff = 0.40

		// For scaling phase shift into normalized -1 to +1 range for mark and space.
		F.normalize_rpsam = 1.0 / (0.5 * math.Abs(float64(mark_freq-space_freq)) * 2 * math.Pi / float64(samples_per_sec))

		// No AGC here but the signal level report derives "quick" and
		// "sluggish" values from these.
		D.agc_fast_attack = 0.70
		D.agc_slow_decay = 0.000090

		D.pll_locked_inertia = 0.74
		D.pll_searching_inertia = 0.50

		D.alevel_mark_peak = -1 // Disable received signal (m/s) display.
		D.alevel_space_peak = -1

	default:
		return fmt.Errorf("invalid AFSK demodulator profile %q: %w", profile, ErrBadConfig)
	}

	/*
	 * Calculate constants used for timing.
	 * The audio sample rate must be at least a few times the data rate.
	 */

	D.pll_step_per_sample = int32(math.Round((TICKS_PER_PLL_CYCLE * float64(baud)) / float64(samples_per_sec)))

	/*
	 * Apply a bandpass ("pre") filter to attenuate
	 * frequencies outside the range of interest.
	 */

	if D.use_prefilter {

		// odd number is a little better
		D.pre_filter_taps = odd_filter_taps(D.pre_filter_len_sym, samples_per_sec, float64(baud), "AFSK pre filter")

		var f1 = float64(min(mark_freq, space_freq)) - D.prefilter_baud*float64(baud)
		var f2 = float64(max(mark_freq, space_freq)) + D.prefilter_baud*float64(baud)

		f1 /= float64(samples_per_sec)
		f2 /= float64(samples_per_sec)

		gen_bandpass(f1, f2, D.pre_filter[:], D.pre_filter_taps, D.pre_window)
		D.raw_cb.init(D.pre_filter_taps)
	}

	/*
	 * Now the Root Raised Cosine lowpass filter.
	 */

	Assert(F.rrc_width_sym >= 1 && F.rrc_width_sym <= 16)
	Assert(F.rrc_rolloff >= 0. && F.rrc_rolloff <= 1.)

	D.lp_filter_taps = odd_filter_taps(F.rrc_width_sym, samples_per_sec, float64(baud), "AFSK RRC low pass")

	// Only a few samples per symbol.  Take a little more than rrc_width_sym.
	D.lp_filter_taps = max(D.lp_filter_taps, MIN_RRC_TAPS)

	Assert(D.lp_filter_taps > 8 && D.lp_filter_taps <= MAX_FILTER_SIZE)
	gen_rrc_lowpass(D.lp_filter[:], D.lp_filter_taps, F.rrc_rolloff, float64(samples_per_sec)/float64(baud))

	for _, h := range []*sample_history{&F.m_I_raw, &F.m_Q_raw, &F.s_I_raw, &F.s_Q_raw, &F.c_I_raw, &F.c_Q_raw} {
		h.init(D.lp_filter_taps)
	}

	return nil

} /* demod_afsk_init */

/*-------------------------------------------------------------------
 *
 * Name:        process_sample
 *
 * Purpose:     (1) Demodulate the AFSK signal.
 *		(2) Recover clock and data.
 *
 * Inputs:	sam	- One sample of audio.
 *			  Should be in range of -32768 .. 32767.
 *
 * Descripion:	Which tone is stronger?
 *
 *		In an ideal world, simply compare.  Under real conditions,
 *		the higher tone usually has a considerably smaller amplitude
 *		due to the passband characteristics of the transmitter and
 *		receiver, and it varies from one station to another.
 *
 *		Profile A applies automatic gain control to the mark and space
 *		levels, scaling each to roughly the -0.5 to +0.5 range.
 *		With multiple slicers, the space amplitude is instead multiplied
 *		by a range of gains and each result goes to its own slicer.
 *
 *		Profile B is an FM discriminator which produces a result
 *		proportional to the frequency.
 *
 *--------------------------------------------------------------------*/

func (F *afsk_state_s) process_sample(D *demodulator_state_s, sam int) {

	/* Scale to nice number. */

	var fsam = float64(sam) / 16384.0

	if D.use_prefilter {
		D.raw_cb.push(fsam)
		fsam = D.raw_cb.convolve(D.pre_filter[:])
	}

	switch D.profile {

	default:
		fallthrough
	case 'A':
		F.m_I_raw.push(fsam * fcos256(F.m_osc_phase))
		F.m_Q_raw.push(fsam * fsin256(F.m_osc_phase))
		F.m_osc_phase += F.m_osc_delta

		F.s_I_raw.push(fsam * fcos256(F.s_osc_phase))
		F.s_Q_raw.push(fsam * fsin256(F.s_osc_phase))
		F.s_osc_phase += F.s_osc_delta

		var m_I = F.m_I_raw.convolve(D.lp_filter[:])
		var m_Q = F.m_Q_raw.convolve(D.lp_filter[:])
		var m_amp = math.Hypot(m_I, m_Q)

		var s_I = F.s_I_raw.convolve(D.lp_filter[:])
		var s_Q = F.s_Q_raw.convolve(D.lp_filter[:])
		var s_amp = math.Hypot(s_I, s_Q)

		/*
		 * Capture the mark and space peak amplitudes for display.
		 */
		D.alevel_mark_peak = track_peak(D.alevel_mark_peak, m_amp, D.quick_attack, D.sluggish_decay)
		D.alevel_space_peak = track_peak(D.alevel_space_peak, s_amp, D.quick_attack, D.sluggish_decay)

		if D.num_slicers <= 1 {

			var m_norm, s_norm float64
			D.m_peak, D.m_valley, m_norm = agc(m_amp, D.agc_fast_attack, D.agc_slow_decay, D.m_peak, D.m_valley)
			D.s_peak, D.s_valley, s_norm = agc(s_amp, D.agc_fast_attack, D.agc_slow_decay, D.s_peak, D.s_valley)

			// The normalized values should be around -0.5 to +0.5 so the difference
			// should work out to be around -1 to +1.
			// nudge_pll_afsk uses the amplitude for the quality of the symbol.

			nudge_pll_afsk(D, 0, m_norm-s_norm, 1.0)

		} else {

			// No AGC step here but we still want the envelope
			// for the confidence level (or quality) of the sample.

			D.m_peak, D.m_valley, _ = agc(m_amp, D.agc_fast_attack, D.agc_slow_decay, D.m_peak, D.m_valley)
			D.s_peak, D.s_valley, _ = agc(s_amp, D.agc_fast_attack, D.agc_slow_decay, D.s_peak, D.s_valley)

			for slice := 0; slice < D.num_slicers; slice++ {
				var demod_out = m_amp - s_amp*space_gain[slice]
				var amp = 0.5 * (D.m_peak - D.m_valley + (D.s_peak-D.s_valley)*space_gain[slice])
				if amp < 0.0000001 {
					amp = 1 // avoid divide by zero with no signal.
				}

				nudge_pll_afsk(D, slice, demod_out, amp)
			}
		}

	case 'B':
		F.c_I_raw.push(fsam * fcos256(F.c_osc_phase))
		F.c_Q_raw.push(fsam * fsin256(F.c_osc_phase))
		F.c_osc_phase += F.c_osc_delta

		var c_I = F.c_I_raw.convolve(D.lp_filter[:])
		var c_Q = F.c_Q_raw.convolve(D.lp_filter[:])

		var phase = math.Atan2(c_Q, c_I)
		var rate = phase - F.prev_phase
		if rate > math.Pi {
			rate -= 2 * math.Pi
		} else if rate < -math.Pi {
			rate += 2 * math.Pi
		}

		F.prev_phase = phase

		// Rate is radians per audio sample interval.
		// Scale that into -1 to +1 for expected tones.

		var norm_rate = rate * F.normalize_rpsam

		// We really don't have mark and space amplitudes available in this case.

		if D.num_slicers <= 1 {
			nudge_pll_afsk(D, 0, norm_rate, 1.0)
		} else {

			// Multiple slicing points compensate for a tuning error
			// with HF SSB.  With a 300 Hz shift, the thresholds are
			// up to +-75 Hz from the center.

			for slice := 0; slice < D.num_slicers; slice++ {
				var offset = -0.5 + float64(slice)*(1./float64(D.num_slicers-1))
				nudge_pll_afsk(D, slice, norm_rate+offset, 1.0)
			}
		}
	}

} /* end process_sample */

/*
 * Finally, a PLL is used to sample near the centers of the data bits.
 *
 * data_clock_pll is a SIGNED 32 bit variable.
 * When it overflows from a large positive value to a negative value, we
 * sample a data bit from the demodulated signal.
 *
 * Ideally, the demodulated signal transitions should be near
 * zero so we sample mid way between the transitions.
 *
 * Nudge the PLL by removing some small fraction from the value of
 * data_clock_pll, pushing it closer to zero.
 *
 * This adjustment will never change the sign so it won't cause
 * any erratic data bit sampling.
 *
 * If we adjust it too quickly, the clock will have too much jitter.
 * If we adjust it too slowly, it will take too long to lock on to a new signal.
 *
 * Be a little more aggressive about adjusting the PLL
 * phase when searching for a signal.  Don't change it as much when
 * locked on to a signal.
 */

func nudge_pll_afsk(D *demodulator_state_s, slice int, demod_out float64, amplitude float64) {

	var S = &D.slicer[slice]

	if D.pll_advance(slice) {

		/* Overflow - this is where we sample. */
		// Assign it a confidence level or quality, 0 to 100, based on the amplitude.
		// Those very close to 0 are suspect.

		var quality = min(int(math.Abs(demod_out)*100.0/amplitude), 100)

		D.emit_bit(slice, IfThenElse(demod_out > 0, 1, 0), false, 0, quality)
		D.pll_sampled(slice)
	}

	// Transitions nudge the DPLL phase toward the incoming signal.

	var demod_data = IfThenElse(demod_out > 0, 1, 0)
	if demod_data != S.prev_demod_data {
		D.pll_transition(slice, 0, math.Trunc)
	}

	/*
	 * Remember demodulator output so we can compare next time.
	 */
	S.prev_demod_data = demod_data

} /* end nudge_pll_afsk */
