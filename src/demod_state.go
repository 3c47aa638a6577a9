package direwolf

import (
	"gonum.org/v1/gonum/floats"
)

/*
 * Demodulator state.
 * Different copy is required for each channel & subchannel being processed concurrently.
 */

type bp_window_t int

const (
	BP_WINDOW_TRUNCATED bp_window_t = iota
	BP_WINDOW_COSINE
	BP_WINDOW_HAMMING
	BP_WINDOW_BLACKMAN
	BP_WINDOW_FLATTOP
)

const MAX_FILTER_SIZE = 480 /* 401 is needed for profile A, 300 baud & 44100. Revisit someday. */

/*------------------------------------------------------------------
 *
 * Name:        sample_history
 *
 * Purpose:     Most recent audio (or mixer output) samples feeding an FIR filter.
 *
 * Description:	The old way was to shift everything down by one for each new
 *		sample and then multiply by the filter kernel.
 *
 *		Here every value is stored twice, size apart, so the most
 *		recent "size" samples are always available as one contiguous
 *		slice, newest first, and a push is O(1).
 *
 *		window()[0] is the newest sample, window()[size-1] the oldest,
 *		matching the order the filter kernels are generated in.
 *
 *----------------------------------------------------------------*/

type sample_history struct {
	size int
	pos  int
	buf  [2 * MAX_FILTER_SIZE]float64
}

func (h *sample_history) init(size int) {
	Assert(size >= 1 && size <= MAX_FILTER_SIZE)
	h.size = size
	h.pos = 0
	clear(h.buf[:])
}

func (h *sample_history) push(val float64) {
	h.pos--
	if h.pos < 0 {
		h.pos = h.size - 1
	}
	h.buf[h.pos] = val
	h.buf[h.pos+h.size] = val
}

func (h *sample_history) window() []float64 {
	return h.buf[h.pos : h.pos+h.size]
}

// Value pushed j samples ago.  at(0) is the newest.
func (h *sample_history) at(j int) float64 {
	return h.buf[h.pos+j]
}

// FIR filter output for the current history.
func (h *sample_history) convolve(filter []float64) float64 {
	return floats.Dot(h.window(), filter[:h.size])
}

/*
 * For the PLL and data bit timing.
 * We can have multiple slicers for one demodulator.
 * Each slicer has its own PLL and HDLC decoder.
 */

type slicer_state_s struct {
	data_clock_pll int32 // PLL for data clock recovery.
	// It is incremented by pll_step_per_sample
	// for each audio sample.
	// Must be 32 bits!!!
	// so it wraps around at the
	// end of each symbol period.

	prev_d_c_pll int32 // Previous value of above, before
	// incrementing, to detect overflows.

	pll_symbol_count int   // Number symbols during time nudge_total is accumulated.
	pll_nudge_total  int64 // Sum of DPLL nudge amounts.
	// Both of these are cleared at start of frame.
	// At end of frame, we can see if incoming
	// baud rate is a little off.

	prev_demod_data int // Previous data bit detected.
	// Used to look for transitions.
	prev_demod_out_f float64

	/* This is used only for "9600" baud data. */

	lfsr int // Descrambler shift register.

	// This is for detecting phase lock to incoming signal.

	good_flag bool // Set if transition is near where expected,
	// i.e. at a good time.
	bad_flag bool // Set if transition is not where expected,
	// i.e. at a bad time.
	good_hist uint8  // History of good transitions for past octet.
	bad_hist  uint8  // History of bad transitions for past octet.
	score     uint32 // History of whether good triumphs over bad
	// for past 32 symbols.
	data_detect bool // True when locked on to signal.
}

/*
 * Where the slicers deliver their results.
 * The Receiver is the real one.  Tests can substitute a recorder.
 */

type slicer_output interface {
	rec_bit(ev BitEvent)
	dcd_change(channel, subchannel, slice int, state bool)
}

/*
 * Each modulation type keeps its own working state.
 * Selected once, when the demodulator is initialized.
 */

type modem_state interface {
	process_sample(D *demodulator_state_s, sam int)
}

type demodulator_state_s struct {

	/*
	 * These are set once during initialization.
	 */

	modem_type modem_t // MODEM_AFSK, MODEM_8PSK, etc.

	profile byte // 'A', 'B', etc.	Upper case.
	// Only needed to see if we are using 'F' to take fast path.

	channel    int
	subchannel int

	out slicer_output

	pll_step_per_sample int32 // PLL is advanced by this much each audio sample.
	// Data is sampled when it overflows.

	dcd *DCDConfig // Lock detection thresholds for this kind of modem.

	/*
	 * Alternate Low pass filters.
	 */

	lpf_baud float64 /* Cutoff frequency as fraction of baud. */
	/* Intuitively we'd expect this to be somewhere */
	/* in the range of 0.5 to 1. */

	lp_filter_width_sym float64 /* Length in number of symbol times. */

	lp_filter_taps int /* Size of Low Pass filter, in audio samples. */

	lp_filter_delay int // Delay through the low pass filter, in samples at the rate it runs.

	lp_window bp_window_t

	/*
	 * Automatic gain control.  Fast attack and slow decay factors.
	 */

	agc_fast_attack float64
	agc_slow_decay  float64

	/*
	 * Use a longer term view for reporting signal levels.
	 */

	quick_attack   float64
	sluggish_decay float64

	num_slicers int /* >1 for multiple slicers. */

	/*
	 * Phase Locked Loop (PLL) inertia.
	 * Larger number means less influence by signal transitions.
	 * It is more resistant to change when locked on to a signal.
	 */

	pll_locked_inertia    float64
	pll_searching_inertia float64

	/*
	 * Optional band pass pre-filter before mark/space detector.
	 */

	use_prefilter bool

	prefilter_baud float64 /* Cutoff frequencies, as fraction of */
	/* baud rate, beyond tones used.  */
	/* Example, if we used 1600/1800 tones at */
	/* 300 baud, and this was 0.5, the cutoff */
	/* frequencies would be: */
	/* lower = min(1600,1800) - 0.5 * 300 = 1450 */
	/* upper = max(1600,1800) + 0.5 * 300 = 1950 */

	pre_filter_len_sym float64 // Length in number of symbol times.

	pre_window bp_window_t // Window type for filter shaping.

	pre_filter_taps int // Calculated number of filter taps.

	pre_filter [MAX_FILTER_SIZE]float64

	raw_cb sample_history // audio in, ahead of the prefilter.

	/*
	 * Use half of the AGC code to get a measure of input audio amplitude.
	 * These use "quick" attack and "sluggish" decay while the
	 * AGC uses "fast" attack and "slow" decay.
	 */

	alevel_rec_peak   float64
	alevel_rec_valley float64
	alevel_mark_peak  float64
	alevel_space_peak float64

	/*
	 * Kernel for the lowpass filters.
	 */

	lp_filter [MAX_FILTER_SIZE]float64

	m_peak, s_peak     float64
	m_valley, s_valley float64

	slicer [MAX_SLICERS]slicer_state_s // Actual number in use is num_slicers.

	u modem_state // afsk_state_s, bb_state_s or psk_state_s.
}

func (D *demodulator_state_s) process_sample(sam int) {
	D.u.process_sample(D, sam)
}

// Hand one sliced bit to whoever is listening.
func (D *demodulator_state_s) emit_bit(slice int, raw int, is_scrambled bool, descram_state int, quality int) {
	if D.out == nil {
		return
	}
	D.out.rec_bit(BitEvent{
		Channel:      D.channel,
		Subchannel:   D.subchannel,
		Slice:        slice,
		Raw:          raw,
		IsScrambled:  is_scrambled,
		DescramState: descram_state,
		Quality:      quality,
	})
}

/*------------------------------------------------------------------
 *
 * Name:        agc
 *
 * Purpose:     Remove DC bias and normalize the amplitude.
 *
 * Inputs:	in		- One sample.
 *		fast_attack	- Factor for how fast the envelope grows.
 *		slow_decay	- Factor for how slowly it shrinks.
 *		peak, valley	- Current envelope.
 *
 * Returns:	Updated peak and valley and the normalized sample,
 *		roughly in the range of -0.5 to +0.5.
 *		Zero when the envelope has collapsed.
 *
 *----------------------------------------------------------------*/

func agc(in float64, fast_attack float64, slow_decay float64, peak float64, valley float64) (float64, float64, float64) {
	if in >= peak {
		peak = in*fast_attack + peak*(1.0-fast_attack)
	} else {
		peak = in*slow_decay + peak*(1.0-slow_decay)
	}

	if in <= valley {
		valley = in*fast_attack + valley*(1.0-fast_attack)
	} else {
		valley = in*slow_decay + valley*(1.0-slow_decay)
	}

	var x = 0.0
	if peak > valley {
		x = (in - 0.5*(peak+valley)) / (peak - valley)
	}

	return peak, valley, x
}

// Envelope follower for the signal level report: quick up, sluggish down.
func track_peak(peak float64, in float64, quick_attack float64, sluggish_decay float64) float64 {
	if in >= peak {
		return in*quick_attack + peak*(1.0-quick_attack)
	}
	return in*sluggish_decay + peak*(1.0-sluggish_decay)
}

// Same for the other side of the envelope.
func track_valley(valley float64, in float64, quick_attack float64, sluggish_decay float64) float64 {
	if in <= valley {
		return in*quick_attack + valley*(1.0-quick_attack)
	}
	return in*sluggish_decay + valley*(1.0-sluggish_decay)
}

// Number of filter taps, as an odd number, for a length in symbol times.
// Too large is clamped to the largest size we can handle.
func odd_filter_taps(width_sym float64, samples_per_sec int, baud float64, what string) int {
	var taps = int(width_sym*float64(samples_per_sec)/baud) | 1

	if taps > MAX_FILTER_SIZE {
		dw_log(DW_COLOR_ERROR, "Calculated filter size is too large; it will be clipped.",
			"filter", what, "taps", taps, "max", MAX_FILTER_SIZE-1,
			"samples_per_sec", samples_per_sec, "baud", baud)
		taps = (MAX_FILTER_SIZE - 1) | 1
	}

	return taps
}
