package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Demodulator for baseband signal.
 *		This is used for AX.25 with scrambling (G3RUH / K9NG)
 *		or without.
 *
 * Input:	Audio samples from either a file or the "sound card."
 *
 * Outputs:	One bit for each symbol to the receiver, which passes
 *		it along to the HDLC decoder and any other observers.
 *
 *---------------------------------------------------------------*/

import (
	"math"
)

var DCD_CONFIG_9600 = &DCDConfig{
	ThreshOn:  32,
	ThreshOff: 8,
	GoodWidth: 1024,
}

/* Version 1.2: Experiment with different slicing levels. */

var slice_point [MAX_SUBCHANS]float64

func init() {
	for j := range MAX_SUBCHANS {
		slice_point[j] = 0.02 * (float64(j) - 0.5*(MAX_SUBCHANS-1))
	}
}

const MAX_UPSAMPLE = 4

type bb_state_s struct {
	upsample int

	audio_in sample_history

	// One low pass kernel of lp_filter_taps*upsample taps, dealt out
	// into upsample interleaved sub filters.

	lp_filter    [MAX_FILTER_SIZE]float64
	lp_polyphase [MAX_UPSAMPLE][MAX_FILTER_SIZE]float64
}

/*------------------------------------------------------------------
 *
 * Name:        demod_9600_init
 *
 * Purpose:     Initialize the 9600 (or higher) baud demodulator.
 *
 * Inputs:      modem_type	- Determines whether scrambling is used.
 *
 *		samples_per_sec	- Number of samples per second for audio.
 *
 *		upsample	- Factor to upsample the incoming stream.
 *				  It works better if the data is upsampled.
 *				  This reduces the jitter for PLL synchronization.
 *
 *		baud		- Data rate in bits per second.
 *
 *		D		- Address of demodulator state.
 *
 *----------------------------------------------------------------*/

func demod_9600_init(modem_type modem_t, original_sample_rate int, upsample int, baud int, D *demodulator_state_s) {
	if upsample < 1 {
		upsample = 1
	}
	if upsample > MAX_UPSAMPLE {
		upsample = MAX_UPSAMPLE
	}

	*D = demodulator_state_s{} //nolint:exhaustruct
	D.dcd = DCD_CONFIG_9600

	var B = new(bb_state_s)
	D.u = B
	B.upsample = upsample

	D.modem_type = modem_type
	D.num_slicers = 1

	D.lp_filter_width_sym = 1.0 // -U4 = 61 	4.59 samples/symbol

	D.lp_filter_taps = int((D.lp_filter_width_sym * float64(original_sample_rate) / float64(baud)) + 0.5)

	if D.lp_filter_taps*upsample > MAX_FILTER_SIZE {
		dw_log(DW_COLOR_ERROR, "Calculated low pass filter size is too large; it will be clipped.",
			"taps", D.lp_filter_taps*upsample, "max", MAX_FILTER_SIZE,
			"samples_per_sec", original_sample_rate, "baud", baud)
		D.lp_filter_taps = MAX_FILTER_SIZE / upsample
	}
	// Kernel needs at least 3 taps.
	D.lp_filter_taps = max(D.lp_filter_taps, 3)

	D.lp_window = BP_WINDOW_COSINE

	D.lpf_baud = 1.00

	D.agc_fast_attack = 0.080
	D.agc_slow_decay = 0.00012

	D.pll_locked_inertia = 0.89
	D.pll_searching_inertia = 0.67

	D.pll_step_per_sample = int32(math.Round(TICKS_PER_PLL_CYCLE * float64(baud) / float64(original_sample_rate*upsample)))

	var fc = float64(baud) * D.lpf_baud / float64(original_sample_rate*upsample)
	D.lp_filter_delay = gen_lowpass(fc, B.lp_filter[:], D.lp_filter_taps*upsample, D.lp_window, 0.5)

	dw_log(DW_COLOR_DEBUG, "Baseband low pass filter", "taps", D.lp_filter_taps*upsample,
		"delay_samples", float64(D.lp_filter_delay)/float64(upsample))

	// Sub filter k gets taps k, k+upsample, k+2*upsample, ...

	for i := 0; i < D.lp_filter_taps; i++ {
		for k := 0; k < upsample; k++ {
			B.lp_polyphase[k][i] = B.lp_filter[i*upsample+k]
		}
	}

	B.audio_in.init(D.lp_filter_taps)

} /* end demod_9600_init */

/*-------------------------------------------------------------------
 *
 * Name:        process_sample
 *
 * Purpose:     (1) Filter & slice the signal.
 *		(2) Recover clock and data.
 *
 * Inputs:	sam	- One sample of audio.
 *			  Should be in range of -32768 .. 32767.
 *
 * Descripion:	"9600 baud" packet is FSK for an FM voice transceiver.
 *		By the time it gets here, it's really a baseband signal.
 *		At one extreme, we could have a 4800 Hz square wave.
 *		A the other extreme, we could go a considerable number
 *		of bit times without any transitions.
 *
 *		The trick is to extract the digital data which has
 *		been distorted by going thru voice transceivers not
 *		intended to pass this sort of "audio" signal.
 *
 *		For G3RUH mode, data is "scrambled" to reduce the amount of DC bias.
 *		The HDLC decoder unscrambles it.
 *
 *		Upsampling would normally insert zeros between the samples
 *		and then apply a low pass filter.  Most of the multiplies
 *		would be by zero so instead each sub filter of the
 *		polyphase set produces one of the upsampled values.
 *
 * References:	9600 Baud Packet Radio Modem Design
 *		http://www.amsat.org/amsat/articles/g3ruh/109.html
 *
 *		The KD2BD 9600 Baud Modem
 *		http://www.amsat.org/amsat/articles/kd2bd/9k6modem/
 *
 *--------------------------------------------------------------------*/

func (B *bb_state_s) process_sample(D *demodulator_state_s, sam int) {

	/* Scale to nice number for convenience. */
	/* Consistent with the AFSK demodulator, we'd like to use */
	/* only half of the dynamic range to have some headroom. */
	/* i.e.  input range +-16k becomes +-1 here and is */
	/* displayed in the heard line as audio level 100. */

	var fsam = float64(sam) / 16384.0

	B.audio_in.push(fsam)

	for k := 0; k < B.upsample; k++ {
		process_filtered_sample(D, B.audio_in.convolve(B.lp_polyphase[k][:]))
	}
}

func process_filtered_sample(D *demodulator_state_s, fsam float64) {

	/*
	 * Capture the post-filtering amplitude for display.
	 * For AFSK, we keep mark and space amplitudes.
	 * Here we keep + and - peaks because there could be a DC bias.
	 */

	D.alevel_mark_peak = track_peak(D.alevel_mark_peak, fsam, D.quick_attack, D.sluggish_decay)
	D.alevel_space_peak = track_valley(D.alevel_space_peak, fsam, D.quick_attack, D.sluggish_decay)

	/*
	 * The input level can vary greatly.
	 * More importantly, there could be a DC bias which we need to remove.
	 *
	 * Normalize the signal with automatic gain control (AGC).
	 * This works by looking at the minimum and maximum signal peaks
	 * and scaling the results to be roughly in the -0.5 to +0.5 range.
	 */

	var demod_out float64
	D.m_peak, D.m_valley, demod_out = agc(fsam, D.agc_fast_attack, D.agc_slow_decay, D.m_peak, D.m_valley)

	if D.num_slicers <= 1 {
		/* Normal case of one demodulator to one HDLC decoder. */
		nudge_pll_9600(D, 0, demod_out)
	} else {
		/* Multiple slicers each feeding its own HDLC decoder. */
		for slice := 0; slice < D.num_slicers; slice++ {
			nudge_pll_9600(D, slice, demod_out-slice_point[slice])
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        nudge_pll_9600
 *
 * Purpose:	Update the PLL state for each audio sample.
 *
 * Inputs:	D	- Demodulator state for this channel / subchannel.
 *
 *		slice	- Determines which Slicing level & HDLC decoder to use.
 *
 *		demod_out_f - Demodulator output, possibly shifted by slicing level
 *				It will be compared with 0.0 to bit binary value out.
 *
 * Description:	A PLL is used to sample near the centers of the data bits.
 *		It is sampled when the signed 32 bit counter goes from
 *		non-negative to negative.
 *
 *		Always pulling the PLL phase toward 0 after a zero crossing
 *		adds extra jitter, especially when the ratio of audio sample
 *		rate to baud is low.  Instead, we interpolate between the two
 *		samples to get an estimate on when the zero crossing happened.
 *		The PLL is pulled toward this point.
 *
 *--------------------------------------------------------------------*/

func nudge_pll_9600(D *demodulator_state_s, slice int, demod_out_f float64) {

	var S = &D.slicer[slice]

	if D.pll_advance(slice) {

		/* Overflow.  Was large positive, wrapped around, now large negative. */

		var raw = IfThenElse(demod_out_f > 0, 1, 0)
		var quality = min(int(math.Abs(demod_out_f)*200.0), 100)

		D.emit_bit(slice, raw, D.modem_type == MODEM_SCRAMBLE, S.lfsr, quality)

		// Keep our copy of the line history so observers can descramble.
		S.lfsr = (S.lfsr << 1) | raw

		D.pll_sampled(slice)
	}

	/*
	 * Zero crossing?
	 */
	if (S.prev_demod_out_f < 0 && demod_out_f > 0) ||
		(S.prev_demod_out_f > 0 && demod_out_f < 0) {

		// Note:  Test for this demodulator, not overall for channel.

		var target = float64(D.pll_step_per_sample) * demod_out_f / (demod_out_f - S.prev_demod_out_f)

		D.pll_transition(slice, target, math.Trunc)
	}

	/*
	 * Remember demodulator output (pre-descrambling) so we can compare next time
	 * for the DPLL sync.
	 */
	S.prev_demod_out_f = demod_out_f

} /* end nudge_pll_9600 */
