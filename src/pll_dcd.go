package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Data clock recovery and Data Carrier Detect, shared by
 *		all of the demodulators.
 *
 * Description:	Each slicer has a 32 bit counter which advances by
 *		pll_step_per_sample for each audio sample and wraps
 *		once per symbol.  Data is sampled where it wraps from
 *		positive to negative.  When the demodulator output
 *		changes, the counter is pulled toward where the
 *		transition should have been.
 *
 *		DCD used to be based on finding several flag octets
 *		in a row and dropping when eight bits with no transitions.
 *		That fell apart with the FX.25 correlation tags, a couple
 *		of which have eight "1" bits in a row.
 *
 * 		Instead we keep a running score of how well demodulator
 *		output transitions match to where expected.
 *
 *---------------------------------------------------------------*/

import (
	"math/bits"
)

// DCDConfig holds the lock detection thresholds for one kind of modem.
type DCDConfig struct {
	// Asserted when at least this many of the last 32 symbols had
	// good transitions outnumbering bad ones.
	ThreshOn int

	// Dropped at this many or fewer.
	ThreshOff int

	// Transition window either side of the sampling point, in units
	// of 2**20 PLL counts.  No more than 1024.
	GoodWidth int
}

// These values are good for 1200 bps AFSK.
// Might want to override for other modems.
func GenericDCDConfig() *DCDConfig {
	return &DCDConfig{
		// Hysteresis: Can miss 2 out of 32 for detecting lock.
		// 31 is best for TNC Test CD.  30 almost as good.
		// 30 better for 1200 regression test.
		ThreshOn:  30,
		ThreshOff: 6, // Might want a little more fine tuning.
		GoodWidth: 512,
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        transition
 *
 * Purpose:     Note whether a demodulator output transition happened
 *		near where expected.
 *
 * Inputs:	dpll_phase	- Signed PLL counter.  Ideally transitions
 *				  occur close to 0.
 *
 *--------------------------------------------------------------------*/

func (c *DCDConfig) transition(S *slicer_state_s, dpll_phase int32) {
	var w = int64(c.GoodWidth) << 20

	if p := int64(dpll_phase); p > -w && p < w {
		S.good_flag = true
	} else {
		S.bad_flag = true
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        symbol
 *
 * Purpose:     Update the score once per symbol.
 *
 * Returns:     true if data_detect changed.
 *
 *--------------------------------------------------------------------*/

func (c *DCDConfig) symbol(S *slicer_state_s) bool {
	S.good_hist = S.good_hist<<1 | uint8(IfThenElse(S.good_flag, 1, 0))
	S.bad_hist = S.bad_hist<<1 | uint8(IfThenElse(S.bad_flag, 1, 0))
	S.good_flag = false
	S.bad_flag = false

	// 2 is to detect 'flag' patterns with 2 transitions per octet.
	var good = bits.OnesCount8(S.good_hist)-bits.OnesCount8(S.bad_hist) >= 2
	S.score = S.score<<1 | uint32(IfThenElse(good, 1, 0))

	var detect = S.data_detect
	switch s := bits.OnesCount32(S.score); {
	case s >= c.ThreshOn:
		detect = true
	case s <= c.ThreshOff:
		detect = false
	}

	if detect == S.data_detect {
		return false
	}
	S.data_detect = detect
	return true
}

/*
 * Called by the demodulators for each audio sample, in this order:
 *
 *	if D.pll_advance(slice) { ...emit bits...; D.pll_sampled(slice) }
 *	if output changed { D.pll_transition(slice, target, round) }
 */

// Returns true where the data should be sampled.
func (D *demodulator_state_s) pll_advance(slice int) bool {
	var S = &D.slicer[slice]

	S.prev_d_c_pll = S.data_clock_pll

	// Perform the add as unsigned so it wraps around.
	S.data_clock_pll = int32(uint32(S.data_clock_pll) + uint32(D.pll_step_per_sample))

	return S.data_clock_pll < 0 && S.prev_d_c_pll >= 0
}

func (D *demodulator_state_s) pll_sampled(slice int) {
	var S = &D.slicer[slice]

	S.pll_symbol_count++

	if D.dcd.symbol(S) && D.out != nil {
		D.out.dcd_change(D.channel, D.subchannel, slice, S.data_detect)
	}
}

// Score the transition then pull the PLL toward target, which is
// where the counter should be now.  Inertia is larger while locked.
// round is math.Trunc or math.Floor depending on the modem.
func (D *demodulator_state_s) pll_transition(slice int, target float64, round func(float64) float64) {
	var S = &D.slicer[slice]

	D.dcd.transition(S, S.data_clock_pll)

	var inertia = IfThenElse(S.data_detect, D.pll_locked_inertia, D.pll_searching_inertia)

	var before = S.data_clock_pll
	S.data_clock_pll = int32(round(float64(S.data_clock_pll)*inertia + target*(1.0-inertia)))
	S.pll_nudge_total += int64(S.data_clock_pll) - int64(before)
}
