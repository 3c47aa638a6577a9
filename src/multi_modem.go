package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:	Use multiple modems in parallel to increase chances
 *		of decoding less than ideal signals.
 *
 * Description:	The initial motivation was for HF SSB where mistuning
 *		causes a shift in the audio frequencies.  Here, we can
 * 		have multiple modems tuned to staggered pairs of tones
 *		in hopes that one will be close enough.
 *
 *		For VHF FM, the tones should always have the right
 *		frequencies but we might want multiple slicers to
 *		compensate for the unknown mark / space amplitude ratio.
 *
 *		The tricky part is picking the best one when there is
 *		more than one success and discarding the rest.
 *
 *------------------------------------------------------------------*/

import (
	"math"
)

// A frame with a good FCS, on its way to the application.
type Packet struct {
	Channel    int
	Subchannel int // Which demodulator found it.
	Slice      int // Which slicer found it.

	Frame []byte // AX.25 frame without the FCS.

	Alevel     AudioLevel
	SpeedError float64 // Percent.

	Retries retry_t // Level of correction used.

	// One character per subchannel / slicer pair with the outcome of
	// each: | = perfect, : = single bit fixed, . = more, _ = nothing.
	// Empty when there is only one demodulator with one slicer.
	Spectrum string
}

type candidate_t struct {
	packet *Packet
	age    int
	crc    uint16
	score  int
}

/*
 * Candidates for further processing.
 * Wait a few bit times so the other decoders have a chance
 * to finish with the same frame.
 */

const PROCESS_AFTER_BITS = 3

type multi_modem struct {
	audio *AudioConfig

	candidate [MAX_RADIO_CHANS][MAX_SUBCHANS][MAX_SLICERS]candidate_t

	process_age [MAX_RADIO_CHANS]int

	sinks []PacketSink
}

/*------------------------------------------------------------------------------
 *
 * Name:	new_multi_modem
 *
 * Purpose:	How long to hold candidates on each channel.
 *
 * Inputs:	Configuration, after the receiver normalized it.
 *
 *------------------------------------------------------------------------------*/

func new_multi_modem(pa *AudioConfig) *multi_modem {
	var mm = new(multi_modem)
	mm.audio = pa

	for channel := range MAX_RADIO_CHANS {
		var c = &pa.Chan[channel]
		if c.Medium != MEDIUM_RADIO {
			continue
		}

		Assert(c.Baud > 0)

		var real_baud = c.Baud
		if c.ModemType == MODEM_QPSK {
			real_baud = c.Baud / 2
		}
		if c.ModemType == MODEM_8PSK {
			real_baud = c.Baud / 3
		}

		mm.process_age[channel] = PROCESS_AFTER_BITS * pa.SamplesPerSec / max(real_baud, 1)
	}

	return mm
}

/*-------------------------------------------------------------------
 *
 * Name:        RecPacket
 *
 * Purpose:     This is called when we receive a frame with a valid
 *		FCS and acceptable size.
 *
 * Description:	If only one demodulator/slicer, push it thru and forget
 *		about all this foolishness.  Otherwise add to list of
 *		candidates.  Best one will be picked later.
 *
 *--------------------------------------------------------------------*/

func (mm *multi_modem) RecPacket(p *Packet) {

	Assert(p != nil)
	Assert(p.Channel >= 0 && p.Channel < MAX_RADIO_CHANS)
	Assert(p.Subchannel >= 0 && p.Subchannel < MAX_SUBCHANS)
	Assert(p.Slice >= 0 && p.Slice < MAX_SLICERS)

	var c = &mm.audio.Chan[p.Channel]

	if c.num_subchan == 1 && c.num_slicers == 1 {
		mm.deliver(p)
		return
	}

	/*
	 * Otherwise, save them up for a few bit times so we can pick the best.
	 * Anything still there is quietly replaced.
	 */

	var cand = &mm.candidate[p.Channel][p.Subchannel][p.Slice]

	cand.packet = p
	cand.age = 0
	cand.crc = fcs_calc(p.Frame)
}

/*
 * Called once for each audio sample of the channel.
 */

func (mm *multi_modem) age_candidates(channel int) {
	var c = &mm.audio.Chan[channel]

	for subchan := 0; subchan < c.num_subchan; subchan++ {
		for slice := 0; slice < c.num_slicers; slice++ {
			var cand = &mm.candidate[channel][subchan][slice]
			if cand.packet != nil {
				cand.age++
				if cand.age > mm.process_age[channel] {
					mm.pick_best_candidate(channel)
				}
			}
		}
	}
}

/* This is a suitable order for interleaved "G" demodulators. */
/* Opposite order would be suitable for multi-frequency although */
/* multiple slicers are of questionable value for HF SSB. */

func (mm *multi_modem) subchan_from_n(channel int, x int) int {
	return x % mm.audio.Chan[channel].num_subchan
}

func (mm *multi_modem) slice_from_n(channel int, x int) int {
	return x / mm.audio.Chan[channel].num_subchan
}

/*-------------------------------------------------------------------
 *
 * Name:        pick_best_candidate
 *
 * Purpose:     This is called when we have one or more candidates
 *		available for a certain amount of time.
 *
 * Description:	Pick the best one and send it up to the application.
 *		Discard the others.
 *
 * Rules:	We prefer one received perfectly but will settle for
 *		one where some bits had to be flipped to get a good CRC.
 *
 *--------------------------------------------------------------------*/

func (mm *multi_modem) pick_best_candidate(channel int) {

	var c = &mm.audio.Chan[channel]
	var num_bars = c.num_slicers * c.num_subchan

	var spectrum [MAX_SUBCHANS * MAX_SLICERS]byte

	for n := 0; n < num_bars; n++ {
		var cand = &mm.candidate[channel][mm.subchan_from_n(channel, n)][mm.slice_from_n(channel, n)]

		/* Build the spectrum display. */

		switch {
		case cand.packet == nil:
			spectrum[n] = '_'
		case cand.packet.Retries == RETRY_NONE:
			spectrum[n] = '|'
		case cand.packet.Retries == RETRY_INVERT_SINGLE:
			spectrum[n] = ':'
		default:
			spectrum[n] = '.'
		}

		/* Beginning score depends on effort to get a valid frame CRC. */
		/* The minimum is 1 for anything received. */

		if cand.packet == nil {
			cand.score = 0
		} else {
			cand.score = int(RETRY_MAX)*1000 - int(cand.packet.Retries)*1000 + 1
		}
	}

	/* Bump it up slightly if others nearby have the same CRC. */

	for n := 0; n < num_bars; n++ {
		var cand = &mm.candidate[channel][mm.subchan_from_n(channel, n)][mm.slice_from_n(channel, n)]

		if cand.packet == nil {
			continue
		}

		for m := 0; m < num_bars; m++ {
			var other = &mm.candidate[channel][mm.subchan_from_n(channel, m)][mm.slice_from_n(channel, m)]

			if m != n && other.packet != nil && cand.crc == other.crc {
				cand.score += (num_bars + 1) - int(math.Abs(float64(m-n)))
			}
		}
	}

	var best_n = 0
	var best_score = 0

	for n := 0; n < num_bars; n++ {
		var cand = &mm.candidate[channel][mm.subchan_from_n(channel, n)][mm.slice_from_n(channel, n)]

		if cand.packet != nil && cand.score > best_score {
			best_score = cand.score
			best_n = n
		}
	}

	if best_score == 0 {
		dw_log(DW_COLOR_ERROR, "Unexpected internal problem in pick_best_candidate.  How can best score be zero?",
			"channel", channel)
		return
	}

	var best = mm.candidate[channel][mm.subchan_from_n(channel, best_n)][mm.slice_from_n(channel, best_n)].packet

	/* Clear them all, including the one chosen. */

	for n := 0; n < num_bars; n++ {
		mm.candidate[channel][mm.subchan_from_n(channel, n)][mm.slice_from_n(channel, n)] = candidate_t{}
	}

	best.Spectrum = string(spectrum[:num_bars])

	mm.deliver(best)

} /* end pick_best_candidate */

func (mm *multi_modem) deliver(p *Packet) {
	for _, sink := range mm.sinks {
		sink.RecPacket(p)
	}
}
