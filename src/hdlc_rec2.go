package direwolf

/********************************************************************************
 *
 * Purpose:	Extract HDLC frame from a block of bits after someone
 *		else has done the work of pulling it out from between
 *		the special "flag" sequences.
 *
 * Description:	The HDLC decoder collects the raw bits between flags.
 *		Here we undo the NRZI (and scrambling), remove the
 *		stuffed bits and check the FCS.
 *
 *		If that fails, we can try flipping one or two adjacent
 *		bits to see if the FCS comes out right.  The effort is
 *		set per channel with FixBits.
 *
 *		Note that the raw bits are the real thing.  The octets
 *		collected on the fly by the HDLC decoder are not used here.
 *
 *******************************************************************************/

import (
	"slices"
)

type retry_mode_t int

const RETRY_MODE_CONTIGUOUS retry_mode_t = 0

type retry_type_t int

const RETRY_TYPE_NONE retry_type_t = 0
const RETRY_TYPE_SWAP retry_type_t = 1

type retry_conf_t struct {
	retry retry_t
	mode  retry_mode_t
	_type retry_type_t

	contig struct {
		bit_idx int
		nr_bits int
	}
}

// Not the same as hdlc_state_s in hdlc_rec.go.  "2" was added to reduce confusion.

type hdlc_state2_s struct {
	prev_raw bool /* Keep track of previous bit so */
	/* we can look for transitions. */

	is_scrambled bool /* Set for 9600 baud. */
	lfsr         int  /* Descrambler shift register for 9600 baud. */
	prev_descram int  /* Previous unscrambled for 9600 baud. */

	pat_det byte /* 8 bit pattern detector shift register. */

	oacc byte /* Accumulator for building up an octet. */

	olen int /* Number of bits in oacc. */

	frame_buf [MAX_FRAME_LEN]byte

	frame_len int /* Number of octets in frame_buf. */
}

// FrameSink which recovers frames with a good FCS from the raw bits
// and passes them along.
type Validator struct {
	audio *AudioConfig
	out   PacketSink
}

func NewValidator(pa *AudioConfig, out PacketSink) *Validator {
	Assert(pa != nil)
	return &Validator{audio: pa, out: out}
}

/***********************************************************************************
 *
 * Name:	RecFrame
 *
 * Purpose:	Extract HDLC frames from a block of bits after someone
 *		else has done the work of pulling it out from between
 *		the special "flag" sequences.
 *
 * Inputs:	block		- Raw bits between flags, with where it
 *				  came from and the descrambler state.
 *
 * Description:	First try it as is.  Then try the fix ups allowed for
 *		the channel, stopping at the first success.
 *
 ***********************************************************************************/

func (v *Validator) RecFrame(block *RRBB) {

	Assert(block != nil)

	var fix_bits = v.audio.Chan[block.Channel].FixBits

	/*
	 * For our first attempt we don't try to alter any bits.
	 */

	var retry_cfg retry_conf_t

	retry_cfg._type = RETRY_TYPE_NONE
	retry_cfg.mode = RETRY_MODE_CONTIGUOUS
	retry_cfg.retry = RETRY_NONE

	if v.try_decode(block, &retry_cfg) {
		return
	}

	/*
	 * Not successful with frame in original form.
	 * See if we can "fix" it.
	 */
	v.try_to_fix_quick_now(block, fix_bits)

} /* end RecFrame */

/***********************************************************************************
 *
 * Name:	try_to_fix_quick_now
 *
 * Purpose:	Attempt some quick fixups that don't take very long.
 *
 * Inputs:	block	- Stream of bits that might be a frame.
 *		fix_bits - How far to go.
 *
 * Returns:	true for success.
 *
 ***********************************************************************************/

func (v *Validator) try_to_fix_quick_now(block *RRBB, fix_bits retry_t) bool {

	var length = block.Len()

	var retry_cfg retry_conf_t

	/* Will modify only contiguous bits*/
	retry_cfg.mode = RETRY_MODE_CONTIGUOUS

	/*
	 * Try inverting one bit.
	 */
	if fix_bits < RETRY_INVERT_SINGLE {

		/* Stop before single bit fix up. */

		return false /* failure. */
	}

	retry_cfg._type = RETRY_TYPE_SWAP
	retry_cfg.retry = RETRY_INVERT_SINGLE
	retry_cfg.contig.nr_bits = 1

	for i := 0; i < length; i++ {
		retry_cfg.contig.bit_idx = i
		if v.try_decode(block, &retry_cfg) {
			return true
		}
	}

	/*
	 * Try inverting two adjacent bits.
	 */
	if fix_bits < RETRY_INVERT_DOUBLE {
		return false
	}

	retry_cfg.retry = RETRY_INVERT_DOUBLE
	retry_cfg.contig.nr_bits = 2

	for i := 0; i < length-1; i++ {
		retry_cfg.contig.bit_idx = i
		if v.try_decode(block, &retry_cfg) {
			return true
		}
	}

	return false
}

func is_contig_bit_modified(bit_idx int, retry_conf *retry_conf_t) bool {
	var cont_bit_idx = retry_conf.contig.bit_idx
	var cont_nr_bits = retry_conf.contig.nr_bits

	return bit_idx >= cont_bit_idx && bit_idx < cont_bit_idx+cont_nr_bits
}

/***********************************************************************************
 *
 * Name:	try_decode
 *
 * Inputs:	block		- Bit string that was collected between "flag" patterns.
 *
 *		retry_conf	- Controls changes that will be attempted to get a good CRC.
 *
 * Returns:	true = successfully extracted something and passed it along.
 *		false = failure.
 *
 ***********************************************************************************/

func (v *Validator) try_decode(block *RRBB, retry_conf *retry_conf_t) bool {

	var H2 hdlc_state2_s

	var frame, ok = decode_rrbb(block, retry_conf, &H2)
	if !ok {
		return false
	}

	if v.out != nil {
		v.out.RecPacket(&Packet{
			Channel:    block.Channel,
			Subchannel: block.Subchannel,
			Slice:      block.Slice,
			Frame:      slices.Clone(frame),
			Alevel:     block.Alevel,
			SpeedError: block.SpeedError,
			Retries:    retry_conf.retry,
		})
	}
	return true
}

// Rebuild the frame from the raw bits, with the FCS removed.
// The result points into H2 which is scratch space for the caller.
func decode_rrbb(block *RRBB, retry_conf *retry_conf_t, H2 *hdlc_state2_s) ([]byte, bool) {

	var blen = block.Len()
	if blen < 1 {
		return nil, false
	}

	var swap = retry_conf.mode == RETRY_MODE_CONTIGUOUS && retry_conf._type == RETRY_TYPE_SWAP

	H2.is_scrambled = block.IsScrambled
	H2.prev_descram = block.PrevDescram
	H2.lfsr = block.DescramState
	H2.prev_raw = block.Bit(0) > 0 /* Actually last bit of the */
	/* opening flag so we can derive the */
	/* first data bit.  */

	if swap && is_contig_bit_modified(0, retry_conf) {
		H2.prev_raw = !H2.prev_raw
	}

	H2.pat_det = 0
	H2.oacc = 0
	H2.olen = 0
	H2.frame_len = 0

	for i := 1; i < blen; i++ {
		/* Get the value for the current bit */
		var raw = block.Bit(i) > 0

		if swap && is_contig_bit_modified(i, retry_conf) {
			raw = !raw
		}

		/*
		 * Octets are sent LSB first.
		 * Shift the most recent 8 bits thru the pattern detector.
		 */
		H2.pat_det >>= 1

		/*
		 * Using NRZI encoding,
		 *   A '0' bit is represented by an inversion since previous bit.
		 *   A '1' bit is represented by no change.
		 */

		var dbit bool

		if H2.is_scrambled {
			var descram = descramble(IfThenElse(raw, 1, 0), &(H2.lfsr))

			dbit = (descram == H2.prev_descram)
			H2.prev_descram = descram
			H2.prev_raw = raw
		} else {
			dbit = (raw == H2.prev_raw)
			H2.prev_raw = raw
		}

		if dbit {

			H2.pat_det |= 0x80
			/* Valid data will never have 7 one bits in a row: exit. */
			if H2.pat_det == 0xfe {
				return nil, false
			}
			H2.oacc >>= 1
			H2.oacc |= 0x80
		} else {

			/* The special pattern 01111110 indicates beginning and ending of a frame: exit. */
			if H2.pat_det == 0x7e {
				return nil, false

				/*
				 * If we have five '1' bits in a row, followed by a '0' bit,
				 *
				 *	011111xx
				 *
				 * the current '0' bit should be discarded because it was added for
				 * "bit stuffing."
				 */
			} else if (H2.pat_det >> 2) == 0x1f {
				continue
			}
			H2.oacc >>= 1
		}

		/*
		 * Now accumulate bits into octets, and complete octets
		 * into the frame buffer.
		 */

		H2.olen++

		if H2.olen == 8 {
			H2.olen = 0

			if H2.frame_len < MAX_FRAME_LEN {
				H2.frame_buf[H2.frame_len] = H2.oacc
				H2.frame_len++
			}
		}
	} /* end of loop on all bits in block */

	/*
	 * Do we have a minimum number of complete bytes?
	 */

	if H2.olen != 0 || H2.frame_len < MIN_FRAME_LEN {
		return nil, false
	}

	/* Check FCS, low byte first. */

	var actual_fcs = uint16(H2.frame_buf[H2.frame_len-2]) | (uint16(H2.frame_buf[H2.frame_len-1]) << 8)

	var expected_fcs = fcs_calc(H2.frame_buf[:H2.frame_len-2])

	if actual_fcs != expected_fcs {
		return nil, false
	}

	return H2.frame_buf[:H2.frame_len-2], true /* len-2 to remove FCS. */

} /* end decode_rrbb */
