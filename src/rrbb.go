package direwolf

/********************************************************************************
 *
 * Purpose:	Raw Received Bit Buffer.
 *		An array of bits used to hold data out of
 *		the demodulator before feeding it into the HLDC decoding.
 *
 *		The initial state of the 9600 baud descrambler is saved
 *		so we can attempt bit fix up on G3RUH/K9NG scrambled data.
 *
 *		Stored as bytes rather than packing 8 bits per byte.
 *
 *		Whoever receives one from the HDLC decoder owns it.
 *		The decoder never touches it again.
 *
 *******************************************************************************/

type RRBB struct {
	Channel    int // Radio channel from which it was received.
	Subchannel int // Which modem when more than one per channel.
	Slice      int // Which slicer.

	Alevel AudioLevel // Received audio level at time of frame capture.

	SpeedError float64 // Received data speed error as percentage.

	length int // Current number of bits in array.

	overflow bool // Bits were dropped because the array was full.

	IsScrambled  bool // Is data scrambled G3RUH / K9NG style?
	DescramState int  // Descrambler state before first data bit of frame.
	PrevDescram  int  // Previous descrambled bit.

	// Octets collected on the fly by the HDLC decoder, FCS included.
	// Might be truncated.  The raw bits are the real thing.
	Frame []byte

	fdata [MAX_NUM_BITS]byte
}

/***********************************************************************************
 *
 * Name:	rrbb_new
 *
 * Purpose:	Allocate space for an array of samples.
 *
 * Inputs:	channel	- Radio channel from whence it came.
 *
 *		subchannel	- Which demodulator of the channel.
 *
 *		slice	- multiple thresholds per demodulator.
 *
 *		is_scrambled - Is data scrambled? (true, false)
 *
 *		descram_state - State of data descrambler.
 *
 *		prev_descram - Previous descrambled bit.
 *
 * Returns:	Handle to be used by other functions.
 *
 ***********************************************************************************/

func rrbb_new(channel int, subchannel int, slice int, is_scrambled bool, descram_state int, prev_descram int) *RRBB {
	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)
	Assert(subchannel >= 0 && subchannel < MAX_SUBCHANS)
	Assert(slice >= 0 && slice < MAX_SLICERS)

	var result = new(RRBB)
	result.Channel = channel
	result.Subchannel = subchannel
	result.Slice = slice

	result.clear(is_scrambled, descram_state, prev_descram)

	return result
}

/***********************************************************************************
 *
 * Name:	clear
 *
 * Purpose:	Clear by setting length to zero, etc.
 *
 * Inputs:	is_scrambled 	- Is data scrambled? (true, false)
 *
 *		descram_state 	- State of data descrambler.
 *
 *		prev_descram 	- Previous descrambled bit.
 *
 ***********************************************************************************/

func (b *RRBB) clear(is_scrambled bool, descram_state int, prev_descram int) {
	Assert(prev_descram == 0 || prev_descram == 1)

	b.Alevel = noAudioLevel
	b.SpeedError = 0

	b.length = 0
	b.overflow = false

	b.IsScrambled = is_scrambled
	b.DescramState = descram_state
	b.PrevDescram = prev_descram

	b.Frame = nil
}

/***********************************************************************************
 *
 * Name:	append_bit
 *
 * Purpose:	Append another bit to the end.
 *
 ***********************************************************************************/

func (b *RRBB) append_bit(val int) {
	if b.length >= MAX_NUM_BITS {
		b.overflow = true /* Discard, and the whole frame with it at the next flag. */
		return
	}
	b.fdata[b.length] = byte(val)
	b.length++
}

/***********************************************************************************
 *
 * Name:	chop8
 *
 * Purpose:	Remove 8 from the length.
 *
 * Description:	Back up after appending the flag sequence.
 *		After an overflow the last 8 bits kept are data, not
 *		the flag, so the result is useless.  See Overflowed.
 *
 ***********************************************************************************/

func (b *RRBB) chop8() {
	if b.length >= 8 {
		b.length -= 8
	}
}

// Overflowed is true if more bits arrived than a frame can have.
func (b *RRBB) Overflowed() bool {
	return b.overflow
}

// Len is the number of raw bits.
func (b *RRBB) Len() int {
	return b.length
}

// Bit returns raw bit ind, 0 or 1, as it came out of the slicer.
func (b *RRBB) Bit(ind int) int {
	Assert(ind >= 0 && ind < b.length)
	return int(b.fdata[ind])
}

// Bits is a copy of the raw bits.
func (b *RRBB) Bits() []byte {
	return append([]byte(nil), b.fdata[:b.length]...)
}
