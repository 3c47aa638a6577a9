package direwolf

// Sizing constants for the receive chain.

/*
 * Maximum number of audio devices.
 * Three is probably adequate.
 * Each can be mono or stereo so there are two radio channels per device.
 *
 *	ADevice 0:	channel 0 (and 1 if stereo)
 *	ADevice 1:	left = 2, right = 3
 */

const MAX_ADEVS = 3

const MAX_RADIO_CHANS = ((MAX_ADEVS) * 2)

/*
 * Maximum number of modems per channel.
 * I called them "subchannels" because
 * it is short and unambiguous.
 * Nothing magic about the number.  Could be larger
 * but CPU demands might be overwhelming.
 */

const MAX_SUBCHANS = 9

/*
 * Each one of these can have multiple slicers, at
 * different levels, to compensate for different
 * amplitudes of the AFSK tones.
 */

const MAX_SLICERS = 9

/*
 * Frame sizes, in octets, including the 2 byte FCS.
 *
 * The minimum is the smallest AX.25 frame (two addresses and control)
 * plus FCS.  The maximum is generous enough for a 2048 byte info part.
 */

const AX25_MIN_PACKET_LEN = (2*7 + 1)

const AX25_MAX_PACKET_LEN = (10*7 + 2 + 3 + 2048)

const MIN_FRAME_LEN = (AX25_MIN_PACKET_LEN + 2)

const MAX_FRAME_LEN = (AX25_MAX_PACKET_LEN + 2)

/* Raw bits between flags.  Worst case is 6 bits on the line for every 5 data bits. */

const MAX_NUM_BITS = (MAX_FRAME_LEN * 8 * 6 / 5)

/* One symbol period for the digital PLL. */

const TICKS_PER_PLL_CYCLE = 256.0 * 256.0 * 256.0 * 256.0
