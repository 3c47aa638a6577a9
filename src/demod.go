package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Common entry point for multiple types of demodulators.
 *
 * Input:	Audio samples from either a file or the "sound card."
 *
 * Outputs:	Calls the HDLC decoder and any bit observers for each bit
 *		demodulated.  Valid frames end up at the packet sinks.
 *
 *		Everything for one receiver lives in a Receiver so
 *		independent instances can run side by side.  Within one
 *		channel, samples must be delivered in order from a single
 *		goroutine.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

type Receiver struct {
	audio *AudioConfig

	demod [MAX_RADIO_CHANS][MAX_SUBCHANS]*demodulator_state_s

	num_subchan [MAX_RADIO_CHANS]int

	sample_sum   [MAX_RADIO_CHANS][MAX_SUBCHANS]int
	sample_count [MAX_RADIO_CHANS][MAX_SUBCHANS]int

	mute_input [MAX_RADIO_CHANS]bool

	samples_in [MAX_RADIO_CHANS]int64 // For time stamps relative to the start.

	hdlc [MAX_RADIO_CHANS][MAX_SUBCHANS][MAX_SLICERS]*hdlc_state_s

	composite_dcd [MAX_RADIO_CHANS][MAX_SUBCHANS][MAX_SLICERS]bool

	rand recvRand // For RecvBER.

	bitObservers  []BitObserver
	frameSink     FrameSink
	dcdListeners  []DCDListener
	busyListeners []ChannelBusyListener

	mm *multi_modem

	stats *audio_stats // nil when not reporting.
}

/*------------------------------------------------------------------
 *
 * Name:        NewReceiver
 *
 * Purpose:     Initialize the demodulator(s) and HDLC decoders used
 *		for reception.
 *
 * Inputs:      pa		- Audio device and modem parameters.
 *				  The channel settings are normalized in place:
 *				  default profiles, decimation and upsample
 *				  are filled in, as are the number of
 *				  subchannels and slicers.
 *
 * Returns:     The receiver or a configuration error.
 *
 * Description:	Frames are checked by a Validator, with the fix up effort
 *		configured for the channel, then the best of the candidates
 *		from multiple demodulators / slicers goes to the packet sinks.
 *		SetFrameSink replaces the Validator.
 *
 *----------------------------------------------------------------*/

func NewReceiver(pa *AudioConfig) (*Receiver, error) {
	Assert(pa != nil)

	if pa.SamplesPerSec <= 0 {
		return nil, fmt.Errorf("samples per second %d: %w", pa.SamplesPerSec, ErrBadConfig)
	}
	if pa.BitsPerSample != 8 && pa.BitsPerSample != 16 {
		return nil, fmt.Errorf("bits per sample %d is not 8 or 16: %w", pa.BitsPerSample, ErrBadConfig)
	}
	if pa.RecvBER < 0 || pa.RecvBER > 1 {
		return nil, fmt.Errorf("receive bit error rate %g is not in 0 to 1: %w", pa.RecvBER, ErrBadConfig)
	}

	var r = new(Receiver)
	r.audio = pa
	r.rand.seed = 1

	for channel := range MAX_RADIO_CHANS {
		if pa.Chan[channel].Medium != MEDIUM_RADIO {
			continue
		}

		var err = r.init_channel(channel)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", channel, err)
		}

		var c = &pa.Chan[channel]
		r.num_subchan[channel] = c.num_subchan

		for sub := 0; sub < c.num_subchan; sub++ {
			for slice := 0; slice < c.num_slicers; slice++ {
				r.hdlc[channel][sub][slice] = new_hdlc_state(channel, sub, slice, c.ModemType == MODEM_SCRAMBLE)
			}
		}
	}

	r.mm = new_multi_modem(pa)
	r.frameSink = NewValidator(pa, r.mm)

	return r, nil
} /* end NewReceiver */

func (r *Receiver) init_channel(channel int) error {
	var c = &r.audio.Chan[channel]

	if c.Baud <= 0 {
		return fmt.Errorf("baud %d: %w", c.Baud, ErrBadConfig)
	}
	if c.Decimate < 0 || c.Upsample < 0 || c.Upsample > MAX_UPSAMPLE {
		return fmt.Errorf("decimate %d, upsample %d: %w", c.Decimate, c.Upsample, ErrBadConfig)
	}

	/*
	 * These are derived from config file parameters.
	 *
	 * num_subchan is number of demodulators.
	 * This can be increased by:
	 *	Multiple frequencies.
	 *	Multiple letters.
	 *
	 * num_slicers is set to max by the "+" option.
	 */

	c.num_subchan = 1
	c.num_slicers = 1

	switch c.ModemType {

	case MODEM_AFSK:
		return r.init_afsk(channel)

	case MODEM_QPSK, MODEM_8PSK:
		return r.init_psk(channel)

	case MODEM_BASEBAND, MODEM_SCRAMBLE:
		return r.init_baseband(channel)
	}

	return fmt.Errorf("modem type %v: %w", c.ModemType, ErrBadConfig)
}

func (r *Receiver) new_demod(channel, subchannel int) *demodulator_state_s {
	var D = new(demodulator_state_s)
	r.demod[channel][subchannel] = D
	return D
}

// The init functions start from a clean slate so this has to come after.
func (r *Receiver) attach_demod(D *demodulator_state_s, channel, subchannel int) {
	D.channel = channel
	D.subchannel = subchannel
	D.out = r
}

func (r *Receiver) init_afsk(channel int) error {
	var c = &r.audio.Chan[channel]
	var samples_per_sec = r.audio.SamplesPerSec

	if c.NumFreq < 1 {
		c.NumFreq = 1
	}

	/*
	 * Tear apart the profile and put it back together in a normalized form:
	 *	- At least one letter, supply suitable default if necessary.
	 *	- Upper case only.
	 *	- Any plus will be at the end.
	 */
	var just_letters string
	var have_plus = 0
	for i, p := range c.Profiles {
		if unicode.IsLower(p) {
			just_letters += string(unicode.ToUpper(p))
		} else if unicode.IsUpper(p) {
			just_letters += string(p)
		} else if p == '+' || p == '-' {
			have_plus = IfThenElse(p == '+', 1, -1)
			if i+1 != len(c.Profiles) {
				return fmt.Errorf("%c option must appear at end of demodulator types %q: %w", p, c.Profiles, ErrBadConfig)
			}
		} else {
			return fmt.Errorf("demodulator types %q can contain only letters and + - characters: %w", c.Profiles, ErrBadConfig)
		}
	}

	var num_letters = len(just_letters)

	/*
	 * Pick a good default demodulator if none specified.
	 */
	if num_letters == 0 {
		just_letters = "A"
		num_letters = 1

		if have_plus != -1 {
			have_plus = 1 // Add as default, if not explicitly turned off.
		}
	}

	if num_letters > MAX_SUBCHANS {
		return fmt.Errorf("%d demodulator types, no more than %d allowed: %w", num_letters, MAX_SUBCHANS, ErrBadConfig)
	}
	if c.NumFreq > MAX_SUBCHANS {
		return fmt.Errorf("%d frequency pairs, no more than %d allowed: %w", c.NumFreq, MAX_SUBCHANS, ErrBadConfig)
	}

	/*
	 * Number of filter taps is proportional to number of audio samples in a "symbol" duration.
	 * These can get extremely large for low speeds, e.g. 300 baud.
	 * In this case, increase the decimation ration.  Crude approximation. Could be improved.
	 */
	if c.Decimate == 0 && samples_per_sec > 40000 && c.Baud < 600 {
		c.Decimate = 3
	}

	/* At this point, have_plus can have 3 values: */
	/* 	1 = turned on, either explicitly or by applied default */
	/*	-1 = explicitly turned off.  change to 0 here so it is false. */
	/* 	0 = off by default. */

	if have_plus == -1 {
		have_plus = 0
	}

	c.Profiles = just_letters + IfThenElse(have_plus != 0, "+", "")

	/*
	 * Can use only one of these:
	 *
	 *	- Multiple letters.
	 *	- Multiple frequencies.
	 *
	 * and + can't go with multiple frequencies.
	 */

	if have_plus != 0 && c.NumFreq > 1 {
		return fmt.Errorf("demodulator + option can't be combined with multiple frequencies: %w", ErrBadConfig)
	}

	if num_letters > 1 && c.NumFreq > 1 {
		return fmt.Errorf("multiple demodulator types can't be combined with multiple frequencies: %w", ErrBadConfig)
	}

	if c.Decimate == 0 {
		c.Decimate = 1
		if strings.Contains(just_letters, "B") && samples_per_sec > 40000 && samples_per_sec/3 >= 3*c.Baud {
			c.Decimate = 3
		}
	}

	/*
	 * We need a minimum number of audio samples per bit time,
	 * after decimation, for the filters to make any sense.
	 */

	var ratio = float64(samples_per_sec/c.Decimate) / float64(c.Baud)
	if ratio < 3 {
		return fmt.Errorf("ratio %.1f of sample rate %d (decimated by %d) to %d baud is too low, use a higher sample rate or less decimation: %w",
			ratio, samples_per_sec, c.Decimate, c.Baud, ErrRatioTooLow)
	}

	dw_log(DW_COLOR_DEBUG, "AFSK channel",
		"channel", channel, "baud", c.Baud, "mark", c.MarkFreq, "space", c.SpaceFreq,
		"profiles", c.Profiles, "samples_per_sec", samples_per_sec, "decimate", c.Decimate)

	/*
	 * Initialize the demodulator(s).
	 *
	 * Either one per letter, or one per frequency pair.
	 */

	c.num_subchan = max(num_letters, c.NumFreq)
	c.num_slicers = IfThenElse(have_plus != 0, MAX_SLICERS, 1)

	for d := 0; d < c.num_subchan; d++ {
		Assert(d >= 0 && d < MAX_SUBCHANS)

		var profile = just_letters[0]
		var mark = c.MarkFreq
		var space = c.SpaceFreq

		if num_letters > 1 {
			profile = just_letters[d]
		} else {
			var k = d*c.Offset - ((c.NumFreq-1)*c.Offset)/2
			mark += k
			space += k
		}

		if c.num_subchan != 1 {
			dw_log(DW_COLOR_DEBUG, "AFSK subchannel",
				"channel", channel, "subchannel", d, "profile", string(profile), "mark", mark, "space", space)
		}

		var D = r.new_demod(channel, d)

		var err = demod_afsk_init(samples_per_sec/c.Decimate, c.Baud, mark, space, profile, D)
		if err != nil {
			return err
		}

		r.attach_demod(D, channel, d)

		D.num_slicers = c.num_slicers

		/* For signal level reporting, we want a longer term view. */

		D.quick_attack = D.agc_fast_attack * 0.2
		D.sluggish_decay = D.agc_slow_decay * 0.2
	}

	return nil
}

func (r *Receiver) init_psk(channel int) error {
	var c = &r.audio.Chan[channel]
	var samples_per_sec = r.audio.SamplesPerSec

	if c.ModemType == MODEM_QPSK && c.V26Alt == V26_UNSPECIFIED {

		// Two incompatible versions of 2400 bps QPSK are out there.
		// Take the MFJ-2400 compatible one unless told otherwise.

		dw_log(DW_COLOR_ERROR, "Two incompatible versions of 2400 bps QPSK are available. "+
			"Use V.26 alternative A for compatibility with direwolf <= 1.5, B for MFJ-2400. "+
			"The default is MFJ-2400 compatibility mode.", "channel", channel)

		c.V26Alt = V26_DEFAULT
	}

	if c.Profiles == "" {
		c.Profiles = IfThenElse(c.ModemType == MODEM_QPSK, "PQRS", "TUVW")
	}
	c.Profiles = strings.ToUpper(c.Profiles)

	if len(c.Profiles) > MAX_SUBCHANS {
		return fmt.Errorf("%d demodulator types, no more than %d allowed: %w", len(c.Profiles), MAX_SUBCHANS, ErrBadConfig)
	}

	if c.Decimate > 1 {
		// Would probably work but haven't thought about it or tested yet.
		return fmt.Errorf("decimation can't be used with %v: %w", c.ModemType, ErrBadConfig)
	}
	c.Decimate = 1

	c.num_subchan = len(c.Profiles)
	c.num_slicers = 1

	dw_log(DW_COLOR_DEBUG, "PSK channel",
		"channel", channel, "bps", c.Baud, "modem", c.ModemType, "profiles", c.Profiles,
		"samples_per_sec", samples_per_sec,
		"compatible", IfThenElse(c.ModemType == MODEM_8PSK, "", IfThenElse(c.V26Alt == V26_B, "MFJ-2400", "earlier direwolf")))

	for d := 0; d < c.num_subchan; d++ {
		var D = r.new_demod(channel, d)

		var err = demod_psk_init(c.ModemType, c.V26Alt, samples_per_sec, c.Baud, c.Profiles[d], D)
		if err != nil {
			return err
		}

		r.attach_demod(D, channel, d)

		/* For signal level reporting, we want a longer term view. */
		/* Guesses based on 9600.  Maybe revisit someday. */

		D.quick_attack = 0.080 * 0.2
		D.sluggish_decay = 0.00012 * 0.2
	}

	return nil
}

func (r *Receiver) init_baseband(channel int) error {
	var c = &r.audio.Chan[channel]
	var samples_per_sec = r.audio.SamplesPerSec

	if c.Profiles == "" {
		/* "-" can be used on a very slow CPU. */
		c.Profiles = "+"
	}

	/*
	 * We need a minimum number of audio samples per bit time for good performance.
	 */

	var ratio = float64(samples_per_sec) / float64(c.Baud)

	/*
	 * Set reasonable upsample ratio if user did not override.
	 */

	if c.Upsample == 0 {
		switch {
		case ratio < 4:
			// This is extreme.
			// Amazingly a recording with 22050 rate can be decoded.
			c.Upsample = 4
		case ratio < 10:
			// example: 44100 / 9600 is 4.59, 48000 / 9600 = 5
			// 3 is slightly better than 2 or 4.
			c.Upsample = 3
		case ratio < 15:
			c.Upsample = 2
		default:
			// Probably no benefit.
			c.Upsample = 1
		}
	}

	dw_log(DW_COLOR_DEBUG, "Baseband channel",
		"channel", channel, "baud", c.Baud, "modem", c.ModemType, "profiles", c.Profiles,
		"samples_per_sec", samples_per_sec, "upsample", c.Upsample)

	dw_log(DW_COLOR_INFO, fmt.Sprintf("The ratio of audio samples per sec (%d) to data rate in baud (%d) is %.1f",
		samples_per_sec, c.Baud, ratio), "channel", channel)

	switch {
	case ratio < 3:
		return fmt.Errorf("ratio %.1f of sample rate %d to %d baud, there is little hope of success with such a low ratio, use a higher sample rate: %w",
			ratio, samples_per_sec, c.Baud, ErrRatioTooLow)
	case ratio < 5:
		dw_log(DW_COLOR_INFO, "This is on the low side for best performance.  Can you use a higher sample rate?")
		if samples_per_sec == 44100 {
			dw_log(DW_COLOR_INFO, "For example, can you use 48000 rather than 44100?")
		}
	case ratio < 6:
		dw_log(DW_COLOR_INFO, "Increasing the sample rate should improve decoder performance.")
	case ratio > 15:
		dw_log(DW_COLOR_INFO, "Sample rate is more than adequate.  You might lower it if CPU load is a concern.")
	default:
		dw_log(DW_COLOR_INFO, "This is a suitable ratio for good performance.")
	}

	c.num_subchan = 1
	c.num_slicers = IfThenElse(strings.Contains(c.Profiles, "+"), MAX_SLICERS, 1)

	var D = r.new_demod(channel, 0)

	demod_9600_init(c.ModemType, samples_per_sec, c.Upsample, c.Baud, D)

	r.attach_demod(D, channel, 0)

	D.num_slicers = c.num_slicers

	/* For signal level reporting, we want a longer term view. */

	D.quick_attack = D.agc_fast_attack * 0.2
	D.sluggish_decay = D.agc_slow_decay * 0.2

	return nil
}

// Log the audio input sample rate and levels this often while RecvProcess
// is running.  0 turns it off.
func (r *Receiver) SetAudioStatsInterval(interval time.Duration) {
	r.stats = IfThenElse(interval > 0, new_audio_stats(r, interval), nil)
}

// Every bit from every slicer of every channel is also seen by obs.
func (r *Receiver) AddBitObserver(obs BitObserver) {
	r.bitObservers = append(r.bitObservers, obs)
}

// Replace the default Validator.  nil discards the raw bit records.
func (r *Receiver) SetFrameSink(sink FrameSink) {
	r.frameSink = sink
}

func (r *Receiver) AddDCDListener(l DCDListener) {
	r.dcdListeners = append(r.dcdListeners, l)
}

func (r *Receiver) AddChannelBusyListener(l ChannelBusyListener) {
	r.busyListeners = append(r.busyListeners, l)
}

// Frames that survive the Validator and the best candidate selection.
func (r *Receiver) AddPacketSink(sink PacketSink) {
	r.mm.sinks = append(r.mm.sinks, sink)
}

// Configuration, as normalized by NewReceiver.
func (r *Receiver) Config() *AudioConfig {
	return r.audio
}

// Scale 0..255 into -32k..+32k
func Sample8(u byte) int {
	return (int(u) - 128) * 256
}

/*-------------------------------------------------------------------
 *
 * Name:        MuteInput
 *
 * Purpose:     Ignore the audio input while transmitting.
 *
 * Description:	A few people have a really bad audio cross talk situation
 *		where they receive their own transmissions.
 *		Samples are replaced by silence while muted.
 *
 *--------------------------------------------------------------------*/

func (r *Receiver) MuteInput(channel int, mute bool) {
	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)
	r.mute_input[channel] = mute
}

/*-------------------------------------------------------------------
 *
 * Name:        ProcessChannelSample
 *
 * Purpose:     Feed the sample into the proper modem(s) for the channel.
 *
 * Inputs:	channel	- Radio channel number
 *
 *		sam	- One sample of audio, -32768 .. 32767.
 *
 * Description:	Every demodulator of the channel gets the same sample.
 *		Afterward, candidate frames waiting for the other
 *		demodulators / slicers get a bit older.
 *
 *--------------------------------------------------------------------*/

func (r *Receiver) ProcessChannelSample(channel int, sam int) {
	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)

	r.samples_in[channel]++

	for d := 0; d < r.num_subchan[channel]; d++ {
		r.ProcessSample(channel, d, sam)
	}

	r.mm.age_candidates(channel)
}

// Number of samples given to ProcessChannelSample so far.
func (r *Receiver) SamplesProcessed(channel int) int64 {
	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)
	return r.samples_in[channel]
}

/*-------------------------------------------------------------------
 *
 * Name:        ProcessSample
 *
 * Purpose:     (1) Demodulate the signal.
 *		(2) Recover clock and data.
 *
 * Inputs:	channel	- Audio channel.  0 for left, 1 for right.
 *		subchan - modem of the channel.
 *		sam	- One sample of audio.
 *			  Should be in range of -32768 .. 32767.
 *
 * Descripion:	For each recovered data bit, the bit observers are
 *		called, then the HDLC decoder.
 *
 *--------------------------------------------------------------------*/

func (r *Receiver) ProcessSample(channel int, subchan int, sam int) {

	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)
	Assert(subchan >= 0 && subchan < MAX_SUBCHANS)

	if r.mute_input[channel] {
		sam = 0
	}

	var D = r.demod[channel][subchan]
	Assert(D != nil)

	/* Scale to nice number, actually -2.0 to +2.0 for extra headroom */

	var fsam = float64(sam) / 16384.0

	/*
	 * Accumulate measure of the input signal level.
	 * This is same as the later AGC without the normalization step.
	 * We want decay to be substantially slower to get a longer
	 * range idea of the received audio.
	 */

	D.alevel_rec_peak = track_peak(D.alevel_rec_peak, fsam, D.quick_attack, D.sluggish_decay)
	D.alevel_rec_valley = track_valley(D.alevel_rec_valley, fsam, D.quick_attack, D.sluggish_decay)

	var decimate = r.audio.Chan[channel].Decimate

	if D.modem_type == MODEM_AFSK && decimate > 1 {

		r.sample_sum[channel][subchan] += sam
		r.sample_count[channel][subchan]++
		if r.sample_count[channel][subchan] >= decimate {
			D.process_sample(r.sample_sum[channel][subchan] / decimate)
			r.sample_sum[channel][subchan] = 0
			r.sample_count[channel][subchan] = 0
		}
	} else {
		D.process_sample(sam)
	}
} /* end ProcessSample */

/*-------------------------------------------------------------------
 *
 * Name:        GetAudioLevel
 *
 * Purpose:     Received audio level for display.
 *
 * Description:	Resulting scale is 0 to almost 100.
 *		Cranking up the input level produces no more than 97 or 98.
 *		Anything over 90 is probably clipping.
 *
 *--------------------------------------------------------------------*/

func (r *Receiver) GetAudioLevel(channel int, subchan int) AudioLevel {

	Assert(channel >= 0 && channel < MAX_RADIO_CHANS)
	Assert(subchan >= 0 && subchan < MAX_SUBCHANS)

	/* We have to consider two different cases here. */
	/* N demodulators, each with own slicer and HDLC decoder. */
	/* Single demodulator, multiple slicers each with own HDLC decoder. */

	if r.demod[channel][0] == nil {
		return noAudioLevel
	}
	if r.demod[channel][0].num_slicers > 1 {
		subchan = 0
	}

	var D = r.demod[channel][subchan]
	if D == nil {
		return noAudioLevel
	}

	var alevel AudioLevel

	// Take half of peak-to-peak for received audio level.

	alevel.Rec = int((D.alevel_rec_peak-D.alevel_rec_valley)*50.0 + 0.5)

	switch D.modem_type {
	case MODEM_AFSK:

		/* For AFSK, we have mark and space amplitudes. */

		alevel.Mark = int(D.alevel_mark_peak*100.0 + 0.5)
		alevel.Space = int(D.alevel_space_peak*100.0 + 0.5)

	case MODEM_QPSK, MODEM_8PSK:
		alevel.Mark = -1
		alevel.Space = -1

	case MODEM_BASEBAND, MODEM_SCRAMBLE:

		/* Display the + and - peaks.  */
		/* Normally we'd expect them to be about the same. */
		/* However, with SDR, or other DC coupling, we could have an offset. */

		alevel.Mark = int(D.alevel_mark_peak*200.0 + 0.5)
		alevel.Space = int(D.alevel_space_peak*200.0 - 0.5)
	}

	return alevel
}

/*
 * Where the slicers deliver.
 */

func (r *Receiver) rec_bit(ev BitEvent) {
	for _, obs := range r.bitObservers {
		obs.RecBit(ev)
	}

	var S = &r.demod[ev.Channel][ev.Subchannel].slicer[ev.Slice]

	r.hdlc_rec_bit_new(ev, &S.pll_nudge_total, &S.pll_symbol_count)
}

func (r *Receiver) dcd_change(channel, subchannel, slice int, state bool) {
	for _, l := range r.dcdListeners {
		l.DCDChange(channel, subchannel, slice, state)
	}

	r.dcd_change_real(channel, subchannel, slice, state)
}

/* end demod.go */
