package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Report statistics for the audio input stream.
 *
 *		A common complaint is that there is no indication of
 *		audio input level until a packet is received correctly.
 *		Every so often we log something like this:
 *
 *		Audio input  sample_rate_k=44.1 errors=0 levels=[73]
 *
 *		Some complain about the clutter but it has been a useful
 *		troubleshooting tool.  A sound card that delivers samples
 *		at the wrong rate, or nothing but zeros, shows up here.
 *
 *---------------------------------------------------------------*/

import (
	"time"
)

type audio_stats struct {
	rx       *Receiver
	interval time.Duration // 0 to turn off.

	last_time      time.Time
	sample_count   int
	error_count    int
	suppress_first bool

	now func() time.Time
}

func new_audio_stats(rx *Receiver, interval time.Duration) *audio_stats {
	return &audio_stats{rx: rx, interval: interval, now: time.Now} //nolint:exhaustruct
}

/*------------------------------------------------------------------
 *
 * Name:        add
 *
 * Purpose:     Add sample count from one buffer to the statistics.
 *		Log if the interval has passed.
 *
 * Inputs:	nsamp	- How many audio samples were read, all channels
 *			  together.  0 counts as an error.
 *
 *----------------------------------------------------------------*/

func (s *audio_stats) add(nsamp int) {
	if s == nil || s.interval <= 0 {
		return
	}

	if s.last_time.IsZero() {
		/* Suppressing the first one could mean a rather */
		/* long wait for the first message.  We make the */
		/* first collection interval 3 seconds. */
		s.last_time = s.now().Add(3*time.Second - s.interval)
		s.sample_count = 0
		s.error_count = 0
		s.suppress_first = true
		return
	}

	if nsamp > 0 {
		s.sample_count += nsamp
	} else {
		s.error_count++
	}

	var this_time = s.now()
	if this_time.Before(s.last_time.Add(s.interval)) {
		return
	}

	if s.suppress_first {
		/* The first time the rate would be off considerably */
		/* because we didn't start on a second boundary. */
		s.suppress_first = false
	} else {
		var pa = s.rx.Config()
		var num_chan = max(pa.NumChannels, 1)
		var ave_rate = float64(s.sample_count) / float64(num_chan) / 1000.0 / s.interval.Seconds()

		var levels []int
		for ch := range num_chan {
			if pa.Chan[ch].Medium == MEDIUM_RADIO {
				levels = append(levels, s.rx.GetAudioLevel(ch, 0).Rec)
			}
		}

		dw_log(DW_COLOR_INFO, "Audio input", "sample_rate_k", ave_rate, "errors", s.error_count, "levels", levels)
	}

	s.last_time = this_time
	s.sample_count = 0
	s.error_count = 0
}
