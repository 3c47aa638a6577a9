package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Process audio input for receiving.
 *
 * Description:	Read samples from one audio source, mono or stereo, and
 *		pass each one to the demodulators of its channel.
 *		Left is channel 0 and right is channel 1.
 *
 *		Decoded frames arrive at the packet sinks of the receiver,
 *		called from this goroutine.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"io"
)

/*------------------------------------------------------------------
 *
 * Name:        RecvProcess
 *
 * Purpose:     Get sound samples and decode them until the source
 *		runs dry or the context is cancelled.
 *
 * Inputs:      ctx	- Stop when done.
 *		r	- The receiver.
 *		src	- Interleaved samples, Config().NumChannels at a time.
 *
 * Returns:     nil at end of input, otherwise the reason for stopping.
 *
 *----------------------------------------------------------------*/

func RecvProcess(ctx context.Context, r *Receiver, src SampleSource) error {
	var num_chan = max(r.audio.NumChannels, 1)

	var buf = make([]int16, 1024*num_chan)
	var c = 0 // Channel of the next sample.

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var n, err = src.ReadSamples(buf)
		r.stats.add(n)

		for _, sam := range buf[:n] {
			if r.audio.Chan[c].Medium == MEDIUM_RADIO {
				r.ProcessChannelSample(c, int(sam))
			}
			c++
			if c >= num_chan {
				c = 0
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
} /* end RecvProcess */
