package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to audio device commonly called a "sound card"
 *		for historical reasons.
 *
 *		PortAudio takes care of the differences between Linux,
 *		Mac and Windows.  We always ask for signed 16 bit samples.
 *		8 bit audio only comes from files.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
)

// Anything that can supply interleaved 16 bit samples.
// One sample per channel, left first for stereo.
// Returns io.EOF at the end.
type SampleSource interface {
	ReadSamples(buf []int16) (int, error)
}

const ONE_BUF_TIME = 40 // milliseconds of audio per read.

type PortAudioSource struct {
	stream *portaudio.Stream
	buf    []int16
	pos    int
	n      int
}

/*------------------------------------------------------------------
 *
 * Name:        OpenPortAudio
 *
 * Purpose:     Open the default audio input device.
 *
 * Inputs:      pa	- SamplesPerSec and NumChannels are used.
 *
 * Returns:     Started stream or error.  Close when done.
 *
 *----------------------------------------------------------------*/

func OpenPortAudio(pa *AudioConfig) (*PortAudioSource, error) {
	if pa.NumChannels < 1 || pa.NumChannels > 2 {
		return nil, fmt.Errorf("%d audio channels, must be 1 or 2: %w", pa.NumChannels, ErrBadConfig)
	}

	var err = portaudio.Initialize()
	if err != nil {
		return nil, fmt.Errorf("portaudio initialize: %w", err)
	}

	var frames = pa.SamplesPerSec * ONE_BUF_TIME / 1000

	var s = new(PortAudioSource)
	s.buf = make([]int16, frames*pa.NumChannels)

	s.stream, err = portaudio.OpenDefaultStream(pa.NumChannels, 0, float64(pa.SamplesPerSec), frames, s.buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("could not open audio device for input: %w", err)
	}

	err = s.stream.Start()
	if err != nil {
		_ = s.stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("audio input start: %w", err)
	}

	dw_log(DW_COLOR_INFO, "Audio input device opened",
		"samples_per_sec", pa.SamplesPerSec, "channels", pa.NumChannels)

	return s, nil
}

func (s *PortAudioSource) ReadSamples(out []int16) (int, error) {
	if s.pos >= s.n {
		var err = s.stream.Read()
		if err != nil && !errors.Is(err, portaudio.InputOverflowed) {
			return 0, fmt.Errorf("audio input: %w", err)
		}
		if err != nil {
			dw_log(DW_COLOR_ERROR, "Audio input device overrun.  Some samples were lost.")
		}
		s.pos = 0
		s.n = len(s.buf)
	}

	var n = copy(out, s.buf[s.pos:s.n])
	s.pos += n
	return n, nil
}

func (s *PortAudioSource) Close() error {
	var err = errors.Join(s.stream.Stop(), s.stream.Close())
	return errors.Join(err, portaudio.Terminate())
}

// Unsigned 8 bit or signed 16 bit little endian samples, as found in a WAV file.
type PCMSource struct {
	r               io.Reader
	bits_per_sample int
	raw             []byte
}

func NewPCMSource(r io.Reader, bits_per_sample int) *PCMSource {
	Assert(bits_per_sample == 8 || bits_per_sample == 16)
	return &PCMSource{r: r, bits_per_sample: bits_per_sample} //nolint:exhaustruct
}

func (p *PCMSource) ReadSamples(out []int16) (int, error) {
	var bytes_per_sample = p.bits_per_sample / 8
	var want = len(out) * bytes_per_sample
	if cap(p.raw) < want {
		p.raw = make([]byte, want)
	}

	var n, err = io.ReadFull(p.r, p.raw[:want])
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}

	var count = n / bytes_per_sample
	for i := range count {
		if bytes_per_sample == 1 {
			out[i] = int16(Sample8(p.raw[i]))
		} else {
			/* lower byte first */
			out[i] = int16(uint16(p.raw[2*i]) | uint16(p.raw[2*i+1])<<8)
		}
	}

	if count == 0 && err == nil {
		err = io.EOF
	}
	return count, err
}
