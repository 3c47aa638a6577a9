package direwolf

/*------------------------------------------------------------------
 *
 * Purpose:     Generate the filters used by the demodulators.
 *
 *----------------------------------------------------------------*/

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

/*------------------------------------------------------------------
 *
 * Name:        window
 *
 * Purpose:     Filter window shape functions.
 *
 * Inputs:   	type	- BP_WINDOW_HAMMING, etc.
 *		size	- Number of filter taps.
 *		j	- Index in range of 0 to size-1.
 *
 * Returns:     Multiplier for the window shape.
 *
 *----------------------------------------------------------------*/

func window(windowType bp_window_t, _size int, _j int) float64 {

	var size = float64(_size) // Save on a lot of casting later
	var j = float64(_j)

	var center = 0.5 * (size - 1)
	var w float64

	switch windowType {

	case BP_WINDOW_COSINE:
		w = math.Cos((j - center) / size * math.Pi)

	case BP_WINDOW_HAMMING:
		w = 0.53836 - 0.46164*math.Cos((j*2*math.Pi)/(size-1))

	case BP_WINDOW_BLACKMAN:
		w = 0.42659 - 0.49656*math.Cos((j*2*math.Pi)/(size-1)) +
			0.076849*math.Cos((j*4*math.Pi)/(size-1))

	case BP_WINDOW_FLATTOP:
		w = 1.0 - 1.93*math.Cos((j*2*math.Pi)/(size-1)) +
			1.29*math.Cos((j*4*math.Pi)/(size-1)) -
			0.388*math.Cos((j*6*math.Pi)/(size-1)) +
			0.028*math.Cos((j*8*math.Pi)/(size-1))

	case BP_WINDOW_TRUNCATED:
		fallthrough
	default:
		w = 1.0
	}

	return w
}

/*------------------------------------------------------------------
 *
 * Name:        gen_lowpass
 *
 * Purpose:     Generate low pass filter kernel.
 *
 * Inputs:   	fc		- Cutoff frequency as fraction of sampling frequency.
 *		filter_size	- Number of filter taps.
 *		wtype		- Window type, BP_WINDOW_HAMMING, etc.
 *		lp_delay_fract	- Fudge factor for the delay value.
 *				  Normally 0.5, i.e. half of the area under the kernel.
 *
 * Outputs:     lp_filter
 *
 * Returns:	Signal delay thru the filter in number of audio samples.
 *		This is the first tap where the running sum of the
 *		normalized kernel goes beyond lp_delay_fract.
 *		It lets parallel filter paths of different lengths be lined up.
 *
 *----------------------------------------------------------------*/

func gen_lowpass(fc float64, lp_filter []float64, filter_size int, wtype bp_window_t, lp_delay_fract float64) int {

	Assert(filter_size >= 3 && filter_size <= MAX_FILTER_SIZE)
	Assert(len(lp_filter) >= filter_size)

	var center = 0.5 * float64(filter_size-1)

	for j := 0; j < filter_size; j++ {
		var sinc float64

		if float64(j)-center == 0 {
			sinc = 2 * fc
		} else {
			sinc = math.Sin(2*math.Pi*(fc*(float64(j)-center))) / (math.Pi * (float64(j) - center))
		}

		lp_filter[j] = sinc * window(wtype, filter_size, j)
	}

	/*
	 * Normalize lowpass for unity gain at DC.
	 */
	var kernel = lp_filter[:filter_size]
	floats.Scale(1/floats.Sum(kernel), kernel)

	var partial [MAX_FILTER_SIZE]float64
	floats.CumSum(partial[:filter_size], kernel)

	for j := 0; j < filter_size; j++ {
		if partial[j] > lp_delay_fract {
			return j
		}
	}

	return filter_size - 1

} /* end gen_lowpass */

/*------------------------------------------------------------------
 *
 * Name:        gen_bandpass
 *
 * Purpose:     Generate band pass filter kernel for the prefilter.
 *		This is NOT for the mark/space filters.
 *
 * Inputs:   	f1		- Lower cutoff frequency as fraction of sampling frequency.
 *		f2		- Upper cutoff frequency...
 *		filter_size	- Number of filter taps.
 *		wtype		- Window type, BP_WINDOW_HAMMING, etc.
 *
 * Outputs:     bp_filter
 *
 * Reference:	http://www.labbookpages.co.uk/audio/firWindowing.html
 *
 *----------------------------------------------------------------*/

func gen_bandpass(f1 float64, f2 float64, bp_filter []float64, filter_size int, wtype bp_window_t) {

	Assert(filter_size >= 3 && filter_size <= MAX_FILTER_SIZE)
	Assert(len(bp_filter) >= filter_size)

	var center = 0.5 * float64(filter_size-1)

	for j := 0; j < filter_size; j++ {
		var sinc float64

		if float64(j)-center == 0 {
			sinc = 2 * (f2 - f1)
		} else {
			sinc = math.Sin(2*math.Pi*f2*(float64(j)-center))/(math.Pi*(float64(j)-center)) -
				math.Sin(2*math.Pi*f1*(float64(j)-center))/(math.Pi*(float64(j)-center))
		}

		bp_filter[j] = sinc * window(wtype, filter_size, j)
	}

	/*
	 * Normalize bandpass for unity gain in middle of passband.
	 * Can't use same technique as for lowpass.
	 * Instead compute gain in middle of passband.
	 * See http://dsp.stackexchange.com/questions/4693/fir-filter-gain
	 */
	var w = 2 * math.Pi * (f1 + f2) / 2
	var G float64 = 0
	for j := 0; j < filter_size; j++ {
		G += 2 * bp_filter[j] * math.Cos((float64(j)-center)*w)
	}

	floats.Scale(1/G, bp_filter[:filter_size])

} /* end gen_bandpass */

/*------------------------------------------------------------------
 *
 * Name:        rrc
 *
 * Purpose:     Root Raised Cosine function.
 *		It's mostly the sinc function with cos windowing to taper off edges faster.
 *
 * Inputs:      t		- Time in units of symbol duration.
 *				  i.e. The centers of two adjacent symbols would differ by 1.
 *
 *		a		- Roll off factor, between 0 and 1.
 *
 * Returns:	Basically the sinc  (sin(x)/x) function with edges decreasing faster.
 *		Should be 1 for t = 0 and 0 at all other integer values of t.
 *
 *----------------------------------------------------------------*/

func rrc(t float64, a float64) float64 {

	var sinc, window float64

	if t > -0.001 && t < 0.001 {
		sinc = 1
	} else {
		sinc = math.Sin(math.Pi*t) / (math.Pi * t)
	}

	if math.Abs(a*t) > 0.499 && math.Abs(a*t) < 0.501 {
		window = math.Pi / 4
	} else {
		window = math.Cos(math.Pi*a*t) / (1 - math.Pow(2*a*t, 2))
	}

	return sinc * window
}

// The Root Raised Cosine (RRC) low pass filter is supposed to minimize Intersymbol Interference (ISI).

func gen_rrc_lowpass(pfilter []float64, filter_taps int, rolloff float64, samples_per_symbol float64) {

	Assert(filter_taps >= 3 && filter_taps <= MAX_FILTER_SIZE)

	for k := 0; k < filter_taps; k++ {
		var t = (float64(k) - ((float64(filter_taps) - 1.0) / 2.0)) / samples_per_symbol
		pfilter[k] = rrc(t, rolloff)
	}

	// Scale it for unity gain.

	floats.Scale(1/floats.Sum(pfilter[:filter_taps]), pfilter[:filter_taps])
}
