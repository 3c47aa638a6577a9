package direwolf

import "fmt"

// Audio level snapshot for diagnostics.
//
// Rec is half of the peak to peak received audio, on a scale of
// roughly 0 to 100.  Mark and Space are the tone amplitudes for AFSK,
// the + and - peaks for baseband, and -1 for PSK where there are no tones.
type AudioLevel struct {
	Rec   int
	Mark  int
	Space int
}

// Nothing measured yet.
var noAudioLevel = AudioLevel{Rec: 9999, Mark: 9999, Space: 9999}

func (a AudioLevel) String() string {
	if a.Mark < 0 && a.Space < 0 {
		return fmt.Sprintf("%d", a.Rec)
	}
	return fmt.Sprintf("%d(%d/%d)", a.Rec, a.Mark, a.Space)
}

// Received audio level above this is probably clipping.
const ALEVEL_TOO_HIGH = 90

func (a AudioLevel) TooHigh() bool {
	return a.Rec > ALEVEL_TOO_HIGH && a.Rec != 9999
}
