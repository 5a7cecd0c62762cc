package media

import "fmt"

// Timebase is the fractional tick unit of a stream's clock: Num/Den
// seconds per tick. A 25 fps video stream configured the DeckLink way is
// {Num: 1000, Den: 25000}: one tick per frame, 25000 time-scale units per
// second.
type Timebase struct {
	Num int
	Den int
}

// FromHardware converts a raw capture timestamp or duration into stream
// ticks. DeckLink-style drivers report times in time-scale (Den) units
// that advance by the frame duration (Num) per frame, so the conversion
// is a division by Num. Sources with a different clock convention must
// pre-scale before packaging.
func (tb Timebase) FromHardware(t int64) int64 {
	if tb.Num == 0 {
		return t
	}
	return t / int64(tb.Num)
}

func (tb Timebase) String() string {
	return fmt.Sprintf("%d/%d", tb.Num, tb.Den)
}
