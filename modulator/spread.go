package modulator

// ChipSource is the minimal interface a chip generator must satisfy
// to drive SpreadSignal; both *lfsr.LFSR and *lfsr.GoldCode satisfy
// it.
type ChipSource interface {
	NextChip() int
}

// SpreadSignal multiplies signal[k] by the chip value (+1 or -1) at
// index floor(k/chipSamples), drawing chips from src in order. It
// returns a newly allocated signal the same length as the input.
func SpreadSignal(src ChipSource, chipSamples int, signal []float64) []float64 {
	out := make([]float64, len(signal))
	if chipSamples <= 0 {
		copy(out, signal)
		return out
	}

	chipValue := float64(src.NextChip())
	for k, v := range signal {
		if k > 0 && k%chipSamples == 0 {
			chipValue = float64(src.NextChip())
		}
		out[k] = v * chipValue
	}

	return out
}
