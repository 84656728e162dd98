package audio

// Stretch resamples samples by the given playback-rate multiplier using
// linear interpolation: rate 2.0 halves the sample count (audio plays twice
// as fast at an unchanged device rate), rate 0.5 doubles it. A rate of 1 (or
// an invalid rate) returns the input unchanged.
func Stretch(samples []float32, rate float64) []float32 {
	if rate <= 0 || rate == 1 || len(samples) < 2 {
		return samples
	}
	dst := int(float64(len(samples)) / rate)
	if dst == 0 {
		return nil
	}

	out := make([]float32, dst)
	for i := 0; i < dst; i++ {
		srcPos := float64(i) * rate
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}
		out[i] = s0 + float32(frac)*(s1-s0)
	}
	return out
}
