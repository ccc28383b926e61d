package audio

// resampledLen returns the playback sample count of a capture of n samples
// recorded at the given speed factor. A factor below 1 stretches the audio:
// drawing recorded at 1/3 speed plays back over three times the wall time.
func resampledLen(n int, factor float64) int {
	if n == 0 {
		return 0
	}
	return int(float64(n) / factor)
}

// Resample remaps a speed-neutral capture to its playback rate by linear
// interpolation. factor must be in (0, 1]; a factor of 1 returns a copy.
func Resample(buf []int16, factor float64) []int16 {
	if len(buf) == 0 {
		return nil
	}
	if factor == 1 {
		out := make([]int16, len(buf))
		copy(out, buf)
		return out
	}

	outLen := resampledLen(len(buf), factor)
	out := make([]int16, outLen)
	scale := float64(len(buf)-1) / float64(outLen-1)
	for i := range out {
		pos := float64(i) * scale
		j := int(pos)
		if j >= len(buf)-1 {
			out[i] = buf[len(buf)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(buf[j])*(1-frac) + float64(buf[j+1])*frac)
	}
	return out
}
