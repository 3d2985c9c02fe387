package encoder

const (
	DefaultSampleRate = 16000
	Channels          = 1
	BitsPerSample     = 16
	BlockSize         = 4096
)

// PCM16 converts float samples in [-1, 1] to signed 16-bit PCM.
// Out of range input is clamped.
func PCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * 32767)
	}
	return out
}
