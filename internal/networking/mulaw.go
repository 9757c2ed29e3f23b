package networking

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// Encode a 16-bit linear PCM sample as G.711 μ-law.
func linearToMulaw(sample int16) byte {
	var sign byte
	magnitude := int32(sample)
	if magnitude < 0 {
		sign = 0x80
		magnitude = -magnitude
	}
	if magnitude > mulawClip {
		magnitude = mulawClip
	}
	biased := uint16(magnitude) + mulawBias

	var exponent byte
	switch {
	case biased >= 0x4000:
		exponent = 7
	case biased >= 0x2000:
		exponent = 6
	case biased >= 0x1000:
		exponent = 5
	case biased >= 0x0800:
		exponent = 4
	case biased >= 0x0400:
		exponent = 3
	case biased >= 0x0200:
		exponent = 2
	case biased >= 0x0100:
		exponent = 1
	}

	mantissa := byte((biased >> (exponent + 3)) & 0x0F)

	// Transmitted with all bits inverted
	return ^(sign | (exponent << 4) | mantissa)
}
