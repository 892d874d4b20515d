package testutil

import "math/rand"

// fillGray writes the same value to all three channels of pixel i.
func fillGray(buf []byte, i int, v uint8) {
	buf[i*3] = v
	buf[i*3+1] = v
	buf[i*3+2] = v
}

// StripePair returns a packed BGR stereo pair of vertical stripes where the
// right view equals the left shifted by the given disparity. Each stripe
// carries a distinct brightness so only the true shift matches globally.
func StripePair(width, height, shift int) (left, right []byte) {
	pattern := func(x int) uint8 {
		stripe := x / 10
		return uint8(40 + (stripe*37)%160) //nolint:gosec // bounded by construction
	}
	left = make([]byte, width*height*3)
	right = make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fillGray(left, y*width+x, pattern(x))
			fillGray(right, y*width+x, pattern(x+shift))
		}
	}
	return left, right
}

// RandomPair returns a deterministic noise pair with the right view shifted
// by the given disparity. Per-pixel noise gives every column a unique
// signature, so the pair has no matching ambiguity.
func RandomPair(width, height, shift int, seed int64) (left, right []byte) {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test data
	noise := make([]uint8, (width+shift)*height)
	for i := range noise {
		noise[i] = uint8(rng.Intn(256)) //nolint:gosec // bounded by Intn
	}
	left = make([]byte, width*height*3)
	right = make([]byte, width*height*3)
	stride := width + shift
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fillGray(left, y*width+x, noise[y*stride+x])
			fillGray(right, y*width+x, noise[y*stride+x+shift])
		}
	}
	return left, right
}

// GradientPair returns a pair with a smooth horizontal brightness ramp,
// shifted like the other generators. The ramp's matching cost grows with
// the offset from the true disparity, which makes it a good subject for
// sub-pixel checks.
func GradientPair(width, height, shift int) (left, right []byte) {
	span := width + shift
	pattern := func(x int) uint8 {
		return uint8(20 + x*200/span) //nolint:gosec // bounded by construction
	}
	left = make([]byte, width*height*3)
	right = make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			fillGray(left, y*width+x, pattern(x))
			fillGray(right, y*width+x, pattern(x+shift))
		}
	}
	return left, right
}
