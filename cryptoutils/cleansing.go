package cryptoutils

// Zeroize overwrites b with zeros. Deferred over any buffer holding private
// key material, it guarantees the scrub runs on every exit path.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroizeAll scrubs each of the given buffers.
func ZeroizeAll(bufs ...[]byte) {
	for _, b := range bufs {
		Zeroize(b)
	}
}
