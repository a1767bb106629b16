package ddr

// BytesAvailable computes how many bytes the controller appended to the
// staging buffer since start, given the current write pointer. Both
// pointers carry the phase bit at bit log2(capacity). capacity must be a
// power of two.
func BytesAvailable(start, cur, capacity uint32) uint32 {
	mask := capacity - 1
	if start&capacity == cur&capacity {
		return cur&mask - start&mask
	}
	return capacity - start&mask + cur&mask
}

// copyRing reads len(out) bytes from the staging window starting at off,
// wrapping once at capacity.
func copyRing(r Registers, capacity, off uint32, out []byte) {
	off &= capacity - 1
	if first := capacity - off; uint32(len(out)) > first {
		r.ReadWindow(off, out[:first])
		r.ReadWindow(0, out[first:])
		return
	}
	r.ReadWindow(off, out)
}

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}
