package bridge

// ConvertEndian reverses the byte order of every 4-byte group of p in place.
// A trailing partial group is left untouched.
func ConvertEndian(p []byte) {
	for i := 0; i+4 <= len(p); i += 4 {
		p[i], p[i+1], p[i+2], p[i+3] = p[i+3], p[i+2], p[i+1], p[i]
	}
}
