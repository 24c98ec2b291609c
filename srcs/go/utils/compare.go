package utils

// FirstDiff returns the offset of the first byte where a and b differ, or
// -1 when they hold the same bytes. A length mismatch counts as a
// difference at the shorter length. Collective tests use this to point at
// where a payload diverged instead of only reporting inequality.
func FirstDiff(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}

// BytesEq reports whether a and b hold the same bytes.
func BytesEq(a, b []byte) bool {
	return FirstDiff(a, b) == -1
}
