package engine

// ComputeBufferSize sizes a link's ring buffer: the target rounded down to
// a whole number of collective payloads, but never smaller than one
// payload.
//
//	size = max(elementBytes*count, floor(targetBytes/payload) * payload)
func ComputeBufferSize(elementBytes, count, targetBytes int) int {
	payload := elementBytes * count
	if payload <= 0 {
		return 0
	}
	n := targetBytes / payload
	size := n * payload
	if size < payload {
		size = payload
	}
	return size
}
