package engine

import "errors"

var errBadBroadcastRoot = errors.New("engine: broadcast root is not a valid rank")

// Broadcast delivers sendrecvbuf from the process holding rootRank to every
// other process in topo. On the root, sendrecvbuf already holds the data to
// send; everywhere else it is only sized correctly and gets filled in place.
//
// Exactly one of a process's links carries the data inward (the side of the
// tree containing the root); every other link is an output. Which link that
// is depends on where the root sits, so a non-root process discovers it by
// watching all links and adopting the first one that actually delivers
// bytes. From then on it relays: read from the in-link, fan out to the
// rest. The root has no in-link and starts with the full payload in hand.
func Broadcast(topo *Topology, sendrecvbuf []byte, total uint64, rootRank int) error {
	if rootRank < 0 || rootRank >= topo.WorldSize {
		return errBadBroadcastRoot
	}
	links := topo.AllLinks()
	if total == 0 || len(links) == 0 {
		return nil
	}

	topo.ResetSize()
	sel := NewSelector(links)

	isRoot := topo.Rank == rootRank
	var inLink *Link // nil while still unknown; stays nil on the root
	var sizeIn uint64
	if isRoot {
		sizeIn = total
	}

	for {
		for _, l := range links {
			if l.Exception() {
				return linkError(l, StatusGetExcept, errPeerException)
			}
		}

		progressed := false

		if !isRoot {
			if inLink == nil {
				// Probe: the first link to yield any bytes is the input.
				for _, l := range links {
					status, cause := l.ReadToArray(sendrecvbuf, total)
					if fatal(status) {
						return linkError(l, status, cause)
					}
					if l.SizeRead() > 0 {
						inLink = l
						sizeIn = l.SizeRead()
						progressed = true
						break
					}
				}
			} else if sizeIn < total {
				status, cause := inLink.ReadToArray(sendrecvbuf, total)
				if fatal(status) {
					return linkError(inLink, status, cause)
				}
				if r := inLink.SizeRead(); r > sizeIn {
					sizeIn = r
					progressed = true
				}
			}
		}

		allOut := true
		for _, l := range links {
			if l == inLink {
				continue
			}
			if l.SizeWrite() < sizeIn {
				before := l.SizeWrite()
				status, cause := l.WriteFromArray(sendrecvbuf, sizeIn)
				if fatal(status) {
					return linkError(l, status, cause)
				}
				progressed = progressed || l.SizeWrite() > before
			}
			if l.SizeWrite() < total {
				allOut = false
			}
		}

		if sizeIn >= total && allOut {
			return nil
		}
		if !progressed {
			sel.Select(true)
		}
	}
}
