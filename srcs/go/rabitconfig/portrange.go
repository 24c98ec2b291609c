package rabitconfig

// PortRange is the half-open interval [Begin, Begin+Trials) that the
// coordinator client scans when binding its peer-listening socket.
type PortRange struct {
	Begin  int
	Trials int
}

// DefaultSlavePortRange matches the coordinator wire protocol's documented
// default of [9010, 10010).
var DefaultSlavePortRange = PortRange{Begin: 9010, Trials: 1000}

func (r PortRange) At(i int) int {
	return r.Begin + i
}
