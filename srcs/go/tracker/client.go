package tracker

import (
	"fmt"
	"net"
	"time"

	"github.com/rabit-go/rabit/srcs/go/engine"
	"github.com/rabit-go/rabit/srcs/go/log"
	"github.com/rabit-go/rabit/srcs/go/rabitconfig"
)

// nullURI selects single-node mode: a process started with no coordinator
// configured runs alone as rank 0 of world size 1, with an empty Topology
// and no sockets opened.
const nullURI = "NULL"

// Client is the coordinator client. It owns the handshake with the tracker
// process and the set of live peer links, which it carries across rebuilds
// so only dead links get replaced. Every coordinator interaction opens a
// fresh socket; the client holds no persistent connection to it.
type Client struct {
	params engine.Params

	rank      int
	worldSize int
	links     map[int]*engine.Link
}

// New constructs a Client for params. Bootstrap does the actual handshake.
func New(params engine.Params) *Client {
	return &Client{params: params, rank: -1, links: make(map[int]*engine.Link)}
}

// Bootstrap runs the initial handshake and returns this process's
// Topology. It implements engine.Bootstrapper.
func (c *Client) Bootstrap() (*engine.Topology, error) {
	return c.reconnectLinks(CommandStart)
}

// Recover re-runs the handshake after a collective failed, replacing dead
// links while keeping live ones, and returns the refreshed Topology. The
// coordinator must hand back the same rank this process already holds.
func (c *Client) Recover() (*engine.Topology, error) {
	return c.reconnectLinks(CommandRecover)
}

// connectTracker opens a fresh coordinator socket and performs the common
// preamble: magic-token exchange, then this worker's current rank, world
// size, and task id.
func (c *Client) connectTracker() (net.Conn, error) {
	conn, err := dialWithRetry(fmt.Sprintf("%s:%d", c.params.TrackerURI, c.params.TrackerPort))
	if err != nil {
		return nil, err
	}
	if err := writeMagic(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := expectMagic(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := writeInt32(conn, c.rank); err != nil {
		conn.Close()
		return nil, err
	}
	if err := writeInt32(conn, c.params.WorldSize); err != nil {
		conn.Close()
		return nil, err
	}
	if err := writeString(conn, c.params.TaskID); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// reconnectLinks is the bootstrap/rebuild handshake shared by Bootstrap
// and Recover: learn the assignment, bind a listening socket, run the
// peer-exchange loop until every pairing succeeded, accept the incoming
// side, and assemble the Topology.
func (c *Client) reconnectLinks(cmd Command) (*engine.Topology, error) {
	if c.params.TrackerURI == "" || c.params.TrackerURI == nullURI {
		c.rank, c.worldSize = 0, 1
		return engine.AssembleTopology(0, 1, -1, nil, -1, -1, c.linkForRank)
	}

	conn, err := c.connectTracker()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := writeString(conn, string(cmd)); err != nil {
		return nil, err
	}
	a, err := readAssignment(conn)
	if err != nil {
		return nil, err
	}
	if c.rank >= 0 && a.Rank != c.rank {
		return nil, fmt.Errorf("tracker: coordinator reassigned rank %d to %d", c.rank, a.Rank)
	}
	c.rank = a.Rank
	c.worldSize = a.WorldSize

	ln, port, err := bindPeerListener()
	if err != nil {
		return nil, err
	}
	defer ln.Close()

	// Drop links whose pump has terminated; the coordinator pairs us up
	// with replacements for exactly the ranks we no longer report as live.
	for r, l := range c.links {
		if l.Faulted() {
			l.Close()
			delete(c.links, r)
		}
	}

	var numAccept int
	for {
		if err := writeInt32(conn, len(c.links)); err != nil {
			return nil, err
		}
		for r := range c.links {
			if err := writeInt32(conn, r); err != nil {
				return nil, err
			}
		}
		numConn, err := readInt32(conn)
		if err != nil {
			return nil, err
		}
		if numAccept, err = readInt32(conn); err != nil {
			return nil, err
		}
		numError := 0
		for i := 0; i < numConn; i++ {
			p, err := readPeerInstruction(conn)
			if err != nil {
				return nil, err
			}
			if err := c.dialPeer(p); err != nil {
				log.Warnf("tracker: dial peer rank %d at %s:%d failed: %v", p.Rank, p.Host, p.Port, err)
				numError++
			}
		}
		if err := writeInt32(conn, numError); err != nil {
			return nil, err
		}
		if numError == 0 {
			break
		}
		// The coordinator recomputes the pairings and the loop repeats.
	}

	if err := writeInt32(conn, port); err != nil {
		return nil, err
	}

	for i := 0; i < numAccept; i++ {
		peer, err := ln.Accept()
		if err != nil {
			return nil, err
		}
		rank, err := exchangeRanks(peer, c.rank)
		if err != nil {
			peer.Close()
			return nil, err
		}
		c.installLink(rank, peer)
	}

	topo, err := engine.AssembleTopology(a.Rank, a.WorldSize, a.ParentRank, a.TreeNeighbors, a.PrevRank, a.NextRank, c.linkForRank)
	if err != nil {
		return nil, err
	}
	topo.Peers = c.allLinks()
	log.Debugf("tracker: %s done, rank %d of %d, %d peer link(s)", cmd, a.Rank, a.WorldSize, len(c.links))
	return topo, nil
}

// dialPeer connects to one peer from the exchange loop, proves this
// worker's rank, and verifies the peer is who the coordinator said.
func (c *Client) dialPeer(p peerInstruction) error {
	conn, err := dialWithRetry(fmt.Sprintf("%s:%d", p.Host, p.Port))
	if err != nil {
		return err
	}
	rank, err := exchangeRanks(conn, c.rank)
	if err != nil {
		conn.Close()
		return err
	}
	if rank != p.Rank {
		conn.Close()
		return fmt.Errorf("tracker: peer at %s:%d is rank %d, expected %d", p.Host, p.Port, rank, p.Rank)
	}
	c.installLink(rank, conn)
	return nil
}

// exchangeRanks runs the symmetric post-connect exchange: each side sends
// its own rank and reads the peer's. It also enables TCP keep-alive, the
// transport half of silent-peer-death detection.
func exchangeRanks(conn net.Conn, ownRank int) (int, error) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetKeepAlive(true)
	}
	if err := writeInt32(conn, ownRank); err != nil {
		return 0, err
	}
	return readInt32(conn)
}

// installLink wraps conn as the link for rank. A replacement may only land
// on a slot whose previous socket is gone; overriding a live link means
// the coordinator and this worker disagree about liveness.
func (c *Client) installLink(rank int, conn net.Conn) {
	if old, ok := c.links[rank]; ok {
		if !old.Faulted() {
			log.Errorf("tracker: coordinator replaced live link to rank %d", rank)
		}
		old.Close()
	}
	c.links[rank] = engine.NewLink(rank, conn)
}

func (c *Client) linkForRank(r int) *engine.Link {
	return c.links[r]
}

func (c *Client) allLinks() []*engine.Link {
	out := make([]*engine.Link, 0, len(c.links))
	for _, l := range c.links {
		out = append(out, l)
	}
	return out
}

// Shutdown tells the coordinator this worker is leaving the job cleanly.
// Peer links belong to the engine and are closed by engine.Shutdown.
func (c *Client) Shutdown() error {
	if c.params.TrackerURI == "" || c.params.TrackerURI == nullURI {
		return nil
	}
	conn, err := c.connectTracker()
	if err != nil {
		return err
	}
	defer conn.Close()
	return writeString(conn, string(CommandShutdown))
}

// Print forwards a message to the coordinator for centralized display,
// or to local stdout when no coordinator is configured.
func (c *Client) Print(msg string) error {
	if c.params.TrackerURI == "" || c.params.TrackerURI == nullURI {
		fmt.Println(msg)
		return nil
	}
	conn, err := c.connectTracker()
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := writeString(conn, string(CommandPrint)); err != nil {
		return err
	}
	return writeString(conn, msg)
}

func bindPeerListener() (net.Listener, int, error) {
	r := rabitconfig.DefaultSlavePortRange
	var lastErr error
	for i := 0; i < r.Trials; i++ {
		port := r.At(i)
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return ln, port, nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("tracker: no free port in range after %d trials: %w", r.Trials, lastErr)
}

// dialWithRetry retries a dial a few times with a fixed backoff, so a peer
// whose listening socket is not up yet does not immediately count as a
// failed pairing.
func dialWithRetry(addr string) (net.Conn, error) {
	var lastErr error
	for i := 0; i < rabitconfig.ConnRetryCount; i++ {
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Debugf("tracker: dial %s failed (attempt %d/%d): %v", addr, i+1, rabitconfig.ConnRetryCount, err)
		time.Sleep(rabitconfig.ConnRetryPeriod)
	}
	return nil, fmt.Errorf("tracker: failed to dial %s after %d attempts: %w", addr, rabitconfig.ConnRetryCount, lastErr)
}
