package link

// State is the synchronisation state of a link.
type State int

// State bits. A zero State means synchronising with nothing in progress.
const (
	StateSyncing State = 0
	StateReady   State = 0x01
	StateBusy    State = 0x02
)

// Ready reports whether packets can be exchanged.
func (s State) Ready() bool {
	return s&StateReady != 0
}

// Busy reports whether a sync or a packet is partially received.
func (s State) Busy() bool {
	return s&StateBusy != 0
}

func (s State) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateBusy:
		return "syncing (busy)"
	case StateReady:
		return "ready"
	case StateReady | StateBusy:
		return "ready (busy)"
	}
	return "invalid"
}

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

type timerAction int

const (
	timerKeep timerAction = iota
	timerRestart
	timerStop
)

// Step is the outcome of feeding the decoder.
type Step struct {
	// Reply is a sync byte to send followed by the local sequence number,
	// 0 for none.
	Reply  byte
	State  State
	Packet *Packet
}

func (s Step) timer() timerAction {
	switch {
	case s.State.Busy() || s.Reply == syncREQ:
		return timerRestart
	case s.State.Ready():
		return timerStop
	}
	return timerKeep
}

type phase int

const (
	phaseSync       phase = iota // sync req sent, waiting for REQ or ACK
	phaseSyncReqSeq              // got REQ, waiting for peer seq
	phaseSyncAckSeq              // got ACK, waiting for peer seq
	phaseIdle                    // synchronised, waiting for packet seq
	phaseAckSeq                  // got ACK while synchronised
	phaseCode
	phaseLen
	phasePayload
)

// Decoder reassembles packets from the byte stream and tracks the peer
// sequence number.
type Decoder struct {
	phase   phase
	peerSeq Seq
	packet  *Packet
	filled  int
}

// State returns the current synchronisation state.
func (d *Decoder) State() State {
	switch {
	case d.phase == phaseSync:
		return StateSyncing
	case d.phase == phaseIdle:
		return StateReady
	case d.phase > phaseIdle:
		return StateReady | StateBusy
	}
	return StateBusy
}

// Reset drops any partial packet and starts synchronising.
func (d *Decoder) Reset() Step {
	d.packet = nil
	return d.step(d.resync())
}

// Expire is called when the resync timer fires.
func (d *Decoder) Expire() Step {
	if d.phase == phaseIdle {
		return d.step(0, nil)
	}
	return d.step(d.resync())
}

// Feed consumes one byte.
func (d *Decoder) Feed(b byte) Step {
	return d.step(d.feed(b))
}

func (d *Decoder) step(reply byte, pkt *Packet) Step {
	return Step{Reply: reply, State: d.State(), Packet: pkt}
}

func (d *Decoder) feed(b byte) (byte, *Packet) {
	switch d.phase {
	case phaseSync:
		if b == syncREQ {
			d.phase = phaseSyncReqSeq
		} else if b == syncACK {
			d.phase = phaseSyncAckSeq
		}
	case phaseSyncReqSeq, phaseSyncAckSeq:
		seq := Seq(b)
		if !seq.Valid() {
			return d.resync()
		}
		reply := byte(0)
		if d.phase == phaseSyncReqSeq {
			reply = syncACK
		}
		d.peerSeq, d.phase = seq, phaseIdle
		return reply, nil
	case phaseIdle:
		switch {
		case b == syncREQ:
			d.phase = phaseSyncReqSeq
		case b == syncACK:
			d.phase = phaseAckSeq
		case Seq(b) != d.peerSeq:
			return d.resync()
		default:
			d.packet = &Packet{Seq: d.peerSeq}
			d.peerSeq = d.peerSeq.Next()
			d.phase = phaseCode
		}
	case phaseAckSeq:
		if Seq(b) != d.peerSeq {
			return d.resync()
		}
		d.phase = phaseIdle
	case phaseCode:
		d.packet.Code = b & codeMask
		switch n := int(b>>4) & extendedLen; n {
		case 0:
			return d.complete()
		case extendedLen:
			d.phase = phaseLen
		default:
			d.expect(n)
		}
	case phaseLen:
		if b > MaxPayload {
			return d.resync()
		}
		if b == 0 {
			return d.complete()
		}
		d.expect(int(b))
	case phasePayload:
		d.packet.Payload[d.filled] = b
		if d.filled++; d.filled >= len(d.packet.Payload) {
			return d.complete()
		}
	}
	return 0, nil
}

func (d *Decoder) expect(n int) {
	d.packet.Payload, d.filled = make([]byte, n), 0
	d.phase = phasePayload
}

func (d *Decoder) resync() (byte, *Packet) {
	d.phase = phaseSync
	return syncREQ, nil
}

func (d *Decoder) complete() (byte, *Packet) {
	pkt := d.packet
	d.packet, d.phase = nil, phaseIdle
	return 0, pkt
}
