// Package link carries a byte stream over a peer-to-peer serial line.
//
// Both ends synchronise by exchanging a sync request (0xff) or ack (0xfe)
// followed by the sender's next sequence number. Once synchronised, every
// packet starts with the expected sequence number, so a lost or corrupted
// byte is detected at the next packet and both ends fall back to sync.
// There is no checksum; enable parity on the port if bit errors matter.
//
// Packet layout:
//
//	seq | code&0x8f | len<<4 | [len] | payload
//
// A length of 0..6 fits in the header byte, 7 means an extra length byte
// (< 0x80) follows.
package link
