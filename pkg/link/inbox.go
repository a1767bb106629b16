package link

import "sync"

// Inbox queues received bytes until a reader takes them.
type Inbox struct {
	lock sync.Mutex
	buf  []byte
}

// Put appends p.
func (b *Inbox) Put(p []byte) {
	b.lock.Lock()
	b.buf = append(b.buf, p...)
	b.lock.Unlock()
}

// Take moves up to len(p) queued bytes into p and never blocks.
func (b *Inbox) Take(p []byte) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	n := copy(p, b.buf)
	if n == len(b.buf) {
		b.buf = b.buf[:0]
	} else {
		b.buf = b.buf[n:]
	}
	return n
}

// Len returns the number of queued bytes.
func (b *Inbox) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.buf)
}

// Drain discards everything queued and returns the count.
func (b *Inbox) Drain() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	n := len(b.buf)
	b.buf = b.buf[:0]
	return n
}
