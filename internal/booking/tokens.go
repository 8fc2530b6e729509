// Package booking issues appointment tokens. Token numbers are sequential per
// doctor per day; issuance is atomic per owning key so concurrent requests can
// never produce duplicate identifiers.
package booking

import (
	"fmt"
	"sync"
	"time"
)

type Token struct {
	ID       string    `json:"id"`
	DoctorID string    `json:"doctorId"`
	Day      string    `json:"day"`
	Number   int       `json:"number"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Counter hands out per-(doctor, day) sequence numbers. A single mutex owns
// the counter map; issuance holds it only for the map update.
type Counter struct {
	mu   sync.Mutex
	next map[string]int
	now  func() time.Time
}

func NewCounter() *Counter {
	return &Counter{next: make(map[string]int), now: time.Now}
}

// Issue returns the next token for doctorID on the current day.
func (c *Counter) Issue(doctorID string) Token {
	issuedAt := c.now()
	day := issuedAt.Format("20060102")
	key := doctorID + ":" + day

	c.mu.Lock()
	c.next[key]++
	n := c.next[key]
	c.mu.Unlock()

	return Token{
		ID:       fmt.Sprintf("TKN-%s-%s-%03d", doctorID, day, n),
		DoctorID: doctorID,
		Day:      day,
		Number:   n,
		IssuedAt: issuedAt,
	}
}
