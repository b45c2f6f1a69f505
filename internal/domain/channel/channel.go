// Package channel defines the external sales channels the engine reconciles.
package channel

import (
	"fmt"
	"strings"
)

// Channel identifies an external sales platform
type Channel string

const (
	// Cafe24 is the self-operated storefront (Cafe24 Admin API)
	Cafe24 Channel = "cafe24"
	// Naver is Naver SmartStore (Naver Commerce API)
	Naver Channel = "naver"
	// Coupang is Coupang Rocket Growth, fulfilled by Coupang itself
	Coupang Channel = "coupang"
)

// All returns every supported channel in display order
func All() []Channel {
	return []Channel{Cafe24, Naver, Coupang}
}

// IsValid returns true if the channel is supported
func (c Channel) IsValid() bool {
	switch c {
	case Cafe24, Naver, Coupang:
		return true
	}
	return false
}

// String returns the string representation
func (c Channel) String() string {
	return string(c)
}

// Parse converts user input into a Channel (case-insensitive)
func Parse(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown channel %q", s)
	}
	return c, nil
}
