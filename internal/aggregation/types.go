package aggregation

import (
	"fmt"
	"strings"

	"SigAgg/internal/xmss"
)

// Mode determines how keys are attached to a batch and which uniqueness
// rule applies.
type Mode uint8

const (
	// SingleKey batches share one public key supplied once; epochs must be distinct.
	SingleKey Mode = iota

	// MultiKey batches carry a key per item; (key, epoch) pairs must be distinct.
	MultiKey
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case SingleKey:
		return "SingleKey"
	case MultiKey:
		return "MultiKey"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Tag returns the short lowercase form used in artifact names.
func (m Mode) Tag() string {
	switch m {
	case SingleKey:
		return "single"
	case MultiKey:
		return "multi"
	default:
		return fmt.Sprintf("mode%d", uint8(m))
	}
}

// ParseMode accepts single, multi, single-key, multi-key or the mode names.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "single-key", "singlekey":
		return SingleKey, nil
	case "multi", "multi-key", "multikey":
		return MultiKey, nil
	default:
		return 0, fmt.Errorf("unknown aggregation mode %q", s)
	}
}

// VerificationItem is one signature with its verification context.
type VerificationItem struct {
	Message   xmss.Message    // Message is the signed payload
	Epoch     uint32          // Epoch selects the one-time key used
	Signature xmss.Signature  // Signature is the one-time signature plus path
	PublicKey *xmss.PublicKey // PublicKey is required in MultiKey mode, absent in SingleKey mode
}

// clone returns a deep copy of the item.
func (it VerificationItem) clone() VerificationItem {
	out := VerificationItem{
		Message:   it.Message,
		Epoch:     it.Epoch,
		Signature: it.Signature.Clone(),
	}

	if it.PublicKey != nil {
		pk := *it.PublicKey
		out.PublicKey = &pk
	}

	return out
}

// Batch is a validated, immutable set of verification items in insertion order.
type Batch struct {
	mode      Mode
	publicKey *xmss.PublicKey
	items     []VerificationItem
}

// Mode returns the aggregation mode.
func (b *Batch) Mode() Mode {
	return b.mode
}

// PublicKey returns the shared key in SingleKey mode, nil otherwise.
func (b *Batch) PublicKey() *xmss.PublicKey {
	if b.publicKey == nil {
		return nil
	}

	pk := *b.publicKey

	return &pk
}

// Len returns the number of items.
func (b *Batch) Len() int {
	return len(b.items)
}

// Item returns a copy of item i.
func (b *Batch) Item(i int) VerificationItem {
	return b.items[i].clone()
}

// Items returns a copy of all items in insertion order.
func (b *Batch) Items() []VerificationItem {
	out := make([]VerificationItem, len(b.items))
	for i := range b.items {
		out[i] = b.items[i].clone()
	}

	return out
}

// KeyFor returns the key item i verifies against.
func (b *Batch) KeyFor(i int) xmss.PublicKey {
	if b.mode == SingleKey {
		return *b.publicKey
	}

	return *b.items[i].PublicKey
}

// PathLen returns the authentication path length of item i without copying it.
func (b *Batch) PathLen(i int) int {
	return len(b.items[i].Signature.Path)
}
