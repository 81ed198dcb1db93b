package tx

import (
	"fmt"
	"strings"
)

// Kind is the type of a transaction as it appears in the input ledger.
type Kind int

const (
	// KindUnknown is the zero value and never valid.
	KindUnknown Kind = iota
	// Buy is a purchase paid in fiat.
	Buy
	// Earn is income received in crypto (staking, interest, mining). Taxed on receipt.
	Earn
	// Move is crypto transferred in from outside the tracked holders.
	Move
	// Sell is a sale for fiat.
	Sell
	// Gift is crypto given away.
	Gift
	// Donate is crypto donated to a charity.
	Donate
	// Fee is crypto spent on network or exchange fees when moving funds.
	Fee
)

var kindNames = map[Kind]string{
	Buy:    "buy",
	Earn:   "earn",
	Move:   "move",
	Sell:   "sell",
	Gift:   "gift",
	Donate: "donate",
	Fee:    "fee",
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsAcquisition reports whether the kind adds crypto to a holder.
func (k Kind) IsAcquisition() bool {
	return k == Buy || k == Earn || k == Move
}

// IsDisposal reports whether the kind removes crypto from a holder.
func (k Kind) IsDisposal() bool {
	return k == Sell || k == Gift || k == Donate || k == Fee
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("invalid transaction type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("invalid transaction type %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
