package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Signal is the categorical per-bar trading signal produced by the upstream signal generator
// ⭐ SSOT: 시그널 종류는 여기서만 정의 (문자열 분기 금지)
type Signal int

const (
	SignalHold Signal = iota // zero value: no action
	SignalStrongBuy
	SignalBuy
	SignalSell
	SignalStrongSell
)

var signalNames = map[Signal]string{
	SignalStrongBuy:  "STRONG_BUY",
	SignalBuy:        "BUY",
	SignalHold:       "HOLD",
	SignalSell:       "SELL",
	SignalStrongSell: "STRONG_SELL",
}

// AllSignals returns every signal in strength order (strongest buy first)
func AllSignals() []Signal {
	return []Signal{SignalStrongBuy, SignalBuy, SignalHold, SignalSell, SignalStrongSell}
}

// ParseSignal converts the wire name (e.g. "STRONG_BUY") into a Signal
func ParseSignal(s string) (Signal, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for sig, n := range signalNames {
		if n == name {
			return sig, nil
		}
	}
	return SignalHold, fmt.Errorf("%w: %q", ErrUnknownSignal, s)
}

// String returns the wire name
func (s Signal) String() string {
	if n, ok := signalNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Signal(%d)", int(s))
}

// Valid reports whether s is one of the five defined signals
func (s Signal) Valid() bool {
	_, ok := signalNames[s]
	return ok
}

// IsBuy reports STRONG_BUY or BUY
func (s Signal) IsBuy() bool {
	return s == SignalStrongBuy || s == SignalBuy
}

// IsSell reports STRONG_SELL or SELL
func (s Signal) IsSell() bool {
	return s == SignalStrongSell || s == SignalSell
}

// MarshalText implements encoding.TextMarshaler
func (s Signal) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSignal, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Signal) UnmarshalText(text []byte) error {
	parsed, err := ParseSignal(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DatedSignal pairs a signal with the bar date it was generated for
type DatedSignal struct {
	Date   time.Time `json:"date"`
	Signal Signal    `json:"signal"`
}
