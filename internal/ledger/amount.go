package ledger

import (
	"database/sql/driver"
	"fmt"
	"math/big"
)

// TokenDecimals is the base-unit precision of REC tokens.
const TokenDecimals = 18

var baseUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)

// BigInt is an unsigned arbitrary-precision token amount, stored as
// numeric(78,0) in postgres. Arithmetic helpers return new values; a
// BigInt held in ledger state is never mutated in place.
type BigInt struct {
	i big.Int
}

// NewBigInt wraps x. A nil x yields zero.
func NewBigInt(x *big.Int) *BigInt {
	b := &BigInt{}
	if x != nil {
		b.i.Set(x)
	}
	return b
}

// Zero returns a zero amount.
func Zero() *BigInt {
	return &BigInt{}
}

// Tokens returns n whole tokens in base units (n * 10^18).
func Tokens(n uint64) *BigInt {
	b := &BigInt{}
	b.i.Mul(new(big.Int).SetUint64(n), baseUnit)
	return b
}

// ParseAmount parses a decimal base-unit string.
func ParseAmount(s string) (*BigInt, error) {
	b := &BigInt{}
	if _, ok := b.i.SetString(s, 10); !ok {
		return nil, fmt.Errorf("%w: malformed amount %q", ErrInvalidArgument, s)
	}
	if b.i.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidArgument, s)
	}
	return b, nil
}

func (b *BigInt) Add(x *BigInt) *BigInt {
	r := &BigInt{}
	r.i.Add(&b.i, &x.i)
	return r
}

func (b *BigInt) Sub(x *BigInt) *BigInt {
	r := &BigInt{}
	r.i.Sub(&b.i, &x.i)
	return r
}

// Mul returns b * x.
func (b *BigInt) Mul(x *BigInt) *BigInt {
	r := &BigInt{}
	r.i.Mul(&b.i, &x.i)
	return r
}

// DivBase returns b / 10^18, truncating. Used for price totals where
// both the token amount and the per-token price are in base units.
func (b *BigInt) DivBase() *BigInt {
	r := &BigInt{}
	r.i.Div(&b.i, baseUnit)
	return r
}

func (b *BigInt) Cmp(x *BigInt) int {
	return b.i.Cmp(&x.i)
}

func (b *BigInt) Sign() int {
	return b.i.Sign()
}

func (b *BigInt) Clone() *BigInt {
	return NewBigInt(&b.i)
}

func (b *BigInt) String() string {
	return b.i.String()
}

// MarshalJSON renders the amount as a decimal string; base-unit values
// routinely exceed float64 precision.
func (b *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.i.String() + `"`), nil
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	if _, ok := b.i.SetString(s, 10); !ok {
		return fmt.Errorf("%w: malformed amount %q", ErrInvalidArgument, s)
	}
	return nil
}

// Value implements driver.Valuer.
func (b *BigInt) Value() (driver.Value, error) {
	if b == nil {
		return "0", nil
	}
	return b.i.String(), nil
}

// Scan implements sql.Scanner.
func (b *BigInt) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		b.i.SetInt64(0)
		return nil
	case int64:
		b.i.SetInt64(v)
		return nil
	case []byte:
		return b.setString(string(v))
	case string:
		return b.setString(v)
	default:
		return fmt.Errorf("cannot scan %T into BigInt", src)
	}
}

func (b *BigInt) setString(s string) error {
	if _, ok := b.i.SetString(s, 10); !ok {
		return fmt.Errorf("cannot scan %q into BigInt", s)
	}
	return nil
}

// GormDataType tells gorm the column type for BigInt fields.
func (BigInt) GormDataType() string {
	return "numeric(78,0)"
}
