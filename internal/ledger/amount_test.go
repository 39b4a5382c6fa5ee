package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensScalesToBaseUnits(t *testing.T) {
	one := Tokens(1)
	assert.Equal(t, "1000000000000000000", one.String())

	fifty := Tokens(50)
	assert.Equal(t, "50000000000000000000", fifty.String())
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount("500000000000000000")
	require.NoError(t, err)
	assert.Equal(t, -1, amount.Cmp(Tokens(1)))
	assert.Equal(t, 1, amount.Sign())

	_, err = ParseAmount("not-a-number")
	assert.Error(t, err)

	_, err = ParseAmount("")
	assert.Error(t, err)
}

func TestArithmeticDoesNotMutateOperands(t *testing.T) {
	a := Tokens(10)
	b := Tokens(3)

	sum := a.Add(b)
	diff := a.Sub(b)

	assert.Equal(t, "13000000000000000000", sum.String())
	assert.Equal(t, "7000000000000000000", diff.String())
	assert.Equal(t, Tokens(10).String(), a.String())
	assert.Equal(t, Tokens(3).String(), b.String())
}

func TestListingTotalPrice(t *testing.T) {
	// 50 tokens at 0.01 value per token = 0.5 value in base units.
	price, err := ParseAmount("10000000000000000")
	require.NoError(t, err)

	l := &Listing{TokenAmount: Tokens(50), PricePerToken: price}
	assert.Equal(t, "500000000000000000", l.TotalPrice().String())
}

func TestBigIntSQLRoundTrip(t *testing.T) {
	amount := Tokens(42)

	v, err := amount.Value()
	require.NoError(t, err)
	assert.Equal(t, "42000000000000000000", v)

	var scanned BigInt
	require.NoError(t, scanned.Scan("42000000000000000000"))
	assert.Equal(t, 0, scanned.Cmp(amount))

	require.NoError(t, scanned.Scan([]byte("7")))
	assert.Equal(t, "7", scanned.String())
}
