package certdoc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energy-market/energy-ledger-backend/internal/ledger"
)

func TestRenderVerifiedCertificate(t *testing.T) {
	g := NewGenerator(DefaultOptions())

	cert := &ledger.Certificate{
		ID:           7,
		Producer:     "0xproducer",
		EnergySource: ledger.SourceSolar,
		KWHProduced:  50000,
		Location:     "Lisbon, PT",
		Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Verified:     true,
		TokenAmount:  ledger.Tokens(50),
	}
	producer := &ledger.Producer{Address: "0xproducer", Name: "Sunny Fields"}

	data, err := g.Render(cert, producer)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderRejectsUnverifiedCertificate(t *testing.T) {
	g := NewGenerator(DefaultOptions())

	cert := &ledger.Certificate{ID: 8, TokenAmount: ledger.Zero()}
	_, err := g.Render(cert, &ledger.Producer{})
	assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
}
