package akv

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountParticipants(t *testing.T) {
	ido := IDO{
		GeneralAllocation: decimal.NewFromInt(10500),
		PersonAllocation:  decimal.NewFromInt(1000),
	}
	assert.Equal(t, 10, ido.CountParticipants())
	assert.Equal(t, 0, IDO{}.CountParticipants())
}

func TestTokenCoin(t *testing.T) {
	coinId := uint(7)
	contractId := uint(3)
	ido := IDO{CoinId: &coinId, SmartcontractId: &contractId}

	got, err := ido.TokenCoin()
	require.NoError(t, err)
	// the delivered coin, never the watched contract address id
	assert.Equal(t, coinId, got)

	bare := IDO{SmartcontractId: &contractId}
	_, err = bare.TokenCoin()
	assert.ErrorIs(t, err, ErrCoinNotFound)
}

func TestCheckParticipationPlace(t *testing.T) {
	ido := IDO{
		GeneralAllocation: decimal.NewFromInt(3000),
		PersonAllocation:  decimal.NewFromInt(1000),
	}

	assert.NoError(t, CheckParticipationPlace(1, &ido))
	assert.NoError(t, CheckParticipationPlace(3, &ido))
	assert.ErrorIs(t, CheckParticipationPlace(4, &ido), ErrQueueIneligible)
}
