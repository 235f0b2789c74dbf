package crypto_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"woosh/internal/crypto"
)

func TestModPow_SmallValues(t *testing.T) {
	cases := []struct {
		base, exp, mod, want int64
	}{
		{2, 10, 1000, 24},
		{3, 0, 7, 1},
		{0, 5, 7, 0},
		{5, 3, 13, 8},
		{10, 1, 3, 1},
		{7, 13, 1, 0},
	}
	for _, tc := range cases {
		got, err := crypto.ModPow(big.NewInt(tc.base), big.NewInt(tc.exp), big.NewInt(tc.mod))
		require.NoError(t, err)
		require.Equalf(t, tc.want, got.Int64(), "%d^%d mod %d", tc.base, tc.exp, tc.mod)
	}
}

func TestModPow_MatchesExpFor2048Bit(t *testing.T) {
	limit := new(big.Int).Lsh(big.NewInt(1), 2048)
	for i := 0; i < 4; i++ {
		base, err := rand.Int(rand.Reader, limit)
		require.NoError(t, err)
		exp, err := rand.Int(rand.Reader, limit)
		require.NoError(t, err)
		mod, err := rand.Int(rand.Reader, limit)
		require.NoError(t, err)
		mod.SetBit(mod, 0, 1) // keep it non-zero

		got, err := crypto.ModPow(base, exp, mod)
		require.NoError(t, err)
		require.Zero(t, new(big.Int).Exp(base, exp, mod).Cmp(got))
	}
}

func TestModPow_DoesNotMutateInputs(t *testing.T) {
	base, exp, mod := big.NewInt(123456789), big.NewInt(987654321), big.NewInt(1000003)
	_, err := crypto.ModPow(base, exp, mod)
	require.NoError(t, err)
	require.Equal(t, int64(123456789), base.Int64())
	require.Equal(t, int64(987654321), exp.Int64())
	require.Equal(t, int64(1000003), mod.Int64())
}

func TestModPow_RejectsBadInputs(t *testing.T) {
	_, err := crypto.ModPow(big.NewInt(2), big.NewInt(3), big.NewInt(0))
	require.ErrorIs(t, err, crypto.ErrInvalidModulus)

	_, err = crypto.ModPow(big.NewInt(2), big.NewInt(3), nil)
	require.ErrorIs(t, err, crypto.ErrInvalidModulus)

	_, err = crypto.ModPow(big.NewInt(-2), big.NewInt(3), big.NewInt(5))
	require.ErrorIs(t, err, crypto.ErrNegativeOperand)

	_, err = crypto.ModPow(big.NewInt(2), big.NewInt(-3), big.NewInt(5))
	require.ErrorIs(t, err, crypto.ErrNegativeOperand)
}
