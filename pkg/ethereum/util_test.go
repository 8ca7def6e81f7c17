package ethereum

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(" 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 ")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"), addr)

	for _, bad := range []string{
		"",
		"0x123",
		"f39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		"0xZZZFd6e51aad88F6F4ce6aB8827279cffFb92266",
		"not-an-address",
	} {
		_, err := ParseAddress(bad)
		require.ErrorIs(t, err, ErrInvalidAddress, bad)
		assert.False(t, ValidateAddress(bad))
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t,
		"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
		NormalizeAddress("0xF39Fd6e51aad88F6F4ce6aB8827279cffFb92266"))
	assert.Equal(t,
		NormalizeAddress("0xF39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		NormalizeKey(common.HexToAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")))
}
