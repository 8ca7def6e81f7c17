package ethereum

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned when a string is not a well-formed 20-byte hex address.
var ErrInvalidAddress = errors.New("invalid address")

// ParseAddress validates a 0x-prefixed hex address and returns it.
func ParseAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(address), nil
}

// ValidateAddress reports whether address is a well-formed hex address.
func ValidateAddress(address string) bool {
	_, err := ParseAddress(address)
	return err == nil
}

// NormalizeAddress returns the lowercase hex form used as cache key.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// NormalizeKey returns the lowercase hex form of a parsed address.
func NormalizeKey(address common.Address) string {
	return strings.ToLower(address.Hex())
}
