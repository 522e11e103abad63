package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/mundocerca/backend/internal/constants"
)

// RandomSource supplies cryptographically secure bytes. crypto/rand.Reader in production.
type RandomSource = io.Reader

// GenerateNumericOTP returns a uniformly random decimal code of the given length.
// Leading zeros are kept, so the code is always exactly length digits.
func GenerateNumericOTP(r RandomSource, length int) (string, error) {
	if length <= 0 {
		length = constants.DefaultOTPLength
	}

	var builder strings.Builder
	builder.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate otp digit: %w", err)
		}
		builder.WriteByte(byte('0' + n.Int64()))
	}
	return builder.String(), nil
}

// GenerateResetToken returns 32 random bytes, hex encoded
func GenerateResetToken(r RandomSource) (string, error) {
	b := make([]byte, constants.ResetTokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
