package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	DevOTP        = "123456"
	codeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeGroupSize = 4
)

// GenerateOTP returns a six digit code. dev mode always yields DevOTP.
func GenerateOTP(dev bool) (string, error) {
	if dev {
		return DevOTP, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return big.NewInt(0).Add(n, big.NewInt(100000)).String(), nil
}

// GenerateRedeemCode returns a code of length characters grouped as
// XXXX-XXXX-....
func GenerateRedeemCode(length int) (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		if i > 0 && i%codeGroupSize == 0 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
