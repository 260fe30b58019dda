package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const otpDigits = 6

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random six digit code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

// NormalizeMobile prefixes countryCode when the number does not already start
// with it. The check is purely syntactic.
func NormalizeMobile(countryCode, raw string) string {
	mobile := strings.TrimSpace(raw)
	if mobile == "" || strings.HasPrefix(mobile, countryCode) {
		return mobile
	}
	return countryCode + mobile
}

// otpMatches compares codes as strings after trimming surrounding whitespace.
func otpMatches(stored, submitted string) bool {
	stored = strings.TrimSpace(stored)
	return stored != "" && stored == strings.TrimSpace(submitted)
}
