package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	minAccountNumber = 100_000_000_000
	maxAccountNumber = 999_999_999_999
)

var accountNumberSpan = big.NewInt(maxAccountNumber - minAccountNumber + 1)

// RandomAccountNumbers implements ports.AccountNumberGenerator with crypto/rand.
// Numbers never start with zero.
type RandomAccountNumbers struct{}

func NewRandomAccountNumbers() *RandomAccountNumbers {
	return &RandomAccountNumbers{}
}

func (RandomAccountNumbers) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, accountNumberSpan)
	if err != nil {
		return "", fmt.Errorf("generating account number: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+minAccountNumber), nil
}
