package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/labstack/gommon/random"
	"github.com/makbank/bankhub.go/common"
	"github.com/makbank/bankhub.go/db/models"
	"github.com/makbank/bankhub.go/lib/store"
)

const (
	numericBytes = random.Numeric
	// account numbers never start with a zero
	leadingDigitBytes = "123456789"
)

// GenerateAccountNumber returns prefix followed by a random number in 100000-999999.
func GenerateAccountNumber(prefix string) (string, error) {
	leading, err := randBytesFromStr(1, leadingDigitBytes)
	if err != nil {
		return "", err
	}
	rest, err := randBytesFromStr(common.AccountNumberDigits-1, numericBytes)
	if err != nil {
		return "", err
	}
	return prefix + string(leading) + string(rest), nil
}

// ResolveAccountNumber looks up the account behind a human facing account number.
func ResolveAccountNumber(ctx context.Context, r store.Reader, accountNumber string) (*models.Account, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, ErrMissingField
	}
	account, err := r.FindAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, mapStoreError(err, ErrAccountNotFound)
	}
	return account, nil
}

func randBytesFromStr(length int, from string) ([]byte, error) {
	b := make([]byte, length)
	fromLenBigInt := big.NewInt(int64(len(from)))
	for i := range b {
		r, err := rand.Int(rand.Reader, fromLenBigInt)
		if err != nil {
			return nil, err
		}
		b[i] = from[r.Int64()]
	}
	return b, nil
}
