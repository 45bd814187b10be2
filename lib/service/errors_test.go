package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/makbank/bankhub.go/lib/store"
	"github.com/stretchr/testify/assert"
)

func TestMapStoreError(t *testing.T) {
	assert.NoError(t, mapStoreError(nil, ErrAccountNotFound))

	tests := []struct {
		in   error
		want error
	}{
		{in: store.ErrNotFound, want: ErrRecipientNotFound},
		{in: store.ErrInsufficientFunds, want: ErrInsufficientFunds},
		{in: store.ErrDuplicateEmail, want: ErrEmailTaken},
		{in: store.ErrDuplicateAccountNumber, want: ErrAccountNumberTaken},
		{in: fmt.Errorf("%w: lock wait", store.ErrTimeout), want: ErrStorageTimeout},
		{in: context.DeadlineExceeded, want: ErrStorageTimeout},
		{in: &store.IntegrityError{Cause: store.ErrInsufficientFunds, RollbackErr: errors.New("bad conn")}, want: ErrIntegrity},
		{in: errors.New("connection refused"), want: ErrStorage},
		{in: ErrSelfTransfer, want: ErrSelfTransfer},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, mapStoreError(tt.in, ErrRecipientNotFound), tt.want, "mapping %v", tt.in)
	}
}

func TestIsBusinessError(t *testing.T) {
	assert.True(t, IsBusinessError(ErrInsufficientFunds))
	assert.True(t, IsBusinessError(fmt.Errorf("%w: entropy", ErrWeakPassword)))
	assert.False(t, IsBusinessError(ErrStorage))
	assert.False(t, IsBusinessError(ErrStorageTimeout))
	assert.False(t, IsBusinessError(ErrIntegrity))
}
