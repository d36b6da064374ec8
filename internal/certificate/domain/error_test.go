package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, CategoryTimeout},
		{context.Canceled, CategoryTimeout},
		{errors.New("urn:ietf:params:acme:error:rateLimited"), CategoryRateLimit},
		{errors.New("too many certificates already issued"), CategoryRateLimit},
		{errors.New("acme: unauthorized account"), CategoryMisconfiguration},
		{errors.New("invalid api key provided"), CategoryMisconfiguration},
		{errors.New("CAA record prevents issuance"), CategoryValidation},
		{errors.New("http-01 challenge failed"), CategoryValidation},
		{errors.New("something exploded"), CategoryGeneric},
		{nil, CategoryGeneric},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Categorize(tc.err), "err=%v", tc.err)
	}
}

func TestProviderErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := fmt.Errorf("issue: %w", NewProviderError("acme", CategoryGeneric, "", inner))

	pe, ok := AsProviderError(err)
	assert.True(t, ok)
	assert.Equal(t, "acme", pe.Provider)
	assert.True(t, errors.Is(err, inner))
}
