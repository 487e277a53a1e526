package sealing

import (
	"errors"
	"fmt"

	"github.com/hashicorp/vault/shamir"
)

// SplitRootSecret splits the root secret into shares for distribution to
// operators. Any threshold of them recombine into the original secret;
// fewer reveal nothing. The original should be erased once the shares are
// distributed.
func SplitRootSecret(secret []byte, shares, threshold int) ([][]byte, error) {
	if len(secret) < 32 {
		return nil, errors.New("root secret must be at least 32 bytes")
	}
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if shares < threshold {
		return nil, errors.New("share count must be at least the threshold")
	}

	out, err := shamir.Split(secret, shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split root secret: %w", err)
	}
	return out, nil
}

// CombineRootSecret recombines operator shares into the root secret.
func CombineRootSecret(shares [][]byte) ([]byte, error) {
	if len(shares) < 2 {
		return nil, errors.New("at least two shares are required")
	}

	secret, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("failed to combine root secret shares: %w", err)
	}
	return secret, nil
}
