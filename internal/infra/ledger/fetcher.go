package ledger

import (
	"context"
	"errors"
	"fmt"

	"bookwatch/internal/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Fetcher reads account data through the ledger's JSON-RPC endpoint.
type Fetcher struct {
	client     *rpc.Client
	commitment rpc.CommitmentType
}

// NewFetcher creates a fetcher against the given RPC endpoint.
func NewFetcher(rpcURL, commitment string) *Fetcher {
	return &Fetcher{
		client:     rpc.New(rpcURL),
		commitment: commitmentType(commitment),
	}
}

// FetchAccount returns the raw bytes of the account, or
// domain.ErrAccountNotFound (wrapped) when the ledger has no account there.
func (f *Fetcher) FetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	resp, err := f.client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: f.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("account %s: %w", address, domain.ErrAccountNotFound)
		}
		return nil, domain.NewNetworkError("fetch", err)
	}
	if resp == nil || resp.Value == nil {
		return nil, fmt.Errorf("account %s: %w", address, domain.ErrAccountNotFound)
	}
	return resp.Value.Data.GetBinary(), nil
}

func commitmentType(commitment string) rpc.CommitmentType {
	switch commitment {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}
