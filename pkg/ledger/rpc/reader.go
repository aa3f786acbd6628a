package rpc

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/ledger"
	"github.com/code-payments/dutch-auction/pkg/solana"
)

type reader struct {
	client     solana.Client
	commitment solana.Commitment
}

// NewReader returns a ledger.Reader backed by a Solana RPC node.
func NewReader(client solana.Client, commitment solana.Commitment) ledger.Reader {
	return &reader{
		client:     client,
		commitment: commitment,
	}
}

// GetAccount implements ledger.Reader.GetAccount.
func (r *reader) GetAccount(ctx context.Context, address ed25519.PublicKey) (*ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := r.client.GetAccountInfo(address, r.commitment)
	if err == solana.ErrNoAccountInfo {
		return nil, errors.Wrap(ledger.ErrAccountNotFound, base58.Encode(address))
	} else if err != nil {
		return nil, err
	}

	return &ledger.Account{
		Address:  address,
		Owner:    info.Owner,
		Lamports: info.Lamports,
		Data:     info.Data,
	}, nil
}

// GetProgramAccounts implements ledger.Reader.GetProgramAccounts.
func (r *reader) GetProgramAccounts(ctx context.Context, program ed25519.PublicKey, dataSize uint64, filters ...solana.MemcmpFilter) ([]*ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, _, err := r.client.GetProgramAccounts(program, dataSize, filters...)
	if err != nil {
		return nil, err
	}

	res := make([]*ledger.Account, len(infos))
	for i, info := range infos {
		res[i] = &ledger.Account{
			Address:  info.Address,
			Owner:    info.Owner,
			Lamports: info.Lamports,
			Data:     info.Data,
		}
	}
	return res, nil
}
