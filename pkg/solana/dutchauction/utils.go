package dutchauction

import (
	"crypto/ed25519"

	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

// Instruction args only hold fixed width values, so encoding can only fail
// on a broken schema.
func mustEncode(typeName string, r borsh.Record) []byte {
	data, err := Schema.Encode(typeName, r)
	if err != nil {
		panic(err)
	}
	return data
}

func accountKey(ix solana.Instruction, index int) ed25519.PublicKey {
	return ix.Accounts[index].PublicKey
}
