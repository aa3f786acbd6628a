package metadata

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

func TestMetadataAccount_MarshalUnmarshal(t *testing.T) {
	expected := &MetadataAccount{
		Key:             KeyMetadataV1,
		UpdateAuthority: newKey(t),
		Mint:            newKey(t),
		Data: Data{
			Name:                 "Bored Llama #12",
			Symbol:               "LLAMA",
			Uri:                  "https://example.com/llama/12.json",
			SellerFeeBasisPoints: 500,
			Creators: []Creator{
				{Address: newKey(t), Verified: true, Share: 60},
				{Address: newKey(t), Verified: false, Share: 40},
			},
		},
		PrimarySaleHappened: true,
		IsMutable:           true,
	}

	data, err := expected.Marshal()
	require.NoError(t, err)
	assert.Len(t, data, MaxMetadataLen)

	var actual MetadataAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, *expected, actual)
}

func TestMetadataAccount_TrailingNul(t *testing.T) {
	account := &MetadataAccount{
		Key:             KeyMetadataV1,
		UpdateAuthority: newKey(t),
		Mint:            newKey(t),
		Data: Data{
			Name:   "llama\x00",
			Symbol: "LL\x00A",
			Uri:    "https://example.com",
		},
	}

	data, err := account.Marshal()
	require.NoError(t, err)

	var actual MetadataAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, "llama", actual.Data.Name)
	assert.Equal(t, "LL\x00A", actual.Data.Symbol)
}

func TestMetadataAccount_Layout(t *testing.T) {
	account := &MetadataAccount{
		UpdateAuthority: newKey(t),
		Mint:            newKey(t),
		Data: Data{
			Name:   "n",
			Symbol: "s",
			Uri:    "u",
		},
	}

	data, err := account.Marshal()
	require.NoError(t, err)

	assert.EqualValues(t, KeyMetadataV1, data[0])
	assert.EqualValues(t, account.UpdateAuthority, data[1:33])
	assert.EqualValues(t, account.Mint, data[33:65])

	// Strings are stored padded to their maximum length
	assert.EqualValues(t, MaxNameLength, binary.LittleEndian.Uint32(data[65:]))
	assert.Equal(t, byte('n'), data[69])
	assert.Equal(t, byte(0), data[70])

	symbolOffset := 69 + MaxNameLength
	assert.EqualValues(t, MaxSymbolLength, binary.LittleEndian.Uint32(data[symbolOffset:]))
}

func TestMetadataAccount_NoCreators(t *testing.T) {
	account := &MetadataAccount{
		Key:             KeyMetadataV1,
		UpdateAuthority: newKey(t),
		Mint:            newKey(t),
		Data:            Data{Name: "solo"},
	}

	data, err := account.Marshal()
	require.NoError(t, err)

	var actual MetadataAccount
	require.NoError(t, actual.Unmarshal(data))
	assert.Nil(t, actual.Data.Creators)
	assert.Equal(t, 0, actual.Data.TotalShares())
}

func TestMetadataAccount_UnmarshalInvalid(t *testing.T) {
	account := &MetadataAccount{
		UpdateAuthority: newKey(t),
		Mint:            newKey(t),
		Data: Data{
			Creators: []Creator{{Address: newKey(t), Share: 100}},
		},
	}
	data, err := account.Marshal()
	require.NoError(t, err)

	var actual MetadataAccount

	assert.ErrorIs(t, actual.Unmarshal(nil), ErrInvalidAccountData)

	wrongKey := append([]byte{}, data...)
	wrongKey[0] = byte(KeyMasterEditionV2)
	assert.ErrorIs(t, actual.Unmarshal(wrongKey), ErrInvalidAccountData)

	for _, size := range []int{1, 33, 65, 80, 200} {
		assert.ErrorIs(t, actual.Unmarshal(data[:size]), ErrInvalidAccountData, "size=%d", size)
	}

	// Creator option tag must be 0 or 1
	creatorsOffset := 65 + 4 + MaxNameLength + 4 + MaxSymbolLength + 4 + MaxUriLength + 2
	require.EqualValues(t, 1, data[creatorsOffset])
	badTag := append([]byte{}, data...)
	badTag[creatorsOffset] = 2
	assert.ErrorIs(t, actual.Unmarshal(badTag), ErrInvalidAccountData)
}

func TestData_Validate(t *testing.T) {
	creator := newKey(t)

	for _, tc := range []struct {
		name  string
		data  Data
		valid bool
	}{
		{"empty", Data{}, true},
		{"full shares", Data{Creators: []Creator{{Address: creator, Share: 100}}}, true},
		{"name too long", Data{Name: string(make([]byte, MaxNameLength+1))}, false},
		{"symbol too long", Data{Symbol: "ABCDEFGHIJK"}, false},
		{"uri too long", Data{Uri: string(make([]byte, MaxUriLength+1))}, false},
		{"seller fee too high", Data{SellerFeeBasisPoints: MaxBasisPoints + 1}, false},
		{"shares under 100", Data{Creators: []Creator{{Address: creator, Share: 99}}}, false},
		{"empty creator list", Data{Creators: []Creator{}}, false},
		{"duplicate creator", Data{Creators: []Creator{{Address: creator, Share: 50}, {Address: creator, Share: 50}}}, false},
		{"bad address", Data{Creators: []Creator{{Address: creator[:31], Share: 100}}}, false},
		{"too many creators", Data{Creators: []Creator{
			{Address: newKey(t), Share: 20},
			{Address: newKey(t), Share: 20},
			{Address: newKey(t), Share: 20},
			{Address: newKey(t), Share: 20},
			{Address: newKey(t), Share: 10},
			{Address: newKey(t), Share: 10},
		}}, false},
	} {
		err := tc.data.Validate()
		if tc.valid {
			assert.NoError(t, err, tc.name)
		} else {
			assert.ErrorIs(t, err, ErrInvalidMetadataData, tc.name)
		}
	}
}

func TestGetMetadataAddress(t *testing.T) {
	mint := newKey(t)

	var seen [][]byte
	fake := solana.AddressDeriverFunc(func(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
		assert.EqualValues(t, PROGRAM_ID, program)
		seen = seeds
		return make([]byte, 32), 7, nil
	})

	_, bump, err := GetMetadataAddress(fake, &GetMetadataAddressArgs{Mint: mint})
	require.NoError(t, err)
	assert.EqualValues(t, 7, bump)
	require.Len(t, seen, 3)
	assert.Equal(t, []byte("metadata"), seen[0])
	assert.EqualValues(t, PROGRAM_ID, seen[1])
	assert.EqualValues(t, mint, seen[2])

	actual, actualBump, err := GetMetadataAddress(nil, &GetMetadataAddressArgs{Mint: mint})
	require.NoError(t, err)
	expected, expectedBump, err := solana.FindProgramAddressAndBump(PROGRAM_ID, []byte("metadata"), PROGRAM_ID, mint)
	require.NoError(t, err)
	assert.EqualValues(t, expected, actual)
	assert.Equal(t, expectedBump, actualBump)

	edition, _, err := GetEditionAddress(nil, &GetEditionAddressArgs{Mint: mint})
	require.NoError(t, err)
	assert.NotEqualValues(t, actual, edition)
}

func TestCreateMetadataInstruction(t *testing.T) {
	accounts := &CreateMetadataInstructionAccounts{
		Metadata:        newKey(t),
		Mint:            newKey(t),
		MintAuthority:   newKey(t),
		Payer:           newKey(t),
		UpdateAuthority: newKey(t),
	}
	args := &CreateMetadataInstructionArgs{
		Data: Data{
			Name:                 "name",
			Symbol:               "SYM",
			Uri:                  "uri",
			SellerFeeBasisPoints: 250,
			Creators:             []Creator{{Address: newKey(t), Verified: true, Share: 100}},
		},
		IsMutable: true,
	}

	ix, err := NewCreateMetadataInstruction(accounts, args)
	require.NoError(t, err)
	assert.EqualValues(t, PROGRAM_ID, ix.Program)
	assert.EqualValues(t, InstructionTypeCreateMetadataAccount, ix.Data[0])
	require.Len(t, ix.Accounts, 7)
	assert.True(t, ix.Accounts[2].IsSigner)
	assert.True(t, ix.Accounts[3].IsSigner)

	decompiled, err := DecompileCreateMetadataInstruction(ix)
	require.NoError(t, err)
	assert.Equal(t, args, decompiled)

	ix.Data = ix.Data[:len(ix.Data)-1]
	_, err = DecompileCreateMetadataInstruction(ix)
	assert.ErrorIs(t, err, borsh.ErrTruncatedInput)

	_, err = NewCreateMetadataInstruction(accounts, &CreateMetadataInstructionArgs{
		Data: Data{Symbol: "WAY_TOO_LONG_SYMBOL"},
	})
	assert.ErrorIs(t, err, ErrInvalidMetadataData)
}

func TestUpdateMetadataInstruction(t *testing.T) {
	accounts := &UpdateMetadataInstructionAccounts{
		Metadata:        newKey(t),
		UpdateAuthority: newKey(t),
	}

	ix, err := NewUpdateMetadataInstruction(accounts, &UpdateMetadataInstructionArgs{})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0}, ix.Data)

	primarySale := true
	newAuthority := newKey(t)
	ix, err = NewUpdateMetadataInstruction(accounts, &UpdateMetadataInstructionArgs{
		UpdateAuthority:     newAuthority,
		PrimarySaleHappened: &primarySale,
	})
	require.NoError(t, err)

	expected := []byte{1, 0, 1}
	expected = append(expected, newAuthority...)
	expected = append(expected, 1, 1)
	assert.Equal(t, expected, ix.Data)
}

func TestMasterEditionInstructions(t *testing.T) {
	maxSupply := uint64(10)
	ix, err := NewCreateMasterEditionInstruction(&CreateMasterEditionInstructionAccounts{
		Edition:         newKey(t),
		Mint:            newKey(t),
		UpdateAuthority: newKey(t),
		MintAuthority:   newKey(t),
		Payer:           newKey(t),
		Metadata:        newKey(t),
	}, &CreateMasterEditionInstructionArgs{MaxSupply: &maxSupply})
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 1, 10, 0, 0, 0, 0, 0, 0, 0}, ix.Data)
	assert.Len(t, ix.Accounts, 9)

	ix, err = NewMintPrintingTokensInstruction(&MintPrintingTokensInstructionAccounts{
		Destination:     newKey(t),
		PrintingMint:    newKey(t),
		UpdateAuthority: newKey(t),
		Metadata:        newKey(t),
		MasterEdition:   newKey(t),
	}, &MintPrintingTokensInstructionArgs{Supply: 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 3, 0, 0, 0, 0, 0, 0, 0}, ix.Data)
}

func TestEditionAccounts(t *testing.T) {
	data, err := Schema.Encode(typeMasterEditionV2, borsh.Record{
		"key":        borsh.U8Value(uint8(KeyMasterEditionV2)),
		"supply":     borsh.U64Value(4),
		"max_supply": borsh.Some(borsh.U64Value(100)),
	})
	require.NoError(t, err)

	var master MasterEditionV2Account
	require.NoError(t, master.Unmarshal(append(data, make([]byte, 200)...)))
	assert.EqualValues(t, 4, master.Supply)
	require.NotNil(t, master.MaxSupply)
	assert.EqualValues(t, 100, *master.MaxSupply)

	parent := newKey(t)
	data, err = Schema.Encode(typeEdition, borsh.Record{
		"key":     borsh.U8Value(uint8(KeyEditionV1)),
		"parent":  borsh.PubkeyValue(parent),
		"edition": borsh.U64Value(9),
	})
	require.NoError(t, err)

	var edition EditionAccount
	require.NoError(t, edition.Unmarshal(data))
	assert.EqualValues(t, parent, edition.Parent)
	assert.EqualValues(t, 9, edition.Edition)
	assert.ErrorIs(t, master.Unmarshal(data), ErrInvalidAccountData)

	reserved := newKey(t)
	data, err = Schema.Encode(typeReservationList, borsh.Record{
		"key":             borsh.U8Value(uint8(KeyReservationListV2)),
		"master_edition":  borsh.PubkeyValue(parent),
		"supply_snapshot": borsh.None(),
		"reservations": borsh.VectorValue(borsh.StructValue(borsh.Record{
			"address":         borsh.PubkeyValue(reserved),
			"spots_remaining": borsh.U64Value(1),
			"total_spots":     borsh.U64Value(2),
		})),
		"total_reservation_spots":   borsh.U64Value(2),
		"current_reservation_spots": borsh.U64Value(1),
	})
	require.NoError(t, err)

	var list ReservationListAccount
	require.NoError(t, list.Unmarshal(data))
	assert.Nil(t, list.SupplySnapshot)
	require.Len(t, list.Reservations, 1)
	assert.EqualValues(t, reserved, list.Reservations[0].Address)
	assert.EqualValues(t, 2, list.TotalReservationSpots)
}

func newKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
