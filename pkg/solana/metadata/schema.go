package metadata

import (
	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

const (
	typeCreator                 = "Creator"
	typeData                    = "Data"
	typeMetadata                = "Metadata"
	typeCreateMetadataArgs      = "CreateMetadataArgs"
	typeUpdateMetadataArgs      = "UpdateMetadataArgs"
	typeCreateMasterEditionArgs = "CreateMasterEditionArgs"
	typeMintPrintingTokensArgs  = "MintPrintingTokensArgs"
	typeMasterEditionV2         = "MasterEditionV2"
	typeEdition                 = "Edition"
	typeReservation             = "Reservation"
	typeReservationList         = "ReservationList"
)

// Schema is the layout table for every token metadata record this package
// reads or writes.
var Schema = borsh.NewSchema().
	Register(typeCreator,
		borsh.F("address", borsh.Pubkey()),
		borsh.F("verified", borsh.Bool()),
		borsh.F("share", borsh.U8()),
	).
	Register(typeData,
		borsh.F("name", borsh.String()),
		borsh.F("symbol", borsh.String()),
		borsh.F("uri", borsh.String()),
		borsh.F("seller_fee_basis_points", borsh.U16()),
		borsh.F("creators", borsh.Option(borsh.Vector(borsh.Struct(typeCreator)))),
	).
	Register(typeMetadata,
		borsh.F("key", borsh.U8()),
		borsh.F("update_authority", borsh.Pubkey()),
		borsh.F("mint", borsh.Pubkey()),
		borsh.F("data", borsh.Struct(typeData)),
		borsh.F("primary_sale_happened", borsh.Bool()),
		borsh.F("is_mutable", borsh.Bool()),
	).
	Register(typeCreateMetadataArgs,
		borsh.F("instruction", borsh.U8()),
		borsh.F("data", borsh.Struct(typeData)),
		borsh.F("is_mutable", borsh.Bool()),
	).
	Register(typeUpdateMetadataArgs,
		borsh.F("instruction", borsh.U8()),
		borsh.F("data", borsh.Option(borsh.Struct(typeData))),
		borsh.F("update_authority", borsh.Option(borsh.Pubkey())),
		borsh.F("primary_sale_happened", borsh.Option(borsh.Bool())),
	).
	Register(typeCreateMasterEditionArgs,
		borsh.F("instruction", borsh.U8()),
		borsh.F("max_supply", borsh.Option(borsh.U64())),
	).
	Register(typeMintPrintingTokensArgs,
		borsh.F("instruction", borsh.U8()),
		borsh.F("supply", borsh.U64()),
	).
	Register(typeMasterEditionV2,
		borsh.F("key", borsh.U8()),
		borsh.F("supply", borsh.U64()),
		borsh.F("max_supply", borsh.Option(borsh.U64())),
	).
	Register(typeEdition,
		borsh.F("key", borsh.U8()),
		borsh.F("parent", borsh.Pubkey()),
		borsh.F("edition", borsh.U64()),
	).
	Register(typeReservation,
		borsh.F("address", borsh.Pubkey()),
		borsh.F("spots_remaining", borsh.U64()),
		borsh.F("total_spots", borsh.U64()),
	).
	Register(typeReservationList,
		borsh.F("key", borsh.U8()),
		borsh.F("master_edition", borsh.Pubkey()),
		borsh.F("supply_snapshot", borsh.Option(borsh.U64())),
		borsh.F("reservations", borsh.Vector(borsh.Struct(typeReservation))),
		borsh.F("total_reservation_spots", borsh.U64()),
		borsh.F("current_reservation_spots", borsh.U64()),
	)
