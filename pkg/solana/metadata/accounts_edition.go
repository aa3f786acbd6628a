package metadata

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

type MasterEditionV2Account struct {
	Supply uint64
	// Nil when the edition has unlimited supply
	MaxSupply *uint64
}

func (obj *MasterEditionV2Account) Unmarshal(data []byte) error {
	if len(data) == 0 || Key(data[0]) != KeyMasterEditionV2 {
		return ErrInvalidAccountData
	}

	record, _, err := Schema.DecodePrefix(typeMasterEditionV2, data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}

	obj.Supply = record["supply"].Uint64()
	obj.MaxSupply = nil
	if maxSupply, ok := record["max_supply"].Option(); ok {
		v := maxSupply.Uint64()
		obj.MaxSupply = &v
	}

	return nil
}

func (obj *MasterEditionV2Account) String() string {
	maxSupply := "unlimited"
	if obj.MaxSupply != nil {
		maxSupply = fmt.Sprintf("%d", *obj.MaxSupply)
	}
	return fmt.Sprintf("MasterEditionV2{supply=%d,max_supply=%s}", obj.Supply, maxSupply)
}

type EditionAccount struct {
	Parent  ed25519.PublicKey
	Edition uint64
}

func (obj *EditionAccount) Unmarshal(data []byte) error {
	if len(data) == 0 || Key(data[0]) != KeyEditionV1 {
		return ErrInvalidAccountData
	}

	record, _, err := Schema.DecodePrefix(typeEdition, data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}

	obj.Parent = record["parent"].Bytes()
	obj.Edition = record["edition"].Uint64()
	return nil
}

func (obj *EditionAccount) String() string {
	return fmt.Sprintf("Edition{parent=%s,edition=%d}", base58.Encode(obj.Parent), obj.Edition)
}

type Reservation struct {
	Address        ed25519.PublicKey
	SpotsRemaining uint64
	TotalSpots     uint64
}

type ReservationListAccount struct {
	MasterEdition           ed25519.PublicKey
	SupplySnapshot          *uint64
	Reservations            []Reservation
	TotalReservationSpots   uint64
	CurrentReservationSpots uint64
}

func (obj *ReservationListAccount) Unmarshal(data []byte) error {
	if len(data) == 0 || Key(data[0]) != KeyReservationListV2 {
		return ErrInvalidAccountData
	}

	record, _, err := Schema.DecodePrefix(typeReservationList, data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}

	obj.MasterEdition = record["master_edition"].Bytes()
	obj.SupplySnapshot = nil
	if snapshot, ok := record["supply_snapshot"].Option(); ok {
		v := snapshot.Uint64()
		obj.SupplySnapshot = &v
	}

	items := record["reservations"].Items()
	obj.Reservations = make([]Reservation, len(items))
	for i, item := range items {
		r := item.Record()
		obj.Reservations[i] = Reservation{
			Address:        r["address"].Bytes(),
			SpotsRemaining: r["spots_remaining"].Uint64(),
			TotalSpots:     r["total_spots"].Uint64(),
		}
	}

	obj.TotalReservationSpots = record["total_reservation_spots"].Uint64()
	obj.CurrentReservationSpots = record["current_reservation_spots"].Uint64()
	return nil
}
