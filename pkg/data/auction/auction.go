package auction

import (
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/pointer"
)

type State uint8

const (
	StateUnknown   State = iota
	StateOpen            // The auction account exists and holds custody of the token account.
	StateSettled         // The asset was sold to a taker.
	StateCancelled       // The initializer reclaimed the asset.
	StateClosed          // The auction account disappeared without this process observing why.
)

type Record struct {
	Id uint64

	Address      string
	Initializer  string
	Mint         string
	TokenAccount string

	StartingPrice     uint64
	ReservedPrice     uint64
	PriceStep         uint64
	Interval          uint64
	StartingTimestamp int64
	Bump              uint8

	State State

	Taker        *string
	SettledPrice *uint64

	OpenSignature  string
	CloseSignature *string

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.Address) == 0 {
		return errors.New("auction address is required")
	}
	if len(r.Initializer) == 0 {
		return errors.New("initializer is required")
	}
	if len(r.Mint) == 0 {
		return errors.New("mint is required")
	}
	if len(r.TokenAccount) == 0 {
		return errors.New("token account is required")
	}
	if r.PriceStep == 0 || r.Interval == 0 {
		return errors.New("price step and interval must be positive")
	}
	if r.StartingPrice < r.ReservedPrice {
		return errors.New("starting price is below reserved price")
	}
	if len(r.OpenSignature) == 0 {
		return errors.New("open signature is required")
	}

	switch r.State {
	case StateOpen:
		if r.Taker != nil || r.SettledPrice != nil || r.CloseSignature != nil {
			return errors.New("open auction cannot have settlement details")
		}
	case StateSettled:
		if r.Taker == nil || r.SettledPrice == nil {
			return errors.New("settled auction requires taker and price")
		}
		if r.CloseSignature == nil {
			return errors.New("settled auction requires close signature")
		}
	case StateCancelled:
		if r.Taker != nil || r.SettledPrice != nil {
			return errors.New("cancelled auction cannot have a taker")
		}
		if r.CloseSignature == nil {
			return errors.New("cancelled auction requires close signature")
		}
	case StateClosed:
		if r.Taker != nil || r.SettledPrice != nil {
			return errors.New("closed auction cannot have a taker")
		}
	default:
		return errors.Errorf("invalid state: %d", r.State)
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id:                r.Id,
		Address:           r.Address,
		Initializer:       r.Initializer,
		Mint:              r.Mint,
		TokenAccount:      r.TokenAccount,
		StartingPrice:     r.StartingPrice,
		ReservedPrice:     r.ReservedPrice,
		PriceStep:         r.PriceStep,
		Interval:          r.Interval,
		StartingTimestamp: r.StartingTimestamp,
		Bump:              r.Bump,
		State:             r.State,
		Taker:             pointer.StringCopy(r.Taker),
		SettledPrice:      pointer.Uint64Copy(r.SettledPrice),
		OpenSignature:     r.OpenSignature,
		CloseSignature:    pointer.StringCopy(r.CloseSignature),
		CreatedAt:         r.CreatedAt,
		LastUpdatedAt:     r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	*dst = r.Clone()
}

// CanTransitionTo reports whether a record may move to the provided state.
// Only open auctions change state.
func (r *Record) CanTransitionTo(state State) bool {
	if r.State != StateOpen {
		return false
	}
	switch state {
	case StateSettled, StateCancelled, StateClosed:
		return true
	}
	return false
}

func (r *Record) GetPublicKey() (ed25519.PublicKey, error) {
	return base58.Decode(r.Address)
}

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateSettled:
		return "settled"
	case StateCancelled:
		return "cancelled"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
