package auction

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/dutch-auction/pkg/ledger"
	"github.com/code-payments/dutch-auction/pkg/retry"
	"github.com/code-payments/dutch-auction/pkg/retry/backoff"
	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/dutchauction"
)

var (
	ErrNoSigners             = errors.New("at least one signer is required")
	ErrTransactionTooLarge   = errors.New("transaction exceeds maximum size")
	ErrConfirmationTimeout   = errors.New("timed out waiting for confirmation")
	errSignatureNotConfirmed = errors.New("signature not confirmed")
)

// Submitter signs a transaction of auction instructions and submits it to a
// ledger. The first signer pays for the transaction.
type Submitter interface {
	Submit(ctx context.Context, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (solana.Signature, error)
}

type localSubmitter struct {
	ledger    ledger.Ledger
	processor *Processor

	blockhashMu sync.Mutex
	slot        uint64
}

// NewLocalSubmitter returns a Submitter that executes transactions against a
// local ledger. Transactions go through the same wire encoding and signature
// checks as they would on chain.
func NewLocalSubmitter(l ledger.Ledger, processor *Processor) Submitter {
	return &localSubmitter{
		ledger:    l,
		processor: processor,
	}
}

// Submit implements Submitter.Submit.
func (s *localSubmitter) Submit(ctx context.Context, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (solana.Signature, error) {
	txn, err := buildTransaction(s.nextBlockhash(), signers, instructions)
	if err != nil {
		return solana.Signature{}, err
	}

	raw := txn.Marshal()
	if len(raw) > solana.MaxTransactionSize {
		return solana.Signature{}, errors.Wrapf(ErrTransactionTooLarge, "%d bytes", len(raw))
	}

	var decoded solana.Transaction
	if err := decoded.Unmarshal(raw); err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to decode transaction")
	}
	if err := decoded.VerifySignatures(); err != nil {
		return solana.Signature{}, err
	}

	decompiled, err := decoded.Message.DecompileInstructions()
	if err != nil {
		return solana.Signature{}, err
	}

	sig := decoded.Signatures[0]
	return sig, s.processor.ProcessTransaction(ctx, s.ledger, decompiled...)
}

func (s *localSubmitter) nextBlockhash() solana.Blockhash {
	s.blockhashMu.Lock()
	defer s.blockhashMu.Unlock()

	s.slot++

	var slot [8]byte
	binary.LittleEndian.PutUint64(slot[:], s.slot)
	return solana.Blockhash(sha256.Sum256(slot[:]))
}

type rpcSubmitter struct {
	log        *logrus.Entry
	conf       *conf
	client     solana.Client
	commitment solana.Commitment
}

// NewRPCSubmitter returns a Submitter that sends transactions to a Solana RPC
// node and waits for them to reach the provided commitment.
func NewRPCSubmitter(client solana.Client, commitment solana.Commitment, configProvider ConfigProvider) Submitter {
	return &rpcSubmitter{
		log:        logrus.StandardLogger().WithField("type", "auction/rpc_submitter"),
		conf:       configProvider(),
		client:     client,
		commitment: commitment,
	}
}

// Submit implements Submitter.Submit.
func (s *rpcSubmitter) Submit(ctx context.Context, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (solana.Signature, error) {
	blockhash, err := s.client.GetLatestBlockhash()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to get latest blockhash")
	}

	txn, err := buildTransaction(blockhash, signers, instructions)
	if err != nil {
		return solana.Signature{}, err
	}

	log := s.log.WithField("signature", txn.Signatures[0].String())

	sig := txn.Signatures[0]
	_, err = retry.Retry(
		func() error {
			_, err := s.client.SubmitTransaction(txn, s.commitment)
			return err
		},
		retry.RetriableErrorFunc(isRetriableSubmitError),
		retry.Context(ctx),
		retry.Limit(3),
		retry.Backoff(backoff.BinaryExponential(250*time.Millisecond), 2*time.Second),
	)
	if err != nil {
		log.WithError(err).Debug("failed to submit transaction")
		return sig, toEscrowError(err)
	}

	return sig, s.confirm(ctx, log, sig)
}

func (s *rpcSubmitter) confirm(ctx context.Context, log *logrus.Entry, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, s.conf.confirmTimeout.Get(ctx))
	defer cancel()

	interval := s.conf.confirmPollInterval.Get(ctx)
	_, err := retry.Retry(
		func() error {
			statuses, err := s.client.GetSignatureStatuses([]solana.Signature{sig})
			if err != nil {
				return err
			}

			status := statuses[0]
			if status == nil {
				return errSignatureNotConfirmed
			}
			if status.ErrorResult != nil {
				return status.ErrorResult
			}

			switch s.commitment {
			case solana.CommitmentFinalized:
				if status.Finalized() {
					return nil
				}
			case solana.CommitmentConfirmed:
				if status.Confirmed() {
					return nil
				}
			default:
				return nil
			}
			return errSignatureNotConfirmed
		},
		retry.RetriableErrors(errSignatureNotConfirmed),
		retry.Context(ctx),
		retry.Backoff(backoff.Constant(interval), interval),
	)
	if err == errSignatureNotConfirmed {
		log.Debug("transaction not confirmed before timeout")
		return ErrConfirmationTimeout
	} else if err != nil {
		return toEscrowError(err)
	}
	return nil
}

func buildTransaction(blockhash solana.Blockhash, signers []ed25519.PrivateKey, instructions []solana.Instruction) (solana.Transaction, error) {
	if len(signers) == 0 {
		return solana.Transaction{}, ErrNoSigners
	}

	txn := solana.NewTransaction(signers[0].Public().(ed25519.PublicKey), instructions...)
	txn.SetBlockhash(blockhash)
	if err := txn.Sign(signers...); err != nil {
		return solana.Transaction{}, err
	}
	return txn, nil
}

// isRetriableSubmitError reports whether a submission failure might succeed
// on a later attempt. Program and transaction errors never do.
func isRetriableSubmitError(err error) bool {
	if _, ok := dutchauction.GetEscrowError(err); ok {
		return false
	}

	var txErr *solana.TransactionError
	return !errors.As(err, &txErr)
}

// toEscrowError surfaces the program error code carried by err, if any.
func toEscrowError(err error) error {
	if escrowErr, ok := dutchauction.GetEscrowError(err); ok {
		return errors.Wrap(escrowErr, err.Error())
	}
	return err
}
