package solana

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/ybbus/jsonrpc"
)

// TransactionErrorKey is the key the runtime reports for a failed transaction.
// Only the keys this module reacts to are named; any other key still parses.
type TransactionErrorKey string

const (
	TransactionErrorAccountInUse            TransactionErrorKey = "AccountInUse"
	TransactionErrorAccountNotFound         TransactionErrorKey = "AccountNotFound"
	TransactionErrorAlreadyProcessed        TransactionErrorKey = "AlreadyProcessed"
	TransactionErrorBlockhashNotFound       TransactionErrorKey = "BlockhashNotFound"
	TransactionErrorDuplicateSignature      TransactionErrorKey = "DuplicateSignature"
	TransactionErrorInstructionError        TransactionErrorKey = "InstructionError"
	TransactionErrorInsufficientFundsForFee TransactionErrorKey = "InsufficientFundsForFee"
	TransactionErrorSignatureFailure        TransactionErrorKey = "SignatureFailure"
)

// InstructionErrorKey is the key the runtime reports for a failed instruction.
type InstructionErrorKey string

const (
	InstructionErrorAccountAlreadyInitialized InstructionErrorKey = "AccountAlreadyInitialized"
	InstructionErrorCustom                    InstructionErrorKey = "Custom"
	InstructionErrorIncorrectProgramID        InstructionErrorKey = "IncorrectProgramId"
	InstructionErrorInsufficientFunds         InstructionErrorKey = "InsufficientFunds"
	InstructionErrorInvalidAccountData        InstructionErrorKey = "InvalidAccountData"
	InstructionErrorInvalidArgument           InstructionErrorKey = "InvalidArgument"
	InstructionErrorMissingRequiredSignature  InstructionErrorKey = "MissingRequiredSignature"
	InstructionErrorNotEnoughAccountKeys      InstructionErrorKey = "NotEnoughAccountKeys"
)

// CustomError is a program specific error code.
type CustomError int

func (c CustomError) Error() string {
	return fmt.Sprintf("custom program error: %x", int(c))
}

// InstructionError is the failure of the instruction at Index.
type InstructionError struct {
	Index int
	Err   error
}

func (i InstructionError) Error() string {
	return fmt.Sprintf("Error processing Instruction %d: %v", i.Index, i.Err)
}

func (i InstructionError) ErrorKey() InstructionErrorKey {
	switch i.Err.(type) {
	case nil:
		return ""
	case CustomError:
		return InstructionErrorCustom
	}
	return InstructionErrorKey(i.Err.Error())
}

// CustomError returns the program error code, or nil for runtime errors.
func (i InstructionError) CustomError() *CustomError {
	if ce, ok := i.Err.(CustomError); ok {
		return &ce
	}
	return nil
}

// JSONString renders the error in the RPC tuple form, [index, "Key"] or
// [index, {"Custom": code}].
func (i InstructionError) JSONString() string {
	if ce, ok := i.Err.(CustomError); ok {
		return fmt.Sprintf(`[%d, {"%s": %d}]`, i.Index, InstructionErrorCustom, ce)
	}
	return fmt.Sprintf(`[%d, "%s"]`, i.Index, i.Err.Error())
}

// TransactionError is a parsed transaction failure, keeping the raw RPC value.
type TransactionError struct {
	key              TransactionErrorKey
	instructionError *InstructionError
	raw              interface{}
}

func NewTransactionError(key TransactionErrorKey) *TransactionError {
	return &TransactionError{key: key, raw: string(key)}
}

func TransactionErrorFromInstructionError(err *InstructionError) (*TransactionError, error) {
	var tuple interface{}
	if err := json.Unmarshal([]byte(err.JSONString()), &tuple); err != nil {
		return nil, errors.Wrap(err, "failed to generate raw value")
	}

	return &TransactionError{
		key:              TransactionErrorInstructionError,
		instructionError: err,
		raw:              map[string]interface{}{string(TransactionErrorInstructionError): tuple},
	}, nil
}

// ParseRPCError extracts the transaction error carried in the data of a
// failed sendTransaction call. It returns nil when there is none.
func ParseRPCError(err *jsonrpc.RPCError) (*TransactionError, error) {
	if err == nil {
		return nil, nil
	}

	data, ok := err.Data.(map[string]interface{})
	if !ok {
		return nil, errors.New("expected map type")
	}
	if txErr, ok := data["err"]; ok && txErr != nil {
		return ParseTransactionError(txErr)
	}
	return nil, nil
}

// ParseTransactionError parses the "err" field returned by RPC methods, which
// is either a bare key or a single entry object.
func ParseTransactionError(raw interface{}) (*TransactionError, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return &TransactionError{key: TransactionErrorKey(t), raw: raw}, nil
	case map[string]interface{}:
		k, v, err := singleEntry(t)
		if err != nil {
			return &TransactionError{key: "unhandled transaction error", raw: raw}, err
		}
		if k != string(TransactionErrorInstructionError) {
			return &TransactionError{key: TransactionErrorKey(k), raw: raw}, nil
		}

		instructionErr, err := parseInstructionError(v)
		if err != nil {
			return &TransactionError{key: "unhandled transaction error", raw: raw}, errors.Wrap(err, "failed to parse instruction error")
		}
		return &TransactionError{
			key:              TransactionErrorInstructionError,
			instructionError: &instructionErr,
			raw:              raw,
		}, nil
	default:
		return nil, errors.New("unhandled error type")
	}
}

func (t TransactionError) Error() string {
	if t.instructionError != nil {
		return t.instructionError.Error()
	}
	return string(t.key)
}

func (t TransactionError) ErrorKey() TransactionErrorKey {
	return t.key
}

func (t TransactionError) InstructionError() *InstructionError {
	return t.instructionError
}

func (t TransactionError) JSONString() (string, error) {
	b, err := json.Marshal(t.raw)
	return string(b), err
}

func parseInstructionError(v interface{}) (e InstructionError, err error) {
	values, ok := v.([]interface{})
	if !ok {
		return e, errors.New("unexpected instruction error format")
	}
	if len(values) != 2 {
		return e, errors.Errorf("unexpected InstructionError tuple size: %d", len(values))
	}

	if e.Index, err = parseJSONNumber(values[0]); err != nil {
		return e, err
	}

	switch t := values[1].(type) {
	case string:
		e.Err = errors.New(t)
	case map[string]interface{}:
		k, v, err := singleEntry(t)
		if err != nil {
			e.Err = errors.New("unhandled InstructionError")
			return e, err
		}
		if k != string(InstructionErrorCustom) {
			e.Err = errors.New(k)
			break
		}

		code, err := parseJSONNumber(v)
		if err != nil {
			e.Err = errors.New("unhandled CustomError")
			break
		}
		e.Err = CustomError(code)
	default:
		return e, errors.Errorf("unexpected instruction error value: %v", t)
	}

	return e, nil
}

func singleEntry(m map[string]interface{}) (string, interface{}, error) {
	if len(m) != 1 {
		return "", nil, errors.Errorf("invalid error object size: %d", len(m))
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, nil
}

func parseJSONNumber(v interface{}) (int, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err == nil {
			return int(n), nil
		}
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err == nil {
			return int(n), nil
		}
	case float64:
		return int(t), nil
	}
	return 0, errors.Errorf("non numeric value in InstructionError tuple: %v", v)
}
