package minter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fystack/identity-minter/internal/ledger"
	"github.com/fystack/identity-minter/internal/rpc"
	"github.com/fystack/identity-minter/internal/wallet"
)

// Code is the failure category reported to users.
type Code string

const (
	CodeWalletNotConnected    Code = "wallet_not_connected"
	CodeMintInProgress        Code = "mint_in_progress"
	CodeAddressUnresolved     Code = "address_unresolved"
	CodeInsufficientFunds     Code = "insufficient_funds"
	CodeMissingCollateral     Code = "missing_collateral"
	CodeInvalidCredentials    Code = "invalid_credentials"
	CodeUserRejected          Code = "user_rejected"
	CodeConstructionInvariant Code = "construction_invariant"
	CodeSignFailed            Code = "sign_failed"
	CodeSubmissionFailed      Code = "submission_failed"
	CodeBuildFailed           Code = "build_failed"
)

// Sentinels for errors.Is; they match any *Error with the same code.
var (
	ErrWalletNotConnected    = &Error{Code: CodeWalletNotConnected}
	ErrMintInProgress        = &Error{Code: CodeMintInProgress}
	ErrAddressUnresolved     = &Error{Code: CodeAddressUnresolved}
	ErrInsufficientFunds     = &Error{Code: CodeInsufficientFunds}
	ErrMissingCollateral     = &Error{Code: CodeMissingCollateral}
	ErrInvalidCredentials    = &Error{Code: CodeInvalidCredentials}
	ErrUserRejected          = &Error{Code: CodeUserRejected}
	ErrConstructionInvariant = &Error{Code: CodeConstructionInvariant}
	ErrSubmissionFailed      = &Error{Code: CodeSubmissionFailed}
)

var defaultMessages = map[Code]string{
	CodeWalletNotConnected:    "wallet is not connected",
	CodeMintInProgress:        "a mint is already running for this wallet",
	CodeAddressUnresolved:     "could not derive a payment key from the wallet address",
	CodeInsufficientFunds:     "wallet balance is too low, at least 5 ADA is needed for the fee and minimum UTxO",
	CodeMissingCollateral:     "collateral is required, set a collateral UTxO in the wallet",
	CodeInvalidCredentials:    "upstream API key is invalid or expired",
	CodeUserRejected:          "transaction signing was cancelled",
	CodeConstructionInvariant: "transaction failed an internal consistency check",
	CodeSignFailed:            "wallet could not sign the transaction",
	CodeSubmissionFailed:      "transaction submission failed",
	CodeBuildFailed:           "could not build the mint transaction",
}

// Error is a categorised mint failure. Info and RawCode carry what the
// wallet or node reported.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Info    string `json:"info,omitempty"`
	RawCode int    `json:"rawCode,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessages[e.Code]
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, err error) *Error {
	return &Error{Code: code, Message: defaultMessages[code], Err: err}
}

// CodeOf returns the category of err, or "" when err is not a mint error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Classify maps wallet, indexer and node failures onto a Code using the
// error types first and known message patterns second. Unknown failures get
// fallback.
func Classify(err error, fallback Code) *Error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return me
	}

	code := fallback
	msg := strings.ToLower(err.Error())
	switch {
	case wallet.IsUserRejection(err):
		code = CodeUserRejected
	case errors.Is(err, ledger.ErrInsufficientBalance),
		strings.Contains(msg, "utxo balance insufficient"),
		strings.Contains(msg, "insufficient"):
		code = CodeInsufficientFunds
	case strings.Contains(msg, "collateral"):
		code = CodeMissingCollateral
	case rpc.IsUnauthorized(err),
		strings.Contains(msg, "api key"),
		strings.Contains(msg, "invalid project token"):
		code = CodeInvalidCredentials
	}

	out := newError(code, err)
	out.Info, out.RawCode = walletDiagnostics(err)
	return out
}

func walletDiagnostics(err error) (info string, code int) {
	var (
		apiErr  *wallet.APIError
		signErr *wallet.TxSignError
		sendErr *wallet.TxSendError
		coded   wallet.CodedError
	)
	switch {
	case errors.As(err, &sendErr):
		return sendErr.Info, int(sendErr.Code)
	case errors.As(err, &signErr):
		return signErr.Info, int(signErr.Code)
	case errors.As(err, &apiErr):
		return apiErr.Info, int(apiErr.Code)
	case errors.As(err, &coded):
		return coded.Error(), coded.ErrorCode()
	}
	var he *rpc.HTTPError
	if errors.As(err, &he) {
		return string(he.Body), he.StatusCode
	}
	return "", 0
}
