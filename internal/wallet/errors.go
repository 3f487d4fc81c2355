package wallet

import (
	"errors"
	"fmt"
	"strings"
)

// APIErrorCode is the CIP-30 APIError code.
type APIErrorCode int

const (
	APIErrorInvalidRequest APIErrorCode = -1
	APIErrorInternal       APIErrorCode = -2
	APIErrorRefused        APIErrorCode = -3
	APIErrorAccountChange  APIErrorCode = -4
)

type TxSignErrorCode int

const (
	TxSignProofGeneration TxSignErrorCode = 1
	TxSignUserDeclined    TxSignErrorCode = 2
)

type TxSendErrorCode int

const (
	TxSendRefused TxSendErrorCode = 1
	TxSendFailure TxSendErrorCode = 2
)

// legacyUserRejected is the code older wallet bridges report for a dismissed prompt.
const legacyUserRejected = 4

var (
	ErrUserDeclined    = errors.New("user declined to sign")
	ErrNotConnected    = errors.New("wallet not connected")
	ErrNetworkMismatch = errors.New("wallet is on wrong network")
)

// CodedError is implemented by wallet errors that carry a numeric code.
// Bridges to other wallet runtimes can implement it to have their codes
// classified by IsUserRejection.
type CodedError interface {
	error
	ErrorCode() int
}

type APIError struct {
	Code APIErrorCode `json:"code"`
	Info string       `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wallet api error %d: %s", e.Code, e.Info)
}

func (e *APIError) ErrorCode() int { return int(e.Code) }

type TxSignError struct {
	Code TxSignErrorCode `json:"code"`
	Info string          `json:"info"`
}

func (e *TxSignError) Error() string {
	if e.Code == TxSignUserDeclined {
		return "user declined to sign: " + e.Info
	}
	return fmt.Sprintf("tx sign error %d: %s", e.Code, e.Info)
}

func (e *TxSignError) ErrorCode() int { return int(e.Code) }

func (e *TxSignError) Is(target error) bool {
	return target == ErrUserDeclined && e.Code == TxSignUserDeclined
}

type TxSendError struct {
	Code TxSendErrorCode `json:"code"`
	Info string          `json:"info"`
	Err  error           `json:"-"`
}

func (e *TxSendError) Error() string {
	return fmt.Sprintf("tx send error %d: %s", e.Code, e.Info)
}

func (e *TxSendError) ErrorCode() int { return int(e.Code) }

func (e *TxSendError) Unwrap() error { return e.Err }

var rejectionPhrases = []string{"user rejected", "user declined", "user canceled", "user cancelled", "用户拒绝"}

// IsUserRejection reports whether err means the user dismissed a wallet
// prompt: a TxSignError with code 2, the legacy code 4, or a message saying so.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserDeclined) {
		return true
	}
	var coded CodedError
	if errors.As(err, &coded) && coded.ErrorCode() == legacyUserRejected {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range rejectionPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
