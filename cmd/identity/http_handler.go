package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fystack/identity-minter/internal/balance"
	"github.com/fystack/identity-minter/internal/identity"
	"github.com/fystack/identity-minter/internal/ipfs"
	"github.com/fystack/identity-minter/internal/minter"
	"github.com/fystack/identity-minter/internal/rpc/cardano"
	"github.com/fystack/identity-minter/internal/slot"
	"github.com/fystack/identity-minter/pkg/common/enum"
	"github.com/fystack/identity-minter/pkg/common/logger"
)

const defaultMaxUpload = 10 << 20

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Network   string    `json:"network"`
	Wallet    bool      `json:"wallet"`
}

type APIErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Info    string `json:"info,omitempty"`
	RawCode int    `json:"rawCode,omitempty"`
	// wallet or node error text behind Error
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type BalanceResponse struct {
	balance.WalletBalance
	Formatted string `json:"formatted"`
	// false when another fetch was running and the cached value is returned
	Refreshed bool `json:"refreshed"`
}

type SlotResponse struct {
	Slot    uint64 `json:"slot"`
	Network string `json:"network"`
}

type MintResponse struct {
	*minter.Result
	Progress []minter.Progress `json:"progress"`
}

type mintService interface {
	Prepare(ctx context.Context, address string, meta identity.Metadata) (*minter.Preparation, error)
	Mint(ctx context.Context, meta identity.Metadata, onProgress minter.ProgressFunc) (*minter.Result, error)
}

type balanceRefresher interface {
	Refresh(ctx context.Context) (balance.WalletBalance, bool, error)
}

type assetReader interface {
	GetAsset(ctx context.Context, unit string) (*cardano.Asset, error)
}

type IdentityHTTPHandler struct {
	version    string
	network    enum.Network
	slots      slot.Source
	minter     mintService
	balances   balanceRefresher
	uploader   ipfs.Uploader
	assets     assetReader
	identities *identity.Store
	maxUpload  int64
	authToken  string
	now        func() time.Time
}

type handlerDeps struct {
	Version    string
	Network    enum.Network
	Slots      slot.Source
	Minter     mintService      // nil leaves the mint routes unmounted
	Balances   balanceRefresher // nil without a wallet
	Uploader   ipfs.Uploader
	Assets     assetReader
	Identities *identity.Store
	MaxUpload  int64
	AuthToken  string
}

func NewIdentityHTTPHandler(d handlerDeps) *IdentityHTTPHandler {
	if d.Version == "" {
		d.Version = "1.0.0"
	}
	if d.MaxUpload <= 0 {
		d.MaxUpload = defaultMaxUpload
	}
	return &IdentityHTTPHandler{
		version:    d.Version,
		network:    d.Network,
		slots:      d.Slots,
		minter:     d.Minter,
		balances:   d.Balances,
		uploader:   d.Uploader,
		assets:     d.Assets,
		identities: d.Identities,
		maxUpload:  d.MaxUpload,
		authToken:  d.AuthToken,
		now:        time.Now,
	}
}

func (h *IdentityHTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HandleHealth)
	r.Post("/balance/decode", h.HandleBalanceDecode)
	r.Get("/slot/current", h.HandleCurrentSlot)
	r.Get("/nft/{unit}", h.HandleNFT)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(h.authToken))
		r.Get("/balance", h.HandleBalance)
		r.Post("/ipfs/upload", h.HandleUpload)
		if h.minter != nil {
			r.Post("/mint/prepare", h.HandleMintPrepare)
			r.Post("/mint", h.HandleMint)
		}
	})
	return r
}

// bearerAuth requires "Authorization: Bearer <token>". An empty token
// disables the check.
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeErrorJSON(w, http.StatusUnauthorized, "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *IdentityHTTPHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC(),
		Version:   h.version,
		Network:   string(h.network),
		Wallet:    h.balances != nil,
	})
}

func (h *IdentityHTTPHandler) HandleBalanceDecode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CBOR string `json:"cbor"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	wb := balance.Decode(req.CBOR)
	writeJSON(w, http.StatusOK, BalanceResponse{WalletBalance: wb, Formatted: wb.Formatted(), Refreshed: true})
}

func (h *IdentityHTTPHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	if h.balances == nil {
		writeMintError(w, minter.ErrWalletNotConnected)
		return
	}
	wb, started, err := h.balances.Refresh(r.Context())
	if err != nil {
		writeErrorJSON(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{WalletBalance: wb, Formatted: wb.Formatted(), Refreshed: started})
}

func (h *IdentityHTTPHandler) HandleCurrentSlot(w http.ResponseWriter, r *http.Request) {
	s, err := h.slots.CurrentSlot(r.Context())
	if err != nil {
		writeErrorJSON(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SlotResponse{Slot: s, Network: string(h.network)})
}

func (h *IdentityHTTPHandler) HandleMintPrepare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		mintRequest
		Address string `json:"walletAddress"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Address == "" {
		writeErrorJSON(w, http.StatusBadRequest, "walletAddress is required")
		return
	}
	meta, err := req.metadata(h.now)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	prep, err := h.minter.Prepare(r.Context(), req.Address, meta)
	if err != nil {
		writeMintError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prep)
}

func (h *IdentityHTTPHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeBody(r, &req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	meta, err := req.metadata(h.now)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	var progress []minter.Progress
	res, err := h.minter.Mint(r.Context(), meta, func(p minter.Progress) {
		progress = append(progress, p)
	})
	if err != nil {
		writeMintError(w, err)
		return
	}
	if h.identities != nil {
		if err := h.identities.Save(identityRecord(res, meta, h.network, h.now())); err != nil {
			logger.Warn("Saving identity record failed", "unit", res.Unit, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, MintResponse{Result: res, Progress: progress})
}

func (h *IdentityHTTPHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, fmt.Sprintf("read file: %v", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, fmt.Sprintf("read file: %v", err))
		return
	}

	res, err := h.uploader.Upload(r.Context(), data, header.Filename)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, ipfs.ErrTooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, ipfs.ErrEmptyFile):
			status = http.StatusBadRequest
		case errors.Is(err, ipfs.ErrNoProviders):
			status = http.StatusServiceUnavailable
		}
		writeErrorJSON(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *IdentityHTTPHandler) HandleNFT(w http.ResponseWriter, r *http.Request) {
	unit := chi.URLParam(r, "unit")
	asset, err := h.assets.GetAsset(r.Context(), unit)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, cardano.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeErrorJSON(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func mintStatus(code minter.Code) int {
	switch code {
	case minter.CodeWalletNotConnected:
		return http.StatusServiceUnavailable
	case minter.CodeMintInProgress, minter.CodeUserRejected:
		return http.StatusConflict
	case minter.CodeAddressUnresolved, minter.CodeInsufficientFunds, minter.CodeMissingCollateral:
		return http.StatusUnprocessableEntity
	case minter.CodeInvalidCredentials, minter.CodeSubmissionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeMintError(w http.ResponseWriter, err error) {
	var me *minter.Error
	if !errors.As(err, &me) {
		writeErrorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	msg := me.Message
	if msg == "" {
		msg = me.Error()
	}
	var detail string
	if me.Err != nil {
		detail = me.Err.Error()
	}
	writeJSON(w, mintStatus(me.Code), APIErrorResponse{
		Status:    "error",
		Error:     msg,
		Code:      string(me.Code),
		Info:      me.Info,
		RawCode:   me.RawCode,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "status", statusCode, "err", err)
	}
}

func writeErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, APIErrorResponse{
		Status:    "error",
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}
