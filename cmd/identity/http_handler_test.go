package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/identity-minter/internal/balance"
	"github.com/fystack/identity-minter/internal/identity"
	"github.com/fystack/identity-minter/internal/ipfs"
	"github.com/fystack/identity-minter/internal/minter"
	"github.com/fystack/identity-minter/internal/rpc/cardano"
	"github.com/fystack/identity-minter/internal/wallet"
	"github.com/fystack/identity-minter/pkg/common/enum"
	"github.com/fystack/identity-minter/pkg/infra"
	"github.com/fystack/identity-minter/pkg/kvstore"
)

const (
	testOwner = "addr_test1vz2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzerspjrlsz"
	testCID   = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

type stubMinter struct {
	meta    identity.Metadata
	address string
	err     error
}

func (s *stubMinter) Prepare(_ context.Context, address string, meta identity.Metadata) (*minter.Preparation, error) {
	s.address, s.meta = address, meta
	if s.err != nil {
		return nil, s.err
	}
	return &minter.Preparation{AssetName: "CardanoIdentity1", Address: address, TTL: 8200}, nil
}

func (s *stubMinter) Mint(_ context.Context, meta identity.Metadata, onProgress minter.ProgressFunc) (*minter.Result, error) {
	s.meta = meta
	if s.err != nil {
		return nil, s.err
	}
	onProgress(minter.Progress{Stage: minter.StageSubmitted, Message: "transaction submitted"})
	return &minter.Result{
		PolicyID:  "50a522a459c26f001233aab967abd28daca949e80aad046d97b88b6f",
		AssetName: "CardanoIdentity1",
		Unit:      "50a522a459c26f001233aab967abd28daca949e80aad046d97b88b6f436172",
		TxHash:    "ab",
		Owner:     testOwner,
	}, nil
}

type stubBalances struct{ raw string }

func (s stubBalances) Refresh(context.Context) (balance.WalletBalance, bool, error) {
	return balance.Decode(s.raw), true, nil
}

type stubUploader struct{ got []byte }

func (s *stubUploader) Name() string { return "stub" }
func (s *stubUploader) Upload(_ context.Context, data []byte, _ string) (*ipfs.UploadResult, error) {
	if len(data) == 0 {
		return nil, ipfs.ErrEmptyFile
	}
	s.got = data
	return &ipfs.UploadResult{CID: testCID, URL: "https://ipfs.io/ipfs/" + testCID}, nil
}

type stubAssets map[string]*cardano.Asset

func (s stubAssets) GetAsset(_ context.Context, unit string) (*cardano.Asset, error) {
	if a, ok := s[unit]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("asset %s: %w", unit, cardano.ErrNotFound)
}

type fixedSlot uint64

func (f fixedSlot) CurrentSlot(context.Context) (uint64, error) { return uint64(f), nil }

type testServer struct {
	handler    http.Handler
	minter     *stubMinter
	uploader   *stubUploader
	identities *identity.Store
}

func newTestServer(t *testing.T, withWallet bool) *testServer {
	t.Helper()
	kv, err := kvstore.NewInMemoryBadgerStore("test", infra.JSONcodec{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	ts := &testServer{
		minter:     &stubMinter{},
		uploader:   &stubUploader{},
		identities: identity.NewStore(kv),
	}
	deps := handlerDeps{
		Version:    "test",
		Network:    enum.NetworkPreview,
		Slots:      fixedSlot(4242),
		Minter:     ts.minter,
		Uploader:   ts.uploader,
		Assets:     stubAssets{"unit1": {Asset: "unit1", Quantity: "1"}},
		Identities: ts.identities,
	}
	if withWallet {
		deps.Balances = stubBalances{raw: "821a004c4b40a0"}
	}
	h := NewIdentityHTTPHandler(deps)
	h.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	ts.handler = h.Routes()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "preview", resp.Network)
	assert.False(t, resp.Wallet)
}

func TestHandleBalanceDecode(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/balance/decode", map[string]string{"cbor": "821a004c4b40a0"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse[BalanceResponse](t, rec)
	assert.Equal(t, "5.00", resp.ADA)
	assert.Equal(t, "5000000", resp.Lovelace)

	rec = ts.do(t, http.MethodPost, "/balance/decode", map[string]string{"cbor": "zz"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0.00", decodeResponse[BalanceResponse](t, rec).ADA)

	rec = ts.do(t, http.MethodPost, "/balance/decode", map[string]string{"hex": "00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBalance(t *testing.T) {
	rec := newTestServer(t, false).do(t, http.MethodGet, "/balance", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "wallet_not_connected", decodeResponse[APIErrorResponse](t, rec).Code)

	rec = newTestServer(t, true).do(t, http.MethodGet, "/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse[BalanceResponse](t, rec)
	assert.Equal(t, "5.00", resp.ADA)
	assert.True(t, resp.Refreshed)
}

func TestHandleCurrentSlot(t *testing.T) {
	rec := newTestServer(t, false).do(t, http.MethodGet, "/slot/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(4242), decodeResponse[SlotResponse](t, rec).Slot)
}

func TestHandleMintPrepare(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/mint/prepare", map[string]any{
		"walletAddress": testOwner,
		"image":         "ipfs://" + testCID,
		"privacy":       "private",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, testOwner, ts.minter.address)
	assert.Equal(t, enum.PrivacyPrivate, ts.minter.meta.Privacy)
	assert.Equal(t, "ipfs://"+testCID, ts.minter.meta.Image)
	assert.Equal(t, uint64(8200), decodeResponse[minter.Preparation](t, rec).TTL)

	rec = ts.do(t, http.MethodPost, "/mint/prepare", map[string]any{"image": testCID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/mint/prepare", map[string]any{
		"walletAddress": testOwner, "image": testCID, "privacy": "secret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMint(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPost, "/mint", map[string]any{"image": testCID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeResponse[MintResponse](t, rec)
	assert.Equal(t, "CardanoIdentity1", resp.AssetName)
	require.Len(t, resp.Progress, 1)
	assert.Equal(t, enum.PrivacyPublic, ts.minter.meta.Privacy)

	nft, err := ts.identities.Get(testOwner)
	require.NoError(t, err)
	assert.Equal(t, resp.Unit, nft.Unit)
	assert.Equal(t, enum.NetworkPreview, nft.Network)
}

func TestHandleMint_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not connected", minter.ErrWalletNotConnected, http.StatusServiceUnavailable, "wallet_not_connected"},
		{"rejected", minter.Classify(errors.New("User rejected"), minter.CodeSignFailed), http.StatusConflict, "user_rejected"},
		{"funds", minter.Classify(errors.New("UTxO Balance Insufficient"), minter.CodeSubmissionFailed), http.StatusUnprocessableEntity, "insufficient_funds"},
		{"submission", minter.Classify(errors.New("timeout"), minter.CodeSubmissionFailed), http.StatusBadGateway, "submission_failed"},
		{"invariant", minter.ErrConstructionInvariant, http.StatusInternalServerError, "construction_invariant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, true)
			ts.minter.err = tt.err

			rec := ts.do(t, http.MethodPost, "/mint", map[string]any{"image": testCID})
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeResponse[APIErrorResponse](t, rec).Code)

			_, err := ts.identities.Get(testOwner)
			assert.ErrorIs(t, err, identity.ErrNotFound)
		})
	}
}

func TestHandleMint_ErrorDiagnostics(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantRawCode int
		wantInfo    string
		wantDetail  string
	}{
		{
			name:       "node message",
			err:        minter.Classify(errors.New("node rejected: BadInputsUTxO (ValueNotConservedUTxO)"), minter.CodeSubmissionFailed),
			wantDetail: "node rejected: BadInputsUTxO (ValueNotConservedUTxO)",
		},
		{
			name:        "wallet send error",
			err:         minter.Classify(&wallet.TxSendError{Code: wallet.TxSendFailure, Info: "BadInputsUTxO"}, minter.CodeSubmissionFailed),
			wantRawCode: 2,
			wantInfo:    "BadInputsUTxO",
			wantDetail:  "tx send error 2: BadInputsUTxO",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, true)
			ts.minter.err = tt.err

			rec := ts.do(t, http.MethodPost, "/mint", map[string]any{"image": testCID})
			assert.Equal(t, http.StatusBadGateway, rec.Code)
			resp := decodeResponse[APIErrorResponse](t, rec)
			assert.Equal(t, "submission_failed", resp.Code)
			assert.Equal(t, tt.wantRawCode, resp.RawCode)
			assert.Equal(t, tt.wantInfo, resp.Info)
			assert.Equal(t, tt.wantDetail, resp.Detail)
		})
	}
}

func TestHandleUpload(t *testing.T) {
	ts := newTestServer(t, false)

	upload := func(content []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", "avatar.png")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/ipfs/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := upload([]byte("png bytes"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, testCID, decodeResponse[ipfs.UploadResult](t, rec).CID)
	assert.Equal(t, []byte("png bytes"), ts.uploader.got)

	rec = upload(nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/ipfs/upload", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleNFT(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/nft/unit1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unit1", decodeResponse[cardano.Asset](t, rec).Asset)

	rec = ts.do(t, http.MethodGet, "/nft/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_BearerAuth(t *testing.T) {
	h := NewIdentityHTTPHandler(handlerDeps{
		Network:   enum.NetworkPreview,
		Slots:     fixedSlot(1),
		Minter:    &stubMinter{},
		Balances:  stubBalances{raw: "1a000f4240"},
		AuthToken: "s3cret",
	}).Routes()

	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		wantStatus int
	}{
		{"health is open", http.MethodGet, "/health", "", http.StatusOK},
		{"slot is open", http.MethodGet, "/slot/current", "", http.StatusOK},
		{"balance without token", http.MethodGet, "/balance", "", http.StatusUnauthorized},
		{"balance wrong token", http.MethodGet, "/balance", "Bearer nope", http.StatusUnauthorized},
		{"balance basic scheme", http.MethodGet, "/balance", "Basic s3cret", http.StatusUnauthorized},
		{"balance with token", http.MethodGet, "/balance", "Bearer s3cret", http.StatusOK},
		{"mint without token", http.MethodPost, "/mint", "", http.StatusUnauthorized},
		{"prepare without token", http.MethodPost, "/mint/prepare", "", http.StatusUnauthorized},
		{"upload without token", http.MethodPost, "/ipfs/upload", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRoutes_NoMinter(t *testing.T) {
	h := NewIdentityHTTPHandler(handlerDeps{
		Network:  enum.NetworkPreview,
		Slots:    fixedSlot(1),
		Balances: stubBalances{raw: "1a000f4240"},
	}).Routes()

	for _, path := range []string{"/mint", "/mint/prepare"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{}`)))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/balance", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
