package cofhe

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsafe/confidential-wallet/pkg/config"
)

type fakeNetwork struct {
	t          *testing.T
	ready      bool
	plaintexts map[string]*big.Int
	requestIDs []string
}

func (f *fakeNetwork) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requestIDs = append(f.requestIDs, r.Header.Get("X-Request-ID"))

	switch r.URL.Path {
	case pathNetwork:
		_ = json.NewEncoder(w).Encode(networkResponse{Environment: r.URL.Query().Get("environment"), Ready: f.ready})

	case pathSealOutput:
		var req sealOutputRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		plain, ok := f.plaintexts[req.CtHash]
		if !ok {
			_ = json.NewEncoder(w).Encode(sealOutputResponse{Error: "unknown ciphertext"})
			return
		}
		keyBytes, err := hexutil.Decode(req.Permit.SealingKey)
		require.NoError(f.t, err)
		var key [32]byte
		copy(key[:], keyBytes)

		_ = json.NewEncoder(w).Encode(sealOutputResponse{Sealed: sealTo(f.t, key, plain.Bytes())})

	case pathEncrypt:
		var req encryptRequest
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		resp := encryptResponse{}
		for i, item := range req.Items {
			resp.Inputs = append(resp.Inputs, EncryptedInput{
				CtHash:       big.NewInt(int64(1000 + i)),
				SecurityZone: req.SecurityZone,
				Utype:        item.UType,
				Signature:    []byte{0x01},
			})
		}
		_ = json.NewEncoder(w).Encode(resp)

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, network *fakeNetwork) *Client {
	t.Helper()
	srv := httptest.NewServer(network)
	t.Cleanup(srv.Close)

	c, err := NewClient(&config.CoFHEConfig{
		URL:            srv.URL,
		PermitTTL:      time.Hour,
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return c
}

func TestClient_RequiresInitialization(t *testing.T) {
	c := newTestClient(t, &fakeNetwork{t: t, ready: true})

	_, err := c.CreatePermit(context.Background(), PermitOptions{Issuer: testIssuer})
	require.ErrorIs(t, err, ErrNotInitialized)

	_, err = c.Encrypt(context.Background(), []Encryptable{{Value: big.NewInt(1), UType: Uint64}})
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestClient_InitializeNetworkNotReady(t *testing.T) {
	c := newTestClient(t, &fakeNetwork{t: t, ready: false})

	err := c.InitializeWithSigner(context.Background(), newKeySigner(t), EnvTestnet)
	require.ErrorIs(t, err, ErrNetworkNotReady)
}

func TestClient_PermitAndUnseal(t *testing.T) {
	network := &fakeNetwork{t: t, ready: true, plaintexts: map[string]*big.Int{
		"42": big.NewInt(1_500_000),
	}}
	c := newTestClient(t, network)
	ctx := context.Background()

	require.NoError(t, c.InitializeWithSigner(ctx, newKeySigner(t), EnvTestnet))

	permit, err := c.CreatePermit(ctx, PermitOptions{Issuer: testIssuer})
	require.NoError(t, err)

	got, err := c.Unseal(ctx, big.NewInt(42), Uint64, testIssuer, permit.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(1_500_000), got.Int64())

	for _, id := range network.requestIDs {
		assert.NotEmpty(t, id)
	}
}

func TestClient_UnsealFailures(t *testing.T) {
	network := &fakeNetwork{t: t, ready: true, plaintexts: map[string]*big.Int{
		"7": new(big.Int).Lsh(big.NewInt(1), 70),
	}}
	c := newTestClient(t, network)
	ctx := context.Background()
	require.NoError(t, c.InitializeWithSigner(ctx, newKeySigner(t), EnvTestnet))

	permit, err := c.CreatePermit(ctx, PermitOptions{Issuer: testIssuer})
	require.NoError(t, err)

	_, err = c.Unseal(ctx, big.NewInt(42), Uint64, testIssuer, "0xdead")
	require.ErrorIs(t, err, ErrUnknownPermit)

	_, err = c.Unseal(ctx, big.NewInt(42), Uint64, testIssuer, permit.Hash)
	require.ErrorContains(t, err, "unknown ciphertext")

	_, err = c.Unseal(ctx, big.NewInt(7), Uint64, testIssuer, permit.Hash)
	require.ErrorContains(t, err, "does not fit")
}

func TestClient_SignerChangeDropsPermits(t *testing.T) {
	c := newTestClient(t, &fakeNetwork{t: t, ready: true})
	ctx := context.Background()

	require.NoError(t, c.InitializeWithSigner(ctx, newKeySigner(t), EnvTestnet))
	permit, err := c.CreatePermit(ctx, PermitOptions{Issuer: testIssuer})
	require.NoError(t, err)

	require.NoError(t, c.InitializeWithSigner(ctx, newKeySigner(t), EnvTestnet))
	_, err = c.Unseal(ctx, big.NewInt(1), Uint64, testIssuer, permit.Hash)
	require.ErrorIs(t, err, ErrUnknownPermit)
}

func TestClient_Encrypt(t *testing.T) {
	c := newTestClient(t, &fakeNetwork{t: t, ready: true})
	ctx := context.Background()
	require.NoError(t, c.InitializeWithSigner(ctx, newKeySigner(t), EnvTestnet))

	out, err := c.Encrypt(ctx, []Encryptable{
		{Value: big.NewInt(5), UType: Uint64},
		{Value: big.NewInt(6), UType: Uint64},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1000), out[0].CtHash.Int64())
	assert.Equal(t, uint8(Uint64), out[1].Utype)

	_, err = c.Encrypt(ctx, []Encryptable{{Value: big.NewInt(300), UType: Uint8}})
	require.ErrorContains(t, err, "does not fit")
}
