package mux

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardroom-server/internal/jwt"
	"cardroom-server/pkg/events"
	"cardroom-server/pkg/ledger"
	"cardroom-server/pkg/ledger/memory"
	"cardroom-server/pkg/poker/engine"
)

const testTableUUID = "3b2d5f1e-0a9c-4d3e-8f01-23456789abcd"

func loadTestKeys(t *testing.T) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()

	privatePath := filepath.Join(dir, "private.pem")
	require.NoError(t, os.WriteFile(privatePath, pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}), 0o600))

	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	publicPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(publicPath, pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicDER,
	}), 0o600))

	require.NoError(t, jwt.LoadKeys(publicPath, privatePath))
}

func testServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	loadTestKeys(t)

	store := memory.NewStore()
	store.SeedTable(&ledger.TableConfig{
		TableUUID:  testTableUUID,
		SmallBlind: 1,
		BigBlind:   2,
		SeatCount:  10,
		MinPlayers: 2,
	}, []*ledger.Account{
		{TableUUID: testTableUUID, AccountID: "player-1", Seat: 1, Balance: 100},
		{TableUUID: testTableUUID, AccountID: "player-2", Seat: 2, Balance: 100},
	})

	hub := events.NewHub(logrus.StandardLogger())
	eng := engine.New(engine.Config{
		Store:    store,
		Recorder: hub,
		Seed:     func() int64 { return 42 },
	})

	ts := httptest.NewServer(NewMux("v-test", eng, hub))
	t.Cleanup(ts.Close)

	return ts, store
}

func signedJWT(t *testing.T, accountID string) string {
	t.Helper()

	signed, err := jwt.Sign(accountID)
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, method, url string, payload interface{}, token string) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func TestMux_getHealth(t *testing.T) {
	a := assert.New(t)
	ts, _ := testServer(t)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/health", nil, "")
	a.Equal(http.StatusOK, resp.StatusCode)
	a.True(strings.Contains(string(body), "v-test"))
}

func TestMux_requiresAuth(t *testing.T) {
	a := assert.New(t)
	ts, _ := testServer(t)

	resp, _ := doRequest(t, http.MethodGet, ts.URL+"/table/"+testTableUUID+"/can-start", nil, "")
	a.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/table/"+testTableUUID+"/can-start", nil, "bogus-token")
	a.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestMux_handLifecycle(t *testing.T) {
	a := assert.New(t)
	ts, _ := testServer(t)

	token1 := signedJWT(t, "player-1")
	token2 := signedJWT(t, "player-2")

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/table/"+testTableUUID+"/can-start", nil, token1)
	a.Equal(http.StatusOK, resp.StatusCode)
	a.JSONEq(`{"canStart":true}`, string(body))

	resp, body = doRequest(t, http.MethodPost, ts.URL+"/table/"+testTableUUID+"/hand", struct{}{}, token1)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var hand ledger.Hand
	require.NoError(t, json.Unmarshal(body, &hand))
	a.NotEmpty(hand.UUID)

	// starting a second hand conflicts
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/table/"+testTableUUID+"/hand", struct{}{}, token1)
	a.Equal(http.StatusConflict, resp.StatusCode)

	// out of turn
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/hand/"+hand.UUID+"/action",
		actionRequest{Action: "call"}, token2)
	a.Equal(http.StatusConflict, resp.StatusCode)

	// a stranger has no seat
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/hand/"+hand.UUID+"/action",
		actionRequest{Action: "call"}, signedJWT(t, "stranger"))
	a.Equal(http.StatusForbidden, resp.StatusCode)

	// illegal amount
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/hand/"+hand.UUID+"/action",
		actionRequest{Action: "check"}, token1)
	a.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/hand/"+hand.UUID+"/action",
		actionRequest{Action: "call"}, token1)
	a.Equal(http.StatusOK, resp.StatusCode)

	resp, body = doRequest(t, http.MethodPost, ts.URL+"/hand/"+hand.UUID+"/action",
		actionRequest{Action: "check"}, token2)
	a.Equal(http.StatusOK, resp.StatusCode)

	var outcome engine.Outcome
	require.NoError(t, json.Unmarshal(body, &outcome))
	a.True(outcome.RoundAdvanced)

	// a seated account sees its own hole cards and nothing of the deck
	resp, body = doRequest(t, http.MethodGet, ts.URL+"/hand/"+hand.UUID, nil, token1)
	a.Equal(http.StatusOK, resp.StatusCode)
	a.False(strings.Contains(string(body), "seed"))

	var detail struct {
		HoleCards []json.RawMessage `json:"holeCards"`
	}
	require.NoError(t, json.Unmarshal(body, &detail))
	a.Len(detail.HoleCards, 2)

	// an account with no seat sees no cards
	resp, body = doRequest(t, http.MethodGet, ts.URL+"/hand/"+hand.UUID, nil, signedJWT(t, "stranger"))
	a.Equal(http.StatusOK, resp.StatusCode)
	a.False(strings.Contains(string(body), "holeCards"))

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/hand/3b2d5f1e-0a9c-4d3e-8f01-000000000000", nil, token1)
	a.Equal(http.StatusNotFound, resp.StatusCode)
}

func TestMux_badActionPayload(t *testing.T) {
	a := assert.New(t)
	ts, _ := testServer(t)

	token1 := signedJWT(t, "player-1")

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/table/"+testTableUUID+"/hand", struct{}{}, token1)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var hand ledger.Hand
	require.NoError(t, json.Unmarshal(body, &hand))

	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/hand/"+hand.UUID+"/action",
		actionRequest{Action: "jump"}, token1)
	a.Equal(http.StatusBadRequest, resp.StatusCode)

	// missing content type
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/hand/"+hand.UUID+"/action", strings.NewReader("{}"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token1)

	rawResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer rawResp.Body.Close()
	a.Equal(http.StatusUnsupportedMediaType, rawResp.StatusCode)
}
