package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GoPolymarket/sxgate/internal/config"
	"github.com/GoPolymarket/sxgate/internal/middleware"
	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/service"
	"github.com/GoPolymarket/sxgate/internal/signer"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMarket = "0x0d64c52e8781acdada86920a2d1e5acd6f29dcfe285cf9cae367b671dff05f7d"
	botAPIKey  = "gw-bot-0123456789"
)

type testServer struct {
	router http.Handler
	key    *signer.Key
	audit  *service.AuditService
}

func newTestServer(t *testing.T, readOnly bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, err := signer.GenerateKey()
	require.NoError(t, err)

	cfg := &config.Config{
		Server: config.ServerConfig{ReadOnly: readOnly},
		Auth:   config.AuthConfig{RequireAPIKey: true, AdminKey: "root"},
		Protocol: config.ProtocolConfig{
			ChainID:           4162,
			FillHasher:        "0x845a2Da2D70fEDe8474b1C8518200798c60aC364",
			Executor:          "0x52adf738AAD93c31f798a30b2C74D658e1E9a562",
			BaseToken:         "0x6629Ce1Cf35Cc1329ebB4F63202F3f197b3F050B",
			BaseTokenDecimals: 6,
			LadderStepBps:     25,
			StrictLadder:      true,
			LegacyExpiry:      2209006800,
		},
	}
	am := service.NewAccountManager()
	am.Register(&model.Account{ID: "bot", Name: "Bot", ApiKey: botAPIKey}, key)

	orders, fills, cancels, err := service.BuildersFromConfig(cfg.Protocol, nil)
	require.NoError(t, err)
	gw := service.NewGatewayService(service.GatewayOptions{
		Accounts:          am,
		Risk:              service.NewRiskEngine(service.NewRiskUsageStore()),
		Orders:            orders,
		Fills:             fills,
		Cancels:           cancels,
		BaseTokenDecimals: 6,
		LadderStepBps:     25,
	})
	audit, err := service.NewAuditService("", nil)
	require.NoError(t, err)
	t.Cleanup(audit.Close)

	r := NewRouter(RouterOptions{Config: cfg, Accounts: am, Gateway: gw, Audit: audit})
	return &testServer{router: r, key: key, audit: audit}
}

func (s *testServer) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderGatewayKey, botAPIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestPlaceOrdersEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodPost, "/v1/orders", model.OrderRequest{
		Orders: []model.OrderSpec{{MarketHash: testMarket, Stake: "10", ImpliedOdds: "0.50333"}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.OrdersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "50250000000000000000", resp.Orders[0].Payload.PercentageOdds)
	assert.Equal(t, s.key.Address().Hex(), resp.Orders[0].Payload.Maker)
	assert.False(t, resp.Submitted)
}

func TestFillEndpointRoundTrip(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodPost, "/v1/orders", model.OrderRequest{
		Orders: []model.OrderSpec{{MarketHash: testMarket, Stake: "10", PercentageOdds: "50000000000000000000"}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var placed model.OrdersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &placed))

	w = s.do(http.MethodPost, "/v1/fills", model.FillRequest{
		Orders:      []model.OrderJSON{placed.Orders[0].Payload.OrderJSON},
		TakerStakes: []string{"4"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var fill model.FillResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fill))
	assert.Equal(t, []string{placed.Orders[0].OrderHash}, fill.Payload.OrderHashes)
	assert.Equal(t, []string{"4000000"}, fill.Payload.TakerAmounts)
	assert.Equal(t, model.PlaceholderText, fill.Payload.Action)
}

func TestCancelEndpointErrors(t *testing.T) {
	s := newTestServer(t, false)

	w := s.do(http.MethodPost, "/v1/cancels", map[string]interface{}{"order_hashes": []string{}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/v1/cancels", model.CancelRequest{OrderHashes: []string{"0x12"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ENCODING_ERROR", body["code"])
	assert.Equal(t, "order_hashes[0]", body["field"])

	w = s.do(http.MethodPost, "/v1/cancels", model.CancelRequest{OrderHashes: []string{testMarket}, Submit: true}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOddsEndpoint(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodGet, "/v1/odds?decimal_odds=2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"percentage_odds":"50000000000000000000"`)

	w = s.do(http.MethodGet, "/v1/odds", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPanicBlocksSigning(t *testing.T) {
	s := newTestServer(t, false)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/v1/panic", nil, nil).Code)

	w := s.do(http.MethodPost, "/v1/cancels", model.CancelRequest{OrderHashes: []string{testMarket}}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/v1/panic", nil, nil).Code)
	w = s.do(http.MethodPost, "/v1/cancels", model.CancelRequest{OrderHashes: []string{testMarket}}, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAdminAccountsMasked(t *testing.T) {
	s := newTestServer(t, false)
	w := s.do(http.MethodGet, "/admin/accounts", nil, map[string]string{middleware.HeaderAdminKey: "root"})
	require.Equal(t, http.StatusOK, w.Code)

	var accounts []model.Account
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "gw-b****6789", accounts[0].ApiKey)
	assert.Equal(t, s.key.Address().Hex(), accounts[0].Address)

	w = s.do(http.MethodGet, "/admin/accounts/missing", nil, map[string]string{middleware.HeaderAdminKey: "root"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/admin/accounts", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuditEndpointListsOwnRecords(t *testing.T) {
	s := newTestServer(t, false)
	s.do(http.MethodGet, "/v1/odds?implied_odds=0.5", nil, nil)

	var out struct {
		Records []model.AuditLog `json:"records"`
		Count   int              `json:"count"`
	}
	require.Eventually(t, func() bool {
		w := s.do(http.MethodGet, "/v1/audit?limit=10", nil, nil)
		if w.Code != http.StatusOK {
			return false
		}
		out.Records = nil
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		return len(out.Records) > 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "bot", out.Records[0].AccountID)
	assert.Equal(t, len(out.Records), out.Count)

	w := s.do(http.MethodGet, "/v1/audit?kind=fill", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = s.do(http.MethodGet, "/v1/audit?from=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodGet, "/v1/audit?kind=transfer", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReadOnlyRejectsSigning(t *testing.T) {
	s := newTestServer(t, true)
	w := s.do(http.MethodPost, "/v1/orders", model.OrderRequest{
		Orders: []model.OrderSpec{{MarketHash: testMarket, Stake: "1", ImpliedOdds: "0.5"}},
	}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/v1/odds?implied_odds=0.5", nil, nil).Code)
}
