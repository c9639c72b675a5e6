package httpservice

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arkade-os/relayd/internal/core/application"
	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/infrastructure/authorizer/roster"
	"github.com/arkade-os/relayd/internal/infrastructure/clock"
	"github.com/arkade-os/relayd/internal/infrastructure/db"
	inmemoryledger "github.com/arkade-os/relayd/internal/infrastructure/ledger/inmemory"
	inmemorylivestore "github.com/arkade-os/relayd/internal/infrastructure/live-store/inmemory"
	"github.com/arkade-os/relayd/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	usdc    = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	dai     = "0x6b175474e89094c44da98b954eedeac495271d0f"
	alice   = "alice"
	bob     = "bob"
	manager = "manager"
	pauser  = "pauser"
	polygon = uint64(137)
)

var relayers = []string{"r1", "r2", "r3"}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repoManager, err := db.NewService(db.ServiceConfig{
		EventStoreType:   "badger",
		DataStoreType:    "badger",
		EventStoreConfig: []interface{}{"", nil},
		DataStoreConfig:  []interface{}{"", nil},
	})
	require.NoError(t, err)

	appSvc, err := application.NewService(
		repoManager,
		inmemoryledger.NewLedger(inmemoryledger.Balances{usdc: {alice: 1_000_000}}),
		roster.NewAuthorizer(relayers, []string{manager}, []string{pauser}),
		clock.NewSystemClock(),
		inmemorylivestore.NewLiveStore(),
		nil,
		nil,
		domain.Settings{
			TransactionTimeout:     domain.DefaultTransactionTimeout,
			FeeBasisPoints:         domain.DefaultFeeBasisPoints,
			HourlyTransactionLimit: domain.DefaultHourlyTransactionLimit,
			RequiredConfirmations:  domain.DefaultRequiredConfirmations,
			ChallengeThreshold:     domain.DefaultChallengeThreshold,
			FeeCollector:           "collector",
		},
		"test",
	)
	require.NoError(t, err)
	require.NoError(t, appSvc.Start())

	adminSvc, err := application.NewAdminService(appSvc)
	require.NoError(t, err)

	router := newRouter()
	registerPublicRoutes(router, newHandler(appSvc, 50*time.Millisecond))
	registerAdminRoutes(router, newAdminHandler(adminSvc))

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		appSvc.Stop()
	})

	do(t, server, http.MethodPost, "/v1/admin/assets", manager,
		listAssetRequest{"USD Coin", "USDC", usdc}, http.StatusOK, nil)
	do(t, server, http.MethodPost, "/v1/admin/chains", manager,
		addChainRequest{"polygon", polygon}, http.StatusOK, nil)

	return server
}

// do sends the request and decodes the response body into out, if not nil.
func do(
	t *testing.T, server *httptest.Server, method, path, caller string,
	body any, expectedStatus int, out any,
) {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &reqBody)
	require.NoError(t, err)
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, expectedStatus, resp.StatusCode, "%s %s", method, path)
	require.NotEmpty(t, resp.Header.Get(requestIdHeader))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func TestOutboundFlow(t *testing.T) {
	server := newTestServer(t)

	var out outboundResponse
	do(t, server, http.MethodPost, "/v1/outbound", alice, outboundRequest{
		Asset: usdc, Recipient: bob, Amount: 2000, DestChainId: polygon,
	}, http.StatusOK, &out)
	require.NotZero(t, out.TxId)

	txPath := fmt.Sprintf("/v1/tx/%d", out.TxId)

	var tx transaction
	do(t, server, http.MethodGet, txPath, "", nil, http.StatusOK, &tx)
	require.Equal(t, "outbound", tx.Direction)
	require.Equal(t, "pending", tx.Status)
	require.Equal(t, uint64(2), tx.Fee)
	require.Equal(t, uint64(1998), tx.Amount)
	require.Empty(t, tx.Attestations)

	for _, relayer := range relayers {
		do(t, server, http.MethodPost, txPath+"/confirm", relayer, nil, http.StatusOK, &tx)
	}
	require.Equal(t, "completed", tx.Status)
	require.Len(t, tx.Attestations, 3)

	var errResp errorResponse
	do(t, server, http.MethodPost, txPath+"/confirm", "r1", nil, http.StatusBadRequest, &errResp)
	require.Equal(t, errors.INVALID_TRANSACTION_STATUS.Name, errResp.Name)

	var txs transactionsResponse
	do(t, server, http.MethodGet, "/v1/txs?status=completed&direction=outbound", "",
		nil, http.StatusOK, &txs)
	require.Len(t, txs.Transactions, 1)

	do(t, server, http.MethodGet, "/v1/txs?status=pending", "", nil, http.StatusOK, &txs)
	require.Empty(t, txs.Transactions)

	var fees feesResponse
	do(t, server, http.MethodGet, "/v1/admin/fees/"+usdc, "", nil, http.StatusOK, &fees)
	require.Equal(t, uint64(2), fees.Amount)
}

func TestInboundFlow(t *testing.T) {
	server := newTestServer(t)

	report := inboundRequest{
		SourceChainId: polygon,
		SourceTxId:    "0xsrc",
		Sender:        "carol",
		Recipient:     bob,
		Asset:         usdc,
		Amount:        5000,
	}

	var res inboundResponse
	do(t, server, http.MethodPost, "/v1/inbound", "r1", report, http.StatusOK, &res)
	require.True(t, res.Created)
	require.False(t, res.Finalized)
	require.Equal(t, 1, res.ConfirmCount)

	do(t, server, http.MethodPost, "/v1/inbound", "r2", report, http.StatusOK, &res)
	require.False(t, res.Created)
	require.Equal(t, 2, res.ConfirmCount)

	do(t, server, http.MethodPost, "/v1/inbound", "r3", report, http.StatusOK, &res)
	require.True(t, res.Finalized)

	var tx transaction
	do(t, server, http.MethodGet, fmt.Sprintf("/v1/tx/%d", res.TxId), "", nil, http.StatusOK, &tx)
	require.Equal(t, "inbound", tx.Direction)
	require.Equal(t, "completed", tx.Status)
	require.Equal(t, "0xsrc", tx.SourceTxId)
}

func TestErrorResponses(t *testing.T) {
	server := newTestServer(t)

	fixtures := []struct {
		name           string
		method         string
		path           string
		caller         string
		body           any
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "unknown transaction",
			method:         http.MethodGet,
			path:           "/v1/tx/42",
			expectedStatus: http.StatusNotFound,
			expectedCode:   errors.TRANSACTION_NOT_FOUND.Name,
		},
		{
			name:           "malformed transaction id",
			method:         http.MethodGet,
			path:           "/v1/tx/abc",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   errors.INVALID_REQUEST.Name,
		},
		{
			name:           "unlisted asset",
			method:         http.MethodGet,
			path:           "/v1/assets/" + dai,
			expectedStatus: http.StatusNotFound,
			expectedCode:   errors.NOT_LISTED.Name,
		},
		{
			name:           "invalid status filter",
			method:         http.MethodGet,
			path:           "/v1/txs?status=lost",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   errors.INVALID_REQUEST.Name,
		},
		{
			name:           "zero amount",
			method:         http.MethodPost,
			path:           "/v1/outbound",
			caller:         alice,
			body:           outboundRequest{Asset: usdc, Recipient: bob, DestChainId: polygon},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   errors.ZERO_AMOUNT.Name,
		},
		{
			name:           "confirm by non relayer",
			method:         http.MethodPost,
			path:           "/v1/tx/1/confirm",
			caller:         alice,
			expectedStatus: http.StatusForbidden,
			expectedCode:   errors.UNAUTHORIZED.Name,
		},
		{
			name:           "list asset by non manager",
			method:         http.MethodPost,
			path:           "/v1/admin/assets",
			caller:         alice,
			body:           listAssetRequest{"Dai", "DAI", dai},
			expectedStatus: http.StatusForbidden,
			expectedCode:   errors.UNAUTHORIZED.Name,
		},
		{
			name:           "asset already listed",
			method:         http.MethodPost,
			path:           "/v1/admin/assets",
			caller:         manager,
			body:           listAssetRequest{"USD Coin", "USDC", usdc},
			expectedStatus: http.StatusConflict,
			expectedCode:   errors.ALREADY_LISTED.Name,
		},
		{
			name:           "unknown parameter",
			method:         http.MethodPut,
			path:           "/v1/admin/settings/maxAmount",
			caller:         manager,
			body:           updateParameterRequest{1},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   errors.INVALID_PARAMETER.Name,
		},
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			var errResp errorResponse
			do(t, server, f.method, f.path, f.caller, f.body, f.expectedStatus, &errResp)
			require.Equal(t, f.expectedCode, errResp.Name)
			require.NotEmpty(t, errResp.Message)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req, err := http.NewRequest(
			http.MethodPost, server.URL+"/v1/outbound", strings.NewReader("{"),
		)
		require.NoError(t, err)
		resp, err := server.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAdminFlow(t *testing.T) {
	server := newTestServer(t)

	do(t, server, http.MethodPut, "/v1/admin/settings/feeBasisPoints", manager,
		updateParameterRequest{50}, http.StatusOK, nil)

	var settings settingsResponse
	do(t, server, http.MethodGet, "/v1/settings", "", nil, http.StatusOK, &settings)
	require.Equal(t, uint64(50), settings.FeeBasisPoints)

	do(t, server, http.MethodPost, "/v1/admin/pause", pauser, nil, http.StatusOK, nil)

	var errResp errorResponse
	do(t, server, http.MethodPost, "/v1/outbound", alice, outboundRequest{
		Asset: usdc, Recipient: bob, Amount: 2000, DestChainId: polygon,
	}, http.StatusServiceUnavailable, &errResp)
	require.Equal(t, errors.SERVICE_PAUSED.Name, errResp.Name)

	do(t, server, http.MethodPost, "/v1/admin/unpause", pauser, nil, http.StatusOK, nil)

	var out outboundResponse
	do(t, server, http.MethodPost, "/v1/outbound", alice, outboundRequest{
		Asset: usdc, Recipient: bob, Amount: 2000, DestChainId: polygon,
	}, http.StatusOK, &out)

	var tx transaction
	do(t, server, http.MethodPost, fmt.Sprintf("/v1/admin/tx/%d/abort", out.TxId), manager,
		abortRequest{"suspicious"}, http.StatusOK, &tx)
	require.Equal(t, "failed", tx.Status)
	require.Equal(t, "suspicious", tx.FailReason)

	var fees feesResponse
	do(t, server, http.MethodPost, "/v1/admin/fees/"+usdc+"/collect", manager,
		nil, http.StatusOK, &fees)
	require.Equal(t, uint64(10), fees.Amount)

	do(t, server, http.MethodDelete, "/v1/admin/chains/"+fmt.Sprint(polygon), manager,
		nil, http.StatusOK, nil)

	var chains chainsResponse
	do(t, server, http.MethodGet, "/v1/chains", "", nil, http.StatusOK, &chains)
	require.Empty(t, chains.Chains)

	var info infoResponse
	do(t, server, http.MethodGet, "/v1/info", "", nil, http.StatusOK, &info)
	require.Equal(t, "test", info.Version)
	require.False(t, info.Paused)
	require.False(t, info.AutoExpire)
}

func TestEventStream(t *testing.T) {
	server := newTestServer(t)

	resp, err := server.Client().Get(server.URL + "/v1/events?topics=registry")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
		close(events)
	}()

	// heartbeats are sent while idle
	require.Equal(t, "Heartbeat", <-events)

	// transaction events are filtered out
	do(t, server, http.MethodPost, "/v1/outbound", alice, outboundRequest{
		Asset: usdc, Recipient: bob, Amount: 2000, DestChainId: polygon,
	}, http.StatusOK, nil)
	do(t, server, http.MethodPost, "/v1/admin/assets", manager,
		listAssetRequest{"Dai", "DAI", dai}, http.StatusOK, nil)

	timeout := time.After(5 * time.Second)
	for {
		select {
		case name := <-events:
			if name == "Heartbeat" {
				continue
			}
			require.Equal(t, domain.EventTypeAssetListed.String(), name)
			return
		case <-timeout:
			t.Fatal("timed out waiting for AssetListed event")
		}
	}
}

func TestPanicRecovery(t *testing.T) {
	router := newRouter()
	router.HandleFunc("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestIdHeader, "req-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "req-1", rec.Header().Get(requestIdHeader))

	var errResp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	require.Equal(t, errors.INTERNAL_ERROR.Name, errResp.Name)
}
