package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/classbank/internal/auth"
	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/market"
	"github.com/jason-s-yu/classbank/internal/memstore"
	"github.com/jason-s-yu/classbank/internal/models"
	"github.com/jason-s-yu/classbank/internal/stats"
)

func TestMain(m *testing.M) {
	auth.Init()
	os.Exit(m.Run())
}

type env struct {
	api *API
	ms  *memstore.MemStore
	srv *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	ms := memstore.New()
	st := stats.NewMemory()
	eng := ledger.NewEngine(ms, logger)
	eng.AddHook(ledger.TransactionLogHook(logger, ms))
	eng.AddHook(ledger.StatsHook(logger, st, stats.NewIgnoreSet()))

	api := &API{
		Logger: logger,
		Engine: eng,
		Market: market.NewService(eng, ms, st, logger),
		Stats:  st,
		Ledger: ms,
		Dir:    ms,
		Ignore: stats.NewIgnoreSet(),
	}
	srv := httptest.NewServer(api.Routes())
	t.Cleanup(srv.Close)
	return &env{api: api, ms: ms, srv: srv}
}

// post sends a JSON body, attaching the session cookie when given.
func (e *env) post(t *testing.T, path, cookie string, body interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(buf))
	require.NoError(t, err)
	if cookie != "" {
		req.Header.Set("Cookie", "auth_token="+cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// signup creates an account over HTTP and returns its id and session token.
func (e *env) signup(t *testing.T, email, username string) (uuid.UUID, string) {
	t.Helper()
	resp := e.post(t, "/user/create", "", map[string]string{
		"email":    email,
		"password": "hunter22",
		"username": username,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == "auth_token" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	var acct models.Account
	decode(t, resp, &acct)
	return acct.ID, token
}

// adminToken promotes the account and mints a matching session token.
func (e *env) adminToken(t *testing.T, id uuid.UUID) string {
	t.Helper()
	token, err := auth.CreateJWT(id.String(), true)
	require.NoError(t, err)
	return token
}

func TestSignupBaseline(t *testing.T) {
	e := newEnv(t)
	id, _ := e.signup(t, "alice@example.com", "alice")

	a, err := e.ms.GetAccount(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(20), a.Credits)
	assert.Equal(t, int64(20), a.EarnedLifetime)
	assert.Equal(t, "Classmate", a.Rank)
	assert.Empty(t, a.Password, "response must not echo the hash")

	// The new contributor is on the curve immediately.
	var statsResp struct {
		Count int64   `json:"count"`
		Mean  float64 `json:"mean"`
	}
	resp, err := http.Get(e.srv.URL + "/stats")
	require.NoError(t, err)
	decode(t, resp, &statsResp)
	assert.Equal(t, int64(1), statsResp.Count)
	assert.InDelta(t, 15.0, statsResp.Mean, 1e-9)
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "alice@example.com", "alice")

	resp := e.post(t, "/user/login", "", map[string]string{
		"email": "alice@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.post(t, "/user/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestTransferFlow(t *testing.T) {
	e := newEnv(t)
	alice, aliceTok := e.signup(t, "alice@example.com", "alice")
	bob, _ := e.signup(t, "bob@example.com", "bob")

	resp := e.post(t, "/transfer", aliceTok, map[string]string{
		"to": bob.String(), "reason": "coffee",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	ctx := context.Background()
	a, _ := e.ms.GetAccount(ctx, alice)
	b, _ := e.ms.GetAccount(ctx, bob)
	assert.Equal(t, int64(18), a.Credits)
	assert.Equal(t, int64(22), b.Credits)

	// No session, no transfer.
	resp = e.post(t, "/transfer", "", map[string]string{"to": bob.String()})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Self transfers map to a client error.
	resp = e.post(t, "/transfer", aliceTok, map[string]string{"to": alice.String()})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminEndpoints(t *testing.T) {
	e := newEnv(t)
	alice, aliceTok := e.signup(t, "alice@example.com", "alice")
	teacher, _ := e.signup(t, "teacher@example.com", "teacher")
	teacherTok := e.adminToken(t, teacher)
	e.ms.SeedBank(100)

	// Students cannot reach admin endpoints.
	resp := e.post(t, "/admin/adjust", aliceTok, map[string]interface{}{
		"target": alice.String(), "amount": 50,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = e.post(t, "/admin/adjust", teacherTok, map[string]interface{}{
		"target": alice.String(), "amount": 50, "source": "classBank", "reason": "project",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	a, _ := e.ms.GetAccount(context.Background(), alice)
	assert.Equal(t, int64(70), a.Credits)
	assert.Equal(t, "Contributor", a.Rank)

	// Overdraft of the bank surfaces as payment required.
	resp = e.post(t, "/admin/adjust", teacherTok, map[string]interface{}{
		"target": alice.String(), "amount": 1000, "source": "classBank",
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	resp.Body.Close()

	var mintResp struct {
		Affected int `json:"affected_count"`
	}
	resp = e.post(t, "/admin/mint", teacherTok, map[string]interface{}{
		"amount": 10, "reason": "semester end",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &mintResp)
	assert.Equal(t, 2, mintResp.Affected)
}

func TestMarketAndAuctionFlow(t *testing.T) {
	e := newEnv(t)
	alice, aliceTok := e.signup(t, "alice@example.com", "alice")
	bob, bobTok := e.signup(t, "bob@example.com", "bob")
	teacher, _ := e.signup(t, "teacher@example.com", "teacher")
	teacherTok := e.adminToken(t, teacher)

	var item models.Item
	resp := e.post(t, "/market/item/create", teacherTok, map[string]interface{}{
		"name": "mug", "cost": 5, "kind": "utility",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &item)

	resp = e.post(t, "/market/purchase", aliceTok, map[string]string{
		"item_id": item.ID.String(),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	a, _ := e.ms.GetAccount(context.Background(), alice)
	assert.Equal(t, int64(15), a.Credits)

	var auction models.Auction
	resp = e.post(t, "/auction/create", aliceTok, map[string]interface{}{
		"item_name": "front row seat",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &auction)

	resp = e.post(t, "/auction/bid", bobTok, map[string]interface{}{
		"auction_id": auction.ID.String(), "amount": 7,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Settlement is for the teacher, not the seller.
	resp = e.post(t, "/auction/settle", aliceTok, map[string]interface{}{
		"auction_id": auction.ID.String(),
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = e.post(t, "/auction/settle", teacherTok, map[string]interface{}{
		"auction_id": auction.ID.String(),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	ctx := context.Background()
	a, _ = e.ms.GetAccount(ctx, alice)
	b, _ := e.ms.GetAccount(ctx, bob)
	assert.Equal(t, int64(22), a.Credits)
	assert.Equal(t, int64(13), b.Credits)

	// A second settle conflicts.
	resp = e.post(t, "/auction/settle", teacherTok, map[string]interface{}{
		"auction_id": auction.ID.String(),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestCourseCreditsEndpoint(t *testing.T) {
	e := newEnv(t)
	alice, _ := e.signup(t, "alice@example.com", "alice")

	resp, err := http.Get(e.srv.URL + "/credits?id=" + alice.String())
	require.NoError(t, err)
	var body struct {
		CourseCredits float64 `json:"course_credits"`
		Rank          string  `json:"rank"`
	}
	decode(t, resp, &body)
	assert.InDelta(t, 4.25, body.CourseCredits, 1e-9)
	assert.Equal(t, "Classmate", body.Rank)

	resp, err = http.Get(e.srv.URL + "/credits?id=" + uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
