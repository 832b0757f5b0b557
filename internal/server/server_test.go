package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"tokenjar/internal/database"
)

type testClient struct {
	t       *testing.T
	router  http.Handler
	cookies []*http.Cookie
}

func setupServerTest(t *testing.T) *testClient {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(db, Config{}, slog.Default())
	return &testClient{t: t, router: srv.Router()}
}

func (c *testClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return rec
}

func (c *testClient) register(email string) {
	c.t.Helper()
	rec := c.do("POST", "/register", map[string]string{"email": email, "password": "longenough"})
	if rec.Code != http.StatusCreated {
		c.t.Fatalf("register %s: status = %d, body = %s", email, rec.Code, rec.Body.String())
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	c := setupServerTest(t)
	rec := c.do("GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	c := setupServerTest(t)
	rec := c.do("GET", "/api/chores", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRegisterValidation(t *testing.T) {
	c := setupServerTest(t)

	rec := c.do("POST", "/register", map[string]string{"email": "not-an-email", "password": "longenough"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad email: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = c.do("POST", "/register", map[string]string{"email": "a@example.com", "password": "short"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	c := setupServerTest(t)
	c.register("a@example.com")

	rec := c.do("POST", "/register", map[string]string{"email": "a@example.com", "password": "longenough"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	c := setupServerTest(t)
	c.register("a@example.com")

	rec := c.do("POST", "/login", map[string]string{"email": "a@example.com", "password": "wrongwrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestChoreLifecycleOverHTTP(t *testing.T) {
	c := setupServerTest(t)
	c.register("a@example.com")

	rec := c.do("POST", "/api/chores", map[string]any{"name": "Dishes", "tokens": 5})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create chore: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	chore := decode[struct {
		ID int64 `json:"id"`
	}](t, rec)

	rec = c.do("POST", fmt.Sprintf("/api/chores/%d/complete", chore.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	res := decode[struct {
		Credited bool `json:"credited"`
		Balance  int  `json:"balance"`
	}](t, rec)
	if !res.Credited || res.Balance != 5 {
		t.Errorf("complete result = %+v, want credited with balance 5", res)
	}

	// Completing again reports a skip with the same balance.
	rec = c.do("POST", fmt.Sprintf("/api/chores/%d/complete", chore.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second complete: status = %d", rec.Code)
	}
	res = decode[struct {
		Credited bool `json:"credited"`
		Balance  int  `json:"balance"`
	}](t, rec)
	if res.Credited || res.Balance != 5 {
		t.Errorf("second complete result = %+v, want skip with balance 5", res)
	}

	rec = c.do("GET", "/api/account", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get account: status = %d", rec.Code)
	}
	acct := decode[struct {
		TokenBalance int `json:"token_balance"`
	}](t, rec)
	if acct.TokenBalance != 5 {
		t.Errorf("token_balance = %d, want 5", acct.TokenBalance)
	}
}

func TestRedeemFlowOverHTTP(t *testing.T) {
	c := setupServerTest(t)

	// The creator posts a reward.
	c.register("creator@example.com")
	rec := c.do("POST", "/api/rewards", map[string]any{"name": "Movie night", "cost": 10})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create reward: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	reward := decode[struct {
		ID int64 `json:"id"`
	}](t, rec)

	// Redeeming your own reward is rejected.
	rec = c.do("POST", fmt.Sprintf("/api/rewards/%d/redeem", reward.ID), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("self redeem: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	creatorCookies := c.cookies

	// A second account earns tokens and redeems.
	c.cookies = nil
	c.register("redeemer@example.com")
	rec = c.do("POST", "/api/chores", map[string]any{"name": "Big chore", "tokens": 8})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create chore: status = %d", rec.Code)
	}
	chore := decode[struct {
		ID int64 `json:"id"`
	}](t, rec)
	c.do("POST", fmt.Sprintf("/api/chores/%d/complete", chore.ID), nil)

	// Balance 8 against cost 10 is refused.
	rec = c.do("POST", fmt.Sprintf("/api/rewards/%d/redeem", reward.ID), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("insufficient redeem: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = c.do("POST", "/api/chores", map[string]any{"name": "Another chore", "tokens": 7})
	chore = decode[struct {
		ID int64 `json:"id"`
	}](t, rec)
	c.do("POST", fmt.Sprintf("/api/chores/%d/complete", chore.ID), nil)

	rec = c.do("POST", fmt.Sprintf("/api/rewards/%d/redeem", reward.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	redeemRes := decode[struct {
		Balance int `json:"balance"`
	}](t, rec)
	if redeemRes.Balance != 5 {
		t.Errorf("balance = %d, want 5", redeemRes.Balance)
	}

	// The creator sees the redemption notification.
	c.cookies = creatorCookies
	rec = c.do("GET", "/api/notifications", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list notifications: status = %d", rec.Code)
	}
	notifs := decode[[]struct {
		ID      int64  `json:"id"`
		Message string `json:"message"`
	}](t, rec)
	if len(notifs) != 1 {
		t.Fatalf("len(notifications) = %d, want 1", len(notifs))
	}
	if notifs[0].Message != "redeemer@example.com redeemed your reward: Movie night" {
		t.Errorf("message = %q", notifs[0].Message)
	}

	// And can archive it.
	rec = c.do("POST", fmt.Sprintf("/api/notifications/%d/toggle", notifs[0].ID), map[string]bool{"completed": true})
	if rec.Code != http.StatusOK {
		t.Errorf("toggle: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestRedeemMissingReward(t *testing.T) {
	c := setupServerTest(t)
	c.register("a@example.com")

	rec := c.do("POST", "/api/rewards/9999/redeem", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDeleteForeignChoreForbidden(t *testing.T) {
	c := setupServerTest(t)
	c.register("a@example.com")

	rec := c.do("POST", "/api/chores", map[string]any{"name": "Mine", "tokens": 1})
	chore := decode[struct {
		ID int64 `json:"id"`
	}](t, rec)

	c.cookies = nil
	c.register("b@example.com")

	rec = c.do("DELETE", fmt.Sprintf("/api/chores/%d", chore.ID), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	c := setupServerTest(t)
	c.register("a@example.com")

	rec := c.do("POST", "/logout", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status = %d", rec.Code)
	}

	rec = c.do("GET", "/api/account", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status after logout = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
