package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salon-ledger/internal/auth"
	"salon-ledger/internal/inventory"
	"salon-ledger/internal/ledger"
	"salon-ledger/internal/report"
	"salon-ledger/internal/sales"
	"salon-ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testOwnerKey = "owner-secret"

// HandlersTestSuite drives the full router over httptest.
type HandlersTestSuite struct {
	suite.Suite
	db      *storage.DB
	router  http.Handler
	danaKey string
	danaID  int64
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	dana, err := db.CreateEmployee("Dana", "Stylist", 40, "dana-key")
	require.NoError(suite.T(), err)
	suite.danaKey = "dana-key"
	suite.danaID = dana.ID

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(
		log,
		db,
		auth.NewResolver(db, testOwnerKey, "Aizhan"),
		auth.NewSessionManager(db, 24*time.Hour, 10*time.Minute, "Aizhan"),
		ledger.NewService(db, testOwnerKey),
		inventory.NewService(db),
		sales.NewService(db),
		report.NewExporter(),
		24*time.Hour,
		false,
	)
	suite.router = h.Router(false)
}

func (suite *HandlersTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

// do issues a request, optionally with a session cookie, and decodes the
// JSON body into out when out is non-nil.
func (suite *HandlersTestSuite) do(method, path, token string, body, out any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	if out != nil && w.Code < 300 {
		require.NoError(suite.T(), json.NewDecoder(w.Body).Decode(out),
			"decode %s %s response", method, path)
	}
	return w
}

// login returns the session token for the given key.
func (suite *HandlersTestSuite) login(key string) string {
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewReader([]byte(fmt.Sprintf(`{"key":%q}`, key))))
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	require.Equal(suite.T(), http.StatusOK, w.Code, "login with %q failed: %s", key, w.Body.String())

	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c.Value
		}
	}
	suite.T().Fatal("no session cookie set on login")
	return ""
}

func (suite *HandlersTestSuite) TestHealth() {
	w := suite.do(http.MethodGet, "/health", "", nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *HandlersTestSuite) TestLoginRejectsUnknownKey() {
	w := suite.do(http.MethodPost, "/api/login", "", map[string]string{"key": "wrong"}, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	// The error body never hints at which keys exist.
	assert.Contains(suite.T(), w.Body.String(), "invalid key")
}

func (suite *HandlersTestSuite) TestLoginSetsIdentity() {
	var resp struct {
		Identity identityView `json:"identity"`
	}
	w := suite.do(http.MethodPost, "/api/login", "", map[string]string{"key": testOwnerKey}, &resp)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "owner", resp.Identity.Role)
	assert.Equal(suite.T(), "Aizhan", resp.Identity.Name)
}

func (suite *HandlersTestSuite) TestLoginPreviewMatchesLogin() {
	var resp struct {
		Match    bool         `json:"match"`
		Identity identityView `json:"identity"`
	}
	w := suite.do(http.MethodGet, "/api/login/preview?key=dana-key", "", nil, &resp)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.True(suite.T(), resp.Match)
	assert.Equal(suite.T(), "Dana", resp.Identity.Name)
	assert.Equal(suite.T(), 40.0, resp.Identity.Percentage)

	resp.Match = true
	w = suite.do(http.MethodGet, "/api/login/preview?key=nope", "", nil, &resp)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.False(suite.T(), resp.Match)

	// Preview never opens a session.
	w = suite.do(http.MethodGet, "/api/dashboard", "", nil, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestLogout() {
	token := suite.login(testOwnerKey)

	w := suite.do(http.MethodPost, "/api/logout", token, nil, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/api/dashboard", token, nil, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestSessionStatusAndExtend() {
	token := suite.login(testOwnerKey)

	var resp struct {
		Session auth.Status `json:"session"`
	}
	w := suite.do(http.MethodGet, "/api/session", token, nil, &resp)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.False(suite.T(), resp.Session.Warning)
	assert.InDelta(suite.T(), 24*60, resp.Session.MinutesLeft, 1)

	var ext struct {
		Extended    bool `json:"extended"`
		MinutesLeft int  `json:"minutes_left"`
	}
	w = suite.do(http.MethodPost, "/api/session/extend", token, nil, &ext)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.True(suite.T(), ext.Extended)
}

func (suite *HandlersTestSuite) TestTransactionLifecycleOverHTTP() {
	danaToken := suite.login(suite.danaKey)
	ownerToken := suite.login(testOwnerKey)

	// Employee files a pending transaction.
	in := map[string]any{
		"kind": "income", "amount": 8000, "description": "Manicure",
		"employee_id": suite.danaID, "date": time.Now().Format(time.RFC3339),
	}
	var tx struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	w := suite.do(http.MethodPost, "/api/transactions", danaToken, in, &tx)
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.Equal(suite.T(), "pending", tx.Status)

	// Employee cannot approve.
	w = suite.do(http.MethodPost, fmt.Sprintf("/api/transactions/%d/approve", tx.ID), danaToken, nil, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	// Owner approves.
	var decided struct {
		Status     string `json:"status"`
		ApprovedBy string `json:"approved_by"`
	}
	w = suite.do(http.MethodPost, fmt.Sprintf("/api/transactions/%d/approve", tx.ID), ownerToken, nil, &decided)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "approved", decided.Status)
	assert.Equal(suite.T(), "Aizhan", decided.ApprovedBy)

	// A second decision is a 400.
	w = suite.do(http.MethodPost, fmt.Sprintf("/api/transactions/%d/reject", tx.ID), ownerToken, nil, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	// The employee may no longer delete the decided transaction.
	w = suite.do(http.MethodDelete, fmt.Sprintf("/api/transactions/%d", tx.ID), danaToken, nil, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *HandlersTestSuite) TestOwnerCreatedBornApproved() {
	ownerToken := suite.login(testOwnerKey)

	in := map[string]any{
		"kind": "income", "amount": 15000, "description": "Coloring",
		"employee_id": suite.danaID, "date": time.Now().Format(time.RFC3339),
	}
	var tx struct {
		Status string `json:"status"`
	}
	w := suite.do(http.MethodPost, "/api/transactions", ownerToken, in, &tx)
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.Equal(suite.T(), "approved", tx.Status)
}

func (suite *HandlersTestSuite) TestEmployeeSeesOwnOnly() {
	ownerToken := suite.login(testOwnerKey)
	danaToken := suite.login(suite.danaKey)

	aida, err := suite.db.CreateEmployee("Aida", "Nail Technician", 20, "aida-key")
	require.NoError(suite.T(), err)

	for _, empID := range []int64{suite.danaID, aida.ID} {
		in := map[string]any{
			"kind": "income", "amount": 1000, "description": "x",
			"employee_id": empID, "date": time.Now().Format(time.RFC3339),
		}
		w := suite.do(http.MethodPost, "/api/transactions", ownerToken, in, nil)
		require.Equal(suite.T(), http.StatusCreated, w.Code)
	}

	var resp struct {
		Transactions []struct {
			EmployeeID int64 `json:"employee_id"`
		} `json:"transactions"`
	}
	w := suite.do(http.MethodGet, "/api/transactions", danaToken, nil, &resp)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	require.Len(suite.T(), resp.Transactions, 1)
	assert.Equal(suite.T(), suite.danaID, resp.Transactions[0].EmployeeID)
}

func (suite *HandlersTestSuite) TestOwnerOnlyTier() {
	danaToken := suite.login(suite.danaKey)

	ownerOnly := []struct{ method, path string }{
		{http.MethodGet, "/api/employees"},
		{http.MethodGet, "/api/products"},
		{http.MethodGet, "/api/sales"},
		{http.MethodGet, "/api/reports/monthly"},
		{http.MethodGet, "/api/reports/export"},
		{http.MethodGet, "/api/database/info"},
		{http.MethodGet, "/api/database/export"},
	}
	for _, ep := range ownerOnly {
		w := suite.do(ep.method, ep.path, danaToken, nil, nil)
		assert.Equal(suite.T(), http.StatusForbidden, w.Code, "%s %s", ep.method, ep.path)
	}
}

func (suite *HandlersTestSuite) TestEmployeeRosterHidesLoginKeys() {
	ownerToken := suite.login(testOwnerKey)

	w := suite.do(http.MethodGet, "/api/employees", ownerToken, nil, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.NotContains(suite.T(), w.Body.String(), "dana-key")
}

func (suite *HandlersTestSuite) TestProductAndSaleFlow() {
	ownerToken := suite.login(testOwnerKey)

	var product struct {
		ID    int64 `json:"id"`
		Stock int   `json:"stock"`
	}
	w := suite.do(http.MethodPost, "/api/products", ownerToken, map[string]any{
		"name": "Shampoo", "category": "hair", "price": 9500, "cost": 6000, "stock": 10, "min_stock": 2,
	}, &product)
	require.Equal(suite.T(), http.StatusCreated, w.Code)

	var sale struct {
		TotalAmount float64 `json:"total_amount"`
	}
	w = suite.do(http.MethodPost, "/api/sales", ownerToken, map[string]any{
		"customer_name": "Walk-in",
		"items":         []map[string]any{{"product_id": product.ID, "quantity": 2}},
	}, &sale)
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.Equal(suite.T(), 19000.0, sale.TotalAmount)

	var got struct {
		Stock int `json:"stock"`
	}
	w = suite.do(http.MethodGet, fmt.Sprintf("/api/products/%d", product.ID), ownerToken, nil, &got)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), 8, got.Stock)

	// Overselling is a 400 and leaves stock alone.
	w = suite.do(http.MethodPost, "/api/sales", ownerToken, map[string]any{
		"customer_name": "Walk-in",
		"items":         []map[string]any{{"product_id": product.ID, "quantity": 99}},
	}, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestExportReportContentType() {
	ownerToken := suite.login(testOwnerKey)

	w := suite.do(http.MethodGet, "/api/reports/export", ownerToken, nil, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.Contains(suite.T(), w.Header().Get("Content-Disposition"), "revenue-report_")
	assert.NotZero(suite.T(), w.Body.Len())
}

func (suite *HandlersTestSuite) TestDatabaseExportImportRoundTrip() {
	ownerToken := suite.login(testOwnerKey)

	var exported backup
	w := suite.do(http.MethodGet, "/api/database/export", ownerToken, nil, &exported)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	require.Len(suite.T(), exported.Employees, 1)
	assert.Equal(suite.T(), "dana-key", exported.Employees[0].LoginKey,
		"backups must round-trip login keys")

	// Wipe and restore.
	require.NoError(suite.T(), suite.db.DeleteEmployee(suite.danaID))
	w = suite.do(http.MethodPost, "/api/database/import", ownerToken, exported, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	restored, err := suite.db.GetEmployeeByLoginKey("dana-key")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Dana", restored.Name)
}

func (suite *HandlersTestSuite) TestUnknownTokenIsUnauthorized() {
	w := suite.do(http.MethodGet, "/api/dashboard", "not-a-session", nil, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	// The dead cookie is cleared in the response.
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(suite.T(), cleared)
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}
