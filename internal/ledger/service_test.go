package ledger

import (
	"testing"
	"time"

	"salon-ledger/internal/auth"
	"salon-ledger/internal/models"
	"salon-ledger/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testOwnerKey = "owner-secret"

// ServiceTestSuite exercises the ledger service against an in-memory
// database.
type ServiceTestSuite struct {
	suite.Suite
	db    *storage.DB
	svc   *Service
	owner auth.Identity
	dana  auth.Identity
	aida  auth.Identity
}

func (suite *ServiceTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.svc = NewService(db, testOwnerKey)
	suite.owner = auth.Identity{Role: auth.RoleOwner, Name: "Aizhan", Position: "Owner"}

	dana, err := db.CreateEmployee("Dana", "Stylist", 40, "dana-key")
	require.NoError(suite.T(), err)
	suite.dana = auth.EmployeeIdentity(dana)

	aida, err := db.CreateEmployee("Aida", "Nail Technician", 20, "aida-key")
	require.NoError(suite.T(), err)
	suite.aida = auth.EmployeeIdentity(aida)
}

func (suite *ServiceTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *ServiceTestSuite) input(kind models.TransactionKind, amount float64, employeeID int64) TransactionInput {
	return TransactionInput{
		Kind:        kind,
		Amount:      amount,
		Description: "test entry",
		EmployeeID:  employeeID,
		Date:        time.Now(),
	}
}

func (suite *ServiceTestSuite) TestOwnerCreatedBornApproved() {
	tx, err := suite.svc.Create(suite.owner, suite.input(models.KindIncome, 15000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.StatusApproved, tx.Status)
	assert.Equal(suite.T(), "Aizhan", tx.ApprovedBy)
	require.NotNil(suite.T(), tx.ApprovedAt)
	assert.WithinDuration(suite.T(), tx.CreatedAt, *tx.ApprovedAt, time.Second)
}

func (suite *ServiceTestSuite) TestEmployeeCreatedBornPending() {
	tx, err := suite.svc.Create(suite.dana, suite.input(models.KindIncome, 8000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.StatusPending, tx.Status)
	assert.Empty(suite.T(), tx.ApprovedBy)
	assert.Nil(suite.T(), tx.ApprovedAt)
}

func (suite *ServiceTestSuite) TestEmployeeCannotFileForOthers() {
	_, err := suite.svc.Create(suite.dana, suite.input(models.KindIncome, 8000, suite.aida.EmployeeID()))
	assert.ErrorIs(suite.T(), err, ErrDenied)
}

func (suite *ServiceTestSuite) TestCreateValidation() {
	in := suite.input(models.KindIncome, 8000, suite.dana.EmployeeID())

	bad := in
	bad.Amount = 0
	_, err := suite.svc.Create(suite.owner, bad)
	assert.ErrorIs(suite.T(), err, ErrInvalid)

	bad = in
	bad.Kind = "transfer"
	_, err = suite.svc.Create(suite.owner, bad)
	assert.ErrorIs(suite.T(), err, ErrInvalid)

	bad = in
	bad.Description = "   "
	_, err = suite.svc.Create(suite.owner, bad)
	assert.ErrorIs(suite.T(), err, ErrInvalid)

	bad = in
	bad.EmployeeID = 999
	_, err = suite.svc.Create(suite.owner, bad)
	assert.ErrorIs(suite.T(), err, ErrInvalid)
}

func (suite *ServiceTestSuite) TestApproveFlow() {
	tx, err := suite.svc.Create(suite.dana, suite.input(models.KindIncome, 8000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)

	approved, err := suite.svc.Approve(suite.owner, tx.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusApproved, approved.Status)
	assert.Equal(suite.T(), "Aizhan", approved.ApprovedBy)
	assert.NotNil(suite.T(), approved.ApprovedAt)
}

func (suite *ServiceTestSuite) TestDecidedStatesAreTerminal() {
	tx, err := suite.svc.Create(suite.dana, suite.input(models.KindIncome, 8000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)

	_, err = suite.svc.Reject(suite.owner, tx.ID)
	require.NoError(suite.T(), err)

	// No second decision, in either direction.
	_, err = suite.svc.Approve(suite.owner, tx.ID)
	assert.ErrorIs(suite.T(), err, ErrInvalid)
	_, err = suite.svc.Reject(suite.owner, tx.ID)
	assert.ErrorIs(suite.T(), err, ErrInvalid)
}

func (suite *ServiceTestSuite) TestEmployeeCannotDecide() {
	tx, err := suite.svc.Create(suite.dana, suite.input(models.KindIncome, 8000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)

	_, err = suite.svc.Approve(suite.dana, tx.ID)
	assert.ErrorIs(suite.T(), err, ErrDenied)

	got, err := suite.db.GetTransaction(tx.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusPending, got.Status)
}

func (suite *ServiceTestSuite) TestUpdateKeepsApprovalState() {
	tx, err := suite.svc.Create(suite.owner, suite.input(models.KindIncome, 15000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), models.StatusApproved, tx.Status)

	in := suite.input(models.KindIncome, 17000, suite.dana.EmployeeID())
	in.Description = "corrected amount"
	updated, err := suite.svc.Update(suite.owner, tx.ID, in)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 17000.0, updated.Amount)
	assert.Equal(suite.T(), models.StatusApproved, updated.Status, "edits must not reset approval")
	assert.Equal(suite.T(), tx.ApprovedBy, updated.ApprovedBy)
}

func (suite *ServiceTestSuite) TestEmployeeCanEditOwnApproved() {
	tx, err := suite.svc.Create(suite.dana, suite.input(models.KindIncome, 8000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)
	_, err = suite.svc.Approve(suite.owner, tx.ID)
	require.NoError(suite.T(), err)

	in := suite.input(models.KindIncome, 9000, suite.dana.EmployeeID())
	updated, err := suite.svc.Update(suite.dana, tx.ID, in)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 9000.0, updated.Amount)
	assert.Equal(suite.T(), models.StatusApproved, updated.Status)
}

func (suite *ServiceTestSuite) TestEmployeeCannotEditOthers() {
	tx, err := suite.svc.Create(suite.aida, suite.input(models.KindIncome, 5000, suite.aida.EmployeeID()))
	require.NoError(suite.T(), err)

	_, err = suite.svc.Update(suite.dana, tx.ID, suite.input(models.KindIncome, 1, suite.aida.EmployeeID()))
	assert.ErrorIs(suite.T(), err, ErrDenied)
}

func (suite *ServiceTestSuite) TestDeleteRules() {
	pending, err := suite.svc.Create(suite.dana, suite.input(models.KindIncome, 8000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)
	decided, err := suite.svc.Create(suite.dana, suite.input(models.KindExpense, 2000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)
	_, err = suite.svc.Approve(suite.owner, decided.ID)
	require.NoError(suite.T(), err)

	// Own pending: allowed.
	assert.NoError(suite.T(), suite.svc.Delete(suite.dana, pending.ID))
	// Own but decided: employee may not, owner may.
	assert.ErrorIs(suite.T(), suite.svc.Delete(suite.dana, decided.ID), ErrDenied)
	assert.NoError(suite.T(), suite.svc.Delete(suite.owner, decided.ID))
}

func (suite *ServiceTestSuite) TestVisibility() {
	_, err := suite.svc.Create(suite.dana, suite.input(models.KindIncome, 8000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)
	other, err := suite.svc.Create(suite.aida, suite.input(models.KindIncome, 5000, suite.aida.EmployeeID()))
	require.NoError(suite.T(), err)

	all, err := suite.svc.Visible(suite.owner)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 2)

	own, err := suite.svc.Visible(suite.dana)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), own, 1)
	assert.Equal(suite.T(), suite.dana.EmployeeID(), own[0].EmployeeID)

	_, err = suite.svc.Get(suite.dana, other.ID)
	assert.ErrorIs(suite.T(), err, ErrDenied)
}

func (suite *ServiceTestSuite) TestDashboardCountsAllStatuses() {
	_, err := suite.svc.Create(suite.owner, suite.input(models.KindIncome, 10000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)
	_, err = suite.svc.Create(suite.dana, suite.input(models.KindIncome, 5000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)
	rejected, err := suite.svc.Create(suite.aida, suite.input(models.KindExpense, 2000, suite.aida.EmployeeID()))
	require.NoError(suite.T(), err)
	_, err = suite.svc.Reject(suite.owner, rejected.ID)
	require.NoError(suite.T(), err)

	stats, err := suite.svc.Stats(suite.owner)
	require.NoError(suite.T(), err)

	// Dashboard totals run over every status, rejected included.
	assert.Equal(suite.T(), 15000.0, stats.TotalIncome)
	assert.Equal(suite.T(), 2000.0, stats.TotalExpense)
	assert.Equal(suite.T(), 13000.0, stats.NetProfit)
	assert.Equal(suite.T(), 1, stats.PendingCount)
	assert.Len(suite.T(), stats.Shares, 2)
}

func (suite *ServiceTestSuite) TestCommissionShare() {
	// 300000 income at 40% yields 120000.
	for _, amount := range []float64{100000, 200000} {
		_, err := suite.svc.Create(suite.owner, suite.input(models.KindIncome, amount, suite.dana.EmployeeID()))
		require.NoError(suite.T(), err)
	}
	// Expenses and other employees' income never feed the share.
	_, err := suite.svc.Create(suite.owner, suite.input(models.KindExpense, 50000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)
	_, err = suite.svc.Create(suite.owner, suite.input(models.KindIncome, 99999, suite.aida.EmployeeID()))
	require.NoError(suite.T(), err)

	share, err := suite.svc.CommissionShare(suite.dana.EmployeeID())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 120000.0, share)
}

func (suite *ServiceTestSuite) TestCommissionFollowsCurrentPercentage() {
	_, err := suite.svc.Create(suite.owner, suite.input(models.KindIncome, 100000, suite.dana.EmployeeID()))
	require.NoError(suite.T(), err)

	share, err := suite.svc.CommissionShare(suite.dana.EmployeeID())
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), 40000.0, share)

	// A percentage change retroactively moves the figure.
	_, err = suite.svc.UpdateEmployee(suite.owner, suite.dana.EmployeeID(), EmployeeInput{
		Name: "Dana", Position: "Stylist", Percentage: 50, LoginKey: "dana-key",
	})
	require.NoError(suite.T(), err)

	share, err = suite.svc.CommissionShare(suite.dana.EmployeeID())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 50000.0, share)
}

func (suite *ServiceTestSuite) TestEmployeeKeyRules() {
	// The roster is untouched after each rejected create.
	before, err := suite.db.CountEmployees()
	require.NoError(suite.T(), err)

	cases := []EmployeeInput{
		{Name: "X", Position: "Stylist", Percentage: 10, LoginKey: ""},
		{Name: "X", Position: "Stylist", Percentage: 10, LoginKey: testOwnerKey},
		{Name: "X", Position: "Stylist", Percentage: 10, LoginKey: "dana-key"},
		{Name: "X", Position: "Stylist", Percentage: 200, LoginKey: "fresh-key"},
	}
	for _, in := range cases {
		_, err := suite.svc.CreateEmployee(suite.owner, in)
		assert.ErrorIs(suite.T(), err, ErrInvalid, "input %+v must be rejected", in)
	}

	after, err := suite.db.CountEmployees()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), before, after)

	// Keeping your own key across an edit is not a collision.
	assert.NoError(suite.T(), suite.svc.ValidateEmployeeKey("dana-key", suite.dana.EmployeeID()))
}

func (suite *ServiceTestSuite) TestEmployeeOperationsAreOwnerOnly() {
	_, err := suite.svc.CreateEmployee(suite.dana, EmployeeInput{Name: "X", Position: "Y", Percentage: 5, LoginKey: "k"})
	assert.ErrorIs(suite.T(), err, ErrDenied)

	_, err = suite.svc.ListEmployees(suite.dana)
	assert.ErrorIs(suite.T(), err, ErrDenied)

	err = suite.svc.DeleteEmployee(suite.dana, suite.aida.EmployeeID())
	assert.ErrorIs(suite.T(), err, ErrDenied)
}

func (suite *ServiceTestSuite) TestMonthlyReport() {
	jan := suite.input(models.KindIncome, 10000, suite.dana.EmployeeID())
	jan.Date = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err := suite.svc.Create(suite.owner, jan)
	require.NoError(suite.T(), err)

	feb := suite.input(models.KindExpense, 3000, suite.dana.EmployeeID())
	feb.Date = time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	_, err = suite.svc.Create(suite.owner, feb)
	require.NoError(suite.T(), err)

	rep, err := suite.svc.Monthly(suite.owner, 2026, 1)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 10000.0, rep.TotalIncome)
	assert.Zero(suite.T(), rep.TotalExpense)
	require.Len(suite.T(), rep.Employees, 2)
	assert.Equal(suite.T(), 1, rep.Employees[0].Transactions)
	assert.Equal(suite.T(), 4000.0, rep.Employees[0].Share, "40% of January income")

	_, err = suite.svc.Monthly(suite.dana, 2026, 1)
	assert.ErrorIs(suite.T(), err, ErrDenied)

	_, err = suite.svc.Monthly(suite.owner, 2026, 13)
	assert.ErrorIs(suite.T(), err, ErrInvalid)
}

// TestServiceTestSuite runs the test suite
func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
