package auth

import "salon-ledger/internal/models"

// Visible narrows a transaction set to what the identity may see. The
// owner sees everything; an employee sees only their own rows. Relative
// order is preserved. An unauthenticated identity sees nothing.
func Visible(id Identity, txs []models.Transaction) []models.Transaction {
	if id.IsOwner() {
		return txs
	}
	if !id.Authenticated() {
		return nil
	}

	var own []models.Transaction
	for _, t := range txs {
		if t.EmployeeID == id.EmployeeID() {
			own = append(own, t)
		}
	}
	return own
}

// CanEdit reports whether the identity may edit the transaction. The owner
// may edit anything; an employee may edit only their own transactions,
// regardless of status. Edits never reset the approval state.
func CanEdit(id Identity, t models.Transaction) bool {
	if id.IsOwner() {
		return true
	}
	return id.Role == RoleEmployee && t.EmployeeID == id.EmployeeID()
}

// CanDelete reports whether the identity may delete the transaction. Once
// a transaction leaves pending, only the owner may remove it.
func CanDelete(id Identity, t models.Transaction) bool {
	if id.IsOwner() {
		return true
	}
	return id.Role == RoleEmployee &&
		t.EmployeeID == id.EmployeeID() &&
		t.Status == models.StatusPending
}

// CanDecide reports whether the identity may approve or reject the
// transaction. Only the owner, and only while it is still pending.
func CanDecide(id Identity, t models.Transaction) bool {
	return id.IsOwner() && t.Status == models.StatusPending
}

// CanManageEmployees reports whether the identity may create, edit, or
// delete employee records.
func CanManageEmployees(id Identity) bool { return id.IsOwner() }

// CanViewReports reports whether the identity may view aggregate reports
// and exports.
func CanViewReports(id Identity) bool { return id.IsOwner() }
