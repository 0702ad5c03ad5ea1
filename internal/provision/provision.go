// Package provision is the boundary to the identity and enrolment
// backend that production handlers drive: looking up or creating the
// purchaser's account, enrolling it, granting roles.
package provision

import (
	"context"

	"github.com/verzog/merchant/internal/domain"
)

// Account is a provisioned identity.
type Account struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// Directory is the narrow surface production handlers need. The real
// implementation talks to the deployment's identity system.
type Directory interface {
	// FindByEmail returns the account owning an email address, or a
	// domain ENOTFOUND error.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// CreateAccount registers a new identity and returns it with its
	// assigned ID.
	CreateAccount(ctx context.Context, acct *Account) (*Account, error)

	// Enrol adds the account to a course or group reference with the
	// given role. Enrolling twice is a no-op.
	Enrol(ctx context.Context, accountID int64, courseRef, role string) error

	// Unenrol removes the account from a course or group reference.
	Unenrol(ctx context.Context, accountID int64, courseRef string) error

	// AssignRole grants a role in a scope ("course:C1", "system").
	AssignRole(ctx context.Context, accountID int64, role, scope string) error

	// RevokeRole withdraws a role in a scope.
	RevokeRole(ctx context.Context, accountID int64, role, scope string) error
}

// Call records one Directory invocation, for the mock.
type Call struct {
	Method    string
	AccountID int64
	Email     string
	CourseRef string
	Role      string
	Scope     string
}

// Mock is an in-memory Directory recording every call. Accounts can be
// preloaded to simulate known purchasers.
type Mock struct {
	Calls    []Call
	accounts map[string]*Account
	nextID   int64

	// FailEnrol makes Enrol return an error, to exercise the partial
	// production path.
	FailEnrol error
}

// NewMock creates an empty mock directory.
func NewMock() *Mock {
	return &Mock{accounts: make(map[string]*Account), nextID: 1000}
}

// Preload registers an existing account.
func (m *Mock) Preload(acct *Account) {
	if acct.ID == 0 {
		m.nextID++
		acct.ID = m.nextID
	}
	m.accounts[acct.Email] = acct
}

func (m *Mock) FindByEmail(ctx context.Context, email string) (*Account, error) {
	m.Calls = append(m.Calls, Call{Method: "FindByEmail", Email: email})
	acct, ok := m.accounts[email]
	if !ok {
		return nil, domain.NotFound("provision.find", "account", email)
	}
	return acct, nil
}

func (m *Mock) CreateAccount(ctx context.Context, acct *Account) (*Account, error) {
	m.Calls = append(m.Calls, Call{Method: "CreateAccount", Email: acct.Email})
	m.nextID++
	created := *acct
	created.ID = m.nextID
	m.accounts[created.Email] = &created
	return &created, nil
}

func (m *Mock) Enrol(ctx context.Context, accountID int64, courseRef, role string) error {
	m.Calls = append(m.Calls, Call{Method: "Enrol", AccountID: accountID, CourseRef: courseRef, Role: role})
	return m.FailEnrol
}

func (m *Mock) Unenrol(ctx context.Context, accountID int64, courseRef string) error {
	m.Calls = append(m.Calls, Call{Method: "Unenrol", AccountID: accountID, CourseRef: courseRef})
	return nil
}

func (m *Mock) AssignRole(ctx context.Context, accountID int64, role, scope string) error {
	m.Calls = append(m.Calls, Call{Method: "AssignRole", AccountID: accountID, Role: role, Scope: scope})
	return nil
}

func (m *Mock) RevokeRole(ctx context.Context, accountID int64, role, scope string) error {
	m.Calls = append(m.Calls, Call{Method: "RevokeRole", AccountID: accountID, Role: role, Scope: scope})
	return nil
}

// CallsTo filters the recorded calls by method name.
func (m *Mock) CallsTo(method string) []Call {
	var out []Call
	for _, call := range m.Calls {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}
