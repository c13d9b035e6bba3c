package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type is the accounting class of an account. It fixes the sign convention
// used when projecting balances.
type Type string

const (
	TypeAsset     Type = "asset"
	TypeLiability Type = "liability"
	TypeEquity    Type = "equity"
	TypeIncome    Type = "income"
	TypeExpense   Type = "expense"
)

// Types lists every account type in chart order.
var Types = []Type{TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense}

func (t Type) Valid() bool {
	switch t {
	case TypeAsset, TypeLiability, TypeEquity, TypeIncome, TypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether the balance grows with debits. Assets and
// expenses are debit-normal; liabilities, equity and income are credit-normal.
func (t Type) DebitNormal() bool {
	return t == TypeAsset || t == TypeExpense
}

// Account is a node in a tenant's chart of accounts.
type Account struct {
	ID              uuid.UUID  `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Type            Type       `json:"type"`
	ParentID        *uuid.UUID `json:"parent_id,omitempty"`
	SystemProtected bool       `json:"system_protected"`
	Active          bool       `json:"active"`
	Version         int        `json:"version"` // For optimistic locking
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewAccount validates the attributes and returns an active account.
func NewAccount(tenantID uuid.UUID, code, name string, accountType Type, parentID *uuid.UUID) (*Account, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)

	if tenantID == uuid.Nil {
		return nil, ErrInvalidAccount{Field: "tenant_id", Reason: "is required"}
	}
	if code == "" {
		return nil, ErrInvalidAccount{Field: "code", Reason: "is required"}
	}
	if len(code) > 20 {
		return nil, ErrInvalidAccount{Field: "code", Reason: "must be at most 20 characters"}
	}
	if name == "" {
		return nil, ErrInvalidAccount{Field: "name", Reason: "is required"}
	}
	if !accountType.Valid() {
		return nil, ErrInvalidAccount{Field: "type", Reason: "unknown account type " + string(accountType)}
	}

	now := time.Now().UTC()
	return &Account{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Code:      code,
		Name:      name,
		Type:      accountType,
		ParentID:  parentID,
		Active:    true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a deep copy, used for audit before-images.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.ParentID != nil {
		parent := *a.ParentID
		c.ParentID = &parent
	}
	return &c
}

// Deactivate switches the account off. It reports false when the account
// was already inactive.
func (a *Account) Deactivate() (bool, error) {
	if a.SystemProtected {
		return false, ErrProtectedAccount{AccountID: a.ID, Operation: "deactivate"}
	}
	if !a.Active {
		return false, nil
	}
	a.Active = false
	a.touch()
	return true, nil
}

// Rename changes the display name. It is allowed at any time.
func (a *Account) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidAccount{Field: "name", Reason: "is required"}
	}
	a.Name = name
	a.touch()
	return nil
}

// Retype changes the account type. hasActivity must report whether any
// posted line targets the account.
func (a *Account) Retype(t Type, hasActivity bool) error {
	if !t.Valid() {
		return ErrInvalidAccount{Field: "type", Reason: "unknown account type " + string(t)}
	}
	if t == a.Type {
		return nil
	}
	if a.SystemProtected {
		return ErrProtectedAccount{AccountID: a.ID, Operation: "retype"}
	}
	if hasActivity {
		return ErrAccountHasActivity{AccountID: a.ID, Operation: "retype"}
	}
	a.Type = t
	a.touch()
	return nil
}

// Reparent moves the account under parentID (nil for a root). Cycle checks
// need the chart and live in the directory service.
func (a *Account) Reparent(parentID *uuid.UUID, hasActivity bool) error {
	if sameParent(a.ParentID, parentID) {
		return nil
	}
	if hasActivity {
		return ErrAccountHasActivity{AccountID: a.ID, Operation: "reparent"}
	}
	if parentID != nil && *parentID == a.ID {
		return ErrInvalidHierarchy{AccountID: a.ID, ParentID: *parentID, Reason: "account cannot be its own parent"}
	}
	a.ParentID = parentID
	a.touch()
	return nil
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now().UTC()
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
