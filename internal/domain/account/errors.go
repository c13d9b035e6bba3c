package account

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dinero-ledger/internal/domain/shared"
)

// ErrInvalidAccount reports a malformed account attribute.
type ErrInvalidAccount struct {
	Field  string
	Reason string
}

func (e ErrInvalidAccount) Error() string {
	return fmt.Sprintf("invalid account %s: %s", e.Field, e.Reason)
}

func (e ErrInvalidAccount) Kind() shared.ErrorKind { return shared.KindValidation }

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
	Code      string
}

func (e ErrAccountNotFound) Error() string {
	if e.Code != "" {
		return "account not found: code " + e.Code
	}
	return "account not found: " + e.AccountID.String()
}

func (e ErrAccountNotFound) Kind() shared.ErrorKind { return shared.KindReferential }

// Is matches any ErrAccountNotFound when the target carries no identifier.
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil && t.Code == "" {
		return true
	}
	return e.AccountID == t.AccountID && e.Code == t.Code
}

// ErrAccountInactive is returned when a line targets a deactivated account.
type ErrAccountInactive struct {
	AccountID uuid.UUID
}

func (e ErrAccountInactive) Error() string {
	return "account is inactive: " + e.AccountID.String()
}

func (e ErrAccountInactive) Kind() shared.ErrorKind { return shared.KindReferential }

// ErrDuplicateCode indicates the code is already used within the tenant.
type ErrDuplicateCode struct {
	TenantID uuid.UUID
	Code     string
}

func (e ErrDuplicateCode) Error() string {
	return fmt.Sprintf("account code %q already exists for tenant %s", e.Code, e.TenantID)
}

func (e ErrDuplicateCode) Kind() shared.ErrorKind { return shared.KindReferential }

func (e ErrDuplicateCode) Is(target error) bool {
	t, ok := target.(ErrDuplicateCode)
	if !ok {
		return false
	}
	return t.Code == "" || (t.Code == e.Code && (t.TenantID == uuid.Nil || t.TenantID == e.TenantID))
}

// ErrInvalidHierarchy covers a missing parent, a parent in another tenant
// and a parent link that would close a cycle.
type ErrInvalidHierarchy struct {
	AccountID uuid.UUID
	ParentID  uuid.UUID
	Reason    string
}

func (e ErrInvalidHierarchy) Error() string {
	return fmt.Sprintf("invalid hierarchy for account %s under parent %s: %s", e.AccountID, e.ParentID, e.Reason)
}

func (e ErrInvalidHierarchy) Kind() shared.ErrorKind { return shared.KindReferential }

// ErrProtectedAccount guards system accounts against deactivation and retyping.
type ErrProtectedAccount struct {
	AccountID uuid.UUID
	Operation string
}

func (e ErrProtectedAccount) Error() string {
	return fmt.Sprintf("account %s is system-protected: %s not allowed", e.AccountID, e.Operation)
}

func (e ErrProtectedAccount) Kind() shared.ErrorKind { return shared.KindState }

// ErrAccountHasActivity rejects structural changes once lines have posted.
type ErrAccountHasActivity struct {
	AccountID uuid.UUID
	Operation string
}

func (e ErrAccountHasActivity) Error() string {
	return fmt.Sprintf("account %s has posted activity: %s not allowed", e.AccountID, e.Operation)
}

func (e ErrAccountHasActivity) Kind() shared.ErrorKind { return shared.KindState }

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

func (e ErrConcurrentModification) Kind() shared.ErrorKind { return shared.KindState }
