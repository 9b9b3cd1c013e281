package tokens

import "fmt"

// ReauthRequiredError means an account's credentials cannot be repaired
// automatically; the user has to go through the consent flow again. The
// account's auth state is persisted so the condition survives restarts.
type ReauthRequiredError struct {
	AccountID string
	Email     string
	Reason    string
}

func (e *ReauthRequiredError) Error() string {
	return fmt.Sprintf("account %s (%s) requires re-authorization: %s", e.AccountID, e.Email, e.Reason)
}

// TransientAuthError means a token refresh failed for a reason that may
// clear on its own (network trouble, provider hiccup). The stored refresh
// token is kept and the next cycle retries.
type TransientAuthError struct {
	AccountID string
	Err       error
}

func (e *TransientAuthError) Error() string {
	return fmt.Sprintf("transient auth failure for account %s: %v", e.AccountID, e.Err)
}

func (e *TransientAuthError) Unwrap() error {
	return e.Err
}
