package provision

import (
	"errors"
	"fmt"

	"github.com/yanizio/vitrine/internal/assets"
)

// ErrSubdomainCollision means every candidate subdomain was taken.  The
// caller should ask the user for a different name.
var ErrSubdomainCollision = errors.New("subdomain unavailable, choose a different name")

// ValidationError rejects a malformed request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

// AssetError is one failed background asset.  It is recorded in the task
// item status and logged; it never reaches the provisioning caller.
type AssetError struct {
	Kind    assets.Kind
	Subject string // "logo", "page:home"
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("generate %s for %s: %v", e.Kind, e.Subject, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }
