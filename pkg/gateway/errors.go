package gateway

import "fmt"

// Error is the OAuth-shaped error body every endpoint renders.
// Descriptions never carry upstream provider error bodies; those are
// logged server-side only.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Machine-readable error codes of the HTTP surface.
const (
	CodeMissingParams         = "missing_params"
	CodeInvalidClientOrReturn = "invalid_client_or_return"
	CodeProviderNotConfigured = "provider_not_configured"
	CodeInvalidState          = "invalid_state"
	CodeOauthFailed           = "oauth_failed"
	CodeInvalidOtt            = "invalid_ott"
	CodeInvalidRefresh        = "invalid_refresh"
	CodeNoRefresh             = "no_refresh"
)
