package errs

import (
	"encoding/json"
	"fmt"
)

// Token exchange stages.
const (
	StageShortLived = "short_lived"
	StageLongLived  = "long_lived"
)

// TokenExchangeError reports that the platform did not hand out an access token.
// Payload is the raw upstream response, kept for diagnosis.
type TokenExchangeError struct {
	Stage   string
	Payload json.RawMessage
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("could not fetch %s token: %s", e.Stage, string(e.Payload))
}

// IdentityResolutionError reports that the platform returned no user identifier.
type IdentityResolutionError struct {
	Payload json.RawMessage
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf("could not fetch user info: %s", string(e.Payload))
}
