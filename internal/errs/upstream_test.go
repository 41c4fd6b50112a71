package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTokenExchangeError_MessageAndAs(t *testing.T) {
	var err error = fmt.Errorf("discover: %w", &TokenExchangeError{
		Stage:   StageLongLived,
		Payload: []byte(`{"error":{"code":190}}`),
	})

	var te *TokenExchangeError
	if !errors.As(err, &te) {
		t.Fatalf("errors.As failed for %v", err)
	}
	if te.Stage != StageLongLived {
		t.Fatalf("stage=%q", te.Stage)
	}
	if !strings.Contains(err.Error(), "long_lived") || !strings.Contains(err.Error(), `"code":190`) {
		t.Fatalf("message lacks stage or payload: %s", err)
	}
}

func TestIdentityResolutionError_Message(t *testing.T) {
	err := &IdentityResolutionError{Payload: []byte(`{}`)}
	if err.Error() != "could not fetch user info: {}" {
		t.Fatalf("unexpected message: %s", err)
	}
}
