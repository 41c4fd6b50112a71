// Package service contains the authorization, discovery and messaging services.
package service

import (
	"encoding/json"
	"strings"

	"github.com/and161185/graph-connector/internal/config"
	"golang.org/x/oauth2"
)

// Flow names carried in the OAuth state.
const (
	FlowLogin  = "login"
	FlowSignup = "signup"
)

// LoginScopes are requested by the regular login dialog.
var LoginScopes = []string{
	"pages_show_list",
	"pages_messaging",
	"instagram_basic",
	"instagram_manage_messages",
	"whatsapp_business_management",
	"whatsapp_business_messaging",
	"business_management",
}

// SignupScopes are requested by the WhatsApp embedded-signup dialog.
var SignupScopes = []string{
	"whatsapp_business_management",
	"business_management",
}

// embeddedSignupExtras marks the dialog as the WhatsApp embedded signup flow.
var embeddedSignupExtras = func() string {
	b, _ := json.Marshal(map[string]any{
		"setup": map[string]string{"entry_point": "WHATSAPP_EMBEDDED_SIGNUP"},
	})
	return string(b)
}()

// AuthFlow builds the authorization redirect targets.
type AuthFlow interface {
	// LoginURL returns the dialog URL with the full scope set and the state it carries.
	LoginURL() (dialogURL, state string, err error)
	// SignupURL returns the narrower onboarding dialog URL and the state it carries.
	SignupURL() (dialogURL, state string, err error)
	// VerifyState validates a state returned to the callback.
	VerifyState(state string) (flow string, err error)
}

type AuthFlowImpl struct {
	login  oauth2.Config
	signup oauth2.Config
	states *StateSigner
}

// NewAuthFlow constructs AuthFlow from the process configuration.
func NewAuthFlow(cfg config.Config, states *StateSigner) *AuthFlowImpl {
	endpoint := oauth2.Endpoint{
		AuthURL:  strings.TrimRight(cfg.DialogBaseURL, "/") + "/" + cfg.APIVersion + "/dialog/oauth",
		TokenURL: strings.TrimRight(cfg.GraphBaseURL, "/") + "/" + cfg.APIVersion + "/oauth/access_token",
	}
	base := oauth2.Config{
		ClientID:     cfg.AppID,
		ClientSecret: cfg.AppSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     endpoint,
	}
	login, signup := base, base
	login.Scopes = LoginScopes
	signup.Scopes = SignupScopes
	return &AuthFlowImpl{login: login, signup: signup, states: states}
}

// LoginURL builds the login dialog URL.
func (a *AuthFlowImpl) LoginURL() (string, string, error) {
	state, err := a.states.Issue(FlowLogin)
	if err != nil {
		return "", "", err
	}
	return a.login.AuthCodeURL(state), state, nil
}

// SignupURL builds the embedded-signup dialog URL.
func (a *AuthFlowImpl) SignupURL() (string, string, error) {
	state, err := a.states.Issue(FlowSignup)
	if err != nil {
		return "", "", err
	}
	return a.signup.AuthCodeURL(state, oauth2.SetAuthURLParam("extras", embeddedSignupExtras)), state, nil
}

// VerifyState delegates to the state signer.
func (a *AuthFlowImpl) VerifyState(state string) (string, error) {
	return a.states.Verify(state)
}
