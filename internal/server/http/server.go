// Package httpserver exposes the connector's browser-facing HTTP API.
package httpserver

import (
	"context"
	"crypto/subtle"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/graph-connector/internal/errs"
	"github.com/and161185/graph-connector/internal/graph"
	"github.com/and161185/graph-connector/internal/model"
	"github.com/and161185/graph-connector/internal/service"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const stateCookieName = "oauth_state"

// StateCookie configures the cookie that ties an OAuth state to the browser that started the flow.
type StateCookie struct {
	TTL    time.Duration
	Secure bool
}

// Server wires services into HTTP handlers.
type Server struct {
	auth      service.AuthFlow
	discovery service.Discovery
	messaging service.Messaging
	db        Pinger
	cookie    StateCookie
	log       *zap.Logger
}

// New constructs the HTTP server with injected services.
func New(auth service.AuthFlow, discovery service.Discovery, messaging service.Messaging, db Pinger,
	cookie StateCookie, log *zap.Logger) *Server {
	return &Server{
		auth:      auth,
		discovery: discovery,
		messaging: messaging,
		db:        db,
		cookie:    cookie,
		log:       log.Named("http"),
	}
}

// Router builds the gin engine with middleware and routes registered.
func (s *Server) Router() (*gin.Engine, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{"deref": deref}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	// Recover is innermost so logging and metrics observe the 500 of a panicking handler.
	r.Use(Logging(s.log), Metrics(), Recover(s.log))

	r.GET("/", s.index)
	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/auth")
	auth.GET("/login", s.login)
	auth.GET("/signup-variant", s.signup)
	auth.GET("/callback", s.callback)

	r.POST("/test-send", s.testSend)
	r.GET("/accounts/:account_id/pages", s.channels)
	return r, nil
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Authorization ---

func (s *Server) login(c *gin.Context) {
	u, state, err := s.auth.LoginURL()
	if err != nil {
		s.internal(c, "build login url", err)
		return
	}
	s.setStateCookie(c, state, int(s.cookie.TTL.Seconds()))
	c.Redirect(http.StatusTemporaryRedirect, u)
}

func (s *Server) signup(c *gin.Context) {
	u, state, err := s.auth.SignupURL()
	if err != nil {
		s.internal(c, "build signup url", err)
		return
	}
	s.setStateCookie(c, state, int(s.cookie.TTL.Seconds()))
	c.Redirect(http.StatusTemporaryRedirect, u)
}

// setStateCookie writes the state cookie; maxAge < 0 deletes it.
// SameSite=Lax keeps it on the platform's top-level redirect back to the callback.
func (s *Server) setStateCookie(c *gin.Context, state string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, maxAge, "/auth", "", s.cookie.Secure, true)
}

// checkState accepts a state only if this server signed it and this browser was handed it.
func (s *Server) checkState(c *gin.Context, state string) error {
	bound, err := c.Cookie(stateCookieName)
	if err != nil || subtle.ConstantTimeCompare([]byte(bound), []byte(state)) != 1 {
		return fmt.Errorf("state not bound to this browser: %w", errs.ErrInvalidState)
	}
	if _, err := s.auth.VerifyState(state); err != nil {
		return err
	}
	s.setStateCookie(c, "", -1)
	return nil
}

// callback completes the authorization and renders the discovered assets.
// A missing state is accepted: the embedded signup dialog may return without one.
// A present state must match the state cookie set when the flow started.
func (s *Server) callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing authorization code"})
		return
	}
	if state := c.Query("state"); state != "" {
		if err := s.checkState(c, state); err != nil {
			s.log.Warn("rejected oauth state", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
			return
		}
	}

	res, err := s.discovery.Discover(c.Request.Context(), code)
	if err != nil {
		var te *errs.TokenExchangeError
		var ie *errs.IdentityResolutionError
		switch {
		case errors.As(err, &te):
			c.JSON(http.StatusBadRequest, gin.H{"error": te.Error(), "payload": te.Payload})
		case errors.As(err, &ie):
			c.JSON(http.StatusBadRequest, gin.H{"error": ie.Error(), "payload": ie.Payload})
		case errors.Is(err, errs.ErrInvalidArgument):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		default:
			s.internal(c, "discovery", err)
		}
		return
	}
	if res.SignupRequired {
		c.Redirect(http.StatusTemporaryRedirect, "/auth/signup-variant")
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", res)
}

// --- Messaging ---

type testSendRequest struct {
	AccountID         string `form:"account_id"`
	ChannelEndpointID string `form:"channel_endpoint_id"`
	Recipient         string `form:"recipient"`
}

// testSend accepts parameters from the query string or an urlencoded form.
func (s *Server) testSend(c *gin.Context) {
	var req testSendRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed parameters"})
		return
	}

	resp, err := s.messaging.SendTest(c.Request.Context(), req.AccountID, req.ChannelEndpointID, req.Recipient)
	if err != nil {
		var apiErr *graph.APIError
		switch {
		case errors.Is(err, errs.ErrInvalidArgument):
			c.JSON(http.StatusBadRequest, gin.H{"error": "account_id, channel_endpoint_id and recipient are required"})
		case errors.Is(err, errs.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		case errors.As(err, &apiErr):
			s.log.Error("test send rejected by platform", zap.Int("status", apiErr.StatusCode))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message", "payload": apiErr.Body})
		default:
			s.internal(c, "test send", err)
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

type channelView struct {
	PageID                string  `json:"page_id"`
	Name                  string  `json:"name"`
	InstagramID           *string `json:"instagram_id"`
	WhatsAppID            *string `json:"whatsapp_id"`
	WhatsAppPhoneNumberID *string `json:"whatsapp_phone_number_id"`
}

// channels lists the stored pages of an account; access tokens never leave the server.
func (s *Server) channels(c *gin.Context) {
	pages, err := s.messaging.Channels(c.Request.Context(), c.Param("account_id"))
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidArgument):
			c.JSON(http.StatusBadRequest, gin.H{"error": "account id required"})
		case errors.Is(err, errs.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		default:
			s.internal(c, "list channels", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": toChannelViews(pages)})
}

func toChannelViews(pages []model.Page) []channelView {
	out := make([]channelView, 0, len(pages))
	for _, p := range pages {
		out = append(out, channelView{
			PageID:                p.PageID,
			Name:                  p.Name,
			InstagramID:           p.InstagramID,
			WhatsAppID:            p.WhatsAppID,
			WhatsAppPhoneNumberID: p.WhatsAppPhoneNumberID,
		})
	}
	return out
}

// internal logs err and answers with a generic 500.
func (s *Server) internal(c *gin.Context, op string, err error) {
	s.log.Error(op, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
