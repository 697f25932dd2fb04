package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/claudiator/server-go/internal/audit"
	"github.com/claudiator/server-go/internal/config"
	apperrors "github.com/claudiator/server-go/internal/errors"
	"github.com/claudiator/server-go/internal/httputil"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/util"
)

type contextKey string

const PrincipalContextKey contextKey = "principal"

// Principal is the authenticated caller. KeyID is empty for the master key.
type Principal struct {
	KeyID  string
	Master bool
	Scopes model.Scopes
}

func (p *Principal) Has(scope model.Scope) bool {
	return p.Master || p.Scopes.Has(scope)
}

func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// KeyStore resolves raw bearer values to stored API keys.
type KeyStore interface {
	Lookup(ctx context.Context, raw string) (*model.APIKey, error)
	TouchLastUsed(ctx context.Context, id string) error
}

type Authorizer struct {
	masterKey    string
	keys         KeyStore
	failures     *FailureTracker
	limiter      KeyLimiter
	window       time.Duration
	defaultLimit int
}

func NewAuthorizer(masterKey string, keys KeyStore, failures *FailureTracker, limiter KeyLimiter, defaultLimit int) *Authorizer {
	return &Authorizer{
		masterKey:    masterKey,
		keys:         keys,
		failures:     failures,
		limiter:      limiter,
		window:       config.KeyRateLimitWindow,
		defaultLimit: defaultLimit,
	}
}

// Require admits callers holding scope: the master key, or a stored key
// that is under its quota and carries the scope.
func (a *Authorizer) Require(scope model.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := audit.ClientIP(r)
			if a.lockedOut(w, r, ip) {
				return
			}

			token, ok := parseBearerToken(r.Header.Get("Authorization"))
			if !ok {
				a.reject(w, r, ip, "missing or malformed bearer token")
				return
			}

			if util.ConstantTimeEqual(token, a.masterKey) {
				next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), &Principal{Master: true})))
				return
			}

			key, err := a.keys.Lookup(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, apperrors.Database(err))
				return
			}
			if key == nil {
				a.reject(w, r, ip, "unknown api key")
				return
			}

			limit := a.defaultLimit
			if key.RateLimit != nil && *key.RateLimit > 0 {
				limit = *key.RateLimit
			}
			if !a.limiter.Allow(r.Context(), key.ID, limit) {
				audit.LogFromRequest(r, audit.Event{
					Type:    audit.EventRateLimitExceed,
					KeyID:   key.ID,
					Details: map[string]interface{}{"limit": limit},
				})
				httputil.WriteError(w, apperrors.KeyQuotaExceeded(a.window))
				return
			}

			principal := &Principal{KeyID: key.ID, Scopes: key.Scopes}
			if !principal.Has(scope) {
				audit.LogFromRequest(r, audit.Event{
					Type:    audit.EventScopeDenied,
					KeyID:   key.ID,
					Details: map[string]interface{}{"required": string(scope), "granted": key.Scopes.String()},
				})
				httputil.WriteError(w, apperrors.MissingScope(string(scope)))
				return
			}

			if err := a.keys.TouchLastUsed(r.Context(), key.ID); err != nil {
				log.Warn().Err(err).Str("keyId", key.ID).Msg("failed to update api key last_used")
			}

			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAdmin admits only the master key presented over a loopback
// connection. Stored keys never qualify, whatever their scopes: they are
// valid credentials, so they get 403 and do not count toward lockout.
func (a *Authorizer) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := audit.ClientIP(r)
		if a.lockedOut(w, r, ip) {
			return
		}

		if !isLoopbackPeer(r.RemoteAddr) {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAdminDenied,
				Details: map[string]interface{}{"peer": r.RemoteAddr},
			})
			httputil.WriteError(w, apperrors.Forbidden("Admin endpoints are only reachable from localhost"))
			return
		}

		token, ok := parseBearerToken(r.Header.Get("Authorization"))
		if !ok {
			a.reject(w, r, ip, "missing or malformed bearer token")
			return
		}

		if !util.ConstantTimeEqual(token, a.masterKey) {
			key, err := a.keys.Lookup(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, apperrors.Database(err))
				return
			}
			if key == nil {
				a.reject(w, r, ip, "unknown api key")
				return
			}
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAdminDenied,
				KeyID:   key.ID,
				Details: map[string]interface{}{"reason": "stored key on admin route"},
			})
			httputil.WriteError(w, apperrors.Forbidden("Admin endpoints require the master key"))
			return
		}

		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), &Principal{Master: true})))
	})
}

func (a *Authorizer) lockedOut(w http.ResponseWriter, r *http.Request, ip string) bool {
	if !a.failures.Locked(ip) {
		return false
	}
	audit.LogFromRequest(r, audit.Event{Type: audit.EventIPLockedOut})
	httputil.WriteError(w, apperrors.IPLockedOut(a.failures.window))
	return true
}

func (a *Authorizer) reject(w http.ResponseWriter, r *http.Request, ip, reason string) {
	count := a.failures.Record(ip)
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventAuthFailure,
		Details: map[string]interface{}{"reason": reason, "failures": count},
	})
	httputil.WriteError(w, apperrors.InvalidAPIKey())
}

func withPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

func parseBearerToken(headerValue string) (string, bool) {
	parts := strings.Fields(strings.TrimSpace(headerValue))
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// isLoopbackPeer inspects the connection's remote address, never headers.
func isLoopbackPeer(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}
