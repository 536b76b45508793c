package handlers

import (
	"context"
	"net/http"
	"time"

	"mmanyinorie/internal/metrics"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Routes holds every handler the server mounts
type Routes struct {
	Middleware  *Middleware
	Auth        *AuthHandler
	Communities *CommunityHandler
	Invitations *InvitationHandler
	Events      *EventsHandler
	Metrics     *metrics.Metrics
	DB          Pinger
}

// Handler builds the ServeMux and wraps it with request logging and,
// when configured, request metrics.
func (rt Routes) Handler() http.Handler {
	mw := rt.Middleware
	auth := mw.RequireAuth
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", rt.health)
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", rt.Metrics.Handler())
	}

	// Auth
	mux.HandleFunc("POST /api/auth/register", mw.RateLimit(rt.Auth.Register))
	mux.HandleFunc("POST /api/auth/login", mw.RateLimit(rt.Auth.Login))
	mux.HandleFunc("POST /api/auth/logout", auth(rt.Auth.Logout))
	mux.HandleFunc("GET /api/auth/me", auth(rt.Auth.Me))
	mux.HandleFunc("GET /api/auth/providers", rt.Auth.OAuthProviders)
	mux.HandleFunc("GET /auth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", rt.Auth.OAuthCallback)

	// Profile and files
	mux.HandleFunc("PUT /api/profile", auth(rt.Auth.UpdateProfile))
	mux.HandleFunc("POST /api/profile/avatar", auth(rt.Auth.UploadAvatar))
	mux.HandleFunc("GET /files/avatars/{uid}", rt.Auth.ServeAvatar)

	// Communities
	c := rt.Communities
	mux.HandleFunc("POST /api/communities", auth(c.CreateCommunity))
	mux.HandleFunc("GET /api/communities", auth(c.ListCommunities))
	mux.HandleFunc("GET /api/communities/{cid}/settings", auth(c.GetSettings))
	mux.HandleFunc("PUT /api/communities/{cid}/settings", auth(c.UpdateSettings))
	mux.HandleFunc("POST /api/communities/{cid}/recalculate", auth(c.Recalculate))
	mux.HandleFunc("GET /api/communities/{cid}/report", auth(c.Report))

	mux.HandleFunc("GET /api/communities/{cid}/members", auth(c.ListMembers))
	mux.HandleFunc("POST /api/communities/{cid}/members", auth(c.AddMember))
	mux.HandleFunc("GET /api/communities/{cid}/members/{mid}", auth(c.GetMember))
	mux.HandleFunc("PUT /api/communities/{cid}/members/{mid}", auth(c.UpdateMember))
	mux.HandleFunc("DELETE /api/communities/{cid}/members/{mid}", auth(c.DeleteMember))
	mux.HandleFunc("GET /api/communities/{cid}/members/{mid}/ledger", auth(c.Ledger))
	mux.HandleFunc("POST /api/communities/{cid}/members/{mid}/payments", auth(c.RecordPayment))
	mux.HandleFunc("PUT /api/communities/{cid}/members/{mid}/payments/{pid}", auth(c.UpdatePayment))
	mux.HandleFunc("DELETE /api/communities/{cid}/members/{mid}/payments/{pid}", auth(c.DeletePayment))

	mux.HandleFunc("GET /api/communities/{cid}/families", auth(c.ListFamilies))
	mux.HandleFunc("POST /api/communities/{cid}/families", auth(c.AddFamily))
	mux.HandleFunc("PUT /api/communities/{cid}/families/{fid}", auth(c.UpdateFamily))
	mux.HandleFunc("DELETE /api/communities/{cid}/families/{fid}", auth(c.DeleteFamily))

	mux.HandleFunc("GET /api/communities/{cid}/contributions", auth(c.ListContributions))
	mux.HandleFunc("POST /api/communities/{cid}/contributions", auth(c.AddContribution))
	mux.HandleFunc("PUT /api/communities/{cid}/contributions/{id}", auth(c.UpdateContribution))
	mux.HandleFunc("DELETE /api/communities/{cid}/contributions/{id}", auth(c.DeleteContribution))

	mux.HandleFunc("GET /api/communities/{cid}/events", auth(rt.Events.Stream))

	// Invitations
	inv := rt.Invitations
	mux.HandleFunc("POST /api/communities/{cid}/invitations", auth(inv.Create))
	mux.HandleFunc("GET /api/communities/{cid}/invitations", auth(inv.List))
	mux.HandleFunc("DELETE /api/communities/{cid}/invitations/{token}", auth(inv.Revoke))
	mux.HandleFunc("GET /api/invitations/{token}", inv.Get)
	mux.HandleFunc("GET /invite/{token}", inv.Get)
	mux.HandleFunc("POST /api/invitations/{token}/accept", auth(inv.Accept))

	var handler http.Handler = mux
	if rt.Metrics != nil {
		handler = rt.Metrics.Middleware(handler)
	}
	return Logging(handler)
}

func (rt Routes) health(w http.ResponseWriter, r *http.Request) {
	if rt.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.DB.PingContext(ctx); err != nil {
			respondWithError(w, http.StatusServiceUnavailable, "database unavailable", "Health check failed", err)
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
