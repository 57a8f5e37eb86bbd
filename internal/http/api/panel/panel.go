// Package panel registers the admin panel JSON API.
package panel

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tvpanel/tvpanel/internal/activity"
	"github.com/tvpanel/tvpanel/internal/dashboard"
	"github.com/tvpanel/tvpanel/internal/http/api/panel/handlers"
	"github.com/tvpanel/tvpanel/internal/metrics"
	"github.com/tvpanel/tvpanel/internal/policy"
	"github.com/tvpanel/tvpanel/internal/records"
	"github.com/tvpanel/tvpanel/internal/security"
	"github.com/tvpanel/tvpanel/internal/session"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options wires the panel API to its dependencies.
type Options struct {
	DB       *gorm.DB
	Sessions session.Store
	Session  handlers.SessionOptions
	Location *time.Location   // Fallback timezone when the timezone setting is absent; also the database connection zone.
	Now      func() time.Time // Nil uses time.Now.
}

// RegisterPanelRoutes registers the panel API on r.
func RegisterPanelRoutes(r *gin.Engine, opts Options) {
	if r == nil || opts.DB == nil || opts.Sessions == nil {
		return
	}

	clock := handlers.NewClock(opts.DB, opts.Now, opts.Location)
	engine := policy.New(nil)
	store := records.NewStore(opts.DB).WithLocation(opts.Location)
	recorder := activity.NewRecorder(opts.DB)

	healthHandler := handlers.NewHealthHandler(opts.DB, clock)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")

	authHandler := handlers.NewAuthHandler(opts.DB, opts.Sessions, opts.Session, recorder, clock)
	api.POST("/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(sessionAuthMiddleware(opts.Sessions, opts.Session))

	authed.POST("/logout", authHandler.Logout)
	authed.GET("/me", authHandler.Me)

	recordsHandler := handlers.NewRecordsHandler(engine, store, recorder, clock)
	clientsHandler := handlers.NewClientsHandler(engine, store, recorder, clock)
	dashboardHandler := handlers.NewDashboardHandler(dashboard.NewAggregator(opts.DB), clock)

	legacy(authed, http.MethodPost, "/update", recordsHandler.Update)
	legacy(authed, http.MethodPost, "/delete", recordsHandler.Delete)
	legacy(authed, http.MethodPost, "/add-client", clientsHandler.AddClient)
	legacy(authed, http.MethodGet, "/dashboard-stats", dashboardHandler.Stats)
	legacy(authed, http.MethodGet, "/generate-password", handlers.GeneratePassword)

	authed.GET("/records/:table", recordsHandler.List)
	authed.POST("/records/:table", recordsHandler.Create)
	authed.POST("/records/:table/import", recordsHandler.Import)
	authed.POST("/clients/:id/extend", clientsHandler.Extend)
	authed.GET("/client-status", clientsHandler.Status)

	mfaHandler := handlers.NewMFAHandler(opts.DB, clock)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)
}

// legacy registers path and its ".php" alias for every method, so that
// unauthenticated calls get 401 before a wrong method gets 405.
func legacy(g *gin.RouterGroup, method, path string, handler gin.HandlerFunc) {
	guarded := []gin.HandlerFunc{requireMethod(method), handler}
	g.Any(path, guarded...)
	g.Any(path+".php", guarded...)
}

// requireMethod rejects requests whose method is not method.
func requireMethod(method string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == method {
			c.Next()
			return
		}
		c.Header("Allow", method)
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": handlers.MsgMethodNotAllowed})
	}
}

// sessionAuthMiddleware resolves the session cookie, a bearer session token or
// a bearer JWT into the request principal.
func sessionAuthMiddleware(store session.Store, opts handlers.SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var (
			p  session.Principal
			ok bool
		)
		if token := handlers.RequestSessionToken(c, opts.CookieName); token != "" {
			found, exists, errLookup := store.Lookup(ctx, token)
			if errLookup != nil {
				log.WithError(errLookup).Error("session lookup failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": handlers.MsgServerError})
				return
			}
			p, ok = found, exists
		}
		if !ok && opts.JWTSecret != "" {
			if bearer := handlers.BearerToken(c); bearer != "" && !security.IsSessionToken(bearer) {
				claims, errJWT := security.ParseAdminToken(opts.JWTSecret, bearer)
				if errJWT == nil {
					p = session.Principal{AdminID: claims.AdminID, Username: strings.TrimSpace(claims.Username)}
					ok = p.Valid()
				}
			}
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": handlers.MsgUnauthorized})
			return
		}

		c.Set("adminID", p.AdminID)
		c.Set("adminUsername", p.Username)
		c.Request = c.Request.WithContext(session.WithPrincipal(ctx, p))
		c.Next()
	}
}
