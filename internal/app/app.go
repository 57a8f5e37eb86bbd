package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/tvpanel/tvpanel/internal/config"
	"github.com/tvpanel/tvpanel/internal/db"
	"github.com/tvpanel/tvpanel/internal/http/api/panel"
	"github.com/tvpanel/tvpanel/internal/http/api/panel/handlers"
	"github.com/tvpanel/tvpanel/internal/logging"
	"github.com/tvpanel/tvpanel/internal/models"
	"github.com/tvpanel/tvpanel/internal/security"
	"github.com/tvpanel/tvpanel/internal/session"
	"github.com/tvpanel/tvpanel/internal/settings"
	"gorm.io/gorm"
)

const (
	shutdownTimeout    = 10 * time.Second
	redisSessionPrefix = "tvpanel:session:"
)

// CreateAdminParams holds inputs for admin account creation.
type CreateAdminParams struct {
	Username string
	Password string
}

// Migrate opens the database, runs migrations and seeds defaults.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conf, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return err
	}
	conn, err := openDatabase(ctx, conf)
	if err != nil {
		return err
	}
	return closeDatabase(conn)
}

// CreateAdmin creates an admin account, or resets its password when the
// username already exists.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, params CreateAdminParams) error {
	username := strings.TrimSpace(params.Username)
	if username == "" || params.Password == "" {
		return errors.New("admin username and password are required")
	}
	conf, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return err
	}
	conn, err := openDatabase(ctx, conf)
	if err != nil {
		return err
	}
	defer func() { _ = closeDatabase(conn) }()

	hash, errHash := security.HashPassword(params.Password)
	if errHash != nil {
		return fmt.Errorf("hash admin password: %w", errHash)
	}
	res := conn.WithContext(ctx).Model(&models.Admin{}).
		Where("username = ?", username).
		Updates(map[string]any{"password": hash, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("update admin: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.WithField("username", username).Info("admin password reset")
		return nil
	}
	if errCreate := conn.WithContext(ctx).Create(&models.Admin{Username: username, Password: hash}).Error; errCreate != nil {
		return fmt.Errorf("create admin: %w", errCreate)
	}
	log.WithField("username", username).Info("admin created")
	return nil
}

// RunServer boots the panel HTTP server and blocks until ctx is done.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(conf.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()
	if !config.ConfigExists(configPath) {
		log.WithField("path", configPath).Warn("config file not found, using defaults and environment")
	}

	loc, err := conf.Location()
	if err != nil {
		return err
	}
	conn, err := openDatabase(ctx, conf)
	if err != nil {
		return err
	}
	defer func() { _ = closeDatabase(conn) }()

	sessions, closeSessions, err := buildSessionStore(ctx, conn, conf.Session)
	if err != nil {
		return err
	}
	defer closeSessions()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logging.RequestLogger())
	if corsMiddleware := buildCORS(conf.Server.CORSOrigins); corsMiddleware != nil {
		engine.Use(corsMiddleware)
	}
	panel.RegisterPanelRoutes(engine, panel.Options{
		DB:       conn,
		Sessions: sessions,
		Session: handlers.SessionOptions{
			CookieName: conf.Session.CookieName,
			TTL:        conf.Session.TTL,
			Secure:     conf.Server.SecureCookies,
			JWTSecret:  conf.Session.JWTSecret,
			JWTTTL:     conf.Session.JWTTTL,
		},
		Location: loc,
	})

	srv := &http.Server{
		Addr:              conf.Server.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Infof("starting panel on %s (config=%s)", conf.Server.Addr, configPath)
		if errServe := srv.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			serveErr <- errServe
		}
		close(serveErr)
	}()

	select {
	case errServe := <-serveErr:
		return errServe
	case <-ctx.Done():
	}
	log.Info("shutting down panel")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown server: %w", errShutdown)
	}
	return nil
}

// openDatabase connects, migrates and seeds the panel database.
func openDatabase(ctx context.Context, conf config.Config) (*gorm.DB, error) {
	loc, err := conf.Location()
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(conf.Database.DSN, loc)
	if err != nil {
		return nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		_ = closeDatabase(conn)
		return nil, errMigrate
	}
	errSeed := db.Seed(ctx, conn, db.SeedOptions{
		AdminUsername: conf.Bootstrap.AdminUsername,
		AdminPassword: conf.Bootstrap.AdminPassword,
		Settings:      settings.Defaults(),
	})
	if errSeed != nil {
		_ = closeDatabase(conn)
		return nil, errSeed
	}
	if purged, errPurge := session.NewDBStore(conn).PurgeExpired(ctx, time.Now().UTC()); errPurge != nil {
		log.WithError(errPurge).Warn("purge expired sessions")
	} else if purged > 0 {
		log.WithField("count", purged).Info("purged expired sessions")
	}
	return conn, nil
}

func closeDatabase(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// buildSessionStore returns the configured session backend and its cleanup.
func buildSessionStore(ctx context.Context, conn *gorm.DB, conf config.SessionConfig) (session.Store, func(), error) {
	if conf.Backend == config.SessionBackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		if errPing := client.Ping(ctx).Err(); errPing != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", conf.Redis.Addr, errPing)
		}
		log.WithField("addr", conf.Redis.Addr).Info("using redis session store")
		return session.NewRedisStore(client, redisSessionPrefix), func() { _ = client.Close() }, nil
	}

	store := session.NewDBStore(conn)
	cleanerCtx, cancel := context.WithCancel(ctx)
	session.NewExpiredSessionCleaner(store).Start(cleanerCtx)
	return store, cancel, nil
}

// buildCORS returns the CORS middleware for origins, or nil when none are configured.
func buildCORS(origins []string) gin.HandlerFunc {
	allowed := make([]string, 0, len(origins))
	wildcard := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			wildcard = true
		default:
			allowed = append(allowed, origin)
		}
	}
	if !wildcard && len(allowed) == 0 {
		return nil
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", logging.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{logging.RequestIDHeader}
	if wildcard {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowed
		corsConfig.AllowCredentials = true
	}
	return cors.New(corsConfig)
}
