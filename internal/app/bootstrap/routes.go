// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"strings"

	areasfeature "github.com/dalemusser/fieldhub/internal/app/features/areas"
	camerasfeature "github.com/dalemusser/fieldhub/internal/app/features/cameras"
	communitiesfeature "github.com/dalemusser/fieldhub/internal/app/features/communities"
	healthfeature "github.com/dalemusser/fieldhub/internal/app/features/health"
	markersfeature "github.com/dalemusser/fieldhub/internal/app/features/markers"
	photosfeature "github.com/dalemusser/fieldhub/internal/app/features/photos"
	sightingsfeature "github.com/dalemusser/fieldhub/internal/app/features/sightings"
	usersfeature "github.com/dalemusser/fieldhub/internal/app/features/users"
	"github.com/dalemusser/fieldhub/internal/app/store/queries/areastats"
	"github.com/dalemusser/fieldhub/internal/app/system/auth"
	"github.com/dalemusser/fieldhub/internal/app/system/metrics"
	"github.com/dalemusser/fieldhub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// devIdentitySecret signs and verifies tokens in dev when no secret is
// configured. ValidateConfig refuses to start without one anywhere else.
const devIdentitySecret = "dev-only-identity-secret-change-me-0123456789"

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// /health and /metrics are open. Everything else is the JSON API and needs a
// bearer token from the identity provider; feature routers add role checks
// on their write routes.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	scope, err := areastats.ParseScope(appCfg.StatsScope)
	if err != nil {
		return nil, err
	}

	secret := appCfg.IdentitySecret
	if secret == "" {
		logger.Warn("identity_secret not set; using the development key")
		secret = devIdentitySecret
	}
	verifier := auth.NewVerifier(secret, appCfg.IdentityIssuer, logger)

	// One runner for the process so the standalone-server check happens once.
	runner := txn.New(deps.MongoClient, logger)
	db := deps.MongoDatabase

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", metrics.Handler())

	// Locally stored images
	if appCfg.StorageType == "local" && appCfg.StorageLocalURL != "" {
		prefix := "/" + strings.Trim(appCfg.StorageLocalURL, "/")
		r.Handle(prefix+"/*", fileserver.Handler(prefix, appCfg.StorageLocalPath))
	}

	r.Group(func(api chi.Router) {
		api.Use(verifier.Middleware)

		usersHandler := usersfeature.NewHandler(db, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler))

		markersHandler := markersfeature.NewHandler(db, scope, logger)
		api.Mount("/markers", markersfeature.Routes(markersHandler))

		camerasHandler := camerasfeature.NewHandler(db, runner, logger)
		api.Mount("/cameras", camerasfeature.Routes(camerasHandler))

		sightingsHandler := sightingsfeature.NewHandler(db, runner, deps.Blob, appCfg.MaxUploadMB, logger)
		api.Mount("/sightings", sightingsfeature.Routes(sightingsHandler))

		photosHandler := photosfeature.NewHandler(deps.Blob, appCfg.MaxUploadMB, logger)
		api.Mount("/photos", photosfeature.Routes(photosHandler))

		areasHandler := areasfeature.NewHandler(db, runner, scope, logger)
		api.Mount("/areas", areasfeature.Routes(areasHandler))

		communitiesHandler := communitiesfeature.NewHandler(db, runner, communitiesfeature.Options{
			CodeLength:    appCfg.JoinCodeLength,
			CodeAttempts:  appCfg.JoinCodeAttempts,
			JoinPerMinute: appCfg.JoinRateLimit,
			MaxUploadMB:   appCfg.MaxUploadMB,
			Blob:          deps.Blob,
		}, logger)
		api.Mount("/communities", communitiesfeature.Routes(communitiesHandler))
	})

	logger.Info("routes built",
		zap.String("stats_scope", string(scope)),
		zap.Strings("cors_origins", appCfg.CORSAllowedOrigins),
	)
	return r, nil
}
