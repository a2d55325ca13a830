//	@title			Catalog API
//	@version		1.0
//	@description	Product catalog backend: products with stored images, categories, and accounts managed by a hosted auth provider.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token from the auth provider. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/catalog/service/internal/auth"
	"github.com/catalog/service/internal/category"
	"github.com/catalog/service/internal/config"
	"github.com/catalog/service/internal/db"
	appMiddleware "github.com/catalog/service/internal/middleware"
	"github.com/catalog/service/internal/product"
	"github.com/catalog/service/internal/storage"
	"github.com/catalog/service/internal/user"
	"github.com/catalog/service/internal/validation"

	_ "github.com/catalog/service/docs/swagger"
)

func main() {
	boot := logrus.New()
	cfg, err := config.Load(boot)
	if err != nil {
		boot.WithError(err).Fatal("invalid configuration")
	}
	log := cfg.NewLogger()

	// Prices render as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, log); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	blobs, err := storage.NewMinioStorage(ctx, storage.MinioOptions{
		Endpoint:   cfg.StorageEndpoint,
		AccessKey:  cfg.StorageAccessKey,
		SecretKey:  cfg.StorageSecretKey,
		Bucket:     cfg.StorageBucket,
		PublicBase: cfg.StoragePublicBase,
		UseSSL:     cfg.StorageUseSSL,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("object storage init failed")
	}

	validate := validation.New()

	// Wire dependencies: repository → service → handler
	provider := auth.NewGoTrueProvider(cfg.AuthURL, cfg.AuthAPIKey, &http.Client{Timeout: 10 * time.Second})
	authSvc := auth.NewService(provider, cfg.FrontendURL, log)
	authHandler := auth.NewHandler(authSvc, validate, log)
	requireAuth := appMiddleware.RequireAuth(authSvc, log)

	userSvc := user.NewService(user.NewRepository(pool))
	userHandler := user.NewHandler(userSvc, log)

	categoryRepo := category.NewRepository(pool)
	categorySvc := category.NewService(categoryRepo, log)
	categoryHandler := category.NewHandler(categorySvc, validate, log)

	productSvc := product.NewService(product.NewRepository(pool), categoryRepo, blobs, validate,
		product.Options{MaxImageBytes: cfg.MaxUploadBytes}, log)
	productHandler := product.NewHandler(productSvc, log)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.Post("/verify-token", authHandler.VerifyToken)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/signout", authHandler.SignOut)
			r.Get("/me", authHandler.Me)
		})
	})

	r.Route("/products", func(r chi.Router) {
		r.Post("/", productHandler.Create)
		r.Get("/", productHandler.List)
		r.Get("/{id}", productHandler.Get)
		r.Patch("/{id}", productHandler.Update)
		r.Delete("/{id}", productHandler.Delete)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", categoryHandler.Create)
		r.Get("/", categoryHandler.List)
		r.Get("/{id}", categoryHandler.Get)
		r.Patch("/{id}", categoryHandler.Update)
		r.Delete("/{id}", categoryHandler.Delete)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", userHandler.List)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.AppEnv}).Info("server listening")
		log.Infof("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-quit
	log.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}

	log.Info("server stopped")
}
