package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/tradelog/backend/src/config"
	"github.com/username/tradelog/backend/src/database"
	"github.com/username/tradelog/backend/src/handlers"
	"github.com/username/tradelog/backend/src/logger"
	"github.com/username/tradelog/backend/src/parsers"
	"github.com/username/tradelog/backend/src/security"
	"github.com/username/tradelog/backend/src/services"
	"github.com/username/tradelog/backend/src/utils"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("TradeLog backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}
	if len(config.Cfg.CSRFAuthKey) < 32 {
		logger.L.Error("CSRF_AUTH_KEY must be at least 32 bytes long.")
		os.Exit(1)
	}

	if err := utils.EnsureDirectoryExists(config.Cfg.UploadDir); err != nil {
		logger.L.Error("Failed to create upload directory", "dir", config.Cfg.UploadDir, "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing stats cache...")
	statsCache := cache.New(15*time.Minute, 30*time.Minute)

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()
	userHandler := handlers.NewUserHandler(authService, emailService)

	csvParser := parsers.NewCSVParser()
	tradeService := services.NewTradeService(database.DB, statsCache)
	importService := services.NewImportService(database.DB, csvParser, statsCache)
	statsService := services.NewStatsService(database.DB, statsCache)

	tradeHandler := handlers.NewTradeHandler(tradeService)
	importHandler := handlers.NewImportHandler(importService)
	imageHandler := handlers.NewImageHandler(tradeService)
	statsHandler := handlers.NewStatsHandler(statsService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	// Public GET routes (no CSRF needed for these GETs)
	apiRouter.HandleFunc("GET /api/auth/csrf", handlers.GetCSRFToken)
	apiRouter.HandleFunc("GET /api/auth/verify-email", userHandler.VerifyEmailHandler)

	// Auth actions router - POST routes generally need CSRF
	authActionRouter := http.NewServeMux()
	authActionRouter.HandleFunc("POST /login", userHandler.LoginUserHandler)
	authActionRouter.HandleFunc("POST /register", userHandler.RegisterUserHandler)
	authActionRouter.HandleFunc("POST /refresh", userHandler.RefreshTokenHandler)
	authActionRouter.HandleFunc("POST /logout", userHandler.AuthMiddleware(userHandler.LogoutUserHandler))
	authActionRouter.HandleFunc("POST /request-password-reset", userHandler.RequestPasswordResetHandler)
	authActionRouter.HandleFunc("POST /reset-password", userHandler.ResetPasswordHandler)

	csrfProtection := handlers.CSRFMiddleware()
	apiRouter.Handle("/api/auth/", http.StripPrefix("/api/auth", csrfProtection(authActionRouter)))

	applyCsrfAndAuth := func(handler http.HandlerFunc) http.Handler {
		return csrfProtection(http.HandlerFunc(userHandler.AuthMiddleware(handler)))
	}

	apiRouter.Handle("GET /api/trades", applyCsrfAndAuth(tradeHandler.HandleListTrades))
	apiRouter.Handle("POST /api/trades", applyCsrfAndAuth(tradeHandler.HandleCreateTrade))
	apiRouter.Handle("GET /api/trades/symbols", applyCsrfAndAuth(tradeHandler.HandleGetSymbols))
	apiRouter.Handle("GET /api/trades/{id}", applyCsrfAndAuth(tradeHandler.HandleGetTrade))
	apiRouter.Handle("PUT /api/trades/{id}", applyCsrfAndAuth(tradeHandler.HandleUpdateTrade))
	apiRouter.Handle("DELETE /api/trades/{id}", applyCsrfAndAuth(tradeHandler.HandleDeleteTrade))

	apiRouter.Handle("POST /api/trades/import", applyCsrfAndAuth(importHandler.HandleImport))
	apiRouter.Handle("POST /api/trades/import/preview", applyCsrfAndAuth(importHandler.HandlePreview))

	apiRouter.Handle("POST /api/trades/{id}/images", applyCsrfAndAuth(imageHandler.HandleUploadImages))
	apiRouter.Handle("DELETE /api/trades/{id}/images", applyCsrfAndAuth(imageHandler.HandleDeleteAllImages))
	apiRouter.Handle("DELETE /api/trades/{id}/images/{imageID}", applyCsrfAndAuth(imageHandler.HandleDeleteImage))

	apiRouter.Handle("GET /api/stats", applyCsrfAndAuth(statsHandler.HandleGetGeneralStats))
	apiRouter.Handle("GET /api/stats/by-symbol", applyCsrfAndAuth(statsHandler.HandleGetStatsBySymbol))
	apiRouter.Handle("GET /api/stats/by-date", applyCsrfAndAuth(statsHandler.HandleGetStatsByDateRange))
	apiRouter.Handle("GET /api/stats/daily-pnl", applyCsrfAndAuth(statsHandler.HandleGetDailyPnL))
	apiRouter.Handle("GET /api/stats/by-type", applyCsrfAndAuth(statsHandler.HandleGetStatsByTradeType))
	apiRouter.Handle("GET /api/stats/top-trades", applyCsrfAndAuth(statsHandler.HandleGetTopTrades))

	rootMux.Handle("/api/", apiRouter)

	// Stored trade screenshots. Filenames are generated server side, so no
	// user-controlled paths reach the filesystem here.
	uploadsFS := http.FileServer(http.Dir(config.Cfg.UploadDir))
	rootMux.Handle("GET /uploads/", http.StripPrefix("/uploads/", uploadsFS))

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "TradeLog backend is running"})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
