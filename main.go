package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"library-backend/internal/catalog_mgmt/books"
	"library-backend/internal/catalog_mgmt/lends"
	"library-backend/internal/catalog_mgmt/scans"
	"library-backend/internal/members"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/vision"
)

func main() {
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if cfg.Mode != "dev" && cfg.Mode != "release" {
		fmt.Println("Usage: go run main.go [dev|release]")
		return
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("auth.jwt_secret must be set in config/config.yaml")
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		panic(err)
	}
	defer conn.Close()

	log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode == "dev" {
		// CORS is only needed while the frontend runs on its own port
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	bookSvc := books.NewService(conn)
	visionClient := vision.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)

	// /api/v1
	secret := []byte(cfg.Auth.JWTSecret)
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, auth.NewService(conn, secret))

	protected := api.Group("")
	protected.Use(auth.RequireAuth(secret))
	books.RegisterRoutes(protected, bookSvc)
	lends.RegisterRoutes(protected, lends.NewService(conn, bookSvc.Store()))
	scans.RegisterRoutes(protected, scans.NewService(conn, bookSvc.Store(), visionClient))
	members.RegisterRoutes(protected, members.NewService(conn))

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		if mode == "dev" && cfg.Certificate.Cert == "" {
			log.Printf("[INFO] listening on http://0.0.0.0%s", cfg.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal(err)
			}
			return
		}

		var certFile, keyFile string
		if mode == "dev" {
			certFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Cert)
			keyFile = fmt.Sprintf("config/tls/dev/%s", cfg.Certificate.Key)
		} else {
			certFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Cert)
			keyFile = fmt.Sprintf("config/tls/release/%s", cfg.Certificate.Key)
		}
		log.Printf("[INFO] listening on https://0.0.0.0%s", cfg.Addr)
		if err := srv.ListenAndServeTLS(certFile, keyFile); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
