package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"aptisurvey/internal/app"
	"aptisurvey/internal/db"
)

func main() {
	cfg := app.LoadConfig()

	dbConn, err := db.OpenWithConfig(context.Background(), db.Driver(cfg.DBDriver), cfg.DBDSN, db.Config{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifeMins) * time.Minute,
	})
	if err != nil {
		log.Printf("database error: %v", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	authSvc := app.NewAuthService(cfg, dbConn)
	if err := authSvc.Bootstrap(context.Background()); err != nil {
		log.Printf("bootstrap admin error: %v", err)
		os.Exit(1)
	}

	r := app.NewRouter(cfg, dbConn, authSvc)

	log.Printf("aptisurvey web listening on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Printf("server stopped: %v", err)
		os.Exit(1)
	}
}
