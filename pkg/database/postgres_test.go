package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/salescast/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxConns:        4,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 30 * time.Minute,
		},
	}
}

func TestNewAndHealthCheck(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, testConfig())
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	status, err := db.HealthCheck(ctx)
	if err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
	if !status.Healthy {
		t.Error("Expected database to be healthy")
	}
	if status.MaxConns != 4 {
		t.Errorf("Expected MaxConns 4, got %d", status.MaxConns)
	}
}

func TestNewWithInvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.Database.URL = "invalid://url"

	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("Expected error with invalid database URL, got nil")
	}
}

func TestCloseTwice(t *testing.T) {
	db := &DB{}
	db.Close()
	db.Close()
}
