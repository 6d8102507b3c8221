package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	os.Setenv("MONGODB_DATABASE", "pulse_test")
	os.Setenv("REDIS_HOST", "localhost")
	os.Setenv("REDIS_PORT", "6379")
	os.Setenv("JWT_SECRET", "testsecret123456789012345678901234")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.MongoDB.Database != "pulse_test" {
		t.Fatalf("unexpected database: %s", cfg.MongoDB.Database)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.JWT.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected access token TTL: %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Fatalf("unexpected bcrypt cost: %d", cfg.Auth.BcryptCost)
	}
	if cfg.MinIO.Bucket != "pulse-attachments" {
		t.Fatalf("unexpected bucket default: %s", cfg.MinIO.Bucket)
	}
}
