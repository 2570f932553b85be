package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_PASSWORD", "test")
	t.Setenv("FIREBASE_PROJECT_ID", "labsy-test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	durations := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"WriteTimeout", cfg.Server.WriteTimeout, 60 * time.Second},
		{"IdleTimeout", cfg.Server.IdleTimeout, 60 * time.Second},
		{"JWKS refresh", cfg.Firebase.RefreshInterval, time.Hour},
		{"PurgeAfter", cfg.Catalog.PurgeAfter, 0},
	}
	for _, tt := range durations {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Storage.Driver != "local" {
		t.Errorf("Storage.Driver = %q, want local", cfg.Storage.Driver)
	}
	if cfg.Server.AuthRateLimitPerMinute != 20 {
		t.Errorf("AuthRateLimitPerMinute = %d, want 20", cfg.Server.AuthRateLimitPerMinute)
	}
	if cfg.Uploads.MaxPictureBytes != 10<<20 {
		t.Errorf("MaxPictureBytes = %d, want %d", cfg.Uploads.MaxPictureBytes, 10<<20)
	}
	if cfg.Uploads.PictureMaxDimension != 512 {
		t.Errorf("PictureMaxDimension = %d, want 512", cfg.Uploads.PictureMaxDimension)
	}
	if cfg.Uploads.MaxPicturePixels != 40_000_000 {
		t.Errorf("MaxPicturePixels = %d, want 40000000", cfg.Uploads.MaxPicturePixels)
	}
	if !cfg.Database.AutoMigrate {
		t.Error("AutoMigrate should default to true")
	}
	if got := cfg.Firebase.Issuer(); got != "https://securetoken.google.com/labsy-test" {
		t.Errorf("Issuer() = %q", got)
	}
}

func TestLoad_RequiredValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing db password",
			env:     map[string]string{"FIREBASE_PROJECT_ID": "p"},
			wantErr: "DB_PASSWORD",
		},
		{
			name:    "missing firebase project",
			env:     map[string]string{"DB_PASSWORD": "x"},
			wantErr: "FIREBASE_PROJECT_ID",
		},
		{
			name:    "s3 without bucket",
			env:     map[string]string{"DB_PASSWORD": "x", "FIREBASE_PROJECT_ID": "p", "STORAGE_DRIVER": "s3"},
			wantErr: "STORAGE_BUCKET",
		},
		{
			name:    "unknown storage driver",
			env:     map[string]string{"DB_PASSWORD": "x", "FIREBASE_PROJECT_ID": "p", "STORAGE_DRIVER": "gcs"},
			wantErr: "STORAGE_DRIVER",
		},
		{
			name: "purge without interval",
			env: map[string]string{
				"DB_PASSWORD": "x", "FIREBASE_PROJECT_ID": "p",
				"CATALOG_PURGE_AFTER": "720h", "CATALOG_PURGE_INTERVAL": "0s",
			},
			wantErr: "CATALOG_PURGE_INTERVAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_PASSWORD", "")
			t.Setenv("FIREBASE_PROJECT_ID", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() = nil, want error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout with invalid value: got %v, want %v", cfg.Server.ReadTimeout, 15*time.Second)
	}
}

func TestLoad_S3Storage(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("STORAGE_BUCKET", "labsy-media")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "https://cdn.labsy.app/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Storage.Driver != "s3" {
		t.Errorf("Driver = %q, want s3", cfg.Storage.Driver)
	}
	if cfg.Storage.PublicBaseURL != "https://cdn.labsy.app" {
		t.Errorf("PublicBaseURL = %q, trailing slash should be trimmed", cfg.Storage.PublicBaseURL)
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.1 , ,10.0.0.0/8,")

	got := getEnvAsSlice("TRUSTED_PROXIES", nil)
	want := []string{"10.0.0.1", "10.0.0.0/8"}

	if len(got) != len(want) {
		t.Fatalf("getEnvAsSlice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("getEnvAsSlice()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseAllowedOrigins_Production(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://labsy.app, https://admin.labsy.app")

	origins := parseAllowedOrigins("production")

	if len(origins) != 2 || origins[1] != "https://admin.labsy.app" {
		t.Errorf("parseAllowedOrigins(production) = %v", origins)
	}
}

func TestParseAllowedOrigins_ProductionEmpty(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "")

	origins := parseAllowedOrigins("production")

	if origins == nil || len(origins) != 0 {
		t.Errorf("parseAllowedOrigins(production) = %v, want empty non-nil", origins)
	}
}
