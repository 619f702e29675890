package db

import (
	"errors"
	"net/url"
	"strings"
	"testing"
)

const validCreds = `{"username":"valhalla","password":"p@ss word"}`

func TestNewOptionsRejectsMissingSettings(t *testing.T) {
	tests := []struct {
		name     string
		creds    string
		host     string
		port     string
		database string
		setting  string
	}{
		{name: "missing credentials", host: "db", port: "5432", database: "valhalla", setting: "credentials"},
		{name: "missing host", creds: validCreds, port: "5432", database: "valhalla", setting: "host"},
		{name: "missing port", creds: validCreds, host: "db", database: "valhalla", setting: "port"},
		{name: "missing database", creds: validCreds, host: "db", port: "5432", setting: "database"},
		{name: "unparseable credentials", creds: "username=valhalla", host: "db", port: "5432", database: "valhalla", setting: "credentials"},
		{name: "credentials without password", creds: `{"username":"valhalla"}`, host: "db", port: "5432", database: "valhalla", setting: "credentials"},
		{name: "non numeric port", creds: validCreds, host: "db", port: "five", database: "valhalla", setting: "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := NewOptions(tt.creds, tt.host, tt.port, tt.database, "production")
			if err == nil {
				t.Fatalf("expected error, got options %+v", opts)
			}
			if opts != nil {
				t.Fatalf("expected no options on error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
			if cfgErr.Setting != tt.setting {
				t.Fatalf("expected setting %q, got %q", tt.setting, cfgErr.Setting)
			}
		})
	}
}

func TestNewOptionsValid(t *testing.T) {
	opts, err := NewOptions(validCreds, "db.internal", "5433", "valhalla", "production")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Credentials.Username != "valhalla" || opts.Credentials.Password != "p@ss word" {
		t.Fatalf("unexpected credentials: %+v", opts.Credentials)
	}
	if opts.Port != 5433 {
		t.Fatalf("expected port 5433, got %d", opts.Port)
	}
}

func TestTransportSecurityGating(t *testing.T) {
	tests := []struct {
		environment string
		sslMode     string
		verified    bool
	}{
		{environment: "development", sslMode: SSLModeDisable, verified: false},
		{environment: "production", sslMode: SSLModeVerifyFull, verified: true},
		{environment: "staging", sslMode: SSLModeVerifyFull, verified: true},
		{environment: "", sslMode: SSLModeVerifyFull, verified: true},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			opts, err := NewOptions(validCreds, "db", "5432", "valhalla", tt.environment)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if opts.SSLMode != tt.sslMode {
				t.Fatalf("expected sslmode %q, got %q", tt.sslMode, opts.SSLMode)
			}
			if opts.RequiresVerifiedTLS() != tt.verified {
				t.Fatalf("expected RequiresVerifiedTLS=%v", tt.verified)
			}
			if !strings.Contains(opts.DSN(), "sslmode="+tt.sslMode) {
				t.Fatalf("dsn %q does not carry sslmode %q", opts.DSN(), tt.sslMode)
			}
		})
	}
}

func TestDSNEscapesCredentials(t *testing.T) {
	opts, err := NewOptions(validCreds, "db.internal", "5432", "valhalla", "production")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := url.Parse(opts.DSN())
	if err != nil {
		t.Fatalf("dsn is not a valid url: %v", err)
	}
	password, _ := u.User.Password()
	if u.User.Username() != "valhalla" || password != "p@ss word" {
		t.Fatalf("credentials did not round trip: %v", u.User)
	}
	if u.Host != "db.internal:5432" || u.Path != "/valhalla" {
		t.Fatalf("unexpected host/path: %s %s", u.Host, u.Path)
	}
	if u.Query().Get("connect_timeout") != "10" {
		t.Fatalf("expected connect_timeout=10, got %q", u.Query().Get("connect_timeout"))
	}
}
