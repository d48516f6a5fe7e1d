package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Upload.MaxFileSize != 104857600 {
		t.Errorf("Upload.MaxFileSize = %d, want %d", cfg.Upload.MaxFileSize, 104857600)
	}
	if cfg.Analysis.WeightColumn != "_LLCPWT" {
		t.Errorf("Analysis.WeightColumn = %q, want %q", cfg.Analysis.WeightColumn, "_LLCPWT")
	}
	if cfg.Analysis.RecodeRowLimit != 5000 {
		t.Errorf("Analysis.RecodeRowLimit = %d, want %d", cfg.Analysis.RecodeRowLimit, 5000)
	}
	if cfg.Analysis.MaxConcurrentFits != 4 {
		t.Errorf("Analysis.MaxConcurrentFits = %d, want %d", cfg.Analysis.MaxConcurrentFits, 4)
	}
	if cfg.Analysis.GLMMaxIter != 25 {
		t.Errorf("Analysis.GLMMaxIter = %d, want %d", cfg.Analysis.GLMMaxIter, 25)
	}
	if cfg.Analysis.GLMTolerance != 1e-8 {
		t.Errorf("Analysis.GLMTolerance = %v, want %v", cfg.Analysis.GLMTolerance, 1e-8)
	}
	if cfg.Rate.RequestsPerMinute != 100 {
		t.Errorf("Rate.RequestsPerMinute = %d, want %d", cfg.Rate.RequestsPerMinute, 100)
	}
	if len(cfg.Security.AllowedOrigins) != 1 || cfg.Security.AllowedOrigins[0] != "*" {
		t.Errorf("Security.AllowedOrigins = %v, want [*]", cfg.Security.AllowedOrigins)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("ANALYSIS_WEIGHT_COLUMN", "_FINALWT")
	os.Setenv("ANALYSIS_GLM_TOLERANCE", "1e-6")
	os.Setenv("LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("ANALYSIS_WEIGHT_COLUMN")
		os.Unsetenv("ANALYSIS_GLM_TOLERANCE")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Analysis.WeightColumn != "_FINALWT" {
		t.Errorf("Analysis.WeightColumn = %q, want %q", cfg.Analysis.WeightColumn, "_FINALWT")
	}
	if cfg.Analysis.GLMTolerance != 1e-6 {
		t.Errorf("Analysis.GLMTolerance = %v, want %v", cfg.Analysis.GLMTolerance, 1e-6)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_Duration(t *testing.T) {
	os.Setenv("SERVER_READ_TIMEOUT", "45s")
	os.Setenv("ANALYSIS_FIT_WAIT_TIME", "1m30s")
	defer func() {
		os.Unsetenv("SERVER_READ_TIMEOUT")
		os.Unsetenv("ANALYSIS_FIT_WAIT_TIME")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want %v", cfg.Server.ReadTimeout, 45*time.Second)
	}
	if cfg.Analysis.FitWaitTime != 90*time.Second {
		t.Errorf("Analysis.FitWaitTime = %v, want %v", cfg.Analysis.FitWaitTime, 90*time.Second)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	os.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ")
	defer os.Unsetenv("CORS_ALLOWED_ORIGINS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Security.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %v, want %v", cfg.Security.AllowedOrigins, want)
	}
	for i, origin := range want {
		if cfg.Security.AllowedOrigins[i] != origin {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, cfg.Security.AllowedOrigins[i], origin)
		}
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"bad port", "SERVER_PORT", "99999"},
		{"non-numeric port", "SERVER_PORT", "eighty"},
		{"bad duration", "SERVER_READ_TIMEOUT", "soon"},
		{"bad float", "ANALYSIS_GLM_TOLERANCE", "tiny"},
		{"zero row limit", "ANALYSIS_RECODE_ROW_LIMIT", "0"},
		{"bad log level", "LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv(tt.env, tt.value)
			defer os.Unsetenv(tt.env)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s expected error", tt.env, tt.value)
			}
		})
	}
}

func TestServerConfig_Addr(t *testing.T) {
	c := ServerConfig{Host: "127.0.0.1", Port: 9000}
	if got := c.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q", got)
	}

	c = ServerConfig{Port: 8080}
	if got := c.Addr(); got != ":8080" {
		t.Errorf("Addr() with empty host = %q", got)
	}
}

func TestConfig_String_Masked(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	s := cfg.String()
	if !strings.Contains(s, "WeightColumn") {
		t.Errorf("String() missing analysis summary: %s", s)
	}
}
