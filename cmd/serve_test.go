package cmd

import (
	"testing"
)

func TestResolveHTTPAddr(t *testing.T) {
	tests := []struct {
		name     string
		addr     string
		port     int
		expected string
	}{
		{
			name:     "explicit address wins",
			addr:     "127.0.0.1:8080",
			port:     4000,
			expected: "127.0.0.1:8080",
		},
		{
			name:     "falls back to configured port",
			addr:     "",
			port:     4000,
			expected: ":4000",
		},
		{
			name:     "custom port",
			addr:     "",
			port:     8443,
			expected: ":8443",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := resolveHTTPAddr(tt.addr, tt.port)
			if result != tt.expected {
				t.Errorf("resolveHTTPAddr(%q, %d) = %q, want %q", tt.addr, tt.port, result, tt.expected)
			}
		})
	}
}

func TestLoadMetricsEnvVars(t *testing.T) {
	t.Run("env overrides defaults", func(t *testing.T) {
		t.Setenv("METRICS_ENABLED", "false")
		t.Setenv("METRICS_ADDR", ":9191")

		cmd := newServeCmd()
		config := MetricsConfig{Enabled: true, Addr: ":9090"}
		loadMetricsEnvVars(cmd, &config)

		if config.Enabled {
			t.Error("expected metrics to be disabled by METRICS_ENABLED=false")
		}
		if config.Addr != ":9191" {
			t.Errorf("expected addr :9191, got %s", config.Addr)
		}
	})

	t.Run("explicit flags win over env", func(t *testing.T) {
		t.Setenv("METRICS_ENABLED", "false")
		t.Setenv("METRICS_ADDR", ":9191")

		cmd := newServeCmd()
		if err := cmd.Flags().Set("metrics-enabled", "true"); err != nil {
			t.Fatalf("failed to set flag: %v", err)
		}
		if err := cmd.Flags().Set("metrics-addr", ":9300"); err != nil {
			t.Fatalf("failed to set flag: %v", err)
		}

		config := MetricsConfig{Enabled: true, Addr: ":9300"}
		loadMetricsEnvVars(cmd, &config)

		if !config.Enabled {
			t.Error("expected metrics to stay enabled")
		}
		if config.Addr != ":9300" {
			t.Errorf("expected addr :9300, got %s", config.Addr)
		}
	})

	t.Run("invalid boolean is ignored", func(t *testing.T) {
		t.Setenv("METRICS_ENABLED", "maybe")
		t.Setenv("METRICS_ADDR", "")

		cmd := newServeCmd()
		config := MetricsConfig{Enabled: true, Addr: ":9090"}
		loadMetricsEnvVars(cmd, &config)

		if !config.Enabled {
			t.Error("expected metrics to stay enabled")
		}
		if config.Addr != ":9090" {
			t.Errorf("expected addr :9090, got %s", config.Addr)
		}
	})
}

func TestLoadLogFormatEnvVar(t *testing.T) {
	t.Run("env applies when flag not set", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "json")

		cmd := newServeCmd()
		format := "text"
		loadLogFormatEnvVar(cmd, &format)

		if format != "json" {
			t.Errorf("expected json, got %s", format)
		}
	})

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "json")

		cmd := newServeCmd()
		if err := cmd.Flags().Set("log-format", "text"); err != nil {
			t.Fatalf("failed to set flag: %v", err)
		}
		format := "text"
		loadLogFormatEnvVar(cmd, &format)

		if format != "text" {
			t.Errorf("expected text, got %s", format)
		}
	})
}

func TestServeCmdDefaults(t *testing.T) {
	cmd := newServeCmd()

	tests := []struct {
		flag     string
		expected string
	}{
		{flag: "config", expected: ""},
		{flag: "http-addr", expected: ""},
		{flag: "debug", expected: "false"},
		{flag: "log-format", expected: "text"},
		{flag: "metrics-enabled", expected: "true"},
		{flag: "metrics-addr", expected: ":9090"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := cmd.Flags().Lookup(tt.flag)
			if f == nil {
				t.Fatalf("flag --%s not registered", tt.flag)
			}
			if f.DefValue != tt.expected {
				t.Errorf("flag --%s default = %q, want %q", tt.flag, f.DefValue, tt.expected)
			}
		})
	}
}
