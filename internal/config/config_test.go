package config

import "testing"

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFromExplicitValues(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PORT":      "9000",
		"LOG_LEVEL": "debug",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadFromInvalidPort(t *testing.T) {
	cases := []string{"not-a-port", "0", "70000", "-1"}
	for _, port := range cases {
		t.Run(port, func(t *testing.T) {
			if _, err := LoadFrom(map[string]string{"PORT": port}); err == nil {
				t.Errorf("LoadFrom with PORT=%q succeeded, want error", port)
			}
		})
	}
}
