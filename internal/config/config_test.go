package config

import (
	"os"
	"testing"
)

func TestLoadConfig_Valid(t *testing.T) {
	ResetConfigForTest()
	tmp := "test_config.json"
	raw := []byte(`{
		"server": {
			"host": "localhost",
			"port": 8080,
			"subpath": "/api",
			"jwtSecret": "mysecret"
		},
		"sqlite": {
			"path": "agentd.db"
		},
		"redis": {
			"addr": "localhost:6379",
			"password": "",
			"db": 0
		},
		"embedding": {
			"url": "http://localhost:8000/v1/embeddings"
		},
		"qdrant": {
			"url": "http://localhost:6333",
			"collection": "agentd_memory"
		},
		"orchestrator": {
			"max_workers": 8,
			"default_deadline_seconds": 10
		}
	}`)
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		t.Fatalf("write tmp config: %v", err)
	}
	defer os.Remove(tmp)

	cfg, err := LoadConfig(tmp)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Orchestrator.MaxWorkers != 8 {
		t.Errorf("orchestrator config not loaded")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfigForTest()
	tmp := "test_defaults_config.json"
	raw := []byte(`{"server": {"jwtSecret": "s"}}`)
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		t.Fatalf("write tmp config: %v", err)
	}
	defer os.Remove(tmp)

	cfg, err := LoadConfig(tmp)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Orchestrator.MaxWorkers != 4 {
		t.Errorf("expected default max_workers 4, got %d", cfg.Orchestrator.MaxWorkers)
	}
	if cfg.Memory.PromotionThreshold != 0.6 {
		t.Errorf("expected default promotion threshold 0.6, got %f", cfg.Memory.PromotionThreshold)
	}
	if cfg.Memory.ShortBufferCapacity != 200 {
		t.Errorf("expected default short buffer capacity 200, got %d", cfg.Memory.ShortBufferCapacity)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	ResetConfigForTest()
	_, err := LoadConfig("no_such_config.json")
	if err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	ResetConfigForTest()
	tmp := "test_invalid_config.json"
	raw := []byte(`{this is not json}`)
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		t.Fatalf("write tmp config: %v", err)
	}
	defer os.Remove(tmp)

	_, err := LoadConfig(tmp)
	if err == nil {
		t.Errorf("expected error for malformed JSON")
	}
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	ResetConfigForTest()
	tmp := "test_nosecret_config.json"
	raw := []byte(`{"server": {"host": "localhost"}}`)
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		t.Fatalf("write tmp config: %v", err)
	}
	defer os.Remove(tmp)

	_, err := LoadConfig(tmp)
	if err == nil {
		t.Errorf("expected error for missing jwtSecret")
	}
}
