package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		ServiceDescriptor: ServiceDescriptor{
			ServiceName:        "svc",
			ServiceDescription: "a test service",
			ServicePort:        0,
			Redis:              &RedisConfig{Addr: "localhost:6379"},
		},
	}
}

func TestCheckRedisMissingBlock(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceDescriptor.Redis = nil

	if err := cfg.CheckRedis(); err != ErrMissingRedisBlock {
		t.Errorf("expected ErrMissingRedisBlock, got %v", err)
	}
}

func TestCheckRedisPresent(t *testing.T) {
	if err := validConfig().CheckRedis(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestMissingFieldsComplete(t *testing.T) {
	missing := validConfig().MissingFields(true)
	if len(missing) != 0 {
		t.Errorf("expected no missing fields, got %v", missing)
	}
}

func TestMissingFieldsServiceName(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceDescriptor.ServiceName = ""

	missing := cfg.MissingFields(true)
	if len(missing) != 1 || missing[0] != PathServiceName {
		t.Errorf("expected [%s], got %v", PathServiceName, missing)
	}
}

func TestMissingFieldsDescription(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceDescriptor.ServiceDescription = ""

	missing := cfg.MissingFields(true)
	if len(missing) != 1 || missing[0] != PathDescription {
		t.Errorf("expected [%s], got %v", PathDescription, missing)
	}
}

func TestMissingFieldsRouteCallback(t *testing.T) {
	missing := validConfig().MissingFields(false)
	if len(missing) != 1 || missing[0] != PathRouteCallback {
		t.Errorf("expected [%s], got %v", PathRouteCallback, missing)
	}
}

func TestMissingFieldsSchemaOrder(t *testing.T) {
	cfg := &Config{}
	cfg.ServiceDescriptor.Redis = &RedisConfig{Addr: "localhost:6379"}

	missing := cfg.MissingFields(false)
	want := []string{PathServiceName, PathDescription, PathRouteCallback}
	if len(missing) != len(want) {
		t.Fatalf("expected %d missing fields, got %v", len(want), missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], missing[i])
		}
	}
}

func TestValidateValuesPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceDescriptor.ServicePort = 70000

	if err := cfg.ValidateValues(); err == nil {
		t.Error("expected error for out-of-range port")
	}
}

func TestValidateValuesEnvironmentEnum(t *testing.T) {
	cfg := validConfig()
	cfg.Environment = "qa"

	if err := cfg.ValidateValues(); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Environment != "development" {
		t.Errorf("expected development, got %q", cfg.Environment)
	}
	if cfg.PublicFolder != "public" {
		t.Errorf("expected public, got %q", cfg.PublicFolder)
	}
	if len(cfg.CORS.AllowedOrigins) == 0 || cfg.CORS.AllowedOrigins[0] != "*" {
		t.Errorf("expected permissive CORS default, got %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.ServiceDescriptor.Redis.PoolSize != 10 {
		t.Errorf("expected pool size default 10, got %d", cfg.ServiceDescriptor.Redis.PoolSize)
	}
}

func TestCopyIsDefensive(t *testing.T) {
	cfg := validConfig()
	dup := cfg.Copy()

	dup.ServiceDescriptor.ServiceName = "mutated"
	dup.ServiceDescriptor.Redis.Addr = "elsewhere:6379"

	if cfg.ServiceDescriptor.ServiceName != "svc" {
		t.Error("copy leaked mutation into the live config")
	}
	if cfg.ServiceDescriptor.Redis.Addr != "localhost:6379" {
		t.Error("copy shares the redis block with the live config")
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	data := `
serviceDescriptor:
  serviceName: loaded-svc
  serviceDescription: loaded from yaml
  servicePort: 8192
  redis:
    addr: localhost:6379
    db: 3
environment: staging
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServiceDescriptor.ServiceName != "loaded-svc" {
		t.Errorf("unexpected service name %q", cfg.ServiceDescriptor.ServiceName)
	}
	if cfg.ServiceDescriptor.Redis == nil || cfg.ServiceDescriptor.Redis.DB != 3 {
		t.Errorf("redis block not loaded: %+v", cfg.ServiceDescriptor.Redis)
	}
	if cfg.Environment != "staging" {
		t.Errorf("expected staging, got %q", cfg.Environment)
	}
	// Defaults still fill unset fields.
	if cfg.PublicFolder != "public" {
		t.Errorf("expected default public folder, got %q", cfg.PublicFolder)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yml"); err == nil {
		t.Error("expected error for missing file")
	}
}
