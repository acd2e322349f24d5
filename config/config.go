package config

import (
	"github.com/harborstack/keel/logger"
)

// ServiceDescriptor identifies the service being orchestrated and how it
// reaches its registry. ServiceIP and ServicePort may be left empty; the
// discovery client fills them in at registration time.
type ServiceDescriptor struct {
	ServiceName        string `yaml:"serviceName" mapstructure:"serviceName" validate:"omitempty,max=255"`
	ServiceDescription string `yaml:"serviceDescription" mapstructure:"serviceDescription"`
	ServiceIP          string `yaml:"serviceIP" mapstructure:"serviceIP" validate:"omitempty,ip"`
	ServicePort        int    `yaml:"servicePort" mapstructure:"servicePort" validate:"gte=0,lte=65535"`
	ServiceType        string `yaml:"serviceType" mapstructure:"serviceType"`
	ServiceVersion     string `yaml:"serviceVersion" mapstructure:"serviceVersion"`

	// Redis holds the registry connection parameters. A nil block is a
	// distinct validation failure checked before any field walk.
	Redis *RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds registry backend connection parameters.
type RedisConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db" validate:"gte=0"`
	PoolSize int    `yaml:"pool_size" mapstructure:"pool_size"`
}

// CORSOptions configures cross-origin policy for the request pipeline.
// A zero value yields the permissive default.
type CORSOptions struct {
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" mapstructure:"allow_credentials"`
}

// BodyOptions configures request body decoding.
type BodyOptions struct {
	// MaxSize caps request bodies, e.g. "10MB".
	MaxSize string `yaml:"max_size" mapstructure:"max_size"`
	// FormExtended enables deep bracket-notation form parsing. Off by
	// default: plain key=value pairs only.
	FormExtended bool `yaml:"form_extended" mapstructure:"form_extended"`
}

// Config is the declarative configuration consumed by the lifecycle
// orchestrator. It is captured once at startup; accessors hand out copies.
type Config struct {
	ServiceDescriptor ServiceDescriptor `yaml:"serviceDescriptor" mapstructure:"serviceDescriptor"`

	CORS         CORSOptions   `yaml:"cors" mapstructure:"cors"`
	Body         BodyOptions   `yaml:"body" mapstructure:"body"`
	Logging      logger.Config `yaml:"logging" mapstructure:"logging"`
	PublicFolder string        `yaml:"publicFolder" mapstructure:"publicFolder"`
	Environment  string        `yaml:"environment" mapstructure:"environment" validate:"omitempty,oneof=development staging production"`
	TestMode     bool          `yaml:"testMode" mapstructure:"testMode"`
}

// ApplyDefaults fills zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.PublicFolder == "" {
		c.PublicFolder = "public"
	}
	if c.Body.MaxSize == "" {
		c.Body.MaxSize = "10MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	}
	if c.ServiceDescriptor.Redis != nil && c.ServiceDescriptor.Redis.PoolSize <= 0 {
		c.ServiceDescriptor.Redis.PoolSize = 10
	}
	c.Logging.ApplyDefaults()
}

// Copy returns a shallow defensive copy. Callers cannot mutate the live
// configuration through the returned value; the nested Redis block is
// duplicated as well since it is the only pointer field.
func (c *Config) Copy() *Config {
	dup := *c
	if c.ServiceDescriptor.Redis != nil {
		redis := *c.ServiceDescriptor.Redis
		dup.ServiceDescriptor.Redis = &redis
	}
	return &dup
}
