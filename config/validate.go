package config

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrMissingRedisBlock is returned when the registry connection block is
// absent entirely. It is checked before the required-field walk so callers
// get a distinct diagnostic for a config that cannot reach any registry.
var ErrMissingRedisBlock = stderrors.New("config: serviceDescriptor.redis block is required")

// Required field paths. The schema is fixed: the serviceDescriptor block is
// expanded one level, the route callback is checked directly (it lives on
// lifecycle options, so its presence is passed in by the caller).
const (
	PathServiceName   = "serviceDescriptor.serviceName"
	PathDescription   = "serviceDescriptor.serviceDescription"
	PathRouteCallback = "routeRegistrationCallback"
)

// CheckRedis verifies the registry connection block exists.
func (c *Config) CheckRedis() error {
	if c.ServiceDescriptor.Redis == nil {
		return ErrMissingRedisBlock
	}
	return nil
}

// MissingFields walks the required-field schema and returns the dotted paths
// of every absent field, in schema order. hasRouteCallback reports whether
// the caller supplied a route registration callback. Pure function; an empty
// result means the config passes the presence check.
func (c *Config) MissingFields(hasRouteCallback bool) []string {
	var missing []string
	if c.ServiceDescriptor.ServiceName == "" {
		missing = append(missing, PathServiceName)
	}
	if c.ServiceDescriptor.ServiceDescription == "" {
		missing = append(missing, PathDescription)
	}
	if !hasRouteCallback {
		missing = append(missing, PathRouteCallback)
	}
	return missing
}

var (
	structValidator *validator.Validate
	validatorOnce   sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return structValidator
}

// ValidateValues runs value-level validation (port ranges, address formats,
// environment enum) over the populated fields. It assumes the presence walk
// has already passed.
func (c *Config) ValidateValues() error {
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return fmt.Errorf("config validation: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", e.Field(), e.Tag()))
	}
	return fmt.Errorf("config validation: %s", strings.Join(msgs, "; "))
}
