/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config holds the typed configuration record this server
// consumes. Loading it from a file or environment is out of scope: the
// core only ever sees an already-populated Config value (see
// Config.Validate for the one check it performs itself).
package config

import (
	"fmt"
	"time"

	libval "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	libtls "github.com/nabbar/uvhttpd/certificates"
	liberr "github.com/nabbar/uvhttpd/errors"
)

// RateLimit is the `rate_limit.*` configuration surface.
type RateLimit struct {
	Enabled       bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	MaxRequests   int           `mapstructure:"max_requests" json:"max_requests" yaml:"max_requests" toml:"max_requests" validate:"omitempty,gt=0"`
	WindowSeconds time.Duration `mapstructure:"window_seconds" json:"window_seconds" yaml:"window_seconds" toml:"window_seconds" validate:"omitempty,gt=0"`
	Whitelist     []string      `mapstructure:"whitelist" json:"whitelist" yaml:"whitelist" toml:"whitelist" validate:"omitempty,dive,ip"`
}

// SendFile is the `static.sendfile.*` configuration surface.
type SendFile struct {
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms" yaml:"timeout_ms" toml:"timeout_ms" validate:"omitempty,gt=0"`
	MaxRetry  int `mapstructure:"max_retry" json:"max_retry" yaml:"max_retry" toml:"max_retry" validate:"omitempty,gte=0"`
	ChunkSize int `mapstructure:"chunk_size" json:"chunk_size" yaml:"chunk_size" toml:"chunk_size" validate:"omitempty,gt=0"`
}

// Static is the `static.*` configuration surface.
type Static struct {
	Root                   string        `mapstructure:"root" json:"root" yaml:"root" toml:"root"`
	IndexFile              string        `mapstructure:"index_file" json:"index_file" yaml:"index_file" toml:"index_file"`
	EnableDirectoryListing bool          `mapstructure:"enable_directory_listing" json:"enable_directory_listing" yaml:"enable_directory_listing" toml:"enable_directory_listing"`
	EnableETag             bool          `mapstructure:"enable_etag" json:"enable_etag" yaml:"enable_etag" toml:"enable_etag"`
	MaxCacheSize           int64         `mapstructure:"max_cache_size" json:"max_cache_size" yaml:"max_cache_size" toml:"max_cache_size" validate:"omitempty,gt=0"`
	CacheTTL               time.Duration `mapstructure:"cache_ttl" json:"cache_ttl" yaml:"cache_ttl" toml:"cache_ttl" validate:"omitempty,gt=0"`
	MaxCacheEntries        int           `mapstructure:"max_cache_entries" json:"max_cache_entries" yaml:"max_cache_entries" toml:"max_cache_entries" validate:"omitempty,gt=0"`
	SendFile               SendFile      `mapstructure:"sendfile" json:"sendfile" yaml:"sendfile" toml:"sendfile"`
}

// WebSocket is the `ws.*` configuration surface. Durations are normalised
// to time.Duration at this boundary (see DESIGN.md, Open Question
// "seconds vs milliseconds"): the original C API mixed seconds
// (heartbeat_interval) and milliseconds (ping_timeout_ms); here both are
// plain time.Duration, so the unit never leaks past config-load time.
type WebSocket struct {
	Timeout           time.Duration `mapstructure:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds" validate:"omitempty,gt=0"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" json:"heartbeat_interval" yaml:"heartbeat_interval" toml:"heartbeat_interval" validate:"omitempty,gt=0"`
	PingTimeout       time.Duration `mapstructure:"ping_timeout_ms" json:"ping_timeout_ms" yaml:"ping_timeout_ms" toml:"ping_timeout_ms" validate:"omitempty,gt=0"`
}

// Config is the full configuration record spec.md §6 names, expanded with
// the supplemented health-route toggle (see SPEC_FULL.md, Supplemented
// Feature 5).
type Config struct {
	Listen string `mapstructure:"listen" json:"listen" yaml:"listen" toml:"listen" validate:"required,hostname_port"`

	MaxConnections       int           `mapstructure:"max_connections" json:"max_connections" yaml:"max_connections" toml:"max_connections" validate:"required,gt=0"`
	ReadBufferSize       int           `mapstructure:"read_buffer_size" json:"read_buffer_size" yaml:"read_buffer_size" toml:"read_buffer_size" validate:"required,gt=0"`
	Backlog              int           `mapstructure:"backlog" json:"backlog" yaml:"backlog" toml:"backlog" validate:"required,gt=0"`
	KeepaliveTimeout     time.Duration `mapstructure:"keepalive_timeout" json:"keepalive_timeout" yaml:"keepalive_timeout" toml:"keepalive_timeout" validate:"required,gt=0"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout" toml:"request_timeout" validate:"required,gt=0"`
	MaxBodySize          int64         `mapstructure:"max_body_size" json:"max_body_size" yaml:"max_body_size" toml:"max_body_size" validate:"required,gt=0"`
	MaxHeaderSize        int           `mapstructure:"max_header_size" json:"max_header_size" yaml:"max_header_size" toml:"max_header_size" validate:"required,gt=0"`
	MaxURLSize           int           `mapstructure:"max_url_size" json:"max_url_size" yaml:"max_url_size" toml:"max_url_size" validate:"required,gt=0"`

	RateLimit RateLimit    `mapstructure:"rate_limit" json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`
	TLS       libtls.Config `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
	Static    Static        `mapstructure:"static" json:"static" yaml:"static" toml:"static"`
	WS        WebSocket     `mapstructure:"ws" json:"ws" yaml:"ws" toml:"ws"`

	// EnableHealthRoute registers the internal /__health route (see
	// SPEC_FULL.md, Supplemented Feature 5).
	EnableHealthRoute bool `mapstructure:"enable_health_route" json:"enable_health_route" yaml:"enable_health_route" toml:"enable_health_route"`

	// RouteCapacity bounds how many routes Register will accept (see
	// SPEC_FULL.md, Open Question "route capacity"). Zero uses the
	// package default of 64.
	RouteCapacity int `mapstructure:"route_capacity" json:"route_capacity" yaml:"route_capacity" toml:"route_capacity" validate:"omitempty,gt=0"`
}

// Default returns the configuration record populated with the defaults
// named in spec.md §6 (traced to uvhttp_config.h's UVHTTP_DEFAULT_* macros).
func Default() Config {
	return Config{
		MaxConnections:   2048,
		ReadBufferSize:   8192,
		Backlog:          256,
		KeepaliveTimeout: 30 * time.Second,
		RequestTimeout:   60 * time.Second,
		MaxBodySize:      1024 * 1024,
		MaxHeaderSize:    8192,
		MaxURLSize:       2048,
		RateLimit: RateLimit{
			WindowSeconds: 60 * time.Second,
		},
		RouteCapacity: 64,
	}
}

// Validate aggregates every invalid field into a single liberr.Error,
// mirroring uvhttp_config_validate's "validate everything, report
// everything" behaviour (SPEC_FULL.md, Supplemented Feature 3) and the
// teacher's ServerConfig.Validate().
func (c *Config) Validate() liberr.Error {
	out := ErrorConfigValidate.Error(nil)

	if er := libval.New().Struct(c); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			out.Add(e)
		}

		if ve, ok := er.(libval.ValidationErrors); ok {
			for _, e := range ve {
				//nolint goerr113
				out.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.StructNamespace(), e.ActualTag()))
			}
		}
	}

	if err := c.TLS.Validate(); err != nil {
		out.Add(err)
	}

	if out.HasParent() {
		return out
	}

	return nil
}

// Dump renders c using the same `yaml` struct tags an external loader would
// target, for logging or writing out a starting template, mirroring the
// teacher's config-template generator (cobra's "configure" command).
func (c Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}
