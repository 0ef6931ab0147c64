/*
 * Copyright 2018-present HiveMQ and the HiveMQ Community
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	EnvAPIKey   = "TRELLO_API_KEY"
	EnvAPIToken = "TRELLO_API_TOKEN"
	EnvBaseURL  = "TRELLO_BASE_URL"
	EnvTimeout  = "TRELLO_TIMEOUT"

	DefaultBaseURL = "https://api.trello.com/1"
	DefaultTimeout = 30 * time.Second
)

// ErrMissingCredentials is returned when the API key or token is absent.
var ErrMissingCredentials = fmt.Errorf("%s and %s must be set", EnvAPIKey, EnvAPIToken)

// Error is a startup configuration failure. It is never recoverable at
// runtime: the process must not continue with a partial configuration.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is (or wraps) a configuration error.
func IsConfigError(err error) bool {
	var cfgErr *Error
	return errors.As(err, &cfgErr)
}

// Config holds the Trello credentials and endpoint. Treat it as read-only
// once returned by New or Load.
type Config struct {
	BaseURL  string
	APIKey   string
	APIToken string
	Timeout  time.Duration
}

type Option func(*Config)

func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// New builds a validated Config from explicit credentials without touching
// the process environment.
func New(apiKey, apiToken string, opts ...Option) (*Config, error) {
	cfg := &Config{
		BaseURL:  DefaultBaseURL,
		APIKey:   strings.TrimSpace(apiKey),
		APIToken: strings.TrimSpace(apiToken),
		Timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration from the environment. Callers that want
// .env support should call godotenv.Load first.
func Load() (*Config, error) {
	var opts []Option

	if baseURL := os.Getenv(EnvBaseURL); baseURL != "" {
		opts = append(opts, WithBaseURL(baseURL))
	}

	if raw := os.Getenv(EnvTimeout); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, &Error{Err: fmt.Errorf("invalid %s %q: %w", EnvTimeout, raw, err)}
		}
		opts = append(opts, WithTimeout(timeout))
	}

	return New(os.Getenv(EnvAPIKey), os.Getenv(EnvAPIToken), opts...)
}

func (c *Config) validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.APIToken, validation.Required),
	); err != nil {
		return &Error{Err: fmt.Errorf("%w: %v", ErrMissingCredentials, err)}
	}

	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&c.Timeout, validation.By(positiveDuration)),
	); err != nil {
		return &Error{Err: err}
	}

	return nil
}

// String redacts the secrets so a Config can be logged.
func (c *Config) String() string {
	return fmt.Sprintf("Config{BaseURL: %s, APIKey: %s, APIToken: %s, Timeout: %s}",
		c.BaseURL, redact(c.APIKey), redact(c.APIToken), c.Timeout)
}

func absoluteURL(value interface{}) error {
	raw, _ := value.(string)
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

func positiveDuration(value interface{}) error {
	d, _ := value.(time.Duration)
	if d <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

func redact(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
