package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Server.ChatBackend {
	case BackendGateway, BackendDirect:
	default:
		errs = append(errs, fmt.Errorf("server.chat_backend must be %q or %q, got %q", BackendGateway, BackendDirect, c.Server.ChatBackend))
	}

	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("server.log_level must be debug, info, warn or error, got %q", c.Server.LogLevel))
	}

	if c.Gateway.BaseURL == "" {
		errs = append(errs, errors.New("gateway.base_url is required"))
	}
	if c.Gateway.UserID == "" {
		errs = append(errs, errors.New("gateway.user_id is required"))
	}
	if c.Storage.ModelsFile == "" {
		errs = append(errs, errors.New("storage.models_file is required"))
	}
	if c.Storage.LedgerPath == "" {
		errs = append(errs, errors.New("storage.ledger_path is required"))
	}
	if c.Agent.MaxRounds < 0 {
		errs = append(errs, fmt.Errorf("agent.max_rounds must be >= 0, got %d", c.Agent.MaxRounds))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts))
	}

	return errors.Join(errs...)
}
