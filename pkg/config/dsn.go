package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultPostgresPort = 5432
	defaultSSLMode      = "disable"
)

// DSN returns the libpq connection string. When URL is set its fields win
// over the individual ones.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		merged := *c
		if err := merged.applyURL(); err == nil {
			c = &merged
		}
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// applyURL copies the connection fields of a postgres:// or postgresql://
// URL onto c. A missing port means 5432, a missing sslmode means disable.
func (c *DatabaseConfig) applyURL() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("invalid database URL scheme %q", u.Scheme)
	}

	port := defaultPostgresPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid port in database URL: %w", err)
		}
	}

	c.Host = u.Hostname()
	c.Port = port
	c.User, c.Password = "", ""
	if u.User != nil {
		c.User = u.User.Username()
		c.Password, _ = u.User.Password()
	}
	c.Database = strings.TrimPrefix(u.Path, "/")
	c.SSLMode = u.Query().Get("sslmode")
	if c.SSLMode == "" {
		c.SSLMode = defaultSSLMode
	}
	return nil
}
