package config

import (
	"fmt"
	"net/url"
)

// DatabaseURL returns the SQL Server connection URL for the go-mssqldb driver.
// Uses url.URL for proper encoding of special characters in credentials.
//
// The server certificate is always trusted (trustservercertificate=true):
// the service targets internal database hosts that commonly run with
// self-signed certificates. Encryption itself is controlled by DB_ENCRYPT.
func (c *Config) DatabaseURL() string {
	q := url.Values{}
	q.Set("database", c.DatabaseName)
	if c.DatabaseEncrypt {
		q.Set("encrypt", "true")
	} else {
		q.Set("encrypt", "disable")
	}
	q.Set("trustservercertificate", "true")

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.DatabaseUser, c.DatabasePassword),
		Host:     fmt.Sprintf("%s:%d", c.DatabaseServer, c.DatabasePort),
		RawQuery: q.Encode(),
	}
	return u.String()
}
