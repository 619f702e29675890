package db

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Pool policy. Callers cannot tune these.
const (
	MaxOpenConns   = 20
	MaxIdleTime    = 5 * time.Second
	ConnectTimeout = 10 * time.Second
	MaxConnUses    = 10_000
)

const (
	SSLModeDisable    = "disable"
	SSLModeVerifyFull = "verify-full"
)

// ConfigError reports a missing or malformed setting found while building the pool.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid database configuration: %s: %s", e.Setting, e.Reason)
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ParseCredentials decodes the JSON credentials bundle ({"username": ..., "password": ...}).
func ParseCredentials(bundle string) (Credentials, error) {
	var creds Credentials
	if strings.TrimSpace(bundle) == "" {
		return creds, &ConfigError{Setting: "credentials", Reason: "no creds"}
	}
	if err := json.Unmarshal([]byte(bundle), &creds); err != nil {
		return creds, &ConfigError{Setting: "credentials", Reason: fmt.Sprintf("cannot parse bundle: %v", err)}
	}
	if creds.Username == "" {
		return creds, &ConfigError{Setting: "credentials", Reason: "username is missing"}
	}
	if creds.Password == "" {
		return creds, &ConfigError{Setting: "credentials", Reason: "password is missing"}
	}
	return creds, nil
}

// Options is the resolved connection configuration of the analytics store.
type Options struct {
	Credentials Credentials
	Host        string
	Port        int
	Database    string
	SSLMode     string
}

// NewOptions validates the four required settings and picks the transport
// security mode from the deployment environment.
func NewOptions(credsBundle, host, port, database, environment string) (*Options, error) {
	if credsBundle == "" {
		return nil, &ConfigError{Setting: "credentials", Reason: "no creds"}
	}
	if host == "" {
		return nil, &ConfigError{Setting: "host", Reason: "no host"}
	}
	if port == "" {
		return nil, &ConfigError{Setting: "port", Reason: "no port"}
	}
	if database == "" {
		return nil, &ConfigError{Setting: "database", Reason: "no database"}
	}

	creds, err := ParseCredentials(credsBundle)
	if err != nil {
		return nil, err
	}

	portNum, err := strconv.Atoi(port)
	if err != nil || portNum <= 0 || portNum > 65535 {
		return nil, &ConfigError{Setting: "port", Reason: fmt.Sprintf("%q is not a valid port", port)}
	}

	sslMode := SSLModeVerifyFull
	if environment == "development" {
		sslMode = SSLModeDisable
	}

	return &Options{
		Credentials: creds,
		Host:        host,
		Port:        portNum,
		Database:    database,
		SSLMode:     sslMode,
	}, nil
}

// RequiresVerifiedTLS reports whether connections must be encrypted with
// certificate and host name validation.
func (o *Options) RequiresVerifiedTLS() bool {
	return o.SSLMode == SSLModeVerifyFull
}

// DSN renders the options as a lib/pq connection URL.
func (o *Options) DSN() string {
	q := url.Values{}
	q.Set("sslmode", o.SSLMode)
	q.Set("connect_timeout", strconv.Itoa(int(ConnectTimeout/time.Second)))

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(o.Credentials.Username, o.Credentials.Password),
		Host:     net.JoinHostPort(o.Host, strconv.Itoa(o.Port)),
		Path:     "/" + o.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}
