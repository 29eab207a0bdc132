package authgate

// Config holds the gateway's recognized options. Zero values select the
// documented defaults via Normalize; chains and policies built from a
// Config are immutable at runtime.
type Config struct {
	// Secret is the token signing secret, base64 or raw bytes. Absent
	// means an ephemeral per-process key.
	Secret string `mapstructure:"secret"`
	// ExpirationMs is the token lifetime in milliseconds.
	ExpirationMs int64 `mapstructure:"expiration_ms"`

	// RememberMeKey signs remember-me cookies. Held server-side and
	// distinct from the token signing key. Absent means a random
	// per-process key, which invalidates remember-me cookies on restart.
	RememberMeKey string `mapstructure:"remember_me_key"`
	// RememberMeValiditySec is the remember-me cookie validity window.
	RememberMeValiditySec int `mapstructure:"remember_me_validity_sec"`
	// RememberMeCookie is the remember-me cookie name.
	RememberMeCookie string `mapstructure:"remember_me_cookie"`

	// AllowedOrigins enumerates the CORS origins for the API chain.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// CORSMaxAgeSec bounds how long preflight results may be cached.
	CORSMaxAgeSec int `mapstructure:"cors_max_age_sec"`

	// Web chain redirect targets.
	LoginSuccessURL  string `mapstructure:"login_success_url"`
	LoginFailureURL  string `mapstructure:"login_failure_url"`
	LogoutSuccessURL string `mapstructure:"logout_success_url"`
	AccessDeniedURL  string `mapstructure:"access_denied_url"`

	// ListenAddr is the bind address used by cmd/authgate.
	ListenAddr string `mapstructure:"listen_addr"`
	// DatabaseDSN is the SQLite DSN used by cmd/authgate.
	DatabaseDSN string `mapstructure:"database_dsn"`
}

// DefaultRememberMeValiditySec is the default remember-me window: 1 day.
const DefaultRememberMeValiditySec = 86_400

// DefaultConfig returns the fully defaulted configuration.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills unset fields with their defaults.
func (c *Config) Normalize() {
	if c.ExpirationMs <= 0 {
		c.ExpirationMs = DefaultExpirationMs
	}
	if c.RememberMeValiditySec <= 0 {
		c.RememberMeValiditySec = DefaultRememberMeValiditySec
	}
	if c.RememberMeCookie == "" {
		c.RememberMeCookie = "remember-me-cookie"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:8080",
			"https://example.com",
		}
	}
	if c.CORSMaxAgeSec <= 0 {
		c.CORSMaxAgeSec = 3600
	}
	if c.LoginSuccessURL == "" {
		c.LoginSuccessURL = "/dashboard"
	}
	if c.LoginFailureURL == "" {
		c.LoginFailureURL = "/login?error=true"
	}
	if c.LogoutSuccessURL == "" {
		c.LogoutSuccessURL = "/login?logout=true"
	}
	if c.AccessDeniedURL == "" {
		c.AccessDeniedURL = "/access-denied"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DatabaseDSN == "" {
		c.DatabaseDSN = "file:authgate.db?_pragma=foreign_keys(1)"
	}
}
