package authgate

import (
	"sort"
	"strings"
)

// SessionPolicy selects whether a chain carries server-side session state.
type SessionPolicy int

const (
	// Stateless chains authenticate every request from its own credential.
	Stateless SessionPolicy = iota
	// SessionBased chains establish and reuse a server-side session.
	SessionBased
)

// AuthMechanism names the authentication step a chain runs.
type AuthMechanism int

const (
	// AuthNone runs no credential step; only public rules can pass.
	AuthNone AuthMechanism = iota
	// AuthBasic parses HTTP Basic credentials against the account store.
	AuthBasic
	// AuthBearer validates a bearer token from the authorization header.
	AuthBearer
	// AuthSession resolves the principal from the session, falling back
	// to the remember-me cookie, with form login to establish either.
	AuthSession
)

// PathRule is one ordered authorization entry: a path pattern plus the
// access it requires. Public allows unauthenticated requests; a non-empty
// Role requires that role; neither means any authenticated principal.
type PathRule struct {
	Pattern string
	Public  bool
	Role    string
}

// PermitAll builds public rules for the given patterns.
func PermitAll(patterns ...string) []PathRule {
	rules := make([]PathRule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, PathRule{Pattern: p, Public: true})
	}
	return rules
}

// RequireRole builds a single-role rule.
func RequireRole(pattern, role string) PathRule {
	return PathRule{Pattern: pattern, Role: role}
}

// MatchPattern evaluates a path pattern against a raw request path.
// A trailing "/**" matches the base segment and everything under it;
// anything else is an exact match.
func MatchPattern(pattern, path string) bool {
	if base, ok := strings.CutSuffix(pattern, "/**"); ok {
		return path == base || strings.HasPrefix(path, base+"/")
	}
	return path == pattern
}

// Chain is one ordered, independently configured policy unit: a matcher
// deciding which requests it owns, the authentication mechanism that
// establishes a principal, and the ordered path rules that gate access.
// Chains are defined at configuration time and immutable at runtime.
type Chain struct {
	Name      string
	Rank      int
	Prefix    string // "" matches everything (catch-all)
	Session   SessionPolicy
	Mechanism AuthMechanism

	// CORS is applied when non-nil (API chain).
	CORS *CORSPolicy
	// CSRFEnabled turns CSRF protection on; CSRFExempt carves exceptions.
	CSRFEnabled bool
	CSRFExempt  []string

	// Rules are evaluated top-down; the first matching rule decides.
	// A path matching no rule requires an authenticated principal.
	Rules []PathRule
}

// CORSPolicy is the per-chain cross-origin policy.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAgeSec        int
}

// Matches reports whether this chain owns the raw request path.
func (c *Chain) Matches(path string) bool {
	if c.Prefix == "" {
		return true
	}
	return path == c.Prefix || strings.HasPrefix(path, c.Prefix+"/")
}

// RequiredAccess scans the chain's rules in order and returns the access
// the first matching rule demands. The fallthrough is deny-by-default for
// unauthenticated callers: authenticated, no specific role.
func (c *Chain) RequiredAccess(path string) (public bool, role string) {
	for _, rule := range c.Rules {
		if MatchPattern(rule.Pattern, path) {
			return rule.Public, rule.Role
		}
	}
	return false, ""
}

// CSRFExemptPath reports whether CSRF checks are skipped for the path.
func (c *Chain) CSRFExemptPath(path string) bool {
	for _, pattern := range c.CSRFExempt {
		if MatchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// ChainRouter holds the totally ordered chain list. Dispatch scans in
// rank order and selects the first chain whose matcher accepts the path,
// so for any request at most one chain applies. The list is read-only
// after construction and safe for fully parallel readers.
type ChainRouter struct {
	chains []*Chain
}

// NewChainRouter sorts the chains by ascending rank. The sort is stable,
// so equal ranks keep declaration order.
func NewChainRouter(chains ...*Chain) *ChainRouter {
	ordered := make([]*Chain, len(chains))
	copy(ordered, chains)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Rank < ordered[j].Rank
	})
	return &ChainRouter{chains: ordered}
}

// Chains returns the rank-ordered chain list.
func (r *ChainRouter) Chains() []*Chain {
	return r.chains
}

// Select returns the first chain accepting the path, or nil when none
// matches. A nil selection is the implicit deny: the request proceeds
// under no mechanism and only an explicit public rule could have allowed
// it, so enforcement denies it outright.
func (r *ChainRouter) Select(path string) *Chain {
	for _, c := range r.chains {
		if c.Matches(path) {
			return c
		}
	}
	return nil
}

// DefaultChains reproduces the gateway's three load-bearing chains.
func DefaultChains(cfg Config) []*Chain {
	operational := &Chain{
		Name:      "operational",
		Rank:      1,
		Prefix:    "/actuator",
		Session:   Stateless,
		Mechanism: AuthBasic,
		Rules: append(
			PermitAll("/actuator/health", "/actuator/info"),
			RequireRole("/actuator/**", RoleActuatorAdmin),
		),
	}

	api := &Chain{
		Name:      "api",
		Rank:      2,
		Prefix:    "/api",
		Session:   Stateless,
		Mechanism: AuthBearer,
		CORS: &CORSPolicy{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowCredentials: true,
			MaxAgeSec:        cfg.CORSMaxAgeSec,
		},
		Rules: append(
			PermitAll("/api/public/**", "/api/auth/**"),
			RequireRole("/api/admin/**", RoleAdmin),
		),
	}

	web := &Chain{
		Name:        "web",
		Rank:        3,
		Prefix:      "", // catch-all
		Session:     SessionBased,
		Mechanism:   AuthSession,
		CSRFEnabled: true,
		CSRFExempt:  []string{"/console/**"},
		Rules: append(
			PermitAll(
				"/", "/home", "/hello", "/login", "/logout", "/access-denied",
				"/public/**", "/css/**", "/js/**", "/images/**", "/console/**",
			),
			RequireRole("/admin/**", RoleAdmin),
		),
	}

	return []*Chain{operational, api, web}
}
