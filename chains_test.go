package authgate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastion-labs/authgate"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/login", "/login", true},
		{"/login", "/login/", false},
		{"/login", "/logout", false},
		{"/api/admin/**", "/api/admin", true},
		{"/api/admin/**", "/api/admin/users", true},
		{"/api/admin/**", "/api/admin/users/42", true},
		{"/api/admin/**", "/api/administrators", false},
		{"/", "/", true},
		{"/", "/home", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, authgate.MatchPattern(tt.pattern, tt.path),
			"pattern %q against %q", tt.pattern, tt.path)
	}
}

func TestChainRouter_Select(t *testing.T) {
	router := authgate.NewChainRouter(authgate.DefaultChains(authgate.DefaultConfig())...)

	t.Run("rank order wins over declaration order", func(t *testing.T) {
		shuffled := authgate.DefaultChains(authgate.DefaultConfig())
		reversed := authgate.NewChainRouter(shuffled[2], shuffled[0], shuffled[1])

		names := []string{}
		for _, c := range reversed.Chains() {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{"operational", "api", "web"}, names)
	})

	t.Run("actuator paths select the operational chain", func(t *testing.T) {
		for _, path := range []string{"/actuator", "/actuator/health", "/actuator/env"} {
			chain := router.Select(path)
			require.NotNil(t, chain)
			assert.Equal(t, "operational", chain.Name, "path %s", path)
		}
	})

	t.Run("api paths select the api chain", func(t *testing.T) {
		chain := router.Select("/api/user/me")
		require.NotNil(t, chain)
		assert.Equal(t, "api", chain.Name)
	})

	t.Run("everything else falls through to the web chain", func(t *testing.T) {
		for _, path := range []string{"/", "/dashboard", "/actuators", "/apiary"} {
			chain := router.Select(path)
			require.NotNil(t, chain)
			assert.Equal(t, "web", chain.Name, "path %s", path)
		}
	})

	t.Run("no match without a catch-all", func(t *testing.T) {
		partial := authgate.NewChainRouter(authgate.DefaultChains(authgate.DefaultConfig())[:2]...)
		assert.Nil(t, partial.Select("/dashboard"))
	})
}

func TestChain_RequiredAccess(t *testing.T) {
	chains := authgate.DefaultChains(authgate.DefaultConfig())
	operational, api, web := chains[0], chains[1], chains[2]

	t.Run("operational chain", func(t *testing.T) {
		public, _ := operational.RequiredAccess("/actuator/health")
		assert.True(t, public)
		public, _ = operational.RequiredAccess("/actuator/info")
		assert.True(t, public)

		public, role := operational.RequiredAccess("/actuator/env")
		assert.False(t, public)
		assert.Equal(t, authgate.RoleActuatorAdmin, role)
	})

	t.Run("first matching rule decides", func(t *testing.T) {
		// /actuator/health matches both the public rule and the catch-all
		// role rule; the public rule is declared first, so it wins.
		public, role := operational.RequiredAccess("/actuator/health")
		assert.True(t, public)
		assert.Empty(t, role)
	})

	t.Run("api chain", func(t *testing.T) {
		public, _ := api.RequiredAccess("/api/public/hello")
		assert.True(t, public)
		public, _ = api.RequiredAccess("/api/auth/login")
		assert.True(t, public)

		public, role := api.RequiredAccess("/api/admin/secret")
		assert.False(t, public)
		assert.Equal(t, authgate.RoleAdmin, role)

		// No rule matches: authenticated, any role.
		public, role = api.RequiredAccess("/api/user/me")
		assert.False(t, public)
		assert.Empty(t, role)
	})

	t.Run("web chain", func(t *testing.T) {
		for _, path := range []string{"/", "/home", "/hello", "/login", "/access-denied", "/css/site.css", "/console/db"} {
			public, _ := web.RequiredAccess(path)
			assert.True(t, public, "path %s", path)
		}

		public, role := web.RequiredAccess("/admin/panel")
		assert.False(t, public)
		assert.Equal(t, authgate.RoleAdmin, role)

		public, role = web.RequiredAccess("/dashboard")
		assert.False(t, public)
		assert.Empty(t, role)
	})
}

func TestChain_CSRF(t *testing.T) {
	chains := authgate.DefaultChains(authgate.DefaultConfig())
	operational, api, web := chains[0], chains[1], chains[2]

	assert.False(t, operational.CSRFEnabled)
	assert.False(t, api.CSRFEnabled)
	assert.True(t, web.CSRFEnabled)

	assert.True(t, web.CSRFExemptPath("/console"))
	assert.True(t, web.CSRFExemptPath("/console/db"))
	assert.False(t, web.CSRFExemptPath("/login"))
	assert.False(t, web.CSRFExemptPath("/consoles"))
}

func TestChain_SessionPolicy(t *testing.T) {
	chains := authgate.DefaultChains(authgate.DefaultConfig())

	assert.Equal(t, authgate.Stateless, chains[0].Session)
	assert.Equal(t, authgate.Stateless, chains[1].Session)
	assert.Equal(t, authgate.SessionBased, chains[2].Session)

	assert.Equal(t, authgate.AuthBasic, chains[0].Mechanism)
	assert.Equal(t, authgate.AuthBearer, chains[1].Mechanism)
	assert.Equal(t, authgate.AuthSession, chains[2].Mechanism)
}
