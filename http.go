package authgate

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/session"
)

const (
	chainLocalsKey     = "authgate_chain"
	principalLocalsKey = "authgate_principal"
	csrfTokenLocalsKey = "authgate_csrf_token"
	sessionUsernameKey = "username"
)

// Gateway wires the key manager, token service, account store, chain
// router, and operation guards into one mountable unit. All fields are
// read-only after New, so a single Gateway serves concurrent requests
// without locking; the key manager's first resolution is the only
// serialization point.
type Gateway struct {
	cfg      Config
	store    AccountStore
	keys     *KeyManager
	tokens   *TokenService
	auther   *Auther
	users    *UserService
	router   *ChainRouter
	remember *RememberMe
	sessions *session.Store
	metrics  *Metrics
	logger   Logger
}

// GatewayOption mutates a Gateway during construction.
type GatewayOption func(*Gateway)

// WithGatewayLogger overrides the default logger.
func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithChains overrides the default chain set.
func WithChains(chains ...*Chain) GatewayOption {
	return func(g *Gateway) {
		g.router = NewChainRouter(chains...)
	}
}

// New assembles a Gateway over an account store. Seeding is the caller's
// responsibility and must complete before the app starts serving.
func New(cfg Config, store AccountStore, opts ...GatewayOption) *Gateway {
	cfg.Normalize()

	g := &Gateway{
		cfg:    cfg,
		store:  store,
		logger: defLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}

	g.keys = NewKeyManager(cfg.Secret, g.logger)
	g.tokens = NewTokenService(g.keys, cfg.ExpirationMs, g.logger)
	g.auther = NewAuthenticator(store, g.tokens).WithLogger(g.logger)
	g.users = NewUserService(store).WithLogger(g.logger)
	g.remember = NewRememberMe(cfg.RememberMeKey, cfg.RememberMeValiditySec, cfg.RememberMeCookie, g.logger)
	g.metrics = NewMetrics()
	g.sessions = session.New(session.Config{
		KeyLookup:      "cookie:session_id",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})

	if g.router == nil {
		g.router = NewChainRouter(DefaultChains(cfg)...)
	}
	return g
}

// TokenService exposes the gateway's token service.
func (g *Gateway) TokenService() *TokenService { return g.tokens }

// Users exposes the guarded user operations.
func (g *Gateway) Users() *UserService { return g.users }

// Router exposes the chain router.
func (g *Gateway) Router() *ChainRouter { return g.router }

// Mount installs the gateway pipeline and routes on a fiber app. The
// registration order here is the whole request pipeline: dispatch picks
// the owning chain, the guarded per-chain filters run their mechanism,
// enforcement applies the chain's path rules, then the route handlers
// execute with the actor already in the request context.
func (g *Gateway) Mount(app *fiber.App) {
	app.Use(g.dispatch)

	for _, chain := range g.router.Chains() {
		if chain.CORS != nil {
			app.Use(g.forChain(chain, g.corsFilter(chain)))
		}
		if chain.CSRFEnabled {
			app.Use(g.forChain(chain, g.csrfFilter(chain)))
		}
		switch chain.Mechanism {
		case AuthBasic:
			app.Use(g.forChain(chain, g.basicAuthFilter))
		case AuthBearer:
			app.Use(g.forChain(chain, g.bearerFilter))
		case AuthSession:
			app.Use(g.forChain(chain, g.sessionFilter))
		}
	}

	app.Use(g.enforce)
	g.routes(app)
}

// dispatch selects the owning chain for the raw request path before any
// authentication runs.
func (g *Gateway) dispatch(c *fiber.Ctx) error {
	chain := g.router.Select(c.Path())
	if chain == nil {
		// No owning chain: deny with a bare status. The login redirect
		// belongs to the session-based web chain; a request no chain
		// accepted has no session semantics to redirect under.
		return c.Status(http.StatusForbidden).SendString("access denied")
	}
	c.Locals(chainLocalsKey, chain)
	return c.Next()
}

// forChain guards a filter so it only runs for requests the chain owns.
func (g *Gateway) forChain(chain *Chain, filter fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if selectedChain(c) != chain {
			return c.Next()
		}
		return filter(c)
	}
}

func (g *Gateway) corsFilter(chain *Chain) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(chain.CORS.AllowedOrigins, ", "),
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowHeaders:     "Authorization, Content-Type",
		AllowCredentials: chain.CORS.AllowCredentials,
		MaxAge:           chain.CORS.MaxAgeSec,
	})
}

func (g *Gateway) csrfFilter(chain *Chain) fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "form:_csrf",
		CookieName:     "csrf_token",
		ContextKey:     csrfTokenLocalsKey,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		Next: func(c *fiber.Ctx) bool {
			return chain.CSRFExemptPath(c.Path())
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			g.logger.Warn("rejected request failing CSRF validation: %s %s", c.Method(), c.Path())
			return c.Status(http.StatusForbidden).SendString("access denied")
		},
	})
}

// basicAuthFilter authenticates HTTP Basic credentials against the
// account store. Absent credentials fall through to enforcement, which
// challenges; invalid credentials are rejected immediately.
func (g *Gateway) basicAuthFilter(c *fiber.Ctx) error {
	if currentPrincipal(c) != nil {
		return c.Next()
	}

	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Basic ") {
		return c.Next()
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return g.challengeBasic(c)
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return g.challengeBasic(c)
	}

	principal, err := g.auther.VerifyPassword(c.Context(), username, password)
	if err != nil {
		if IsBadCredentials(err) {
			return g.challengeBasic(c)
		}
		return c.Status(http.StatusInternalServerError).SendString("internal error")
	}

	setPrincipal(c, principal)
	return c.Next()
}

// bearerFilter validates a bearer token and establishes the principal.
// It runs before any other credential step on its chain and
// short-circuits: once a principal is present no later mechanism fires.
// An invalid token does not fail the request here; the request proceeds
// unauthenticated and enforcement denies it on any non-public path.
func (g *Gateway) bearerFilter(c *fiber.Ctx) error {
	if currentPrincipal(c) != nil {
		return c.Next()
	}

	header := c.Get(fiber.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return c.Next()
	}

	claims, err := g.tokens.Parse(token)
	if err != nil {
		if IsWeakKey(err) {
			g.logger.Error("bearer authentication unavailable: %s", err)
			return c.Status(http.StatusInternalServerError).SendString("internal error")
		}
		g.metrics.TokenValidations.WithLabelValues("invalid").Inc()
		g.logger.Warn("rejected bearer token: %s", err)
		return c.Next()
	}

	// One clock read covers the expiry comparison for this validation.
	now := time.Now()
	if !now.Before(claims.ExpiresAt()) {
		g.metrics.TokenValidations.WithLabelValues("expired").Inc()
		g.logger.Warn("rejected expired bearer token for subject %q", claims.Sub)
		return c.Next()
	}

	principal, err := g.store.ResolvePrincipal(c.Context(), claims.Sub)
	if err != nil || principal == nil || !principal.IsEnabled() {
		g.metrics.TokenValidations.WithLabelValues("unknown_subject").Inc()
		return c.Next()
	}

	g.metrics.TokenValidations.WithLabelValues("valid").Inc()
	setPrincipal(c, principal)
	return c.Next()
}

// sessionFilter resolves the principal from the server-side session and
// falls back to the remember-me cookie, re-establishing the session when
// the cookie verifies.
func (g *Gateway) sessionFilter(c *fiber.Ctx) error {
	if currentPrincipal(c) != nil {
		return c.Next()
	}

	sess, err := g.sessions.Get(c)
	if err != nil {
		return c.Status(http.StatusInternalServerError).SendString("internal error")
	}

	if username, ok := sess.Get(sessionUsernameKey).(string); ok && username != "" {
		principal, err := g.store.ResolvePrincipal(c.Context(), username)
		if err == nil && principal != nil && principal.IsEnabled() {
			setPrincipal(c, principal)
		}
		return c.Next()
	}

	cookie := c.Cookies(g.remember.CookieName())
	if cookie == "" {
		return c.Next()
	}

	username, ok := g.remember.Verify(cookie, time.Now())
	if !ok {
		c.ClearCookie(g.remember.CookieName())
		return c.Next()
	}

	principal, err := g.store.ResolvePrincipal(c.Context(), username)
	if err != nil || principal == nil || !principal.IsEnabled() {
		c.ClearCookie(g.remember.CookieName())
		return c.Next()
	}

	sess.Set(sessionUsernameKey, username)
	if err := sess.Save(); err != nil {
		g.logger.Error("failed to save re-established session: %s", err)
	}
	setPrincipal(c, principal)
	return c.Next()
}

// enforce applies the owning chain's path rules to the authenticated (or
// anonymous) request. Public rules pass; everything else requires a
// principal, and role rules require membership. Denials degrade to
// redirects on the session-based web chain and to bare statuses on the
// stateless chains.
func (g *Gateway) enforce(c *fiber.Ctx) error {
	chain := selectedChain(c)
	if chain == nil {
		return c.Status(http.StatusForbidden).SendString("access denied")
	}

	public, role := chain.RequiredAccess(c.Path())
	if public {
		return g.withActor(c)
	}

	principal := currentPrincipal(c)
	if principal == nil {
		return g.unauthenticated(c, chain)
	}

	if role != "" && !PrincipalHasRole(principal, role) {
		return g.denied(c, chain)
	}
	return g.withActor(c)
}

// withActor copies the request principal into the standard context so the
// operation-level guards downstream of HTTP can see the caller.
func (g *Gateway) withActor(c *fiber.Ctx) error {
	if principal := currentPrincipal(c); principal != nil {
		c.SetUserContext(WithActor(c.UserContext(), ActorFromPrincipal(principal)))
	}
	return c.Next()
}

func (g *Gateway) unauthenticated(c *fiber.Ctx, chain *Chain) error {
	if chain.Session == SessionBased {
		return c.Redirect("/login", http.StatusFound)
	}
	if chain.Mechanism == AuthBasic {
		return g.challengeBasic(c)
	}
	return c.Status(http.StatusUnauthorized).SendString("unauthorized")
}

func (g *Gateway) denied(c *fiber.Ctx, chain *Chain) error {
	if chain.Session == SessionBased {
		return c.Redirect(g.cfg.AccessDeniedURL, http.StatusFound)
	}
	return c.Status(http.StatusForbidden).SendString("access denied")
}

func (g *Gateway) challengeBasic(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="actuator"`)
	return c.Status(http.StatusUnauthorized).SendString("unauthorized")
}

func selectedChain(c *fiber.Ctx) *Chain {
	chain, _ := c.Locals(chainLocalsKey).(*Chain)
	return chain
}

func currentPrincipal(c *fiber.Ctx) Principal {
	principal, _ := c.Locals(principalLocalsKey).(Principal)
	return principal
}

// csrfToken returns the token the csrf middleware stored for this
// request, or "" on chains without CSRF protection.
func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals(csrfTokenLocalsKey).(string)
	return token
}

func setPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(principalLocalsKey, p)
}

// LoginRequest is the JSON payload for the API login operation.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Validate applies field-level validation to the login payload.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (g *Gateway) routes(app *fiber.App) {
	// API surface
	app.Post("/api/auth/login", g.handleAPILogin)
	app.Get("/api/public/hello", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Hello from public API"})
	})
	app.Get("/api/user/me", func(c *fiber.Ctx) error {
		principal := currentPrincipal(c)
		if principal == nil {
			return c.SendStatus(http.StatusUnauthorized)
		}
		return c.JSON(fiber.Map{"user": principal.Username()})
	})
	app.Get("/api/user/account", func(c *fiber.Ctx) error {
		principal := currentPrincipal(c)
		if principal == nil {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := g.users.GetByUsername(c.UserContext(), principal.Username())
		if err != nil {
			if IsAccessDenied(err) {
				return c.Status(http.StatusForbidden).SendString("access denied")
			}
			return c.Status(http.StatusInternalServerError).SendString("internal error")
		}
		return c.JSON(user)
	})
	app.Get("/api/admin/secret", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"secret": "Top secret data for ADMIN only"})
	})
	app.Get("/api/admin/users", func(c *fiber.Ctx) error {
		users, err := g.users.ListAll(c.UserContext())
		if err != nil {
			if IsAccessDenied(err) {
				return c.Status(http.StatusForbidden).SendString("access denied")
			}
			return c.Status(http.StatusInternalServerError).SendString("internal error")
		}
		return c.JSON(users)
	})

	// Operational surface
	app.Get("/actuator/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP"})
	})
	app.Get("/actuator/info", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{})
	})
	app.Get("/actuator/metrics", adaptor.HTTPHandler(g.metrics.Handler()))

	// Web surface
	app.Get("/", g.page("home"))
	app.Get("/home", g.page("home"))
	app.Get("/hello", func(c *fiber.Ctx) error {
		return c.SendString("Hello World")
	})
	app.Get("/dashboard", g.page("dashboard"))
	app.Get("/access-denied", g.page("access-denied"))
	app.Get("/login", g.handleLoginPage)
	app.Post("/login", g.handleWebLogin)
	app.Get("/logout", g.page("logout"))
	app.Post("/logout", g.handleLogout)
}

func (g *Gateway) handleAPILogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).SendString("malformed request body")
	}
	if err := req.Validate(); err != nil {
		return c.Status(http.StatusBadRequest).SendString(err.Error())
	}

	token, err := g.auther.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		if IsBadCredentials(err) {
			g.metrics.LoginAttempts.WithLabelValues("failure").Inc()
			// Generic on purpose: unknown username and wrong password
			// must be byte-identical responses.
			return c.Status(http.StatusUnauthorized).SendString("Invalid credentials")
		}
		g.logger.Error("login failed: %s", err)
		return c.Status(http.StatusInternalServerError).SendString("internal error")
	}

	g.metrics.LoginAttempts.WithLabelValues("success").Inc()
	return c.JSON(fiber.Map{"token": token})
}

func (g *Gateway) handleLoginPage(c *fiber.Ctx) error {
	return c.Render("views/login", fiber.Map{
		"csrf_token": csrfToken(c),
		"failed":     c.Query("error") != "",
		"logged_out": c.Query("logout") != "",
	})
}

func (g *Gateway) handleWebLogin(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	principal, err := g.auther.VerifyPassword(c.Context(), username, password)
	if err != nil {
		if IsBadCredentials(err) {
			g.metrics.LoginAttempts.WithLabelValues("failure").Inc()
			return c.Redirect(g.cfg.LoginFailureURL, http.StatusFound)
		}
		g.logger.Error("web login failed: %s", err)
		return c.Status(http.StatusInternalServerError).SendString("internal error")
	}

	sess, err := g.sessions.Get(c)
	if err != nil {
		return c.Status(http.StatusInternalServerError).SendString("internal error")
	}
	sess.Set(sessionUsernameKey, principal.Username())
	if err := sess.Save(); err != nil {
		g.logger.Error("failed to save session: %s", err)
		return c.Status(http.StatusInternalServerError).SendString("internal error")
	}

	if c.FormValue("remember-me") != "" {
		c.Cookie(&fiber.Cookie{
			Name:     g.remember.CookieName(),
			Value:    g.remember.Mint(principal.Username(), time.Now()),
			Expires:  time.Now().Add(g.remember.Validity()),
			HTTPOnly: true,
			SameSite: "Lax",
		})
	}

	g.metrics.LoginAttempts.WithLabelValues("success").Inc()
	return c.Redirect(g.cfg.LoginSuccessURL, http.StatusFound)
}

// handleLogout invalidates the server-side session and clears both the
// session and remember-me cookies. Previously issued bearer tokens stay
// valid until natural expiry; there is no revocation list.
func (g *Gateway) handleLogout(c *fiber.Ctx) error {
	sess, err := g.sessions.Get(c)
	if err == nil {
		if err := sess.Destroy(); err != nil {
			g.logger.Error("failed to destroy session: %s", err)
		}
	}
	c.ClearCookie("session_id")
	c.ClearCookie(g.remember.CookieName())
	return c.Redirect(g.cfg.LogoutSuccessURL, http.StatusFound)
}

func (g *Gateway) page(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		who := "anonymous"
		if principal := currentPrincipal(c); principal != nil {
			who = principal.Username()
		}
		return c.Render("views/"+name, fiber.Map{
			"username":   who,
			"csrf_token": csrfToken(c),
		})
	}
}
