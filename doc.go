// Package authgate implements an embedded authentication/authorization
// gateway: token issuance and verification, signing-key lifecycle, and an
// ordered set of independently configured security chains that route
// incoming requests to different authentication mechanisms and
// authorization rules.
//
// Security chains:
//   - Chains are declared as plain descriptors and evaluated top-down in
//     rank order; the first chain whose matcher accepts the request path
//     wins. Each chain carries its own session, CORS, and CSRF policy plus
//     an ordered list of path rules, so the entire routing and fallthrough
//     behavior is visible in one place (see ChainRouter and DefaultChains).
//
// Tokens:
//   - TokenService signs compact HS512 tokens carrying subject and role
//     claims with millisecond iat/exp timestamps. Validity is a pure
//     function of signature and timestamps; there is no revocation state,
//     so logout only clears server-side sessions and cookies.
//
// Accounts:
//   - AccountStore persists principals and roles via Bun with a join table
//     for the many-to-many membership, and exposes idempotent seeding for
//     the baseline roles and users.
//
// Operation-level guards:
//   - UserService wraps the store with explicit pre/post authorization
//     predicates keyed on the Actor in the request context. All predicates
//     fail closed: an absent actor fails every check.
package authgate
