// Package identity authenticates users by password and issues stateless,
// signed bearer tokens that downstream services can verify without session
// storage.
//
// The package is built from three small pieces:
//   - Password hashing (bcrypt) with constant-time verification.
//   - A TokenService that signs {subject, iat, exp} claims with HS256 and a
//     single static secret. Tokens carry no role information; roles are
//     re-resolved from the user directory on every request, so role changes
//     take effect immediately even for tokens already in the wild.
//   - A Guard that resolves a raw token into an authenticated Principal,
//     checking that the account still exists and is active. RequireRole
//     composes on top for admin-only operations.
//
// Accounts ties the pieces together into the caller-facing operations
// (register, login, self-service updates, admin user management) and the
// Users repository persists records via Bun.
//
// There is no token revocation: a password change or account deactivation
// does not invalidate tokens already issued. Keep TTLs short if that
// matters to you.
package identity
