// Package auth implements account credentials and sessions: bcrypt
// password hashing, HS256 token issuance and verification, and the
// signup/login/refresh flows. Tokens carry an absolute expiry; every
// verification re-resolves the subject so deleting an account revokes
// its outstanding tokens.
package auth
