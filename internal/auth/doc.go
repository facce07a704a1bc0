// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth provides account registration, credential checks, bearer
// tokens and access control for Gatehouse.
//
// # Domain Types
//
// Account is plain data. Password digests are produced by a PasswordHasher
// only when a password is newly set; tokens are produced by TokenService.
// Persistence goes through the AccountDirectory interface, implemented in
// the postgres subpackage.
//
// # Flows
//
//   - RegistrationFlow - validates input with CredentialPolicy and creates accounts
//   - AuthenticationFlow - verifies email and password and records the login
//   - AccessGate - resolves a token to an account and checks the admin flag
//   - BootstrapAdmin - ensures the configured administrator exists
//
// Expected failures are returned as *ValidationError carrying a Status and
// the user-facing messages. Every other error is an infrastructure fault
// and is wrapped with an oops code.
package auth
