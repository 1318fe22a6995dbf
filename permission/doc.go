// Package permission implements the storefront role hierarchy and the minimum-role
// predicate used by route guards and view code.
//
// # Hierarchy
//
// Roles form a fixed total order: guest < user < member < staff < admin. A session
// satisfies a required role when its own role ranks at or above it. The order is
// compiled in; there is no runtime registration.
//
// # Architecture boundaries
//
// This package is pure: no I/O, no locks, no allocation on the check path. Session
// state is owned by package session, which calls [Satisfies] with the decoded role.
//
// # What this package must NOT do
//
//   - Import session, jwt, or any package that performs I/O.
//   - Grant access to roles it does not recognize.
package permission
