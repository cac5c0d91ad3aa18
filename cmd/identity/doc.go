// Package identity holds the identifier rules shared by nicknames and group names:
// syntax validation and case-insensitive canonicalization.
//
// Everything here is pure and safe for concurrent use.
package identity
