// Package sanitizer normalizes user supplied identifiers before validation.
//
// All functions are idempotent and never fail: bad input comes back as an
// empty string, which validation then rejects.
package sanitizer
