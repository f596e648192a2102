// Package sanitizer normalizes user-supplied text before validation and
// storage.
//
// Every function is idempotent. Invalid input is returned in its normalized
// form rather than rejected; rejecting it is the validators' job.
//
// Normalization includes:
//   - Names and locations: collapse whitespace, trim
//   - Emails: trim, lowercase
//   - Currencies: trim, uppercase
//   - Slices: drop empty and duplicate values after normalization
package sanitizer
