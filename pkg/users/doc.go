// Package users persists user records. Emails are normalized to lowercase
// on write so duplicate checks and login lookups are case-insensitive.
package users
