// Package config loads application configuration from PLANAR_* environment
// variables, with an optional .env file for local development.
package config
