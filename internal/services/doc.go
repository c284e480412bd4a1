// Package services holds the application services behind the HTTP
// handlers and the CLI: processing uploaded spreadsheets, serving
// dashboard data, and reporting process health.
package services
