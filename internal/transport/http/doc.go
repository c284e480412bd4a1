// Package http contains the chi HTTP handlers for the dashboard API:
// health, dashboard data, anomaly reports and spreadsheet processing.
// Errors are rendered as RFC 7807 problem responses.
package http
