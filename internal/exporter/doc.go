// Package exporter writes KPI snapshots and anomaly reports to CSV
// files suitable for opening directly in Excel.
package exporter
