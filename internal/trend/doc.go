// Package trend computes rolling statistics over KPI snapshot history and
// flags deviations.
//
// For every tracked metric and window size, the observed value of a period
// is compared against the mean and standard deviation of the preceding
// window of periods (the current period is excluded so it cannot mask
// itself). Deviations beyond z standard deviations are reported, one entry
// per (metric, window) trigger. Windows with too little history are skipped
// silently; short history is a documented outcome, not an anomaly.
package trend
