// Package viz renders spectra, schedules and run summaries for the
// terminal.
//
//   - [PlotSpectrum]: log-log plot of P(k) drawn with asciigraph
//   - [ScheduleTable]: which mesh each scale factor solves on
//   - [StepsTable]: per-step summary of a run
package viz
