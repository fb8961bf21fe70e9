// Package export records retargeted rotations and writes them out as CSV
// tables and angle plots.
package export
