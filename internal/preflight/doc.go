// Package preflight provides readiness checks for the files, libraries, and
// services rigshift depends on.
//
// The CLI "rigshift preflight" command runs RunAll and renders each Result;
// "rigshift retarget" runs the model checks before loading a model so a
// missing runtime library fails fast with a readable message.
package preflight
