// Package main hosts the rigshift CLI entrypoint and command graph.
//
// The Cobra-based command tree covers configuration scaffolding, preflight
// checks, rig inspection, offline retargeting of BVH motion onto a glTF
// character, and the remote distillation job workflow. It centralizes
// configuration resolution and structured logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
