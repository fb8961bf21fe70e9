// Package jobstore persists the single pending distillation job in SQLite.
//
// The remote job service trains one model per uploaded rig, and rigshift
// tracks at most one such job at a time. The store keeps that record in
// <state_dir>/jobs.db so status survives restarts of the CLI. Open trims any
// extra rows left by older builds or manual edits, keeping the oldest.
//
// Schema changes bump schemaVersion in schema.go; users delete the database
// to adopt a new schema.
package jobstore
