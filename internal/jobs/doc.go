// Package jobs talks to the remote distillation service that turns an
// uploaded rig into a trained student model.
//
// Client covers the HTTP surface: upload, status, download, and delete.
// Manager layers the local single-job policy on top, persisting the record
// in jobstore, extracting the result archive into the download directory,
// and locating the model file inside it. Watch polls under a file lock so
// only one process drives a job at a time.
package jobs
