// Package services defines shared utilities consumed by the retarget pipeline
// and the training-service integration.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, job IDs, frame indices, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Classify which sorts
//     failures into configuration (fatal), inference (skip one frame), and
//     transient (retry on the next tick) kinds.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the pipeline.
package services
