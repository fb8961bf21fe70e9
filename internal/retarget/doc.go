// Package retarget wires the per-frame retargeting loop.
//
// New performs the one-time stages: binding the source and target skeletons,
// mapping the target's skin bones onto logical joints, and extracting the
// shape descriptor. Step then runs one frame: read the source pose, assemble
// model features, infer, and write the normalized rotations onto the target.
//
// Inference failures and timeouts skip the frame and leave the target at its
// previous pose. Configuration errors are returned to the caller as fatal.
// In async mode a single inference.Worker keeps at most one call in flight
// and applies whichever result is newest.
package retarget
