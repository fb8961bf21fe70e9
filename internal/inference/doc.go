// Package inference owns the retargeting model and runs it frame by frame.
//
// An Engine moves through Unloaded, Ready, and Inferring states and admits at
// most one call at a time; a second concurrent Infer fails fast with ErrBusy.
// Every call validates tensor names and lengths against the contract before
// the backend sees them. The ONNX backend wraps onnxruntime_go and releases
// every tensor it allocates on all exit paths. Worker layers a latest-wins
// asynchronous schedule on top of one Engine.
package inference
