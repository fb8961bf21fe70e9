// Package contract describes the fixed interface between rigshift and a
// trained retargeting model.
//
// A Contract names the ordered logical joints the model was trained against,
// the unit multiplier applied to offsets and velocities, the joints whose
// offset lengths sum into the height scalar, and the tensor names and shapes
// the inference backend must accept. Any change to these values is a new,
// explicitly versioned contract; the engine refuses to run tensors that do not
// match the contract it was built with.
package contract
