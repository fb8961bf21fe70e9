// Package rig models the character scene graph rigshift reads and writes.
//
// A Node carries a local translation, rotation, and scale and links to its
// parent and children; world transforms are composed on demand. A Mesh holds
// bind-pose vertex positions and up to four bone influences per vertex, with
// bone names in skin order. LoadGLTF builds both from a glTF 2.0 asset.
package rig
