package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"rigshift/internal/bvh"
	"rigshift/internal/rig"
)

// loadedRig is a rig read from disk. Clip is set for BVH motion files.
type loadedRig struct {
	Path  string
	Model *rig.Model
	Clip  *bvh.Clip
}

func loadRigFile(path string) (*loadedRig, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		model, err := rig.LoadGLTF(path)
		if err != nil {
			return nil, err
		}
		return &loadedRig{Path: path, Model: model}, nil
	case ".bvh":
		clip, err := bvh.Load(path)
		if err != nil {
			return nil, err
		}
		return &loadedRig{Path: path, Model: &rig.Model{Root: clip.Root}, Clip: clip}, nil
	default:
		return nil, fmt.Errorf("unsupported rig file %s (want .glb, .gltf or .bvh)", path)
	}
}
