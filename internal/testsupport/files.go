package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TwoFrameBVH is a Hips/Spine clip at 30 fps. Frame 1 turns the root 90
// degrees about Y and the spine 90 degrees about Z.
const TwoFrameBVH = `HIERARCHY
ROOT Hips
{
	OFFSET 0.0 0.0 0.0
	CHANNELS 6 Xposition Yposition Zposition Zrotation Xrotation Yrotation
	JOINT Spine
	{
		OFFSET 0.0 10.0 0.0
		CHANNELS 3 Zrotation Xrotation Yrotation
		End Site
		{
			OFFSET 0.0 5.0 0.0
		}
	}
}
MOTION
Frames: 2
Frame Time: 0.0333333
1.0 90.0 2.0 0.0 0.0 0.0 0.0 0.0 0.0
1.0 90.0 4.0 0.0 0.0 90.0 90.0 0.0 0.0
`

// WriteFile creates path with size filler bytes, creating parent
// directories. Sizes below one write a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	WriteContent(t, path, string(bytes.Repeat([]byte{'B'}, int(max(size, 1)))))
}

// WriteContent writes content to path, creating parent directories.
func WriteContent(t testing.TB, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
