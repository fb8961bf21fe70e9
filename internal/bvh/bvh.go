// Package bvh reads Biovision Hierarchy motion files into a rig hierarchy
// plus per-frame channel values.
package bvh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"rigshift/internal/rig"
	"rigshift/internal/services"
)

// Channel is one animated degree of freedom.
type Channel int

const (
	Xposition Channel = iota
	Yposition
	Zposition
	Xrotation
	Yrotation
	Zrotation
)

var channelNames = map[string]Channel{
	"xposition": Xposition,
	"yposition": Yposition,
	"zposition": Zposition,
	"xrotation": Xrotation,
	"yrotation": Yrotation,
	"zrotation": Zrotation,
}

func (c Channel) String() string {
	for name, ch := range channelNames {
		if ch == c {
			return strings.ToUpper(name[:1]) + name[1:]
		}
	}
	return fmt.Sprintf("Channel(%d)", int(c))
}

// Joint is an animated node and the slice of each frame it reads.
type Joint struct {
	Node     *rig.Node
	Offset   mgl32.Vec3
	Channels []Channel
	// First is the index of this joint's first channel within a frame.
	First int
}

// Clip is a parsed BVH file.
type Clip struct {
	Root      *rig.Node
	Joints    []Joint
	Frames    [][]float32
	FrameTime float64
	channels  int
}

// Load parses the BVH file at path.
func Load(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bvh %s: %w", path, err)
	}
	defer f.Close()
	clip, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("bvh %s: %w", path, err)
	}
	return clip, nil
}

// Parse reads a BVH document.
func Parse(r io.Reader) (*Clip, error) {
	p := &parser{scanner: bufio.NewScanner(r)}
	p.scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	p.scanner.Split(bufio.ScanWords)

	clip := &Clip{}
	if err := p.expect("HIERARCHY"); err != nil {
		return nil, err
	}
	if err := p.expect("ROOT"); err != nil {
		return nil, err
	}
	root, err := p.joint(clip, nil)
	if err != nil {
		return nil, err
	}
	clip.Root = root

	if err := p.expect("MOTION"); err != nil {
		return nil, err
	}
	if err := p.expect("Frames:"); err != nil {
		return nil, err
	}
	frames, err := p.int()
	if err != nil {
		return nil, err
	}
	if frames < 0 {
		return nil, p.fail("negative frame count %d", frames)
	}
	if err := p.expect("Frame"); err != nil {
		return nil, err
	}
	if err := p.expect("Time:"); err != nil {
		return nil, err
	}
	if clip.FrameTime, err = p.float(); err != nil {
		return nil, err
	}

	clip.Frames = make([][]float32, frames)
	for f := 0; f < frames; f++ {
		row := make([]float32, clip.channels)
		for c := range row {
			v, err := p.float()
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "bvh", "parse",
					fmt.Sprintf("frame %d has fewer than %d channel values", f, clip.channels), err)
			}
			row[c] = float32(v)
		}
		clip.Frames[f] = row
	}
	if tok, ok := p.next(); ok {
		return nil, p.fail("unexpected %q after %d frames", tok, frames)
	}
	return clip, nil
}

type parser struct {
	scanner *bufio.Scanner
	token   int
}

func (p *parser) next() (string, bool) {
	if !p.scanner.Scan() {
		return "", false
	}
	p.token++
	return p.scanner.Text(), true
}

func (p *parser) fail(format string, args ...any) error {
	msg := fmt.Sprintf("token %d: ", p.token) + fmt.Sprintf(format, args...)
	return services.Wrap(services.ErrValidation, "bvh", "parse", msg, p.scanner.Err())
}

func (p *parser) expect(want string) error {
	tok, ok := p.next()
	if !ok {
		return p.fail("expected %q, got end of input", want)
	}
	if tok != want {
		return p.fail("expected %q, got %q", want, tok)
	}
	return nil
}

func (p *parser) float() (float64, error) {
	tok, ok := p.next()
	if !ok {
		return 0, p.fail("expected number, got end of input")
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, p.fail("expected number, got %q", tok)
	}
	return v, nil
}

func (p *parser) int() (int, error) {
	tok, ok := p.next()
	if !ok {
		return 0, p.fail("expected integer, got end of input")
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, p.fail("expected integer, got %q", tok)
	}
	return v, nil
}

func (p *parser) vec3() (mgl32.Vec3, error) {
	var out mgl32.Vec3
	for i := range out {
		v, err := p.float()
		if err != nil {
			return out, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// joint parses a ROOT or JOINT block after its keyword.
func (p *parser) joint(clip *Clip, parent *rig.Node) (*rig.Node, error) {
	name, ok := p.next()
	if !ok {
		return nil, p.fail("expected joint name")
	}
	node := rig.NewNode(name)
	if parent != nil {
		parent.AddChild(node)
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	if err := p.expect("OFFSET"); err != nil {
		return nil, err
	}
	offset, err := p.vec3()
	if err != nil {
		return nil, err
	}
	node.Translation = offset

	if err := p.expect("CHANNELS"); err != nil {
		return nil, err
	}
	count, err := p.int()
	if err != nil {
		return nil, err
	}
	if count < 0 || count > 6 {
		return nil, p.fail("joint %q declares %d channels", name, count)
	}
	j := Joint{Node: node, Offset: offset, First: clip.channels}
	for i := 0; i < count; i++ {
		tok, ok := p.next()
		if !ok {
			return nil, p.fail("joint %q: missing channel name", name)
		}
		ch, known := channelNames[strings.ToLower(tok)]
		if !known {
			return nil, p.fail("joint %q: unknown channel %q", name, tok)
		}
		j.Channels = append(j.Channels, ch)
	}
	clip.channels += count
	clip.Joints = append(clip.Joints, j)

	for {
		tok, ok := p.next()
		if !ok {
			return nil, p.fail("joint %q: unterminated block", name)
		}
		switch tok {
		case "}":
			return node, nil
		case "JOINT":
			if _, err := p.joint(clip, node); err != nil {
				return nil, err
			}
		case "End":
			if err := p.endSite(node); err != nil {
				return nil, err
			}
		default:
			return nil, p.fail("joint %q: unexpected %q", name, tok)
		}
	}
}

func (p *parser) endSite(parent *rig.Node) error {
	if err := p.expect("Site"); err != nil {
		return err
	}
	if err := p.expect("{"); err != nil {
		return err
	}
	if err := p.expect("OFFSET"); err != nil {
		return err
	}
	offset, err := p.vec3()
	if err != nil {
		return err
	}
	site := rig.NewNode(parent.Name + "_End")
	site.Translation = offset
	parent.AddChild(site)
	return p.expect("}")
}

// Len is the number of frames.
func (c *Clip) Len() int {
	return len(c.Frames)
}

// FPS derives the frame rate from the frame time, or returns fallback when
// the file leaves it unset.
func (c *Clip) FPS(fallback float64) float64 {
	if c.FrameTime <= 0 {
		return fallback
	}
	return 1 / c.FrameTime
}

// Apply poses the hierarchy at frame. Rotation channels compose in declared
// order in degrees; position channels replace the joint's offset.
func (c *Clip) Apply(frame int) error {
	if frame < 0 || frame >= len(c.Frames) {
		return services.Wrap(services.ErrValidation, "bvh", "apply",
			fmt.Sprintf("frame %d out of range [0,%d)", frame, len(c.Frames)), nil)
	}
	values := c.Frames[frame]
	for _, j := range c.Joints {
		translation := j.Offset
		rotation := mgl32.QuatIdent()
		for i, ch := range j.Channels {
			v := values[j.First+i]
			switch ch {
			case Xposition:
				translation[0] = v
			case Yposition:
				translation[1] = v
			case Zposition:
				translation[2] = v
			case Xrotation:
				rotation = rotation.Mul(mgl32.QuatRotate(mgl32.DegToRad(v), mgl32.Vec3{1, 0, 0}))
			case Yrotation:
				rotation = rotation.Mul(mgl32.QuatRotate(mgl32.DegToRad(v), mgl32.Vec3{0, 1, 0}))
			case Zrotation:
				rotation = rotation.Mul(mgl32.QuatRotate(mgl32.DegToRad(v), mgl32.Vec3{0, 0, 1}))
			}
		}
		j.Node.Translation = translation
		j.Node.Rotation = rotation.Normalize()
	}
	return nil
}
