package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"rigshift/internal/bonemap"
	"rigshift/internal/contract"
	"rigshift/internal/shape"
	"rigshift/internal/skeleton"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var rigPath string
	var meshName string
	var showBones bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show joint bindings, bone mapping, and the shape descriptor of a rig",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loaded, err := loadRigFile(rigPath)
			if err != nil {
				return err
			}
			if meshName == "" {
				meshName = cfg.Retarget.ShapeMesh
			}
			c := cfg.ModelContract()
			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Rig: %s (%d nodes, %d meshes)\n", loaded.Path, loaded.Model.Root.Count(), len(loaded.Model.Meshes))
			if loaded.Clip != nil {
				fmt.Fprintf(out, "Motion: %d frames at %.2f fps\n", loaded.Clip.Len(), loaded.Clip.FPS(cfg.Retarget.FallbackFPS))
			}

			skel, bindErr := skeleton.Bind(loaded.Model.Root, c.Joints)
			writeBindings(out, skel)
			if bindErr != nil {
				fmt.Fprintf(out, "Warning: %v\n", bindErr)
			}

			mesh := loaded.Model.Mesh(meshName)
			if mesh == nil {
				fmt.Fprintln(out, "No skinned mesh; shape descriptor unavailable")
				return nil
			}
			boneMap := bonemap.Build(mesh.Bones, c.Joints)
			if showBones {
				writeBoneMap(out, mesh.Bones, boneMap, c)
			}
			res, err := shape.Extract(mesh, boneMap, c.JointCount(), shape.Options{FallbackJoint: c.VertexFallbackJoint})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Mesh %q: %d vertices, %d of %d bones mapped, %d fallback vertices\n",
				mesh.Name, len(mesh.Positions), boneMap.Assigned(), len(mesh.Bones), res.Fallback)
			writeDescriptor(out, res, c)
			return nil
		},
	}

	cmd.Flags().StringVar(&rigPath, "rig", "", "Rig file (.glb, .gltf or .bvh)")
	cmd.Flags().StringVar(&meshName, "mesh", "", "Mesh to extract the shape from (default: [retarget] shape_mesh or first skinned mesh)")
	cmd.Flags().BoolVar(&showBones, "bones", false, "List every skin bone and its joint")
	_ = cmd.MarkFlagRequired("rig")
	return cmd
}

func writeBindings(out io.Writer, skel *skeleton.Skeleton) {
	rows := make([][]string, 0, skel.Len())
	for i, b := range skel.Bindings() {
		node := "-"
		if b.Bound() {
			node = b.Node.Name
		}
		rows = append(rows, []string{strconv.Itoa(i), b.Joint, node, yesNo(b.Bound())})
	}
	fmt.Fprintln(out, renderTable([]column{numericColumn("#"), textColumn("Joint"), textColumn("Node"), textColumn("Bound")}, rows))
}

func writeBoneMap(out io.Writer, bones []string, m bonemap.Map, c contract.Contract) {
	rows := make([][]string, 0, len(bones))
	for i, bone := range bones {
		joint := "-"
		if j := m.Joint(i); j != contract.Unassigned {
			joint = c.Joints[j]
		}
		rows = append(rows, []string{strconv.Itoa(i), bone, joint})
	}
	fmt.Fprintln(out, renderTable([]column{numericColumn("#"), textColumn("Bone"), textColumn("Joint")}, rows))
}

func writeDescriptor(out io.Writer, res shape.Result, c contract.Contract) {
	rows := make([][]string, 0, c.JointCount())
	for j, name := range c.Joints {
		d := res.Descriptor.Joint(j)
		rows = append(rows, []string{
			name,
			strconv.Itoa(res.Vertices[j]),
			formatExtent(d[0]),
			formatExtent(d[1]),
			formatExtent(d[2]),
		})
	}
	columns := []column{textColumn("Joint"), numericColumn("Vertices"), numericColumn("X"), numericColumn("Y"), numericColumn("Z")}
	fmt.Fprintln(out, renderTable(columns, rows))
}
