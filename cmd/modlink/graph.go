// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"modlink/pkg/modlink"
	"modlink/pkg/types"
)

// newGraphCommand creates the `modlink graph` command.
func newGraphCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <module>",
		Short: "Print a module's resolved dependency graph",
		Long: `Print a module's resolved dependency graph as a tree.

Each module is linked far enough to resolve its dependency edges.
Optional edges whose target could not be found are absent (they are
dropped during resolution). Modules already printed higher in the tree
are marked to keep cycles and diamonds finite.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printGraph(cmd.Context(), app, types.ModuleName(args[0]))
		},
	}
}

func printGraph(ctx context.Context, app *App, name types.ModuleName) error {
	sess, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	root, err := sess.registry.Require(ctx, name)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, ModuleStyle.Render(string(root.Name())))
	seen := map[types.ModuleName]bool{root.Name(): true}
	return printGraphChildren(ctx, app.stdout, root, "", seen)
}

// printGraphChildren prints the subtree below an already-printed module.
// Modules seen higher in the tree are printed once and cut off.
func printGraphChildren(ctx context.Context, w io.Writer, h *modlink.Handle, prefix string, seen map[types.ModuleName]bool) error {
	edges, err := h.ResolvedDependencies(ctx)
	if err != nil {
		return err
	}

	for i, edge := range edges {
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(edges)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		label := ModuleStyle.Render(string(edge.Handle.Name()))
		if edge.Dependency.Modifiers != 0 {
			label += " " + VerboseStyle.Render(fmt.Sprintf("[%s]", edge.Dependency.Modifiers))
		}

		if seen[edge.Handle.Name()] {
			fmt.Fprintf(w, "%s%s%s %s\n", prefix, connector, label, SubtitleStyle.Render("(already shown)"))
			continue
		}

		fmt.Fprintf(w, "%s%s%s\n", prefix, connector, label)
		seen[edge.Handle.Name()] = true

		if err := printGraphChildren(ctx, w, edge.Handle, childPrefix, seen); err != nil {
			return err
		}
	}
	return nil
}
