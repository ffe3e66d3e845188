// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"modlink/pkg/modlink"
	"modlink/pkg/types"
)

// newInspectCommand creates the `modlink inspect` command.
func newInspectCommand(app *App) *cobra.Command {
	var all bool

	inspectCmd := &cobra.Command{
		Use:   "inspect [module]",
		Short: "Show a module's descriptor, exports, and services",
		Long: `Show a module's descriptor, exports, and services.

The module is located on the configured search paths, linked, and its
resolved state printed: modifiers, exported packages, dependency edges,
and service uses/provides.

With --all, lists every module directory visible on the search paths
without linking any of them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return listModules(cmd.Context(), app)
			}
			if len(args) != 1 {
				return fmt.Errorf("expected a module name (or --all)")
			}
			return inspectModule(cmd.Context(), app, types.ModuleName(args[0]))
		},
	}

	inspectCmd.Flags().BoolVar(&all, "all", false, "list every module on the search paths")

	return inspectCmd
}

func listModules(ctx context.Context, app *App) error {
	sess, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	names, err := sess.finder.List()
	if err != nil {
		return err
	}

	if len(names) == 0 {
		fmt.Fprintln(app.stdout, SubtitleStyle.Render("(no modules on the search paths)"))
		return nil
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Available Modules"))
	for _, name := range names {
		fmt.Fprintf(app.stdout, "  %s\n", ModuleStyle.Render(string(name)))
	}
	return nil
}

func inspectModule(ctx context.Context, app *App, name types.ModuleName) error {
	sess, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	h, err := sess.registry.Require(ctx, name)
	if err != nil {
		return err
	}
	if err := h.Link(ctx); err != nil {
		return err
	}

	desc := h.Descriptor()

	fmt.Fprintln(app.stdout, TitleStyle.Render(string(h.Name())))
	if desc.Version != "" {
		fmt.Fprintf(app.stdout, "%s: %s\n", ModuleStyle.Render("version"), desc.Version)
	}
	if desc.Modifiers != 0 {
		fmt.Fprintf(app.stdout, "%s: %s\n", ModuleStyle.Render("modifiers"), desc.Modifiers)
	}
	if desc.MainSymbol != "" {
		fmt.Fprintf(app.stdout, "%s: %s\n", ModuleStyle.Render("main"), desc.MainSymbol)
	}

	printExports(ctx, app, h)
	printDependencies(ctx, app, h)
	printServices(app, desc)

	return nil
}

func printExports(ctx context.Context, app *App, h *modlink.Handle) {
	pkgs, err := h.ExportedPackages(ctx)
	if err != nil {
		fmt.Fprintln(app.stderr, ErrorStyle.Render("error: ")+err.Error())
		return
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", ModuleStyle.Render("exported packages"))
	if len(pkgs) == 0 {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none)"))
		return
	}
	for _, pkg := range pkgs {
		fmt.Fprintf(app.stdout, "  - %s\n", SuccessStyle.Render(string(pkg)))
	}
}

func printDependencies(ctx context.Context, app *App, h *modlink.Handle) {
	edges, err := h.ResolvedDependencies(ctx)
	if err != nil {
		fmt.Fprintln(app.stderr, ErrorStyle.Render("error: ")+err.Error())
		return
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintf(app.stdout, "%s:\n", ModuleStyle.Render("dependencies"))
	if len(edges) == 0 {
		fmt.Fprintf(app.stdout, "  %s\n", SubtitleStyle.Render("(none)"))
		return
	}
	for _, edge := range edges {
		line := "  - " + SuccessStyle.Render(string(edge.Handle.Name()))
		if edge.Dependency.Modifiers != 0 {
			line += " " + VerboseStyle.Render(fmt.Sprintf("[%s]", edge.Dependency.Modifiers))
		}
		fmt.Fprintln(app.stdout, line)
	}
}

func printServices(app *App, desc *modlink.Descriptor) {
	if len(desc.Uses) > 0 {
		fmt.Fprintln(app.stdout)
		fmt.Fprintf(app.stdout, "%s:\n", ModuleStyle.Render("uses"))
		for _, svc := range desc.Uses {
			fmt.Fprintf(app.stdout, "  - %s\n", SuccessStyle.Render(string(svc)))
		}
	}

	if len(desc.Provides) > 0 {
		fmt.Fprintln(app.stdout)
		fmt.Fprintf(app.stdout, "%s:\n", ModuleStyle.Render("provides"))
		svcs := maps.Keys(desc.Provides)
		slices.Sort(svcs)
		for _, svc := range svcs {
			fmt.Fprintf(app.stdout, "  %s:\n", SuccessStyle.Render(string(svc)))
			for _, impl := range desc.Provides[svc] {
				fmt.Fprintf(app.stdout, "    - %s\n", string(impl))
			}
		}
	}
}
