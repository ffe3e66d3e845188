// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"modlink/internal/issue"
	"modlink/pkg/modlink"
	"modlink/pkg/types"
)

// newResolveCommand creates the `modlink resolve` command.
func newResolveCommand(app *App) *cobra.Command {
	var print bool

	resolveCmd := &cobra.Command{
		Use:   "resolve <module> <symbol>",
		Short: "Resolve a symbol through a module's visibility rules",
		Long: `Resolve a fully qualified symbol through a module's visibility rules.

The symbol is looked up from the named module's point of view: its own
packages first, then the packages its resolved dependencies export to it.
On success the owning module, package, and backing resource are printed.

With --print, the symbol's backing resource is streamed to stdout instead.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveSymbol(cmd.Context(), app, types.ModuleName(args[0]), types.SymbolName(args[1]), print)
		},
	}

	resolveCmd.Flags().BoolVar(&print, "print", false, "stream the symbol's backing resource to stdout")

	return resolveCmd
}

func resolveSymbol(ctx context.Context, app *App, module types.ModuleName, symbol types.SymbolName, print bool) error {
	sess, err := app.openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	h, err := sess.registry.Require(ctx, module)
	if err != nil {
		return err
	}

	sym, err := h.LoadSymbol(ctx, symbol)
	if err != nil {
		renderResolveFailure(app, err)
		return err
	}

	if print {
		rc, openErr := sym.Open()
		if openErr != nil {
			return openErr
		}
		defer rc.Close()
		_, copyErr := io.Copy(app.stdout, rc)
		return copyErr
	}

	fmt.Fprintf(app.stdout, "%s: %s\n", ModuleStyle.Render("symbol"), SuccessStyle.Render(string(sym.Name)))
	fmt.Fprintf(app.stdout, "%s: %s\n", ModuleStyle.Render("package"), string(sym.Package))
	fmt.Fprintf(app.stdout, "%s: %s\n", ModuleStyle.Render("module"), string(sym.Module))
	fmt.Fprintf(app.stdout, "%s: %s\n", ModuleStyle.Render("source"), VerboseStyle.Render(sym.Resource.Source))
	return nil
}

// renderResolveFailure maps a lookup failure to its issue catalog entry so
// the user gets remediation guidance, not just the error line.
func renderResolveFailure(app *App, err error) {
	var id issue.Id
	var notExported *modlink.NotExportedError
	switch {
	case errors.As(err, &notExported):
		id = issue.PackageNotVisibleId
	case errors.Is(err, modlink.ErrSymbolNotFound):
		id = issue.SymbolNotFoundId
	case errors.Is(err, modlink.ErrModuleNotFound):
		id = issue.ModuleNotFoundId
	default:
		return
	}

	if rendered, renderErr := issue.Get(id).Render("dark"); renderErr == nil {
		fmt.Fprint(app.stderr, rendered)
	}
}
