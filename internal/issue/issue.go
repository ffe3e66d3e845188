// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ModuleNotFoundId Id = iota + 1
	ModfileNotFoundId
	ModfileParseErrorId
	DuplicateModuleId
	DependencyCycleId
	PackageNotVisibleId
	SymbolNotFoundId
	ConfigLoadFailedId
	RegistryClosedId
	LinkFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

The requested module could not be located in the registry or on any search path.

## Search locations (in order of precedence):
1. Modules already defined in the registry
2. Directories listed in search_paths (looking for <module>.mod)
3. Fallback registries, if configured

## Things you can try:
- List the modules the registry can see:
~~~
$ modlink inspect --all
~~~

- Check the module name for typos (names are dot-separated identifiers)
- Add the directory containing the module to search_paths:
~~~cue
search_paths: [
    "/home/user/modules"
]
~~~`,
	}

	modfileNotFoundIssue = &Issue{
		id: ModfileNotFoundId,
		mdMsg: `
# No modfile found!

The module directory exists but carries neither a modfile.cue nor a
manifest.toml, so its descriptor cannot be derived.

## Things you can try:
- Create a modfile.cue in the module directory:
~~~cue
module: "my.module"
packages: [
    {name: "my.module.api", access: "exported"}
]
~~~

- For a legacy archive, add a manifest.toml instead; the module is then
  treated as automatic (everything exported)
- Verify the directory name matches '<module>.mod'`,
	}

	modfileParseErrorIssue = &Issue{
		id: ModfileParseErrorId,
		mdMsg: `
# Failed to parse modfile!

Your modfile.cue contains syntax errors or invalid configuration.

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Unknown field names
- A module/package name that is not a dot-separated identifier
- 'open' combined with per-package access declarations that conflict

## Things you can try:
- Check the error message above for the specific line/column
- Validate your CUE syntax using the cue command-line tool
- Run with verbose mode for more details:
~~~
$ modlink --verbose inspect <module>
~~~

## Example of a valid modfile:
~~~cue
module: "lib.codec"
requires: [
    {module: "lib.base", transitive: true}
]
packages: [
    {name: "codec.json", access: "exported"},
    {name: "codec.internal"}
]
~~~`,
	}

	duplicateModuleIssue = &Issue{
		id: DuplicateModuleId,
		mdMsg: `
# Duplicate module!

A module with this name is already defined in the registry. Each name can
be bound at most once per registry; later definitions are ignored.

## Things you can try:
- Check whether two search path entries contain the same module
- Use a different registry for the conflicting definition
- If you meant to replace the module, close the registry and rebuild it`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

Modules in this graph require each other in a loop. Cycles are tolerated
during linking (resolution stops at already-visited modules), but they
prevent a clean dependency-ordered teardown, so modules in the cycle are
closed in reverse definition order instead.

## Things you can try:
- Review the 'requires' lists of the modules named above
- Break the cycle by extracting the shared surface into its own module
- Mark one direction of the dependency optional if it is best-effort`,
	}

	packageNotVisibleIssue = &Issue{
		id: PackageNotVisibleId,
		mdMsg: `
# Package not visible!

The package exists in a module you can read, but it is not exported to you.

## How visibility works:
- **private** packages are internal to their module
- **exported** packages can be named by modules the export targets
- **open** packages additionally allow deep access

## Things you can try:
- Export the package from its owner:
~~~cue
packages: [
    {name: "lib.impl", access: "exported"}
]
~~~

- Or export it to your module only:
~~~cue
packages: [
    {name: "lib.impl", export_to: ["app.main"]}
]
~~~

- Or grant access on the requiring edge instead:
~~~cue
requires: [
    {module: "lib.codec", allow: [{package: "lib.impl", level: "exported"}]}
]
~~~`,
	}

	symbolNotFoundIssue = &Issue{
		id: SymbolNotFoundId,
		mdMsg: `
# Symbol not found!

The package resolved to a module, but no loader of that module carries the
symbol's backing resource.

## Things you can try:
- Check the symbol name: the last segment is the symbol, everything
  before it is the package
- List what the owning module actually exports:
~~~
$ modlink inspect <module>
~~~

- Verify the resource file exists inside the module directory`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the modlink configuration file.

## Configuration file locations:
- Linux: ~/.config/modlink/config.cue
- macOS: ~/Library/Application Support/modlink/config.cue
- Windows: %APPDATA%\modlink\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ modlink config init
~~~

- Check the configuration syntax
- Remove the config file to use defaults:
~~~
$ rm ~/.config/modlink/config.cue
~~~

## Example configuration:
~~~cue
search_paths: [
    "/home/user/modules"
]

log: {
  level: "info"
}

ui: {
  color_scheme: "auto"
  verbose: false
}
~~~`,
	}

	registryClosedIssue = &Issue{
		id: RegistryClosedId,
		mdMsg: `
# Registry closed!

The registry has been closed; no further definitions or lookups are
accepted. Close is terminal.

## Things you can try:
- Check for a premature 'defer registry.Close()' in the calling code
- Create a fresh registry if you need to define more modules`,
	}

	linkFailedIssue = &Issue{
		id: LinkFailedId,
		mdMsg: `
# Linking failed!

A module could not be driven to its fully linked state. The failure is
recorded on the module and replayed on every later attempt; linking is
not retried.

## Common causes:
- A mandatory dependency is missing from the registry and search paths
- A dependency's own modfile failed to parse
- Two dependencies collide in a way the module's descriptor forbids

## Things you can try:
- Read the error chain above; the innermost error names the root cause
- Inspect the dependency graph:
~~~
$ modlink graph <module>
~~~

- Fix the underlying module and rebuild the registry (failures are
  remembered for the lifetime of the registry)`,
	}

	issues = map[Id]*Issue{
		moduleNotFoundIssue.Id():    moduleNotFoundIssue,
		modfileNotFoundIssue.Id():   modfileNotFoundIssue,
		modfileParseErrorIssue.Id(): modfileParseErrorIssue,
		duplicateModuleIssue.Id():   duplicateModuleIssue,
		dependencyCycleIssue.Id():   dependencyCycleIssue,
		packageNotVisibleIssue.Id(): packageNotVisibleIssue,
		symbolNotFoundIssue.Id():    symbolNotFoundIssue,
		configLoadFailedIssue.Id():  configLoadFailedIssue,
		registryClosedIssue.Id():    registryClosedIssue,
		linkFailedIssue.Id():        linkFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
