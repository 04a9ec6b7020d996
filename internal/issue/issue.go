// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	ScanRootNotFoundId Id = iota + 1
	ProjectNotFoundId
	CargoNotFoundId
	ToolMissingId
	ConfigLoadFailedId
	CacheLoadFailedId
	EventServerStartFailedId
	TaskNotFoundId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to look the issue up
	mdMsg    MarkdownMsg // rendered with glamour
	docLinks []HttpLink  // cargo and tool documentation
	extLinks []HttpLink  // anything else worth reading
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

// Render renders the issue for a terminal. stylePath is a glamour style name
// such as "dark", "light" or "notty".
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	scanRootNotFoundIssue = &Issue{
		id: ScanRootNotFoundId,
		mdMsg: `
# Scan root not found!

The directory cargoscope was asked to scan does not exist or cannot be read.

## Things you can try:
- Pass the directory explicitly:
~~~
$ cargoscope scan ~/code
~~~

- Or store it as the default:
~~~
$ cargoscope config set-root ~/code
~~~`,
	}

	projectNotFoundIssue = &Issue{
		id: ProjectNotFoundId,
		mdMsg: `
# Not a cargo project!

The path does not contain a Cargo.toml.

## Things you can try:
- Point at the crate or workspace directory, not at a file inside it
- List the projects cargoscope can see:
~~~
$ cargoscope scan
~~~`,
		docLinks: []HttpLink{"https://doc.rust-lang.org/cargo/reference/manifest.html"},
	}

	cargoNotFoundIssue = &Issue{
		id: CargoNotFoundId,
		mdMsg: `
# cargo not found!

cargoscope runs cargo for builds, tests and reports, but no cargo binary is
on your PATH.

## Things you can try:
- Install the Rust toolchain with rustup
- Make sure ~/.cargo/bin is on your PATH`,
		docLinks: []HttpLink{"https://rustup.rs"},
	}

	toolMissingIssue = &Issue{
		id: ToolMissingId,
		mdMsg: `
# Cargo plugin missing!

This report needs a cargo subcommand that is not installed.

## Things you can try:
- See which plugins are available:
~~~
$ cargoscope tools
~~~

- Install the missing one, for example:
~~~
$ cargo install cargo-outdated
~~~`,
		docLinks: []HttpLink{"https://doc.rust-lang.org/cargo/commands/cargo-install.html"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The config file exists but could not be parsed or does not match the schema.

## Things you can try:
- Show where cargoscope looks for it:
~~~
$ cargoscope config path
~~~

- Recreate it from the defaults (move the broken file away first):
~~~
$ cargoscope config init
~~~

## Example config.cue:
~~~cue
scan_root: "/home/me/code"
cache: backend: "sqlite"
tasks: ci: "test --workspace"
~~~`,
	}

	cacheLoadFailedIssue = &Issue{
		id: CacheLoadFailedId,
		mdMsg: `
# Failed to open the analysis cache!

Cached analysis results could not be read or written.

## Things you can try:
- Clear the cache and rerun the analysis:
~~~
$ cargoscope cache clear
~~~

- Check the cache.backend and cache.path settings in config.cue`,
	}

	eventServerStartFailedIssue = &Issue{
		id: EventServerStartFailedId,
		mdMsg: `
# Event server failed to start!

The address may already be in use.

## Things you can try:
- Pick another address:
~~~
$ cargoscope serve --addr 127.0.0.1:7421
~~~

- Or set server.addr in config.cue`,
	}

	taskNotFoundIssue = &Issue{
		id: TaskNotFoundId,
		mdMsg: `
# Task not found!

No task with that name is defined in config.cue.

## Things you can try:
- Define it:
~~~cue
tasks: ci: "test --workspace --all-features"
~~~`,
	}

	issues = map[Id]*Issue{
		scanRootNotFoundIssue.Id():       scanRootNotFoundIssue,
		projectNotFoundIssue.Id():        projectNotFoundIssue,
		cargoNotFoundIssue.Id():          cargoNotFoundIssue,
		toolMissingIssue.Id():            toolMissingIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		cacheLoadFailedIssue.Id():        cacheLoadFailedIssue,
		eventServerStartFailedIssue.Id(): eventServerStartFailedIssue,
		taskNotFoundIssue.Id():           taskNotFoundIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
