// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	DescriptorNotFoundId
	DescriptorParseErrorId
	ModuleNotFoundId
	NoMatchingRevisionId
	StrictConflictId
	CircularDependencyId
	ConfigurationNotFoundId
	UnknownConflictManagerId
	DownloadFailedId
	CacheOnlyMissId
	ResolutionCancelledId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
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

// Render renders the issue with glamour. stylePath is a glamour style name
// or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The trellis configuration file could not be read or does not match the schema.

## Search locations (in order of precedence):
1. The file given with ` + "`--config`" + `
2. ` + "`$XDG_CONFIG_HOME/trellis/config.cue`" + `
3. ` + "`./trellis.cue`" + `

## Things you can try:
- Print the effective configuration:
~~~
$ trellis config show
~~~
- Check the file for CUE syntax errors:
~~~
$ cue vet config.cue
~~~`,
	}

	descriptorNotFoundIssue = &Issue{
		id: DescriptorNotFoundId,
		mdMsg: `
# No module descriptor found!

trellis resolves the dependencies of the module described by a ` + "`module.cue`" + ` file.

## Things you can try:
- Run trellis from the module directory, or pass the file explicitly:
~~~
$ trellis resolve path/to/module.cue
~~~
- Resolve a published module directly:
~~~
$ trellis resolve --module "org#name;1.0"
~~~`,
	}

	descriptorParseErrorIssue = &Issue{
		id: DescriptorParseErrorId,
		mdMsg: `
# Failed to parse the module descriptor!

The descriptor is not valid CUE or does not match the ` + "`#Module`" + ` schema.

## Things you can try:
- Check that every dependency has an ` + "`organisation`" + `, a ` + "`module`" + ` and a ` + "`revision`" + `
- Check that configurations only extend declared configurations
- Check configuration mappings such as ` + "`\"compile->default;test->*\"`",
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found!

No configured resolver knows one of the requested module revisions.

## Things you can try:
- Check the organisation, name and revision of the dependency
- List the resolvers and their roots:
~~~
$ trellis config show
~~~
- Mark dependencies that may be absent as ` + "`optional: true`",
	}

	noMatchingRevisionIssue = &Issue{
		id: NoMatchingRevisionId,
		mdMsg: `
# No matching revision!

A dynamic revision (` + "`latest.release`" + `, ` + "`1.0+`" + `, ` + "`[1.0,2.0[`" + `) matched none of the published revisions.

## Things you can try:
- Widen the range or use a lower status such as ` + "`latest.integration`" + `
- Drop the ` + "`--date`" + ` cutoff if one was given`,
	}

	strictConflictIssue = &Issue{
		id: StrictConflictId,
		mdMsg: `
# Strict conflict!

Two different revisions of the same module were requested while the strict conflict manager was active.

## Things you can try:
- Align the requested revisions in your dependencies
- Force one revision on the dependency with ` + "`force: true`" + `
- Pin the revision in the root descriptor:
~~~cue
conflicts: [{organisation: "org", module: "lib", matcher: "exact", revisions: ["2.0"]}]
~~~`,
	}

	circularDependencyIssue = &Issue{
		id: CircularDependencyId,
		mdMsg: `
# Circular dependency!

Modules depend on each other in a cycle and the circular strategy is ` + "`error`" + `.

## Things you can try:
- Break the cycle in the module descriptors
- Switch the strategy to ` + "`warn`" + ` or ` + "`ignore`" + `:
~~~cue
circular_strategy: "warn"
~~~`,
	}

	configurationNotFoundIssue = &Issue{
		id: ConfigurationNotFoundId,
		mdMsg: `
# Configuration not found!

A requested configuration is not declared by the module, or is private.

## Things you can try:
- Check the names given with ` + "`--conf`" + `
- Check the right-hand side of the configuration mappings of your dependencies`,
	}

	unknownConflictManagerIssue = &Issue{
		id: UnknownConflictManagerId,
		mdMsg: `
# Unknown conflict manager!

A conflict override or the configuration names a conflict manager that is not registered.

## Built-in managers:
- ` + "`all`" + `
- ` + "`strict`" + `
- ` + "`latest-revision`" + `, ` + "`latest-time`" + `, ` + "`latest-lexico`",
	}

	downloadFailedIssue = &Issue{
		id: DownloadFailedId,
		mdMsg: `
# Artifact download failed!

The dependencies were resolved but some artifacts could not be materialized.

## Things you can try:
- Check that the artifact files exist next to the module descriptors
- Restrict the downloaded types with ` + "`--types`",
	}

	cacheOnlyMissIssue = &Issue{
		id: CacheOnlyMissId,
		mdMsg: `
# Module not in cache!

The resolution ran with ` + "`--cache-only`" + ` and a descriptor was never cached.

## Things you can try:
- Run the resolution once without ` + "`--cache-only`" + ` to populate the cache`,
	}

	resolutionCancelledIssue = &Issue{
		id: ResolutionCancelledId,
		mdMsg: `
# Resolution cancelled!

The resolution was interrupted before it finished; no report was written.`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		descriptorNotFoundIssue.Id():     descriptorNotFoundIssue,
		descriptorParseErrorIssue.Id():   descriptorParseErrorIssue,
		moduleNotFoundIssue.Id():         moduleNotFoundIssue,
		noMatchingRevisionIssue.Id():     noMatchingRevisionIssue,
		strictConflictIssue.Id():         strictConflictIssue,
		circularDependencyIssue.Id():     circularDependencyIssue,
		configurationNotFoundIssue.Id():  configurationNotFoundIssue,
		unknownConflictManagerIssue.Id(): unknownConflictManagerIssue,
		downloadFailedIssue.Id():         downloadFailedIssue,
		cacheOnlyMissIssue.Id():          cacheOnlyMissIssue,
		resolutionCancelledIssue.Id():    resolutionCancelledIssue,
	}
)

// Values returns every catalogued issue, ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
