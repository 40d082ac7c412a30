// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	xslices "golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	MicromambaInstallFailedId
	UnsupportedPlatformId
	ReleaseRateLimitedId
	EnvNotFoundId
	EnvCreateFailedId
	CommandFailedId
	BinaryNotFoundId
	MissingArgumentId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return xslices.Clone(i.extLinks)
}

// Render renders the issue as terminal Markdown using a glamour style
// ("dark", "light", "notty", "auto" or a JSON style path).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.extLinks) > 0 {
		var sb strings.Builder
		sb.WriteString("\n\n## See also\n")
		for _, link := range i.extLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
		md += sb.String()
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

condathis could not read or validate its configuration.

## Things you can try:
- Print the effective configuration and its source:
~~~
$ condathis config show
$ condathis config path
~~~
- Check CONDATHIS_* environment variables, which override the file
- Recreate a default file with ` + "`condathis config init`" + ` after moving the old one aside`,
	}

	micromambaInstallFailedIssue = &Issue{
		id: MicromambaInstallFailedId,
		mdMsg: `
# micromamba could not be installed!

condathis downloads a static micromamba build from GitHub Releases the first
time it is needed.

## Things you can try:
- Check your network connection and any proxy settings
- Pin a known release:
~~~
$ condathis install --version 2.0.5-0 --force
~~~
- Point ` + "`releases.api_url`" + ` at a reachable mirror in config.cue`,
		extLinks: []HttpLink{"https://github.com/mamba-org/micromamba-releases/releases"},
	}

	unsupportedPlatformIssue = &Issue{
		id: UnsupportedPlatformId,
		mdMsg: `
# Platform not supported!

micromamba publishes builds for linux-64, linux-aarch64, linux-ppc64le,
osx-64, osx-arm64 and win-64 only.

## Things you can try:
- Run ` + "`condathis sys-arch`" + ` to see the detected platform
- Install micromamba manually and set ` + "`install_dir`" + ` to its root prefix`,
	}

	releaseRateLimitedIssue = &Issue{
		id: ReleaseRateLimitedId,
		mdMsg: `
# GitHub API rate limit reached!

Anonymous requests to the GitHub API are limited per hour.

## Things you can try:
- Export a token in the variable named by ` + "`releases.token_env`" + ` (GITHUB_TOKEN by default)
- Wait for the limit to reset and retry`,
	}

	envNotFoundIssue = &Issue{
		id: EnvNotFoundId,
		mdMsg: `
# Environment not found!

No environment with that name exists under the condathis install directory.

## Things you can try:
- List the environments condathis manages:
~~~
$ condathis list-envs
~~~
- Create it first:
~~~
$ condathis create-env -n my-env samtools
~~~`,
	}

	envCreateFailedIssue = &Issue{
		id: EnvCreateFailedId,
		mdMsg: `
# Environment creation failed!

micromamba could not solve or install the requested packages.

## Things you can try:
- Re-run with ` + "`--verbose full`" + ` to see the solver output
- Check the package names and versions on anaconda.org
- Add the channel that provides the package with ` + "`-c`" + ``,
		extLinks: []HttpLink{"https://anaconda.org"},
	}

	commandFailedIssue = &Issue{
		id: CommandFailedId,
		mdMsg: `
# Command exited with a non-zero status!

The tool ran inside its environment but reported a failure.

## Things you can try:
- Re-run with ` + "`--verbose full`" + ` to see its output live
- Use ` + "`--error continue`" + ` to inspect the result instead of aborting
- Check that the package providing the command is installed with ` + "`condathis list-packages`",
	}

	binaryNotFoundIssue = &Issue{
		id: BinaryNotFoundId,
		mdMsg: `
# Executable not found in environment!

` + "`run-bin`" + ` runs files from the environment's bin directory directly.

## Things you can try:
- List installed packages with ` + "`condathis list-packages -n <env>`" + `
- Use ` + "`condathis run`" + ` to let micromamba resolve the command`,
	}

	missingArgumentIssue = &Issue{
		id: MissingArgumentId,
		mdMsg: `
# Missing argument!

The command needs more input than was given.

## Things you can try:
- Run the command with ` + "`--help`" + ` to see its usage
- Pass the command to run after ` + "`--`" + `, e.g. ` + "`condathis run -n env -- samtools --version`",
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		micromambaInstallFailedIssue.Id(): micromambaInstallFailedIssue,
		unsupportedPlatformIssue.Id():     unsupportedPlatformIssue,
		releaseRateLimitedIssue.Id():      releaseRateLimitedIssue,
		envNotFoundIssue.Id():             envNotFoundIssue,
		envCreateFailedIssue.Id():         envCreateFailedIssue,
		commandFailedIssue.Id():           commandFailedIssue,
		binaryNotFoundIssue.Id():          binaryNotFoundIssue,
		missingArgumentIssue.Id():         missingArgumentIssue,
	}
)

func Get(id Id) *Issue {
	return issues[id]
}
