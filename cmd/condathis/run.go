// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/c1au6i0/condathis/internal/mamba"
	"github.com/c1au6i0/condathis/pkg/types"
)

const opRun = "run command"

// runParams carries the flags shared by run and run-bin.
type runParams struct {
	direct    bool
	env       string
	argv      []string
	verbosity string
	policy    string
	stdout    string
	stderr    string
	stdin     string
	timeout   string
	asJSON    bool
}

func newRunCommand(app *App, direct bool) *cobra.Command {
	p := runParams{direct: direct}
	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command inside an environment",
		Long: `Run a command inside an environment through micromamba.

Arguments are passed to the command as-is, never through a shell: pipes,
redirections, globs and variable references are not interpreted. Use
--stdout, --stderr and --stdin for redirection.`,
		Example: `  condathis run -n samtools-env -- samtools view -h in.bam
  condathis run -n tools --error continue --json -- grep -c pattern file.txt
  condathis run -n tools --stdout counts.txt --timeout 10m -- featureCounts -a ann.gtf in.bam`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p.argv = args
			return runRun(cmd.Context(), app, p)
		},
	}
	if direct {
		cmd.Use = "run-bin [flags] -- command [args...]"
		cmd.Short = "Run an environment's executable directly, without micromamba"
		cmd.Long = `Run an executable from the environment's bin directory directly.

This skips micromamba's activation step, which is faster but does not set
variables that activation scripts would. Flags are the same as for run.`
		cmd.Example = `  condathis run-bin -n samtools-env -- samtools --version`
	}

	f := cmd.Flags()
	addEnvFlag(cmd, &p.env)
	addVerbosityFlag(cmd, &p.verbosity)
	f.StringVar(&p.policy, "error", "", "on non-zero exit: cancel (fail) or continue (default from config)")
	f.StringVar(&p.stdout, "stdout", "", "write the command's stdout to this file")
	f.StringVar(&p.stderr, "stderr", "", "write the command's stderr to this file")
	f.StringVar(&p.stdin, "stdin", "", "read the command's stdin from this file")
	f.StringVar(&p.timeout, "timeout", "", "kill the command after this duration, e.g. 30s")
	f.BoolVar(&p.asJSON, "json", false, "print the invocation result as JSON instead of relaying output")
	return cmd
}

func runRun(ctx context.Context, app *App, p runParams) error {
	s, err := app.session(ctx)
	if err != nil {
		return app.fail(nil, opRun, p.env, err)
	}

	req, err := p.request()
	if err != nil {
		return app.fail(s, opRun, p.env, err)
	}
	if p.asJSON && req.Verbosity == "" {
		// Live output would interleave with the JSON document.
		req.Verbosity = mamba.VerbositySilent
	}

	runFn := s.client.Run
	if p.direct {
		runFn = s.client.RunBin
	}
	res, err := runFn(ctx, req)

	if p.asJSON && res != nil {
		if jerr := app.writeJSON(res); jerr != nil {
			return jerr
		}
	} else {
		app.relay(res, req.Verbosity.Or(mamba.Verbosity(s.cfg.Verbosity)).Or(mamba.VerbosityOutput))
	}

	if err != nil {
		return app.fail(s, opRun, req.Cmd, err)
	}
	if res.TimedOut {
		s.logger.Warn("command timed out", "cmd", req.Cmd, "timeout", req.Timeout)
		app.setExitCode(res.ExitCode)
	}
	return nil
}

// request validates the flags and builds the client request.
func (p runParams) request() (mamba.RunRequest, error) {
	v, err := mamba.ParseVerbosity(p.verbosity)
	if err != nil {
		return mamba.RunRequest{}, err
	}
	policy, err := mamba.ParseErrorPolicy(p.policy)
	if err != nil {
		return mamba.RunRequest{}, err
	}
	timeout, err := durationFlag("timeout", p.timeout)
	if err != nil {
		return mamba.RunRequest{}, err
	}

	req := mamba.RunRequest{
		EnvName:     types.EnvName(p.env),
		Verbosity:   v,
		ErrorPolicy: policy,
		StdinPath:   p.stdin,
		Timeout:     timeout,
	}
	if len(p.argv) > 0 {
		req.Cmd, req.Args = p.argv[0], p.argv[1:]
	}
	if p.stdout != "" {
		req.Stdout = mamba.File(p.stdout)
	}
	if p.stderr != "" {
		req.Stderr = mamba.File(p.stderr)
	}
	return req, nil
}
