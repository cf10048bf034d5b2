/*
Package cli provides helpers shared by the predicate command.

Output Formatting:

Commands print results as text, JSON or YAML, selected with --format:

	format, err := cli.ParseFormat(flags.format)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)

Results that implement TextWriter control their own text rendering. Status
markers come from MarksFor, which only uses symbols on a terminal.

Errors and Exit Codes:

Command failures are wrapped in CommandError; ExitCode maps them to the
process exit status (validation failures and configuration errors have their
own codes).

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()
*/
package cli
