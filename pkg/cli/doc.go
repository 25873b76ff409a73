/*
Package cli provides helpers shared by the parley commands.

Output Formatting:

Commands print results as text or JSON, selected with --output:

	format, err := cli.ParseOutputFormat(output)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)

Results implementing Texter control their text rendering.

Exit Codes:

ExitCode maps command errors to process exit codes: configuration errors
exit 2, every other failure exits 1.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
