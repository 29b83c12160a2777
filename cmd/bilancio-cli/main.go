// Command bilancio-cli is a terminal client for the bilancio API.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	appcli "bilancio/internal/cli"
)

func main() {
	_ = appcli.LoadEnvFile()

	ctx, stop := appcli.GracefulShutdown(appcli.SetupLogger("error", "text", os.Stderr))
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	s := &session{out: out}
	return &cli.App{
		Name:  "bilancio-cli",
		Usage: "track expenses and income from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Value:   "http://localhost:4000",
				Usage:   "bilancio API base URL",
				EnvVars: []string{"BILANCIO_API_URL"},
			},
			&cli.StringFlag{
				Name:    "state-file",
				Usage:   "file holding the session id (default: user config dir)",
				EnvVars: []string{"BILANCIO_STATE_FILE"},
			},
			&cli.StringFlag{
				Name:    "owner",
				Usage:   "use this owner key instead of the stored session id",
				EnvVars: []string{"BILANCIO_OWNER_KEY"},
			},
			&cli.StringFlag{
				Name:    "identity-header",
				Value:   "X-Session-Id",
				Usage:   "header carrying the owner key",
				EnvVars: []string{"BILANCIO_IDENTITY_HEADER"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "error",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored amounts",
			},
		},
		Before:   s.setup,
		Commands: s.commands(),
	}
}
