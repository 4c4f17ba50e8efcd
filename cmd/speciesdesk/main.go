// Command speciesdesk serves the species edit and delete workflow over HTTP
// and validates species files from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"speciesdesk/internal/config"
)

var exitFunc = os.Exit

func main() {
	exitFunc(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(config.New())
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:           "speciesdesk",
		Short:         "Species record editing service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `speciesdesk serves species cards with owner-only edit and delete dialogs.

Configuration is read from SPECIESDESK_* environment variables and an optional
YAML file passed with --config, for example:

  SPECIESDESK_STORAGE_DRIVER   memory | sqlite | postgres
  SPECIESDESK_SQLITE_PATH      path of the sqlite database file
  SPECIESDESK_POSTGRES_DSN     postgres connection string
  SPECIESDESK_BLOB_DRIVER      fs | s3 | memory
  SPECIESDESK_HTTP_ADDR        listen address
  SPECIESDESK_LOG_LEVEL        debug | info | warn | error
  SPECIESDESK_TRACE_FILE       append gateway spans as JSON lines to this file
`,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML config file")
	root.AddCommand(newServeCmd(v, &configFile), newCheckCmd())
	return root
}
