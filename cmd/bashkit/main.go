package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bashkit/bashkit/internal/config"
	"github.com/bashkit/bashkit/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		watch      bool
	)

	root := &cobra.Command{
		Use:           "bashkit [script]",
		Short:         "Run a bash-subset script in a sandboxed session",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			file := "-"
			if len(args) == 1 {
				file = args[0]
			}
			if watch {
				if file == "-" {
					return fmt.Errorf("--watch requires a script file, not stdin")
				}
				return watchAndRun(file, configPath)
			}
			status, err := runOnce(file, configPath)
			if err != nil {
				return err
			}
			os.Exit(status)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config document")
	root.Flags().BoolVar(&watch, "watch", false, "re-run the script whenever it changes on disk")
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the bashkit build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), session.BuildVersion)
			return nil
		},
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadYAML(path)
}

// readSource reads "-" as stdin, otherwise the named file, stripping a
// leading shebang line the way a real shell would before execution.
func readSource(file string) ([]byte, error) {
	var r io.Reader
	if file == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", file, err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return stripShebang(data), nil
}

func stripShebang(src []byte) []byte {
	if len(src) >= 2 && src[0] == '#' && src[1] == '!' {
		for i := 2; i < len(src); i++ {
			if src[i] == '\n' {
				return src[i+1:]
			}
		}
		return []byte{}
	}
	return src
}

func runOnce(file, configPath string) (int, error) {
	src, err := readSource(file)
	if err != nil {
		return 1, err
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return 1, err
	}
	sess, err := session.Open(session.WithConfig(cfg))
	if err != nil {
		return 1, err
	}
	result := sess.Exec(string(src), os.Stdin)
	os.Stdout.WriteString(result.Stdout)
	os.Stderr.WriteString(result.Stderr)
	if result.Error != nil {
		return result.ExitStatus, result.Error
	}
	return result.ExitStatus, nil
}
