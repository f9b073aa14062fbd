// Command bashkit-eval runs a corpus of script/expected-output cases
// against the interpreter and reports pass/fail, the "evaluation tool"
// collaborator named in spec.md's scope list. Cases are declared in YAML
// rather than Go so a corpus can grow without touching the binary
// (mirroring the teacher's own config-over-code preference: see
// cli's flag-driven config in cli/main.go).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bashkit/bashkit/internal/config"
	"github.com/bashkit/bashkit/internal/session"
)

// Case is one corpus entry.
type Case struct {
	Name           string `yaml:"name"`
	Script         string `yaml:"script"`
	Stdin          string `yaml:"stdin"`
	ExpectStdout   string `yaml:"expect_stdout"`
	ExpectExitCode int    `yaml:"expect_exit_code"`
}

type corpus struct {
	Cases []Case `yaml:"cases"`
}

func main() {
	cmd := &cobra.Command{
		Use:   "bashkit-eval <corpus.yaml>",
		Short: "Run a YAML corpus of scripts against bashkit and report pass/fail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorpus(args[0])
		},
	}
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCorpus(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var c corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg := config.Default()
	failures := 0
	for _, tc := range c.Cases {
		sess, err := session.Open(session.WithConfig(cfg))
		if err != nil {
			fmt.Printf("FAIL %s: opening session: %v\n", tc.Name, err)
			failures++
			continue
		}
		result := sess.Exec(tc.Script, strings.NewReader(tc.Stdin))
		if diff := cmp.Diff(tc.ExpectStdout, result.Stdout); diff != "" {
			fmt.Printf("FAIL %s: stdout mismatch (-want +got):\n%s\n", tc.Name, diff)
			failures++
			continue
		}
		if result.ExitStatus != tc.ExpectExitCode {
			fmt.Printf("FAIL %s: exit code: want %d, got %d\n", tc.Name, tc.ExpectExitCode, result.ExitStatus)
			failures++
			continue
		}
		fmt.Printf("PASS %s\n", tc.Name)
	}

	fmt.Printf("%d/%d passed\n", len(c.Cases)-failures, len(c.Cases))
	if failures > 0 {
		os.Exit(1)
	}
	return nil
}
