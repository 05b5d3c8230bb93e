// Command modalkb is the command-line front end of the modal
// knowledge-base engine: it parses queries, and evaluates them against
// the reasoners of a configured knowledge base.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"modalkb/internal/formulas"
	"modalkb/internal/logging"
	"modalkb/internal/queries"
	"modalkb/pkg/kb"
)

var (
	verbose    bool
	configPath string
	oneAnswer  bool
)

var rootCmd = &cobra.Command{
	Use:   "modalkb",
	Short: "modalkb - modal first-order knowledge-base engine",
	Long: `modalkb evaluates modal first-order queries against pluggable
reasoning backends over a shared vocabulary of logical terms.

Queries use a Prolog-like surface syntax with modal operators:

  modalkb query "B[fred,confidence=0.8] knows(fred, X)"`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.SetLogger(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse [query]",
	Short: "Parse a query and print its structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		knowledge, err := buildKB()
		if err != nil {
			return err
		}
		defer knowledge.Shutdown()

		goal, err := knowledge.Parser().Parse(args[0])
		if err != nil {
			return err
		}
		fmt.Println(goal)
		if vars := formulas.FreeVariables(goal); len(vars) > 0 {
			fmt.Print("free variables:")
			for _, v := range vars {
				fmt.Printf(" %s", v.Name)
			}
			fmt.Println()
		}
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [goal]",
	Short: "Evaluate a goal and stream its answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		knowledge, err := buildKB()
		if err != nil {
			return err
		}
		defer knowledge.Shutdown()

		flags := queries.FlagAllSolutions
		if oneAnswer {
			flags = queries.FlagOneSolution
		}
		stream, err := knowledge.SubmitQueryText(args[0], flags)
		if err != nil {
			return err
		}

		count := 0
		for {
			answer := stream.Read()
			if answer.IsEOS() {
				break
			}
			count++
			if answer.Substitution.Len() == 0 {
				fmt.Println("yes")
			} else {
				fmt.Println(answer.Substitution)
			}
			if oneAnswer {
				// keep draining so in-flight runners are not left
				// blocked on a full stream buffer
				go stream.Collect()
				break
			}
		}
		if count == 0 {
			fmt.Println("no")
		}
		return nil
	},
}

func buildKB() (*kb.KnowledgeBase, error) {
	if configPath == "" {
		return kb.New(nil)
	}
	return kb.NewFromFile(configPath)
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "knowledge base configuration file")
	queryCmd.Flags().BoolVarP(&oneAnswer, "one", "1", false, "stop after the first answer")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(queryCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
