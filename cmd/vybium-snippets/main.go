package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	vybiumsnippets "github.com/vybium/vybium-snippets/pkg/vybium-snippets"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("seed", "", "seed for the state generator")
	rootCmd.PersistentFlags().Int("workers", 0, "parallel verifications")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	benchCmd.Flags().String("dir", "", "directory for benchmark results")

	rootCmd.AddCommand(listCmd, verifyCmd, benchCmd)
}

var rootCmd = &cobra.Command{
	Use:   "vybium-snippets",
	Short: "Verify and benchmark the Vybium snippet library.",
}

var listCmd = &cobra.Command{
	Use:   "list [prefix]",
	Short: "List snippet entrypoints with their stack diffs.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		for _, s := range vybiumsnippets.Catalog() {
			if strings.HasPrefix(s.Entrypoint(), prefix) {
				fmt.Printf("%-60s %+d\n", s.Entrypoint(), s.StackDiff())
			}
		}
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [entrypoint...]",
	Short: "Check generated code against reference implementations.",
	Long: `Runs every named snippet (or the whole catalog) on its generated initial
states with both the VM and the reference implementation, and fails on the
first disagreement.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		failed := 0
		for _, s := range selected(args) {
			if err := vybiumsnippets.Verify(context.Background(), s, cfg); err != nil {
				log.Error(err)
				failed++
				continue
			}
			log.WithField("snippet", s.Entrypoint()).Info("verified")
		}
		if failed > 0 {
			fatal(fmt.Sprintf("%d snippets failed verification", failed))
		}
	},
}

var benchCmd = &cobra.Command{
	Use:   "bench [entrypoint...]",
	Short: "Benchmark snippets and write the results as YAML.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
			cfg.WithBenchmarkDir(dir)
		}

		results, err := vybiumsnippets.BenchmarkAll(context.Background(), cfg, selected(args)...)
		if err != nil {
			fatal(err.Error())
		}
		for _, r := range results {
			fmt.Printf("%-60s %-10s cycles=%d hash=%d u32=%d ram=%d\n",
				r.Name, r.Case, r.ClockCycleCount, r.HashTableHeight, r.U32TableHeight, r.RAMAccesses)
		}
	},
}

func loadConfig(cmd *cobra.Command) *vybiumsnippets.Config {
	cfg := vybiumsnippets.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := vybiumsnippets.LoadConfig(path)
		if err != nil {
			fatal(err.Error())
		}
		cfg = loaded
	}

	if seed, _ := cmd.Flags().GetString("seed"); seed != "" {
		cfg.WithSeed(seed)
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.WithWorkers(workers)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.WithLogLevel("debug")
	}
	return cfg
}

// selected resolves entrypoint arguments; none means the whole catalog
func selected(args []string) []vybiumsnippets.Snippet {
	if len(args) == 0 {
		return vybiumsnippets.Catalog()
	}
	list := make([]vybiumsnippets.Snippet, 0, len(args))
	for _, name := range args {
		s, err := vybiumsnippets.Lookup(name)
		if err != nil {
			fatal(err.Error())
		}
		list = append(list, s)
	}
	return list
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "vybium-snippets: ERROR:", msg)
	os.Exit(1)
}
