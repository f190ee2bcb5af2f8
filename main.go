package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mmrag",
	Short: "Multimodal retrieval over videos and documents",
	Long: `mmrag indexes lecture videos (key frames + aligned speech) and PDF documents
(text, tables, images) per conversation, and answers questions with a
multimodal model over the retrieved material.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: config.json or config.yaml in the working directory)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
