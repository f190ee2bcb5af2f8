package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"multimodalRAG/core"
)

var conversationID string

func init() {
	for _, c := range []*cobra.Command{ingestVideoCmd, ingestDocCmd, queryCmd} {
		c.Flags().StringVarP(&conversationID, "conversation", "c", "", "conversation id owning the collections")
		_ = c.MarkFlagRequired("conversation")
	}
	rootCmd.AddCommand(ingestVideoCmd, ingestDocCmd)
}

var ingestVideoCmd = &cobra.Command{
	Use:   "ingest-video <path>",
	Short: "Index a video's key frames and aligned speech",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		report, err := a.videos.Ingest(cmd.Context(), conversationID, args[0])
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

var ingestDocCmd = &cobra.Command{
	Use:   "ingest-doc <path>",
	Short: "Index a PDF's text, tables and images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		report, err := a.docs.Ingest(cmd.Context(), conversationID, args[0])
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	},
}

func printReport(r core.IngestReport) {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("%s %s\n", ok("indexed into"), r.Collection)
	if r.Segments > 0 {
		fmt.Printf("  segments: %d\n", r.Segments)
	}
	if r.Texts+r.Tables+r.Images > 0 {
		fmt.Printf("  texts: %d  tables: %d  images: %d\n", r.Texts, r.Tables, r.Images)
	}
	if r.Dropped > 0 {
		fmt.Printf("  %s\n", warn(fmt.Sprintf("dropped or unsearchable: %d", r.Dropped)))
	}
}
