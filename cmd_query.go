package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question from a conversation's videos and documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.engine.Query(cmd.Context(), conversationID, strings.Join(args, " "))

		boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Println(boldCyan("Answer:"))
		fmt.Println(res.Answer)
		if len(res.VideoSources) > 0 {
			fmt.Println()
			fmt.Println(boldCyan("Video sources:"))
			for _, s := range res.VideoSources {
				fmt.Printf("  [%s] %s\n", s.Time, s.Text)
			}
		}
		if len(res.Images) > 0 {
			fmt.Printf("\n%s %d attached\n", boldCyan("Images:"), len(res.Images))
		}
		return nil
	},
}
