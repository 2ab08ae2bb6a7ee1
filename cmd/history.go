package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ytgrab/ytgrab/internal/config"
	"github.com/ytgrab/ytgrab/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or clear the download history",
	Run: func(cmd *cobra.Command, args []string) {
		clear, _ := cmd.Flags().GetBool("clear")
		jsonOut, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := history.Open(config.GetHistoryPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		if clear {
			if err := store.Clear(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("History cleared.")
			return
		}

		entries, err := store.List(limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(entries); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if len(entries) == 0 {
			fmt.Println("History is empty.")
			return
		}
		for _, e := range entries {
			title := e.Title
			if title == "" {
				title = e.URL
			}
			fmt.Printf("%s  [%s]  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Status, title)
			if e.FilePath != "" {
				fmt.Printf("    %s\n", e.FilePath)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Bool("clear", false, "delete all history entries")
	historyCmd.Flags().Bool("json", false, "print history as JSON")
	historyCmd.Flags().IntP("limit", "n", 0, "show at most n entries")
}
