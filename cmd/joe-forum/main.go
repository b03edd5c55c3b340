package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joestump/joe-forum/internal/build"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "joe-forum",
		Short:   "A forum category page server",
		Long:    "Joe Forum serves category pages: paged topic lists with sorting, tag and author filters.",
		Version: build.String(),
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newReindexCmd())
	rootCmd.AddCommand(newTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
