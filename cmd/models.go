package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chatblock-ai/chatblock/internal/session"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List supported models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range session.SupportedModels() {
				fmt.Println(m)
			}
		},
	}
}
