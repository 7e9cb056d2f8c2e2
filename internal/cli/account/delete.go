package account

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codetracker/internal/cli/client"
	"codetracker/pkg/models"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Deactivate your account",
	Long:  "Deactivate the account. Statistics are kept but no longer shown.",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetString("confirm")
		if confirm == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Type %s to confirm: ", models.ConfirmDeleteToken)
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			confirm = strings.TrimSpace(line)
		}

		c, err := client.FromConfig()
		if err != nil {
			return err
		}
		if err := c.DeleteAccount(cmd.Context(), confirm); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Account deactivated")
		return nil
	},
}

func init() {
	deleteCmd.Flags().String("confirm", "", "confirmation token (DELETE)")
	AccountCmd.AddCommand(deleteCmd)
}
