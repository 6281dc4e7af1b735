package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/example/staysite/internal/auth"
	"github.com/spf13/cobra"
)

func newOwnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Owner mode helpers",
	}
	cmd.AddCommand(newOwnerHashCmd())
	return cmd
}

func newOwnerHashCmd() *cobra.Command {
	var password string

	c := &cobra.Command{
		Use:   "hash-password",
		Short: "Print an OWNER_PASSWORD_HASH value (reads the password from stdin when --password is empty)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return errors.New("no password given")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export OWNER_PASSWORD_HASH='%s'\n", hash)
			return nil
		},
	}

	c.Flags().StringVar(&password, "password", "", "password")
	return c
}
