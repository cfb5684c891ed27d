package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Credential vault utilities",
}

var vaultEncryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Encrypt a password read from stdin and print the stored blob",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if stdinIsTerminal() {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		}
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return errors.New("empty password")
		}
		blob, err := a.vault.EncryptPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), blob)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Monitoring journal utilities",
}

var logsRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Trim the journal file to its configured line cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		dropped, err := a.journal.Rotate()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dropped %d lines from %s\n", dropped, a.cfg.Journal.File)
		return nil
	},
}

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Device inventory utilities",
}

var inventoryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Register devices from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.inventory.ImportFromFile(cmd.Context(), args[0], a.vault)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d devices, skipped %d already registered\n", res.Created, res.Skipped)
		return nil
	},
}

func init() {
	vaultCmd.AddCommand(vaultEncryptCmd)
	logsCmd.AddCommand(logsRotateCmd)
	inventoryCmd.AddCommand(inventoryImportCmd)
}

// stdinIsTerminal reports whether stdin is interactive.
func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
