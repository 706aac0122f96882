package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const defaultBackupReason = "manual"

func newBackupCmd() *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up, list, verify and restore the application database",
	}

	backupCmd.AddCommand(newBackupCreateCmd())
	backupCmd.AddCommand(newBackupListCmd())
	backupCmd.AddCommand(newBackupRestoreCmd())
	backupCmd.AddCommand(newBackupVerifyCmd())

	return backupCmd
}

func newBackupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [reason]",
		Short: "Copy the database into the backups directory",
		Long: `Copies the database into the backups directory as
YYYYMMDD_HHMMSS_<reason>.db (UTC). Only letters, digits, '-' and '_' of the
reason are kept. The oldest backups beyond max_backups are deleted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason := defaultBackupReason
			if len(args) == 1 {
				reason = args[0]
			}

			svc, err := newService()
			if err != nil {
				return err
			}
			path, err := svc.BackupDatabase(reason)
			if err != nil {
				return err
			}
			success(cmd, "Backup created: %s", path)
			return nil
		},
	}
}

func newBackupListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List backups, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			records, err := svc.ListDatabaseBackups()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			if len(records) == 0 {
				fmt.Fprintln(out, "No backups")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED (UTC)\tREASON\tPATH")
			for _, r := range records {
				created := r.CreatedAt
				if t, err := r.Time(); err == nil {
					created = t.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", created, r.Reason, r.Path)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print backups as JSON")
	return cmd
}

func newBackupRestoreCmd() *cobra.Command {
	var (
		verify      bool
		backupFirst bool
	)

	cmd := &cobra.Command{
		Use:   "restore <backup>",
		Short: "Replace the database with a backup",
		Long: `Replaces the database with a full copy of <backup>, given as a path or
as a file name inside the backups directory. The backup itself is kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}

			if err := svc.RestoreDatabase(cmd.Context(), args[0], verify, backupFirst); err != nil {
				return err
			}
			success(cmd, "Database restored from %s", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "run an integrity check on the backup first")
	cmd.Flags().BoolVar(&backupFirst, "backup-first", false, "back up the current database before restoring")
	return cmd
}

func newBackupVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <backup>",
		Short: "Run a SQLite integrity check on a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			if err := svc.VerifyBackup(cmd.Context(), args[0]); err != nil {
				return err
			}
			success(cmd, "%s: ok", args[0])
			return nil
		},
	}
}
