package cli

import (
	"os"

	"github.com/rcliao/babbly/internal/migrate"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "migrate",
		Aliases: []string{"init"},
		Short:   "Create the database and convert legacy data",
		Long:    "Create the database if needed and convert babbly_baby/babbly_logs into the unified profile and event collections. Safe to run repeatedly.",
		Run:     runMigrate,
	}
	RootCmd.AddCommand(cmd)

	legacy := &cobra.Command{
		Use:   "legacy",
		Short: "Work with v1 data",
	}
	imp := &cobra.Command{
		Use:   "import",
		Short: "Load v1 export files and convert them",
		Run:   runLegacyImport,
	}
	imp.Flags().String("logs", "", "Path to a v1 babbly_logs JSON file")
	imp.Flags().String("baby", "", "Path to a v1 babbly_baby JSON file")
	legacy.AddCommand(imp)
	RootCmd.AddCommand(legacy)
}

func runMigrate(cmd *cobra.Command, args []string) {
	db := openKV()
	defer db.Close()

	res, err := migrate.New(db, migrate.WithLogger(cfg.Logger(os.Stderr))).Run(cmd.Context())
	if err != nil {
		exitErr("migrate", err)
	}
	printJSON(res)
}

func runLegacyImport(cmd *cobra.Command, args []string) {
	logsPath, _ := cmd.Flags().GetString("logs")
	babyPath, _ := cmd.Flags().GetString("baby")

	logs, err := readOptional(logsPath)
	if err != nil {
		exitErr("read logs", err)
	}
	baby, err := readOptional(babyPath)
	if err != nil {
		exitErr("read profile", err)
	}

	db := openKV()
	defer db.Close()

	if err := migrate.ImportLegacy(cmd.Context(), db, logs, baby); err != nil {
		exitErr("legacy import", err)
	}
	res, err := migrate.New(db, migrate.WithLogger(cfg.Logger(os.Stderr))).Run(cmd.Context())
	if err != nil {
		exitErr("migrate", err)
	}
	printJSON(res)
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}
