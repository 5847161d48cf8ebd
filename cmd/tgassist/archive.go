package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/edgard/tgassist/internal/config"
	"github.com/edgard/tgassist/internal/database"
	"github.com/edgard/tgassist/internal/importer"
	"github.com/edgard/tgassist/internal/logger"
)

// openStore loads the configuration and opens the archive for the offline commands.
func openStore(cmd *cobra.Command) (database.Store, func(), error) {
	cfg, err := config.LoadConfig(configPath(cmd))
	if err != nil {
		return nil, nil, err
	}
	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return database.NewStore(db, log, cfg.Bot.DefaultLanguage), func() { database.CloseDB(db) }, nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a Telegram JSON chat export into the archive",
		Long: `Import a chat exported with Telegram Desktop ("Export chat history", JSON).
Messages already in the archive are skipped, so an export can be imported again.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	im := importer.New(store, nil)
	p, err := im.ImportReader(cmd.Context(), f, func(p importer.Progress) {
		if !p.Done {
			fmt.Fprintf(out, "%s: %d processed, %d new\n", p.ChatName, p.Total, p.New)
		}
	})
	if err != nil {
		return fmt.Errorf("importing %s: %w", args[0], err)
	}

	fmt.Fprintf(out, "Imported %s (%d): %d messages, %d new, %d already archived\n",
		p.ChatName, database.KeyOf(p.ChatID).Int64(), p.Total, p.New, p.Existing)
	return nil
}

func newGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List archived groups",
		Args:  cobra.NoArgs,
		RunE:  runGroups,
	}
}

func runGroups(cmd *cobra.Command, _ []string) error {
	store, closeDB, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	groups, err := store.GetAllGroups(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing groups: %w", err)
	}
	if len(groups) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No archived groups.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES")
	for _, g := range groups {
		_, count, err := store.CheckChatExists(cmd.Context(), g.ID)
		if err != nil {
			return fmt.Errorf("counting messages of %d: %w", g.ID, err)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\n", g.ID, g.Title, count)
	}
	return w.Flush()
}
