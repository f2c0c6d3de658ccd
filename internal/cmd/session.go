package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage persisted crawl sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show SESSION_ID",
	Short: "Print a persisted session snapshot as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist a fresh session built from the current configuration",
	Args:  cobra.NoArgs,
	RunE:  runSessionSave,
}

var sessionRemoveCmd = &cobra.Command{
	Use:     "remove SESSION_ID",
	Aliases: []string{"rm"},
	Short:   "Delete a persisted session",
	Args:    cobra.ExactArgs(1),
	RunE:    runSessionRemove,
}

func init() {
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionSaveCmd, sessionRemoveCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	snaps, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(snaps) == 0 {
		fmt.Println("no sessions stored")
		return nil
	}
	for _, snap := range snaps {
		fmt.Printf("%s\t%s\t%d cookies\tsaved %s\n",
			snap.SessionID, snap.UserAgent, len(snap.Cookies),
			snap.SavedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	snap, ok, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s not found", args[0])
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func runSessionSave(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	s := newSession(cfg)
	snap := s.Snapshot()
	if err := store.Save(cmd.Context(), snap); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Println(snap.SessionID)
	return nil
}

func runSessionRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
