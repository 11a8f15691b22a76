package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tutorctl/tutorctl/internal/session"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List saved chat sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session by ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsDelete(args[0])
		},
	})

	return cmd
}

func openManager() (*session.Manager, session.Store, error) {
	cfg := initConfig()
	// The log file handle lives for the rest of the process.
	log, _ := newLogger(cfg)

	store, err := buildStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	return session.NewManager(store, log), store, nil
}

func runSessionsList() error {
	manager, store, err := openManager()
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := manager.Sessions()
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}

	fmt.Printf("Sessions (%d):\n", len(sessions))
	for _, s := range sessions {
		marker := "  "
		if s.ID == manager.ActiveID() {
			marker = "* "
		}
		id := s.ID
		if len(id) > 12 {
			id = id[:12]
		}
		fmt.Printf("%s%s  %s  %d msgs  %s\n",
			marker, id, s.UpdatedAt.Format("2006-01-02 15:04"), len(s.Messages), s.Title)
	}
	return nil
}

func runSessionsDelete(idPrefix string) error {
	manager, store, err := openManager()
	if err != nil {
		return err
	}
	defer store.Close()

	s, err := manager.Find(idPrefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	manager.Delete(s.ID)
	fmt.Printf("Deleted %s (%s)\n", s.Title, s.ID)
	return nil
}
