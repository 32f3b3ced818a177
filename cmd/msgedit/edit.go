package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mau.fi/util/dbutil"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"

	"github.com/beeper/msgedit/pkg/config"
	"github.com/beeper/msgedit/pkg/editsession"
	"github.com/beeper/msgedit/pkg/matrixclient"
	"github.com/beeper/msgedit/pkg/timeline"
	"github.com/beeper/msgedit/pkg/tui/editpanel"
)

var (
	editRoom  string
	editEvent string
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the edit panel for one of your messages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runEdit(ctx, cmd, id.RoomID(editRoom), id.EventID(editEvent))
	},
}

func init() {
	editCmd.Flags().StringVar(&editRoom, "room", "", "Room ID containing the message")
	editCmd.Flags().StringVar(&editEvent, "event", "", "Event ID of the message to edit")
	_ = editCmd.MarkFlagRequired("room")
	_ = editCmd.MarkFlagRequired("event")
}

func openDatabase(ctx context.Context, path string, log zerolog.Logger) (*timeline.Store, func(), error) {
	raw, err := sql.Open("sqlite3", "file:"+path+"?_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := dbutil.NewWithDB(raw, "sqlite3")
	if err != nil {
		_ = raw.Close()
		return nil, nil, fmt.Errorf("failed to wrap database: %w", err)
	}
	db.Log = dbutil.ZeroLogger(log.With().Str("db_section", "timeline").Logger())
	store := timeline.NewStore(db)
	if err = store.Upgrade(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() { _ = db.Close() }, nil
}

func runEdit(ctx context.Context, cmd *cobra.Command, roomID id.RoomID, eventID id.EventID) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	log, err := cfg.Logging.Compile()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	ctx = log.WithContext(ctx)

	client, err := mautrix.NewClient(cfg.Homeserver.URL, cfg.Homeserver.UserID, cfg.Homeserver.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to create Matrix client: %w", err)
	}
	client.DeviceID = cfg.Homeserver.DeviceID
	client.Log = log.With().Str("component", "matrix").Logger()

	store, closeDB, err := openDatabase(ctx, cfg.Database.Path, *log)
	if err != nil {
		return err
	}
	defer closeDB()

	transport := matrixclient.New(client)
	tl := timeline.New(store, transport)
	target, err := editsession.LoadTarget(ctx, tl, roomID, eventID, cfg.Homeserver.UserID)
	if err != nil {
		return err
	}

	session := editsession.New(ctx, target, editsession.Settings{
		Markdown:    cfg.Editor.Markdown,
		ShowToolbar: cfg.Editor.ShowToolbar,
	}, editsession.Deps{
		Transport: transport,
		Latest:    tl,
		Recorder:  tl,
		Log:       log,
	}, func() {
		log.Debug().Msg("Edit panel closed")
	})
	defer session.Close()

	panel := editpanel.New(ctx, session, editpanel.Options{
		CandidateLimit: cfg.Autocomplete.Limit,
		PreviewLength:  cfg.Editor.PreviewLength,
		Title:          fmt.Sprintf("Editing %s in %s", eventID, roomID),
	})
	if _, err = tea.NewProgram(panel, tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("edit panel failed: %w", err)
	}

	result := panel.Result()
	switch result.Outcome {
	case editpanel.OutcomeSaved:
		fmt.Fprintln(cmd.OutOrStdout(), result.EventID)
	case editpanel.OutcomeCancelled:
		fmt.Fprintln(cmd.ErrOrStderr(), "Edit cancelled")
	}
	return nil
}
