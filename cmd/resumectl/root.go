package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"resume-builder/internal/advisorapi"
	"resume-builder/internal/bridge"
	"resume-builder/internal/markers"
	"resume-builder/internal/shared/config"
	"resume-builder/internal/shared/storage/db"
	"resume-builder/internal/shared/util"
	"resume-builder/internal/uploadsession"
)

type rootOptions struct {
	apiURL       string
	token        string
	guestID      string
	sessionID    string
	stateDir     string
	store        string
	databaseURL  string
	pollInterval time.Duration
	wait         time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "resumectl",
		Short:         "Upload a resume and follow its parse from the terminal",
		Long:          "resumectl uploads a PDF resume to the advisor API, polls until it is parsed and prints the form fields and chat transcript. A pending upload survives restarts and is resumed with `resumectl resume`.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", envOr("ADVISOR_API_URL", "http://localhost:8090"), "Advisor API base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("ADVISOR_API_TOKEN"), "Bearer token (overrides --guest)")
	flags.StringVar(&opts.guestID, "guest", envOr("RESUMECTL_GUEST_ID", "cli"), "Guest id used when no token is set")
	flags.StringVar(&opts.sessionID, "session", "default", "Session name; each session tracks one pending upload")
	flags.StringVar(&opts.stateDir, "state-dir", envOr("STATE_DIR", defaultStateDir()), "Directory for pending upload markers")
	flags.StringVar(&opts.store, "store", "file", "Marker store: file or postgres")
	flags.StringVar(&opts.databaseURL, "db-url", os.Getenv("DATABASE_URL"), "Database URL for --store postgres")
	flags.DurationVar(&opts.pollInterval, "poll-interval", 2*time.Second, "Status poll interval")
	flags.DurationVar(&opts.wait, "wait", 10*time.Minute, "Maximum time to wait for a result")

	root.AddCommand(
		newUploadCmd(opts),
		newResumeCmd(opts),
		newOpenCmd(opts),
		newLastCmd(opts),
		newResetCmd(opts),
		newStatusCmd(opts),
	)
	return root
}

func (o *rootOptions) ownerID() string {
	if o.token != "" {
		return "user:" + util.HashUserKey(o.token)
	}
	return "guest:" + o.guestID
}

func (o *rootOptions) binding(ctx context.Context) (*markers.Binding, error) {
	if o.store != "file" && o.store != "postgres" {
		return nil, fmt.Errorf("unknown --store %q", o.store)
	}
	if o.store == "postgres" && o.databaseURL == "" {
		return nil, fmt.Errorf("--store postgres requires --db-url or DATABASE_URL")
	}
	store, err := markers.Open(ctx, config.Config{
		MarkerStore: o.store,
		StateDir:    o.stateDir,
		DatabaseURL: o.databaseURL,
	}, db.DefaultCLIOptions())
	if err != nil {
		return nil, err
	}
	owner := o.ownerID()
	return markers.Bind(store, owner+"|"+o.sessionID, owner), nil
}

// controller builds a controller over the file marker store. Construction
// resumes polling for a pending job.
func (o *rootOptions) controller(ctx context.Context) (*uploadsession.Controller, *markers.Binding, error) {
	binding, err := o.binding(ctx)
	if err != nil {
		return nil, nil, err
	}
	clientOpts := advisorapi.Options{BaseURL: o.apiURL, Token: o.token}
	if o.token == "" {
		clientOpts.GuestID = o.guestID
	}
	client, err := advisorapi.NewClient(clientOpts)
	if err != nil {
		return nil, nil, err
	}
	ctrl := uploadsession.New(ctx, client, binding,
		uploadsession.WithPollInterval(o.pollInterval),
		uploadsession.WithLastDocumentStore(binding),
		uploadsession.WithLogFields(map[string]any{"session_id": o.sessionID}),
	)
	return ctrl, binding, nil
}

// settle waits for ctrl to leave its busy states and prints the result.
// An interrupted wait leaves the marker in place for `resumectl resume`.
func (o *rootOptions) settle(ctx context.Context, out io.Writer, ctrl *uploadsession.Controller) error {
	waitCtx, cancel := context.WithTimeout(ctx, o.wait)
	defer cancel()

	st, err := ctrl.Wait(waitCtx)
	if err != nil {
		if p, ok := st.(uploadsession.Polling); ok {
			fmt.Fprintf(os.Stderr, "job %s is still pending; run `resumectl resume --session %s` to continue\n", p.Job, o.sessionID)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("stopped waiting: %w", err)
		}
		return err
	}
	if err := printJSON(out, bridge.RenderState(st)); err != nil {
		return err
	}
	if f, ok := st.(uploadsession.Failed); ok {
		return f.Err
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "resumectl")
	}
	return ".resumectl"
}
