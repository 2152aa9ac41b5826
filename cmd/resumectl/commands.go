package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"resume-builder/internal/uploadsession"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF resume and wait until it is parsed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			ctrl, _, err := opts.controller(cmd.Context())
			if err != nil {
				return err
			}
			defer ctrl.Teardown()

			err = ctrl.StartUpload(cmd.Context(), uploadsession.File{
				Name:        filepath.Base(args[0]),
				ContentType: contentType,
				Data:        data,
			})
			if errors.Is(err, uploadsession.ErrBusy) {
				return fmt.Errorf("session %q already has a pending upload; run `resumectl resume` or `resumectl reset`", opts.sessionID)
			}
			if err != nil && ctrl.State().Phase() == uploadsession.PhaseIdle {
				return err
			}
			return opts.settle(cmd.Context(), cmd.OutOrStdout(), ctrl)
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "Declared content type (default: inferred from the extension)")
	return cmd
}

func newResumeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Continue polling an upload left pending by an earlier run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, _, err := opts.controller(cmd.Context())
			if err != nil {
				return err
			}
			defer ctrl.Teardown()

			if ctrl.State().Phase() == uploadsession.PhaseIdle {
				fmt.Fprintf(cmd.ErrOrStderr(), "no pending upload in session %q\n", opts.sessionID)
				return printJSON(cmd.OutOrStdout(), map[string]string{"state": string(uploadsession.PhaseIdle)})
			}
			return opts.settle(cmd.Context(), cmd.OutOrStdout(), ctrl)
		},
	}
}

func newOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <documentId>",
		Short: "Load an already parsed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := opts.controller(cmd.Context())
			if err != nil {
				return err
			}
			defer ctrl.Teardown()

			if _, err := ctrl.HydrateExisting(cmd.Context(), uploadsession.DocumentID(args[0])); err != nil && ctrl.State().Phase() == uploadsession.PhaseIdle {
				return err
			}
			return opts.settle(cmd.Context(), cmd.OutOrStdout(), ctrl)
		},
	}
}

func newLastCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Load the most recently opened document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, _, err := opts.controller(cmd.Context())
			if err != nil {
				return err
			}
			defer ctrl.Teardown()

			_, ok, err := ctrl.ResumeLastDocument(cmd.Context())
			if !ok && err == nil {
				return fmt.Errorf("no document has been opened yet")
			}
			if err != nil && ctrl.State().Phase() == uploadsession.PhaseIdle {
				return err
			}
			return opts.settle(cmd.Context(), cmd.OutOrStdout(), ctrl)
		},
	}
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Abandon the pending upload of this session without contacting the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// A controller would resume polling the job being abandoned, so
			// the marker is cleared through the store directly.
			binding, err := opts.binding(cmd.Context())
			if err != nil {
				return err
			}
			if err := binding.ClearMarker(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"state": string(uploadsession.PhaseIdle)})
		},
	}
}

type statusView struct {
	Session      string `json:"session"`
	Owner        string `json:"owner"`
	PendingJobID string `json:"pendingJobId,omitempty"`
	LastDocument string `json:"lastDocumentId,omitempty"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted pending job and last document without contacting the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			binding, err := opts.binding(cmd.Context())
			if err != nil {
				return err
			}
			view := statusView{Session: opts.sessionID, Owner: opts.ownerID()}
			if job, ok, err := binding.LoadMarker(cmd.Context()); err != nil {
				return err
			} else if ok {
				view.PendingJobID = string(job)
			}
			if doc, ok, err := binding.LastDocument(cmd.Context()); err != nil {
				return err
			} else if ok {
				view.LastDocument = string(doc)
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}
