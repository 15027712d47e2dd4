package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-incident-report/internal/stubapi"
	"github.com/goliatone/go-incident-report/pkg/answers"
	"github.com/goliatone/go-incident-report/pkg/incident"
	"github.com/goliatone/go-incident-report/pkg/notify"
	"github.com/goliatone/go-incident-report/pkg/pdf"
	"github.com/goliatone/go-incident-report/pkg/review"
	"github.com/goliatone/go-incident-report/pkg/submission"
	"github.com/goliatone/go-incident-report/pkg/tui"
	"github.com/goliatone/go-incident-report/pkg/validation"
)

func newFillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fill",
		Short: "Fill in a report interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.newSession()
			if err != nil {
				return err
			}
			s.Mount(ctx)
			defer s.Close()

			runner, err := tui.NewRunner(s, tui.WithLogger(a.logger.Named("tui")))
			if err != nil {
				return err
			}
			out, err := runner.Run(ctx)
			switch {
			case errors.Is(err, tui.ErrCancelled):
				fmt.Fprintln(a.out, "Report discarded.")
				return nil
			case errors.Is(err, tui.ErrAborted):
				return codeError(exitInterrupt, "interrupted")
			case err != nil:
				return err
			}
			return outcomeError(out)
		},
	}
}

type submitFlags struct {
	answers string
	attach  []string
}

func newSubmitCmd(a *app) *cobra.Command {
	var flags submitFlags
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a report from an answers file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			file, err := readAnswers(flags.answers)
			if err != nil {
				return codeError(exitIncomplete, "%s", err)
			}

			s, err := a.newSession(notify.WriterSink(a.out))
			if err != nil {
				return err
			}
			s.Mount(ctx)
			defer s.Close()

			ctrl := s.Controller()
			if err := ctrl.Load(file.FormState); err != nil {
				return codeError(exitIncomplete, "%s", err)
			}
			files, readErrs := loadAttachments(append(file.Attachments, flags.attach...))
			for _, err := range readErrs {
				fmt.Fprintf(a.out, "[ERROR] %s\n", err)
			}
			// rejected files are announced through the notifier
			ctrl.AddAttachments(files...)

			if err := s.SelectMailGroup(ctx, file.MailGroupID); err != nil {
				return codeError(exitIncomplete, "%s", err)
			}

			out, err := s.Submit(ctx)
			if err != nil {
				return err
			}
			return outcomeError(out)
		},
	}
	cmd.Flags().StringVar(&flags.answers, "answers", "", "YAML file with the form answers")
	cmd.Flags().StringArrayVar(&flags.attach, "attach", nil, "File to attach (may be repeated)")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

// outcomeError maps a pipeline outcome to an exit status.
func outcomeError(out submission.Outcome) error {
	switch {
	case out.Aborted:
		return codeError(exitIncomplete, "report is incomplete")
	case out.BuildError != nil:
		return codeError(exitIncomplete, "%s", out.BuildError)
	case out.ServerError != nil:
		return codeError(exitDelivery, "server rejected the report (%d)", out.ServerError.Status)
	case out.NetworkError != nil:
		return codeError(exitDelivery, "%s", out.NetworkError)
	}
	return nil
}

type previewFlags struct {
	answers string
	pdfOut  string
}

func newPreviewCmd(a *app) *cobra.Command {
	var flags previewFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the review summary for an answers file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := readAnswers(flags.answers)
			if err != nil {
				return codeError(exitIncomplete, "%s", err)
			}
			files, readErrs := loadAttachments(file.Attachments)
			for _, err := range readErrs {
				a.logger.Warn("attachment skipped", zap.Error(err))
			}
			var group *incident.MailGroup
			if id := strings.TrimSpace(file.MailGroupID); id != "" {
				group = &incident.MailGroup{ID: id, Name: id}
			}
			rows := answers.Collect(validation.SanitizeState(file.FormState), files, group)

			text, err := answers.RenderText(a.cfg.Report.Title, rows)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, text)

			if flags.pdfOut == "" {
				return nil
			}
			doc, err := pdf.New(a.reportOptions()...).Render(cmd.Context(), rows)
			if err != nil {
				return err
			}
			if err := os.WriteFile(flags.pdfOut, doc.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", flags.pdfOut, err)
			}
			fmt.Fprintf(a.out, "Wrote %s (%d pages)\n", flags.pdfOut, doc.Pages)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.answers, "answers", "", "YAML file with the form answers")
	cmd.Flags().StringVar(&flags.pdfOut, "pdf", "", "Also render the PDF report to this path")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func newMailGroupsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mail-groups",
		Short: "List the mail groups a report can notify",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			groups, err := c.ListMailGroups(cmd.Context())
			if err != nil {
				return codeError(exitDelivery, "%s", err)
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tKEY")
			for _, g := range groups {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", g.ID, g.Name, g.Key)
			}
			return tw.Flush()
		},
	}
}

type reviewFlags struct {
	status   string
	text     string
	textFile string
}

func newReviewActionCmd(a *app) *cobra.Command {
	var flags reviewFlags
	cmd := &cobra.Command{
		Use:   "review-action <complaint-id>",
		Short: "Record a review action against a complaint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient()
			if err != nil {
				return err
			}
			center := notify.NewCenter(
				notify.WithSink(notify.WriterSink(a.out)),
				notify.WithSink(notify.LogSink(a.logger.Named("notify"))),
			)
			dialog, err := review.NewDialog(args[0], c,
				review.WithNotifier(center),
				review.WithLogger(a.logger.Named("review")),
			)
			if err != nil {
				return err
			}

			text := flags.text
			if flags.textFile != "" {
				raw, err := os.ReadFile(flags.textFile)
				if err != nil {
					return codeError(exitIncomplete, "read %s: %s", flags.textFile, err)
				}
				text = string(raw)
			}
			if err := dialog.SetText(text); err != nil {
				return codeError(exitIncomplete, "%s", err)
			}
			if err := dialog.SetStatus(flags.status); err != nil {
				return codeError(exitIncomplete, "%s (one of %s)", err, strings.Join(dialog.Statuses(), ", "))
			}
			if err := dialog.Submit(cmd.Context()); err != nil {
				if errors.Is(err, review.ErrEmptyAction) || errors.Is(err, review.ErrNoStatus) {
					return codeError(exitIncomplete, "%s", err)
				}
				return codeError(exitDelivery, "%s", err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.status, "status", "", "New complaint status")
	f.StringVar(&flags.text, "text", "", "Action taken")
	f.StringVar(&flags.textFile, "text-file", "", "Read the action text from a file")
	return cmd
}

type stubFlags struct {
	addr  string
	token string
}

func newStubAPICmd(a *app) *cobra.Command {
	var flags stubFlags
	cmd := &cobra.Command{
		Use:   "stub-api",
		Short: "Serve a local complaints API for development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr := flags.addr
			if addr == "" {
				addr = a.cfg.Stub.Addr
			}
			token := flags.token
			if token == "" {
				token = a.cfg.Stub.Token
			}
			if !a.logger.Core().Enabled(zap.DebugLevel) {
				gin.SetMode(gin.ReleaseMode)
			}
			srv, err := stubapi.New(
				stubapi.WithToken(token),
				stubapi.WithLogger(a.logger.Named("stubapi")),
			)
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (defaults to stub.addr)")
	cmd.Flags().StringVar(&flags.token, "token", "", "Require this bearer token")
	return cmd
}
