package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/healthsync-ai/cli/internal/app"
	"github.com/healthsync-ai/cli/internal/archive"
	"github.com/healthsync-ai/cli/internal/chat"
	"github.com/healthsync-ai/cli/internal/documents"
	"github.com/healthsync-ai/cli/internal/health"
	"github.com/healthsync-ai/cli/internal/insights"
	"github.com/healthsync-ai/cli/internal/report"
)

var errActionFailed = errors.New("action failed")

// printStatus writes the status line and turns an error status into a
// non-zero exit.
func printStatus(st app.Status) error {
	switch st.Kind {
	case app.StatusSuccess:
		fmt.Println(chat.Sanitize(st.Message))
	case app.StatusError:
		fmt.Fprintln(os.Stderr, chat.Sanitize(st.Message))
		return errActionFailed
	}
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the backend and print the current health data",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			hs, err := e.app.Client.Health(ctx)
			if err != nil {
				return fmt.Errorf("backend %s unreachable: %w", e.app.Client.BaseURL(), err)
			}
			fmt.Printf("Backend:  %s (%s)\n", e.app.Client.BaseURL(), hs.Status)
			fmt.Printf("Session:  %s\n", e.app.Session().Label())
			if e.app.Session().Expired(time.Now()) {
				fmt.Println("          token expired, run healthsync login")
			}

			out := e.app.Refresh(ctx)
			if err := printStatus(out.Status); err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), e.app.Store.Snapshot())
			return nil
		},
	}
}

// printSnapshot writes the snapshot as text. Every server string is
// sanitized before it reaches the terminal.
func printSnapshot(w io.Writer, snap health.Snapshot) {
	clean := chat.Sanitize
	fmt.Fprintf(w, "\n%s\n", snap.Summary())
	fmt.Fprintf(w, "Documents: %d\n", len(snap.Documents))

	if len(snap.Medications) > 0 {
		fmt.Fprintln(w, "\nMedications:")
		for _, m := range snap.Medications {
			fmt.Fprintf(w, "  - %s %s, %s\n", clean(m.Name), clean(m.Dosage), clean(m.Frequency))
		}
	}
	if len(snap.Appointments) > 0 {
		fmt.Fprintln(w, "\nAppointments:")
		for _, a := range snap.Appointments {
			fmt.Fprintf(w, "  - %s with %s on %s (%s)\n", clean(a.Type), clean(a.Doctor), clean(a.Date), clean(a.Reason))
		}
	}
	if len(snap.HealthMetrics) > 0 {
		fmt.Fprintln(w, "\nHealth metrics:")
		for _, m := range snap.HealthMetrics {
			fmt.Fprintf(w, "  - %s: %s %s [%s]\n", clean(m.Metric), clean(m.Value), clean(m.Status), m.Level())
		}
	}
	if len(snap.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, r := range snap.Recommendations {
			fmt.Fprintf(w, "  - %s\n", clean(r))
		}
	}
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Analyze document text or a file and refresh health data",
		Long: "Analyze pasted text (as an argument or on stdin) or a file given with --file.\n" +
			"With --extract, text is pulled out of PDF or HTML files locally and sent as text.",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			extract, _ := cmd.Flags().GetBool("extract")
			force, _ := cmd.Flags().GetBool("force")

			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			var out app.Outcome
			if file != "" {
				out = e.app.AnalyzeFile(ctx, file, documents.Options{ExtractLocally: extract, Force: force})
			} else {
				text := strings.Join(args, " ")
				if text == "" {
					data, err := io.ReadAll(cmd.InOrStdin())
					if err != nil {
						return fmt.Errorf("failed to read stdin: %w", err)
					}
					text = string(data)
				}
				out = e.app.AnalyzeText(ctx, text)
			}

			out = e.app.Settle(ctx, out)
			return printStatus(out.Status)
		},
	}
	cmd.Flags().StringP("file", "f", "", "File to import (pdf, image or text)")
	cmd.Flags().Bool("extract", false, "Extract text locally and submit it as text")
	cmd.Flags().Bool("force", false, "Submit a file again even if it was already analyzed")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask the health assistant a question, or print the conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			if len(args) == 0 {
				records, err := e.app.Client.ChatHistory(ctx)
				if err != nil {
					return err
				}
				for _, msg := range chat.Explode(records) {
					printMessage(msg)
				}
				return nil
			}

			reply, out := e.app.SendChat(ctx, strings.Join(args, " "))
			if err := printStatus(out.Status); err != nil {
				return err
			}
			printMessage(reply)
			if reply.Kind == chat.KindError {
				return errActionFailed
			}
			e.app.Settle(ctx, out)
			return nil
		},
	}
}

func printMessage(msg chat.Message) {
	switch msg.Kind {
	case chat.KindUser:
		fmt.Printf("You: %s\n", chat.Sanitize(msg.Content))
	case chat.KindAI:
		fmt.Printf("HealthSync AI: %s\n\n", chat.PlainText(chat.ParseMarkdown(msg.Content)))
	case chat.KindError:
		fmt.Fprintln(os.Stderr, msg.Content)
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Create calendar events for the medication schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			out := e.app.Settle(cmd.Context(), e.app.SyncCalendar(cmd.Context()))
			return printStatus(out.Status)
		},
	}
}

func insightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Generate AI insights over the current health data",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			out := e.app.Refresh(ctx)
			if err := printStatus(out.Status); err != nil {
				return err
			}
			if !insights.Warranted(e.app.Store.Snapshot()) {
				fmt.Println("Upload documents to get AI insights.")
				return nil
			}

			var st app.Status
			if out.Insights != nil {
				st = e.app.GenerateInsights(ctx, *out.Insights)
			} else {
				st = e.app.RefreshInsights(ctx)
			}
			if err := printStatus(st); err != nil {
				return err
			}

			printInsights(cmd.OutOrStdout(), e.app.Insights.Report())
			return nil
		},
	}
}

func printInsights(w io.Writer, r *health.InsightReport) {
	if r.Empty() {
		fmt.Fprintln(w, "No insights generated.")
		return
	}
	for _, group := range []struct {
		title string
		items []string
	}{
		{"Insights", r.Insights},
		{"Trends", r.Trends},
		{"Alerts", r.Alerts},
		{"Recommendations", r.Recommendations},
	} {
		if len(group.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", group.title)
		for _, item := range group.items {
			fmt.Fprintf(w, "  - %s\n", chat.Sanitize(item))
		}
	}
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the current health data as a PDF summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			withInsights, _ := cmd.Flags().GetBool("insights")

			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			out := e.app.Refresh(ctx)
			if err := printStatus(out.Status); err != nil {
				return err
			}
			if withInsights {
				e.app.Settle(ctx, out)
			}

			font, err := report.FindFont(e.cfg.Report.FontPath)
			if err != nil {
				return err
			}
			if err := report.WriteFile(output, e.app.Report(time.Now()), font); err != nil {
				return err
			}
			fmt.Printf("Report written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "healthsync-report.pdf", "Output PDF path")
	cmd.Flags().Bool("insights", true, "Generate AI insights and include them")
	return cmd
}

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Mirror documents and chat history into PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, _ := cmd.Flags().GetString("dsn")

			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if dsn == "" {
				dsn = e.cfg.Archive.DSN
			}
			if dsn == "" {
				return errors.New("no archive database configured: set archive.dsn or HEALTHSYNC_ARCHIVE_DSN")
			}

			ctx := cmd.Context()
			arch, err := archive.Open(ctx, dsn, e.log)
			if err != nil {
				return err
			}
			defer arch.Close()

			if err := arch.EnsureSchema(ctx); err != nil {
				return err
			}

			_, st := e.app.ArchiveSnapshot(ctx, arch)
			return printStatus(st)
		},
	}
	cmd.Flags().String("dsn", "", "PostgreSQL connection string (overrides config)")
	return cmd
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <token>",
		Short: "Save an access token for the following requests (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]
			if token == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				token = strings.TrimSpace(string(data))
			}

			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			sess, err := e.app.SignIn(token)
			if err != nil {
				return err
			}
			fmt.Printf("Signed in as %s\n", sess.Label())
			if !sess.ExpiresAt.IsZero() {
				fmt.Printf("Token expires %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))
			}
			if sess.Expired(time.Now()) {
				fmt.Fprintln(os.Stderr, "Warning: this token has already expired")
			}
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.app.SignOut(); err != nil {
				return err
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}
