package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pysugar/visionary-studio/internal/app"
	"github.com/pysugar/visionary-studio/internal/generator"
	"github.com/pysugar/visionary-studio/internal/version"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate an image from a prompt",
	Long: `Generate an image and add it to the local history.

Supported aspect ratios: ` + strings.Join(generator.AspectRatios, ", ") + `

Examples:
  visionary-cli generate "a red fox in snow"
  visionary-cli generate "city skyline" --aspect 9:16 --save`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent generations",
	RunE:  runHistory,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove an image from the history",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var saveCmd = &cobra.Command{
	Use:   "save [id]",
	Short: "Export an image to Google Drive and Sheets",
	Long: `Upload a history entry to Google Drive and log it in the
"Visionary AI Generations" spreadsheet. Without an id the newest entry is
saved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSave,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Connect a Google account",
	Long: `Start the Google consent flow. A local server receives the callback
on the configured APP_URL, so the redirect URI registered in Google Cloud must
match it.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored Google session",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a Google account is connected",
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("visionary-cli %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildTime)
	},
}

func init() {
	generateCmd.Flags().StringP("aspect", "a", "1:1", "aspect ratio")
	generateCmd.Flags().Bool("save", false, "export the result to Google right away")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()
	aspect, _ := cmd.Flags().GetString("aspect")
	save, _ := cmd.Flags().GetBool("save")

	if err := e.state.SetAspectRatio(aspect); err != nil {
		return err
	}
	e.state.SetPrompt(strings.Join(args, " "))

	fmt.Println("🎨 Generating...")
	img, err := e.state.Generate(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s\n", img.ID)
	fmt.Printf("   Prompt: %s\n", img.Prompt)
	fmt.Printf("   Image:  %s\n", shorten(img.URL))

	if !save {
		return nil
	}
	return saveCurrent(cmd, e)
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()
	items := e.state.Snapshot().History
	if len(items) == 0 {
		fmt.Println("No generations yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tASPECT\tCREATED\tPROMPT")
	for _, img := range items {
		created := time.UnixMilli(img.Timestamp).Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", img.ID, img.AspectRatio, created, shorten(img.Prompt))
	}
	return w.Flush()
}

func runDelete(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()
	if !e.state.Delete(args[0]) {
		return fmt.Errorf("image %s not found", args[0])
	}
	fmt.Printf("🗑️ Deleted %s\n", args[0])
	return nil
}

func runSave(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()
	view := e.state.Snapshot()
	if len(view.History) == 0 {
		return app.ErrNoImage
	}
	id := view.History[0].ID
	if len(args) == 1 {
		id = args[0]
	}
	if !e.state.Select(id) {
		return fmt.Errorf("image %s not found", id)
	}
	return saveCurrent(cmd, e)
}

func saveCurrent(cmd *cobra.Command, e *env) error {
	fmt.Println("📁 Saving to Google Drive...")
	link, err := e.state.Save(cmd.Context())
	if errors.Is(err, app.ErrNotConnected) {
		return fmt.Errorf("%w (run `visionary-cli login`)", err)
	}
	if err != nil {
		return err
	}
	fmt.Printf("✅ Saved: %s\n", link)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	err = app.Login(cmd.Context(), e.auth, e.tokens, func(url string) {
		fmt.Println("🔐 Open this URL in your browser to connect Google:")
		fmt.Println()
		fmt.Println("  " + url)
		fmt.Println()
		fmt.Println("Waiting for the callback...")
	})
	if err != nil {
		return err
	}
	fmt.Println("✅ Google account connected")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.tokens.Clear(); err != nil {
		return fmt.Errorf("clear google session: %w", err)
	}
	fmt.Println("👋 Google account disconnected")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.close()
	if e.state.Snapshot().IsAuthenticated {
		fmt.Println("✅ Google: connected")
	} else {
		fmt.Println("❌ Google: not connected")
	}
	return nil
}

func shorten(s string) string {
	if len(s) <= 72 {
		return s
	}
	return s[:69] + "..."
}
