// Package main is the CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	triageclient "github.com/tinkerloft/triage/internal/client"
	"github.com/tinkerloft/triage/internal/model"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Triage CLI",
	Long:  "CLI for the task triage and knowledge consolidation service",
}

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify a task",
	Long:  "Score task text against the registered domains and print the disposition",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Start a consolidation run",
	Long:  "Start a consolidation run over the given window (defaults to everything since the last successful run)",
	RunE:  runConsolidate,
}

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "List flagged knowledge units",
	RunE:  runApprovals,
}

var decideCmd = &cobra.Command{
	Use:   "decide [unit-id] [approved|rejected]",
	Short: "Decide a flagged knowledge unit",
	Args:  cobra.ExactArgs(2),
	RunE:  runDecide,
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Print a day's consolidation digest",
	RunE:  runDigest,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Create the nightly consolidation schedule",
	Long:  "Create the Temporal schedule that runs consolidation every night",
	RunE:  runSchedule,
}

var (
	taskID     string
	sinceFlag  string
	untilFlag  string
	domainFlag string
	dateFlag   string
	cronFlag   string
	waitFlag   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("TRIAGE_SERVER_URL", "http://localhost:8080"), "triage server base URL")

	classifyCmd.Flags().StringVar(&taskID, "task-id", "", "task id (required)")
	_ = classifyCmd.MarkFlagRequired("task-id")

	consolidateCmd.Flags().StringVar(&sinceFlag, "since", "", "window start (RFC 3339)")
	consolidateCmd.Flags().StringVar(&untilFlag, "until", "", "window end (RFC 3339)")
	consolidateCmd.Flags().BoolVar(&waitFlag, "wait", false, "wait for the run to finish and print its summary")

	approvalsCmd.Flags().StringVar(&domainFlag, "domain", "", "filter by domain id")

	digestCmd.Flags().StringVar(&dateFlag, "date", "", "day to summarize (YYYY-MM-DD, default today)")

	scheduleCmd.Flags().StringVar(&cronFlag, "cron", "", "cron expression (default 0 3 * * *)")

	rootCmd.AddCommand(classifyCmd, consolidateCmd, approvalsCmd, decideCmd, digestCmd, scheduleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runClassify(cmd *cobra.Command, args []string) error {
	body := map[string]any{"task_id": taskID, "text": args[0]}
	var resp map[string]any
	if err := postJSON("/api/v1/classify", body, &resp); err != nil {
		return err
	}
	return printJSON(resp)
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	body := map[string]any{}
	if sinceFlag != "" {
		t, err := time.Parse(time.RFC3339, sinceFlag)
		if err != nil {
			return fmt.Errorf("invalid since value %q: %w", sinceFlag, err)
		}
		body["since"] = t
	}
	if untilFlag != "" {
		t, err := time.Parse(time.RFC3339, untilFlag)
		if err != nil {
			return fmt.Errorf("invalid until value %q: %w", untilFlag, err)
		}
		body["until"] = t
	}

	var resp struct {
		WorkflowID string `json:"workflow_id"`
		RunID      string `json:"run_id"`
	}
	if err := postJSON("/api/v1/consolidate", body, &resp); err != nil {
		return err
	}
	fmt.Printf("Consolidation started: %s\n", resp.WorkflowID)

	if !waitFlag {
		return nil
	}
	tc, err := triageclient.New()
	if err != nil {
		return err
	}
	defer tc.Close()
	summary, err := tc.ConsolidationResult(context.Background(), resp.WorkflowID)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func runApprovals(cmd *cobra.Command, args []string) error {
	path := "/api/v1/approvals"
	if domainFlag != "" {
		path += "?domain=" + domainFlag
	}
	var resp struct {
		Units []model.KnowledgeUnit `json:"units"`
	}
	if err := getJSON(path, &resp); err != nil {
		return err
	}
	if len(resp.Units) == 0 {
		fmt.Println("No units awaiting approval.")
		return nil
	}
	for _, u := range resp.Units {
		fmt.Printf("%s  v%d  %s/%s  updated %s\n", u.ID, u.Version, u.DomainID, u.TaskID, u.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runDecide(cmd *cobra.Command, args []string) error {
	decision := model.Decision(args[1])
	if !decision.Valid() {
		return fmt.Errorf("decision must be approved or rejected, got %q", args[1])
	}
	var resp map[string]any
	if err := postJSON("/api/v1/approvals/"+args[0]+"/decide", map[string]any{"decision": decision}, &resp); err != nil {
		return err
	}
	fmt.Printf("Unit %s %s.\n", args[0], decision)
	return nil
}

func runDigest(cmd *cobra.Command, args []string) error {
	path := "/api/v1/digest"
	if dateFlag != "" {
		path += "?date=" + dateFlag
	}
	var digest model.Digest
	if err := getJSON(path, &digest); err != nil {
		return err
	}
	return printJSON(digest)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	tc, err := triageclient.New()
	if err != nil {
		return err
	}
	defer tc.Close()
	if err := tc.CreateNightlySchedule(context.Background(), cronFlag); err != nil {
		return err
	}
	fmt.Println("Nightly consolidation schedule created.")
	return nil
}

func postJSON(path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(serverURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(path string, out any) error {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
