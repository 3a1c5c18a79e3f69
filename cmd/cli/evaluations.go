package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/draphael123/Evaluation-Tracker/browser"
	"github.com/draphael123/Evaluation-Tracker/evaluation"
	"github.com/draphael123/Evaluation-Tracker/logger"
	"github.com/draphael123/Evaluation-Tracker/runner"
	"github.com/draphael123/Evaluation-Tracker/storage"
	"github.com/draphael123/Evaluation-Tracker/traversal"
)

func newEvaluationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "evaluations",
		Aliases: []string{"evals"},
		Short:   "Manage website flow evaluations",
	}

	cmd.AddCommand(newEvaluationsQueueCmd())
	cmd.AddCommand(newEvaluationsListCmd())
	cmd.AddCommand(newEvaluationsGetCmd())
	cmd.AddCommand(newEvaluationsRunCmd())
	return cmd
}

// evaluationConfigFlags binds the run configuration flags shared by queue
// and run.
func evaluationConfigFlags(cmd *cobra.Command, cfg *evaluation.Config) {
	cmd.Flags().StringVar(&cfg.StartURL, "start-url", "", "Entry URL of the flow (required)")
	cmd.MarkFlagRequired("start-url")
	cmd.Flags().StringVar(&cfg.WebsiteName, "name", "", "Website name for the report (required)")
	cmd.MarkFlagRequired("name")
	cmd.Flags().IntVar(&cfg.MaxSteps, "max-steps", 0, "Step budget (default 20, max 100)")
	cmd.Flags().StringVar(&cfg.Viewport, "viewport", "desktop", "Viewport: desktop, tablet, or mobile")
	cmd.Flags().BoolVar(&cfg.AutoFillForms, "autofill", true, "Fill empty form fields with synthetic data")
	cmd.Flags().IntVar(&cfg.StepDelayMs, "step-delay-ms", 0, "Delay after each click before observing")
	cmd.Flags().IntVar(&cfg.RunTimeoutSec, "timeout-sec", 0, "Overall run timeout in seconds")
}

func newEvaluationsQueueCmd() *cobra.Command {
	var cfg evaluation.Config

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue an evaluation on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := getClient().Post("/api/v1/evaluations", cfg)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var e evaluation.Evaluation
			if err := json.Unmarshal(body, &e); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printMessage(fmt.Sprintf("Evaluation %s queued for %s", e.ID, e.StartURL))
			return nil
		},
	}

	evaluationConfigFlags(cmd, &cfg)
	return cmd
}

func newEvaluationsListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List evaluations",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			if offset > 0 {
				query.Set("offset", strconv.Itoa(offset))
			}

			body, err := getClient().Get("/api/v1/evaluations", query)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var resp PaginatedResponse[evaluation.Evaluation]
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"ID", "WEBSITE", "STATUS", "STEPS", "REASON", "CREATED AT"}
			var rows [][]string
			for _, e := range resp.Items {
				rows = append(rows, []string{
					e.ID.String(),
					e.WebsiteName,
					string(e.Status),
					strconv.Itoa(len(e.Steps)),
					e.TerminationReason,
					e.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nShowing %d of %d evaluations", len(resp.Items), resp.Total))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset for pagination")
	return cmd
}

func newEvaluationsGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <evaluation-id>",
		Short: "Show an evaluation and its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := getClient().Get("/api/v1/evaluations/"+args[0], nil)
			if err != nil {
				return err
			}

			if flagJSON {
				var raw json.RawMessage
				json.Unmarshal(body, &raw)
				printJSON(raw)
				return nil
			}

			var e evaluation.Evaluation
			if err := json.Unmarshal(body, &e); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			printEvaluation(&e)
			return nil
		},
	}
	return cmd
}

func newEvaluationsRunCmd() *cobra.Command {
	var cfg evaluation.Config
	var headless bool
	var screenshotsDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an evaluation locally with a Chrome browser",
		Long:  "Runs an evaluation in this process against a locally installed Chrome, without a backend. Screenshots land in --screenshots-dir.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			level := "warn"
			if flagDebug {
				level = "debug"
			}
			log := logger.NewLogrusLogger(level)

			blobs, err := storage.NewLocalStorage(screenshotsDir)
			if err != nil {
				return fmt.Errorf("failed to initialize screenshot storage: %w", err)
			}

			store := evaluation.NewMemoryStore()
			e, err := evaluation.New(cfg)
			if err != nil {
				return err
			}
			if err := store.Create(ctx, e); err != nil {
				return err
			}

			factory := browser.NewChromeFactory(browser.ChromeOptions{
				Headless: headless,
			}, log)
			engine := traversal.NewEngine(blobs, progressSink(), log)
			localRunner := runner.NewRunner(factory, store, engine, log)

			claimed, err := store.ClaimNextPending(ctx)
			if err != nil {
				return err
			}

			started := time.Now()
			if err := localRunner.Run(ctx, claimed); err != nil {
				return err
			}

			result, err := store.GetByID(ctx, claimed.ID)
			if err != nil {
				return err
			}

			if flagJSON {
				printJSON(result)
				return nil
			}

			printEvaluation(result)
			printMessage(fmt.Sprintf("\nFinished in %s; screenshots under %s", time.Since(started).Round(time.Millisecond), screenshotsDir))
			return nil
		},
	}

	evaluationConfigFlags(cmd, &cfg)
	cmd.Flags().BoolVar(&headless, "headless", true, "Run Chrome headless")
	cmd.Flags().StringVar(&screenshotsDir, "screenshots-dir", "./screenshots", "Directory for step screenshots")
	return cmd
}

// progressSink prints traversal events to the terminal as they happen.
func progressSink() traversal.EventSink {
	sink := traversal.NewChannelSink(64)
	go func() {
		for event := range sink.C {
			switch event.Type {
			case traversal.EventStepStarted:
				printMessage(fmt.Sprintf("step %d ...", event.StepNumber))
			case traversal.EventStepCompleted:
				printMessage(fmt.Sprintf("step %d done: %s (%s)", event.StepNumber, event.URL, event.Message))
			case traversal.EventBlocked:
				printMessage(fmt.Sprintf("step %d blocked: %s", event.StepNumber, event.Message))
			case traversal.EventStepError:
				printMessage(fmt.Sprintf("step %d error: %s", event.StepNumber, event.Message))
			}
		}
	}()
	return sink
}

func printEvaluation(e *evaluation.Evaluation) {
	printMessage(fmt.Sprintf("Evaluation: %s", e.ID))
	printMessage(fmt.Sprintf("Website:    %s", e.WebsiteName))
	printMessage(fmt.Sprintf("Start URL:  %s", e.StartURL))
	printMessage(fmt.Sprintf("Status:     %s", e.Status))
	printMessage(fmt.Sprintf("Reason:     %s", e.TerminationReason))
	printMessage(fmt.Sprintf("Steps:      %d completed, %d failed, %dms total", e.CompletedSteps, e.FailedSteps, e.TotalDurationMs))

	if len(e.Steps) == 0 {
		return
	}

	printMessage("")
	headers := []string{"#", "URL", "TITLE", "SELECTED", "FILLED", "CLICKED", "NOTES"}
	var rows [][]string
	for _, s := range e.Steps {
		notes := ""
		if s.Blocked {
			notes = "blocked: " + s.BlockCategory
		} else if len(s.Errors) > 0 {
			notes = s.Errors[0]
		}
		rows = append(rows, []string{
			strconv.Itoa(s.StepNumber),
			s.URL,
			s.PageTitle,
			s.SelectedOption,
			strconv.Itoa(s.FieldsFilled),
			s.ClickedControl,
			notes,
		})
	}
	printTable(headers, rows)
}
