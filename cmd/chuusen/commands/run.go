package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	chuusen "github.com/hamproductions/chuusen-simulator"
)

var (
	runFlags inputFlags
	runJSON  bool
	runWatch bool
	runQuiet bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation with the saved input and any overrides",
	Long: `Run loads the saved input, applies the flags given on the command line and
simulates the lottery. Ctrl-C cancels the run between trials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		input, err := app.service.CurrentInput(ctx)
		if err != nil {
			return err
		}
		input = runFlags.apply(cmd, input)

		if runWatch {
			if err := app.configManager.WatchConfig(func(cfg *chuusen.Config) {
				if err := app.service.Controller().Configure(cfg.Simulation); err != nil {
					app.logger.Error("Ignoring reloaded simulation config: %v", err)
				}
			}); err != nil {
				return err
			}
		}

		record, err := runWithWorker(ctx, input, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), record, runJSON)
	},
}

func init() {
	runFlags.register(runCmd)
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the full result as JSON")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "reload simulation settings when the config file changes")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "do not print progress")
}

// runWithWorker drives one run through the background worker. One goroutine
// forwards interrupts as cancel requests, the other consumes responses.
func runWithWorker(ctx context.Context, input chuusen.SimulationInput, progressOut io.Writer) (*chuusen.RunRecord, error) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	worker := chuusen.NewWorker(app.service, app.logger)
	worker.Start(ctx)
	defer worker.Close()

	req := chuusen.NewRunRequest(input)
	if err := worker.Send(req); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	record := &chuusen.RunRecord{RunID: req.ID, Input: input}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-sigCtx.Done():
			if ctx.Err() == nil {
				fmt.Fprintln(progressOut, "\ncancelling...")
			}
			return worker.Send(chuusen.CancelRequest{})
		case <-done:
			return nil
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		defer close(done)
		for resp := range worker.Responses() {
			if resp.RunID() != req.ID {
				continue
			}
			switch r := resp.(type) {
			case chuusen.ProgressResponse:
				if !runQuiet {
					fmt.Fprintf(progressOut, "\rprogress: %3d%%", r.Value)
				}
			case chuusen.SuccessResponse:
				if !runQuiet {
					fmt.Fprintf(progressOut, "\rprogress: %3d%%\n", chuusen.MaxProgress)
				}
				record.State = chuusen.StateCompleted
				record.Result = r.Result
				return nil
			case chuusen.CancelledResponse:
				record.State = chuusen.StateCancelled
				return nil
			case chuusen.ErrorResponse:
				record.State = chuusen.StateFailed
				record.Error = r.Message
				return r.Err
			}
		}
		return errors.New("worker stopped before the run finished")
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return record, nil
}

func printRecord(w io.Writer, record *chuusen.RunRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	fmt.Fprintf(w, "run %s: %s\n", record.RunID, record.State)
	if record.Error != "" {
		fmt.Fprintf(w, "error: %s\n", record.Error)
	}
	if record.Result == nil {
		return nil
	}

	res := record.Result
	ins := chuusen.Insights(record.Input, res)
	fmt.Fprintf(w, "people in pool:        %d\n", res.TotalPeopleInPool)
	fmt.Fprintf(w, "your wins:             %d (%.2f%%)\n", res.YouWinCount, ins.YourWinPercentage)
	fmt.Fprintf(w, "expected wins:         %.2f\n", ins.ExpectedWins)
	fmt.Fprintf(w, "chance per ballot:     %.4f%%\n", ins.ChancePerBallotPercent)
	fmt.Fprintf(w, "ballots per winner:    mean %.2f, median %.1f, mode %d\n",
		res.AvgBallotsPerWinner, res.MedianBallotsPerWinner, res.ModeBallotsPerWinner)
	for ch := range record.Input.NumChannels {
		outcome := res.ChannelAnalysis[ch]
		fmt.Fprintf(w, "channel %-3d            you won %d, winners %d\n", ch, outcome.YouWonCount, outcome.TotalWinners)
	}
	return nil
}
