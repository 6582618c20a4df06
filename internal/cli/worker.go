package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/forPelevin/mkshorts/internal/config"
	"github.com/forPelevin/mkshorts/internal/pipeline"
	"github.com/forPelevin/mkshorts/internal/ports"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/mongostore"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/redisqueue"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/youtube"
	"github.com/forPelevin/mkshorts/internal/types"
)

const pollInterval = 5 * time.Second

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process queued subjects from Redis one at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Env.RedisURL == "" {
				return fmt.Errorf("%w: REDIS_URL is required for worker mode", errUsage)
			}
			log, closeLog, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			q, err := redisqueue.Dial(ctx, cfg.Env.RedisURL)
			if err != nil {
				return err
			}
			defer q.Close()

			log.Info().Str("queue", redisqueue.JobsKey).Msg("worker started")
			err = work(ctx, q, cfg, log)
			log.Info().Msg("worker stopped")
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

// work pops jobs until ctx is done. Jobs run strictly one after another; a
// failed job is reported on the results list and the loop goes on.
func work(ctx context.Context, q ports.JobQueue, base config.Config, log zerolog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, ok, err := q.Pop(ctx, pollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("pop job")
			if err := sleep(ctx, pollInterval); err != nil {
				return err
			}
			continue
		}
		if !ok {
			continue
		}

		res := runQueued(ctx, job, base, log)
		if err := q.PushResult(ctx, res); err != nil {
			log.Error().Str("job_id", job.ID).Err(err).Msg("push result")
		}
	}
}

var runPipeline = pipeline.Run

func runQueued(ctx context.Context, job types.Job, base config.Config, log zerolog.Logger) types.JobResult {
	jlog := log.With().Str("job_id", job.ID).Logger()
	cfg := base
	cfg.Subject = job.Subject
	if job.Voice != "" {
		cfg.Voice = job.Voice
	}
	if job.Upload != nil {
		cfg.AutomateUpload = *job.Upload
	}

	res := types.JobResult{JobID: job.ID}
	pcfg := pipelineConfig(cfg, jlog)
	if err := pcfg.Validate(); err != nil {
		res.Error = err.Error()
		res.FinishedAt = time.Now().UTC()
		jlog.Error().Err(err).Msg("job rejected")
		return res
	}
	jlog.Info().Str("subject", job.Subject).Msg("job started")
	st, err := runPipeline(ctx, pcfg)
	res.RunID = st.RunID
	res.Output = st.Output
	res.VideoID = st.VideoID
	res.FinishedAt = time.Now().UTC()
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <subject>",
		Short: "Queue a subject for the worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Env.RedisURL == "" {
				return fmt.Errorf("%w: REDIS_URL is required to queue jobs", errUsage)
			}
			voice, _ := cmd.Flags().GetString("voice")
			job := types.Job{Subject: args[0], Voice: voice}
			if cmd.Flags().Changed("upload") {
				up, _ := cmd.Flags().GetBool("upload")
				job.Upload = &up
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			q, err := redisqueue.Dial(ctx, cfg.Env.RedisURL)
			if err != nil {
				return err
			}
			defer q.Close()
			job, err = q.Enqueue(ctx, job)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), job.ID)
			return nil
		},
	}
	cmd.Flags().String("voice", "", "TTS voice for this job")
	cmd.Flags().Bool("upload", false, "Upload the result to YouTube")
	return cmd
}

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize YouTube uploads and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c := credentials(cfg)
			if err := youtube.Authorize(cmd.Context(), c, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token saved to %s\n", c.TokenPath)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs recorded in MongoDB",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Env.MongoURI == "" {
				return fmt.Errorf("%w: MONGODB_URI is required for history", errUsage)
			}
			limit, _ := cmd.Flags().GetInt64("limit")

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			s, err := mongostore.Connect(ctx, cfg.Env.MongoURI)
			if err != nil {
				return err
			}
			defer s.Close(context.Background())
			runs, err := s.Recent(ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				status := "ok"
				if r.Error != "" {
					status = "failed: " + r.Error
				}
				fmt.Fprintf(out, "%s  %s  %-30q  %5.1fs  %s\n",
					r.StartedAt.Format(time.RFC3339), r.RunID, r.Subject, r.DurationS, status)
			}
			return nil
		},
	}
	cmd.Flags().Int64("limit", 20, "Number of runs to show")
	return cmd
}
