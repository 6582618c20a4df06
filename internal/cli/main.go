package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/mkshorts/internal/pipeline"
)

// Exit codes: 1 for runtime failures, 2 for bad input or missing credentials.
const (
	exitFailure = 1
	exitFatal   = 2
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "mkshorts [subject]",
		Short:        "Produce a narrated, subtitled vertical short about a subject",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := ""
			if len(args) == 1 {
				subject = args[0]
			}
			return run(cmd, subject)
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file (default mkshorts.yaml when present)")
	pf.String("log-file", "", "Append logs to this file as JSON lines")
	pf.Bool("verbose", false, "Debug logging")

	// Visible flags
	f := root.Flags()
	f.String("voice", "", "TTS voice")
	f.String("out", "", "Output directory")
	f.Int("threads", 0, "ffmpeg render threads")
	f.Int("paragraphs", 0, "Script paragraphs")
	f.String("model", "", "Model for script, terms and metadata")
	f.Bool("upload", false, "Upload the result to YouTube")
	f.Bool("music", false, "Mix a random track from the music archive under the narration")

	// Hidden tuning flag (internal)
	f.Int("max", 0, "Max clip duration seconds")
	_ = f.MarkHidden("max")

	root.AddCommand(workerCmd(), submitCmd(), authCmd(), historyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) || pipeline.IsFatal(err) {
			os.Exit(exitFatal)
		}
		os.Exit(exitFailure)
	}
}
