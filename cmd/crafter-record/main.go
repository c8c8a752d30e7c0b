package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/boristopalov/crafter-record/pkg/agent"
	"github.com/boristopalov/crafter-record/pkg/config"
	"github.com/boristopalov/crafter-record/pkg/core"
	"github.com/boristopalov/crafter-record/pkg/environment"
	"github.com/boristopalov/crafter-record/pkg/experiment"
	"github.com/boristopalov/crafter-record/pkg/npz"
	"github.com/boristopalov/crafter-record/pkg/recorder"
	"github.com/boristopalov/crafter-record/pkg/video"
)

type runFlags struct {
	configPath string
	outdir     string
	episodes   int
	maxSteps   int
	seed       int64
	stats      bool
	video      bool
	episode    bool
	forceDone  bool
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "crafter-record",
		Short: "Run a grid survival environment and record per-episode stats, videos and transitions.",
	}

	config.LoadDotEnv(".env", "../../.env")

	rootCmd.AddCommand(newRunCmd(), newInspectCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a random agent with recording enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluation(cmd, flags)
		},
	}
	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	cmd.Flags().StringVar(&flags.outdir, "outdir", "", "directory for stats, videos and archives")
	cmd.Flags().IntVar(&flags.episodes, "episodes", 0, "number of episodes to run")
	cmd.Flags().IntVar(&flags.maxSteps, "max-steps", 0, "max steps per episode")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "world and agent seed")
	cmd.Flags().BoolVar(&flags.stats, "stats", true, "append episode stats to stats.jsonl")
	cmd.Flags().BoolVar(&flags.video, "video", false, "save an mp4 per episode (requires ffmpeg)")
	cmd.Flags().BoolVar(&flags.episode, "episode", false, "save a compressed transition archive per episode")
	cmd.Flags().BoolVar(&flags.forceDone, "force-done", false, "end timed out episodes with done so they are recorded")
	return cmd
}

func runEvaluation(cmd *cobra.Command, flags *runFlags) error {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return err
	}
	set := cmd.Flags().Changed
	if set("outdir") {
		cfg.Recorder.Directory = flags.outdir
	}
	if set("episodes") {
		cfg.Episodes = flags.episodes
	}
	if set("max-steps") {
		cfg.MaxSteps = flags.maxSteps
	}
	if set("seed") {
		cfg.Seed = flags.seed
	}
	if set("stats") {
		cfg.Recorder.SaveStats = flags.stats
	}
	if set("video") {
		cfg.Recorder.SaveVideo = flags.video
	}
	if set("episode") {
		cfg.Recorder.SaveEpisode = flags.episode
	}
	if set("force-done") {
		cfg.Recorder.ForceDone = flags.forceDone
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := cfg.Logging.NewLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	cfg.Environment.Seed = cfg.Seed
	grid, err := environment.NewGridEnvironment(cfg.Environment)
	if err != nil {
		return err
	}
	var base core.Env = grid
	if cfg.Recorder.ForceDone && cfg.MaxSteps > 0 {
		base = environment.NewTimeLimit(grid, cfg.MaxSteps)
	}

	encoder := video.NewFFmpegEncoder()
	encoder.FPS = cfg.Recorder.FPS
	env, err := recorder.New(base, cfg.Recorder.Directory,
		recorder.WithStats(cfg.Recorder.SaveStats),
		recorder.WithVideo(cfg.Recorder.SaveVideo),
		recorder.WithEpisode(cfg.Recorder.SaveEpisode),
		recorder.WithVideoSize(cfg.Recorder.VideoSize),
		recorder.WithEncoder(encoder),
		recorder.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to set up recorder: %w", err)
	}
	defer env.Close()

	a := agent.NewRandomAgent(agent.WithSeed(cfg.Seed), agent.WithActionSpace(env.ActionSpace()))
	eval, err := experiment.NewEvaluation(env, a, cfg.Episodes, cfg.MaxSteps, logger)
	if err != nil {
		return err
	}
	logger.Info("starting evaluation", "run", eval.ID(), "episodes", cfg.Episodes, "dir", cfg.Recorder.Directory)
	if err := eval.Run(ctx); err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	results := eval.Results()
	var total float64
	for _, r := range results {
		total += r.Reward
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Evaluation finished: %d episodes, mean reward %.2f\n",
		len(results), total/float64(len(results)))
	if cfg.Recorder.SaveStats && cfg.Recorder.Directory != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Achievement stats saved in %s/%s\n", cfg.Recorder.Directory, recorder.StatsFile)
	}
	return nil
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <archive.npz>",
		Short: "List the arrays stored in an episode archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := npz.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%-32s %-4s %v\n", e.Name, e.Array.DType, e.Array.Shape)
			}
			return nil
		},
	}
}
