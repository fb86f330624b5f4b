package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"chime/config"
	"chime/library"
	"chime/schedule"
	"chime/scheduler"
	"chime/service"

	"github.com/spf13/cobra"
)

// scheduleCmd prints the schedule that would be loaded at startup
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the loaded schedule",
	Long: `Load the configuration and sound directories the way the main command
does and print the scheduled sounds and the general pool without playing
anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		pending, pool, err := service.LoadSchedule(cfg, library.NewOS(), slog.With("component", "schedule"))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Scheduled sounds:")
		if pending.Len() == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for _, t := range pending.Triggers() {
			fmt.Fprintf(out, "  %s: %s\n", t.At, t.Sound)
		}

		fmt.Fprintf(out, "General sounds (every %s):\n", cfg.IntervalDuration())
		if pool.Empty() {
			fmt.Fprintf(out, "  No general sound files found in '%s'.\n", cfg.Sounds.GeneralDir)
		}
		for _, s := range pool.Sounds() {
			fmt.Fprintf(out, "  %s\n", s)
		}

		if next, ok := nextOneShot(pending, time.Now()); ok {
			fmt.Fprintf(out, "Next scheduled sound: %s at %s\n", next.Sound, next.At)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

// nextOneShot returns the first pending trigger still ahead of now today.
// Triggers whose window has passed never fire in this process.
func nextOneShot(pending *schedule.Pending, now time.Time) (schedule.OneShotTrigger, bool) {
	sec := now.Hour()*3600 + now.Minute()*60 + now.Second()
	for _, t := range pending.Triggers() {
		if t.At.Seconds()+int(scheduler.MatchWindow/time.Second) > sec {
			return t, true
		}
	}
	return schedule.OneShotTrigger{}, false
}

// invalidTimes reports scheduled sounds whose time of day cannot be used
func invalidTimes(cfg *config.Config) []error {
	_, errs := schedule.Build(cfg.ScheduledSounds, cfg.Sounds.TimedDir)
	return errs
}
