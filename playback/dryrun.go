package playback

import (
	"log/slog"
	"os"
)

// DryRunEngine logs clips instead of playing them
type DryRunEngine struct {
	logger *slog.Logger
}

var _ Engine = (*DryRunEngine)(nil)

func NewDryRunEngine() *DryRunEngine {
	return &DryRunEngine{logger: slog.With("component", "dry-run")}
}

// Play checks that ref exists and logs it
func (e *DryRunEngine) Play(ref string, gainDB float64) error {
	if _, err := os.Stat(ref); err != nil {
		return &PlaybackError{Ref: ref, Err: err}
	}
	e.logger.Info("Would play", slog.String("ref", ref), slog.Float64("gain_db", gainDB))
	return nil
}
