package app

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/frequency-optimizer/internal/storage"
	"github.com/roman-kulish/frequency-optimizer/internal/sweep"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	surface, err := loadSurface(ctx, config, logger)
	if err != nil {
		return err
	}

	logger.Info("surface loaded",
		slog.Group("stats",
			slog.Int("centers", len(surface.Centers)),
			slog.Int("widths", len(surface.Widths)),
			slog.Int("defined", surface.Defined()),
			slog.Bool("fractional", surface.Fractional),
		))

	if best, ok := surface.Minimum(); ok {
		logger.Info("minimum uncertainty",
			slog.String("center", humanize.SIWithDigits(best.Center*1e9, 3, "Hz")),
			slog.String("bandwidth", humanize.SIWithDigits(best.Bandwidth*1e9, 3, "Hz")),
			slog.Float64("sigma_us", best.Sigma),
		)
	}

	renderer := NewSurfaceRenderer(RenderConfig{
		CellSize:   config.CellSize,
		ColorTheme: config.Theme,
		Points:     config.Points,
		Marker:     config.Marker,
	})

	logger.Info("rendering surface",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
		))

	img, err := renderer.Render(surface)
	if err != nil {
		return fmt.Errorf("rendering surface: %w", err)
	}

	return writeImage(config.OutputFile, config.Format, img)
}

func loadSurface(ctx context.Context, config *Config, logger *slog.Logger) (*sweep.Surface, error) {
	if config.ArchivePath != "" {
		logger.Info("reading archive", slog.String("path", config.ArchivePath))
		return storage.LoadArchive(config.ArchivePath)
	}

	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return nil, fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	runID := config.RunID
	if runID == "" {
		runs, err := store.Runs(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("database '%s' holds no runs", config.DBPath)
		}
		runID = runs[len(runs)-1].ID
	}

	run, err := store.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	logger.Info("reading run",
		slog.String("run", run.ID),
		slog.String("pulsar", run.Pulsar),
		slog.Time("started", run.StartTime),
		slog.Bool("finished", run.EndTime != nil),
	)

	return store.ReadSurface(ctx, runID)
}

func writeImage(path string, format ImageFormat, img image.Image) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	switch format {
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{Quality: 98})
	default:
		err = png.Encode(out, img)
	}
	return err
}
