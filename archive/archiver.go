package archive

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-xkcd-archive/config"
	"github.com/aluiziolira/go-xkcd-archive/fetcher"
	"github.com/aluiziolira/go-xkcd-archive/models"
	"github.com/aluiziolira/go-xkcd-archive/parser"
)

// progressEvery is the comic-count cadence for progress logs.
const progressEvery = 50

// ComicSource is the network surface the driver loop needs.
type ComicSource interface {
	Comic(ctx context.Context, number int) models.Outcome
	Latest(ctx context.Context) (*models.Comic, error)
	Image(ctx context.Context, imageURL string) ([]byte, error)
}

// Archiver walks comic numbers sequentially from StartNumber and stops
// once the date of the last processed comic reaches the latest comic's
// date. One request is in flight at a time.
type Archiver struct {
	cfg     *config.Config
	source  ComicSource
	store   *Store
	metrics *fetcher.Metrics
	logger  *slog.Logger
}

// NewArchiver wires the driver loop. A nil logger falls back to the
// process default.
func NewArchiver(cfg *config.Config, source ComicSource, store *Store, metrics *fetcher.Metrics, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		cfg:     cfg,
		source:  source,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Run executes the archival loop and returns the run summary. The only
// fatal failure is the latest-comic lookup; everything after that is
// logged and skipped.
func (a *Archiver) Run(ctx context.Context) (*models.ArchiveResult, error) {
	start := time.Now()

	latest, err := a.source.Latest(ctx)
	if err != nil {
		return nil, err
	}
	latestDate, err := parser.Date(latest)
	if err != nil {
		return nil, fmt.Errorf("latest comic: %w", err)
	}

	a.logger.Info("latest comic resolved",
		slog.Int("number", latest.Num),
		slog.String("date", latestDate.Format("2006-01-02")),
	)

	result := &models.ArchiveResult{
		StartTime:    start,
		LatestNum:    latest.Num,
		LatestDate:   latestDate,
		ErrorsByType: make(map[string]int),
	}

	// The cursor starts far in the past and only advances when a
	// record with an image was processed. Bounding by the latest
	// number keeps a trailing no-image entry from pushing the loop
	// past the end of the archive.
	var cursor time.Time
	for number := a.cfg.StartNumber; cursor.Before(latestDate) && number <= latest.Num; number++ {
		if ctx.Err() != nil {
			a.logger.Info("run cancelled, stopping between comics",
				slog.Int("next_number", number),
			)
			break
		}

		outcome := a.source.Comic(ctx, number)
		result.RequestCount++

		if !outcome.Success() {
			a.skipFetch(result, number, outcome)
			continue
		}

		comic := outcome.Comic
		if comic.ImageURL == "" {
			a.logger.Warn("skipping non-comic entry",
				slog.Int("number", comic.Num),
				slog.String("title", comic.SafeTitle),
			)
			result.SkippedNoImage++
			a.metrics.IncSkip("no_image")
			continue
		}

		date, err := parser.Date(comic)
		if err != nil {
			a.logger.Warn("skipping comic with malformed date",
				slog.Int("number", comic.Num),
				slog.Any("error", err),
			)
			result.ErrorCount++
			result.ErrorsByType["parse_error"]++
			a.metrics.IncSkip("malformed_date")
			continue
		}

		a.archiveImage(ctx, result, comic)
		cursor = date

		if processed := number - a.cfg.StartNumber + 1; processed%progressEvery == 0 {
			a.logger.Debug("archive progress",
				slog.Int("number", number),
				slog.Int("downloaded", result.DownloadCount),
				slog.Int("already_present", result.SkippedExisting),
			)
		}
	}

	result.EndTime = time.Now()
	return result, nil
}

// archiveImage downloads and stores one comic's image. Failures are
// recoverable: they are logged, counted, and the loop moves on.
func (a *Archiver) archiveImage(ctx context.Context, result *models.ArchiveResult, comic *models.Comic) {
	ext := parser.Extension(comic.ImageURL)
	if !a.store.AllowedExtension(ext) {
		a.logger.Warn("unexpected extension, skipping comic",
			slog.Int("number", comic.Num),
			slog.String("extension", ext),
			slog.String("image_url", comic.ImageURL),
		)
		result.SkippedExtension++
		a.metrics.IncSkip("extension")
		return
	}

	path, err := a.store.Path(comic)
	if err != nil {
		a.logger.Warn("cannot build output path",
			slog.Int("number", comic.Num),
			slog.Any("error", err),
		)
		result.ErrorCount++
		result.ErrorsByType["path_error"]++
		return
	}

	if a.store.Exists(path) {
		result.SkippedExisting++
		a.metrics.IncSkip("exists")
		return
	}

	data, err := a.source.Image(ctx, comic.ImageURL)
	if err != nil {
		a.logger.Error("couldn't download image",
			slog.Int("number", comic.Num),
			slog.String("title", comic.SafeTitle),
			slog.String("image_url", comic.ImageURL),
			slog.Any("error", err),
		)
		result.ErrorCount++
		result.ErrorsByType["download_error"]++
		result.FailedComics = append(result.FailedComics, comic.Num)
		return
	}

	if err := a.store.Save(path, data); err != nil {
		a.logger.Error("couldn't save image",
			slog.Int("number", comic.Num),
			slog.String("path", path),
			slog.Any("error", err),
		)
		result.ErrorCount++
		result.ErrorsByType["write_error"]++
		result.FailedComics = append(result.FailedComics, comic.Num)
		return
	}

	result.DownloadCount++
	a.metrics.IncDownload()
}

// skipFetch records a metadata fetch that produced no usable record.
// The date cursor does not advance for these.
func (a *Archiver) skipFetch(result *models.ArchiveResult, number int, outcome models.Outcome) {
	label := outcome.Kind.String()
	a.logger.Warn("couldn't get comic data, skipping",
		slog.Int("number", number),
		slog.String("outcome", label),
		slog.Int("status", outcome.StatusCode),
		slog.Any("error", outcome.Err),
	)
	result.ErrorCount++
	result.ErrorsByType[label]++
	result.FailedComics = append(result.FailedComics, number)
	a.metrics.IncSkip(label)
}
