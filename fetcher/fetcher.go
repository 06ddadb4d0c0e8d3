// Package fetcher issues the archiver's HTTP requests against the
// xkcd JSON API and classifies their outcomes.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aluiziolira/go-xkcd-archive/config"
	"github.com/aluiziolira/go-xkcd-archive/models"
	"github.com/aluiziolira/go-xkcd-archive/parser"
	"github.com/gocolly/colly/v2"
)

const captureKey = "capture"

// Fetcher wraps the colly collector for metadata and image requests.
// Requests are issued one at a time; the collector is synchronous.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics
}

// capture collects the response of a single request through the
// collector's callbacks, keyed into the request context.
type capture struct {
	statusCode int
	body       []byte
	err        error
}

// New builds a fetcher configured from cfg.
func New(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	// Image URLs live on a sibling host (imgs.xkcd.com), so the
	// collector is not restricted to the base host.
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	collector.OnResponse(func(r *colly.Response) {
		if out, ok := r.Ctx.GetAny(captureKey).(*capture); ok {
			out.statusCode = r.StatusCode
			out.body = append([]byte(nil), r.Body...)
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r == nil {
			return
		}
		if out, ok := r.Ctx.GetAny(captureKey).(*capture); ok {
			out.statusCode = r.StatusCode
			out.err = err
		}
	})

	return &Fetcher{
		cfg:       cfg,
		collector: collector,
		Metrics:   metrics,
	}, nil
}

// WithTransport replaces the collector's transport. Tests use this to
// install a mock transport.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Comic fetches metadata for one comic number. Failures are reported
// as outcome variants, never as errors; the caller decides whether a
// variant is fatal.
func (f *Fetcher) Comic(ctx context.Context, number int) models.Outcome {
	requestURL := fmt.Sprintf("%s/%d/info.0.json", f.cfg.BaseURL, number)
	f.Metrics.IncRequest("metadata")

	out, err := f.get(ctx, requestURL)
	if out.statusCode == http.StatusNotFound {
		return models.Outcome{Kind: models.OutcomeNotFound, StatusCode: out.statusCode, Err: ErrNotFound{Err: err}}
	}
	if err != nil {
		classified := classifyError(err, out.statusCode)
		f.Metrics.IncError(errorTypeLabel(classified))
		return models.Outcome{Kind: models.OutcomeTransportError, StatusCode: out.statusCode, Err: classified}
	}

	var comic models.Comic
	if err := json.Unmarshal(out.body, &comic); err != nil {
		f.Metrics.IncError("parse")
		return models.Outcome{Kind: models.OutcomeParseError, StatusCode: out.statusCode, Err: fmt.Errorf("decode comic %d: %w", number, err)}
	}
	if err := parser.ValidateComic(&comic); err != nil {
		f.Metrics.IncError("parse")
		return models.Outcome{Kind: models.OutcomeParseError, StatusCode: out.statusCode, Err: err}
	}

	return models.Outcome{Kind: models.OutcomeSuccess, StatusCode: out.statusCode, Comic: &comic}
}

// Latest fetches metadata for the most recent comic. Any failure is
// returned as an error: without it the stopping boundary for the run
// cannot be established.
func (f *Fetcher) Latest(ctx context.Context) (*models.Comic, error) {
	requestURL := fmt.Sprintf("%s/info.0.json", f.cfg.BaseURL)
	f.Metrics.IncRequest("latest")

	out, err := f.get(ctx, requestURL)
	if err != nil {
		classified := classifyError(err, out.statusCode)
		f.Metrics.IncError(errorTypeLabel(classified))
		return nil, fmt.Errorf("fetch latest comic: %w", classified)
	}

	var comic models.Comic
	if err := json.Unmarshal(out.body, &comic); err != nil {
		f.Metrics.IncError("parse")
		return nil, fmt.Errorf("decode latest comic: %w", err)
	}
	if err := parser.ValidateComic(&comic); err != nil {
		f.Metrics.IncError("parse")
		return nil, fmt.Errorf("latest comic: %w", err)
	}

	return &comic, nil
}

// Image downloads the raw bytes of a comic image. Failures are
// recoverable; the caller skips the comic and continues.
func (f *Fetcher) Image(ctx context.Context, imageURL string) ([]byte, error) {
	f.Metrics.IncRequest("image")

	out, err := f.get(ctx, imageURL)
	if err != nil {
		classified := classifyError(err, out.statusCode)
		f.Metrics.IncError(errorTypeLabel(classified))
		return nil, fmt.Errorf("download image %s: %w", imageURL, classified)
	}
	if len(out.body) == 0 {
		f.Metrics.IncError("empty_body")
		return nil, fmt.Errorf("download image %s: empty response body", imageURL)
	}

	return out.body, nil
}

// get issues one GET through the collector and returns the captured
// response. The collector is synchronous, so the callbacks have fired
// by the time Request returns.
func (f *Fetcher) get(ctx context.Context, requestURL string) (*capture, error) {
	out := &capture{}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	cctx := colly.NewContext()
	cctx.Put(captureKey, out)

	start := time.Now()
	err := f.collector.Request(http.MethodGet, requestURL, nil, cctx, nil)
	f.Metrics.ObserveDuration(time.Since(start))

	if err != nil {
		slog.Debug("request failed",
			slog.String("url", requestURL),
			slog.Int("status", out.statusCode),
			slog.Any("error", err),
		)
		if out.err != nil {
			err = out.err
		}
		return out, err
	}
	return out, nil
}
