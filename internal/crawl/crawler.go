package crawl

import (
	"context"
	"log/slog"
	"time"

	"github.com/KaramelBytes/bpsloom-cli/internal/fetch"
)

// DefaultIndexPages are the institutional pages listing the statistical publications.
var DefaultIndexPages = []string{
	"https://www.bps.gub.uy/1944/indicadores-de-la-seguridad-social.html",
	"https://www.bps.gub.uy/bps/estadisticas/cuadro.jsp?cuadro=2",
	"https://www.bps.gub.uy/bps/observatorio/cuadro.jsp?contentid=12780",
}

// Fetcher is the part of the download client the crawler needs.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Resource, error)
	ProbeSize(ctx context.Context, url string) (int64, error)
}

// Options configures Crawl.
type Options struct {
	Delay        time.Duration // pause after each page
	MaxPages     int
	ResolveSizes bool
	Logger       *slog.Logger
}

// Crawl visits up to MaxPages index pages and returns their entries deduplicated by download
// URL. A page that fails is logged and skipped. Only cancellation is returned as an error.
func Crawl(ctx context.Context, f Fetcher, pages []string, opt Options) ([]Entry, error) {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	if len(pages) == 0 {
		pages = DefaultIndexPages
	}
	if opt.MaxPages <= 0 {
		opt.MaxPages = 10
	}
	var all []Entry
	for i, page := range pages {
		if i >= opt.MaxPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := f.Get(ctx, page)
		if err != nil {
			log.Warn("index page failed", "url", page, "error", err)
		} else if text, err := DecodePage(res.Data, res.ContentType); err != nil {
			log.Warn("index page not decodable", "url", page, "error", err)
		} else if entries, err := ParsePage(res.URL, text); err != nil {
			log.Warn("index page not parseable", "url", page, "error", err)
		} else {
			log.Info("index page parsed", "url", page, "links", len(entries))
			all = append(all, entries...)
		}
		if opt.Delay > 0 && i+1 < min(len(pages), opt.MaxPages) {
			log.Debug("polite delay", "seconds", opt.Delay.Seconds())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opt.Delay):
			}
		}
	}
	out := Dedupe(all)
	if opt.ResolveSizes {
		for i := range out {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			n, err := f.ProbeSize(ctx, out[i].URL)
			if err != nil {
				log.Warn("size probe failed", "url", out[i].URL, "error", err)
				continue
			}
			if n > 0 {
				out[i].ResolvedSize = n
			}
		}
	}
	log.Info("crawl finished", "pages", min(len(pages), opt.MaxPages), "entries", len(out))
	return out, nil
}
