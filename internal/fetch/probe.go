package fetch

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ProbeSize returns the size in bytes of the remote file, or -1 when the server does not
// say. HEAD is tried first; without a Content-Length a one-byte ranged GET is issued and the
// total read from Content-Range.
func (c *Client) ProbeSize(ctx context.Context, url string) (int64, error) {
	size := int64(-1)
	err := c.do(ctx, http.MethodHead, url, nil, func(resp *http.Response) error {
		if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil && n > 0 {
			size = n
		}
		return nil
	})
	var se *StatusError
	if err != nil && !errors.As(err, &se) {
		return -1, err
	}
	if size > 0 {
		return size, nil
	}
	err = c.do(ctx, http.MethodGet, url, http.Header{"Range": {"bytes=0-0"}}, func(resp *http.Response) error {
		if total, ok := contentRangeTotal(resp.Header.Get("Content-Range")); ok {
			size = total
		} else if resp.StatusCode == http.StatusOK && resp.ContentLength > 0 {
			size = resp.ContentLength
		}
		return nil
	})
	if err != nil {
		return -1, err
	}
	return size, nil
}

// contentRangeTotal parses the total of "bytes 0-0/12345".
func contentRangeTotal(v string) (int64, bool) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v[i+1:]), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// RobotsReport is the outcome of checking one robots.txt.
type RobotsReport struct {
	URL         string
	HeadStatus  int
	GetStatus   int
	ContentType string
	Preview     []string // first lines of a text body
	Err         error
}

// CheckRobots fetches each target with HEAD and then GET, keeping the first ten lines of
// text bodies. Per-target failures are reported, not returned.
func (c *Client) CheckRobots(ctx context.Context, targets []string) []RobotsReport {
	if len(targets) == 0 {
		targets = DefaultRobotsTargets
	}
	var out []RobotsReport
	for _, u := range targets {
		rep := RobotsReport{URL: u}
		if err := ctx.Err(); err != nil {
			rep.Err = err
			out = append(out, rep)
			continue
		}
		rep.HeadStatus, rep.Err = c.status(ctx, http.MethodHead, u)
		if rep.Err == nil {
			rep.GetStatus, rep.ContentType, rep.Preview, rep.Err = c.preview(ctx, u, 10)
		}
		if rep.Err != nil {
			c.log.Warn("robots check failed", "url", u, "error", rep.Err)
		} else {
			c.log.Info("robots checked", "url", u, "head", rep.HeadStatus, "get", rep.GetStatus, "content_type", rep.ContentType)
		}
		out = append(out, rep)
	}
	return out
}

func (c *Client) status(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (c *Client) preview(ctx context.Context, url string, lines int) (int, string, []string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()
	ct := resp.Header.Get("Content-Type")
	var pv []string
	if resp.StatusCode < 300 && strings.Contains(ct, "text") {
		sc := bufio.NewScanner(resp.Body)
		for len(pv) < lines && sc.Scan() {
			pv = append(pv, sc.Text())
		}
	}
	return resp.StatusCode, ct, pv, nil
}
