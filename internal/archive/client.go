// Package archive fetches image and calibration files from the instrument
// networks' public HTTP archives. The archives are plain directory listings:
// List parses the anchor tags out of an index page, Download streams one
// file to the local data directory.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	asilib "github.com/mshumko/aurora-asi-lib"
	"github.com/mshumko/aurora-asi-lib/internal/metrics"
)

// listingByteLimit caps how much of an index page is read. Archive listings
// are tens of kilobytes; anything larger is a misdirected request.
const listingByteLimit = 10 * 1024 * 1024

// Client talks to one network's archive.
type Client struct {
	network    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client for the given network label. The timeout
// bounds listing requests; file downloads use per-request contexts instead
// since minute files can take longer than any fixed timeout on slow links.
func NewClient(network string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		network: network,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// List fetches the index page at url and returns the hrefs containing
// pattern, case-insensitive, sorted. Returns asilib.ErrNotFound when the
// index answers 404 or nothing matches, which is how a missing site or
// day shows up.
func (c *Client) List(ctx context.Context, url, pattern string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching listing %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("listing %s: %w", url, asilib.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	hrefs, err := parseHrefs(io.LimitReader(resp.Body, listingByteLimit))
	if err != nil {
		return nil, fmt.Errorf("parsing listing %s: %w", url, err)
	}

	lower := strings.ToLower(pattern)
	var matched []string
	for _, h := range hrefs {
		if strings.Contains(strings.ToLower(h), lower) {
			matched = append(matched, h)
		}
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%s has no hrefs containing %q: %w", url, pattern, asilib.ErrNotFound)
	}
	sort.Strings(matched)
	return matched, nil
}

// parseHrefs extracts every anchor href from an HTML document, skipping
// navigation links (parent directory, sort columns).
func parseHrefs(r io.Reader) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				h := attr.Val
				if h == "" || strings.HasPrefix(h, "?") || strings.HasPrefix(h, "/") || strings.HasPrefix(h, "..") {
					continue
				}
				hrefs = append(hrefs, h)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return hrefs, nil
}

// Request describes one file download.
type Request struct {
	URL        string
	Dest       string                 // local file path
	Redownload bool                   // download even if Dest exists
	Progress   func(done, total int64) // optional, total is -1 when unknown
}

// Download streams one file to Request.Dest. An existing destination file is
// reused unless Redownload is set. The download goes through a temporary
// file so an interrupted transfer never leaves a truncated file behind.
func (c *Client) Download(ctx context.Context, req Request) (string, error) {
	if !req.Redownload {
		if _, err := os.Stat(req.Dest); err == nil {
			c.logger.Debug("file exists, skipping download", "path", req.Dest)
			return req.Dest, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(req.Dest), 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	start := time.Now()
	n, err := c.stream(ctx, req)
	metrics.RecordDownload(c.network, n, time.Since(start), err)
	if err != nil {
		return "", err
	}

	c.logger.Debug("downloaded file",
		"url", req.URL,
		"path", req.Dest,
		"bytes", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return req.Dest, nil
}

func (c *Client) stream(ctx context.Context, req Request) (int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, req.URL)
	}

	tmp, err := os.CreateTemp(filepath.Dir(req.Dest), "."+filepath.Base(req.Dest)+".*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	total := resp.ContentLength
	var done int64
	buf := make([]byte, 1024*1024)
	for {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return done, err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := tmp.Write(buf[:n]); err != nil {
				tmp.Close()
				return done, fmt.Errorf("writing %s: %w", req.Dest, err)
			}
			done += int64(n)
			if req.Progress != nil {
				req.Progress(done, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmp.Close()
			return done, fmt.Errorf("reading response body: %w", readErr)
		}
	}

	if err := tmp.Close(); err != nil {
		return done, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), req.Dest); err != nil {
		return done, fmt.Errorf("moving download into place: %w", err)
	}
	return done, nil
}

// DownloadAll downloads the given files with at most limit transfers in
// flight. The first failure cancels the remaining transfers. Returns the
// destination paths in request order.
func (c *Client) DownloadAll(ctx context.Context, reqs []Request, limit int) ([]string, error) {
	if limit < 1 {
		limit = 1
	}

	paths := make([]string, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			path, err := c.Download(ctx, req)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
