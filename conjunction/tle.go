package conjunction

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TLE is one satellite's two-line element set.
type TLE struct {
	Name    string
	NORADID int
	Epoch   time.Time
	Line1   string
	Line2   string
}

// ParseTLEs reads 3-line NORAD TLE format from r. Malformed entries are
// skipped with a warning.
func ParseTLEs(r io.Reader, logger *slog.Logger) ([]TLE, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []TLE
	for i := 0; i+2 < len(lines); {
		name, line1, line2 := lines[i], lines[i+1], lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			i++
			continue
		}
		if len(line1) < 32 {
			logger.Warn("skipping TLE entry with short line1", "name", name)
			i += 3
			continue
		}

		noradID, err := strconv.Atoi(strings.TrimSpace(line1[2:7]))
		if err != nil {
			logger.Warn("skipping TLE entry with invalid catalog number", "name", name)
			i += 3
			continue
		}
		epoch, err := parseTLEEpoch(strings.TrimSpace(line1[18:32]))
		if err != nil {
			logger.Warn("skipping TLE entry with invalid epoch", "name", name, "error", err)
			i += 3
			continue
		}

		entries = append(entries, TLE{
			Name:    strings.TrimSpace(name),
			NORADID: noradID,
			Epoch:   epoch,
			Line1:   line1,
			Line2:   line2,
		})
		i += 3
	}
	return entries, nil
}

// parseTLEEpoch converts a YYDDD.DDDDDDDD epoch to a time. Years 57-99 are
// the 1900s per the NORAD convention.
func parseTLEEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch %q too short", s)
	}
	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year in %q: %w", s, err)
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}
	dayOfYear, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day in %q: %w", s, err)
	}

	// Day 1 is January 1.
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}

const tleCacheKeep = 5

// TLESource fetches an element-set catalog over HTTP and mirrors it to
// timestamped files on disk, so repeat lookups inside maxAge never touch
// the network.
type TLESource struct {
	url        string
	cacheDir   string
	maxAge     time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTLESource creates a source for the catalog at url, cached under
// cacheDir for maxAge.
func NewTLESource(url, cacheDir string, maxAge time.Duration, logger *slog.Logger) *TLESource {
	return &TLESource{
		url:        url,
		cacheDir:   cacheDir,
		maxAge:     maxAge,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With("component", "tle_source"),
	}
}

// Load returns the catalog's element sets, from cache when fresh enough.
func (s *TLESource) Load(ctx context.Context) ([]TLE, error) {
	if data, ts, err := s.newestCached(); err == nil && time.Since(ts) < s.maxAge {
		s.logger.Debug("using cached TLE catalog", "age", time.Since(ts).Round(time.Second))
		return ParseTLEs(bytes.NewReader(data), s.logger)
	}

	data, err := s.fetch(ctx)
	if err != nil {
		// A stale cache beats no data when the source is down.
		if cached, ts, cacheErr := s.newestCached(); cacheErr == nil {
			s.logger.Warn("TLE fetch failed, falling back to stale cache",
				"error", err, "cached_at", ts.Format(time.RFC3339))
			return ParseTLEs(bytes.NewReader(cached), s.logger)
		}
		return nil, err
	}

	if err := s.store(data); err != nil {
		s.logger.Warn("caching TLE catalog failed", "error", err)
	}
	return ParseTLEs(bytes.NewReader(data), s.logger)
}

// Lookup finds one satellite by name (case-insensitive substring) or
// catalog number.
func (s *TLESource) Lookup(ctx context.Context, satellite string) (TLE, error) {
	entries, err := s.Load(ctx)
	if err != nil {
		return TLE{}, err
	}

	if id, err := strconv.Atoi(satellite); err == nil {
		for _, e := range entries {
			if e.NORADID == id {
				return e, nil
			}
		}
	}
	needle := strings.ToUpper(satellite)
	for _, e := range entries {
		if strings.Contains(strings.ToUpper(e.Name), needle) {
			return e, nil
		}
	}
	return TLE{}, fmt.Errorf("satellite %q not found in %d catalog entries", satellite, len(entries))
}

func (s *TLESource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building TLE request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching TLE catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TLE catalog returned %s from %s", resp.Status, s.url)
	}
	return io.ReadAll(resp.Body)
}

func (s *TLESource) store(data []byte) error {
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("tle_%d.txt", time.Now().Unix())
	if err := os.WriteFile(filepath.Join(s.cacheDir, name), data, 0o644); err != nil {
		return err
	}
	return s.prune()
}

type tleCacheFile struct {
	name string
	ts   time.Time
}

func (s *TLESource) cacheFiles() ([]tleCacheFile, error) {
	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing TLE cache: %w", err)
	}

	var files []tleCacheFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "tle_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		unix, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, "tle_"), ".txt"), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, tleCacheFile{name: name, ts: time.Unix(unix, 0)})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ts.Before(files[j].ts) })
	return files, nil
}

func (s *TLESource) newestCached() ([]byte, time.Time, error) {
	files, err := s.cacheFiles()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(files) == 0 {
		return nil, time.Time{}, fmt.Errorf("no cached TLE catalog")
	}
	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(s.cacheDir, latest.name))
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, latest.ts, nil
}

func (s *TLESource) prune() error {
	files, err := s.cacheFiles()
	if err != nil || len(files) <= tleCacheKeep {
		return err
	}
	for _, f := range files[:len(files)-tleCacheKeep] {
		if err := os.Remove(filepath.Join(s.cacheDir, f.name)); err != nil {
			return fmt.Errorf("pruning TLE cache file %s: %w", f.name, err)
		}
	}
	return nil
}
