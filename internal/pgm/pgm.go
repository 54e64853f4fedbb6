// Package pgm decodes the stream0 image files served by the ASI archives:
// gzipped streams of concatenated binary (P5) PGM frames, one file per
// minute of observation. Each frame carries its capture timestamp in a
// comment header written by the instrument:
//
//	P5
//	# Image request start 2019-01-01 06:00:00.059737 UTC
//	# Site unique ID gill
//	512 512
//	65535
//	<raster>
package pgm

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	asilib "github.com/mshumko/aurora-asi-lib"
)

// timestampComment is the frame comment key holding the capture time.
const timestampComment = "image request start"

// Decode reads every P5 frame from r. A malformed or truncated trailing
// frame is skipped with a warning log; frames before it are still returned.
func Decode(r io.Reader, logger *slog.Logger) ([]asilib.Frame, error) {
	br := bufio.NewReader(r)

	var frames []asilib.Frame
	for {
		if _, err := br.Peek(1); err == io.EOF {
			break
		}

		frame, err := decodeFrame(br)
		if err != nil {
			if len(frames) == 0 {
				return nil, err
			}
			logger.Warn("skipping malformed trailing frame", "frame_index", len(frames), "error", err)
			break
		}
		frames = append(frames, frame)
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("stream contains no frames")
	}
	return frames, nil
}

// DecodeFile reads every frame from a local file, transparently
// decompressing .gz files.
func DecodeFile(path string, logger *slog.Logger) ([]asilib.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	frames, err := Decode(r, logger)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return frames, nil
}

func decodeFrame(br *bufio.Reader) (asilib.Frame, error) {
	magic, comments, err := readMagic(br)
	if err != nil {
		return asilib.Frame{}, err
	}
	if magic != "P5" {
		return asilib.Frame{}, fmt.Errorf("unsupported PGM magic %q", magic)
	}

	width, more, err := readInt(br)
	if err != nil {
		return asilib.Frame{}, fmt.Errorf("reading width: %w", err)
	}
	comments = append(comments, more...)

	height, more, err := readInt(br)
	if err != nil {
		return asilib.Frame{}, fmt.Errorf("reading height: %w", err)
	}
	comments = append(comments, more...)

	maxval, more, err := readInt(br)
	if err != nil {
		return asilib.Frame{}, fmt.Errorf("reading maxval: %w", err)
	}
	comments = append(comments, more...)

	if width <= 0 || height <= 0 {
		return asilib.Frame{}, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if maxval <= 0 || maxval > 65535 {
		return asilib.Frame{}, fmt.Errorf("invalid maxval %d", maxval)
	}

	ts, err := frameTime(comments)
	if err != nil {
		return asilib.Frame{}, err
	}

	pix := make([]uint16, width*height)
	if maxval > 255 {
		raw := make([]byte, 2*len(pix))
		if _, err := io.ReadFull(br, raw); err != nil {
			return asilib.Frame{}, fmt.Errorf("reading 16-bit raster: %w", err)
		}
		for i := range pix {
			pix[i] = binary.BigEndian.Uint16(raw[2*i:])
		}
	} else {
		raw := make([]byte, len(pix))
		if _, err := io.ReadFull(br, raw); err != nil {
			return asilib.Frame{}, fmt.Errorf("reading 8-bit raster: %w", err)
		}
		for i := range pix {
			pix[i] = uint16(raw[i])
		}
	}

	// The instrument writes the raster bottom row first; flip so north is up.
	flipVertical(pix, width, height)

	return asilib.Frame{
		Time:   ts,
		Width:  width,
		Height: height,
		Pix:    pix,
	}, nil
}

// readMagic reads the two-character magic token plus any comments around it.
func readMagic(br *bufio.Reader) (string, []string, error) {
	tok, comments, err := readToken(br)
	if err != nil {
		return "", nil, fmt.Errorf("reading magic: %w", err)
	}
	return tok, comments, nil
}

func readInt(br *bufio.Reader) (int, []string, error) {
	tok, comments, err := readToken(br)
	if err != nil {
		return 0, nil, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid integer token %q", tok)
	}
	return n, comments, nil
}

// readToken returns the next whitespace-delimited token, collecting any
// interleaved comment lines. It consumes exactly one whitespace byte after
// the token, per the PGM spec, so the raster following maxval stays intact.
func readToken(br *bufio.Reader) (string, []string, error) {
	var comments []string

	// Skip leading whitespace and comment lines.
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", comments, err
		}
		if b == '#' {
			line, err := br.ReadString('\n')
			if err != nil && err != io.EOF {
				return "", comments, err
			}
			comments = append(comments, strings.TrimSpace(line))
			continue
		}
		if !isSpace(b) {
			if err := br.UnreadByte(); err != nil {
				return "", comments, err
			}
			break
		}
	}

	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", comments, err
		}
		if isSpace(b) {
			break // the single post-token whitespace byte
		}
		sb.WriteByte(b)
	}
	if sb.Len() == 0 {
		return "", comments, fmt.Errorf("empty token")
	}
	return sb.String(), comments, nil
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// frameTime extracts the capture timestamp from the frame comments.
func frameTime(comments []string) (time.Time, error) {
	for _, c := range comments {
		lower := strings.ToLower(c)
		if !strings.HasPrefix(lower, timestampComment) {
			continue
		}
		v := strings.TrimSpace(c[len(timestampComment):])
		v = strings.TrimSuffix(v, " UTC")
		ts, err := time.Parse("2006-01-02 15:04:05.999999", v)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid frame timestamp %q: %w", v, err)
		}
		return ts.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("frame has no %q comment", timestampComment)
}

func flipVertical(pix []uint16, width, height int) {
	for y := 0; y < height/2; y++ {
		top := pix[y*width : (y+1)*width]
		bot := pix[(height-1-y)*width : (height-y)*width]
		for i := range top {
			top[i], bot[i] = bot[i], top[i]
		}
	}
}
