package main

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

const progressEvery = 1_000_000

type update struct {
	productID string
	quantity  int
}

// feed holds the last quantity seen per product in one file, plus the order
// in which products first appeared.
type feed struct {
	order      []string
	quantities map[string]int
	unknown    int
}

func (f *feed) set(id string, qty int) {
	if _, ok := f.quantities[id]; !ok {
		f.order = append(f.order, id)
	}
	f.quantities[id] = qty
}

// parseFeeds reads every file concurrently.
func parseFeeds(ctx context.Context, files []string, known *bloom.BloomFilter) ([]*feed, error) {
	feeds := make([]*feed, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			f, err := parseFile(ctx, path, known)
			if err != nil {
				return errors.Wrapf(err, "parse %s", path)
			}
			slog.Info("feed parsed",
				slog.String("file", path),
				slog.Int("products", len(f.order)),
				slog.Int("unknown", f.unknown),
			)
			feeds[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return feeds, nil
}

func parseFile(ctx context.Context, path string, known *bloom.BloomFilter) (*feed, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = fh.Close() }()

	gz, err := pgzip.NewReader(fh)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	defer func() { _ = gz.Close() }()

	return parseLines(ctx, bufio.NewScanner(gz), known)
}

// parseLines reads "product_id,quantity" lines. Blank lines, comments and a
// leading header are skipped.
func parseLines(ctx context.Context, sc *bufio.Scanner, known *bloom.BloomFilter) (*feed, error) {
	f := &feed{quantities: make(map[string]int)}

	var line int
	for sc.Scan() {
		line++
		if line%progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slog.Info("parse progress", slog.Int("lines", line))
		}

		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id, raw, ok := strings.Cut(text, ",")
		if !ok {
			return nil, errors.Errorf("line %d: expected product_id,quantity", line)
		}
		id, raw = strings.TrimSpace(id), strings.TrimSpace(raw)

		qty, err := strconv.Atoi(raw)
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, errors.Wrapf(err, "line %d: quantity", line)
		}
		if qty < 0 {
			return nil, errors.Errorf("line %d: negative quantity %d", line, qty)
		}

		if !known.TestString(id) {
			f.unknown++
			continue
		}
		f.set(id, qty)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return f, ctx.Err()
}

// merge flattens feeds in order. A later feed overrides an earlier one.
func merge(feeds []*feed) []update {
	final := make(map[string]int)
	var ids []string
	for _, f := range feeds {
		for _, id := range f.order {
			if _, ok := final[id]; !ok {
				ids = append(ids, id)
			}
			final[id] = f.quantities[id]
		}
	}

	out := make([]update, 0, len(ids))
	for _, id := range ids {
		out = append(out, update{productID: id, quantity: final[id]})
	}
	return out
}
