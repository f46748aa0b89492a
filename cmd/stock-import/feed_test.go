package main

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/storage/memory"
)

func scanner(s string) *bufio.Scanner {
	return bufio.NewScanner(strings.NewReader(s))
}

func writeGz(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	fh, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(fh)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, fh.Close())
	return path
}

func TestParseLines(t *testing.T) {
	known := knownFilter([]string{"1", "2", "3"})

	f, err := parseLines(context.Background(), scanner(
		"product_id,quantity\n"+
			"# comment\n"+
			"1, 10\n"+
			"\n"+
			"2,5\n"+
			"1,7\n"+
			"ghost,3\n",
	), known)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, f.order)
	assert.Equal(t, map[string]int{"1": 7, "2": 5}, f.quantities)
	assert.Equal(t, 1, f.unknown)
}

func TestParseLinesRejects(t *testing.T) {
	known := knownFilter([]string{"1"})

	tests := []struct {
		name  string
		input string
	}{
		{"missing comma", "1 10\n"},
		{"bad quantity", "1,5\n1,lots\n"},
		{"negative", "1,-4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseLines(context.Background(), scanner(tt.input), known)
			require.Error(t, err)
		})
	}
}

func TestMergeLaterFeedWins(t *testing.T) {
	a := &feed{quantities: map[string]int{}}
	a.set("1", 3)
	a.set("2", 4)
	b := &feed{quantities: map[string]int{}}
	b.set("2", 9)
	b.set("3", 0)

	assert.Equal(t, []update{
		{productID: "1", quantity: 3},
		{productID: "2", quantity: 9},
		{productID: "3", quantity: 0},
	}, merge([]*feed{a, b}))
}

func TestParseFeedsAndApply(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, id := range []string{"1", "2"} {
		store.PutProduct(product.Product{ID: id, Name: "P" + id, Price: decimal.NewFromInt(1), StockQuantity: 1})
	}

	first := writeGz(t, "a.csv.gz", "1,10\n2,20\n")
	second := writeGz(t, "b.csv.gz", "2,0\n")

	feeds, err := parseFeeds(ctx, []string{first, second}, knownFilter([]string{"1", "2"}))
	require.NoError(t, err)

	updates := merge(feeds)
	// A bloom false positive reaches apply as an unknown product.
	updates = append(updates, update{productID: "404", quantity: 1})

	n, err := apply(ctx, store, updates)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err := store.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.StockQuantity)

	p, err = store.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Zero(t, p.StockQuantity)
}

func TestParseFeedsMissingFile(t *testing.T) {
	_, err := parseFeeds(context.Background(), []string{filepath.Join(t.TempDir(), "nope.gz")}, knownFilter(nil))
	require.Error(t, err)
}
