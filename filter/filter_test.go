package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/watcharr/media"
)

func testEntries() []media.Entry {
	notes := "watch with Sam"
	backendID := int64(12)

	return []media.Entry{
		{
			ID:         1,
			ExternalID: 603,
			MediaType:  media.TypeMovie,
			Notes:      &notes,
			Status:     media.LibraryStatus{State: media.StateInLibrary, BackendID: &backendID, Complete: true},
			AddedAt:    time.Now().AddDate(0, 0, -40),
		},
		{
			ID:              2,
			ExternalID:      1399,
			MediaType:       media.TypeShow,
			SelectedSeasons: []int{1, 2},
			Status:          media.LibraryStatus{State: media.StateNotInLibrary},
			AddedAt:         time.Now().AddDate(0, 0, -2),
		},
		{
			ID:         3,
			ExternalID: 66732,
			MediaType:  media.TypeShow,
			Status:     media.LibraryStatus{State: media.StateUnknown},
			AddedAt:    time.Now(),
		},
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{name: "valid expression", expression: `IsShow and not InLibrary`},
		{name: "empty expression", expression: "  ", wantErr: true, errContains: "empty expression"},
		{name: "invalid syntax", expression: `icontains(Notes, "unclosed`, wantErr: true},
		{name: "helpers", expression: `daysSince(Added) > 30 or hasSeason(3)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := NewExprCompiler().Compile(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
				var compErr *CompilationError
				assert.ErrorAs(t, err, &compErr)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expression, filter.Expression())
		})
	}
}

func TestSelect(t *testing.T) {
	entries := testEntries()

	tests := []struct {
		expression string
		wantIDs    []uint
	}{
		{`IsMovie`, []uint{1}},
		{`IsShow and not InLibrary`, []uint{2, 3}},
		{`Status == "unknown"`, []uint{3}},
		{`Complete and BackendID == 12`, []uint{1}},
		{`icontains(Notes, "SAM")`, []uint{1}},
		{`lower(Notes) contains "sam"`, []uint{1}},
		{`IsShow and hasSeason(2)`, []uint{2, 3}},
		{`IsShow and hasSeason(3)`, []uint{3}},
		{`daysSince(Added) > 30`, []uint{1}},
		{`TMDBID in [603, 66732]`, []uint{1, 3}},
		{`len(Seasons) > 0`, []uint{2}},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			f, err := Compile(tt.expression)
			require.NoError(t, err)

			matches, err := Select(context.Background(), f, entries)
			require.NoError(t, err)

			var ids []uint
			for _, m := range matches {
				ids = append(ids, m.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestSelect_NilFilterAndCancellation(t *testing.T) {
	entries := testEntries()

	matches, err := Select(context.Background(), nil, entries)
	require.NoError(t, err)
	assert.Len(t, matches, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, err := Compile(`true`)
	require.NoError(t, err)
	_, err = Select(ctx, f, entries)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompilerCache(t *testing.T) {
	c := NewExprCompiler(WithCache(2))

	first, err := c.Compile(`IsMovie`)
	require.NoError(t, err)
	second, err := c.Compile(` IsMovie `)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.Size())

	_, err = c.Compile(`IsShow`)
	require.NoError(t, err)
	_, err = c.Compile(`InLibrary`)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Size(), "least recently used filter is evicted")

	c.Clear()
	assert.Zero(t, c.Size())
}

func TestCustomFunctions(t *testing.T) {
	c := NewExprCompiler(WithCustomFunctions(map[string]any{
		"favourite": func(id int64) bool { return id == 1399 },
	}))

	f, err := c.Compile(`favourite(TMDBID)`)
	require.NoError(t, err)

	matches, err := Select(context.Background(), f, testEntries())
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(1399), matches[0].ExternalID)
}
