package search

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucas-albers-lz4/updock/pkg/extractor"
	log "github.com/lucas-albers-lz4/updock/pkg/log"
	"github.com/lucas-albers-lz4/updock/pkg/pattern"
	"github.com/lucas-albers-lz4/updock/pkg/tags"
	"github.com/lucas-albers-lz4/updock/pkg/testutil"
)

func TestFindUpdate(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		current string
		source  []string
		want    Update
	}{
		{
			name:    "compatible update",
			pattern: "<!>.<>",
			current: "14.04",
			source:  []string{"14.05", "14.04", "14.03", "13.03"},
			want:    Update{Compatible: "14.05"},
		},
		{
			name:    "breaking update",
			pattern: "<!>.<>",
			current: "14.04",
			source:  []string{"15.02", "14.04", "14.03", "13.03"},
			want:    Update{Breaking: "15.02"},
		},
		{
			name:    "both updates",
			pattern: "<!>.<>",
			current: "14.04",
			source:  []string{"15.02", "14.05", "14.04", "14.03", "13.03"},
			want:    Update{Compatible: "14.05", Breaking: "15.02"},
		},
		{
			name:    "no breaking marker and no update",
			pattern: "<>.<>",
			current: "14.04",
			source:  []string{"14.04", "14.03", "13.03"},
			want:    Update{},
		},
		{
			name:    "no breaking marker makes a major bump compatible",
			pattern: "<>.<>",
			current: "14.04",
			source:  []string{"15.00", "14.04"},
			want:    Update{Compatible: "15.00"},
		},
		{
			name:    "first breaking update is kept",
			pattern: "<!>.<>",
			current: "14.04",
			source:  []string{"16.01", "15.02", "14.04"},
			want:    Update{Breaking: "16.01"},
		},
		{
			name:    "unrelated and older tags are skipped",
			pattern: "<!>.<>",
			current: "14.04",
			source:  []string{"latest", "trusty", "14.03", "14.4", "14.05-rc1", "14.06", "14.04"},
			want:    Update{Compatible: "14.06"},
		},
		{
			name:    "breaking update without reaching current tag",
			pattern: "<!>.<>",
			current: "14.04",
			source:  []string{"15.01", "14.03"},
			want:    Update{Breaking: "15.01"},
		},
		{
			name:    "oversized component is skipped",
			pattern: "<!>.<>",
			current: "14.04",
			source:  []string{"14.99999999999999999999", "14.04"},
			want:    Update{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := extractor.New(pattern.MustCompile(tt.pattern))
			got, err := FindUpdate(context.Background(), tags.FromSlice(tt.source...), tt.current, ext)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindUpdateCurrentTagNotEncountered(t *testing.T) {
	ext := extractor.New(pattern.MustCompile("<!>.<>"))
	_, err := FindUpdate(context.Background(), tags.FromSlice("14.03", "14.02", "13.03"), "14.04", ext)

	var notFound *CurrentTagNotEncounteredError
	require.True(t, errors.As(err, &notFound), "unexpected error %v", err)
	assert.Equal(t, 3, notFound.Examined)
	assert.Equal(t, "14.04", notFound.Tag)
}

func TestFindUpdateFetchFailed(t *testing.T) {
	boom := errors.New("connection reset")
	ext := extractor.New(pattern.MustCompile("<!>.<>"))

	got, err := FindUpdate(context.Background(), tags.FromItems(tags.Item{Err: boom}), "14.04", ext)
	var fetchErr *FetchFailedError
	require.True(t, errors.As(err, &fetchErr), "unexpected error %v", err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, got.IsZero())
}

func TestFindUpdateFetchFailedDropsPartialResult(t *testing.T) {
	boom := errors.New("timeout")
	ext := extractor.New(pattern.MustCompile("<!>.<>"))
	src := tags.FromItems(tags.Item{Tag: "15.00"}, tags.Item{Err: boom}, tags.Item{Tag: "14.04"})

	got, err := FindUpdate(context.Background(), src, "14.04", ext)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Update{}, got)
}

func TestFindUpdateCurrentTagPatternConflict(t *testing.T) {
	ext := extractor.New(pattern.MustCompile("<!>.<>"))
	pulled := 0
	src := tags.SourceFunc(func(context.Context) (string, error) {
		pulled++
		return "15.00", nil
	})

	_, err := FindUpdate(context.Background(), src, "latest", ext)
	var conflict *CurrentTagPatternConflictError
	require.True(t, errors.As(err, &conflict), "unexpected error %v", err)
	assert.Equal(t, "<!>.<>", conflict.Pattern)
	assert.ErrorIs(t, err, extractor.ErrNoMatch)
	assert.Zero(t, pulled, "source must not be pulled when the current tag is invalid")
}

func TestFindUpdateCurrentTagOverflowIsConflict(t *testing.T) {
	ext := extractor.New(pattern.MustCompile("<>"))
	_, err := FindUpdate(context.Background(), tags.FromSlice("1"), "99999999999999999999999", ext)

	var conflict *CurrentTagPatternConflictError
	require.True(t, errors.As(err, &conflict))
	var overflow *extractor.ComponentOverflowError
	assert.True(t, errors.As(err, &overflow))
}

// pagedSource serves numbered pages of size pageSize, counting page fetches.
func pagedSource(all []string, pageSize int) (*tags.Pager, *int) {
	fetched := 0
	p := tags.NewPager(tags.PageFetcherFunc(func(_ context.Context, cursor string) (tags.Page, error) {
		fetched++
		start := 0
		if cursor != "" {
			start, _ = strconv.Atoi(cursor)
		}
		end := min(start+pageSize, len(all))
		page := tags.Page{Tags: all[start:end]}
		if end < len(all) {
			page.Next = strconv.Itoa(end)
		}
		return page, nil
	}))
	return p, &fetched
}

func TestFindUpdateStopsPullingAtFirstCompatible(t *testing.T) {
	all := []string{"15.00", "14.09", "14.08", "14.07", "14.06", "14.05", "14.04"}
	src, fetched := pagedSource(all, 2)
	ext := extractor.New(pattern.MustCompile("<!>.<>"))

	got, err := FindUpdate(context.Background(), src, "14.04", ext)
	require.NoError(t, err)
	assert.Equal(t, Update{Compatible: "14.09", Breaking: "15.00"}, got)
	assert.Equal(t, 1, *fetched, "both updates fit in the first page")
}

func TestFindUpdateStopsPullingAtCurrentTag(t *testing.T) {
	all := []string{"13.00", "12.00", "11.00", "10.00", "9.00"}
	src, fetched := pagedSource(all, 2)
	ext := extractor.New(pattern.MustCompile("<!>.<>"))

	got, err := FindUpdate(context.Background(), src, "12.00", ext)
	require.NoError(t, err)
	assert.Equal(t, Update{Breaking: "13.00"}, got)
	assert.Equal(t, 1, *fetched)
}

func TestFindUpdateRespectsHorizon(t *testing.T) {
	all := []string{"16.00", "15.00", "14.05", "14.04"}
	src, fetched := pagedSource(all, 1)
	ext := extractor.New(pattern.MustCompile("<!>.<>"))

	got, err := FindUpdate(context.Background(), tags.Limit(src, 2), "14.04", ext)
	require.NoError(t, err)
	assert.Equal(t, Update{Breaking: "16.00"}, got)
	assert.Equal(t, 2, *fetched)
}

func TestFindUpdateIsDeterministic(t *testing.T) {
	seq := []string{"latest", "15.02", "15.01", "14.05", "14.04", "14.03"}
	ext := extractor.New(pattern.MustCompile("<!>.<>"))

	first, err := FindUpdate(context.Background(), tags.FromSlice(seq...), "14.04", ext)
	require.NoError(t, err)
	second, err := FindUpdate(context.Background(), tags.FromSlice(seq...), "14.04", ext)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFindUpdateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := tags.SourceFunc(func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "14.04", nil
	})
	ext := extractor.New(pattern.MustCompile("<!>.<>"))

	_, err := FindUpdate(ctx, src, "14.04", ext)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindUpdateLogsEveryDecision(t *testing.T) {
	ext := extractor.New(pattern.MustCompile("<!>.<>"))
	src := tags.FromSlice("latest", "15.04", "13.10", "14.04")

	var got Update
	var err error
	_, logs, captureErr := testutil.CaptureJSONLogs(log.LevelDebug, func() {
		got, err = FindUpdate(context.Background(), src, "14.04", ext)
	})
	require.NoError(t, captureErr)
	require.NoError(t, err)
	assert.Equal(t, Update{Breaking: "15.04"}, got)

	testutil.AssertLogContainsJSON(t, logs, map[string]any{"msg": "Skipping tag", "tag": "latest", "reason": "no match"})
	testutil.AssertLogContainsJSON(t, logs, map[string]any{"msg": "Found breaking update", "tag": "15.04", "examined": 2})
	testutil.AssertLogContainsJSON(t, logs, map[string]any{"msg": "Skipping tag", "tag": "13.10", "reason": "not newer"})
	testutil.AssertLogContainsJSON(t, logs, map[string]any{"msg": "Reached current tag", "tag": "14.04", "examined": 4})
}

func TestUpdateHelpers(t *testing.T) {
	assert.True(t, Update{}.IsZero())
	u := Update{Compatible: "1.1", Breaking: "2.0"}
	assert.True(t, u.HasCompatible())
	assert.True(t, u.HasBreaking())
	assert.False(t, u.IsZero())
}
