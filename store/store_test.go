package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	cursor := EncodeCursor("2026-01-01T00:00:00Z", "abc")

	parts, err := DecodeCursor(cursor, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-01T00:00:00Z", "abc"}, parts)

	_, err = DecodeCursor(cursor, 1)
	assert.Error(t, err)

	_, err = DecodeCursor("not base64!!", 1)
	assert.ErrorIs(t, err, ErrBadCursor)

	parts, err = DecodeCursor("", 1)
	require.NoError(t, err)
	assert.Nil(t, parts)
}

type item struct {
	name  string
	owner string
}

func ownerOf(i item) string { return i.owner }

func TestFeedFiltersByOwner(t *testing.T) {
	var feed Feed[item]
	assert.False(t, feed.Active())

	var all, mine []item
	unsubAll := feed.Subscribe(func(items []item) { all = items }, "")
	unsubMine := feed.Subscribe(func(items []item) { mine = items }, "me")
	assert.True(t, feed.Active())

	feed.Publish([]item{{"a", "me"}, {"b", "you"}}, ownerOf)

	assert.Len(t, all, 2)
	assert.Equal(t, []item{{"a", "me"}}, mine)

	unsubMine()
	unsubMine()
	mine = nil
	feed.Publish([]item{{"c", "me"}}, ownerOf)
	assert.Nil(t, mine)
	assert.Len(t, all, 1)

	unsubAll()
	assert.False(t, feed.Active())
}

func TestAllDrainsPages(t *testing.T) {
	data := []int{1, 2, 3, 4, 5}
	list := func(_ context.Context, opts ListOptions) (Page[int], error) {
		start := 0
		if opts.Cursor != "" {
			parts, err := DecodeCursor(opts.Cursor, 1)
			if err != nil {
				return Page[int]{}, err
			}
			start = int(parts[0][0] - '0')
		}
		end := start + opts.PageSize
		if end >= len(data) {
			return Page[int]{Items: data[start:]}, nil
		}
		return Page[int]{Items: data[start:end], HasMore: true, NextCursor: EncodeCursor(string(rune('0' + end)))}, nil
	}

	got, err := All(context.Background(), list, ListOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
