package stormsql_test

import (
	"testing"

	"github.com/mdouchement/creativespace/pkg/stormsql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelect(t *testing.T) {
	sc, err := stormsql.ParseSelect("SELECT Title, Likes FROM media WHERE UserID = 'sarah@example.com' AND Likes > 100 ORDER BY Likes DESC LIMIT 2, 5")
	require.NoError(t, err)

	assert.Equal(t, []string{"Title", "Likes"}, sc.SelectedFields)
	assert.False(t, sc.Count)
	assert.Equal(t, "media", sc.Tablename)
	assert.NotNil(t, sc.Matcher)
	assert.Equal(t, 2, sc.Skip)
	assert.Equal(t, 5, sc.Limit)
	assert.Equal(t, []string{"Likes"}, sc.OrderBy)
	assert.True(t, sc.OrderByReversed)
}

func TestParseSelect_Count(t *testing.T) {
	sc, err := stormsql.ParseSelect("SELECT count(*) FROM users")
	require.NoError(t, err)

	assert.True(t, sc.Count)
	assert.Empty(t, sc.SelectedFields)
	assert.Equal(t, "users", sc.Tablename)
	assert.NotNil(t, sc.Matcher)
}

func TestParseSelect_Errors(t *testing.T) {
	for _, sql := range []string{
		"DELETE FROM media",
		"SELECT max(Likes) FROM media",
		"SELECT * FROM media WHERE Likes + 1 = 2",
		"SELECT * FROM media WHERE Likes <=> 2",
		"SELECT * FROM media LIMIT 'a'",
		"not sql",
	} {
		_, err := stormsql.ParseSelect(sql)
		assert.Error(t, err, sql)
	}
}

func TestParseSelect_Where(t *testing.T) {
	for _, sql := range []string{
		"SELECT * FROM media WHERE Category IN ('Art', 'Tech')",
		"SELECT * FROM media WHERE Title LIKE 'Alp%'",
		"SELECT * FROM media WHERE (Likes >= 1 OR Views <= 3) AND LikedByUser = true",
		"SELECT * FROM media WHERE RemoteURL IS NOT NULL",
		"SELECT * FROM media WHERE CreatedAt > '2024-03-10 12:00:00'",
		"SELECT * FROM users WHERE Email != 'a@x.com'",
	} {
		sc, err := stormsql.ParseSelect(sql)
		require.NoError(t, err, sql)
		assert.NotNil(t, sc.Matcher, sql)
	}
}
