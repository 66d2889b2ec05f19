package commitextractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLog(t *testing.T) {
	sep := fieldSep
	header1 := recordSep + strings.Join([]string{
		"aaaa", "", "Ada", "ada@example.com", "1700000000 +0530", "Ada", "ada@example.com", "1700000001 +0530", "root commit",
	}, sep)
	header2 := recordSep + strings.Join([]string{
		"bbbb", "aaaa", "Bob", "bob@example.com", "1700001000 -0700", "Bob", "bob@example.com", "1700001001 -0700", "second commit",
	}, sep)

	log := strings.Join([]string{
		header1,
		"",
		"10\t0\tmain.go",
		"",
		header2,
		"",
		"5\t2\tmain.go",
		"-\t-\tbinary.png",
		"",
	}, "\n")

	records, err := parseLog(strings.NewReader(log), "myrepo")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "aaaa", records[0].SHA)
	assert.Equal(t, "myrepo", records[0].RepoName)
	assert.Equal(t, 10, records[0].Additions)
	assert.Equal(t, 0, records[0].Deletions)
	assert.False(t, records[0].IsMerge)
	assert.Equal(t, int64(1700000000), records[0].AuthorTimestamp)
	assert.Equal(t, 330, records[0].AuthorOffset)
	assert.Equal(t, 330, records[0].CommitterOffset)

	assert.Equal(t, "bbbb", records[1].SHA)
	assert.Equal(t, 5, records[1].Additions)
	assert.Equal(t, 2, records[1].Deletions)
	assert.Equal(t, -420, records[1].AuthorOffset)
	assert.Equal(t, -420, records[1].CommitterOffset)
}

func TestParseRawDate(t *testing.T) {
	epoch, offset := parseRawDate("1700000000 +0530")
	assert.Equal(t, int64(1700000000), epoch)
	assert.Equal(t, 330, offset)

	epoch, offset = parseRawDate("1700000000 -0700")
	assert.Equal(t, int64(1700000000), epoch)
	assert.Equal(t, -420, offset)

	epoch, offset = parseRawDate("1700000000")
	assert.Equal(t, int64(1700000000), epoch)
	assert.Equal(t, 0, offset)
}

func TestParseTZOffset(t *testing.T) {
	assert.Equal(t, 330, parseTZOffset("+0530"))
	assert.Equal(t, -420, parseTZOffset("-0700"))
	assert.Equal(t, 0, parseTZOffset("not-a-tz"))
}

func TestParseNumstat(t *testing.T) {
	a, d, ok := parseNumstat("12\t3\tfile.go")
	require.True(t, ok)
	assert.Equal(t, 12, a)
	assert.Equal(t, 3, d)

	a, d, ok = parseNumstat("-\t-\tbinary.png")
	require.True(t, ok)
	assert.Equal(t, 0, a)
	assert.Equal(t, 0, d)

	_, _, ok = parseNumstat("not a numstat line")
	assert.False(t, ok)
}

func TestIsMergeDetection(t *testing.T) {
	rec, err := parseHeader(strings.Join([]string{
		"cccc", "aaaa bbbb", "Carl", "carl@example.com", "1700002000", "Carl", "carl@example.com", "1700002001", "merge",
	}, fieldSep), "myrepo")
	require.NoError(t, err)
	assert.True(t, rec.IsMerge)
}

func TestRepoNameFromPath(t *testing.T) {
	assert.Equal(t, "myrepo", repoNameFromPath("/tmp/clones/myrepo"))
	assert.Equal(t, "myrepo", repoNameFromPath("/tmp/clones/myrepo/"))
}
