package blameengine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePorcelain = `aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa 1 1 2
author Ada Lovelace
author-mail <ada@example.com>
author-time 1700000000
author-tz +0000
committer Ada Lovelace
committer-mail <ada@example.com>
summary Initial commit
filename main.go
	package main
aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa 2 2
	func main() {}
bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb 3 3 1
author Bob
author-mail <bob@example.com>
summary Follow-up
filename main.go
	// trailing
`

func TestParsePorcelain(t *testing.T) {
	lines, err := parsePorcelain(strings.NewReader(samplePorcelain))
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", lines[0].CommitID)
	assert.Equal(t, "Ada Lovelace", lines[0].AuthorName)
	assert.Equal(t, "ada@example.com", lines[0].AuthorEmail)
	assert.Equal(t, "package main", lines[0].LineContent)

	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", lines[1].CommitID)
	assert.Equal(t, "Ada Lovelace", lines[1].AuthorName)

	assert.Equal(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", lines[2].CommitID)
	assert.Equal(t, "Bob", lines[2].AuthorName)
	assert.Equal(t, "// trailing", lines[2].LineContent)
}

func TestIsHeaderLine(t *testing.T) {
	sha40 := strings.Repeat("a", 40)
	assert.True(t, isHeaderLine(sha40+" 1 1 2"))
	assert.True(t, isHeaderLine(sha40+" 10 20"))
	assert.False(t, isHeaderLine("author Ada Lovelace"))
	assert.False(t, isHeaderLine("\tpackage main"))
	assert.False(t, isHeaderLine("nothex 1 2"))
}
