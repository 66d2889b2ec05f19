package gitexec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/repofleet/gitfleet/internal/fleeterr"
)

func TestParseProgressPercent(t *testing.T) {
	cases := []struct {
		line string
		want int
		ok   bool
	}{
		{"Receiving objects:  42% (84/200)", 42, true},
		{"Resolving deltas: 100% (10/10), done.", 100, true},
		{"Compressing objects:   7% (1/14)", 7, true},
		{"Cloning into 'repo'...", 0, false},
	}
	for _, c := range cases {
		got, ok := parseProgressPercent(c.line)
		assert.Equal(t, c.ok, ok, c.line)
		if c.ok {
			assert.Equal(t, c.want, got, c.line)
		}
	}
}

func TestClassifyCloneError(t *testing.T) {
	cases := []struct {
		output string
		kind   fleeterr.Kind
	}{
		{"fatal: Authentication failed for 'https://example.com/x.git'", fleeterr.KindAuthenticationFailure},
		{"remote: Repository not found.", fleeterr.KindNotFound},
		{"fatal: unable to access: Could not resolve host: example.com", fleeterr.KindTransportFailure},
		{"fatal: some other error", fleeterr.KindRepositoryFailure},
	}
	for _, c := range cases {
		err := classifyCloneError(assertErr, c.output, "https://example.com/x.git")
		assert.Equal(t, c.kind, fleeterr.KindOf(err), c.output)
	}
}

var assertErr = &fleeterr.Error{}

func TestBasicAuthHeader(t *testing.T) {
	header := basicAuthHeader(Credentials{Username: "x", Password: "tok"})
	assert.Contains(t, header, "Authorization: Basic ")
}
