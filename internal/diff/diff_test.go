package diff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Compute
// ---------------------------------------------------------------------------

func TestCompute_Identical(t *testing.T) {
	doc := "pool:\n  count: 3\n"
	result, err := Compute(doc, doc, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, result.HasDifferences)
	assert.Empty(t, result.Hunks)
}

func TestCompute_Different(t *testing.T) {
	result, err := Compute("pool:\n  count: 3\n", "pool:\n  count: 2\n", DefaultOptions())
	require.NoError(t, err)
	assert.True(t, result.HasDifferences)
	assert.NotEmpty(t, result.Hunks)
	assert.Contains(t, result.Unified, "-  count: 3")
	assert.Contains(t, result.Unified, "+  count: 2")
	assert.Contains(t, result.Unified, "--- saved")
	assert.Contains(t, result.Unified, "+++ current")
}

func TestCompute_EmptyOld(t *testing.T) {
	result, err := Compute("", "pool: {}\n", DefaultOptions())
	require.NoError(t, err)
	assert.True(t, result.HasDifferences)
}

func TestCompareDocuments_IgnoresFormat(t *testing.T) {
	jsonDoc := []byte(`{"pool":{"title":"All Companies (1 company)","count":1},"filtered":1}`)
	yamlDoc := []byte("filtered: 1\npool:\n  count: 1\n  title: All Companies (1 company)\n")

	result, err := CompareDocuments(jsonDoc, yamlDoc, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, result.HasDifferences, result.Unified)
}

func TestCompareDocuments_InvalidInput(t *testing.T) {
	_, err := CompareDocuments([]byte("a: [unclosed"), []byte("a: 1\n"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saved")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, &Result{}, false)
	assert.Equal(t, "No differences found.\n", buf.String())

	result, err := Compute("a: 1\n", "a: 2\n", DefaultOptions())
	require.NoError(t, err)

	buf.Reset()
	Write(&buf, result, true)
	assert.Contains(t, buf.String(), "\033[31m-a: 1\033[0m")
	assert.Contains(t, buf.String(), "\033[32m+a: 2\033[0m")

	buf.Reset()
	Write(&buf, result, false)
	assert.NotContains(t, buf.String(), "\033[")
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

const before = `
shortlist:
  markers:
  - tooltip: {company: Acme}
pool:
  markers:
  - tooltip: {company: Bolt}
  - tooltip: {company: Crate}
`

const after = `
shortlist:
  markers:
  - tooltip: {company: Bolt}
pool:
  markers:
  - tooltip: {company: Acme}
  - tooltip: {company: Dune}
`

func TestMembershipOf(t *testing.T) {
	m, err := MembershipOf([]byte(before))
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, m.Shortlist)
	assert.Equal(t, []string{"Bolt", "Crate"}, m.Pool)

	_, err = MembershipOf([]byte("shortlist: [1, 2"))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	b, err := MembershipOf([]byte(before))
	require.NoError(t, err)

	a, err := MembershipOf([]byte(after))
	require.NoError(t, err)

	s := Summarize(b, a)
	assert.Equal(t, []string{"Bolt"}, s.Shortlisted)
	assert.Equal(t, []string{"Acme"}, s.Released)
	assert.Equal(t, []string{"Dune"}, s.Appeared)
	assert.Equal(t, []string{"Crate"}, s.Disappeared)
	assert.False(t, s.IsZero())

	assert.True(t, Summarize(b, b).IsZero())
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, Summary{})
	assert.Equal(t, "No companies changed charts.\n", buf.String())

	buf.Reset()
	WriteSummary(&buf, Summary{Shortlisted: []string{"Bolt"}, Disappeared: []string{"Crate"}})
	assert.Contains(t, buf.String(), "+ shortlisted  Bolt")
	assert.Contains(t, buf.String(), "- disappeared  Crate")
}
