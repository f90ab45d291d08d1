package where2work_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/where2work/pkg/where2work"
)

const fixtureCSV = `Entity_Legal_Name,Entity_Type,Headquarters_Location,Estimated_Employee_Band,Estimated_Employee_Band_Code,Primary_ANZSIC_Code
Alpha Pty Ltd,Australian Private Company,Sydney,1–5 Employees,B1,K6411 (Financial Services)
Bravo Pty Ltd,Australian Private Company,Perth,1–5 Employees,B1,M6962 (Consulting)
Charlie Ltd,Public Company,Sydney,6–19 Employees,B2,J5420
`

func writeDataset(t *testing.T, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

func open(t *testing.T, opts ...where2work.Option) *where2work.Explorer {
	t.Helper()

	ex, err := where2work.Open(context.Background(), writeDataset(t, fixtureCSV), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ex.Close() })

	return ex
}

func TestOpen_EmptyLocation(t *testing.T) {
	_, err := where2work.Open(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset location must not be empty")
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := where2work.Open(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading dataset")
}

func TestOpen_UnknownStore(t *testing.T) {
	_, err := where2work.Open(context.Background(), writeDataset(t, fixtureCSV), where2work.WithStore("redis", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestRender(t *testing.T) {
	ex := open(t)

	res, err := ex.Render(context.Background(), "me", where2work.Criteria{})
	require.NoError(t, err)

	assert.Empty(t, res.Shortlist)
	assert.Equal(t, []string{"Alpha Pty Ltd", "Bravo Pty Ltd", "Charlie Ltd"}, res.Pool)
	assert.Equal(t, 3, res.Filtered)

	y, err := res.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(y), "All Companies (3 companies)")

	j, err := res.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(j), `"title": "Your Shortlist (0 companies)"`)

	svg, err := res.SVG(where2work.ChartShortlist)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(svg)), "<svg"))

	_, err = res.SVG("legend")
	assert.Error(t, err)
}

func TestClick(t *testing.T) {
	ctx := context.Background()
	ex := open(t)
	sydney := where2work.Criteria{Locations: []string{"Sydney"}}

	res, err := ex.Click(ctx, "me", sydney, where2work.ChartPool, 1)
	require.NoError(t, err)
	assert.Equal(t, where2work.OutcomeAdded, res.Outcome)
	assert.Equal(t, "Charlie Ltd", res.Company)
	assert.Equal(t, []string{"Charlie Ltd"}, res.Shortlist)
	assert.Equal(t, []string{"Alpha Pty Ltd"}, res.Pool)

	res, err = ex.Click(ctx, "me", sydney, where2work.ChartPool, 5)
	require.NoError(t, err)
	assert.Equal(t, where2work.OutcomeIgnored, res.Outcome)
	assert.Empty(t, res.Company)

	names, err := ex.Shortlist(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, []string{"Charlie Ltd"}, names)

	require.NoError(t, ex.Clear(ctx, "me"))

	names, err = ex.Shortlist(ctx, "me")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = ex.Click(ctx, "me", sydney, "sidebar", 0)
	assert.Error(t, err)
}

func TestWithStore_SQLitePersists(t *testing.T) {
	ctx := context.Background()
	data := writeDataset(t, fixtureCSV)
	db := filepath.Join(t.TempDir(), "state.db")

	ex, err := where2work.Open(ctx, data, where2work.WithStore("sqlite", db))
	require.NoError(t, err)

	_, err = ex.Click(ctx, "me", where2work.Criteria{}, where2work.ChartPool, 0)
	require.NoError(t, err)
	require.NoError(t, ex.Close())

	ex, err = where2work.Open(ctx, data, where2work.WithStore("sqlite", db))
	require.NoError(t, err)

	defer ex.Close()

	names, err := ex.Shortlist(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha Pty Ltd"}, names)
}

func TestWithSeed_ChangesLayoutOnly(t *testing.T) {
	ctx := context.Background()

	a, err := open(t).Render(ctx, "me", where2work.Criteria{})
	require.NoError(t, err)

	b, err := open(t, where2work.WithSeed(7)).Render(ctx, "me", where2work.Criteria{})
	require.NoError(t, err)

	assert.Equal(t, a.Pool, b.Pool)

	ya, err := a.YAML()
	require.NoError(t, err)

	yb, err := b.YAML()
	require.NoError(t, err)

	assert.NotEqual(t, string(ya), string(yb))
}

func TestOptions(t *testing.T) {
	ex := open(t, where2work.WithBands([]string{"1–5 Employees"}))

	opts := ex.Options()
	assert.Equal(t, []string{"Perth", "Sydney"}, opts.Locations)
	assert.Equal(t, []string{"1–5 Employees"}, opts.Bands)
	assert.Equal(t, []string{"6–19 Employees"}, opts.Unclassified)
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	path := writeDataset(t, fixtureCSV)

	ex, err := where2work.Open(ctx, path)
	require.NoError(t, err)

	defer ex.Close()

	require.NoError(t, os.WriteFile(path, []byte(fixtureCSV+"Delta Ltd,Public Company,Hobart,20–49 Employees,B3,J5420\n"), 0o600))
	require.NoError(t, ex.Reload(ctx))

	res, err := ex.Render(ctx, "me", where2work.Criteria{})
	require.NoError(t, err)
	assert.Len(t, res.Pool, 4)

	require.NoError(t, os.WriteFile(path, nil, 0o600))
	require.Error(t, ex.Reload(ctx))

	res, err = ex.Render(ctx, "me", where2work.Criteria{})
	require.NoError(t, err)
	assert.Len(t, res.Pool, 4, "a failed reload keeps the previous dataset")
}
