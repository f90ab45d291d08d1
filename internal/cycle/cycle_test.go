package cycle

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/where2work/internal/band"
	"github.com/hupe1980/where2work/internal/filter"
	"github.com/hupe1980/where2work/internal/roster"
	"github.com/hupe1980/where2work/internal/selection"
	"github.com/hupe1980/where2work/internal/store/memory"
)

const fixtureCSV = `Entity_Legal_Name,Entity_Type,Headquarters_Location,Estimated_Employee_Band,Estimated_Employee_Band_Code,Primary_ANZSIC_Code
Alpha Pty Ltd,Australian Private Company [1],Sydney,1–5 Employees,B1,K6411 (Financial Services)
Bravo Pty Ltd,Australian Private Company,Perth,1–5 Employees,B1,M6962 (Consulting)
Charlie Ltd,Public Company,Sydney,6–19 Employees,B2,J5420
Delta Ltd,Public Company,Melbourne,6–19 Employees,B2,K6411 (Financial Services)
Echo Trust,Trust,Sydney,6–19 Employees,B2,M6962 (Consulting)
`

func newEngine(t *testing.T) *Engine {
	t.Helper()

	classifier := band.NewClassifier(nil)

	ds, err := roster.Parse(strings.NewReader(fixtureCSV), "fixture.csv", classifier)
	require.NoError(t, err)
	require.Equal(t, 5, ds.Len())

	return NewEngine(ds, classifier, nil)
}

func columnsOf(v *ChartView) map[int]bool {
	out := make(map[int]bool)
	for _, m := range v.Markers {
		out[int(math.Round(m.X))] = true
	}

	return out
}

// ---------------------------------------------------------------------------
// End-to-end scenarios
// ---------------------------------------------------------------------------

func TestRender_NothingShortlisted(t *testing.T) {
	e := newEngine(t)

	r, err := e.Render(context.Background(), filter.Criteria{}, selection.New())
	require.NoError(t, err)

	assert.Equal(t, 5, r.Pool.Count)
	assert.Len(t, r.Pool.Markers, 5)
	assert.Equal(t, map[int]bool{0: true, 1: true}, columnsOf(r.Pool))
	assert.Equal(t, "All Companies (5 companies)", r.Pool.Title)
	assert.Equal(t, PoolCaption, r.Pool.Caption)
	assert.False(t, r.Pool.Empty)

	assert.True(t, r.Shortlist.Empty)
	assert.Empty(t, r.Shortlist.Markers)
	assert.Equal(t, ShortlistEmptyMessage, r.Shortlist.EmptyMessage)
	assert.Equal(t, "Your Shortlist (0 companies)", r.Shortlist.Title)
}

func TestCycle_PoolClickMovesEntityToShortlist(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	start := selection.New()

	step, err := e.Cycle(ctx, filter.Criteria{}, start, &MarkerClick{Chart: selection.ChartPool, Index: 0})
	require.NoError(t, err)

	assert.Equal(t, selection.OutcomeAdded, step.Outcome)
	assert.Equal(t, "Alpha Pty Ltd", step.Click.EntityID)
	assert.True(t, step.Selection.Contains("Alpha Pty Ltd"))
	assert.Equal(t, 0, start.Len(), "input set is not mutated")

	r := step.Render
	require.Len(t, r.Shortlist.Markers, 1)

	m := r.Shortlist.Markers[0]
	assert.Equal(t, 0, int(math.Round(m.X)), "placed at the rank of its band")
	assert.Equal(t, 0.0, m.X, "a lone entity sits on its column")
	assert.Equal(t, "Alpha Pty Ltd", m.Label)
	assert.Equal(t, "Your Shortlist (1 company)", r.Shortlist.Title)
	assert.Equal(t, ShortlistCaption, r.Shortlist.Caption)
	assert.Equal(t, 4, r.Pool.Count)

	for _, pm := range r.Pool.Markers {
		assert.NotEqual(t, "Alpha Pty Ltd", pm.Tooltip.Company)
		assert.Empty(t, pm.Label, "pool bubbles carry no text")
	}
}

// ---------------------------------------------------------------------------
// Cycle
// ---------------------------------------------------------------------------

func TestCycle_ShortlistClickRemoves(t *testing.T) {
	e := newEngine(t)

	step, err := e.Cycle(context.Background(), filter.Criteria{}, selection.New("Delta Ltd"),
		&MarkerClick{Chart: selection.ChartShortlist, Index: 0})
	require.NoError(t, err)

	assert.Equal(t, selection.OutcomeRemoved, step.Outcome)
	assert.Equal(t, 0, step.Selection.Len())
	assert.True(t, step.Render.Shortlist.Empty)
	assert.Equal(t, 5, step.Render.Pool.Count)
}

func TestCycle_StaleIndexIsIgnored(t *testing.T) {
	e := newEngine(t)
	set := selection.New("Echo Trust")

	for _, click := range []MarkerClick{
		{Chart: selection.ChartPool, Index: 4},
		{Chart: selection.ChartPool, Index: -1},
		{Chart: selection.ChartShortlist, Index: 1},
		{Chart: selection.ChartNone, Index: 0},
	} {
		step, err := e.Cycle(context.Background(), filter.Criteria{}, set, &click)
		require.NoError(t, err)
		assert.Equal(t, selection.OutcomeIgnored, step.Outcome, "%+v", click)
		assert.True(t, step.Selection.Equal(set))
	}
}

func TestCycle_NilClickRenders(t *testing.T) {
	e := newEngine(t)

	step, err := e.Cycle(context.Background(), filter.Criteria{}, selection.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, selection.OutcomeIgnored, step.Outcome)
	assert.Equal(t, 5, step.Render.Pool.Count)
}

func TestCycle_ResolvesAgainstFilteredRender(t *testing.T) {
	e := newEngine(t)
	crit := filter.Criteria{Locations: []string{"Melbourne"}}

	step, err := e.Cycle(context.Background(), crit, selection.New(), &MarkerClick{Chart: selection.ChartPool, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, "Delta Ltd", step.Click.EntityID)
}

// ---------------------------------------------------------------------------
// Render
// ---------------------------------------------------------------------------

func TestRender_AllShortlisted(t *testing.T) {
	e := newEngine(t)
	all := selection.New(roster.Names(e.Dataset().Entities)...)

	r, err := e.Render(context.Background(), filter.Criteria{}, all)
	require.NoError(t, err)

	assert.True(t, r.Pool.Empty)
	assert.Equal(t, PoolEmptyMessage, r.Pool.EmptyMessage)
	assert.Equal(t, "All Companies (0 companies)", r.Pool.Title)
	assert.Equal(t, 5, r.Shortlist.Count)
}

func TestRender_Filters(t *testing.T) {
	e := newEngine(t)
	crit := filter.Criteria{Locations: []string{"Sydney"}, Bands: []string{"6–19 Employees"}}

	r, err := e.Render(context.Background(), crit, selection.New())
	require.NoError(t, err)

	assert.Equal(t, 2, r.Filtered)
	assert.Equal(t, 3, r.Excluded)
	assert.Equal(t, []string{"Charlie Ltd", "Echo Trust"}, roster.Names(r.Pool.Entities()))
	assert.Equal(t, crit, r.Criteria)
}

func TestRender_Tooltip(t *testing.T) {
	e := newEngine(t)

	r, err := e.Render(context.Background(), filter.Criteria{}, selection.New())
	require.NoError(t, err)

	assert.Equal(t, Tooltip{
		Company:  "Alpha Pty Ltd",
		Type:     "Australian Private Company",
		Location: "Sydney",
		Industry: "Financial Services",
		Band:     "1–5 Employees",
	}, r.Pool.Markers[0].Tooltip)
	assert.Equal(t, "J5420", r.Pool.Markers[2].Tooltip.Industry)
}

func TestRender_AxesCoverBands(t *testing.T) {
	e := newEngine(t)

	r, err := e.Render(context.Background(), filter.Criteria{}, selection.New())
	require.NoError(t, err)

	require.Len(t, r.Pool.Ticks, 3)
	assert.Equal(t, "20–49 Employees", r.Pool.Ticks[2].Label)
	assert.Equal(t, [2]float64{-0.5, 2.5}, r.Pool.XRange)
	assert.Equal(t, [2]float64{-3.5, 3.5}, r.Shortlist.YRange)
	assert.Equal(t, AxisTitle, r.Shortlist.AxisTitle)
}

func TestRender_UnknownBandsKeepTheirColumn(t *testing.T) {
	const csv = `Entity_Legal_Name,Entity_Type,Headquarters_Location,Estimated_Employee_Band,Estimated_Employee_Band_Code,Primary_ANZSIC_Code
Xray Ltd,Public Company,Sydney,X band,BX,J5420
Yankee Ltd,Public Company,Perth,Y band,BY,J5420
Zulu Ltd,Public Company,Sydney,1–5 Employees,B1,J5420
`

	classifier := band.NewClassifier(nil)
	ds, err := roster.Parse(strings.NewReader(csv), "unknown.csv", classifier)
	require.NoError(t, err)

	e := NewEngine(ds, classifier, nil)
	ctx := context.Background()

	rankOf := func(t *testing.T, v *ChartView, label string) int {
		t.Helper()

		for _, tick := range v.Ticks {
			if tick.Label == label {
				return int(tick.Value)
			}
		}

		t.Fatalf("no tick for %q", label)

		return -1
	}

	scenarios := []struct {
		name     string
		criteria filter.Criteria
		set      selection.Set
	}{
		{"nothing shortlisted", filter.Criteria{}, selection.New()},
		{"y shortlisted", filter.Criteria{}, selection.New("Yankee Ltd")},
		{"x shortlisted", filter.Criteria{}, selection.New("Xray Ltd")},
		{"filtered to perth", filter.Criteria{Locations: []string{"Perth"}}, selection.New()},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			r, err := e.Render(ctx, sc.criteria, sc.set)
			require.NoError(t, err)

			for _, v := range []*ChartView{r.Pool, r.Shortlist} {
				require.Len(t, v.Ticks, 5)
				assert.Equal(t, 3, rankOf(t, v, "X band"))
				assert.Equal(t, 4, rankOf(t, v, "Y band"))
				assert.Equal(t, [2]float64{-0.5, 4.5}, v.XRange)
			}

			for _, v := range []*ChartView{r.Pool, r.Shortlist} {
				for _, m := range v.Markers {
					switch m.Tooltip.Band {
					case "X band":
						assert.Equal(t, 3, int(math.Round(m.X)), m.Tooltip.Company)
					case "Y band":
						assert.Equal(t, 4, int(math.Round(m.X)), m.Tooltip.Company)
					}
				}
			}
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	e := newEngine(t)
	set := selection.New("Bravo Pty Ltd", "Charlie Ltd")

	a, err := e.Render(context.Background(), filter.Criteria{}, set)
	require.NoError(t, err)

	b, err := e.Render(context.Background(), filter.Criteria{}, set)
	require.NoError(t, err)

	assert.Equal(t, a.Pool.Markers, b.Pool.Markers)
	assert.Equal(t, a.Shortlist.Markers, b.Shortlist.Markers)
}

func TestRender_NoDataset(t *testing.T) {
	e := NewEngine(nil, nil, nil)

	_, err := e.Render(context.Background(), filter.Criteria{}, selection.New())
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestRender_CancelledContext(t *testing.T) {
	e := newEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Render(ctx, filter.Criteria{}, selection.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_SetDataset(t *testing.T) {
	e := newEngine(t)
	e.SetDataset(&roster.Dataset{Order: band.DefaultOrder()})

	r, err := e.Render(context.Background(), filter.Criteria{}, selection.New())
	require.NoError(t, err)
	assert.True(t, r.Pool.Empty)
}

func TestTitle(t *testing.T) {
	tests := []struct {
		chart selection.Chart
		count int
		want  string
	}{
		{selection.ChartShortlist, 0, "Your Shortlist (0 companies)"},
		{selection.ChartShortlist, 1, "Your Shortlist (1 company)"},
		{selection.ChartPool, 1, "All Companies (1 company)"},
		{selection.ChartPool, 12, "All Companies (12 companies)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Title(tt.chart, tt.count))
	}
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

func TestService_ClickPersists(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewService(newEngine(t), store)

	step, err := svc.Click(ctx, "s1", filter.Criteria{}, MarkerClick{Chart: selection.ChartPool, Index: 1})
	require.NoError(t, err)
	assert.Equal(t, selection.OutcomeAdded, step.Outcome)

	saved, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bravo Pty Ltd"}, saved.Names())

	r, err := svc.Render(ctx, "s1", filter.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Shortlist.Count)

	other, err := svc.Render(ctx, "s2", filter.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, 0, other.Shortlist.Count, "sessions are isolated")
}

func TestService_StaleClickNotSaved(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.New()}
	svc := NewService(newEngine(t), store)

	_, err := svc.Click(ctx, "s1", filter.Criteria{}, MarkerClick{Chart: selection.ChartPool, Index: 42})
	require.NoError(t, err)
	assert.Equal(t, 0, store.saves)
}

// countingStore counts Save calls.
type countingStore struct {
	*memory.Store
	saves int
}

func (s *countingStore) Save(ctx context.Context, session string, set selection.Set) error {
	s.saves++

	return s.Store.Save(ctx, session, set)
}

func TestService_Clear(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Save(ctx, "s1", selection.New("Alpha Pty Ltd", "Echo Trust")))

	svc := NewService(newEngine(t), store)

	r, err := svc.Clear(ctx, "s1", filter.Criteria{})
	require.NoError(t, err)
	assert.True(t, r.Shortlist.Empty)

	set, err := svc.Shortlist(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestService_InvalidSession(t *testing.T) {
	svc := NewService(newEngine(t), memory.New())

	_, err := svc.Render(context.Background(), "", filter.Criteria{})
	assert.ErrorIs(t, err, selection.ErrInvalidSession)
}

func TestService_SerialisesSessionCycles(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newEngine(t), memory.New())

	// Each click takes whatever sits at pool index 0 at the time it runs.
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Click(ctx, "shared", filter.Criteria{}, MarkerClick{Chart: selection.ChartPool, Index: 0})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	set, err := svc.Shortlist(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 5, set.Len())
	assert.Empty(t, svc.locks)
}

func TestService_ReleasesSessionLocks(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newEngine(t), memory.New())

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			session := fmt.Sprintf("one-shot-%d", i%50)

			_, err := svc.Render(ctx, session, filter.Criteria{})
			assert.NoError(t, err)

			_, err = svc.Click(ctx, session, filter.Criteria{}, MarkerClick{Chart: selection.ChartShortlist, Index: 9})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	_, err := svc.Clear(ctx, "one-shot-0", filter.Criteria{})
	require.NoError(t, err)

	svc.mu.Lock()
	defer svc.mu.Unlock()

	assert.Empty(t, svc.locks)
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

func TestEngine_Options(t *testing.T) {
	opts := newEngine(t).Options()

	assert.Equal(t, []string{"Melbourne", "Perth", "Sydney"}, opts.Locations)
	assert.Equal(t, []string(band.DefaultOrder()), opts.Bands)
	assert.Equal(t, []string{"J5420", "K6411 (Financial Services)", "M6962 (Consulting)"}, opts.Industries)
	assert.Empty(t, opts.Unclassified)
}

func TestEngine_OptionsWithoutDataset(t *testing.T) {
	opts := NewEngine(nil, nil, nil).Options()

	assert.Empty(t, opts.Locations)
	assert.NotNil(t, opts.Industries)
	assert.Len(t, opts.Bands, 3)
}
