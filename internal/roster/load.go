package roster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hupe1980/where2work/internal/band"
)

// Required CSV columns.
const (
	ColumnLegalName    = "Entity_Legal_Name"
	ColumnEntityType   = "Entity_Type"
	ColumnLocation     = "Headquarters_Location"
	ColumnEmployeeBand = "Estimated_Employee_Band"
	ColumnBandCode     = "Estimated_Employee_Band_Code"
	ColumnIndustryCode = "Primary_ANZSIC_Code"
)

// RequiredColumns lists the columns every dataset must carry, in the order
// they are reported when missing.
var RequiredColumns = []string{
	ColumnLegalName,
	ColumnEntityType,
	ColumnLocation,
	ColumnEmployeeBand,
	ColumnBandCode,
	ColumnIndustryCode,
}

// LoadErrorKind classifies a LoadError.
type LoadErrorKind string

// Load error kinds.
const (
	KindNotFound       LoadErrorKind = "not_found"
	KindEmpty          LoadErrorKind = "empty"
	KindMalformed      LoadErrorKind = "malformed"
	KindMissingColumns LoadErrorKind = "missing_columns"
)

// LoadError reports a dataset that could not be loaded. It is fatal for the
// current render cycle.
type LoadError struct {
	Kind    LoadErrorKind
	Source  string
	Columns []string
	Err     error
}

func (e *LoadError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("file not found: %s", e.Source)
	case KindEmpty:
		return fmt.Sprintf("the CSV file is empty: %s", e.Source)
	case KindMissingColumns:
		return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
	default:
		if e.Err != nil {
			return fmt.Sprintf("error loading data from %s: %v", e.Source, e.Err)
		}

		return fmt.Sprintf("error loading data from %s", e.Source)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is a *LoadError of the given kind. An empty
// kind matches any LoadError.
func IsLoadError(err error, kind LoadErrorKind) bool {
	var le *LoadError
	if !errors.As(err, &le) {
		return false
	}

	return kind == "" || le.Kind == kind
}

// Load reads a dataset from src and classifies every row with classifier.
func Load(ctx context.Context, src Source, classifier *band.Classifier) (*Dataset, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	ds, err := Parse(rc, src.Name(), classifier)
	if err != nil {
		return nil, err
	}

	slog.Debug("dataset loaded",
		slog.String("source", ds.Source),
		slog.Int("entities", len(ds.Entities)),
		slog.Int("fallbackBands", len(ds.FallbackBands())),
	)

	return ds, nil
}

// Parse decodes CSV rows from r. name is used in error messages only.
func Parse(r io.Reader, name string, classifier *band.Classifier) (*Dataset, error) {
	if classifier == nil {
		classifier = band.NewClassifier(nil)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Kind: KindEmpty, Source: name}
		}

		return nil, &LoadError{Kind: KindMalformed, Source: name, Err: fmt.Errorf("reading header: %w", err)}
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		index[strings.TrimSpace(h)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return nil, &LoadError{Kind: KindMissingColumns, Source: name, Columns: missing}
	}

	cell := func(rec []string, col string) string {
		return norm.NFKC.String(rec[index[col]])
	}

	ds := &Dataset{Source: name, Order: classifier.Order()}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, &LoadError{Kind: KindMalformed, Source: name, Err: fmt.Errorf("reading row %d: %w", line, err)}
		}

		e := Entity{
			LegalName:            cell(rec, ColumnLegalName),
			EntityType:           strings.TrimSpace(cell(rec, ColumnEntityType)),
			HeadquartersLocation: strings.TrimSpace(cell(rec, ColumnLocation)),
			EmployeeBandRaw:      strings.TrimSpace(cell(rec, ColumnEmployeeBand)),
			EmployeeBandCode:     cell(rec, ColumnBandCode),
			IndustryCode:         cell(rec, ColumnIndustryCode),
		}

		ds.Entities = append(ds.Entities, derive(e, classifier))
	}

	return ds, nil
}
