package cafesuitecli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phillip-england/cafesuite/internal/cafeapi"
	"github.com/phillip-england/cafesuite/internal/clientapp"
	"github.com/phillip-england/cafesuite/internal/domain"
	"github.com/phillip-england/cafesuite/internal/export"
)

// apiClient talks to the running API named by API_BASE_URL.
func apiClient() (*cafeapi.Client, error) {
	if err := loadEnv(); err != nil {
		return nil, err
	}
	cfg := clientapp.DefaultConfigFromEnv()
	return cafeapi.New(cfg.APIBaseURL, &http.Client{Timeout: cfg.APITimeout}), nil
}

func runExport(args []string, out io.Writer) error {
	if len(args) < 1 || (args[0] != "cafes" && args[0] != "employees") {
		return fmt.Errorf("%w: export cafes|employees --out FILE", ErrUsage)
	}
	kind := args[0]

	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outPath := fs.String("out", "", "output file")
	format := fs.String("format", "", "xlsx or pdf (default from the --out extension)")
	location := fs.String("location", "", "only cafés whose location contains this text")
	cafeID := fs.String("cafe", "", "only employees of this café id")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *outPath == "" {
		return fmt.Errorf("%w: --out is required", ErrUsage)
	}
	if *format == "" {
		*format = strings.TrimPrefix(strings.ToLower(filepath.Ext(*outPath)), ".")
	}
	if *format != "xlsx" && *format != "pdf" {
		return fmt.Errorf("%w: unsupported format %q", ErrUsage, *format)
	}

	api, err := apiClient()
	if err != nil {
		return err
	}
	ctx := context.Background()

	var sheet export.Sheet
	switch kind {
	case "cafes":
		cafes, err := api.ListCafes(ctx, *location)
		if err != nil {
			return fmt.Errorf("list cafes: %w", err)
		}
		sheet = export.CafeSheet(cafes)
	default:
		employees, err := api.ListEmployees(ctx, *cafeID)
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}
		sheet = export.EmployeeSheet(employees)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", *outPath, err)
	}
	if *format == "pdf" {
		err = export.WritePDF(f, sheet, time.Now())
	} else {
		err = export.WriteXLSX(f, sheet)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", *outPath, err)
	}
	fmt.Fprintf(out, "wrote %d %s to %s\n", len(sheet.Rows), kind, *outPath)
	return nil
}

func runImport(args []string, out io.Writer) error {
	if len(args) < 1 || args[0] != "employees" {
		return fmt.Errorf("%w: import employees --file FILE", ErrUsage)
	}
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "roster spreadsheet (.xlsx or .xls)")
	cafeID := fs.String("cafe", "", "café id for rows without a cafe column")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *file == "" {
		return fmt.Errorf("%w: --file is required", ErrUsage)
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open roster: %w", err)
	}
	rows, rowErrs, err := export.ReadRoster(f, *file)
	_ = f.Close()
	if err != nil {
		return err
	}

	api, err := apiClient()
	if err != nil {
		return err
	}
	ctx := context.Background()
	cafes, err := api.ListCafes(ctx, "")
	if err != nil {
		return fmt.Errorf("list cafes: %w", err)
	}

	created := 0
	for _, row := range rows {
		in := row.Input
		if row.Cafe != "" {
			id, ok := resolveCafe(cafes, row.Cafe)
			if !ok {
				rowErrs = append(rowErrs, export.RowError{Line: row.Line, Message: fmt.Sprintf("unknown café %q", row.Cafe)})
				continue
			}
			in.CafeID = id
		} else if in.CafeID == "" {
			in.CafeID = *cafeID
		}
		if _, err := api.CreateEmployee(ctx, in); err != nil {
			rowErrs = append(rowErrs, export.RowError{Line: row.Line, Message: cafeapi.Message(err, err.Error())})
			continue
		}
		created++
	}

	fmt.Fprintf(out, "imported %d employees\n", created)
	for _, rowErr := range rowErrs {
		fmt.Fprintf(out, "  skipped %s\n", rowErr.Error())
	}
	if created == 0 && len(rowErrs) > 0 {
		return errors.New("no employees imported")
	}
	return nil
}

// resolveCafe accepts a café id or a case-insensitive café name.
func resolveCafe(cafes []domain.Cafe, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	for _, cafe := range cafes {
		if cafe.ID == ref {
			return cafe.ID, true
		}
	}
	for _, cafe := range cafes {
		if strings.EqualFold(cafe.Name, ref) {
			return cafe.ID, true
		}
	}
	return "", false
}

func runSnapshot(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	outPath := fs.String("out", "", "write a snapshot of the running API to this file")
	inPath := fs.String("in", "", "summarise an existing snapshot file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	switch {
	case *inPath != "":
		f, err := os.Open(*inPath)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()
		snap, err := export.ReadSnapshot(f)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "snapshot taken %s: %d cafés, %d employees\n", snap.TakenAt.Format(time.RFC3339), len(snap.Cafes), len(snap.Employees))
		return nil
	case *outPath != "":
		api, err := apiClient()
		if err != nil {
			return err
		}
		ctx := context.Background()
		cafes, err := api.ListCafes(ctx, "")
		if err != nil {
			return fmt.Errorf("list cafes: %w", err)
		}
		employees, err := api.ListEmployees(ctx, "")
		if err != nil {
			return fmt.Errorf("list employees: %w", err)
		}
		f, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", *outPath, err)
		}
		err = export.WriteSnapshot(f, export.Snapshot{TakenAt: time.Now().UTC(), Cafes: cafes, Employees: employees})
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote snapshot of %d cafés and %d employees to %s\n", len(cafes), len(employees), *outPath)
		return nil
	default:
		return fmt.Errorf("%w: snapshot --out FILE or --in FILE", ErrUsage)
	}
}
