package cafesuitecli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/phillip-england/cafesuite/internal/apiapp"
	"github.com/phillip-england/cafesuite/internal/clientapp"
	"github.com/phillip-england/cafesuite/internal/envutil"
	"github.com/phillip-england/cafesuite/internal/logging"
	"github.com/phillip-england/cafesuite/internal/store"
)

var ErrUsage = errors.New("usage")

const defaultEnvFile = ".env"

func Execute(args []string) error {
	return execute(args, os.Stdout)
}

func execute(args []string, out io.Writer) error {
	if len(args) < 1 {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:], out)
	case "run":
		return runCommand(args[1:])
	case "seed":
		return runSeed(args[1:], out)
	case "export":
		return runExport(args[1:], out)
	case "import":
		return runImport(args[1:], out)
	case "snapshot":
		return runSnapshot(args[1:], out)
	case "help", "-h", "--help":
		PrintUsage(out)
		return nil
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: cafesuite <setup|run|seed|export|import|snapshot> [...]", ErrUsage)
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: cafesuite setup [--env-file .env] [--database-dsn DSN] [--force]")
	fmt.Fprintln(w, "       cafesuite run api|client|all")
	fmt.Fprintln(w, "       cafesuite seed")
	fmt.Fprintln(w, "       cafesuite export cafes|employees --out FILE [--format xlsx|pdf] [--location L] [--cafe ID]")
	fmt.Fprintln(w, "       cafesuite import employees --file FILE [--cafe ID]")
	fmt.Fprintln(w, "       cafesuite snapshot --out FILE.json.xz")
	fmt.Fprintln(w, "       cafesuite snapshot --in FILE.json.xz")
}

func runSetup(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	envPath := fs.String("env-file", defaultEnvFile, "path to .env file")
	dsn := fs.String("database-dsn", "", "PostgreSQL DSN; empty keeps records in memory")
	apiAddr := fs.String("api-addr", ":8080", "API listen address")
	clientAddr := fs.String("client-addr", ":3000", "console listen address")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	values := map[string]string{
		"API_ADDR":      *apiAddr,
		"CLIENT_ADDR":   *clientAddr,
		"API_BASE_URL":  "http://localhost" + *apiAddr,
		"API_TIMEOUT":   "8s",
		"DATABASE_DSN":  *dsn,
		"UPLOAD_DIR":    "uploads",
		"CORS_ORIGINS":  "http://localhost" + *clientAddr,
		"SEED_ON_START": "false",
		"LOG_LEVEL":     "info",
	}

	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", *envPath)
	return nil
}

func loadEnv() error {
	if err := envutil.LoadDotEnv(defaultEnvFile); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func runCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: missing run target: api | client | all", ErrUsage)
	}

	if err := loadEnv(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch args[0] {
	case "api":
		return runAPI(ctx)
	case "client":
		return runClient(ctx)
	case "all":
		return runAll(ctx)
	default:
		return fmt.Errorf("%w: unknown run target %q", ErrUsage, args[0])
	}
}

func runAPI(ctx context.Context) error {
	cfg := apiapp.DefaultConfigFromEnv()
	if err := ensureDirs(filepath.Join(cfg.UploadDir, "cafes")); err != nil {
		return err
	}
	if err := apiapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runClient(ctx context.Context) error {
	cfg := clientapp.DefaultConfigFromEnv()
	if err := clientapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runAll(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() { errCh <- runAPI(ctx) }()
	go func() {
		time.Sleep(500 * time.Millisecond)
		errCh <- runClient(ctx)
	}()

	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

// runSeed fills the configured database with sample records. The in-memory
// store lives inside the API process, so it is seeded with SEED_ON_START.
func runSeed(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if err := loadEnv(); err != nil {
		return err
	}
	cfg := apiapp.DefaultConfigFromEnv()
	if cfg.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is not set; start the API with SEED_ON_START=true to seed the in-memory store")
	}

	ctx := context.Background()
	st, err := apiapp.OpenStore(ctx, cfg, logging.New("cli", cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	result, err := store.Seed(ctx, st)
	if err != nil {
		return err
	}
	if result.Skipped {
		fmt.Fprintln(out, "database already has cafés; nothing seeded")
		return nil
	}
	fmt.Fprintf(out, "seeded %d cafés and %d employees\n", result.Cafes, result.Employees)
	return nil
}

func ensureDirs(paths ...string) error {
	for _, p := range paths {
		if p == "." || p == "" {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", p, err)
		}
	}
	return nil
}
