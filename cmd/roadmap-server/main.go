package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joelkehle/glp1-roadmap/internal/drugs"
	"github.com/joelkehle/glp1-roadmap/internal/httpapi"
	"github.com/joelkehle/glp1-roadmap/internal/narrative"
	"github.com/joelkehle/glp1-roadmap/internal/observability"
	"github.com/joelkehle/glp1-roadmap/internal/platform/envutil"
	"github.com/joelkehle/glp1-roadmap/internal/platform/logger"
	"github.com/joelkehle/glp1-roadmap/internal/report"
	"github.com/joelkehle/glp1-roadmap/internal/roadmap"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		addr       = flag.String("addr", envutil.String("ROADMAP_ADDR", ":8080"), "Listen address")
		drugDB     = flag.String("drug-db", envutil.String("ROADMAP_DRUG_DB", ""), "Drug profiles: .yaml file or SQLite database (default: embedded)")
		narratives = flag.String("narratives", envutil.String("ROADMAP_NARRATIVE_PATH", ""), "Narrative templates YAML (default: embedded)")
		webDir     = flag.String("web-dir", envutil.String("ROADMAP_WEB_DIR", ""), "Directory with style.css and optional index.html")
		noPDF      = flag.Bool("no-pdf", envutil.Bool("ROADMAP_DISABLE_PDF", false), "Disable PDF rendering")
	)
	flag.Parse()

	lg, err := logger.New(envutil.String("LOG_MODE", "dev"))
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownOTel := observability.InitOTel(ctx, lg, observability.OtelConfig{
		ServiceName: "roadmap-server",
		Environment: envutil.String("ROADMAP_ENV", "dev"),
		Version:     version,
	})

	reg, err := drugs.Open(ctx, *drugDB)
	if err != nil {
		lg.Fatal("load drug registry", "path", *drugDB, "error", err)
	}
	table, err := narrative.Open(*narratives)
	if err != nil {
		lg.Fatal("load narrative templates", "path", *narratives, "error", err)
	}
	styleCSS, err := report.LoadStyle(*webDir)
	if err != nil {
		lg.Fatal("load report style", "web_dir", *webDir, "error", err)
	}

	cfg := httpapi.Config{
		Engine:   roadmap.NewEngine(reg, table),
		StyleCSS: styleCSS,
		WebDir:   *webDir,
		Logger:   lg,
	}
	if !*noPDF {
		cfg.PDFRenderer = report.NewChromiumPDFRenderer(*webDir)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.NewServer(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		lg.Fatal("listen", "addr", *addr, "error", err)
	}
	lg.Info("roadmap-server listening", "addr", ln.Addr().String(), "drugs", reg.Types(), "pdf", !*noPDF)
	if err := serve(ctx, srv, ln, lg, shutdownOTel); err != nil {
		lg.Error("server stopped", "error", err)
	}
}

// serve runs srv on ln until ctx is cancelled or the server fails. It
// returns only after in-flight requests have drained and flush has run.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, lg *logger.Logger, flush func(context.Context) error) error {
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case <-ctx.Done():
		lg.Info("shutting down")
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", "error", err)
	}
	if err := flush(shutdownCtx); err != nil {
		lg.Error("otel shutdown", "error", err)
	}
	return runErr
}
