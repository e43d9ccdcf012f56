package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/application/fulfillment"
	appInventory "github.com/Zhima-Mochi/medishop/internal/application/inventory"
	appPayment "github.com/Zhima-Mochi/medishop/internal/application/payment"
	appPrescription "github.com/Zhima-Mochi/medishop/internal/application/prescription"
	"github.com/Zhima-Mochi/medishop/internal/config"
	"github.com/Zhima-Mochi/medishop/internal/domain/identity"
	"github.com/Zhima-Mochi/medishop/internal/domain/inventory"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/memory"
	infranotification "github.com/Zhima-Mochi/medishop/internal/infrastructure/notification"
	infraobs "github.com/Zhima-Mochi/medishop/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/medishop/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/medishop/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/medishop/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, config.ServiceVersion, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			systemLogger.Error("tracer_shutdown_error", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	counters, histograms := prometrics.Standard(prometrics.New(reg, "", ""))
	tel := infraobs.New(infraobs.Backends{
		Tracer:     oteltrace.New(nil, cfg.ServiceName),
		Logger:     zaplogger.New(baseLogger),
		Counters:   counters,
		Histograms: histograms,
	})

	// In-memory collaborators
	ledger := memory.NewInventoryLedger()
	directory := memory.NewDirectory()
	auditLog := memory.NewAuditLog(tel.Logger())
	inbox := memory.NewInbox()
	bus := outbox.NewBus(tel.Logger())
	notifier := infranotification.NewService(bus, tel.Logger())

	senders := []workerpresentation.NamedSender{{Name: "inbox", Sender: inbox}}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSender := infranotification.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = kafkaSender.Close() }()
		senders = append(senders, workerpresentation.NamedSender{Name: "kafka", Sender: kafkaSender})
	}
	workerpresentation.NewNotificationWorker(bus, tel, senders...).Start()
	workerpresentation.NewOrderEventLogger(bus, tel.Logger()).Start()

	gate := appPrescription.NewGate(memory.NewPrescriptionRepository(), notifier, auditLog, tel,
		appPrescription.WithValidity(cfg.PrescriptionValidity),
	)
	backend, err := appPayment.NewSimulatedBackend(cfg.PaymentSuccessRate, 0)
	if err != nil {
		return err
	}
	gateway := appPayment.NewGateway(
		backend,
		memory.NewTransactionLog(),
		tel,
		appPayment.WithGatewayID(cfg.GatewayID),
		appPayment.WithMethods(cfg.PaymentMethods...),
		appPayment.WithTimeout(cfg.PaymentTimeout),
	)
	inventoryService := appInventory.NewService(ledger, auditLog, tel)
	coordinator := fulfillment.New(ledger, gate, gateway, memory.NewOrderRepository(), notifier, auditLog, tel,
		fulfillment.WithEvents(bus),
		fulfillment.WithLeadTime(cfg.OrderLeadTime),
	)

	if cfg.SeedCatalog {
		if err := seed(ctx, inventoryService, directory); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	handler := httppresentation.NewHandler(httppresentation.Deps{
		Orders:        coordinator,
		Inventory:     inventoryService,
		Prescriptions: gate,
		Payments:      gateway,
		Directory:     directory,
		Outbox:        bus,
		Inbox:         inbox,
		Audit:         auditLog,
	}, tel)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		systemLogger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		systemLogger.Info("http_server_stopped")
	}

	// Deliver whatever is still queued before exiting.
	if n, err := bus.Drain(shutdownCtx); err != nil {
		systemLogger.Warn("final_drain_incomplete", zap.Int("delivered", n), zap.Error(err))
	}
	return nil
}

// seed registers the demo catalogue and users.
func seed(ctx context.Context, inv *appInventory.Service, dir *memory.Directory) error {
	meds := []inventory.Medicine{
		{ID: "MED01", Name: "Paracetamol", Description: "Pain reliever", Category: "Analgesic", Price: decimal.RequireFromString("5.00"), Stock: 100},
		{ID: "MED02", Name: "Amoxicillin", Description: "Antibiotic", Category: "Antibiotic", Price: decimal.RequireFromString("15.50"), Stock: 50, RequiresPrescription: true},
	}
	for _, m := range meds {
		if err := inv.Register(ctx, m); err != nil {
			return err
		}
	}

	if err := dir.AddCustomer(identity.Customer{
		User:            identity.User{ID: "CUST001", Name: "Alice Wonderland", Email: "alice@example.com", Contact: "123-456-7890"},
		ShippingAddress: "42 Rabbit Hole Lane",
	}); err != nil {
		return err
	}
	if err := dir.AddPractitioner(identity.Practitioner{
		User:           identity.User{ID: "DOC001", Name: "Bob The Healer", Email: "bob@clinic.com", Contact: "987-654-3210"},
		LicenseNumber:  "LIC987",
		Specialization: "General Medicine",
	}); err != nil {
		return err
	}

	zap.L().Info("catalog_seeded", zap.Int("medicines", len(meds)))
	return nil
}
