package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"google.golang.org/grpc"

	api "github.com/oshokin/arming-scheduler/internal/api/grpc/arming"
	"github.com/oshokin/arming-scheduler/internal/api/rest"
	"github.com/oshokin/arming-scheduler/internal/config"
	"github.com/oshokin/arming-scheduler/internal/logger"
	"github.com/oshokin/arming-scheduler/internal/notify"
	"github.com/oshokin/arming-scheduler/internal/repository/inventory"
	"github.com/oshokin/arming-scheduler/internal/repository/panel"
	"github.com/oshokin/arming-scheduler/internal/repository/schedule"
	"github.com/oshokin/arming-scheduler/internal/service/reconciler"
	"github.com/oshokin/arming-scheduler/internal/service/scheduler"
	"github.com/oshokin/arming-scheduler/internal/version"
)

// Options controls the arming-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// HTTPAddress overrides the HTTP API listen address.
	HTTPAddress string
	// GRPCAddress overrides the gRPC control API listen address.
	GRPCAddress string
}

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// mqttDisconnectQuiesce is how long, in milliseconds, MQTT may flush on exit.
const mqttDisconnectQuiesce = 250

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the scheduler, the HTTP API and the gRPC control API, and blocks
// until ctx is cancelled or a server fails.
//
//nolint:funlen // Linear wiring of every component reads best in one place.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	levelKnown := logger.Configure(settings.Log.Format, settings.Log.Level)

	// Named after Configure so the context carries the configured logger.
	ctx = logger.WithName(ctx, "arming-server")

	if !levelKnown {
		logger.Warnf(ctx, "Unknown log level %q, keeping %s", settings.Log.Level, logger.Level())
	}

	defer logger.Sync()

	httpAddress, err := resolveListenAddress(settings.HTTPAddress, opts.HTTPAddress)
	if err != nil {
		return fmt.Errorf("resolve http address: %w", err)
	}

	grpcAddress, err := resolveListenAddress(settings.GRPCAddress, opts.GRPCAddress)
	if err != nil {
		return fmt.Errorf("resolve grpc address: %w", err)
	}

	logger.InfoKV(ctx, "Starting arming server", version.KV()...)

	store, err := schedule.New(settings.ScheduleDB)
	if err != nil {
		return err
	}

	defer func() {
		_ = store.Close()
	}()

	openCtx, cancel := context.WithTimeout(ctx, settings.Timeout)
	defer cancel()

	db, err := inventory.Open(openCtx, settings.Inventory.DSN, settings.Inventory.MaxOpenConns, settings.Inventory.MaxIdleConns)
	if err != nil {
		return err
	}

	defer func() {
		_ = db.Close()
	}()

	gateway := inventory.NewGateway(db, inventory.Options{BuildingsTTL: settings.Inventory.BuildingsTTL})

	cache, closeCache, err := openPanelCache(openCtx, settings.Panel)
	if err != nil {
		return err
	}

	defer closeCache()

	panelState := panel.NewState(cache, settings.Panel.Key)
	if err = panelState.Init(ctx); err != nil {
		logger.ErrorKV(ctx, "Failed to initialize panel state", "error", err)
	}

	dispatcher, closeDispatcher := newDispatcher(ctx, settings)
	defer closeDispatcher()

	engine := reconciler.New(panelState, store, gateway, dispatcher,
		reconciler.WithNotArmedRepeat(settings.NotArmedRepeat),
	)

	loop := scheduler.New(engine, settings.ReconcileInterval)

	handler := rest.NewHandler(panelState, store, gateway, loop, engine, settings.Timeout)

	httpServer := &http.Server{
		Addr:              httpAddress,
		Handler:           rest.NewRouter(handler, settings.CORSOrigins),
		ReadHeaderTimeout: settings.Timeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	lc := net.ListenConfig{}

	grpcListener, err := lc.Listen(ctx, "tcp", grpcAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", grpcAddress, err)
	}

	httpListener, err := lc.Listen(ctx, "tcp", httpAddress)
	if err != nil {
		_ = grpcListener.Close()

		return fmt.Errorf("listen on %s: %w", httpAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterArmingControlServer(grpcServer, api.NewServer(newService(panelState, loop)))

	loop.Start(ctx)

	errs := make(chan error, 2)

	go func() {
		if serveErr := grpcServer.Serve(grpcListener); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			errs <- fmt.Errorf("serve gRPC: %w", serveErr)
		}
	}()

	go func() {
		if serveErr := httpServer.Serve(httpListener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errs <- fmt.Errorf("serve HTTP: %w", serveErr)
		}
	}()

	logger.InfoKV(ctx, "Arming server listening",
		"http_address", httpAddress,
		"grpc_address", grpcAddress,
		"reconcile_interval", settings.ReconcileInterval,
	)

	select {
	case <-ctx.Done():
	case err = <-errs:
		logger.ErrorKV(ctx, "Server failed, shutting down", "error", err)
	}

	logger.Info(ctx, "Shutting down")

	loop.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancelShutdown()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.ErrorKV(ctx, "HTTP server shutdown failed", "error", shutdownErr)
	}

	grpcServer.GracefulStop()

	logger.Info(ctx, "Arming server stopped")

	return err
}

// openPanelCache opens the configured panel flag backend.
func openPanelCache(ctx context.Context, cfg config.PanelConfig) (panel.Cache, func(), error) {
	if cfg.Backend != config.PanelBackendRedis {
		return panel.NewFileCache(cfg.File), func() {}, nil
	}

	client, err := panel.Dial(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}

	return panel.NewRedisCache(client), func() { _ = client.Close() }, nil
}

// newDispatcher builds the ProServer dispatcher plus MQTT when a broker is
// configured. An unreachable broker is logged and skipped.
func newDispatcher(ctx context.Context, settings *config.Config) (notify.Dispatcher, func()) {
	dispatchers := notify.Multi{
		notify.NewProServer(settings.ProServer.Address, settings.ProServer.Tag, settings.ProServer.Timeout),
	}

	if settings.MQTT.Broker == "" {
		return dispatchers, func() {}
	}

	client, err := notify.ConnectMQTT(settings.MQTT, settings.Timeout)
	if err != nil {
		logger.ErrorKV(ctx, "MQTT fan-out disabled", "broker", settings.MQTT.Broker, "error", err)

		return dispatchers, func() {}
	}

	dispatchers = append(dispatchers,
		notify.NewMQTT(client, settings.MQTT.TopicPrefix, settings.MQTT.QoS, settings.ProServer.Timeout),
	)

	return dispatchers, func() { disconnectMQTT(client) }
}

func disconnectMQTT(client mqtt.Client) {
	client.Disconnect(mqttDisconnectQuiesce)
}

// resolveListenAddress returns override when set, otherwise the configured address.
// Both must be host:port (host may be empty to bind all interfaces).
func resolveListenAddress(configAddr, override string) (string, error) {
	address := configAddr
	if override != "" {
		address = override
	}

	if address == "" {
		return "", ErrNoServerAddress
	}

	if _, _, err := net.SplitHostPort(address); err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", address, err)
	}

	return address, nil
}
