// Command radcam-manager bridges an ArduPilot autopilot's camera-actuator
// parameters to an HTTP control surface: it maintains the MAVLink
// connection, caches the parameter table, applies atomic servo/mount
// parameter group updates and keeps the generated Lua focus/zoom
// correlation script in sync with each camera's calibration.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bluerobotics/radcam-manager/internal/actuators"
	"github.com/bluerobotics/radcam-manager/internal/api"
	"github.com/bluerobotics/radcam-manager/internal/logging"
	"github.com/bluerobotics/radcam-manager/internal/mavlink"
	"github.com/bluerobotics/radcam-manager/internal/script"
	"github.com/bluerobotics/radcam-manager/internal/settings"
)

var (
	webServer           = flag.String("web-server", "0.0.0.0:6440", "address the control HTTP server listens on")
	mavlinkConnString   = flag.String("mavlink-connection-string", "udpin:0.0.0.0:14550", "MAVLink endpoint address (udpin:/udpout:/tcp:/serial:)")
	mavlinkSystemID     = flag.Uint("mavlink-system-id", 1, "MAVLink system ID this manager presents as")
	mavlinkComponentID  = flag.Uint("mavlink-component-id", 191, "MAVLink component ID this manager presents as")
	scriptsFile         = flag.String("autopilot-scripts-file", "radcam.lua", "path the generated Lua control script is written to")
	settingsFile        = flag.String("settings-file", "radcam-settings.json", "path to the persisted camera settings file")
	logPath             = flag.String("log-path", "", "directory log files are written to (disabled if empty)")
	verbose             = flag.Bool("verbose", false, "enable debug-level logging")
	enableTraceLevelLog = flag.Bool("enable-tracing-level-log-file", false, "additionally write a trace-level log file")
	defaultAPIVersion   = flag.Uint("default-api-version", 1, "API version reported by /server_metadata")
	reset               = flag.Bool("reset", false, "wipe the persisted settings file and start from defaults")
)

func main() {
	flag.Parse()

	logger, err := logging.New(logging.Options{
		LogPath:              *logPath,
		Verbose:              *verbose,
		EnableTraceLevelFile: *enableTraceLevelLog,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.WithField("component", "radcam-manager")

	if err := run(log); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(log *logrus.Entry) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *reset {
		if err := os.Remove(*settingsFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("resetting settings file: %w", err)
		}
		log.Infof("removed settings file %q, starting from defaults", *settingsFile)
	}

	store, err := settings.Open(*settingsFile, log.WithField("module", "settings"))
	if err != nil {
		return fmt.Errorf("opening settings store: %w", err)
	}
	if *reset {
		// Open falls back to the newest backup when the file is missing, so
		// the loaded records are cleared here as well.
		store.Data().Actuators = settings.NewData().Actuators
		if err := store.Save(); err != nil {
			return fmt.Errorf("resetting settings file: %w", err)
		}
	}

	generator := script.NewGenerator(*scriptsFile, log.WithField("module", "script"))

	log.Infof("connecting to autopilot at %s", *mavlinkConnString)
	engine, err := mavlink.NewEngine(ctx, *mavlinkConnString, uint8(*mavlinkSystemID), uint8(*mavlinkComponentID), log.WithField("module", "mavlink"))
	if err != nil {
		return fmt.Errorf("connecting to autopilot: %w", err)
	}
	defer engine.Close()

	manager := actuators.NewManager(engine, store, generator, nil, log.WithField("module", "actuators"))

	for id := range store.All() {
		if _, err := manager.ExportLuaScript(ctx, id, false); err != nil {
			log.Warnf("failed exporting lua script for camera %s at startup: %v", id, err)
		}
	}

	handler := api.NewHandler(manager, nil, uint8(*defaultAPIVersion), log.WithField("module", "api"))
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:    *webServer,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("control server listening on %s", *webServer)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			cancel()
			return fmt.Errorf("control server: %w", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("control server shutdown error: %v", err)
	}

	log.Info("shutdown complete")
	return nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "radcam-manager maintains camera actuator parameters on an ArduPilot autopilot.\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		flag.PrintDefaults()
	}
}
