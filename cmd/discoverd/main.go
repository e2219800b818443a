// discoverd runs a single LAN peer-discovery instance headless, as a
// systemd-managed service.
//
// Usage:
//
//	discoverd --config /etc/lanpeer/discover.yaml
//	discoverd --port 12345 --broadcast 255.255.255.255
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/lanpeer/discover/config"
	"github.com/lanpeer/discover/discover"
	"github.com/lanpeer/discover/node"
)

var Version = "dev"

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to config file")
	port := flag.Int("port", 0, "listen port (0 to use config default)")
	address := flag.String("address", "", "bind address")
	broadcast := flag.String("broadcast", "", "broadcast address")
	multicast := flag.String("multicast", "", "multicast group address")
	unicast := flag.String("unicast", "", "comma-separated unicast peer list")
	client := flag.Bool("client", false, "run in client mode (listen only, no hello emission)")
	logLevel := flag.String("log-level", "", "log level (debug/info/warn/error)")
	showVersion := flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("discoverd %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	cfg.ApplyEnvOverrides()

	if *port > 0 {
		cfg.Port = *port
	}
	if *address != "" {
		cfg.Address = *address
	}
	if *broadcast != "" {
		cfg.Broadcast = *broadcast
	}
	if *multicast != "" {
		cfg.Multicast = *multicast
	}
	if *unicast != "" {
		cfg.Unicast = *unicast
	}
	if *client {
		cfg.Client = true
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "CONFIG ERROR: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	inst, err := discover.Create(cfg)
	if err != nil {
		slog.Error("failed to create instance", "error", err)
		os.Exit(1)
	}
	wireLogging(inst)

	inst.Start()
	slog.Info("discoverd started",
		"version", Version,
		"pid", inst.PID(),
		"iid", inst.IID(),
		"hostname", inst.Hostname(),
		"port", cfg.Port,
		"client", cfg.Client,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	slog.Info("shutdown signal received", "signal", sig)
	if err := inst.Release(); err != nil {
		slog.Warn("error during release", "error", err)
	}
	slog.Info("discoverd stopped")
}

// wireLogging attaches structured-logging observers to every topic except
// helloEmitted and check.
func wireLogging(inst *discover.Instance) {
	inst.OnAdded(func(n node.Node) {
		slog.Info("peer added", "pid", n.PID, "iid", n.IID, "host", n.Hostname, "address", n.Address)
	})
	inst.OnRemoved(func(n node.Node) {
		slog.Info("peer removed", "pid", n.PID, "iid", n.IID, "host", n.Hostname)
	})
	inst.OnMaster(func(n node.Node) {
		slog.Info("peer claimed master", "pid", n.PID, "iid", n.IID, "weight", n.Data.Weight)
	})
	inst.OnPromotion(func() {
		slog.Info("promoted to master")
	})
	inst.OnDemotion(func() {
		slog.Info("demoted from master")
	})
	inst.OnError(func(msg string) {
		slog.Error("transport error", "message", msg)
	})
	inst.OnHelloReceived(func(n node.Node) {
		slog.Debug("hello received", "pid", n.PID, "iid", n.IID)
	})
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
