package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/the-lightning-land/wifid/adapter"
	"github.com/the-lightning-land/wifid/api"
	"github.com/the-lightning-land/wifid/certs"
	"github.com/the-lightning-land/wifid/connectivity"
	"github.com/the-lightning-land/wifid/network"
	"github.com/the-lightning-land/wifid/wifidb"

	// Blank import to set up profiling HTTP handlers.
	_ "net/http/pprof"
)

var (
	// Commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// Version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
	// Date stores the date of this build. This should be set using -ldflags during compilation.
	Date string
)

// wifidMain is the true entry point for wifid. This is required since defers
// created in the top-level scope of a main method aren't executed if os.Exit() is called.
func wifidMain() error {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	// Load CLI configuration and defaults
	cfg, err := loadConfig()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Info("Setting debug mode.")
	}

	log.Debug("Loaded config.")

	log.Infof("Version %s (commit %s)", Version, Commit)
	log.Infof("Built on %s", Date)

	if cfg.ShowVersion {
		return nil
	}

	if cfg.Profiling != "" {
		go func() {
			log.Infof("Starting profiling server on %v", cfg.Profiling)
			// All handlers are registered on DefaultServeMux through the import of pprof
			err := http.ListenAndServe(cfg.Profiling, nil)
			if err != nil {
				log.Errorf("Could not run profiler: %v", err)
			}
		}()
	}

	ssidField, err := network.ParseSsidField(cfg.SsidField)
	if err != nil {
		return errors.Wrap(err, "invalid --ssidfield")
	}

	if ssidField == network.SsidFromBssid {
		log.Warn("Rendering the bssid field as ssid into the supplicant configuration.")
	}

	// wifi.db persistently stores imported certificates
	db, err := wifidb.Open(cfg.DataDir)
	if err != nil {
		return errors.Errorf("Could not open wifi.db: %v", err)
	}

	log.Infof("Opened %v", db.Path())

	defer func() {
		err := db.Close()
		if err != nil {
			log.Errorf("Could not close wifi.db: %v", err)
		} else {
			log.Info("Closed wifi.db.")
		}
	}()

	// The link negotiation backend of the wireless interface and the runner
	// for service, DHCP and link commands
	var n network.Network
	var runner network.Runner

	switch cfg.Net {
	case "wpa":
		n = network.NewWpaNetwork(&network.Config{
			Interface:   cfg.Interface,
			ScanTimeout: cfg.ScanTimeout,
			Logger:      log.New().WithField("system", "network"),
		})

		runner = &network.ExecRunner{
			Log: log.New().WithField("system", "exec"),
		}

		log.Infof("Created wpa_supplicant network on %v.", cfg.Interface)
	case "mock":
		n = network.NewMockNetwork(log.New().WithField("system", "network"))

		runner = &network.NoopRunner{
			Log: log.New().WithField("system", "exec"),
		}

		log.Info("Created a mock network.")
	default:
		return errors.Errorf("Unknown networking type %v", cfg.Net)
	}

	err = n.Start()
	if err != nil {
		return errors.Errorf("Could not start network: %v", err)
	}

	defer func() {
		err := n.Stop()
		if err != nil {
			log.Errorf("Could not properly shut down network: %v", err)
		} else {
			log.Info("Stopped network.")
		}
	}()

	dhcp := &network.Dhcpcd{
		Runner:  runner,
		Command: strings.Fields(cfg.Dhcp),
	}

	profiles := network.NewProfileStore(cfg.WpaConfig, ssidField)

	log.Infof("Writing supplicant profiles to %v", profiles.Path())

	pipeline := network.NewPipeline(&network.ActivationConfig{
		Profiles: profiles,
		Services: &network.ServiceControl{
			Runner:       runner,
			StopCommand:  strings.Fields(cfg.ServiceStop),
			StartCommand: strings.Fields(cfg.ServiceStart),
		},
		Dhcp:        dhcp,
		Service:     cfg.Service,
		Interface:   cfg.Interface,
		SettleDelay: cfg.Settle,
		Logger:      log.New().WithField("system", "activation"),
	})

	// central controller for everything done to the adapter
	a := adapter.New(&adapter.Config{
		Network:  n,
		Profiles: profiles,
		Pipeline: pipeline,
		Link: &network.Link{
			Runner:     runner,
			Interface:  cfg.Interface,
			Ip:         cfg.Ip,
			Iw:         cfg.Iw,
			ResolvConf: cfg.ResolvConf,
			Dhcp:       dhcp,
		},
		Certs: certs.New(&certs.Config{
			Store:  db,
			Logger: log.New().WithField("system", "certs"),
		}),
		Status:       connectivity.NewReporter(),
		PollInterval: cfg.PollInterval,
		Logger:       log.New().WithField("system", "adapter"),
	})

	log.Info("Created adapter.")

	server := api.New(&api.Config{
		Adapter: a,
		WebRoot: cfg.WebRoot,
		Log:     log.New().WithField("system", "api"),
	})

	log.Info("Created API.")

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return errors.Errorf("Could not listen on %v: %v", cfg.Listen, err)
	}

	go func() {
		log.Infof("Serving on %v", lis.Addr())

		err := server.Serve(lis)
		if err != nil {
			log.Errorf("Could not serve api: %v", err)
		}
	}()

	defer func() {
		err := lis.Close()
		if err != nil {
			log.Errorf("Could not close listener: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals correctly
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		sig := <-signals
		log.Info(sig)
		log.Info("Received an interrupt, stopping wifid...")
		cancel()
	}()

	// blocks until interrupted
	err = a.Run(ctx)
	if err != nil {
		return errors.Errorf("Failed running adapter: %v", err)
	}

	return nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := wifidMain(); err != nil {
		log.WithError(err).Println("Failed running wifid.")
		os.Exit(1)
	}
}
