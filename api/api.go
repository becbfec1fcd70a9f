package api

import (
	"net"
	"net/http"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/the-lightning-land/wifid/adapter"
)

// Path of the websocket endpoint controlling the adapter.
const WifiManagerPath = "/WifiManager"

type Config struct {
	Adapter *adapter.Adapter
	WebRoot string
	// Registerer and Gatherer default to the prometheus default registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	Log        Logger
}

type Api struct {
	adapter    *adapter.Adapter
	dispatcher *Dispatcher
	metrics    *metrics
	router     *mux.Router
	log        Logger
}

func New(config *Config) *Api {
	api := &Api{
		adapter: config.Adapter,
		router:  mux.NewRouter(),
	}

	if config.Log != nil {
		api.log = config.Log
	} else {
		api.log = noopLogger{}
	}

	registerer := config.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	api.metrics = newMetrics(registerer)
	api.dispatcher = NewDispatcher(Handlers(config.Adapter), api.metrics, api.log)

	api.router.Handle(WifiManagerPath, api.handleWifiManager()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/status", api.handleGetStatus()).Methods(http.MethodGet)
	api.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	if config.WebRoot != "" {
		api.router.PathPrefix("/").Handler(http.FileServer(http.Dir(config.WebRoot)))
	}

	return api
}

func (a *Api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *Api) Serve(l net.Listener) error {
	err := http.Serve(l, a.router)
	if err != nil {
		return errors.Errorf("Unable to serve api: %v", err)
	}

	return nil
}
