package httpservice

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync/atomic"
	"time"

	"github.com/arkade-os/relayd/internal/config"
	interfaces "github.com/arkade-os/relayd/internal/interface"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const readHeaderTimeout = 10 * time.Second

type service struct {
	version       string
	config        Config
	appConfig     *config.Config
	server        *http.Server
	adminServer   *http.Server
	appSvcStarted atomic.Bool
}

func NewService(
	version string, svcConfig Config, appConfig *config.Config,
) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	return &service{
		version:   version,
		config:    svcConfig,
		appConfig: appConfig,
	}, nil
}

func (s *service) Start() error {
	if err := s.startAppServices(); err != nil {
		return err
	}
	if err := s.newServer(); err != nil {
		return err
	}

	go s.listenAndServe(s.server)
	log.Infof("started listening at %s", s.config.address())

	if s.adminServer != nil {
		go s.listenAndServe(s.adminServer)
		log.Infof("started admin listening at %s", s.config.adminAddress())
	}
	return nil
}

func (s *service) Stop() {
	if s.server != nil {
		_ = s.server.Close()
	}
	if s.adminServer != nil {
		_ = s.adminServer.Close()
	}

	if s.appSvcStarted.CompareAndSwap(true, false) {
		appSvc, _ := s.appConfig.AppService()
		if appSvc != nil {
			appSvc.Stop()
		}
	}
	log.Info("shutdown service")
}

func (s *service) startAppServices() error {
	if !s.appSvcStarted.CompareAndSwap(false, true) {
		return nil
	}

	appSvc, err := s.appConfig.AppService()
	if err != nil {
		s.appSvcStarted.Store(false)
		return fmt.Errorf("failed to create app service: %w", err)
	}
	if err := appSvc.Start(); err != nil {
		s.appSvcStarted.Store(false)
		return fmt.Errorf("failed to start app service: %w", err)
	}
	log.Info("started app service")
	return nil
}

func (s *service) newServer() error {
	appSvc, err := s.appConfig.AppService()
	if err != nil {
		return err
	}
	adminSvc, err := s.appConfig.AdminService()
	if err != nil {
		return err
	}

	appHandler := newHandler(appSvc, s.config.heartbeat())
	adminHandler := newAdminHandler(adminSvc)

	router := newRouter()
	registerPublicRoutes(router, appHandler)

	adminRouter := router
	if s.config.hasAdminPort() {
		adminRouter = newRouter()
		s.adminServer = &http.Server{
			Addr:              s.config.adminAddress(),
			Handler:           adminRouter,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}
	registerAdminRoutes(adminRouter, adminHandler)
	if s.config.EnablePprof {
		registerPprofRoutes(adminRouter)
	}

	s.server = &http.Server{
		Addr:              s.config.address(),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return nil
}

func (s *service) listenAndServe(server *http.Server) {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Errorf("server at %s stopped", server.Addr)
	}
}

func registerPprofRoutes(router *mux.Router) {
	router.HandleFunc("/debug/pprof/", pprof.Index)
	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)
	router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
}
