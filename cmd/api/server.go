package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"brokerlink/internal/shared/config"
	"brokerlink/internal/shared/middleware"
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Handler         http.Handler
	Addr            string
	TLSEnabled      bool
	CertPath        string
	KeyPath         string
	RedirectHTTP    bool
	AllowedHosts    []string
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// NewServerConfigFromConfig creates ServerConfig from application config.
func NewServerConfigFromConfig(handler http.Handler, cfg *config.Config) ServerConfig {
	return ServerConfig{
		Handler:      handler,
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		TLSEnabled:   cfg.TLS.Enabled,
		CertPath:     cfg.TLS.CertPath,
		KeyPath:      cfg.TLS.KeyPath,
		RedirectHTTP: cfg.TLS.RedirectHTTP,
		AllowedHosts: cfg.Server.AllowedHosts,
		// Leaves room to write the response after the request deadline.
		WriteTimeout:    cfg.Server.RequestTimeout + 15*time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Servers is the API server plus the optional HTTP to HTTPS redirector.
type Servers struct {
	cfg      ServerConfig
	api      *http.Server
	redirect *http.Server
}

func NewServers(scfg ServerConfig) *Servers {
	s := &Servers{
		cfg: scfg,
		api: &http.Server{
			Addr:         scfg.Addr,
			Handler:      scfg.Handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: scfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
	}
	if scfg.TLSEnabled && scfg.RedirectHTTP {
		s.redirect = &http.Server{
			Addr:         ":80",
			Handler:      redirectHandler(scfg.AllowedHosts),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
	}
	return s
}

// Run serves until ctx is cancelled or a listener fails, then drains every
// server within the shutdown timeout.
func (s *Servers) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if s.cfg.TLSEnabled {
			log.Info().Str("addr", s.api.Addr).Msg("HTTPS server starting")
			err = s.api.ListenAndServeTLS(s.cfg.CertPath, s.cfg.KeyPath)
		} else {
			log.Info().Str("addr", s.api.Addr).Msg("HTTP server starting")
			err = s.api.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	if s.redirect != nil {
		g.Go(func() error {
			log.Info().Str("addr", s.redirect.Addr).Msg("HTTP redirect server starting")
			if err := s.redirect.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("redirect server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Server shutting down...")
		s.shutdown()
		return nil
	})

	err := g.Wait()
	log.Info().Msg("Server stopped")
	return err
}

func (s *Servers) shutdown() {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if s.redirect != nil {
		if err := s.redirect.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Error shutting down HTTP redirect server")
		}
	}
	if err := s.api.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down main server")
	}
}

// redirectHandler sends every request to the HTTPS origin of an allowed host.
func redirectHandler(allowedHosts []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Header.Get("X-Forwarded-Host")
		if host == "" {
			host = r.Host
		}

		if !middleware.IsHostAllowed(host, allowedHosts) {
			http.Error(w, "Invalid host", http.StatusBadRequest)
			return
		}

		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
			if ip := net.ParseIP(h); ip != nil && ip.To4() == nil {
				host = "[" + h + "]"
			}
		}

		http.Redirect(w, r, "https://"+host+r.RequestURI, http.StatusMovedPermanently)
	})
}
