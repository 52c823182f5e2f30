package apitest

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Start serves the API on addr until SIGINT or SIGTERM, then shuts down
// gracefully.
func (s *Server) Start(addr string) error {
	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Str("base_path", BasePath).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, failed := <-errCh:
		if failed {
			return err
		}
		return nil
	case <-sigChan:
	}
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// SeedDemo fills the server with an admin, a user, two providers and a
// few cars, and returns the two accounts.
func (s *Server) SeedDemo(password string) (admin, user *User) {
	admin = s.SeedUser("Admin", "admin@carrent.dev", password, "admin")
	user = s.SeedUser("Demo User", "user@carrent.dev", password, "user")

	downtown := s.SeedProvider("Downtown Rentals", map[string]any{
		"street":     "99 Sukhumvit Rd",
		"city":       "Bangkok",
		"postalCode": "10110",
		"country":    "Thailand",
	})
	airport := s.SeedProvider("Airport Cars", "999 Bang Na-Trat Rd, Samut Prakan")

	s.SeedCar(downtown.ID, "Toyota Camry", "Sedan", 1500)
	s.SeedCar(downtown.ID, "Honda Jazz", "Hatchback", 900)
	s.SeedCar(airport.ID, "Toyota Fortuner", "SUV", 2200)
	s.SeedCar(airport.ID, "Nissan Almera", "Sedan", 1000)
	return admin, user
}
