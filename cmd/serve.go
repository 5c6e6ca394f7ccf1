package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vectoratlas/atlas-cli/internal/geojson"
	"github.com/vectoratlas/atlas-cli/internal/query"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve filtered feature collections over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		svc := query.NewService(st)

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/api/species", func(w http.ResponseWriter, req *http.Request) {
			records, err := svc.Species(req.Context())
			if err != nil {
				zap.L().Error("species listing failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
				return
			}
			writeJSON(w, http.StatusOK, records)
		})

		r.Get("/api/layers/{layer}", func(w http.ResponseWriter, req *http.Request) {
			layer := chi.URLParam(req, "layer")

			var species []string
			if raw := req.URL.Query().Get("species"); raw != "" {
				species = strings.Split(raw, ",")
			}

			var bbox *geojson.BBox
			if raw := req.URL.Query().Get("bbox"); raw != "" {
				b, err := geojson.ParseBBox(raw)
				if err != nil {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid bbox"})
					return
				}
				bbox = b
			}

			fc, err := svc.Features(req.Context(), layer, species, bbox)
			if err != nil {
				if eris.Is(err, query.ErrUnknownLayer) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "layer not found"})
					return
				}
				zap.L().Error("layer query failed", zap.String("layer", layer), zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
				return
			}
			writeJSON(w, http.StatusOK, fc)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
