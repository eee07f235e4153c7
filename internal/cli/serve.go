package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/deicod/inherit/runtime"
)

const shutdownTimeout = 5 * time.Second

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered templates over HTTP",
		Long: `Serve renders templates on request for previewing. GET /render/NAME renders
the template NAME with the query parameters as variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.config.Server.Addr
			}
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	logger := loggerFromContext(ctx)

	env, closeEnv := c.newEnvironment()
	defer closeEnv()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(env, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("Serving templates", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// newRouter returns the preview server's routes.
func newRouter(env *runtime.Environment, logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})
	r.Get("/render/*", renderHandler(env, logger))

	return r
}

func renderHandler(env *runtime.Environment, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "*")
		if name == "" {
			http.Error(w, "template name required", http.StatusBadRequest)
			return
		}

		tmpl, err := env.LoadTemplate(name)
		if err != nil {
			writeRenderError(w, r, logger, name, err)
			return
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(queryVars(r.URL.Query()), &buf); err != nil {
			writeRenderError(w, r, logger, name, err)
			return
		}

		w.Header().Set("Content-Type", contentType(name))
		w.Write(buf.Bytes())
	}
}

func writeRenderError(w http.ResponseWriter, r *http.Request, logger *log.Logger, name string, err error) {
	status := http.StatusInternalServerError
	if runtime.IsTemplateNotFound(err) {
		status = http.StatusNotFound
	}
	logger.Warn("render failed", "template", name, "status", status, "request", middleware.GetReqID(r.Context()), "err", err)
	http.Error(w, err.Error(), status)
}

// queryVars turns query parameters into template variables. Repeated
// parameters become lists.
func queryVars(query url.Values) map[string]interface{} {
	vars := make(map[string]interface{}, len(query))
	for key, values := range query {
		if len(values) == 1 {
			vars[key] = values[0]
			continue
		}
		list := make([]interface{}, len(values))
		for i, v := range values {
			list[i] = v
		}
		vars[key] = list
	}
	return vars
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "text/plain; charset=utf-8"
}
