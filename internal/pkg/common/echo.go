package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/samber/do/v2"
)

// CallerHeader carries the identity the upstream gateway authenticated.
const CallerHeader = "X-Caller-Identity"

type EchoService struct {
	echo     *echo.Echo
	port     int
	listener net.Listener
}

func NewEchoService(i do.Injector) (*EchoService, error) {
	port := do.MustInvokeNamed[int](i, "port")
	logger := do.MustInvoke[*log.Logger](i)

	e := NewEcho(logger)

	return &EchoService{
		echo: e,
		port: port,
	}, nil
}

// NewEchoServiceWithListener serves on an already bound listener instead of
// a port.
func NewEchoServiceWithListener(logger *log.Logger, listener net.Listener) *EchoService {
	return &EchoService{
		echo:     NewEcho(logger),
		listener: listener,
	}
}

func NewEcho(logger *log.Logger) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = false

	if logger != nil {
		e.Logger = logger
	}

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${id} ${remote_ip} ${status} ${method} ${path} ${error} ${latency_human} ${bytes_in} ${bytes_out}\n",
	}))
	e.Use(middleware.Recover())

	return e
}

func (s *EchoService) Register(c func(e *echo.Echo)) {
	c(s.echo)
}

func (s *EchoService) Handler() http.Handler {
	return s.echo
}

func (s *EchoService) Start() error {
	if s.listener != nil {
		s.echo.Listener = s.listener
	}

	err := s.echo.Start(fmt.Sprintf(":%d", s.port))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

// Run serves until ctx is done, then shuts the server down and returns once
// every in-flight handler has finished or shutdownTimeout has passed.
func (s *EchoService) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	started := make(chan error, 1)

	go func() {
		started <- s.Start()
	}()

	select {
	case err := <-started:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.Shutdown(shutdownCtx)

	startErr := <-started
	if err != nil {
		return err
	}

	return startErr
}

func (s *EchoService) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("failed to shutdown echo server: %w", err)
	}

	return nil
}

func Caller(c echo.Context) (string, error) {
	caller := strings.TrimSpace(c.Request().Header.Get(CallerHeader))
	if caller == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing "+CallerHeader+" header")
	}

	return caller, nil
}
