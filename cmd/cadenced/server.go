package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"cadence.lopezb.com/internal/ack"
	"cadence.lopezb.com/internal/httpapi"
)

const (
	writeTimeout      = 5 * time.Second
	rejectionTimeout  = 500 * time.Millisecond
	readHeaderTimeout = 5 * time.Second
)

var errMaxConnections = ack.New(ack.SystemFailure, "Max connections reached")

// run starts the TCP server and, if configured, the HTTP side channel, and
// blocks until ctx is cancelled or a client sends "kill".
func (app *application) run(ctx context.Context) error {
	//
	// DESIGN
	// ------
	//
	// 1. CONNECTION LIMITING
	//    A buffered channel (`connLimiter`) acts as a semaphore. A non-blocking
	//    send is a "try-acquire": when the buffer is full the connection gets a
	//    single ACK frame and is closed, so the accept loop never blocks on a
	//    slow client.
	//
	// 2. ONE LIFECYCLE FOR EVERYTHING
	//    The accept loop, the HTTP server and the shutdown watcher run in one
	//    errgroup. The group context is cancelled by a signal (parent ctx), by
	//    "kill" (app.stop), or by either server failing. The watcher then closes
	//    both listeners, closes `done` so every session leaves its loop, and
	//    waits for in-flight sessions to finish, bounded by shutdownTimeout.
	//
	// 3. WEBSOCKETS
	//    Hijacked connections are invisible to http.Server.Shutdown. The HTTP
	//    server's BaseContext is the group context, so /idle streams observe
	//    cancellation through their request context and exit on their own.
	//
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.stop = cancel

	ln, err := net.Listen("tcp", app.config.Addr())
	if err != nil {
		return err
	}
	app.listener = ln
	serverAddr := ln.Addr().String()

	var httpLn net.Listener
	if app.config.HTTPAddr != "" {
		httpLn, err = net.Listen("tcp", app.config.HTTPAddr)
		if err != nil {
			_ = ln.Close()
			return err
		}
		app.httpServer = &http.Server{
			Handler:           httpapi.NewHandler(app.hub, app.statsSnapshot, app.logger),
			ReadHeaderTimeout: readHeaderTimeout,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
	}

	if app.readyCh != nil {
		close(app.readyCh)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info("server starting", "address", serverAddr)
		return app.acceptLoop(ln)
	})

	if app.httpServer != nil {
		g.Go(func() error {
			app.logger.Info("http side channel starting", "address", httpLn.Addr().String())
			if err := app.httpServer.Serve(httpLn); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server", "address", serverAddr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()

		// Stop accepting new connections and release every session.
		_ = ln.Close()
		app.closeDone()

		if app.httpServer != nil {
			if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
				app.logger.Warn("http shutdown incomplete", "error", err)
			}
		}

		wgDone := make(chan struct{})
		go func() {
			app.wg.Wait()
			close(wgDone)
		}()

		select {
		case <-wgDone:
			return nil
		case <-shutdownCtx.Done():
			app.logger.Warn("shutdown timed out with clients still connected")
			return nil
		}
	})

	if err := g.Wait(); err != nil {
		app.logger.Error("server stopped with error", "error", err, "address", serverAddr)
		return err
	}

	app.logger.Info("server stopped gracefully", "address", serverAddr)
	return nil
}

// acceptLoop accepts connections until the listener is closed.
func (app *application) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil // Normal shutdown path
			}
			app.logger.Error("failed to accept connection", "error", err)
			continue
		}

		select {
		case app.connLimiter <- struct{}{}:
			app.wg.Add(1)
			go app.handleConnection(conn)
		default:
			app.logger.Info("rejecting connection, limit reached", "remote_addr", conn.RemoteAddr().String())

			// A client that does not read must not stall the accept loop.
			_ = conn.SetWriteDeadline(time.Now().Add(rejectionTimeout))
			_ = ack.WriteFrame(conn, errMaxConnections, 0, "")
			_ = conn.Close()
		}
	}
}

// handleConnection owns one client connection for its whole life.
func (app *application) handleConnection(conn net.Conn) {
	defer func() { <-app.connLimiter }()
	defer app.wg.Done()
	defer func() { _ = conn.Close() }()

	app.metrics.TotalConnections.Add(1)
	app.metrics.ActiveConnections.Add(1)
	defer app.metrics.ActiveConnections.Add(-1)

	s := app.newSession(conn)
	defer app.hub.Unsubscribe(s.sub)

	s.logger.Info("new connection")
	s.run()
}

// kill begins server shutdown on behalf of a client.
func (app *application) kill() {
	if app.stop != nil {
		app.stop()
	}
}

// closeDone releases every session. It is safe to call more than once.
func (app *application) closeDone() {
	app.doneOnce.Do(func() { close(app.done) })
}
