package main

import (
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gliderlabs/ssh"
	"github.com/joho/godotenv"

	"github.com/coterm/coterm/internal/config"
	"github.com/coterm/coterm/internal/hub"
	"github.com/coterm/coterm/internal/logging"
	"github.com/coterm/coterm/internal/scheduler"
	"github.com/coterm/coterm/internal/session"
	"github.com/coterm/coterm/internal/sshserver"
)

func main() {
	var configPath string
	var debug bool
	flag.StringVar(&configPath, "config", "configs/coterm.json", "path to the server config file")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	log.SetOutput(os.Stderr)
	logging.DebugEnabled = debug || os.Getenv("DEBUG") == "1"
	log.Println("INFO: Starting coterm session server...")

	// A .env next to the binary feeds the COTERM_* overrides.
	if err := godotenv.Load(); err == nil {
		log.Printf("INFO: Loaded environment overrides from .env")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	if cfg.LogFilePath != "" {
		os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0o755)
		logFile, err := os.OpenFile(cfg.LogFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Printf("WARN: Failed to open log file %s: %v. Logging to stderr.", cfg.LogFilePath, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stderr, logFile))
			log.Printf("INFO: Logging to file: %s", cfg.LogFilePath)
			defer logFile.Close()
		}
	}

	h := hub.New(cfg.LobbyCapacity)
	hubDone := make(chan struct{})
	go func() {
		h.Run()
		close(hubDone)
	}()

	editors := session.NewEditorHost(cfg.EditorCommand)
	handler := &session.Handler{Hub: h, Editors: editors}

	sched := scheduler.New(cfg.Maintenance, h)
	if err := sched.Start(); err != nil {
		log.Fatalf("FATAL: Failed to start maintenance scheduler: %v", err)
	}

	watcher, err := NewConfigWatcher(configPath, cfg.LobbyCapacity, h)
	if err != nil {
		log.Printf("WARN: Config hot-reload unavailable: %v", err)
	}

	srv, err := sshserver.NewServer(sshserver.Config{
		HostKeyPath:    cfg.HostKeyPath,
		Host:           cfg.Host,
		Port:           cfg.Port,
		SessionHandler: handler.Handle,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to configure SSH server: %v", err)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("INFO: Received %s. Shutting down.", sig)
		srv.Close()
	}()

	log.Printf("INFO: Listening for SSH connections on %s:%d (lobby capacity %d, editor %q)",
		cfg.Host, cfg.Port, cfg.LobbyCapacity, cfg.EditorCommand)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		log.Fatalf("FATAL: SSH server failed: %v", err)
	}

	if watcher != nil {
		watcher.Stop()
	}
	sched.Stop()
	editors.CloseAll()
	h.Close()
	<-hubDone
	log.Println("INFO: coterm shut down.")
}
