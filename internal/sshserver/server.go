// Package sshserver provides the coterm SSH transport. It wraps
// gliderlabs/ssh (which itself wraps golang.org/x/crypto/ssh), loads the
// host key and pins a modern algorithm suite. Authentication is a
// non-goal: every connection is accepted and handed to the session layer.
package sshserver

import (
	"fmt"
	"log"
	"net"
	"os"

	"github.com/gliderlabs/ssh"
	gossh "golang.org/x/crypto/ssh"
)

// Config holds SSH server configuration.
type Config struct {
	HostKeyPath    string
	Host           string
	Port           int
	SessionHandler func(ssh.Session)
	Version        string // SSH banner version (default: "coterm")
}

// Server wraps a gliderlabs/ssh server.
type Server struct {
	inner    *ssh.Server
	listener net.Listener
}

// NewServer creates and configures a new SSH server.
func NewServer(cfg Config) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	keyBytes, err := os.ReadFile(cfg.HostKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read host key %s: %w", cfg.HostKeyPath, err)
	}
	signer, err := gossh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse host key: %w", err)
	}

	version := cfg.Version
	if version == "" {
		version = "coterm"
	}

	srv := &ssh.Server{
		Addr:        addr,
		Handler:     cfg.SessionHandler,
		HostSigners: []ssh.Signer{signer},
		Version:     version,
		ConnectionFailedCallback: func(conn net.Conn, err error) {
			log.Printf("WARN: SSH connection failed from %s: %v", conn.RemoteAddr(), err)
		},
	}

	srv.ServerConfigCallback = func(ctx ssh.Context) *gossh.ServerConfig {
		sc := &gossh.ServerConfig{}
		sc.Config.KeyExchanges = []string{
			"curve25519-sha256",
			"curve25519-sha256@libssh.org",
			"ecdh-sha2-nistp256",
			"ecdh-sha2-nistp384",
			"ecdh-sha2-nistp521",
			"diffie-hellman-group14-sha256",
			"diffie-hellman-group16-sha512",
		}
		sc.Config.Ciphers = []string{
			"chacha20-poly1305@openssh.com",
			"aes128-gcm@openssh.com",
			"aes256-gcm@openssh.com",
			"aes128-ctr",
			"aes192-ctr",
			"aes256-ctr",
		}
		sc.Config.MACs = []string{
			"hmac-sha2-256-etm@openssh.com",
			"hmac-sha2-512-etm@openssh.com",
			"hmac-sha2-256",
			"hmac-sha2-512",
		}
		return sc
	}

	return &Server{inner: srv}, nil
}

// ListenAndServe binds to the configured address and serves SSH
// connections. It blocks until the server is closed.
func (s *Server) ListenAndServe() error {
	return s.inner.ListenAndServe()
}

// Serve starts serving on an existing listener. Blocks until closed.
func (s *Server) Serve(l net.Listener) error {
	s.listener = l
	return s.inner.Serve(l)
}

// Close shuts down the server and all active connections.
func (s *Server) Close() error {
	return s.inner.Close()
}
