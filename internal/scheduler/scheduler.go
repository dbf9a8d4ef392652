// Package scheduler runs periodic maintenance broadcasts on the hub: a
// connection-count refresh and a full discovery snapshot. Incremental
// updates keep clients current in the normal case; these broadcasts heal
// any client that missed one.
package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/coterm/coterm/internal/config"
	"github.com/coterm/coterm/internal/hub"
)

// CommandSender is the slice of the hub the scheduler needs.
type CommandSender interface {
	Send(hub.Command) error
}

// Scheduler owns the cron runner for maintenance broadcasts.
type Scheduler struct {
	cfg  config.MaintenanceConfig
	hub  CommandSender
	cron *cron.Cron
}

// New creates a scheduler for the given hub.
func New(cfg config.MaintenanceConfig, sender CommandSender) *Scheduler {
	return &Scheduler{
		cfg:  cfg,
		hub:  sender,
		cron: cron.New(cron.WithSeconds()),
	}
}

// Start registers the configured entries and starts the cron runner. With
// maintenance disabled it logs and does nothing.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		log.Printf("INFO: Maintenance broadcasts disabled.")
		return nil
	}

	if s.cfg.ConnectionCountsSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.ConnectionCountsSpec, s.broadcastCounts); err != nil {
			return fmt.Errorf("schedule connection counts (%q): %w", s.cfg.ConnectionCountsSpec, err)
		}
		log.Printf("INFO: Connection count broadcast scheduled: %s", s.cfg.ConnectionCountsSpec)
	}
	if s.cfg.LobbyRefreshSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.LobbyRefreshSpec, s.broadcastLobbies); err != nil {
			return fmt.Errorf("schedule lobby refresh (%q): %w", s.cfg.LobbyRefreshSpec, err)
		}
		log.Printf("INFO: Lobby discovery broadcast scheduled: %s", s.cfg.LobbyRefreshSpec)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron runner. Running jobs finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Printf("INFO: Maintenance scheduler stopped.")
}

// Entries reports how many maintenance jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) broadcastCounts() {
	if err := s.hub.Send(hub.SendConnectionCounts{}); err != nil {
		log.Printf("WARN: Maintenance counts broadcast dropped: %v", err)
	}
}

func (s *Scheduler) broadcastLobbies() {
	if err := s.hub.Send(hub.BroadcastLobbies{}); err != nil {
		log.Printf("WARN: Maintenance lobby broadcast dropped: %v", err)
	}
}
