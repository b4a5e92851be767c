// Package stats periodically logs router and monitor statistics.
package stats

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/astc-project/astc-backend/internal/framework"
)

type Scheduler struct {
	fw       *framework.Context
	schedule string
	cron     *cron.Cron
}

func NewScheduler(fw *framework.Context, schedule string) *Scheduler {
	return &Scheduler{fw: fw, schedule: schedule}
}

// Start initializes the stats cron task.
func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc(s.schedule, func() {
		s.logStats()
	})
	if err != nil {
		log.Printf("Failed to create stats cron job: %v", err)
		return
	}

	log.Printf("Stats scheduler started (schedule %q)", s.schedule)
	c.Start()
	s.cron = c
}

// Stop halts the cron scheduler; already running jobs finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) logStats() {
	routerStats := s.fw.Router.Stats()
	log.Printf("[stats] messages sent=%d delivered=%d failed=%d expired=%d success_rate=%.1f%%",
		routerStats.Sent, routerStats.Delivered, routerStats.Failed,
		routerStats.Expired, routerStats.SuccessRate)

	agents := s.fw.AgentsStatus()
	active := 0
	for _, a := range agents {
		if a.Status == "active" {
			active++
		}
	}
	log.Printf("[stats] agents total=%d active=%d uptime=%s",
		len(agents), active, s.fw.Monitor.Uptime().Round(time.Second))
}
