// Package cron runs the assistant's background maintenance: the
// conversation-memory TTL sweep and a daily intent rollup over the
// recorded interactions.
package cron

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	rcron "github.com/robfig/cron/v3"

	"github.com/tokosegar/tokobot/internal/catalog"
	"github.com/tokosegar/tokobot/internal/memory"
)

const (
	// sweepSpec fires the memory TTL sweep every ten minutes.
	sweepSpec = "0 */10 * * * *"
	// rollupSpec logs the daily intent rollup just after midnight.
	rollupSpec = "0 5 0 * * *"
)

type Service struct {
	history      memory.Store
	interactions catalog.InteractionStore

	mu     sync.Mutex
	cron   *rcron.Cron
	cancel context.CancelFunc
}

func NewService(history memory.Store, interactions catalog.InteractionStore) *Service {
	return &Service{history: history, interactions: interactions}
}

func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	c := rcron.New(rcron.WithSeconds())
	if _, err := c.AddFunc(sweepSpec, func() { s.sweep(runCtx) }); err != nil {
		cancel()
		return err
	}
	if _, err := c.AddFunc(rollupSpec, func() { s.rollup(runCtx) }); err != nil {
		cancel()
		return err
	}

	s.mu.Lock()
	s.cron = c
	s.cancel = cancel
	s.mu.Unlock()

	c.Start()
	log.Printf("[cron] started: memory sweep + daily rollup")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
		log.Printf("[cron] stopped")
	}
}

func (s *Service) sweep(ctx context.Context) {
	if s.history == nil {
		return
	}
	n, err := s.history.SweepExpired(ctx)
	if err != nil {
		log.Printf("[cron] memory sweep: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[cron] memory sweep removed %d expired entries", n)
	}
}

func (s *Service) rollup(ctx context.Context) {
	if s.interactions == nil {
		return
	}
	counts, err := s.interactions.IntentCounts(ctx, 1)
	if err != nil {
		log.Printf("[cron] daily rollup: %v", err)
		return
	}
	if len(counts) == 0 {
		log.Printf("[cron] daily rollup: no interactions in the last day")
		return
	}
	log.Printf("[cron] daily rollup: %s", formatCounts(counts))
}

func formatCounts(counts map[string]int) string {
	intents := make([]string, 0, len(counts))
	for intent := range counts {
		intents = append(intents, intent)
	}
	sort.Strings(intents)

	var b strings.Builder
	for i, intent := range intents {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(intent)
		b.WriteString("=")
		b.WriteString(strconv.Itoa(counts[intent]))
	}
	return b.String()
}
