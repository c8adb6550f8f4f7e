package scheduler

import (
	"log"
	"sync"

	"github.com/dayeonkimm/vita-gamemate/internal/service"
	"github.com/robfig/cron/v3"
)

// FlushInterval is the cadence of the periodic buffer flush.
const FlushInterval = "@every 30s"

// Manager runs the periodic flush on a cron engine and owns the one-shot
// shutdown flush. The cron loop and the request-serving loop share nothing in
// process; they meet only in the buffer and the database.
type Manager struct {
	engine       *cron.Cron
	flushService *service.FlushService
	shutdownOnce sync.Once
}

func NewManager(flushService *service.FlushService) *Manager {
	return &Manager{
		engine:       cron.New(),
		flushService: flushService,
	}
}

func (m *Manager) RegisterJobs() error {
	_, err := m.engine.AddFunc(FlushInterval, func() {
		if err := m.flushService.FlushAll(); err != nil {
			log.Printf("periodic flush failed: %v", err)
		}
	})
	return err
}

func (m *Manager) Start() {
	log.Println("message flush scheduler started")
	m.engine.Start()
}

// Stop halts the periodic loop and runs one final synchronous flush so
// buffered messages survive the process exit. The terminal flush runs at
// most once no matter how many shutdown paths call Stop.
func (m *Manager) Stop() {
	ctx := m.engine.Stop()
	<-ctx.Done()

	m.shutdownOnce.Do(func() {
		log.Println("running final message flush before shutdown")
		if err := m.flushService.FlushAll(); err != nil {
			log.Printf("shutdown flush failed: %v", err)
		}
	})
	log.Println("message flush scheduler stopped")
}
