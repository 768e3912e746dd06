/*
scheduler.go - Automated funding scheduler

PURPOSE:
  Periodically checks for time-based rules (weekly, biweekly, monthly,
  payday) that are due and runs a simulation for each due trigger. The
  resulting plans land in simulation history for review.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - A rule is due when enough whole days have passed since it last ran
  - Simulation only: the scheduler never moves money. It stamps the
    rules it simulated and records the run; applying a plan stays an
    explicit user action (POST /api/rules/run)

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewFundingScheduler(store)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunRules endpoint (applies transfers)
  - engine/schedule.go: Due-date thresholds
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warp/funding-engine/engine"
	"github.com/warp/funding-engine/store/sqlite"
)

// FundingScheduler periodically simulates due time-based rules.
type FundingScheduler struct {
	Store         *sqlite.Store
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewFundingScheduler creates a new scheduler.
func NewFundingScheduler(store *sqlite.Store) *FundingScheduler {
	return &FundingScheduler{
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (fs *FundingScheduler) Start() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	fs.ticker = time.NewTicker(fs.CheckInterval)
	fs.wg.Add(1)

	go fs.run()

	log.Printf("[Scheduler] Started with check interval: %v", fs.CheckInterval)
}

// Stop stops the scheduler.
func (fs *FundingScheduler) Stop() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.ticker != nil {
		fs.ticker.Stop()
		close(fs.stop)
		fs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (fs *FundingScheduler) run() {
	defer fs.wg.Done()

	// Run immediately on start
	fs.checkAndRun()

	for {
		select {
		case <-fs.ticker.C:
			fs.checkAndRun()
		case <-fs.stop:
			return
		}
	}
}

// timeBasedTriggers are the triggers the scheduler fires on its own.
// Manual and income-detected runs only happen through the API.
var timeBasedTriggers = []engine.TriggerType{
	engine.TriggerWeekly,
	engine.TriggerBiweekly,
	engine.TriggerMonthly,
	engine.TriggerPayday,
}

func (fs *FundingScheduler) checkAndRun() {
	ctx := context.Background()
	now := time.Now().UTC()

	log.Printf("[Scheduler] Checking for due rules at %v", now)

	rules, err := fs.Store.ListRules(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing rules: %v", err)
		return
	}

	// Collect the triggers that have at least one due, enabled rule.
	due := map[engine.TriggerType]int{}
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		for _, trigger := range timeBasedTriggers {
			if rule.Trigger == trigger && engine.ScheduleDue(trigger, rule.LastExecuted, now) {
				due[trigger]++
			}
		}
	}
	if len(due) == 0 {
		return
	}

	simulated := 0
	for _, trigger := range timeBasedTriggers {
		count, ok := due[trigger]
		if !ok {
			continue
		}
		if err := fs.simulateTrigger(ctx, rules, trigger, now); err != nil {
			log.Printf("[Scheduler] Error simulating %s rules: %v", trigger, err)
			continue
		}
		log.Printf("[Scheduler] Simulated trigger %s (%d due rules)", trigger, count)
		simulated++
	}

	if simulated > 0 {
		log.Printf("[Scheduler] Completed: %d triggers simulated", simulated)
	}
}

// simulateTrigger runs one trigger's rules against stored state and
// records the outcome in history.
func (fs *FundingScheduler) simulateTrigger(ctx context.Context, rules []engine.Rule, trigger engine.TriggerType, now time.Time) error {
	cash, err := fs.Store.GetUnassignedCash(ctx)
	if err != nil {
		return err
	}
	envelopes, err := fs.Store.ListEnvelopes(ctx)
	if err != nil {
		return err
	}

	sim, err := engine.Simulate(rules, engine.Context{
		UnassignedCash: cash,
		Envelopes:      envelopes,
		Trigger:        trigger,
		AsOf:           now,
	})
	if err != nil {
		return err
	}

	// Stamp the rules that ran so they stop reading as due. This is the
	// only state the scheduler writes besides history.
	for _, result := range sim.RuleResults {
		if !result.Success {
			continue
		}
		if err := fs.Store.MarkRuleExecuted(ctx, result.RuleID, now); err != nil {
			log.Printf("[Scheduler] Error stamping rule %s: %v", result.RuleID, err)
		}
	}

	resultsJSON, err := json.Marshal(toSimulationDTO(sim))
	if err != nil {
		return err
	}

	return fs.Store.SaveSimulationRun(ctx, sqlite.SimulationRun{
		ID:             fmt.Sprintf("run-%d", now.UnixNano()),
		Trigger:        trigger,
		UnassignedCash: cash,
		TotalPlanned:   sim.TotalPlanned,
		RulesExecuted:  sim.RulesExecuted,
		TransferCount:  len(sim.PlannedTransfers),
		ResultsJSON:    string(resultsJSON),
		CreatedAt:      now,
	})
}

// RunNow triggers an immediate check (for testing/admin).
func (fs *FundingScheduler) RunNow() {
	fs.checkAndRun()
}

// GetNextRunTime returns when the next scheduled check will occur.
func (fs *FundingScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(fs.CheckInterval)
}
