package services

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// armedTimer is one pending activation. Each Arm creates a new entry so a
// replaced timer can tell it is stale.
type armedTimer struct {
	timer *time.Timer
	when  time.Time
}

// ActivationScheduler holds one in-memory activation timer per Scheduled campaign.
// Nothing is persisted; RestoreActivations and the sweeper rebuild it after a restart.
type ActivationScheduler struct {
	activator Activator
	timeout   time.Duration
	now       func() time.Time

	mu      sync.Mutex
	timers  map[uint]*armedTimer
	stopped bool
	wg      sync.WaitGroup
}

func NewActivationScheduler(timeout time.Duration) *ActivationScheduler {
	return &ActivationScheduler{
		timeout: timeout,
		now:     time.Now,
		timers:  make(map[uint]*armedTimer),
	}
}

// SetActivator sets the activation entry point (injected after creation to avoid circular dependency)
func (s *ActivationScheduler) SetActivator(activator Activator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activator = activator
}

// Arm replaces any timer for the campaign. A time that is not in the future
// activates synchronously before Arm returns.
func (s *ActivationScheduler) Arm(campaignID uint, when time.Time) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.disarmLocked(campaignID)

	if when.After(s.now()) {
		s.installLocked(campaignID, when)
		s.mu.Unlock()
		logrus.WithFields(logrus.Fields{"campaign_id": campaignID, "at": when}).Debug("Activation armed")
		return
	}

	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	logrus.WithField("campaign_id", campaignID).Info("Activation time already reached, activating now")
	s.fire(campaignID)
}

// armTimer always defers the activation to a timer goroutine, even for a time
// that is already due. Callers holding the campaign lock use it.
func (s *ActivationScheduler) armTimer(campaignID uint, when time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.disarmLocked(campaignID)
	s.installLocked(campaignID, when)
}

// Disarm cancels the pending timer for the campaign, if any
func (s *ActivationScheduler) Disarm(campaignID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disarmLocked(campaignID) {
		logrus.WithField("campaign_id", campaignID).Debug("Activation disarmed")
	}
}

// Armed returns the activation time of the pending timer for the campaign
func (s *ActivationScheduler) Armed(campaignID uint) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.timers[campaignID]
	if !ok {
		return time.Time{}, false
	}
	return entry.when, true
}

// Pending returns the number of armed timers
func (s *ActivationScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every timer and waits for in-flight activations to finish
func (s *ActivationScheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, entry := range s.timers {
		entry.timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	logrus.Info("Activation scheduler stopped")
}

func (s *ActivationScheduler) disarmLocked(campaignID uint) bool {
	entry, ok := s.timers[campaignID]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.timers, campaignID)
	return true
}

func (s *ActivationScheduler) installLocked(campaignID uint, when time.Time) {
	delay := when.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	entry := &armedTimer{when: when}
	entry.timer = time.AfterFunc(delay, func() { s.onTimer(campaignID, entry) })
	s.timers[campaignID] = entry
}

func (s *ActivationScheduler) onTimer(campaignID uint, entry *armedTimer) {
	s.mu.Lock()
	// A timer that was replaced or disarmed while it was firing must not activate
	if s.stopped || s.timers[campaignID] != entry {
		s.mu.Unlock()
		return
	}
	delete(s.timers, campaignID)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.fire(campaignID)
}

func (s *ActivationScheduler) fire(campaignID uint) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("campaign_id", campaignID).Errorf("Activation panicked: %v\n%s", r, debug.Stack())
		}
	}()

	s.mu.Lock()
	activator := s.activator
	s.mu.Unlock()
	if activator == nil {
		logrus.WithField("campaign_id", campaignID).Error("Activation fired without an activator")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	activated, err := activator.ActivateDue(ctx, campaignID)
	switch {
	case errors.Is(err, models.ErrIllegalTransition):
		logrus.WithField("campaign_id", campaignID).Debugf("Timed activation skipped: %v", err)
	case err != nil:
		logrus.WithField("campaign_id", campaignID).Errorf("Timed activation failed: %v", err)
	case activated:
		logrus.WithField("campaign_id", campaignID).Info("Campaign activated by timer")
	}
}
