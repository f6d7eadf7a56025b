package ultralog

import "time"

// TimerSet holds all timers used in the background loop
type TimerSet struct {
	flushTicker     *time.Ticker
	heartbeatTicker *time.Ticker
	flushChan       <-chan time.Time
	heartbeatChan   <-chan time.Time
}

// setupTimers creates the tickers the active configuration needs. Nil
// channels block forever in select.
func (l *Logger) setupTimers() *TimerSet {
	timers := &TimerSet{}

	// Only a buffering local writer has anything to flush on a timer
	if l.writer != nil && !l.cfg.ForceSync && l.cfg.FileBufferSize > 0 {
		interval := msDuration(l.cfg.FlushIntervalMs)
		if interval < minWaitTime {
			interval = fallbackFlushInterval
		}
		timers.flushTicker = time.NewTicker(interval)
		timers.flushChan = timers.flushTicker.C
	}

	if l.cfg.HeartbeatIntervalS > 0 {
		timers.heartbeatTicker = time.NewTicker(time.Duration(l.cfg.HeartbeatIntervalS) * time.Second)
		timers.heartbeatChan = timers.heartbeatTicker.C
	}

	return timers
}

// active reports whether any timer is running
func (t *TimerSet) active() bool {
	return t.flushTicker != nil || t.heartbeatTicker != nil
}

// stop stops all active timers
func (t *TimerSet) stop() {
	if t.flushTicker != nil {
		t.flushTicker.Stop()
	}
	if t.heartbeatTicker != nil {
		t.heartbeatTicker.Stop()
	}
}
