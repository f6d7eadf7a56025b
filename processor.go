package ultralog

// startLoop launches the background loop when a timer is configured
func (l *Logger) startLoop() {
	timers := l.setupTimers()
	if !timers.active() {
		return
	}

	l.stopLoop = make(chan struct{})
	l.loopDone = make(chan struct{})
	l.state.LoopExited.Store(false)
	go l.runLoop(timers)
}

// runLoop flushes the local buffer and emits heartbeats until stopped
func (l *Logger) runLoop(timers *TimerSet) {
	defer close(l.loopDone)
	defer l.state.LoopExited.Store(true)
	defer timers.stop()

	for {
		select {
		case <-l.stopLoop:
			return

		case <-timers.flushChan:
			l.handleFlushTick()

		case <-timers.heartbeatChan:
			l.handleHeartbeat()
		}
	}
}

// handleFlushTick pushes buffered lines to the file
func (l *Logger) handleFlushTick() {
	if err := l.writer.Flush(); err != nil {
		l.handleIOFailure("flush", err)
	}
}
