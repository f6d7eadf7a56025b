package ultralog

// Debug logs a message at debug level
func (l *Logger) Debug(args ...any) {
	l.Log(LevelDebug, args...)
}

// Info logs a message at info level
func (l *Logger) Info(args ...any) {
	l.Log(LevelInfo, args...)
}

// Warning logs a message at warning level
func (l *Logger) Warning(args ...any) {
	l.Log(LevelWarning, args...)
}

// Error logs a message at error level
func (l *Logger) Error(args ...any) {
	l.Log(LevelError, args...)
}

// Critical logs a message at critical level
func (l *Logger) Critical(args ...any) {
	l.Log(LevelCritical, args...)
}

// Debugf logs a formatted message at debug level
func (l *Logger) Debugf(format string, args ...any) {
	l.Logf(LevelDebug, format, args...)
}

// Infof logs a formatted message at info level
func (l *Logger) Infof(format string, args ...any) {
	l.Logf(LevelInfo, format, args...)
}

// Warningf logs a formatted message at warning level
func (l *Logger) Warningf(format string, args ...any) {
	l.Logf(LevelWarning, format, args...)
}

// Errorf logs a formatted message at error level
func (l *Logger) Errorf(format string, args ...any) {
	l.Logf(LevelError, format, args...)
}

// Criticalf logs a formatted message at critical level
func (l *Logger) Criticalf(format string, args ...any) {
	l.Logf(LevelCritical, format, args...)
}
