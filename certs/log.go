package certs

type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
