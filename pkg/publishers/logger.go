package publishers

import "github.com/adda-baaj/agent-ping/pkg/agentping"

// Logger is the API client's logging surface so one implementation serves both packages.
type Logger = agentping.Logger

type discardLogger struct{}

func (discardLogger) InfoObj(string, string, interface{})  {}
func (discardLogger) DebugObj(string, string, interface{}) {}
func (discardLogger) WarnObj(string, string, interface{})  {}
func (discardLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return discardLogger{}
	}
	return log
}
