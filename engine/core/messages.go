package core

// MessageCallback receives every diagnostic. Returning true for an error code
// halts the operation that raised it.
type MessageCallback func(code Code, msg string) bool

// DefaultMessageCallback prints through the engine logger and halts on any error.
func DefaultMessageCallback(code Code, msg string) bool {
	switch {
	case code.IsError():
		LogError("!: %d %s", int32(code), msg)
		return true
	case code.IsWarning():
		LogWarn("?: %d %s", int32(code), msg)
		return false
	default:
		if msg != "" {
			LogInfo(":: %s", msg)
		}
		return false
	}
}

// Messenger funnels diagnostics of one subsystem into a MessageCallback.
type Messenger struct {
	callback MessageCallback
}

func NewMessenger(callback MessageCallback) *Messenger {
	if callback == nil {
		callback = DefaultMessageCallback
	}
	return &Messenger{callback: callback}
}

// Error reports an error and returns it only if the callback asks to halt.
// A nil return means the caller carries on.
func (m *Messenger) Error(code Code, format string, args ...interface{}) error {
	err := newError(1, code, format, args...)
	if m.callback(code, err.Message+err.Trace) {
		return err
	}
	return nil
}

// Fail reports an error that the caller cannot recover from. The error is
// returned whatever the callback answers.
func (m *Messenger) Fail(code Code, format string, args ...interface{}) error {
	err := newError(1, code, format, args...)
	m.callback(code, err.Message+err.Trace)
	return err
}

func (m *Messenger) Warn(code Code, format string, args ...interface{}) {
	m.callback(code, sprintf(format, args...))
}

func (m *Messenger) Info(format string, args ...interface{}) {
	m.callback(CodeSuccess, sprintf(format, args...))
}
