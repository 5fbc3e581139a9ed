package emu

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbasim/insts"
)

// EventKind identifies an execution event.
type EventKind uint8

// Execution events.
const (
	EventExecute EventKind = iota
	EventBranch
	EventException
	EventUndefined
	EventHalt
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventExecute:
		return "execute"
	case EventBranch:
		return "branch"
	case EventException:
		return "exception"
	case EventUndefined:
		return "undefined"
	case EventHalt:
		return "halt"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event describes something the CPU did.
type Event struct {
	Kind   EventKind
	Addr   uint32 // address of the instruction involved
	Instr  uint32 // instruction word, or the written value for EventHalt
	Thumb  bool
	Target uint32 // branch target or exception vector
	Mode   Mode
	Cycles uint64
}

// EventSink receives execution events.
type EventSink interface {
	Emit(ev Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ev Event)

// Emit calls f(ev).
func (f EventSinkFunc) Emit(ev Event) {
	f(ev)
}

// LogSink writes events to a logrus logger. Executed instructions are
// logged at trace level with a disassembly, control flow at debug level and
// undefined instructions at warning level.
type LogSink struct {
	logger  *logrus.Logger
	decoder *insts.Decoder
}

// NewLogSink creates a sink that logs through logger.
func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger, decoder: insts.NewDecoder()}
}

// Emit logs one event.
func (s *LogSink) Emit(ev Event) {
	fields := logrus.Fields{
		"addr":   fmt.Sprintf("0x%08X", ev.Addr),
		"mode":   ev.Mode.String(),
		"cycles": ev.Cycles,
	}

	switch ev.Kind {
	case EventExecute:
		if !s.logger.IsLevelEnabled(logrus.TraceLevel) {
			return
		}
		var inst *insts.Instruction
		if ev.Thumb {
			inst = s.decoder.DecodeThumb(uint16(ev.Instr))
		} else {
			inst = s.decoder.DecodeARM(ev.Instr)
		}
		fields["instr"] = fmt.Sprintf("0x%08X", ev.Instr)
		s.logger.WithFields(fields).Trace(inst.String())
	case EventBranch, EventException:
		fields["target"] = fmt.Sprintf("0x%08X", ev.Target)
		fields["thumb"] = ev.Thumb
		s.logger.WithFields(fields).Debug(ev.Kind.String())
	case EventUndefined:
		fields["instr"] = fmt.Sprintf("0x%08X", ev.Instr)
		s.logger.WithFields(fields).Warn(ev.Kind.String())
	default:
		s.logger.WithFields(fields).Info(ev.Kind.String())
	}
}
