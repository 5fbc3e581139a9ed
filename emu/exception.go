package emu

import "github.com/sirupsen/logrus"

// enterException switches to an exception mode: the CPSR is saved in the
// new mode's SPSR, LR receives lr, the CPU enters ARM state with IRQs masked
// and execution continues at the vector.
func (e *Emulator) enterException(mode Mode, vector, lr uint32) {
	cpsr := e.regFile.CPSR
	e.regFile.SetMode(mode)
	_ = e.regFile.SetSPSR(cpsr) // every exception mode has an SPSR

	e.regFile.Set(LR, lr)
	e.regFile.ClearFlag(FlagT)
	e.regFile.SetFlag(FlagI)
	e.branchTo(vector)

	if e.sink != nil {
		e.emit(Event{Kind: EventException, Addr: e.exec, Target: vector, Thumb: cpsr&(1<<FlagT) != 0})
	}
}

// nextAddr returns the address of the instruction after the one executing.
func (e *Emulator) nextAddr() uint32 {
	if e.regFile.Thumb() {
		return e.exec + 2
	}
	return e.exec + 4
}

// swi enters the supervisor call handler.
func (e *Emulator) swi() {
	e.enterException(ModeSVC, VectorSWI, e.nextAddr())
}

// undefined enters the undefined instruction handler.
func (e *Emulator) undefined(instr uint32) {
	thumb := e.regFile.Thumb()
	e.logger.WithFields(logrus.Fields{
		"addr":  e.exec,
		"instr": instr,
		"thumb": thumb,
	}).Warn("undefined instruction")

	if e.sink != nil {
		e.emit(Event{Kind: EventUndefined, Addr: e.exec, Instr: instr, Thumb: thumb})
	}
	e.enterException(ModeUND, VectorUndefined, e.nextAddr())
}

// RaiseInterrupt requests the interrupts in mask. Requests are ignored unless
// IME is 1 and the interrupt is enabled in IE. An accepted request wakes the
// CPU, is latched in IF and is taken before the next instruction when IRQs
// are not masked.
func (e *Emulator) RaiseInterrupt(mask uint16) {
	if e.memory.Reg16(RegIME) != 1 {
		return
	}
	if e.memory.Reg16(RegIE)&mask == 0 {
		return
	}

	e.memory.IO().Wake()
	e.memory.SetReg16(RegIF, e.memory.Reg16(RegIF)|mask)

	if !e.inStep {
		e.serviceIRQ()
	}
}

// serviceIRQ takes the IRQ exception if an enabled interrupt is latched and
// IRQs are not masked. Between instructions R15 holds the address of the next
// instruction, which the handler returns to with SUBS pc, lr, #4.
func (e *Emulator) serviceIRQ() {
	if e.regFile.GetFlag(FlagI) || e.Halted() {
		return
	}
	if e.memory.Reg16(RegIME) != 1 {
		return
	}
	if e.memory.Reg16(RegIE)&e.memory.Reg16(RegIF) == 0 {
		return
	}

	next := e.regFile.PC()
	e.exec = next
	e.enterException(ModeIRQ, VectorIRQ, next+4)
	e.flushPipeline()
}
