package emu

// I/O register offsets from the start of the I/O window (0x04000000).
const (
	RegDISPCNT  = 0x000
	RegDISPSTAT = 0x004
	RegVCOUNT   = 0x006
	RegBG2X     = 0x028
	RegBG2Y     = 0x02C
	RegBG3X     = 0x038
	RegBG3Y     = 0x03C
	RegSOUND1L  = 0x060
	RegSOUND1H  = 0x062
	RegSOUND1X  = 0x064
	RegDMA0CNTH = 0x0BA
	RegDMA1CNTH = 0x0C6
	RegDMA2CNTH = 0x0D2
	RegDMA3CNTH = 0x0DE
	RegTM0CNTL  = 0x100
	RegKEYINPUT = 0x130
	RegIE       = 0x200
	RegIF       = 0x202
	RegWAITCNT  = 0x204
	RegIME      = 0x208
	RegPOSTFLG  = 0x300
	RegHALTCNT  = 0x301
)

// Interrupt request bits for IE and IF.
const (
	IRQVBlank  uint16 = 1 << 0
	IRQHBlank  uint16 = 1 << 1
	IRQVCount  uint16 = 1 << 2
	IRQTimer0  uint16 = 1 << 3
	IRQTimer1  uint16 = 1 << 4
	IRQTimer2  uint16 = 1 << 5
	IRQTimer3  uint16 = 1 << 6
	IRQSerial  uint16 = 1 << 7
	IRQDMA0    uint16 = 1 << 8
	IRQDMA1    uint16 = 1 << 9
	IRQDMA2    uint16 = 1 << 10
	IRQDMA3    uint16 = 1 << 11
	IRQKeypad  uint16 = 1 << 12
	IRQGamePak uint16 = 1 << 13
)

// IOChange is a set of peripheral-visible changes caused by an I/O write.
type IOChange uint32

// I/O change notifications.
const (
	ChangeDMA IOChange = 1 << iota
	ChangeTimer
	ChangeSound1
	ChangeAffine
	ChangeHalt
	ChangeStop
	ChangeWaitControl
	ChangeInterrupt
)

// Has reports whether any of the given bits are set.
func (c IOChange) Has(bits IOChange) bool {
	return c&bits != 0
}

// DMAControl is the decoded high half of a DMA channel's control register.
type DMAControl struct {
	DestInc     int32
	SourceInc   int32
	Reload      bool
	Repeat      bool
	Word        bool
	GamePakDRQ  bool
	StartTiming uint16 // 0 immediately, 1 VBlank, 2 HBlank, 3 special
	IRQ         bool
	Enabled     bool
}

// TimerControl is the decoded state of a timer channel's registers.
type TimerControl struct {
	Reload    uint16
	Prescaler uint32 // shift applied to the system clock: 0, 6, 8 or 10
	CountUp   bool
	IRQ       bool
	Operate   bool
}

// IORegisters owns the peripheral state decoded from writes into the I/O
// window. The memory calls it after each such write.
type IORegisters struct {
	DMA    [4]DMAControl
	Timers [4]TimerControl

	// BG2X, BG2Y, BG3X, BG3Y are the affine reference points, sign-extended
	// from 28 bits.
	BG2X, BG2Y, BG3X, BG3Y uint32

	Halted  bool
	Stopped bool
}

// OnWrite8 handles a byte write. io is the I/O backing store after the write.
func (r *IORegisters) OnWrite8(addr uint32, value uint8, io []byte) IOChange {
	var change IOChange
	if addr == 0x04000000+RegHALTCNT {
		change |= r.haltControl(value)
	}

	reg := addr & 0x3FE
	change |= r.onRegWrite(reg, ioRead16(io, reg))
	return change
}

// OnWrite16 handles a halfword write.
func (r *IORegisters) OnWrite16(addr uint32, value uint16) IOChange {
	var change IOChange
	reg := addr & 0x3FF
	if reg == RegPOSTFLG {
		change |= r.haltControl(uint8(value >> 8))
	}
	return change | r.onRegWrite(reg, value)
}

// OnWrite32 handles a word write as two halfword writes.
func (r *IORegisters) OnWrite32(addr uint32, value uint32) IOChange {
	change := r.OnWrite16(addr, uint16(value))
	return change | r.OnWrite16(addr+2, uint16(value>>16))
}

// Wake clears the halt and stop states.
func (r *IORegisters) Wake() {
	r.Halted = false
	r.Stopped = false
}

func (r *IORegisters) haltControl(value uint8) IOChange {
	if value&0x80 != 0 {
		r.Stopped = true
		r.Halted = false
		return ChangeStop
	}
	r.Halted = true
	r.Stopped = false
	return ChangeHalt
}

func (r *IORegisters) onRegWrite(reg uint32, value uint16) IOChange {
	switch reg {
	case RegBG2X:
		r.BG2X = putLo28(r.BG2X, value)
	case RegBG2X + 2:
		r.BG2X = putHi28(r.BG2X, value)
	case RegBG2Y:
		r.BG2Y = putLo28(r.BG2Y, value)
	case RegBG2Y + 2:
		r.BG2Y = putHi28(r.BG2Y, value)
	case RegBG3X:
		r.BG3X = putLo28(r.BG3X, value)
	case RegBG3X + 2:
		r.BG3X = putHi28(r.BG3X, value)
	case RegBG3Y:
		r.BG3Y = putLo28(r.BG3Y, value)
	case RegBG3Y + 2:
		r.BG3Y = putHi28(r.BG3Y, value)

	case RegTM0CNTL, RegTM0CNTL + 4, RegTM0CNTL + 8, RegTM0CNTL + 12:
		r.Timers[(reg-RegTM0CNTL)/4].Reload = value
		return ChangeTimer
	case RegTM0CNTL + 2, RegTM0CNTL + 6, RegTM0CNTL + 10, RegTM0CNTL + 14:
		r.timerControl(int((reg-RegTM0CNTL)/4), value)
		return ChangeTimer

	case RegDMA0CNTH:
		r.dmaControl(0, value)
		return ChangeDMA
	case RegDMA1CNTH:
		r.dmaControl(1, value)
		return ChangeDMA
	case RegDMA2CNTH:
		r.dmaControl(2, value)
		return ChangeDMA
	case RegDMA3CNTH:
		r.dmaControl(3, value)
		return ChangeDMA

	case RegSOUND1L, RegSOUND1H, RegSOUND1X:
		return ChangeSound1

	case RegWAITCNT:
		return ChangeWaitControl
	case RegIE, RegIF, RegIME:
		return ChangeInterrupt

	default:
		return 0
	}
	return ChangeAffine
}

func (r *IORegisters) dmaControl(ch int, hi uint16) {
	d := &r.DMA[ch]
	d.Repeat = hi&(1<<9) != 0
	d.Word = hi&(1<<10) != 0
	d.GamePakDRQ = hi&(1<<11) != 0
	d.StartTiming = (hi >> 12) & 0x3
	d.IRQ = hi&(1<<14) != 0
	d.Enabled = hi&(1<<15) != 0
	d.Reload = (hi>>5)&0x3 == 3

	size := int32(2)
	if d.Word {
		size = 4
	}
	d.DestInc = addrStep((hi>>5)&0x3, size)
	d.SourceInc = addrStep((hi>>7)&0x3, size)
}

func addrStep(mode uint16, size int32) int32 {
	switch mode {
	case 1:
		return -size
	case 2:
		return 0
	default:
		return size
	}
}

var timerPrescalers = [4]uint32{0, 6, 8, 10}

func (r *IORegisters) timerControl(ch int, hi uint16) {
	t := &r.Timers[ch]
	t.Prescaler = timerPrescalers[hi&0x3]
	t.CountUp = hi&(1<<2) != 0
	t.IRQ = hi&(1<<6) != 0
	t.Operate = hi&(1<<7) != 0
}

func putLo28(reg uint32, value uint16) uint32 {
	return signExtend28((reg &^ 0xFFFF) | uint32(value))
}

func putHi28(reg uint32, value uint16) uint32 {
	return signExtend28((reg & 0xFFFF) | uint32(value)<<16)
}

func signExtend28(v uint32) uint32 {
	return uint32(int32(v<<4) >> 4)
}

func ioRead16(io []byte, off uint32) uint16 {
	if int(off)+1 >= len(io) {
		return 0
	}
	return uint16(io[off]) | uint16(io[off+1])<<8
}
