package emu

import "github.com/sarchlab/gbasim/insts"

type aluOp func(a *ALU, op1, op2 uint32, carry, setFlags bool) uint32

// aluOps is indexed by the data-processing opcode. The test opcodes share
// the implementation of the operation they discard the result of.
var aluOps = [16]aluOp{
	(*ALU).AND, (*ALU).EOR, (*ALU).SUB, (*ALU).RSB,
	(*ALU).ADD, (*ALU).ADC, (*ALU).SBC, (*ALU).RSC,
	(*ALU).AND, (*ALU).EOR, (*ALU).SUB, (*ALU).ADD,
	(*ALU).ORR, (*ALU).MOV, (*ALU).BIC, (*ALU).MVN,
}

// operand2 returns the shifter output and carry for one operand form.
type operand2 func(e *Emulator, instr uint32, carry bool) (uint32, bool)

func armOperand2(c insts.Class) operand2 {
	st := ShiftType(c.Shift)
	switch c.Operand {
	case insts.OperandImm:
		return func(_ *Emulator, instr uint32, carry bool) (uint32, bool) {
			return RotateImm(instr&0xFF, (instr>>8)&0xF, carry)
		}
	case insts.OperandRegImmShift:
		return func(e *Emulator, instr uint32, carry bool) (uint32, bool) {
			return ShiftImm(st, e.regFile.Get(instr&0xF), (instr>>7)&0x1F, carry)
		}
	default:
		// The shift amount is read a cycle later, so r15 reads 12 ahead.
		return func(e *Emulator, instr uint32, carry bool) (uint32, bool) {
			e.clock.Internal(1)
			rm := instr & 0xF
			v := e.regFile.Get(rm)
			if rm == PC {
				v += 4
			}
			return ShiftReg(st, v, e.regFile.Get((instr>>8)&0xF), carry)
		}
	}
}

func armDataProc(c insts.Class) armHandler {
	op := aluOps[c.Op]
	operand := armOperand2(c)
	test := c.Op.IsTest()
	s := c.S
	regShift := c.Operand == insts.OperandRegRegShift

	return func(e *Emulator, instr uint32) {
		rd := (instr >> 12) & 0xF
		rn := (instr >> 16) & 0xF

		op2, carry := operand(e, instr, e.regFile.GetFlag(FlagC))
		op1 := e.regFile.Get(rn)
		if regShift && rn == PC {
			op1 += 4
		}

		// With S and rd = r15 the CPSR comes from the SPSR, not the result.
		setFlags := s && (test || rd != PC)
		result := op(e.alu, op1, op2, carry, setFlags)
		if test {
			return
		}

		if rd == PC {
			if s {
				e.restoreCPSR()
			}
			e.branchTo(result)
			return
		}
		e.regFile.Set(rd, result)
	}
}

// PSR field masks selected by bits 19-16 of MSR.
const (
	psrFieldControl   = 0x000000FF
	psrFieldExtension = 0x0000FF00
	psrFieldStatus    = 0x00FF0000
	psrFieldFlags     = 0xFF000000
)

func armMRS(c insts.Class) armHandler {
	spsr := c.S
	return func(e *Emulator, instr uint32) {
		rd := (instr >> 12) & 0xF
		v := e.regFile.CPSR
		if spsr {
			if saved, err := e.regFile.SPSR(); err == nil {
				v = saved
			}
		}
		e.regFile.Set(rd, v)
	}
}

func armMSR(c insts.Class) armHandler {
	spsr := c.S
	imm := c.Operand == insts.OperandImm

	return func(e *Emulator, instr uint32) {
		var v uint32
		if imm {
			v, _ = RotateImm(instr&0xFF, (instr>>8)&0xF, false)
		} else {
			v = e.regFile.Get(instr & 0xF)
		}

		var mask uint32
		if instr&(1<<19) != 0 {
			mask |= psrFieldFlags
		}
		privileged := spsr || e.regFile.Privileged()
		if privileged {
			if instr&(1<<18) != 0 {
				mask |= psrFieldStatus
			}
			if instr&(1<<17) != 0 {
				mask |= psrFieldExtension
			}
			if instr&(1<<16) != 0 {
				mask |= psrFieldControl
			}
		}

		if spsr {
			saved, err := e.regFile.SPSR()
			if err != nil {
				return
			}
			_ = e.regFile.SetSPSR(saved&^mask | v&mask)
			return
		}
		e.regFile.WriteCPSR(e.regFile.CPSR&^mask | v&mask)
	}
}

func armMultiply(c insts.Class) armHandler {
	accumulate := c.Op == insts.OpMLA
	s := c.S

	return func(e *Emulator, instr uint32) {
		rd := (instr >> 16) & 0xF
		rn := (instr >> 12) & 0xF
		rs := e.regFile.Get((instr >> 8) & 0xF)
		rm := e.regFile.Get(instr & 0xF)

		m := MultiplyCycles(rs, true)
		var result uint32
		if accumulate {
			result = e.alu.MLA(rm, rs, e.regFile.Get(rn), s)
			m++
		} else {
			result = e.alu.MUL(rm, rs, s)
		}
		e.clock.Internal(m)
		e.regFile.Set(rd, result)
	}
}

func armMultiplyLong(c insts.Class) armHandler {
	s := c.S
	signed := c.Op == insts.OpSMULL || c.Op == insts.OpSMLAL
	accumulate := c.Op == insts.OpUMLAL || c.Op == insts.OpSMLAL

	return func(e *Emulator, instr uint32) {
		rdHi := (instr >> 16) & 0xF
		rdLo := (instr >> 12) & 0xF
		rs := e.regFile.Get((instr >> 8) & 0xF)
		rm := e.regFile.Get(instr & 0xF)

		m := MultiplyCycles(rs, signed) + 1
		var hi, lo uint32
		switch {
		case signed && accumulate:
			hi, lo = e.alu.SMLAL(rm, rs, e.regFile.Get(rdHi), e.regFile.Get(rdLo), s)
		case signed:
			hi, lo = e.alu.SMULL(rm, rs, s)
		case accumulate:
			hi, lo = e.alu.UMLAL(rm, rs, e.regFile.Get(rdHi), e.regFile.Get(rdLo), s)
		default:
			hi, lo = e.alu.UMULL(rm, rs, s)
		}
		if accumulate {
			m++
		}

		e.clock.Internal(m)
		e.regFile.Set(rdLo, lo)
		e.regFile.Set(rdHi, hi)
	}
}
