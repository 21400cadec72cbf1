// Package vm implements the logic processor virtual machine.
//
// This package contains:
//   - Tagged numeric-or-object values
//   - The symbol table (named variable and constant slots)
//   - The opcode table and decoded instructions
//   - The executor, which runs one instruction per call
//   - A program disassembler
//
// The executor never loops internally. Hosts bound the amount of work done
// per simulation tick by deciding how many times to call RunOnce.
package vm
