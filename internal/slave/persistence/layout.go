package persistence

import (
	"unsafe"

	"github.com/ffutop/modbus-slave/internal/slave/model"
)

const (
	// totalSize is the on-disk size of the raw register image:
	// 1000 registers of 2 bytes each.
	totalSize = model.BankSize * 2
)

// mapBytesToBank constructs a RegisterBank backed by the provided data
// slice.
// Warning: This function uses unsafe pointers to cast the byte slice to a
// uint16 slice. The resulting bank relies on the host's endianness for its
// values. This provides zero-copy access but sacrifices portability across
// architectures with different endianness.
func mapBytesToBank(data []byte) *model.RegisterBank {
	b := &model.RegisterBank{}
	b.Registers = unsafe.Slice((*uint16)(unsafe.Pointer(&data[0])), totalSize/2)
	return b
}
