// Package ioctl encodes and decodes control command codes using the Linux
// _IOC bit layout: nr (8 bits), type (8 bits), size (14 bits), dir (2 bits).
package ioctl

import "fmt"

const (
	nrBits   = 8
	typeBits = 8
	sizeBits = 14
	dirBits  = 2

	nrShift   = 0
	typeShift = nrShift + nrBits
	sizeShift = typeShift + typeBits
	dirShift  = sizeShift + sizeBits

	nrMask   = 1<<nrBits - 1
	typeMask = 1<<typeBits - 1
	sizeMask = 1<<sizeBits - 1
	dirMask  = 1<<dirBits - 1

	// MaxSize is the largest transfer size a code can carry.
	MaxSize = sizeMask
)

// Direction is the data transfer direction seen from the caller.
type Direction uint8

const (
	DirNone Direction = 0
	// DirWrite: the caller writes, the device reads the caller region.
	DirWrite Direction = 1
	// DirRead: the caller reads, the device writes the caller region.
	DirRead      Direction = 2
	DirReadWrite Direction = DirRead | DirWrite
)

func (d Direction) String() string {
	switch d {
	case DirNone:
		return "none"
	case DirWrite:
		return "write"
	case DirRead:
		return "read"
	case DirReadWrite:
		return "read|write"
	default:
		return fmt.Sprintf("dir(%d)", uint8(d))
	}
}

// Reads reports whether the device copies data out of the caller region.
func (d Direction) Reads() bool { return d&DirWrite != 0 }

// Writes reports whether the device copies data into the caller region.
func (d Direction) Writes() bool { return d&DirRead != 0 }

// Code is one encoded control command.
type Code uint32

// Encode packs the four command components. Out-of-range components are
// masked to their field width.
func Encode(dir Direction, typ uint8, nr uint8, size uint16) Code {
	return Code(uint32(dir)&dirMask<<dirShift |
		uint32(size)&sizeMask<<sizeShift |
		uint32(typ)&typeMask<<typeShift |
		uint32(nr)&nrMask<<nrShift)
}

// IO is _IO(type, nr).
func IO(typ, nr uint8) Code { return Encode(DirNone, typ, nr, 0) }

// IOW is _IOW(type, nr, size).
func IOW(typ, nr uint8, size uint16) Code { return Encode(DirWrite, typ, nr, size) }

// IOR is _IOR(type, nr, size).
func IOR(typ, nr uint8, size uint16) Code { return Encode(DirRead, typ, nr, size) }

// IOWR is _IOWR(type, nr, size).
func IOWR(typ, nr uint8, size uint16) Code { return Encode(DirReadWrite, typ, nr, size) }

func (c Code) Dir() Direction { return Direction(uint32(c) >> dirShift & dirMask) }
func (c Code) Type() uint8    { return uint8(uint32(c) >> typeShift & typeMask) }
func (c Code) Nr() uint8      { return uint8(uint32(c) >> nrShift & nrMask) }
func (c Code) Size() uint16   { return uint16(uint32(c) >> sizeShift & sizeMask) }

func (c Code) String() string {
	return fmt.Sprintf("ioctl(dir=%s type=%q nr=%d size=%d)", c.Dir(), rune(c.Type()), c.Nr(), c.Size())
}
