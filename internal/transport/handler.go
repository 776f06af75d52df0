package transport

import (
	"errors"
	"syscall"

	"github.com/danmuck/onebyte/internal/device"
	"github.com/danmuck/onebyte/internal/fault"
	"github.com/danmuck/onebyte/internal/ioctl"
	"github.com/danmuck/onebyte/internal/logs"
	"github.com/danmuck/onebyte/internal/protocol"
	"github.com/danmuck/onebyte/internal/protocol/frame"
	"github.com/danmuck/onebyte/internal/protocol/schema"
	"github.com/danmuck/onebyte/internal/uaccess"
)

// handle answers one request frame. It never fails: every problem becomes
// an ERROR frame.
func (c *serverConn) handle(f frame.Frame) frame.Frame {
	id := f.Header.MessageID
	req, err := protocol.ParseRequest(f)
	if err != nil {
		logs.Debugf("transport.handle malformed message_id=%d type=%s err=%v", id, schema.MessageName(f.Header.MessageType), err)
		return errorReply(fault.Wrap("decode", fault.KindInvalidArgument, err)).Frame(id)
	}

	var reply protocol.Reply
	switch req.Type {
	case schema.MsgOpen:
		reply, err = c.open()
	case schema.MsgRelease:
		reply, err = c.release(req)
	case schema.MsgRead:
		reply, err = c.read(req)
	case schema.MsgWrite:
		reply, err = c.write(req)
	case schema.MsgSeek:
		reply, err = c.seek(req)
	case schema.MsgIoctl:
		reply, err = c.ioctl(req)
	}
	if err != nil {
		logs.Debugf("transport.handle message_id=%d type=%s err=%v", id, schema.MessageName(req.Type), err)
		return errorReply(err).Frame(id)
	}
	return reply.Frame(id)
}

func (c *serverConn) open() (protocol.Reply, error) {
	h, err := c.srv.dev.Open()
	if err != nil {
		return protocol.Reply{}, err
	}
	c.next++
	c.handles[c.next] = h
	return protocol.Reply{Handle: c.next}, nil
}

func (c *serverConn) lookup(op string, id uint64) (*device.Handle, error) {
	h, ok := c.handles[id]
	if !ok {
		return nil, fault.New(op, fault.KindInvalidArgument, "unknown handle %d", id)
	}
	return h, nil
}

func (c *serverConn) release(req protocol.Request) (protocol.Reply, error) {
	h, err := c.lookup("release", req.Handle)
	if err != nil {
		return protocol.Reply{}, err
	}
	h.Release()
	delete(c.handles, req.Handle)
	return protocol.Reply{}, nil
}

// read sizes the caller region by the requested count, capped by
// MaxRegion. The count itself goes to the device unchanged.
func (c *serverConn) read(req protocol.Request) (protocol.Reply, error) {
	h, err := c.lookup("read", req.Handle)
	if err != nil {
		return protocol.Reply{}, err
	}
	dst := uaccess.MakeBuffer(min(int(req.Count), c.srv.cfg.MaxRegion))
	var n int
	if req.HasPosition {
		n, err = h.ReadAt(dst, int(req.Count), position(req.Position))
	} else {
		n, err = h.Read(dst, int(req.Count))
	}
	if err != nil {
		return protocol.Reply{}, err
	}
	return protocol.Reply{
		Result:    uint64(n),
		Offset:    uint64(h.Offset()),
		HasOffset: true,
		Data:      dst.Bytes()[:n],
	}, nil
}

// write uses the request data as the caller region. An explicit count
// larger than the data describes a region that ends early.
func (c *serverConn) write(req protocol.Request) (protocol.Reply, error) {
	h, err := c.lookup("write", req.Handle)
	if err != nil {
		return protocol.Reply{}, err
	}
	count := len(req.Data)
	if req.HasCount {
		count = int(req.Count)
	}
	src := uaccess.NewBuffer(req.Data)
	var n int
	if req.HasPosition {
		n, err = h.WriteAt(src, count, position(req.Position))
	} else {
		n, err = h.Write(src, count)
	}
	if err != nil {
		return protocol.Reply{}, err
	}
	return protocol.Reply{Result: uint64(n), Offset: uint64(h.Offset()), HasOffset: true}, nil
}

// position maps a wire offset onto the device. Values past MaxInt64 come
// through negative and are rejected by the store.
func position(p uint64) int64 {
	return int64(p)
}

func (c *serverConn) seek(req protocol.Request) (protocol.Reply, error) {
	h, err := c.lookup("seek", req.Handle)
	if err != nil {
		return protocol.Reply{}, err
	}
	pos, err := h.Seek(req.Delta, int(req.Whence))
	if err != nil {
		return protocol.Reply{}, err
	}
	return protocol.Reply{Result: uint64(pos), Offset: uint64(pos), HasOffset: true}, nil
}

// ioctl builds the caller region from the request data padded to count.
// A request with neither data nor count passes no region at all.
func (c *serverConn) ioctl(req protocol.Request) (protocol.Reply, error) {
	code := ioctl.Code(req.Command)
	var arg uaccess.Region
	var buf []byte
	if req.Data != nil || req.HasCount {
		size := max(len(req.Data), min(int(req.Count), c.srv.cfg.MaxRegion))
		buf = make([]byte, size)
		copy(buf, req.Data)
		arg = uaccess.NewBuffer(buf)
	}
	n, err := c.srv.dev.Ioctl(code, arg)
	if err != nil {
		return protocol.Reply{}, err
	}
	reply := protocol.Reply{Result: uint64(n)}
	if code.Dir().Writes() && buf != nil {
		reply.Data = buf[:n]
	}
	return reply, nil
}

// errorReply maps a device error to its errno. Failures outside the fault
// taxonomy travel as EIO.
func errorReply(err error) protocol.ErrorReply {
	kind := fault.KindOf(err)
	e := protocol.ErrorReply{
		Errno:  uint32(kind.Errno()),
		Kind:   kind.String(),
		Detail: err.Error(),
	}
	switch {
	case errors.Is(err, device.ErrNotLoaded):
		e.Errno, e.Kind = uint32(syscall.EIO), "not_loaded"
	case errors.Is(err, device.ErrReleased):
		e.Errno, e.Kind = uint32(syscall.EBADF), "released"
	}
	return e
}
