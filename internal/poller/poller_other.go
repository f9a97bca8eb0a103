//go:build !linux

package poller

import (
	"errors"
	"net"
)

// ErrUnsupported is returned on platforms without epoll.
var ErrUnsupported = errors.New("poller: only linux is supported")

// Poller is unavailable on this platform.
type Poller struct{}

func New(int) (*Poller, error) { return nil, ErrUnsupported }
func (p *Poller) Add(int, Key) error { return ErrUnsupported }
func (p *Poller) Modify(int, Key) error { return ErrUnsupported }
func (p *Poller) Delete(int) error { return ErrUnsupported }
func (p *Poller) Wait([]Key) ([]Key, error) { return nil, ErrUnsupported }
func (p *Poller) Wake() error { return ErrUnsupported }
func (p *Poller) Close() error { return nil }

// Listener is unavailable on this platform.
type Listener struct{}

func Listen(string, int) (*Listener, error) { return nil, ErrUnsupported }
func (l *Listener) Fd() int { return -1 }
func (l *Listener) Addr() *net.TCPAddr { return &net.TCPAddr{} }
func (l *Listener) Accept() (int, *net.TCPAddr, error) { return -1, nil, ErrUnsupported }
func (l *Listener) Close() error { return nil }

// IsTransientAccept always reports false on this platform.
func IsTransientAccept(error) bool { return false }
