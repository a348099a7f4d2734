package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"speedgate/internal/logger"
	"speedgate/internal/speed"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

const maxPacketSize = 65507

// assembler rebuilds JPEG frames from UDP packets, one buffer per sender.
type assembler struct {
	buffers map[string]*bytes.Buffer
}

func newAssembler() *assembler {
	return &assembler{buffers: make(map[string]*bytes.Buffer)}
}

// push adds a packet and returns a complete frame when the packet ends one.
func (a *assembler) push(sender string, data []byte) ([]byte, bool) {
	imgBuffer, ok := a.buffers[sender]
	if !ok {
		imgBuffer = new(bytes.Buffer)
		a.buffers[sender] = imgBuffer
	}

	if bytes.HasPrefix(data, jpegHeader) {
		imgBuffer.Reset()
	}
	// Packet without a preceding header, wait for the next frame.
	if imgBuffer.Len() == 0 && !bytes.HasPrefix(data, jpegHeader) {
		return nil, false
	}
	imgBuffer.Write(data)

	if !bytes.HasSuffix(data, jpegFooter) {
		return nil, false
	}

	fullFrame := make([]byte, imgBuffer.Len())
	copy(fullFrame, imgBuffer.Bytes())
	imgBuffer.Reset()
	return fullFrame, true
}

// UDPSource receives JPEG frames from network cameras. Only the newest
// complete frame is kept.
type UDPSource struct {
	conn   *net.UDPConn
	frames chan []byte
	logger *logger.Logger
	done   chan struct{}
	once   sync.Once
}

// ListenUDP starts receiving camera packets on port.
func ListenUDP(port int, logger *logger.Logger) (*UDPSource, error) {
	addr, err := net.ResolveUDPAddr("udp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP port %d: %w", port, err)
	}

	s := &UDPSource{
		conn:   conn,
		frames: make(chan []byte, 1),
		logger: logger,
		done:   make(chan struct{}),
	}
	go s.receive()

	logger.Info("UDP camera source listening on port %d", port)
	return s, nil
}

// Addr returns the local listening address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *UDPSource) receive() {
	defer close(s.done)

	buffer := make([]byte, maxPacketSize)
	frames := newAssembler()

	for {
		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Error reading UDP packet: %v", err)
			continue
		}

		frame, ok := frames.push(remoteAddr.IP.String(), buffer[:n])
		if !ok {
			continue
		}

		// Replace a frame nobody has consumed yet.
		select {
		case s.frames <- frame:
		default:
			select {
			case <-s.frames:
			default:
			}
			select {
			case s.frames <- frame:
			default:
			}
		}
	}
}

// ReadJPEG blocks until a complete JPEG frame arrives.
func (s *UDPSource) ReadJPEG(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrSourceClosed
	case frame := <-s.frames:
		return frame, nil
	}
}

// Read decodes the next complete frame. Undecodable frames are skipped.
func (s *UDPSource) Read(ctx context.Context) (speed.Frame, error) {
	for {
		data, err := s.ReadJPEG(ctx)
		if err != nil {
			return speed.Frame{}, err
		}

		frame, err := DecodeJPEG(data)
		if err != nil {
			s.logger.Warning("Dropping camera frame: %v", err)
			continue
		}
		return frame, nil
	}
}

func (s *UDPSource) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close()
		<-s.done
	})
	return err
}
