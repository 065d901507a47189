package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/burka/voicsh/internal/pipeline"
)

// udpFrameHeaderSize is the length of a frame's sequence-number prefix.
// Wire layout: [Sequence:8 big-endian][PCM16LE samples].
const udpFrameHeaderSize = 8

// UDPFrameSource is a pipeline.AudioSource that reads mono 16-bit PCM
// frames from a UDP socket, one datagram per frame, each prefixed with an
// 8-byte big-endian sequence number.
type UDPFrameSource struct {
	bindAddress string
	port        int
	bufferSize  int
	logger      *slog.Logger

	mu      sync.Mutex
	boundTo net.Addr
}

// LocalAddr returns the address UDPFrameSource last bound to, or nil if
// Start has not yet succeeded. Useful when port is 0 and the caller needs
// to discover the OS-assigned port, e.g. in tests.
func (s *UDPFrameSource) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundTo
}

// NewUDPFrameSource builds a UDPFrameSource bound to bindAddress:port.
func NewUDPFrameSource(bindAddress string, port, bufferSize int, logger *slog.Logger) *UDPFrameSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &UDPFrameSource{bindAddress: bindAddress, port: port, bufferSize: bufferSize, logger: logger}
}

type udpSourceHandle struct {
	cancel context.CancelFunc
	conn   *net.UDPConn
	wg     *sync.WaitGroup
}

func (h *udpSourceHandle) Stop() {
	h.cancel()
	if h.conn != nil {
		_ = h.conn.Close()
	}
	h.wg.Wait()
}

// Start implements pipeline.AudioSource.
func (s *UDPFrameSource) Start(frames chan<- pipeline.AudioFrame, reporter pipeline.ErrorReporter) (pipeline.SourceHandle, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", s.bindAddress, s.port))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP: %w", err)
	}

	if s.bufferSize > 0 {
		if err := conn.SetReadBuffer(s.bufferSize); err != nil {
			s.logger.Warn("failed to set UDP read buffer size", slog.Int("buffer_size", s.bufferSize), slog.String("error", err.Error()))
		}
	}

	s.mu.Lock()
	s.boundTo = conn.LocalAddr()
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)

	s.logger.Info("UDP frame source started", slog.String("address", addr.String()))

	go func() {
		defer wg.Done()
		defer close(frames)

		buf := make([]byte, 64*1024)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				reporter.Report("source", pipeline.KindRecoverable, fmt.Sprintf("UDP read failed: %s", err.Error()))
				continue
			}

			if n < udpFrameHeaderSize || (n-udpFrameHeaderSize)%2 != 0 {
				reporter.Report("source", pipeline.KindRecoverable, fmt.Sprintf("dropped malformed UDP frame of %d bytes", n))
				continue
			}

			seq := binary.BigEndian.Uint64(buf[0:8])
			sampleCount := (n - udpFrameHeaderSize) / 2
			samples := make([]int16, sampleCount)
			for i := 0; i < sampleCount; i++ {
				off := udpFrameHeaderSize + i*2
				samples[i] = int16(binary.LittleEndian.Uint16(buf[off : off+2]))
			}

			frame := pipeline.AudioFrame{Samples: samples, Timestamp: time.Now(), Sequence: seq}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &udpSourceHandle{cancel: cancel, conn: conn, wg: &wg}, nil
}
