package clock

import (
	"bufio"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// SerialOracle reads live sun-sensor irradiance readings off a serial
// port (a simple "<watts>\n" line protocol). When a read fails it
// returns the last good reading, or the PureOracle's output if there
// is none; an unparsable line also uses the PureOracle. No read
// timeout is set, so a sensor that stays connected but sends nothing
// blocks SolarOutput until a line arrives.
type SerialOracle struct {
	mu       sync.RWMutex
	fallback *PureOracle
	port     serial.Port
	reader   *bufio.Reader
	last     float64
	haveLast bool
	logger   *logrus.Logger
}

// NewSerialOracle opens portName at baud and wraps fallback for use
// when the sensor is silent or unreachable.
func NewSerialOracle(portName string, baud int, fallback *PureOracle, logger *logrus.Logger) (*SerialOracle, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}

	return &SerialOracle{
		fallback: fallback,
		port:     port,
		reader:   bufio.NewReader(port),
		logger:   logger,
	}, nil
}

// Phase delegates to the pure calculator: orbital phase is a
// deterministic function of tick, not sensor-derived.
func (s *SerialOracle) Phase(tick int) Phase {
	return s.fallback.Phase(tick)
}

// SolarOutput reads the next line from the serial port, waiting for
// one if none has arrived. If the read fails it returns the last known
// reading, otherwise falls back to the pure calculator.
func (s *SerialOracle) SolarOutput(tick int, phase Phase, nominalSunlightW, nominalEclipseW int) float64 {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		s.mu.RLock()
		have := s.haveLast
		last := s.last
		s.mu.RUnlock()
		if have {
			return last
		}
		if s.logger != nil {
			s.logger.WithError(err).Warn("sun sensor read failed, using pure oracle")
		}
		return s.fallback.SolarOutput(tick, phase, nominalSunlightW, nominalEclipseW)
	}

	watts, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("sun sensor line unparsable, using pure oracle")
		}
		return s.fallback.SolarOutput(tick, phase, nominalSunlightW, nominalEclipseW)
	}

	s.mu.Lock()
	s.last = watts
	s.haveLast = true
	s.mu.Unlock()

	return watts
}

// Close releases the underlying serial port.
func (s *SerialOracle) Close() error {
	return s.port.Close()
}
