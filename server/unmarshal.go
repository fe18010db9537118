package server

import (
	"fmt"
	"strconv"

	"github.com/royalcat/cafemap/geo"
)

// pointScanner reads a tap script of the form [[x, y], ...] without going
// through reflection.
type pointScanner struct {
	data []byte
	i    int
}

func (s *pointScanner) skipSpace() {
	for s.i < len(s.data) {
		switch s.data[s.i] {
		case ' ', '\n', '\t', '\r':
			s.i++
		default:
			return
		}
	}
}

func (s *pointScanner) peek() byte {
	s.skipSpace()
	if s.i >= len(s.data) {
		return 0
	}
	return s.data[s.i]
}

func (s *pointScanner) expect(c byte) error {
	if s.peek() != c {
		return fmt.Errorf("invalid format at offset %d: expected '%c'", s.i, c)
	}
	s.i++
	return nil
}

func (s *pointScanner) number() (float64, error) {
	s.skipSpace()
	start := s.i
	for s.i < len(s.data) {
		c := s.data[s.i]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			s.i++
			continue
		}
		break
	}
	if start == s.i {
		return 0, fmt.Errorf("invalid format at offset %d: expected a number", s.i)
	}
	v, err := strconv.ParseFloat(string(s.data[start:s.i]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	return v, nil
}

func (s *pointScanner) point() (geo.ScreenPoint, error) {
	var p geo.ScreenPoint
	if err := s.expect('['); err != nil {
		return p, err
	}
	x, err := s.number()
	if err != nil {
		return p, err
	}
	if err := s.expect(','); err != nil {
		return p, err
	}
	y, err := s.number()
	if err != nil {
		return p, err
	}
	if err := s.expect(']'); err != nil {
		return p, err
	}
	return geo.ScreenPoint{X: x, Y: y}, nil
}

func unmarshalTapScript(data []byte, result *[]geo.ScreenPoint) error {
	s := &pointScanner{data: data}
	if err := s.expect('['); err != nil {
		return err
	}
	if s.peek() == ']' {
		s.i++
		return nil
	}
	for {
		p, err := s.point()
		if err != nil {
			return err
		}
		if !geo.Finite(p.X, p.Y) {
			return fmt.Errorf("invalid point %v", p)
		}
		*result = append(*result, p)

		switch s.peek() {
		case ',':
			s.i++
		case ']':
			s.i++
			return nil
		default:
			return fmt.Errorf("invalid format at offset %d: expected ',' or ']'", s.i)
		}
	}
}
