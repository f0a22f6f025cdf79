package storage

import (
	"errors"
	"fmt"
	"io"

	"github.com/dutchcoders/go-clamd"
)

// ErrInfected is returned when clamd flags an upload.
var ErrInfected = errors.New("malicious file detected")

// VirusScanner inspects an upload before it is stored.
type VirusScanner interface {
	Scan(r io.Reader) error
}

// ClamdScanner streams uploads to a clamd daemon (INSTREAM).
type ClamdScanner struct {
	client *clamd.Clamd
}

// NewClamdScanner returns nil when addr is empty, meaning scanning is off.
func NewClamdScanner(addr string) *ClamdScanner {
	if addr == "" {
		return nil
	}
	return &ClamdScanner{client: clamd.NewClamd(addr)}
}

func (s *ClamdScanner) Scan(r io.Reader) error {
	abort := make(chan bool)
	defer close(abort)

	results, err := s.client.ScanStream(r, abort)
	if err != nil {
		return fmt.Errorf("scan stream: %w", err)
	}

	var verdict error
	for result := range results {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			verdict = fmt.Errorf("%w: %s", ErrInfected, result.Description)
		default:
			if verdict == nil {
				verdict = fmt.Errorf("clamd %s: %s", result.Status, result.Description)
			}
		}
	}
	return verdict
}
