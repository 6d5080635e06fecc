package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/phillip-england/cafesuite/internal/domain"
	"github.com/ulikunitz/xz"
)

// Snapshot is a point-in-time copy of every record.
type Snapshot struct {
	TakenAt   time.Time         `json:"taken_at"`
	Cafes     []domain.Cafe     `json:"cafes"`
	Employees []domain.Employee `json:"employees"`
}

// WriteSnapshot writes the snapshot as xz-compressed JSON.
func WriteSnapshot(w io.Writer, snap Snapshot) error {
	zw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("open xz writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close xz writer: %w", err)
	}
	return nil
}

func ReadSnapshot(r io.Reader) (Snapshot, error) {
	zr, err := xz.NewReader(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open xz reader: %w", err)
	}
	var snap Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}
