package payout

import (
	"fmt"
	"os"

	"github.com/avvvet/keno-services/internal/kenosvc/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type tableFile struct {
	Payouts []fileEntry `yaml:"payouts"`
}

type fileEntry struct {
	Spots      int    `yaml:"spots"`
	Matches    int    `yaml:"matches"`
	Multiplier string `yaml:"multiplier"`
}

// LoadFile reads a payout table from a YAML file of the form
//
//	payouts:
//	  - {spots: 3, matches: 3, multiplier: "50"}
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse payout table %s: %w", path, err)
	}

	entries := make([]models.PayoutEntry, 0, len(f.Payouts))
	for _, e := range f.Payouts {
		m, err := decimal.NewFromString(e.Multiplier)
		if err != nil {
			return nil, fmt.Errorf("payout %d/%d: invalid multiplier %q: %w", e.Matches, e.Spots, e.Multiplier, err)
		}
		entries = append(entries, models.PayoutEntry{Spots: e.Spots, Matches: e.Matches, Multiplier: m})
	}
	return NewTable(entries...)
}

func SaveFile(path string, t *Table) error {
	var f tableFile
	for _, e := range t.Entries() {
		f.Payouts = append(f.Payouts, fileEntry{
			Spots:      e.Spots,
			Matches:    e.Matches,
			Multiplier: e.Multiplier.String(),
		})
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
