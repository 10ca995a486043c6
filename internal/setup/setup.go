// Package setup persists named snapshots of the calculator form ("product
// setups") so they can be reloaded or appended later.
package setup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Simplici0/listprice/internal/fees"
	"github.com/Simplici0/listprice/internal/lineitem"
)

// Expense is a saved expense row: qty × cost.
type Expense struct {
	Name string          `json:"name"`
	Qty  lineitem.Amount `json:"qty"`
	Cost lineitem.Amount `json:"cost"`
}

// Labor is a saved labor row: hours × rate.
type Labor struct {
	Name  string          `json:"name"`
	Hours lineitem.Amount `json:"hours"`
	Rate  lineitem.Amount `json:"rate"`
}

// ProductSetup is the persisted snapshot of every form input.
type ProductSetup struct {
	Name      string             `json:"name"`
	Expenses  Indexed[Expense]   `json:"expenses"`
	Labor     Indexed[Labor]     `json:"labor"`
	Shipping  lineitem.Amount    `json:"shipping"`
	Tax       lineitem.Amount    `json:"tax"`
	AdFactor  fees.OffsiteAdMode `json:"adFactor"`
	AdRate    lineitem.Amount    `json:"adRate"`
	TaxFactor fees.IncomeTaxMode `json:"taxFactor"`
	TaxRate   lineitem.Amount    `json:"taxRate"`
	TimeStamp int64              `json:"timeStamp"`
}

// SavedAt returns the save time carried by the record.
func (p ProductSetup) SavedAt() time.Time {
	return time.UnixMilli(p.TimeStamp)
}

func (p ProductSetup) validate() error {
	if Sanitize(p.Name) == "" {
		return fmt.Errorf("record has no name")
	}
	if _, err := fees.ParseOffsiteAdMode(string(p.AdFactor)); err != nil {
		return err
	}
	if _, err := fees.ParseIncomeTaxMode(string(p.TaxFactor)); err != nil {
		return err
	}
	return nil
}

// Indexed is an ordered list stored as a JSON object keyed by position
// ({"0": ..., "1": ...}).
type Indexed[T any] []T

// MarshalJSON writes the list as an object keyed by index, in order.
func (l Indexed[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(i)))
		buf.WriteByte(':')
		body, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encode item %d: %w", i, err)
		}
		buf.Write(body)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an index-keyed object, ordering entries numerically. A
// plain JSON array is accepted as well.
func (l *Indexed[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type entry struct {
		index int
		body  json.RawMessage
	}
	entries := make([]entry, 0, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return fmt.Errorf("invalid item index %q", k)
		}
		entries = append(entries, entry{index: idx, body: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	items := make([]T, 0, len(entries))
	for _, e := range entries {
		var item T
		if err := json.Unmarshal(e.body, &item); err != nil {
			return fmt.Errorf("decode item %d: %w", e.index, err)
		}
		items = append(items, item)
	}
	*l = items
	return nil
}
