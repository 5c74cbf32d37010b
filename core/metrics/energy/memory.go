package energy

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in memory, aggregated by battery and day.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[time.Time]*Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[time.Time]*Record{}}
}

// Add merges r into the record of its battery and day.
func (s *MemoryStore) Add(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	days := s.data[r.BatteryID]
	if days == nil {
		days = map[time.Time]*Record{}
		s.data[r.BatteryID] = days
	}
	d := Day(r.Date)
	rec := days[d]
	if rec == nil {
		rec = &Record{BatteryID: r.BatteryID, Date: d}
		days[d] = rec
	}
	rec.ChargedKWh += r.ChargedKWh
	rec.DischargedKWh += r.DischargedKWh
	return nil
}

// Query returns the daily records of batteryID between start and end
// inclusive, oldest first.
func (s *MemoryStore) Query(batteryID string, start, end time.Time) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, end = Day(start), Day(end)
	var res []Record
	for d, r := range s.data[batteryID] {
		if d.Before(start) || d.After(end) {
			continue
		}
		res = append(res, *r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date.Before(res[j].Date) })
	return res, nil
}
