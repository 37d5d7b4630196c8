package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{20, "20"},
		{1234.5, "1,234.5"},
		{999999, "999,999"},
		{2500000, "2.5 M"},
		{UnlimitedCurrency, "unlimited"},
		{math.Inf(1), "unlimited"},
		{math.NaN(), "n/a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(tt.in), "FormatAmount(%v)", tt.in)
	}
}

func TestStatsSnapshot(t *testing.T) {
	s := StatsSnapshot{{Label: "State", Value: "running"}, {Label: "Money", Value: "100"}}

	v, ok := s.Get("Money")
	assert.True(t, ok)
	assert.Equal(t, "100", v)
	_, ok = s.Get("Gold")
	assert.False(t, ok)
	assert.Equal(t, "State: running, Money: 100", s.String())
}

func TestMultiSink(t *testing.T) {
	a, b := &RecordingSink{}, &RecordingSink{}
	sink := MultiSink{a, nil, b}

	sink.Notify("hello")
	sink.Error("oops")
	sink.Stats(StatsSnapshot{{Label: "x", Value: "1"}})

	for _, r := range []*RecordingSink{a, b} {
		assert.Equal(t, []string{"hello"}, r.Notices())
		assert.Equal(t, []string{"oops"}, r.Errors())
		last, ok := r.Last()
		assert.True(t, ok)
		assert.Equal(t, "x: 1", last.String())
	}
}

func TestLevels(t *testing.T) {
	l := NewLevels([]UpgradeKind{kindA, kindB})

	assert.Equal(t, 1, l.Increment(kindA))
	assert.Equal(t, 2, l.Increment(kindA))
	assert.Equal(t, 1, l.Increment(kindC))
	assert.Equal(t, 0, l.Get(kindB))
	assert.Equal(t, map[UpgradeKind]int{kindA: 2, kindB: 0, kindC: 1}, l.Snapshot())

	snap := l.Snapshot()
	snap[kindA] = 0
	assert.Equal(t, 2, l.Get(kindA), "snapshot must be a copy")
}

func TestPurchaseLog_EntriesIsCopy(t *testing.T) {
	pl := NewPurchaseLog()
	pl.Append(PurchaseLogEntry{Kind: kindA, Cost: 1, Level: 1})

	entries := pl.Entries()
	entries[0].Cost = 99

	assert.Equal(t, 1, pl.Len())
	assert.Equal(t, 1.0, pl.Entries()[0].Cost)
}
