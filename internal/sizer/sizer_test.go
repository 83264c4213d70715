package sizer

import (
	"signalcrawler/internal/dto"
	"signalcrawler/internal/instrument"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSize(t *testing.T) {
	mnq := instrument.Config{Symbol: "MNQ", TickSize: 0.25, TickValue: 0.50, MaxStopPoints: 15}
	mes := instrument.Config{Symbol: "MES", TickSize: 0.25, TickValue: 1.25, MaxStopPoints: 5}

	type args struct {
		cfg    instrument.Config
		entry  float64
		stop   float64
		budget float64
	}
	tests := []struct {
		name string
		args args
		want dto.SizeResult
	}{
		{
			name: "prime mnq short",
			args: args{cfg: mnq, entry: 21000, stop: 21015, budget: 250},
			want: dto.SizeResult{Contracts: 8, StopTicks: 60, RiskPerContract: 30, TotalRisk: 240},
		},
		{
			name: "exact fit",
			args: args{cfg: mes, entry: 6000, stop: 5996, budget: 160},
			want: dto.SizeResult{Contracts: 8, StopTicks: 16, RiskPerContract: 20, TotalRisk: 160},
		},
		{
			name: "budget below one contract still trades one",
			args: args{cfg: mes, entry: 6000, stop: 5995, budget: 10},
			want: dto.SizeResult{Contracts: 1, StopTicks: 20, RiskPerContract: 25, TotalRisk: 25},
		},
		{
			name: "zero stop distance",
			args: args{cfg: mnq, entry: 21000, stop: 21000, budget: 250},
			want: dto.SizeResult{Contracts: 1, Degenerate: true},
		},
		{
			name: "missing tick size",
			args: args{cfg: instrument.Config{TickValue: 1}, entry: 100, stop: 99, budget: 250},
			want: dto.SizeResult{Contracts: 1, Degenerate: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Size(tt.args.cfg, tt.args.entry, tt.args.stop, tt.args.budget)
			assert.Equal(t, tt.want.Contracts, got.Contracts)
			assert.Equal(t, tt.want.Degenerate, got.Degenerate)
			assert.InDelta(t, tt.want.StopTicks, got.StopTicks, 1e-9)
			assert.InDelta(t, tt.want.RiskPerContract, got.RiskPerContract, 1e-9)
			assert.InDelta(t, tt.want.TotalRisk, got.TotalRisk, 1e-9)
		})
	}
}
