package http

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validPayload() AdmissionPayload {
	return AdmissionPayload{
		ResourceIDs:   []string{"r1", "r2"},
		OccupantName:  "Asha Rao",
		OccupantPhone: "9876543210",
		CheckIn:       "2025-06-01",
		CheckOut:      "2025-06-03",
	}
}

func TestAdmissionPayload_Validate(t *testing.T) {
	negative := decimal.NewFromInt(-5)
	zero := decimal.Zero

	tests := []struct {
		name    string
		mutate  func(p *AdmissionPayload)
		wantErr string
	}{
		{"valid", func(p *AdmissionPayload) {}, ""},
		{"zero discount allowed", func(p *AdmissionPayload) { p.Discount = &zero }, ""},
		{"no rooms", func(p *AdmissionPayload) { p.ResourceIDs = nil }, "resourceIds must contain at least one room"},
		{"empty room list", func(p *AdmissionPayload) { p.ResourceIDs = []string{} }, "resourceIds must contain at least one room"},
		{"blank room id", func(p *AdmissionPayload) { p.ResourceIDs = []string{"r1", "  "} }, "resourceIds[1] is required"},
		{"blank name", func(p *AdmissionPayload) { p.OccupantName = "   " }, "occupantName is required"},
		{"short phone", func(p *AdmissionPayload) { p.OccupantPhone = "98765" }, "occupantPhone must be exactly 10 digits"},
		{"signed phone", func(p *AdmissionPayload) { p.OccupantPhone = "-987654321" }, "occupantPhone must be exactly 10 digits"},
		{"letters in phone", func(p *AdmissionPayload) { p.OccupantPhone = "98765abcde" }, "occupantPhone must be exactly 10 digits"},
		{"missing check-out", func(p *AdmissionPayload) { p.CheckOut = "" }, "checkOut is required"},
		{"negative discount", func(p *AdmissionPayload) { p.Discount = &negative }, "discount cannot be negative"},
		{"negative advance", func(p *AdmissionPayload) { p.AdvanceAmount = &negative }, "advanceAmount cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
