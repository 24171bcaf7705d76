package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfPeriod_Weekly(t *testing.T) {
	tests := []struct {
		name         string
		date         time.Time
		weekStartDay time.Weekday
		expected     time.Time
	}{
		{
			name:         "date already on week start",
			date:         time.Date(2025, time.June, 1, 15, 30, 0, 0, time.UTC), // Sunday
			weekStartDay: time.Sunday,
			expected:     time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "mid week rolls back to sunday",
			date:         time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC), // Wednesday
			weekStartDay: time.Sunday,
			expected:     time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "day of week precedes week start",
			date:         time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC), // Sunday
			weekStartDay: time.Monday,
			expected:     time.Date(2025, time.May, 26, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "monday start on a saturday",
			date:         time.Date(2025, time.June, 7, 23, 59, 0, 0, time.UTC), // Saturday
			weekStartDay: time.Monday,
			expected:     time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "crosses month boundary",
			date:         time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC), // Wednesday
			weekStartDay: time.Sunday,
			expected:     time.Date(2025, time.June, 29, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StartOfPeriod(tt.date, KindWeekly, tt.weekStartDay)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestStartOfPeriod_Monthly(t *testing.T) {
	result := StartOfPeriod(time.Date(2025, time.June, 17, 13, 45, 12, 0, time.UTC), KindMonthly, time.Sunday)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), result)

	// week start day is irrelevant for monthly periods
	result = StartOfPeriod(time.Date(2025, time.June, 17, 0, 0, 0, 0, time.UTC), KindMonthly, time.Wednesday)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), result)
}

func TestStartOfPeriod_KeepsLocation(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	assert.NoError(t, err)

	result := StartOfPeriod(time.Date(2025, time.June, 4, 10, 0, 0, 0, warsaw), KindWeekly, time.Sunday)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, warsaw), result)
}

func TestParseDomain(t *testing.T) {
	domain, err := ParseDomain("TIME")
	assert.NoError(t, err)
	assert.Equal(t, DomainTime, domain)

	_, err = ParseDomain("time")
	assert.Error(t, err)

	_, err = ParseDomain("")
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind("MONTHLY")
	assert.NoError(t, err)
	assert.Equal(t, KindMonthly, kind)

	_, err = ParseKind("DAILY")
	assert.Error(t, err)
}
