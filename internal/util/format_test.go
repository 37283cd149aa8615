package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "1,500,000 ₫", FormatMoney(1500000))
	require.Equal(t, "0 ₫", FormatMoney(0))
}

func TestTruncateContent(t *testing.T) {
	testCases := []struct {
		name      string
		title     string
		maxLength int
		want      string
	}{
		{
			name:      "short_title_untouched",
			title:     "RX-78-2 kit",
			maxLength: 60,
			want:      "RX-78-2 kit",
		},
		{
			name:      "exact_length_untouched",
			title:     "Zaku II",
			maxLength: 7,
			want:      "Zaku II",
		},
		{
			name:      "long_title_truncated",
			title:     "MSN-04 Sazabi Ver.Ka with full inner frame",
			maxLength: 13,
			want:      "MSN-04 Sazabi...",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, TruncateContent(tc.title, tc.maxLength))
		})
	}
}
