package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorProducesPDF(t *testing.T) {
	opts := DefaultOptions()
	opts.Title = "Booking Receipt"
	opts.Subtitle = "BK-2024-001"
	opts.Footer = "Thank you"

	g := NewGenerator(opts)
	g.AddSection("Stay", []Field{
		{Label: "Property", Value: "Ocean View Villa"},
		{Label: "Check-in", Value: g.FormatDate(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))},
	})
	g.AddAmounts("USD", []LineItem{
		{Description: "3 nights", Amount: 450},
		{Description: "Service fee", Amount: 45},
	}, "Total", 495)
	g.AddNote("Payment received.")

	out, err := g.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "KES 1200.50", FormatMoney("KES", 1200.5))
	assert.Equal(t, "3.00", FormatMoney("", 3))
}

func TestFormatDateZero(t *testing.T) {
	g := NewGenerator(DefaultOptions())
	assert.Empty(t, g.FormatDate(time.Time{}))
}
