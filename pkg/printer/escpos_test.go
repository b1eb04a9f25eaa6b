package printer

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_KeyValueJustifies(t *testing.T) {
	doc := NewDocument(20)
	doc.KeyValue("Total:", "15.24")

	out := doc.Bytes()
	require.True(t, bytes.HasPrefix(out, []byte{ESC, '@'}))
	line := string(out[2:])
	assert.Equal(t, "Total:         15.24\n", line)
}

func TestDocument_ItemLineTruncatesLongNames(t *testing.T) {
	doc := NewDocument(20)
	doc.ItemLine(2, "Refrigerante Guarana 2 litros", "13.98")

	line := string(doc.Bytes()[2:])
	assert.Equal(t, "2x Refrigerant 13.98\n", line)
	assert.Len(t, []rune(line), 21)
}

func TestDocument_QRCodeEmbedsPayload(t *testing.T) {
	doc := NewDocument(48)
	doc.QRCode("https://nfce.example/qr?p=123", 5)
	assert.Contains(t, string(doc.Bytes()), "https://nfce.example/qr?p=123")
}

func TestNewPrinterFromConfig(t *testing.T) {
	_, err := NewPrinterFromConfig("usb", "", "")
	assert.Error(t, err)

	_, err = NewPrinterFromConfig("network", "", "")
	assert.Error(t, err)

	p, err := NewPrinterFromConfig("none", "", "")
	require.NoError(t, err)
	assert.False(t, p.IsConnected())
	assert.NoError(t, p.Print(context.Background(), []byte("x")))

	_, err = NewPrinterFromConfig("serial", "", "")
	assert.Error(t, err)
}

func TestNetworkPrinter_RespectsContext(t *testing.T) {
	// 10.255.255.1 is non-routable; the dial hangs until the context ends.
	p := NewNetworkPrinter("10.255.255.1:9100")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Print(ctx, []byte("x"))
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
