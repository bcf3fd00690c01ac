package invoicedoc

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRPayload is the text encoded in the invoice QR code.
func QRPayload(invoiceNumber, controlNumber string, date time.Time, clientName string) string {
	return fmt.Sprintf("Factura: %s\nControl: %s\nFecha: %s\nCliente: %s",
		invoiceNumber, controlNumber, date.Format(dateLayout), clientName)
}

// QRCode encodes payload as a PNG data URI suitable for an <img> tag.
func QRCode(payload string) (template.URL, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}
