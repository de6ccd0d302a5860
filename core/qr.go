package core

// QRService is any service that can render text as a QR code image.
type QRService interface {
	// RenderPNG encodes text into a PNG image of size x size pixels.
	RenderPNG(text string, size int) ([]byte, error)
}
