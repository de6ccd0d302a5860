// Package qrsvc renders QR codes for completion URLs.
package qrsvc

import (
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/mwalimu/darasa/core"
)

type service struct{}

var _ core.QRService = (*service)(nil)

func NewService() core.QRService {
	return &service{}
}

// RenderPNG encodes text as a PNG QR code of size x size pixels.
func (svc service) RenderPNG(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, errors.Wrap(err, "encoding QR code")
	}
	return png, nil
}
