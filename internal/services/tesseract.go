package services

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
)

// tesseractLangs maps our language codes to Tesseract traineddata names.
var tesseractLangs = map[string]string{
	"en": "eng",
	"hi": "hin",
}

// TesseractExtractor runs OCR in-process. It satisfies the same Extractor
// interface as the remote OCR service so the pipeline never knows which
// engine is behind it.
type TesseractExtractor struct{}

func NewTesseractExtractor() *TesseractExtractor {
	return &TesseractExtractor{}
}

func (t *TesseractExtractor) Extract(ctx context.Context, image []byte, languages []string) ([]domain.Fragment, error) {
	client := gosseract.NewClient()
	defer client.Close()

	langs := make([]string, 0, len(languages))
	for _, l := range languages {
		if mapped, ok := tesseractLangs[l]; ok {
			langs = append(langs, mapped)
		}
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := client.SetLanguage(langs...); err != nil {
		return nil, fmt.Errorf("set tesseract languages: %w", err)
	}

	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, transportError("tesseract", err)
	}

	fragments := make([]domain.Fragment, 0, len(boxes))
	for _, box := range boxes {
		// Tesseract reports confidence on a 0-100 scale.
		fragments = append(fragments, domain.Fragment{
			Text:       box.Word,
			Confidence: box.Confidence / 100,
		})
	}
	return fragments, nil
}
